package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/weatherly/internal/apperror"
	"github.com/sakif/weatherly/internal/model"
	"github.com/sakif/weatherly/internal/repository"
)

// SettingsService reads and saves the preferences row. Every change is
// saved immediately; there is no separate "apply" step.
type SettingsService struct {
	settings repository.SettingsRepository
	logger   *slog.Logger
}

func NewSettingsService(settings repository.SettingsRepository, logger *slog.Logger) *SettingsService {
	return &SettingsService{settings: settings, logger: logger}
}

func (s *SettingsService) Get(ctx context.Context) (model.Settings, error) {
	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return model.Settings{}, fmt.Errorf("service/settings: reading: %w", err)
	}
	return settings, nil
}

// SettingsUpdate is a partial change. Nil fields keep their saved value.
type SettingsUpdate struct {
	Unit              *string `json:"unit,omitempty"              validate:"omitnil,oneof=C F c f"`
	DynamicBackground *bool   `json:"dynamicBackground,omitempty"`
}

var settingsMessages = map[string]string{
	"Unit": "unit must be C or F",
}

// Save applies upd on top of the saved settings and returns the result.
// An unknown unit is ErrValidation and nothing is written.
func (s *SettingsService) Save(ctx context.Context, upd SettingsUpdate) (model.Settings, error) {
	if upd.Unit != nil {
		trimmed := strings.TrimSpace(*upd.Unit)
		upd.Unit = &trimmed
	}
	if err := validate.Struct(upd); err != nil {
		return model.Settings{}, validationError(err, settingsMessages)
	}

	current, err := s.Get(ctx)
	if err != nil {
		return model.Settings{}, err
	}

	next := current
	if upd.Unit != nil {
		unit, err := model.ParseUnit(*upd.Unit)
		if err != nil {
			return model.Settings{}, apperror.ValidationFailed("unit", settingsMessages["Unit"])
		}
		next.Unit = unit
	}
	if upd.DynamicBackground != nil {
		next.DynamicBackground = *upd.DynamicBackground
	}

	if next == current {
		return current, nil
	}
	if err := s.settings.SaveSettings(ctx, next); err != nil {
		return model.Settings{}, fmt.Errorf("service/settings: saving: %w", err)
	}

	s.logger.Info("settings saved",
		slog.String("unit", string(next.Unit)),
		slog.Bool("dynamic_background", next.DynamicBackground),
	)
	return next, nil
}
