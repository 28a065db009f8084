package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/weatherly/internal/model"
	"github.com/sakif/weatherly/internal/repository"
)

var _ repository.SettingsRepository = (*DB)(nil)

// GetSettings reads the single settings row. A missing row (a database that
// skipped Initialize) reads as the defaults. An unknown unit in the file falls
// back to Celsius.
func (db *DB) GetSettings(ctx context.Context) (model.Settings, error) {
	var (
		unit      string
		dynamicBG int
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT unit, dynamic_bg FROM settings WHERE id = 1`,
	).Scan(&unit, &dynamicBG)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.DefaultSettings(), nil
		}
		return model.Settings{}, fmt.Errorf("sqlite: reading settings: %w", err)
	}

	parsed, err := model.ParseUnit(unit)
	if err != nil {
		parsed = model.UnitCelsius
	}
	return model.Settings{Unit: parsed, DynamicBackground: dynamicBG != 0}, nil
}

// SaveSettings overwrites the single settings row.
func (db *DB) SaveSettings(ctx context.Context, settings model.Settings) error {
	if _, err := model.ParseUnit(string(settings.Unit)); err != nil {
		return fmt.Errorf("sqlite: saving settings: %w", err)
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO settings (id, unit, dynamic_bg) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET unit = excluded.unit, dynamic_bg = excluded.dynamic_bg`,
		string(settings.Unit), boolToInt(settings.DynamicBackground),
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving settings: %w", err)
	}
	return nil
}
