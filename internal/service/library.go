package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/weatherly/internal/apperror"
	"github.com/sakif/weatherly/internal/model"
	"github.com/sakif/weatherly/internal/repository"
	"github.com/sakif/weatherly/internal/weather"
)

// Library is the slice of the store LibraryService needs.
type Library interface {
	repository.FavoriteRepository
	repository.RecentRepository
}

// LibraryService manages favorites and recent searches.
// Both lists are global to the machine, not per account.
type LibraryService struct {
	store  Library
	logger *slog.Logger
}

func NewLibraryService(store Library, logger *slog.Logger) *LibraryService {
	return &LibraryService{store: store, logger: logger}
}

// ToggleFavorite pins the city in cur, or unpins it when it is already a
// favorite. Pinning stores the reading shown on screen. It reports whether
// the city is a favorite afterwards.
func (s *LibraryService) ToggleFavorite(ctx context.Context, cur weather.Current) (bool, error) {
	city := strings.TrimSpace(cur.City)
	if city == "" {
		return false, apperror.ValidationFailed("city", "search for a city first")
	}

	fav, err := s.store.IsFavorite(ctx, city)
	if err != nil {
		return false, fmt.Errorf("service/library: checking favorite %q: %w", city, err)
	}

	if fav {
		if err := s.store.RemoveFavorite(ctx, city); err != nil && !errors.Is(err, apperror.ErrNotFound) {
			return false, fmt.Errorf("service/library: removing favorite %q: %w", city, err)
		}
		s.logger.Info("favorite removed", slog.String("city", city))
		return false, nil
	}

	if err := s.store.UpsertFavorite(ctx, city, cur.RoundedTemp(), cur.Main); err != nil {
		return false, fmt.Errorf("service/library: adding favorite %q: %w", city, err)
	}
	s.logger.Info("favorite added", slog.String("city", city))
	return true, nil
}

// RemoveFavorite unpins city. An unknown city is ErrNotFound.
func (s *LibraryService) RemoveFavorite(ctx context.Context, city string) error {
	city = strings.TrimSpace(city)
	if city == "" {
		return apperror.ValidationFailed("city", "city is required")
	}
	if err := s.store.RemoveFavorite(ctx, city); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("service/library: removing favorite %q: %w", city, err)
	}
	s.logger.Info("favorite removed", slog.String("city", city))
	return nil
}

func (s *LibraryService) ListFavorites(ctx context.Context) ([]model.Favorite, error) {
	favs, err := s.store.ListFavorites(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/library: listing favorites: %w", err)
	}
	return favs, nil
}

func (s *LibraryService) ClearFavorites(ctx context.Context) error {
	if err := s.store.ClearFavorites(ctx); err != nil {
		return fmt.Errorf("service/library: clearing favorites: %w", err)
	}
	s.logger.Info("favorites cleared")
	return nil
}

// ListRecents returns the newest searches first. limit is clamped to
// 1..MaxRecents by the store.
func (s *LibraryService) ListRecents(ctx context.Context, limit int) ([]model.Recent, error) {
	recents, err := s.store.ListRecents(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("service/library: listing recents: %w", err)
	}
	return recents, nil
}

func (s *LibraryService) ClearRecents(ctx context.Context) error {
	if err := s.store.ClearRecents(ctx); err != nil {
		return fmt.Errorf("service/library: clearing recents: %w", err)
	}
	s.logger.Info("recent searches cleared")
	return nil
}
