// Package repository declares the persistence contracts the services depend on.
//
// The services only ever see these interfaces. The SQLite implementation lives
// in repository/sqlite; tests in the service package use in-memory fakes.
package repository

import (
	"context"

	"github.com/sakif/weatherly/internal/model"
)

// MaxRecents is the size of the global recent-search history.
const MaxRecents = 20

type AccountRepository interface {
	// CreateAccount inserts a new account. A taken username yields
	// apperror.ErrConflict and leaves the existing row untouched.
	CreateAccount(ctx context.Context, account *model.Account) error
	// VerifyAccount matches username and hash exactly and returns the stored
	// role, or apperror.ErrNotFound.
	VerifyAccount(ctx context.Context, username, passwordHash string) (model.Role, error)
	GetAccount(ctx context.Context, username string) (*model.Account, error)
	ListAccounts(ctx context.Context) ([]model.Account, error)
	CountAccounts(ctx context.Context) (int, error)
	DeleteAccount(ctx context.Context, username string) error
}

type FavoriteRepository interface {
	UpsertFavorite(ctx context.Context, city string, temp int, condition string) error
	RemoveFavorite(ctx context.Context, city string) error
	IsFavorite(ctx context.Context, city string) (bool, error)
	ListFavorites(ctx context.Context) ([]model.Favorite, error)
	ClearFavorites(ctx context.Context) error
}

type RecentRepository interface {
	// AddRecent inserts a row and prunes the table back to MaxRecents.
	AddRecent(ctx context.Context, city string, temp int) error
	ListRecents(ctx context.Context, limit int) ([]model.Recent, error)
	ClearRecents(ctx context.Context) error
}

type SearchLogRepository interface {
	LogSearch(ctx context.Context, username, city string, temp int) error
	// ListLogs returns newest first. An empty username lists every account.
	ListLogs(ctx context.Context, username string) ([]model.SearchLog, error)
}

type SettingsRepository interface {
	GetSettings(ctx context.Context) (model.Settings, error)
	SaveSettings(ctx context.Context, settings model.Settings) error
}

// Store is everything the application persists.
type Store interface {
	AccountRepository
	FavoriteRepository
	RecentRepository
	SearchLogRepository
	SettingsRepository
}
