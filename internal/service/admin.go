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
	"github.com/sakif/weatherly/internal/session"
)

// AdminStore is the slice of the store the admin dashboard reads.
type AdminStore interface {
	repository.AccountRepository
	repository.SearchLogRepository
}

// AdminService backs the admin dashboard: the account list, per-account
// search logs, and account deletion.
//
// Every method takes the caller's identity and refuses non-admins with
// ErrForbidden. The HTTP layer checks the role too; this is the check that
// holds when a service is called from anywhere else.
type AdminService struct {
	store     AdminStore
	seedAdmin string
	logger    *slog.Logger
}

// NewAdminService builds the service. seedAdmin is the configured seed
// username. It and every stored admin account can never be deleted.
func NewAdminService(store AdminStore, seedAdmin string, logger *slog.Logger) *AdminService {
	return &AdminService{store: store, seedAdmin: seedAdmin, logger: logger}
}

// Dashboard is the admin home screen summary.
type Dashboard struct {
	TotalUsers int             `json:"totalUsers"`
	Accounts   []model.Account `json:"accounts"`
}

func (s *AdminService) Dashboard(ctx context.Context, caller session.Identity) (*Dashboard, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/admin: listing accounts: %w", err)
	}
	total, err := s.store.CountAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/admin: counting accounts: %w", err)
	}
	return &Dashboard{TotalUsers: total, Accounts: accounts}, nil
}

// AccountDetail is what "View User" shows.
type AccountDetail struct {
	Account *model.Account    `json:"account"`
	Logs    []model.SearchLog `json:"logs"`
}

// ViewAccount returns one account and its search log, newest first.
func (s *AdminService) ViewAccount(ctx context.Context, caller session.Identity, username string) (*AccountDetail, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}

	account, err := s.store.GetAccount(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/admin: loading %q: %w", username, err)
	}
	account.PasswordHash = ""

	logs, err := s.store.ListLogs(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("service/admin: loading logs for %q: %w", username, err)
	}
	return &AccountDetail{Account: account, Logs: logs}, nil
}

// ListLogs returns search logs, newest first. An empty username lists every
// account's searches.
func (s *AdminService) ListLogs(ctx context.Context, caller session.Identity, username string) ([]model.SearchLog, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	logs, err := s.store.ListLogs(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("service/admin: listing logs: %w", err)
	}
	return logs, nil
}

// DeleteAccount removes username. The seed admin and the caller's own
// account are refused with ErrForbidden. The account's search logs stay.
func (s *AdminService) DeleteAccount(ctx context.Context, caller session.Identity, username string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	username = strings.TrimSpace(username)
	switch {
	case username == "":
		return apperror.ValidationFailed("username", "username is required")
	case username == s.seedAdmin:
		return apperror.Forbidden("the built-in admin account cannot be deleted")
	case username == caller.Username:
		return apperror.Forbidden("you cannot delete your own account")
	}

	// Admin rows are only ever written by the first-run seed, so the stored
	// role identifies the seed account even after admin_username changes.
	target, err := s.store.GetAccount(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("service/admin: loading %q: %w", username, err)
	}
	if target.Role == model.RoleAdmin {
		return apperror.Forbidden("the built-in admin account cannot be deleted")
	}

	if err := s.store.DeleteAccount(ctx, username); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("service/admin: deleting %q: %w", username, err)
	}

	s.logger.Info("account deleted",
		slog.String("username", username),
		slog.String("by", caller.Username),
	)
	return nil
}

func requireAdmin(caller session.Identity) error {
	if !caller.IsAdmin() {
		return apperror.Forbidden("admin access required")
	}
	return nil
}
