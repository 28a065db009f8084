package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/weatherly/internal/apperror"
	"github.com/sakif/weatherly/internal/auth"
	"github.com/sakif/weatherly/internal/model"
	"github.com/sakif/weatherly/internal/repository"
	"github.com/sakif/weatherly/internal/session"
)

// AuthService owns the login state of the process.
//
//	AuthHandler (HTTP) → AuthService → AccountRepository (DB)
//	                                 ↘ PasswordHasher
//	                                 ↘ session.Session (who is logged in)
//
// It is the only code that calls session.Begin and session.End.
type AuthService struct {
	accounts repository.AccountRepository
	hasher   auth.PasswordHasher
	session  *session.Session
	logger   *slog.Logger
}

func NewAuthService(
	accounts repository.AccountRepository,
	hasher auth.PasswordHasher,
	sess *session.Session,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		accounts: accounts,
		hasher:   hasher,
		session:  sess,
		logger:   logger,
	}
}

// SeedAccount hashes the configured admin credential into the account that
// repository Initialize inserts on first run.
func SeedAccount(hasher auth.PasswordHasher, username, password string) (model.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return model.Account{}, errors.New("service/auth: seed admin needs a username and a password")
	}

	hash, err := hasher.Hash(password)
	if err != nil {
		return model.Account{}, fmt.Errorf("service/auth: hashing seed password: %w", err)
	}
	return model.Account{Username: username, PasswordHash: hash, Role: model.RoleAdmin}, nil
}

type registerInput struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
	Confirm  string `validate:"required"`
}

var registerMessages = map[string]string{
	"Username": "all fields are required",
	"Password": "all fields are required",
	"Confirm":  "all fields are required",
}

// Register creates an ordinary user account and logs it in.
//
// All three fields are trimmed first. Errors, in the order they are checked:
//   - any field empty          → ErrValidation "all fields are required"
//   - password ≠ confirmation  → ErrValidation "passwords do not match"
//   - username already exists  → ErrConflict "username already taken"
//
// On any error the session is left exactly as it was.
func (s *AuthService) Register(ctx context.Context, username, password, confirm string) (session.Identity, error) {
	in := registerInput{
		Username: strings.TrimSpace(username),
		Password: strings.TrimSpace(password),
		Confirm:  strings.TrimSpace(confirm),
	}
	if err := validate.Struct(in); err != nil {
		return session.Identity{}, validationError(err, registerMessages)
	}
	if in.Password != in.Confirm {
		return session.Identity{}, apperror.ValidationFailed("confirm", "passwords do not match")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		// bcrypt's 72-byte limit is the only realistic cause.
		return session.Identity{}, apperror.ValidationFailed("password", err.Error())
	}

	account := &model.Account{Username: in.Username, PasswordHash: hash, Role: model.RoleUser}
	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return session.Identity{}, err
		}
		s.logger.Error("registration failed",
			slog.String("username", in.Username),
			slog.String("error", err.Error()),
		)
		return session.Identity{}, fmt.Errorf("service/auth: registering %q: %w", in.Username, err)
	}

	id := session.Identity{Username: account.Username, Role: account.Role}
	s.session.Begin(id)

	s.logger.Info("account registered", slog.String("username", id.Username))
	return id, nil
}

type loginInput struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

var loginMessages = map[string]string{
	"Username": "please fill in all fields",
	"Password": "please fill in all fields",
}

// Login checks a credential and makes it the current session.
//
// Every mismatch (unknown user, wrong password) returns the same
// apperror.InvalidCredentials, so the UI cannot tell which part was wrong.
//
// Deterministic hashers go through the store's exact (username, hash) match.
// Salted hashers load the stored hash and let the hasher compare it.
func (s *AuthService) Login(ctx context.Context, username, password string) (session.Identity, error) {
	in := loginInput{
		Username: strings.TrimSpace(username),
		Password: strings.TrimSpace(password),
	}
	if err := validate.Struct(in); err != nil {
		return session.Identity{}, validationError(err, loginMessages)
	}

	role, err := s.verify(ctx, in.Username, in.Password)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) || errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Info("login rejected", slog.String("username", in.Username))
			return session.Identity{}, apperror.InvalidCredentials()
		}
		s.logger.Error("login failed",
			slog.String("username", in.Username),
			slog.String("error", err.Error()),
		)
		return session.Identity{}, fmt.Errorf("service/auth: logging in %q: %w", in.Username, err)
	}

	id := session.Identity{Username: in.Username, Role: role}
	s.session.Begin(id)

	s.logger.Info("logged in", slog.String("username", id.Username), slog.String("role", string(id.Role)))
	return id, nil
}

func (s *AuthService) verify(ctx context.Context, username, password string) (model.Role, error) {
	if d, ok := s.hasher.(auth.Digester); ok {
		return s.accounts.VerifyAccount(ctx, username, d.Digest(password))
	}

	account, err := s.accounts.GetAccount(ctx, username)
	if err != nil {
		return "", err
	}
	if err := s.hasher.Verify(account.PasswordHash, password); err != nil {
		// A stored hash this hasher cannot read (a digest left over from
		// before a scheme switch) is still just a failed login to the caller.
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn("stored password hash not verifiable",
				slog.String("username", username),
				slog.String("error", err.Error()),
			)
		}
		return "", auth.ErrPasswordMismatch
	}
	return account.Role, nil
}

// Logout clears the session unconditionally and returns who was logged in.
func (s *AuthService) Logout() (session.Identity, bool) {
	prev, ok := s.session.End()
	if ok {
		s.logger.Info("logged out", slog.String("username", prev.Username))
	}
	return prev, ok
}

// Current returns the logged-in identity, if any.
func (s *AuthService) Current() (session.Identity, bool) {
	return s.session.Current()
}
