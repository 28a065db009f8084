// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses, fires screen events
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes the SQLite file
//
// Services never see HTTP and never see SQL. That keeps every rule here
// testable with plain function calls and the in-memory fakes in the _test
// files.
//
// THE SERVICES:
//
//	AuthService     → register, login, logout against the process session
//	WeatherService  → city search, history side effects, stale-result guard
//	LibraryService  → favorites and recent searches
//	SettingsService → unit and dynamic-background preferences
//	AdminService    → account management and search logs (admin only)
//
// ERRORS:
// Anything a user should read comes back as an *apperror.AppError. Anything
// else is wrapped with a "service/<name>:" prefix, logged, and shown to the
// user as a generic failure by the handler.
package service

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/weatherly/internal/apperror"
)

// validate is shared by every service. A *validator.Validate caches struct
// metadata and is safe for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

// validationError turns the first failed rule into an AppError. messages maps
// a struct field name to the text the user sees.
func validationError(err error, messages map[string]string) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	first := fieldErrs[0]
	msg, ok := messages[first.Field()]
	if !ok {
		msg = strings.ToLower(first.Field()) + " is invalid"
	}
	return apperror.ValidationFailed(strings.ToLower(first.Field()), msg)
}
