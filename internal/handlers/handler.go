// Package handlers holds the HTML views. Read views render a template with a
// page context; write views validate a form, then redirect on success or
// re-render the form with field errors.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/anonto42/yatube/internal/middleware"
	"github.com/anonto42/yatube/internal/models"
	"github.com/anonto42/yatube/internal/repositories"
	"github.com/labstack/echo/v4"
)

// Form carries submitted values and per-field error messages to a template.
type Form struct {
	Values map[string]string
	Errors map[string]string
}

func newForm() *Form {
	return &Form{Values: map[string]string{}, Errors: map[string]string{}}
}

func (f *Form) Valid() bool { return len(f.Errors) == 0 }

// AddError records msg for field unless the field already has an error.
func (f *Form) AddError(field, msg string) {
	if _, ok := f.Errors[field]; !ok {
		f.Errors[field] = msg
	}
}

func currentUser(c echo.Context) *models.User {
	return middleware.CurrentUser(c)
}

// paramID parses a numeric route parameter. Anything else is a 404, the same
// as an unknown id.
func paramID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusNotFound, "Not found")
	}
	return uint(id), nil
}

// lookupError turns a repository error into an HTTP error.
func lookupError(err error, what string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, what+" not found")
	}
	return fmt.Errorf("load %s: %w", what, err)
}
