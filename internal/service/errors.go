package service

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/civicpulse/issue-service/internal/repository"
	apperrors "github.com/civicpulse/issue-service/pkg/util/errorutil"
)

// notFoundOr maps the repository not-found sentinel to a NOT_FOUND domain error.
func notFoundOr(err error, resource, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return err
}

// fieldErrors collects per-field validation messages.
type fieldErrors map[string]any

func (f fieldErrors) text(field, value string, max int) {
	switch {
	case strings.TrimSpace(value) == "":
		f[field] = "is required"
	case utf8.RuneCountInString(value) > max:
		f[field] = "is too long"
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return apperrors.NewValidationError("validation failed", f)
}
