package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/civicpulse/issue-service/internal/api/dto"
	"github.com/civicpulse/issue-service/internal/domain"
	"github.com/civicpulse/issue-service/internal/query"
	"github.com/civicpulse/issue-service/internal/service"
	apperrors "github.com/civicpulse/issue-service/pkg/util/errorutil"
)

// binder couples handlers with the request validator.
type binder struct {
	validator *dto.Validator
}

func newBinder(v *dto.Validator) binder {
	if v == nil {
		v = dto.NewValidator()
	}
	return binder{validator: v}
}

type normalizer interface {
	Normalize()
}

// bind parses the JSON body into req, trims it and runs struct validation.
func (v binder) bind(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if n, ok := req.(normalizer); ok {
		n.Normalize()
	}
	return v.validator.Struct(req)
}

func parsePage(c *fiber.Ctx) query.Page {
	return query.ParsePage(c.Query("page"), c.Query("limit"))
}

// parseIssueQuery reads status, category, page and limit. Unknown enum values
// are rejected rather than silently ignored.
func parseIssueQuery(c *fiber.Ctx) (service.IssueListFilter, error) {
	filter := service.IssueListFilter{Page: parsePage(c)}
	details := map[string]any{}

	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := domain.IssueStatus(strings.ToUpper(raw))
		if !status.Valid() {
			details["status"] = "unknown status"
		}
		filter.Status = &status
	}
	if raw := strings.TrimSpace(c.Query("category")); raw != "" {
		category := domain.IssueCategory(strings.ToUpper(raw))
		if !category.Valid() {
			details["category"] = "unknown category"
		}
		filter.Category = &category
	}
	if len(details) > 0 {
		return filter, apperrors.NewValidationError("invalid query", details)
	}
	return filter, nil
}

func parseUserQuery(c *fiber.Ctx) (service.UserListFilter, error) {
	filter := service.UserListFilter{Page: parsePage(c)}
	if raw := strings.TrimSpace(c.Query("role")); raw != "" {
		role := domain.Role(strings.ToUpper(raw))
		if !role.Valid() {
			return filter, apperrors.NewValidationError("invalid query", map[string]any{"role": "unknown role"})
		}
		filter.Role = &role
	}
	return filter, nil
}
