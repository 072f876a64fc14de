package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/civicpulse/issue-service/internal/policy"
	apperrors "github.com/civicpulse/issue-service/pkg/util/errorutil"
)

// Require gates routes whose action does not depend on a loaded resource,
// such as listing users. Ownership-scoped actions are enforced in services
// after the resource has been found.
func Require(action policy.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthenticated("authentication required")
		}
		if err := policy.Enforce(principal.Actor(), action, ""); err != nil {
			return err
		}
		return c.Next()
	}
}
