package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/civicpulse/issue-service/internal/auth"
	"github.com/civicpulse/issue-service/internal/policy"
	"github.com/civicpulse/issue-service/internal/query"
)

// envelope is the success body shared by every endpoint.
type envelope struct {
	Status     string      `json:"status"`
	Data       any         `json:"data,omitempty"`
	Message    string      `json:"message,omitempty"`
	Results    *int        `json:"results,omitempty"`
	Pagination *query.Meta `json:"pagination,omitempty"`
}

func respond(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(envelope{Status: "success", Data: data})
}

func respondMessage(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusOK).JSON(envelope{Status: "success", Message: message})
}

// respondList writes a page of items under key with results and pagination.
func respondList[T any](c *fiber.Ctx, key string, items []T, meta *query.Meta) error {
	results := len(items)
	return c.Status(fiber.StatusOK).JSON(envelope{
		Status:     "success",
		Data:       fiber.Map{key: items},
		Results:    &results,
		Pagination: meta,
	})
}

// actor returns the policy view of the caller. Routes without the auth
// middleware get the zero actor, which the policy treats as unauthenticated.
func actor(c *fiber.Ctx) policy.Actor {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return policy.Actor{}
	}
	return principal.Actor()
}
