package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"

	"github.com/civicpulse/issue-service/internal/api/http/handlers"
	"github.com/civicpulse/issue-service/internal/auth"
	"github.com/civicpulse/issue-service/internal/observability"
	"github.com/civicpulse/issue-service/internal/policy"
	"github.com/civicpulse/issue-service/internal/ratelimit"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Issues         *handlers.IssuesHandler
	Comments       *handlers.CommentsHandler
	Users          *handlers.UsersHandler
	Uploads        *handlers.UploadsHandler
	AuthMiddleware *auth.AuthMiddleware
	// IssueQuota is optional; nil disables the per-user creation limit.
	IssueQuota *ratelimit.Limiter
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	requireAuth := cfg.AuthMiddleware.Handle

	if cfg.Health != nil {
		app.Get("/health/live", cfg.Health.Live)
		app.Get("/health/ready", cfg.Health.Ready)
	}
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/me", requireAuth, cfg.Auth.Me)

	issues := api.Group("/issues")
	issues.Get("/", cfg.Issues.List)
	issues.Get("/:id", cfg.Issues.Get)
	issues.Post("/", requireAuth, issueQuota(cfg.IssueQuota, logger), cfg.Issues.Create)
	issues.Put("/:id", requireAuth, cfg.Issues.Update)
	issues.Delete("/:id", requireAuth, cfg.Issues.Delete)
	issues.Post("/:id/upvote", requireAuth, cfg.Issues.Upvote)
	issues.Get("/:id/history", cfg.Issues.History)
	issues.Get("/:id/comments", cfg.Comments.List)
	issues.Post("/:id/comments", requireAuth, cfg.Comments.Add)
	issues.Delete("/:id/comments/:commentId", requireAuth, cfg.Comments.Delete)

	users := api.Group("/users", requireAuth)
	users.Get("/", auth.Require(policy.ActionListUsers), cfg.Users.List)
	users.Get("/:id", cfg.Users.Get)
	users.Put("/:id", cfg.Users.Update)
	users.Get("/:id/issues", cfg.Users.Issues)
	users.Put("/:id/role", cfg.Users.ChangeRole)

	if cfg.Uploads != nil {
		api.Post("/uploads", requireAuth, cfg.Uploads.Upload)
	}
}
