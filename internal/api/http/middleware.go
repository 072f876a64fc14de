package http

import (
	"context"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/civicpulse/issue-service/internal/auth"
	"github.com/civicpulse/issue-service/internal/observability"
	"github.com/civicpulse/issue-service/internal/ratelimit"
	apperrors "github.com/civicpulse/issue-service/pkg/util/errorutil"
)

// RegisterMiddlewares attaches global middlewares. The request logger runs
// outermost so it sees the status written by the error middleware.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration, allowOrigins string) {
	app.Use(requestid.New())
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(errorHandlingMiddleware(logger, metrics))
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				err = writeError(c, logger, metrics, err)
			}
		}()
		return c.Next()
	}
}

// writeError renders err as the error envelope. Internal causes are logged, never returned.
func writeError(c *fiber.Ctx, logger *zap.Logger, metrics *observability.Metrics, err error) error {
	domainErr := apperrors.ToDomainError(err)
	metrics.RecordError(observability.RouteLabel(c), c.Method(), domainErr.Code)

	message := domainErr.Message
	if domainErr.HTTPStatus >= fiber.StatusInternalServerError {
		fields := []zap.Field{
			zap.String("code", domainErr.Code),
			zap.String("path", c.Path()),
			zap.Error(domainErr),
		}
		if rid, ok := c.Locals("requestid").(string); ok {
			fields = append(fields, zap.String("request_id", rid))
		}
		logger.Error("request failed", fields...)
		if domainErr.Code == apperrors.CodeInternal {
			message = "internal server error"
		}
	}

	response := fiber.Map{
		"status":  "error",
		"code":    domainErr.Code,
		"message": message,
	}
	if len(domainErr.Details) > 0 {
		response["errors"] = domainErr.Details
	}
	return c.Status(domainErr.HTTPStatus).JSON(response)
}

// issueQuota caps issue creation per user. Redis failures let the request through.
func issueQuota(limiter *ratelimit.Limiter, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !limiter.Enabled() {
			return c.Next()
		}
		principal, ok := auth.PrincipalFromContext(c)
		if !ok {
			return c.Next()
		}

		res, err := limiter.Allow(c.UserContext(), principal.ID)
		if err != nil {
			logger.Warn("issue quota check failed", zap.String("user_id", principal.ID), zap.Error(err))
			return c.Next()
		}
		if !res.Allowed {
			retryAfter := int(res.RetryAfter.Round(time.Second) / time.Second)
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
			return apperrors.NewRateLimited("daily issue limit reached", map[string]any{
				"limit":      res.Limit,
				"retryAfter": retryAfter,
			})
		}
		return c.Next()
	}
}
