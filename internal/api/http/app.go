package http

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/civicpulse/issue-service/internal/config"
	"github.com/civicpulse/issue-service/internal/observability"
)

// NewApp builds the fiber application with global middleware attached.
// Routes are registered separately with RegisterRoutes.
func NewApp(cfg config.AppConfig, bodyLimit int64, logger *zap.Logger, metrics *observability.Metrics) *fiber.App {
	if logger == nil {
		logger = zap.NewNop()
	}
	fiberCfg := fiber.Config{
		AppName:               cfg.Name,
		Immutable:             true,
		DisableStartupMessage: true,
		// Errors that escape the middleware chain still get the envelope.
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return writeError(c, logger, metrics, err)
		},
	}
	// Leave headroom over the image limit for multipart framing.
	if bodyLimit > 0 {
		fiberCfg.BodyLimit = int(bodyLimit) + 64<<10
	}
	app := fiber.New(fiberCfg)
	RegisterMiddlewares(app, logger, metrics, cfg.RequestTimeout(), cfg.CORSAllowOrigins)
	return app
}
