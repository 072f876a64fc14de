package observability

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// RequestLogger logs every request once after the rest of the chain has run
// and feeds the request metrics. It must sit outside the error middleware so
// the final status code is visible.
func RequestLogger(logger *zap.Logger, metrics *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		metrics.InFlight(1)
		err := c.Next()
		metrics.InFlight(-1)
		duration := time.Since(start)

		status := c.Response().StatusCode()
		route := RouteLabel(c)
		metrics.RecordRequest(route, c.Method(), status, duration)

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", duration),
			zap.String("ip", c.IP()),
		}
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			fields = append(fields, zap.String("request_id", rid))
		}
		logger.Info("http request", fields...)
		return err
	}
}

// RouteLabel returns the matched route pattern so ids do not explode label cardinality.
func RouteLabel(c *fiber.Ctx) string {
	if r := c.Route(); r != nil && r.Path != "" && r.Path != "/" {
		return r.Path
	}
	return "unmatched"
}
