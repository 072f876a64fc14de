package worker

import (
	"go.uber.org/zap"

	"github.com/civicpulse/issue-service/internal/events"
	"github.com/civicpulse/issue-service/internal/service"
)

// NotificationWorkerConfig wires the subscribers started on the dispatcher.
type NotificationWorkerConfig struct {
	Dispatcher    *events.AsyncDispatcher
	Notifications *service.NotificationService
	// Forwarder is optional; nil when AMQP is not configured.
	Forwarder *events.AMQPForwarder
	Workers   int
	Logger    *zap.Logger
}

// StartNotificationWorker registers notification handlers and starts the dispatcher pool.
// Subscriptions must be in place before Start so no early event misses a handler.
func StartNotificationWorker(cfg NotificationWorkerConfig) {
	if cfg.Dispatcher == nil {
		return
	}
	if cfg.Notifications != nil {
		cfg.Notifications.RegisterHandlers()
	}
	if cfg.Forwarder != nil {
		cfg.Forwarder.Register(cfg.Dispatcher)
	}
	cfg.Dispatcher.Start(cfg.Workers)
	if cfg.Logger != nil {
		cfg.Logger.Info("notification workers started",
			zap.Int("workers", cfg.Workers),
			zap.Bool("amqp_forwarding", cfg.Forwarder != nil))
	}
}
