package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/civicpulse/issue-service/internal/domain"
	"github.com/civicpulse/issue-service/internal/events"
	"github.com/civicpulse/issue-service/internal/notify"
	"github.com/civicpulse/issue-service/internal/observability"
	"github.com/civicpulse/issue-service/internal/repository"
)

// NotificationService turns issue events into emails. It runs on dispatcher
// workers, so every failure is logged and counted, never returned to a request.
type NotificationService struct {
	dispatcher events.Dispatcher
	users      repository.UserRepository
	mailer     notify.Mailer
	metrics    *observability.Metrics
	logger     *zap.Logger
	appName    string
}

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	Dispatcher events.Dispatcher
	UserRepo   repository.UserRepository
	Mailer     notify.Mailer
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	AppName    string
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		users:      deps.UserRepo,
		mailer:     deps.Mailer,
		metrics:    deps.Metrics,
		logger:     logger,
		appName:    deps.AppName,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventIssueCreated, n.handleIssueCreated)
	n.dispatcher.Subscribe(events.EventIssueStatusChanged, n.handleIssueStatusChanged)
}

func (n *NotificationService) handleIssueCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.IssueCreatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}

	reporter, err := n.users.GetByID(ctx, payload.ReporterID)
	if err != nil {
		return fmt.Errorf("load reporter: %w", err)
	}
	data := notify.IssueMailData{
		AppName:      n.appName,
		IssueID:      event.IssueID,
		Title:        payload.Title,
		Category:     payload.Category,
		Location:     payload.Location,
		ReporterName: reporter.Name,
	}

	data.RecipientName = reporter.Name
	n.deliver(ctx, event, reporter.Email, notify.IssueCreatedForReporter, data)

	admins, err := n.users.ListByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return fmt.Errorf("load admins: %w", err)
	}
	for _, admin := range admins {
		if strings.EqualFold(admin.Email, reporter.Email) {
			continue
		}
		data.RecipientName = admin.Name
		n.deliver(ctx, event, admin.Email, notify.IssueCreatedForAdmin, data)
	}
	return nil
}

func (n *NotificationService) handleIssueStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.IssueStatusChangedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}

	reporter, err := n.users.GetByID(ctx, payload.ReporterID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load reporter: %w", err)
	}
	n.deliver(ctx, event, reporter.Email, notify.IssueStatusChanged, notify.IssueMailData{
		AppName:       n.appName,
		RecipientName: reporter.Name,
		IssueID:       event.IssueID,
		Title:         payload.Title,
		OldStatus:     payload.OldStatus,
		NewStatus:     payload.NewStatus,
	})
	return nil
}

type composer func(to string, data notify.IssueMailData) (notify.Message, error)

// deliver renders and sends one email, logging failures at WARN.
func (n *NotificationService) deliver(ctx context.Context, event events.Event, to string, compose composer, data notify.IssueMailData) {
	kind := string(event.Type)
	fields := []zap.Field{
		zap.String("event_type", kind),
		zap.String("issue_id", event.IssueID),
		zap.String("recipient", to),
	}

	msg, err := compose(to, data)
	if err == nil {
		err = n.mailer.Send(ctx, msg)
	}
	if err != nil {
		n.metrics.RecordNotification(kind, "failed")
		n.logger.Warn("notification dispatch failed", append(fields, zap.Error(err))...)
		return
	}
	n.metrics.RecordNotification(kind, "sent")
	n.logger.Debug("notification sent", fields...)
}
