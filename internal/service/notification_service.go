package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/notifier"
)

// NotificationService sends informational notices for security events. All
// delivery here is advisory and best-effort; failures are logged only.
type NotificationService struct {
	dispatcher events.Dispatcher
	notifier   notifier.Notifier
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, n notifier.Notifier, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		notifier:   n,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to security events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventUserRegistered, n.handleUserRegistered)
	n.dispatcher.Subscribe(events.EventPasswordChanged, n.handlePasswordChanged)
	n.dispatcher.Subscribe(events.EventAccountDeleted, n.handleAccountDeleted)
	n.dispatcher.Subscribe(events.EventUserLoggedIn, n.handleUserLoggedIn)
}

func (n *NotificationService) handleUserRegistered(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.UserRegisteredPayload)
	if !ok {
		return nil
	}
	n.send(ctx, payload.Email, "Welcome", "Your account was created.")
	return nil
}

func (n *NotificationService) handlePasswordChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PasswordChangedPayload)
	if !ok || payload.Email == "" {
		return nil
	}
	n.send(ctx, payload.Email, "Password changed", "Your password was changed. If this was not you, reset it immediately.")
	return nil
}

func (n *NotificationService) handleAccountDeleted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AccountDeletedPayload)
	if !ok || payload.Email == "" {
		return nil
	}
	n.send(ctx, payload.Email, "Account deleted", "Your account and data have been removed.")
	return nil
}

func (n *NotificationService) handleUserLoggedIn(_ context.Context, event events.Event) error {
	n.logger.Debug("login recorded",
		zap.String("subject_id", event.SubjectID),
		zap.String("audience", event.Audience))
	return nil
}

func (n *NotificationService) send(ctx context.Context, to, subject, body string) {
	if err := n.notifier.SendEmail(ctx, to, subject, body); err != nil {
		n.logger.Warn("notification delivery failed",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Error(err))
	}
}
