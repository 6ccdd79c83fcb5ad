// Package notifier defines the outbound delivery capability the auth core
// depends on. Delivery is fire-and-forget: callers log failures and never
// propagate them into verification or session state.
package notifier

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/config"
)

// Notifier delivers verification secrets and security notices out-of-band.
type Notifier interface {
	SendEmail(ctx context.Context, to, subject, body string) error
	SendSMS(ctx context.Context, to, message string) error
}

// LogNotifier is the stub implementation: it records what would have been
// sent. A real mail/SMS integration replaces it at the process entry point.
type LogNotifier struct {
	logger *zap.Logger
	cfg    config.NotificationConfig
}

// NewLogNotifier builds the stub.
func NewLogNotifier(logger *zap.Logger, cfg config.NotificationConfig) *LogNotifier {
	return &LogNotifier{logger: logger, cfg: cfg}
}

func (n *LogNotifier) SendEmail(_ context.Context, to, subject, body string) error {
	n.logger.Info("sendEmail",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_len", len(body)))
	return nil
}

func (n *LogNotifier) SendSMS(_ context.Context, to, message string) error {
	n.logger.Info("sendSMS",
		zap.String("from", n.cfg.SMSFrom),
		zap.String("to", to),
		zap.Int("message_len", len(message)))
	return nil
}
