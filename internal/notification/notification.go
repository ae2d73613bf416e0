package notification

import (
	"context"
	"errors"
	"log/slog"
)

const (
	// TemplateSubscriptionExpiring is the template rendered for the N-day
	// expiry warning mail.
	TemplateSubscriptionExpiring = "subscription_expiring"
)

var (
	// ErrUnreachable indicates the transport could not be contacted.
	ErrUnreachable = errors.New("notification transport unreachable")

	// ErrRejected indicates the transport refused the message.
	ErrRejected = errors.New("notification rejected by transport")
)

// Message describes a notification payload. Context keys are template
// placeholders; the transport owns rendering.
type Message struct {
	To       string
	Template string
	Context  map[string]string
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes notifications to the
// logger. Deployments swap in a real SMTP transport behind the same
// interface.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		"to", message.To,
		"template", message.Template,
		"context", message.Context,
	)
	return nil
}
