package notify

import (
	"context"

	"github.com/desp-aas/project-management/pkg/logger"
	"go.uber.org/zap"
)

// Template selects how the notification service renders a message.
type Template string

const TemplateGeneric Template = "generic"

type Notification struct {
	Template Template `json:"template"`
	UserID   string   `json:"user_id"`
	Email    string   `json:"email"`
	Subject  string   `json:"subject"`
	Message  string   `json:"message"`
}

// Notifier delivers user notifications. Callers treat delivery as best effort.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type logNotifier struct{}

// NewLogNotifier writes notifications to the log instead of sending them.
func NewLogNotifier() Notifier { return logNotifier{} }

func (logNotifier) Notify(_ context.Context, n Notification) error {
	logger.L().Info("notification",
		zap.String("template", string(n.Template)),
		zap.String("user_id", n.UserID),
		zap.String("subject", n.Subject),
		zap.String("message", n.Message),
	)
	return nil
}
