package tasks

import (
	"context"
	"encoding/json"

	"github.com/desp-aas/project-management/internal/notify"
	appErr "github.com/desp-aas/project-management/pkg/errors"
	"github.com/desp-aas/project-management/pkg/logger"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type queueNotifier struct {
	enq Enqueuer
}

// NewQueueNotifier publishes notifications for the mail service to consume.
func NewQueueNotifier(enq Enqueuer) notify.Notifier {
	return &queueNotifier{enq: enq}
}

func (q *queueNotifier) Notify(ctx context.Context, n notify.Notification) error {
	pb, err := json.Marshal(n)
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "encode notification failed")
	}
	info, err := q.enq.EnqueueContext(ctx, asynq.NewTask(TypeNotificationSend, pb), asynq.Queue(QueueNotifications))
	if err != nil {
		return appErr.Wrap(err, appErr.CodeUnavailable, "enqueue notification failed")
	}
	logger.L().Debug("notification enqueued", zap.String("task_id", info.ID), zap.String("subject", n.Subject))
	return nil
}
