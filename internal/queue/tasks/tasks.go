package tasks

import (
	"context"

	"github.com/hibiken/asynq"
)

const (
	TypeProjectDelete    = "project:delete"
	TypeNotificationSend = "notification:send"

	QueueDefault       = "default"
	QueueNotifications = "notifications"
)

// Enqueuer is the producing side of asynq. *asynq.Client satisfies it.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

var _ Enqueuer = (*asynq.Client)(nil)
