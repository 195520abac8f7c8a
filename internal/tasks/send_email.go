package tasks

import (
	"context"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/goodreads/internal/notify"
)

// SendEmailTask delivers one queued email.
type SendEmailTask struct {
	Message notify.Message `json:"message"`
}

// Config returns the queue configuration for email tasks. Delivery is tried
// once; a failed email is logged and kept for inspection, never retried.
func (t SendEmailTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "send_email",
		MaxAttempts: 1,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   72 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// SendEmailProcessor creates a processor function for SendEmailTask.
func SendEmailProcessor(mailer notify.Mailer, auditor notify.MailAuditor) backlite.QueueProcessor[SendEmailTask] {
	return func(ctx context.Context, task SendEmailTask) error {
		return notify.Deliver(ctx, mailer, auditor, task.Message)
	}
}

// NewSendEmailQueue creates a backlite queue for email tasks.
func NewSendEmailQueue(mailer notify.Mailer, auditor notify.MailAuditor) backlite.Queue {
	return backlite.NewQueue(SendEmailProcessor(mailer, auditor))
}

// EmailQueue enqueues emails on the task queue. It satisfies notify.Queue.
type EmailQueue struct {
	client *Client
}

func NewEmailQueue(client *Client) *EmailQueue {
	return &EmailQueue{client: client}
}

func (q *EmailQueue) Enqueue(msg notify.Message) error {
	_, err := q.client.EnqueueEmail(context.Background(), msg)
	return err
}
