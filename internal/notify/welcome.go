package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mrlokans/goodreads/internal/entities"
)

const (
	KindWelcome    = "welcome"
	WelcomeSubject = "Welcome to Goodreads Clone website"
)

// WelcomeMessage builds the greeting sent after registration. ok is false
// for users without an email address.
func WelcomeMessage(user *entities.User) (msg Message, ok bool) {
	if user.Email == "" {
		return Message{}, false
	}
	return Message{
		Kind:    KindWelcome,
		UserID:  user.ID,
		To:      user.Email,
		Subject: WelcomeSubject,
		Body: fmt.Sprintf("Hello %s, welcome to Goodreads Clone website. We hope you enjoy our website.",
			user.FirstName),
	}, true
}

// Queue hands a message off for delivery without waiting for it.
type Queue interface {
	Enqueue(msg Message) error
}

// WelcomeNotifier queues the welcome email for every new account.
type WelcomeNotifier struct {
	queue Queue
}

func NewWelcomeNotifier(queue Queue) *WelcomeNotifier {
	return &WelcomeNotifier{queue: queue}
}

// UserRegistered enqueues the welcome email. Users without an email are
// skipped.
func (n *WelcomeNotifier) UserRegistered(user *entities.User) error {
	msg, ok := WelcomeMessage(user)
	if !ok {
		return nil
	}
	return n.queue.Enqueue(msg)
}

// GoroutineQueue delivers each message on its own goroutine. It is used when
// the persistent task queue is disabled; messages in flight at exit are lost.
type GoroutineQueue struct {
	mailer  Mailer
	auditor MailAuditor
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewGoroutineQueue(mailer Mailer, auditor MailAuditor, timeout time.Duration) *GoroutineQueue {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &GoroutineQueue{mailer: mailer, auditor: auditor, timeout: timeout}
}

func (q *GoroutineQueue) Enqueue(msg Message) error {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		defer cancel()
		_ = Deliver(ctx, q.mailer, q.auditor, msg)
	}()
	return nil
}

// Wait blocks until every queued message has been attempted.
func (q *GoroutineQueue) Wait() {
	q.wg.Wait()
}
