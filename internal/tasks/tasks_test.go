package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/goodreads/internal/notify"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent chan notify.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg notify.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent <- msg
	return m.err
}

type fakeCleaner struct {
	retention time.Duration
	err       error
}

func (c *fakeCleaner) DeleteOldEvents(retention time.Duration) (int64, error) {
	c.retention = retention
	return 3, c.err
}

func TestSendEmailTaskConfig(t *testing.T) {
	cfg := SendEmailTask{}.Config()

	assert.Equal(t, "send_email", cfg.Name)
	assert.Equal(t, 1, cfg.MaxAttempts, "emails are never retried")
	assert.NotNil(t, cfg.Retention)
}

func TestSendEmailProcessor(t *testing.T) {
	mailer := &recordingMailer{sent: make(chan notify.Message, 1)}
	process := SendEmailProcessor(mailer, nil)

	msg := notify.Message{Kind: notify.KindWelcome, To: "alice@example.com", Subject: notify.WelcomeSubject}
	require.NoError(t, process(context.Background(), SendEmailTask{Message: msg}))
	assert.Equal(t, msg, <-mailer.sent)

	mailer.err = errors.New("smtp down")
	assert.Error(t, process(context.Background(), SendEmailTask{Message: msg}))
}

func TestCleanupAuditEventsTaskConfig(t *testing.T) {
	cfg := CleanupAuditEventsTask{RetentionDays: 30}.Config()

	assert.Equal(t, "cleanup_audit_events", cfg.Name)
	assert.Equal(t, 1, cfg.MaxAttempts)
}

func TestCleanupAuditEventsProcessor(t *testing.T) {
	cleaner := &fakeCleaner{}
	process := CleanupAuditEventsProcessor(cleaner)

	require.NoError(t, process(context.Background(), CleanupAuditEventsTask{RetentionDays: 30}))
	assert.Equal(t, 30*24*time.Hour, cleaner.retention)

	require.NoError(t, process(context.Background(), CleanupAuditEventsTask{}))
	assert.Equal(t, DefaultAuditRetentionDays*24*time.Hour, cleaner.retention)

	cleaner.err = errors.New("locked")
	assert.Error(t, process(context.Background(), CleanupAuditEventsTask{RetentionDays: 1}))

	assert.Error(t, CleanupAuditEventsProcessor(nil)(context.Background(), CleanupAuditEventsTask{}))
}

func TestCleanupAuditEventsTaskRetention(t *testing.T) {
	assert.Equal(t, 14*24*time.Hour, CleanupAuditEventsTask{RetentionDays: 14}.Retention())
	assert.Equal(t, DefaultAuditRetentionDays*24*time.Hour, CleanupAuditEventsTask{RetentionDays: -1}.Retention())
}

func TestCleanupAuditEventsProcessorHonoursCancellation(t *testing.T) {
	cleaner := &fakeCleaner{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := CleanupAuditEventsProcessor(cleaner)(ctx, CleanupAuditEventsTask{RetentionDays: 1})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, cleaner.retention)
}
