package tasks

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/goodreads/internal/config"
	"github.com/mrlokans/goodreads/internal/entities"
	"github.com/mrlokans/goodreads/internal/notify"
)

type fakeAuditor struct {
	cleaned chan time.Duration
}

func (a *fakeAuditor) LogMail(uint, string, string, error) {}

func (a *fakeAuditor) DeleteOldEvents(retention time.Duration) (int64, error) {
	a.cleaned <- retention
	return 0, nil
}

func newTestClient(t *testing.T, h Handlers) *Client {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(filepath.Join(t.TempDir(), "goodreads.db"), cfg, h)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		client.Shutdown(ctx)
	})
	return client
}

func TestNewClient_CreatesQueueDatabase(t *testing.T) {
	dir := t.TempDir()
	client, err := NewClient(filepath.Join(dir, "goodreads.db"), DefaultConfig(), Handlers{Mailer: notify.LogMailer{}})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "goodreads-tasks.db"))
	assert.NoError(t, err)

	assert.True(t, client.Shutdown(context.Background()), "shutdown without start is clean")
}

func TestClient_StartTwiceThenShutdown(t *testing.T) {
	client := newTestClient(t, Handlers{Mailer: notify.LogMailer{}})

	client.Start()
	client.Start()
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.True(t, client.Shutdown(ctx))
}

func TestClient_DeliversWelcomeEmail(t *testing.T) {
	mailer := &recordingMailer{sent: make(chan notify.Message, 1)}
	client := newTestClient(t, Handlers{Mailer: mailer})
	client.Start()

	notifier := notify.NewWelcomeNotifier(NewEmailQueue(client))
	require.NoError(t, notifier.UserRegistered(&entities.User{ID: 1, FirstName: "Alice", Email: "alice@example.com"}))

	select {
	case msg := <-mailer.sent:
		assert.Equal(t, "alice@example.com", msg.To)
		assert.Equal(t, notify.WelcomeSubject, msg.Subject)
		assert.Contains(t, msg.Body, "Hello Alice")
	case <-time.After(5 * time.Second):
		t.Fatal("email was not delivered within timeout")
	}
}

func TestClient_EnqueueAuditCleanup(t *testing.T) {
	auditor := &fakeAuditor{cleaned: make(chan time.Duration, 1)}
	client := newTestClient(t, Handlers{Mailer: notify.LogMailer{}, Auditor: auditor})
	client.Start()

	id, err := client.EnqueueAuditCleanup(context.Background(), 7)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	select {
	case retention := <-auditor.cleaned:
		assert.Equal(t, 7*24*time.Hour, retention)
	case <-time.After(5 * time.Second):
		t.Fatal("cleanup did not run within timeout")
	}
}

func TestClient_StatusOfQueuedTask(t *testing.T) {
	client := newTestClient(t, Handlers{Mailer: notify.LogMailer{}})

	id, err := client.EnqueueEmail(context.Background(), notify.Message{Kind: notify.KindWelcome, To: "bob@example.com"})
	require.NoError(t, err)

	_, err = client.Status(context.Background(), id)
	assert.NoError(t, err)
}

func TestTasksDBPath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "goodreads-tasks.db"), TasksDBPath(filepath.Join("data", "goodreads.db")))
	assert.Equal(t, "goodreads-tasks", TasksDBPath("goodreads"))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, time.Minute, cfg.TaskTimeout)
	assert.Equal(t, 15*time.Minute, cfg.ReleaseAfter)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.Tasks{Workers: 4, CleanupInterval: time.Minute})

	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, time.Minute, cfg.CleanupInterval)
	assert.Equal(t, DefaultConfig().ReleaseAfter, cfg.ReleaseAfter)
}
