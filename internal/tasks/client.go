package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/goodreads/internal/metrics"
	"github.com/mrlokans/goodreads/internal/notify"
)

// Auditor is what the queues report to: mail outcomes and audit retention.
type Auditor interface {
	notify.MailAuditor
	AuditEventCleaner
}

// Handlers are the collaborators the queue workers call. Auditor may be nil,
// in which case audit cleanup tasks fail and emails go unaudited.
type Handlers struct {
	Mailer  notify.Mailer
	Auditor Auditor
}

// Client runs the welcome email and audit cleanup queues on backlite.
type Client struct {
	backlite *backlite.Client
	db       *sql.DB
	config   Config

	mu     sync.Mutex
	cancel context.CancelFunc
}

// TasksDBPath places the queue database next to the main one with a
// "-tasks" suffix.
func TasksDBPath(mainDBPath string) string {
	ext := filepath.Ext(mainDBPath)
	return strings.TrimSuffix(mainDBPath, ext) + "-tasks" + ext
}

func tasksDSN(path string) string {
	return path + "?_journal=WAL&_timeout=5000&_busy_timeout=5000"
}

// NewClient opens the queue database and registers every queue. The queue
// always lives in SQLite, even when application data is in PostgreSQL.
func NewClient(mainDBPath string, cfg Config, h Handlers) (*Client, error) {
	db, err := sql.Open("sqlite3", tasksDSN(TasksDBPath(mainDBPath)))
	if err != nil {
		return nil, fmt.Errorf("failed to open tasks database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Workers + 5)
	db.SetMaxIdleConns(cfg.Workers + 2)
	db.SetConnMaxLifetime(time.Hour)

	bl, err := backlite.NewClient(backlite.ClientConfig{
		DB:              db,
		NumWorkers:      cfg.Workers,
		ReleaseAfter:    cfg.ReleaseAfter,
		CleanupInterval: cfg.CleanupInterval,
		Logger:          queueLogger{},
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create backlite client: %w", err)
	}
	if err := bl.Install(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to install backlite schema: %w", err)
	}

	var mailAuditor notify.MailAuditor
	var cleaner AuditEventCleaner
	if h.Auditor != nil {
		mailAuditor, cleaner = h.Auditor, h.Auditor
	}
	bl.Register(NewSendEmailQueue(h.Mailer, mailAuditor))
	bl.Register(NewCleanupAuditEventsQueue(cleaner))

	return &Client{backlite: bl, db: db, config: cfg}, nil
}

// Start launches the workers in the background. Calling it twice is a no-op.
func (c *Client) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	go c.backlite.Start(ctx)
	log.Printf("[TASK] Queue started with %d workers", c.config.Workers)
}

// Shutdown waits for running tasks until ctx expires, then releases the
// database. It reports whether every worker finished in time.
func (c *Client) Shutdown(ctx context.Context) bool {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	clean := true
	if cancel != nil {
		clean = c.backlite.Stop(ctx)
		cancel()
		if clean {
			log.Println("[TASK] Queue stopped")
		} else {
			log.Println("[TASK] Queue stopped before all tasks finished")
		}
	}

	if err := c.db.Close(); err != nil {
		log.Printf("[TASK ERROR] Closing queue database: %v", err)
	}
	return clean
}

// EnqueueEmail stores msg for delivery by the send_email queue.
func (c *Client) EnqueueEmail(ctx context.Context, msg notify.Message) (string, error) {
	return c.enqueue(ctx, SendEmailTask{Message: msg})
}

// EnqueueAuditCleanup schedules one pass of audit log retention.
func (c *Client) EnqueueAuditCleanup(ctx context.Context, retentionDays int) (string, error) {
	return c.enqueue(ctx, CleanupAuditEventsTask{RetentionDays: retentionDays})
}

func (c *Client) enqueue(ctx context.Context, task backlite.Task) (string, error) {
	ids, err := c.backlite.Add(task).Ctx(ctx).Save()
	if err == nil && len(ids) != 1 {
		err = errors.New("queue returned no task id")
	}
	metrics.RecordTaskEnqueued(task.Config().Name, err)
	if err != nil {
		return "", fmt.Errorf("enqueue %s: %w", task.Config().Name, err)
	}
	return ids[0], nil
}

// Status reports the progress of a queued task.
func (c *Client) Status(ctx context.Context, taskID string) (backlite.TaskStatus, error) {
	return c.backlite.Status(ctx, taskID)
}

// queueLogger routes backlite's messages to the standard logger.
type queueLogger struct{}

func (queueLogger) Info(message string, params ...any) {
	log.Printf("[TASK] "+message, params...)
}

func (queueLogger) Error(message string, params ...any) {
	log.Printf("[TASK ERROR] "+message, params...)
}
