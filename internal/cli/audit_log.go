package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mrlokans/goodreads/internal/audit"
	"github.com/mrlokans/goodreads/internal/config"
	auditrepo "github.com/mrlokans/goodreads/internal/database/audit"
	"github.com/mrlokans/goodreads/internal/entities"
)

// AuditLogCommand prints recent audit events, newest first.
type AuditLogCommand struct {
	Filter   auditrepo.EventFilter
	Limit    int
	Database databaseFlags

	Out io.Writer
}

func NewAuditLogCommand() *AuditLogCommand {
	return &AuditLogCommand{Out: os.Stdout}
}

func (cmd *AuditLogCommand) ParseFlags(args []string, defaults *config.Config) error {
	fs := flag.NewFlagSet("audit-log", flag.ExitOnError)

	userID := fs.Uint("user", 0, "Only events by this user ID")
	eventType := fs.String("type", "", "Only this event type: auth, account, review, book or mail")
	failed := fs.Bool("failed", false, "Only failed operations")
	since := fs.Duration("since", 0, "Only events newer than this, e.g. 24h")
	fs.StringVar(&cmd.Filter.Action, "action", "", "Only this action, e.g. review_delete")
	fs.IntVar(&cmd.Limit, "limit", 50, "Maximum number of events")
	cmd.Database.register(fs, defaults.Database)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s audit-log [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if t := entities.AuditEventType(*eventType); t != "" && !t.Valid() {
		return fmt.Errorf("unknown event type %q", *eventType)
	}
	cmd.Filter.EventType = entities.AuditEventType(*eventType)
	if cmd.Limit <= 0 {
		return fmt.Errorf("-limit must be positive")
	}

	cmd.Filter.UserID = *userID
	if *failed {
		cmd.Filter.Status = entities.AuditStatusFailed
	}
	if *since > 0 {
		cmd.Filter.Since = time.Now().Add(-*since)
	}
	return nil
}

func (cmd *AuditLogCommand) Run() error {
	db, err := cmd.Database.open()
	if err != nil {
		return err
	}
	defer db.Close()

	events, total, err := audit.NewService(auditrepo.NewRepository(db.DB)).ListEvents(cmd.Filter, cmd.Limit, 0)
	if err != nil {
		return fmt.Errorf("failed to list audit events: %w", err)
	}

	for _, e := range events {
		entity := ""
		if e.EntityID != nil {
			entity = fmt.Sprintf(" %s#%d", e.EntityType, *e.EntityID)
		}
		line := fmt.Sprintf("%s  user=%d  %-8s %-16s %s%s",
			e.CreatedAt.Format(time.DateTime), e.UserID, e.EventType, e.Action, e.Status, entity)
		if e.Description != "" {
			line += "  " + e.Description
		}
		if e.ErrorMsg != "" {
			line += "  error: " + e.ErrorMsg
		}
		fmt.Fprintln(cmd.Out, line)
	}
	fmt.Fprintf(cmd.Out, "Showing %d of %d events\n", len(events), total)
	return nil
}
