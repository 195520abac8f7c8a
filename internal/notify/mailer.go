// Package notify sends transactional email.
package notify

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/mrlokans/goodreads/internal/config"
	"github.com/mrlokans/goodreads/internal/metrics"
)

// Message is a plain-text email to a single recipient.
type Message struct {
	Kind    string `json:"kind"`
	UserID  uint   `json:"user_id"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Mailer delivers one message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NewMailer returns an SMTP mailer, or a LogMailer when no SMTP host is
// configured.
func NewMailer(cfg config.Mail) Mailer {
	if cfg.SMTPHost == "" {
		log.Printf("[MAIL] SMTP host not configured, emails will be logged only")
		return LogMailer{}
	}
	return NewSMTPMailer(cfg)
}

// SMTPMailer sends through an SMTP relay, authenticating with PLAIN auth
// when a username is set.
type SMTPMailer struct {
	addr string
	from string
	auth smtp.Auth
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg config.Mail) *SMTPMailer {
	m := &SMTPMailer{
		addr: cfg.SMTPHost + ":" + strconv.Itoa(cfg.SMTPPort),
		from: cfg.From,
		send: smtp.SendMail,
	}
	if cfg.Username != "" {
		m.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.SMTPHost)
	}
	return m
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.send(m.addr, m.auth, m.from, []string{msg.To}, m.format(msg)); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}
	return nil
}

func (m *SMTPMailer) format(msg Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + m.from + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return []byte(b.String())
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, msg Message) error {
	log.Printf("[MAIL] To: %s | Subject: %s\n%s", msg.To, msg.Subject, msg.Body)
	return nil
}

// MailAuditor records delivery outcomes.
type MailAuditor interface {
	LogMail(userID uint, action, description string, err error)
}

// Deliver sends msg and records the outcome in metrics, the log and auditor
// (which may be nil).
func Deliver(ctx context.Context, mailer Mailer, auditor MailAuditor, msg Message) error {
	err := mailer.Send(ctx, msg)
	metrics.RecordEmail(msg.Kind, err)
	if err != nil {
		log.Printf("[MAIL] Failed to deliver %s email to %s: %v", msg.Kind, msg.To, err)
	}
	if auditor != nil {
		auditor.LogMail(msg.UserID, "mail_"+msg.Kind, fmt.Sprintf("%s to %s", msg.Subject, msg.To), err)
	}
	return err
}
