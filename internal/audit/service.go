// Package audit records who did what to reviews, books and accounts.
//
// Writes happen in the background so a slow or failing audit table never
// delays or breaks the request that triggered it. Call Wait before closing
// the database.
package audit

import (
	"log"
	"sync"
	"time"

	"github.com/mrlokans/goodreads/internal/database/audit"
	"github.com/mrlokans/goodreads/internal/entities"
)

// Service provides high-level audit logging functionality.
type Service struct {
	repo *audit.Repository
	wg   sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// Log records an audit event synchronously.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.repo.LogEvent(event); err != nil {
			log.Printf("Failed to log audit event %s: %v", event.Action, err)
		}
	}()
}

// Wait blocks until every pending background write has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func withOutcome(event *entities.AuditEvent, err error) *entities.AuditEvent {
	event.Status = entities.AuditStatusSuccess
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}
	return event
}

// LogAuth records a login, logout or failed login.
func (s *Service) LogAuth(userID uint, action string, ipAddr, userAgent string, success bool) {
	event := &entities.AuditEvent{
		UserID:    userID,
		EventType: entities.AuditEventAuth,
		Action:    action,
		IPAddress: ipAddr,
		UserAgent: truncate(userAgent, 500),
		Status:    entities.AuditStatusSuccess,
	}

	if !success {
		event.Status = entities.AuditStatusFailed
	}

	s.LogAsync(event)
}

// LogAccount records registration and profile changes.
func (s *Service) LogAccount(userID uint, action, description string) {
	s.LogAsync(&entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventAccount,
		Action:      action,
		Description: truncate(description, 500),
		EntityType:  "user",
		EntityID:    &userID,
		Status:      entities.AuditStatusSuccess,
	})
}

// LogReview records a review write. action is one of review_create,
// review_update or review_delete.
func (s *Service) LogReview(userID uint, action string, reviewID uint, description string, err error) {
	s.LogAsync(withOutcome(&entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventReview,
		Action:      action,
		Description: truncate(description, 500),
		EntityType:  "review",
		EntityID:    &reviewID,
	}, err))
}

// LogBook records a change to book metadata.
func (s *Service) LogBook(userID uint, action string, bookID uint, description string, err error) {
	s.LogAsync(withOutcome(&entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventBook,
		Action:      action,
		Description: truncate(description, 500),
		EntityType:  "book",
		EntityID:    &bookID,
	}, err))
}

// LogMail records an outgoing email attempt.
func (s *Service) LogMail(userID uint, action, description string, err error) {
	s.LogAsync(withOutcome(&entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventMail,
		Action:      action,
		Description: truncate(description, 500),
	}, err))
}

// ListEvents retrieves paginated audit events.
func (s *Service) ListEvents(filter audit.EventFilter, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.ListEvents(filter, limit, offset)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(cutoff)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
