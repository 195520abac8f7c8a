package audit

import (
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/goodreads/internal/entities"
)

// EventFilter narrows ListEvents. Zero fields match everything.
type EventFilter struct {
	UserID     uint
	EventType  entities.AuditEventType
	Action     string
	EntityType string
	EntityID   uint
	Status     entities.AuditStatus
	// Since keeps events created at or after this instant.
	Since time.Time
}

func (f EventFilter) scope(db *gorm.DB) *gorm.DB {
	if f.UserID > 0 {
		db = db.Where("user_id = ?", f.UserID)
	}
	if f.EventType != "" {
		db = db.Where("event_type = ?", f.EventType)
	}
	if f.Action != "" {
		db = db.Where("action = ?", f.Action)
	}
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	if !f.Since.IsZero() {
		db = db.Where("created_at >= ?", f.Since)
	}
	if f.EntityType != "" {
		db = db.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID > 0 {
		db = db.Where("entity_id = ?", f.EntityID)
	}
	return db
}

// Repository stores the audit trail of logins, account changes, review and
// book writes and outgoing mail.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// LogEvent saves an audit event to the database.
func (r *Repository) LogEvent(event *entities.AuditEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	return r.db.Create(event).Error
}

// ListEvents returns matching events, most recent first, plus the total match count.
func (r *Repository) ListEvents(filter EventFilter, limit, offset int) ([]entities.AuditEvent, int64, error) {
	var events []entities.AuditEvent
	var total int64

	query := filter.scope(r.db.Model(&entities.AuditEvent{}))
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&events).Error
	return events, total, err
}

// DeleteOldEvents removes audit events older than the specified time.
// Returns the number of deleted events.
func (r *Repository) DeleteOldEvents(olderThan time.Time) (int64, error) {
	result := r.db.Where("created_at < ?", olderThan).Delete(&entities.AuditEvent{})
	return result.RowsAffected, result.Error
}
