package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/goodreads/internal/apperr"
	"github.com/mrlokans/goodreads/internal/auth"
	auditrepo "github.com/mrlokans/goodreads/internal/database/audit"
	"github.com/mrlokans/goodreads/internal/entities"
	"github.com/mrlokans/goodreads/internal/pagination"
)

// AuditEventLister is implemented by audit.Service.
type AuditEventLister interface {
	ListEvents(filter auditrepo.EventFilter, limit, offset int) ([]entities.AuditEvent, int64, error)
}

// TaskQueue is implemented by tasks.Client.
type TaskQueue interface {
	EnqueueAuditCleanup(ctx context.Context, retentionDays int) (string, error)
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

const defaultAuditPageSize = 25

// AdminController serves staff-only maintenance endpoints under /api/admin.
// Either dependency may be nil; its endpoints then answer 503.
type AdminController struct {
	audit         AuditEventLister
	tasks         TaskQueue
	retentionDays int
	maxPageSize   int
}

func NewAdminController(audit AuditEventLister, tasks TaskQueue, retentionDays, maxPageSize int) *AdminController {
	return &AdminController{
		audit:         audit,
		tasks:         tasks,
		retentionDays: retentionDays,
		maxPageSize:   maxPageSize,
	}
}

// RegisterRoutes mounts the endpoints behind authentication and the staff check.
func (ac *AdminController) RegisterRoutes(router gin.IRouter, requireAuth gin.HandlerFunc) {
	admin := router.Group("/api/admin", requireAuth, auth.RequireStaff())
	admin.GET("/audit", ac.ListAuditEvents)
	admin.POST("/tasks/audit-cleanup", ac.RunAuditCleanup)
	admin.GET("/tasks/:id", ac.GetTaskStatus)
}

// AuditEventList is one page of audit events, newest first.
type AuditEventList struct {
	Count      int64                 `json:"count"`
	Page       int                   `json:"page"`
	TotalPages int                   `json:"total_pages"`
	Results    []entities.AuditEvent `json:"results"`
}

// ListAuditEvents handles GET /api/admin/audit.
// Filters: user, type, action, failed, since (a duration such as 24h).
func (ac *AdminController) ListAuditEvents(c *gin.Context) {
	if ac.audit == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "audit log is disabled"})
		return
	}

	filter, err := auditFilterFromQuery(c)
	if err != nil {
		respondAPIError(c, err, "list audit events")
		return
	}
	req, err := pagination.ParseRequest(c.Query("page"), c.Query("page_size"), defaultAuditPageSize, ac.maxPageSize)
	if err != nil {
		respondAPIError(c, err, "list audit events")
		return
	}
	if req.Number < 1 {
		req.Number = 1
	}

	events, total, err := ac.audit.ListEvents(filter, req.Size, pagination.Offset(req.Number, req.Size))
	if err != nil {
		respondInternalError(c, err, "list audit events")
		return
	}
	if events == nil {
		events = []entities.AuditEvent{}
	}

	c.JSON(http.StatusOK, AuditEventList{
		Count:      total,
		Page:       req.Number,
		TotalPages: pagination.NumPages(total, req.Size),
		Results:    events,
	})
}

func auditFilterFromQuery(c *gin.Context) (auditrepo.EventFilter, error) {
	filter := auditrepo.EventFilter{
		EventType: entities.AuditEventType(strings.TrimSpace(c.Query("type"))),
		Action:    strings.TrimSpace(c.Query("action")),
	}
	if filter.EventType != "" && !filter.EventType.Valid() {
		return filter, apperr.Invalid("type", "Unknown event type.")
	}

	if raw := c.Query("user"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return filter, apperr.Invalid("user", "A valid integer is required.")
		}
		filter.UserID = uint(id)
	}
	if failed, _ := strconv.ParseBool(c.Query("failed")); failed {
		filter.Status = entities.AuditStatusFailed
	}
	if raw := c.Query("since"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return filter, apperr.Invalid("since", "Enter a positive duration such as 24h.")
		}
		filter.Since = time.Now().Add(-d)
	}
	return filter, nil
}

// RunAuditCleanup handles POST /api/admin/tasks/audit-cleanup and queues one
// retention pass outside the cron schedule.
func (ac *AdminController) RunAuditCleanup(c *gin.Context) {
	if ac.tasks == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "task queue is disabled"})
		return
	}

	taskID, err := ac.tasks.EnqueueAuditCleanup(c.Request.Context(), ac.retentionDays)
	if err != nil {
		respondInternalError(c, err, "enqueue audit cleanup")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"task_id":        taskID,
		"retention_days": ac.retentionDays,
	})
}

// GetTaskStatus handles GET /api/admin/tasks/:id.
func (ac *AdminController) GetTaskStatus(c *gin.Context) {
	if ac.tasks == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "task queue is disabled"})
		return
	}

	taskID := c.Param("id")
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := ac.tasks.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, err, "task status")
		return
	}
	if status == backlite.TaskStatusNotFound {
		c.JSON(http.StatusNotFound, gin.H{"id": taskID, "status": taskStatusName(status)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": taskID, "status": taskStatusName(status)})
}

func taskStatusName(status backlite.TaskStatus) string {
	switch status {
	case backlite.TaskStatusPending:
		return "pending"
	case backlite.TaskStatusRunning:
		return "running"
	case backlite.TaskStatusSuccess:
		return "success"
	case backlite.TaskStatusFailure:
		return "failure"
	case backlite.TaskStatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}
