package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/goodreads/internal/audit"
	"github.com/mrlokans/goodreads/internal/auth"
	"github.com/mrlokans/goodreads/internal/database"
	"github.com/mrlokans/goodreads/internal/database/books"
	"github.com/mrlokans/goodreads/internal/database/reviews"
	"github.com/mrlokans/goodreads/internal/database/users"
	"github.com/mrlokans/goodreads/internal/http"
	"github.com/mrlokans/goodreads/internal/notify"
	"github.com/mrlokans/goodreads/internal/scheduler"
	"github.com/mrlokans/goodreads/internal/services"
	"github.com/mrlokans/goodreads/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

var _ services.BookRepository = (*books.Repository)(nil)
var _ services.ReviewRepository = (*reviews.Repository)(nil)
var _ services.UserLookup = (*users.Repository)(nil)
var _ auth.UserRepository = (*users.Repository)(nil)

var _ http.Pinger = (*database.Database)(nil)

// =============================================================================
// Audit Trail
// =============================================================================

var _ services.AuditLogger = (*audit.Service)(nil)
var _ auth.LoginAuditor = (*audit.Service)(nil)
var _ auth.AccountAuditor = (*audit.Service)(nil)
var _ notify.MailAuditor = (*audit.Service)(nil)
var _ tasks.AuditEventCleaner = (*audit.Service)(nil)
var _ http.AuditEventLister = (*audit.Service)(nil)

// =============================================================================
// Email Delivery
// =============================================================================

var _ notify.Mailer = (*notify.SMTPMailer)(nil)
var _ notify.Mailer = notify.LogMailer{}

var _ notify.Queue = (*notify.GoroutineQueue)(nil)
var _ notify.Queue = (*tasks.EmailQueue)(nil)

var _ auth.RegistrationNotifier = (*notify.WelcomeNotifier)(nil)

// =============================================================================
// Maintenance
// =============================================================================

var _ scheduler.CleanupDispatcher = (*scheduler.QueueDispatcher)(nil)
var _ scheduler.CleanupDispatcher = (*scheduler.InlineDispatcher)(nil)
var _ http.TaskQueue = (*tasks.Client)(nil)
