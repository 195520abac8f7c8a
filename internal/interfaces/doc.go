// Package interfaces documents the core abstractions used throughout the application.
//
// # Interface Categories
//
// ## Data Access Interfaces
//
//   - BookRepository: Book catalog storage (internal/services/interfaces.go)
//   - ReviewRepository: Review storage (internal/services/interfaces.go)
//   - UserRepository: Accounts and profiles (internal/auth/service.go)
//   - Pinger: Database liveness for /health (internal/http/health.go)
//
// ## Audit Interfaces
//
//   - AuditLogger: Review and book writes (internal/services/interfaces.go)
//   - LoginAuditor, AccountAuditor: Sessions and accounts (internal/auth)
//   - MailAuditor: Email delivery outcomes (internal/notify/mailer.go)
//   - AuditEventCleaner: Retention cleanup (internal/tasks/cleanup_audit.go)
//
// All of them are implemented by audit.Service, which writes asynchronously
// so audit failures never fail a request.
//
// ## Email Interfaces
//
//   - Mailer: Delivers one message (SMTPMailer, LogMailer)
//   - Queue: Hands a message off without waiting (GoroutineQueue, tasks.EmailQueue)
//   - RegistrationNotifier: Told about every new account (notify.WelcomeNotifier)
//
// # Adding a New Mail Transport
//
//  1. Implement Mailer in internal/notify/
//
//     type SESMailer struct {
//         client *ses.Client
//     }
//
//     func (m *SESMailer) Send(ctx context.Context, msg Message) error
//
//  2. Select it in NewMailer based on config.Mail
//
//  3. Add a compile-time check to checks.go
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for the full list.
package interfaces
