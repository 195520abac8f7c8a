package auth

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/mrlokans/goodreads/internal/apperr"
	"github.com/mrlokans/goodreads/internal/config"
	"github.com/mrlokans/goodreads/internal/entities"
	"github.com/mrlokans/goodreads/internal/metrics"
)

// UserRepository defines the interface for user data access.
// Implemented by database/users.Repository.
type UserRepository interface {
	CreateUser(user *entities.User) error
	GetUserByID(id uint) (*entities.User, error)
	GetUserByUsername(username string) (*entities.User, error)
	UsernameTaken(username string, excludeID uint) (bool, error)
	UpdateProfile(user *entities.User) error
	SetStaff(id uint, staff, superuser bool) error
	TouchLastLogin(id uint, at time.Time) error
	CountUsers() (int64, error)
}

// RegistrationNotifier is told about every new account. It must not block;
// its error is logged and never fails the registration.
type RegistrationNotifier interface {
	UserRegistered(user *entities.User) error
}

// AccountAuditor records account lifecycle events.
type AccountAuditor interface {
	LogAccount(userID uint, action, description string)
}

// RegistrationInput is the sign-up form.
type RegistrationInput struct {
	Username       string
	FirstName      string
	LastName       string
	Email          string
	Password       string
	ProfilePicture string
}

// ProfileInput is the profile edit form. A nil ProfilePicture keeps the
// current one.
type ProfileInput struct {
	Username       string
	FirstName      string
	LastName       string
	Email          string
	ProfilePicture *string
}

// Service handles authentication and user management.
type Service struct {
	users    UserRepository
	config   config.Auth
	notifier RegistrationNotifier
	auditor  AccountAuditor

	// Unknown usernames are checked against dummyHash so both failure paths
	// cost one bcrypt comparison.
	dummyOnce     sync.Once
	dummyHash     string
	checkPassword func(password, hash string) error
}

// NewService creates a new authentication service.
func NewService(users UserRepository, cfg config.Auth) *Service {
	return &Service{
		users:         users,
		config:        cfg,
		checkPassword: CheckPassword,
	}
}

func (s *Service) unknownUserHash() string {
	s.dummyOnce.Do(func() {
		hash, err := HashPassword("unknown-user-placeholder", s.config.BcryptCost)
		if err != nil {
			log.Printf("Failed to prepare placeholder password hash: %v", err)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

// SetNotifier installs the hook called after each successful registration.
func (s *Service) SetNotifier(n RegistrationNotifier) {
	s.notifier = n
}

func (s *Service) SetAuditor(a AccountAuditor) {
	s.auditor = a
}

// Register creates an ordinary account and announces it to the notifier.
func (s *Service) Register(in RegistrationInput) (*entities.User, error) {
	user, err := s.CreateUser(in, false)
	metrics.RecordRegistration(err)
	if err != nil {
		return nil, err
	}

	if s.auditor != nil {
		s.auditor.LogAccount(user.ID, "register", "Registered "+user.Username)
	}
	if s.notifier != nil {
		if err := s.notifier.UserRegistered(user); err != nil {
			log.Printf("[MAIL] Failed to schedule welcome email for %s: %v", user.Username, err)
		}
	}
	return user, nil
}

// CreateUser validates and stores a new account. Only the bcrypt hash of the
// password is kept.
func (s *Service) CreateUser(in RegistrationInput, staff bool) (*entities.User, error) {
	user := &entities.User{
		Username:       strings.TrimSpace(in.Username),
		FirstName:      strings.TrimSpace(in.FirstName),
		LastName:       strings.TrimSpace(in.LastName),
		Email:          strings.TrimSpace(in.Email),
		ProfilePicture: in.ProfilePicture,
		IsActive:       true,
		IsStaff:        staff,
		IsSuperuser:    staff,
	}

	verr := &apperr.ValidationError{}
	s.validateAccount(user, verr)
	if in.Password == "" {
		verr.Add("password", entities.MsgRequired)
	} else if err := CheckNewPassword(in.Password, user.Username); err != nil {
		verr.Add("password", err.Error())
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}

	hash, err := HashPassword(in.Password, s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = hash

	if err := s.users.CreateUser(user); err != nil {
		// Lost a race with a concurrent sign-up for the same name.
		if taken, _ := s.users.UsernameTaken(user.Username, 0); taken {
			return nil, apperr.Invalid("username", entities.MsgUsernameTaken)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// validateAccount collects field errors for the editable account fields,
// including username uniqueness.
func (s *Service) validateAccount(user *entities.User, verr *apperr.ValidationError) {
	if err := apperr.FromValidation(user.Validate()); err != nil {
		fields, ok := apperr.AsValidation(err)
		if !ok {
			verr.Add(apperr.NonFieldKey, err.Error())
			return
		}
		for field, msg := range fields.Fields {
			verr.Add(field, msg)
		}
	}

	if _, bad := verr.Fields["username"]; bad || user.Username == "" {
		return
	}
	taken, err := s.users.UsernameTaken(user.Username, user.ID)
	if err != nil {
		verr.Add(apperr.NonFieldKey, "Could not check username availability.")
		return
	}
	if taken {
		verr.Add("username", entities.MsgUsernameTaken)
	}
}

// Authenticate validates credentials for an interactive login and returns
// the user. Unknown users, wrong passwords and deactivated accounts all yield
// apperr.ErrInvalidCredentials.
func (s *Service) Authenticate(username, password string) (*entities.User, error) {
	user, err := s.VerifyCredentials(username, password)
	metrics.RecordLogin(err == nil)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.users.TouchLastLogin(user.ID, now); err != nil {
		log.Printf("Failed to record last login for user %d: %v", user.ID, err)
	}
	user.LastLoginAt = &now

	return user, nil
}

// VerifyCredentials checks a username and password without recording a
// login. Used for HTTP Basic authentication on every API request.
func (s *Service) VerifyCredentials(username, password string) (*entities.User, error) {
	user, err := s.users.GetUserByUsername(strings.TrimSpace(username))
	if err != nil {
		if apperr.IsNotFound(err) {
			_ = s.checkPassword(password, s.unknownUserHash())
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := s.checkPassword(password, user.PasswordHash); err != nil || !user.IsActive {
		return nil, apperr.ErrInvalidCredentials
	}
	return user, nil
}

// GetUserByID retrieves a user by their ID.
func (s *Service) GetUserByID(id uint) (*entities.User, error) {
	return s.users.GetUserByID(id)
}

// UpdateProfile changes the caller's own account fields.
func (s *Service) UpdateProfile(userID uint, in ProfileInput) (*entities.User, error) {
	if userID == 0 {
		return nil, apperr.LoginRequired()
	}
	user, err := s.users.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	user.Username = strings.TrimSpace(in.Username)
	user.FirstName = strings.TrimSpace(in.FirstName)
	user.LastName = strings.TrimSpace(in.LastName)
	user.Email = strings.TrimSpace(in.Email)
	if in.ProfilePicture != nil {
		user.ProfilePicture = *in.ProfilePicture
	}

	verr := &apperr.ValidationError{}
	s.validateAccount(user, verr)
	if len(verr.Fields) > 0 {
		return nil, verr
	}

	if err := s.users.UpdateProfile(user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if s.auditor != nil {
		s.auditor.LogAccount(user.ID, "profile_update", "Updated profile of "+user.Username)
	}
	return user, nil
}

// PromoteToStaff grants staff and superuser rights (CLI only).
func (s *Service) PromoteToStaff(userID uint) error {
	return s.users.SetStaff(userID, true, true)
}

// HasUsers returns true if any users exist in the database.
func (s *Service) HasUsers() (bool, error) {
	count, err := s.users.CountUsers()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
