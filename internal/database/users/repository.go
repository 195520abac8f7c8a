// Package users provides database operations for user management.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.GetUserByUsername("ada")
package users

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/goodreads/internal/apperr"
	"github.com/mrlokans/goodreads/internal/entities"
)

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateUser inserts a new account.
func (r *Repository) CreateUser(user *entities.User) error {
	return r.db.Create(user).Error
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(id uint) (*entities.User, error) {
	var user entities.User
	err := r.db.First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user", id)
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by exact username.
func (r *Repository) GetUserByUsername(username string) (*entities.User, error) {
	var user entities.User
	err := r.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user", username)
		}
		return nil, err
	}
	return &user, nil
}

// UsernameTaken reports whether another account (not excludeID) uses username.
func (r *Repository) UsernameTaken(username string, excludeID uint) (bool, error) {
	var count int64
	q := r.db.Model(&entities.User{}).Where("username = ?", username)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateProfile persists the user-editable profile fields.
func (r *Repository) UpdateProfile(user *entities.User) error {
	result := r.db.Model(&entities.User{ID: user.ID}).Updates(map[string]any{
		"username":        user.Username,
		"first_name":      user.FirstName,
		"last_name":       user.LastName,
		"email":           user.Email,
		"profile_picture": user.ProfilePicture,
		"updated_at":      time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("user", user.ID)
	}
	return nil
}

// SetStaff grants or revokes staff and superuser flags.
func (r *Repository) SetStaff(id uint, staff, superuser bool) error {
	return r.db.Model(&entities.User{ID: id}).Updates(map[string]any{
		"is_staff":     staff,
		"is_superuser": superuser,
	}).Error
}

// SetActive enables or disables an account. Inactive accounts cannot log in.
func (r *Repository) SetActive(id uint, active bool) error {
	result := r.db.Model(&entities.User{ID: id}).Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("user", id)
	}
	return nil
}

// TouchLastLogin records a successful login.
func (r *Repository) TouchLastLogin(id uint, at time.Time) error {
	return r.db.Model(&entities.User{ID: id}).Update("last_login_at", at).Error
}

// CountUsers returns the number of accounts.
func (r *Repository) CountUsers() (int64, error) {
	var count int64
	err := r.db.Model(&entities.User{}).Count(&count).Error
	return count, err
}
