// Package users provides database operations for account management.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.GetByEmail(email)
package users

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/ebooklib/internal/entities"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
)

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// NormalizeEmail lowercases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts a user. The email is normalized before the uniqueness check.
func (r *Repository) Create(user *entities.User) error {
	user.Email = NormalizeEmail(user.Email)
	if user.Role == "" {
		user.Role = entities.UserRoleUser
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entities.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check email: %w", err)
		}
		if count > 0 {
			return ErrEmailTaken
		}
		if err := tx.Create(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrEmailTaken
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		return nil
	})
}

// GetByID retrieves a user by ID.
func (r *Repository) GetByID(id uint) (*entities.User, error) {
	var user entities.User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by email address.
func (r *Repository) GetByEmail(email string) (*entities.User, error) {
	var user entities.User
	if err := r.db.Where("email = ?", NormalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Count returns the number of registered users.
func (r *Repository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&entities.User{}).Count(&count).Error
	return count, err
}

// SetRole changes a user's role.
func (r *Repository) SetRole(id uint, role entities.UserRole) error {
	result := r.db.Model(&entities.User{}).Where("id = ?", id).Update("role", role)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkLoginSuccess resets lockout counters and stamps the login time.
func (r *Repository) MarkLoginSuccess(id uint, at time.Time) error {
	return r.db.Model(&entities.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"failed_login_count": 0,
		"locked_until":       nil,
		"last_login_at":      at,
	}).Error
}

// MarkLoginFailure increments the failure counter and locks the account once
// it reaches maxAttempts. Returns the updated counter.
func (r *Repository) MarkLoginFailure(id uint, maxAttempts int, lockout time.Duration, at time.Time) (int, error) {
	var user entities.User
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			return err
		}
		user.FailedLoginCount++
		updates := map[string]interface{}{"failed_login_count": user.FailedLoginCount}
		if maxAttempts > 0 && user.FailedLoginCount >= maxAttempts {
			until := at.Add(lockout)
			updates["locked_until"] = until
			updates["failed_login_count"] = 0
			user.FailedLoginCount = 0
		}
		return tx.Model(&entities.User{}).Where("id = ?", id).Updates(updates).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrNotFound
	}
	return user.FailedLoginCount, err
}
