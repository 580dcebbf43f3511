// Package directory manages the staff roster: idempotent onboarding
// lookups and account status changes.
package directory

import (
	"errors"
	"fmt"

	"github.com/zulandar/shiftline/internal/models"
	"gorm.io/gorm"
)

// ErrNotFound is returned for an unknown user id.
var ErrNotFound = errors.New("directory: user not found")

// FindOrCreate returns the user with the given chat id, creating a
// pending seller account on first contact. Safe to call on every
// onboarding message.
func FindOrCreate(db *gorm.DB, userID int64, displayName string) (*models.User, error) {
	var user models.User
	err := db.First(&user, userID).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("directory: find user %d: %w", userID, err)
	}

	user = models.User{
		ID:          userID,
		DisplayName: displayName,
		Role:        models.RoleSeller,
		Status:      models.AccountPending,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("directory: create user %d: %w", userID, err)
	}
	return &user, nil
}

// Get retrieves a user by id.
func Get(db *gorm.DB, userID int64) (*models.User, error) {
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrNotFound, userID)
		}
		return nil, fmt.Errorf("directory: get user %d: %w", userID, err)
	}
	return &user, nil
}

// SetStatus moves a user's account to the given status.
func SetStatus(db *gorm.DB, userID int64, status string) error {
	switch status {
	case models.AccountPending, models.AccountApproved, models.AccountRejected:
	default:
		return fmt.Errorf("directory: unknown account status %q", status)
	}
	result := db.Model(&models.User{}).Where("id = ?", userID).Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("directory: set status for %d: %w", userID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, userID)
	}
	return nil
}

// SetRole changes a user's role.
func SetRole(db *gorm.DB, userID int64, role string) error {
	switch role {
	case models.RoleSeller, models.RoleSenior, models.RoleManager:
	default:
		return fmt.Errorf("directory: unknown role %q", role)
	}
	result := db.Model(&models.User{}).Where("id = ?", userID).Update("role", role)
	if result.Error != nil {
		return fmt.Errorf("directory: set role for %d: %w", userID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, userID)
	}
	return nil
}
