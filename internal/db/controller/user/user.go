// Package user provides lookups of the tenant user directory.
package user

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/scopeguard/scopeguard/internal/access"
	"github.com/scopeguard/scopeguard/internal/db/models"
)

var (
	// ErrUserNotFound is returned when the user does not exist in the tenant.
	ErrUserNotFound = fmt.Errorf("user %w", access.ErrNotFound)
	// ErrUsernameEmpty is returned when attempting to create a user without a name.
	ErrUsernameEmpty = fmt.Errorf("%w: username cannot be empty", access.ErrValidation)
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Get retrieves an active user of the tenant by ID.
func Get(db *gorm.DB, tenantID string, id uint64) (*models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var u models.User

	result := db.Where("tenant_id = ? AND active = ?", tenantID, true).First(&u, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d in tenant %s", ErrUserNotFound, id, tenantID)
		}

		return nil, access.Internal(result.Error, "load user")
	}

	return &u, nil
}

// Exists reports whether an active user with id belongs to the tenant.
func Exists(db *gorm.DB, tenantID string, id uint64) (bool, error) {
	if db == nil {
		return false, ErrDBNil
	}

	var count int64
	if err := db.Model(&models.User{}).
		Where("id = ? AND tenant_id = ? AND active = ?", id, tenantID, true).
		Count(&count).Error; err != nil {
		return false, access.Internal(err, "check user")
	}

	return count > 0, nil
}

// ManagedDepartments returns the departments the user manages, ascending.
func ManagedDepartments(db *gorm.DB, id uint64) ([]uint64, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var out []uint64
	if err := db.Model(&models.DepartmentManager{}).
		Where("user_id = ?", id).
		Order("department_id ASC").
		Pluck("department_id", &out).Error; err != nil {
		return nil, access.Internal(err, "list managed departments")
	}

	return out, nil
}

// Save creates the user or updates it when the ID is already taken.
func Save(db *gorm.DB, u *models.User) error {
	if db == nil {
		return ErrDBNil
	}

	if u.Username == "" {
		return ErrUsernameEmpty
	}

	if err := db.Save(u).Error; err != nil {
		return access.Internal(err, "save user")
	}

	return nil
}

// SetManagedDepartments replaces the departments the user manages.
func SetManagedDepartments(db *gorm.DB, id uint64, departments []uint64) error {
	if db == nil {
		return ErrDBNil
	}

	return db.Transaction(func(tx *gorm.DB) error { //nolint:wrapcheck
		if err := tx.Where("user_id = ?", id).Delete(&models.DepartmentManager{}).Error; err != nil {
			return access.Internal(err, "clear managed departments")
		}

		for _, d := range departments {
			if err := tx.Create(&models.DepartmentManager{UserID: id, DepartmentID: d}).Error; err != nil {
				return access.Internal(err, "add managed department")
			}
		}

		return nil
	})
}
