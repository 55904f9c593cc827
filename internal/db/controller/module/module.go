// Package module provides the tenant/module registry.
package module

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/scopeguard/scopeguard/internal/access"
	"github.com/scopeguard/scopeguard/internal/db/models"
)

var (
	// ErrModuleNotFound is returned when the module is not registered.
	ErrModuleNotFound = fmt.Errorf("module %w", access.ErrNotFound)
	// ErrModuleCodeEmpty is returned when a module has no code.
	ErrModuleCodeEmpty = fmt.Errorf("%w: module code cannot be empty", access.ErrValidation)
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Get retrieves a module by code.
func Get(db *gorm.DB, code string) (*models.Module, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var m models.Module

	result := db.Where("code = ?", code).First(&m)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, code)
		}

		return nil, access.Internal(result.Error, "load module")
	}

	return &m, nil
}

// IsActive reports whether the module is switched on for the tenant.
// It fails with ErrModuleNotFound for unknown modules.
func IsActive(db *gorm.DB, tenantID, code string) (bool, error) {
	if _, err := Get(db, code); err != nil {
		return false, err
	}

	var tm models.TenantModule

	result := db.Where("tenant_id = ? AND module_code = ?", tenantID, code).Limit(1).Find(&tm)
	if result.Error != nil {
		return false, access.Internal(result.Error, "load tenant module")
	}

	return result.RowsAffected > 0 && tm.Active, nil
}

// Save creates or updates a module.
func Save(db *gorm.DB, m *models.Module) error {
	if db == nil {
		return ErrDBNil
	}

	if m.Code == "" {
		return ErrModuleCodeEmpty
	}

	if err := db.Save(m).Error; err != nil {
		return access.Internal(err, "save module")
	}

	return nil
}

// SetActive switches the module on or off for the tenant.
func SetActive(db *gorm.DB, tenantID, code string, active bool) error {
	if _, err := Get(db, code); err != nil {
		return err
	}

	tm := models.TenantModule{TenantID: tenantID, ModuleCode: code, Active: active}

	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "module_code"}},
		DoUpdates: clause.AssignmentColumns([]string{"active", "updated_at"}),
	}).Create(&tm).Error; err != nil {
		return access.Internal(err, "activate module")
	}

	return nil
}
