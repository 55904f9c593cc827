// Package role provides CRUD operations for the role catalog.
package role

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/scopeguard/scopeguard/internal/access"
	"github.com/scopeguard/scopeguard/internal/db/models"
)

var (
	// ErrRoleNotFound is returned when a role does not exist in the module.
	ErrRoleNotFound = fmt.Errorf("role %w", access.ErrNotFound)
	// ErrRoleNameEmpty is returned when attempting to create a role with an empty name.
	ErrRoleNameEmpty = fmt.Errorf("%w: role name cannot be empty", access.ErrValidation)
	// ErrModuleEmpty is returned when a role names no module.
	ErrModuleEmpty = fmt.Errorf("%w: role module cannot be empty", access.ErrValidation)
	// ErrRoleAlreadyExists is returned when the module already has a role of that name.
	ErrRoleAlreadyExists = fmt.Errorf("role %w: name already exists in module", access.ErrConflict)
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// WithRules preloads everything the resolvers need from a role.
func WithRules(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Permissions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, permission_id ASC")
		}).
		Preload("Permissions.Permission").
		Preload("ScopeRules").
		Preload("FieldRules")
}

// Get retrieves a role of the module by ID with its rules.
// A role that exists in another module is reported as not found.
func Get(db *gorm.DB, moduleCode string, id uint) (*models.Role, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var r models.Role

	result := db.Scopes(WithRules).Where("module_code = ?", moduleCode).First(&r, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d in module %s", ErrRoleNotFound, id, moduleCode)
		}

		return nil, access.Internal(result.Error, "load role")
	}

	return &r, nil
}

// GetByName retrieves a role of the module by name with its rules.
func GetByName(db *gorm.DB, moduleCode, name string) (*models.Role, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if name == "" {
		return nil, ErrRoleNameEmpty
	}

	var r models.Role

	result := db.Scopes(WithRules).Where("module_code = ? AND name = ?", moduleCode, name).First(&r)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s/%s", ErrRoleNotFound, moduleCode, name)
		}

		return nil, access.Internal(result.Error, "load role")
	}

	return &r, nil
}

// GetAll retrieves every role of the module, or of every module when moduleCode is empty.
func GetAll(db *gorm.DB, moduleCode string) ([]models.Role, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	q := db.Scopes(WithRules).Order("module_code ASC, name ASC")
	if moduleCode != "" {
		q = q.Where("module_code = ?", moduleCode)
	}

	var roles []models.Role
	if err := q.Find(&roles).Error; err != nil {
		return nil, access.Internal(err, "list roles")
	}

	return roles, nil
}

// Create stores a new role together with its permissions and rules.
func Create(db *gorm.DB, r *models.Role) error {
	if db == nil {
		return ErrDBNil
	}

	if r.ModuleCode == "" {
		return ErrModuleEmpty
	}

	if r.Name == "" {
		return ErrRoleNameEmpty
	}

	var count int64
	if err := db.Model(&models.Role{}).
		Where("module_code = ? AND name = ?", r.ModuleCode, r.Name).
		Count(&count).Error; err != nil {
		return access.Internal(err, "check role")
	}

	if count > 0 {
		return ErrRoleAlreadyExists
	}

	if err := db.Create(r).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrRoleAlreadyExists
		}

		return access.Internal(err, "create role")
	}

	return nil
}

// Incompatibilities returns every declared pair touching one of roleIDs.
func Incompatibilities(db *gorm.DB, roleIDs []uint) ([]models.RoleIncompatibility, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if len(roleIDs) == 0 {
		return nil, nil
	}

	var out []models.RoleIncompatibility
	if err := db.Where("role_a_id IN ? OR role_b_id IN ?", roleIDs, roleIDs).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, access.Internal(err, "list role incompatibilities")
	}

	return out, nil
}

// DeclareIncompatible stores the unordered pair unless it already exists.
func DeclareIncompatible(db *gorm.DB, a, b uint, reason string) (*models.RoleIncompatibility, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if a == b {
		return nil, fmt.Errorf("%w: role %d can not be incompatible with itself", access.ErrValidation, a)
	}

	pair := models.NewRoleIncompatibility(a, b, reason)

	result := db.Where("role_a_id = ? AND role_b_id = ?", pair.RoleAID, pair.RoleBID).
		Attrs(models.RoleIncompatibility{Reason: reason}).
		FirstOrCreate(&pair)
	if result.Error != nil {
		return nil, access.Internal(result.Error, "declare role incompatibility")
	}

	return &pair, nil
}
