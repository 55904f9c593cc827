// Package catalog serves the role catalog, the tenant/module registry and the
// user directory from the database, and seeds them from a TOML file.
package catalog

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/scopeguard/scopeguard/internal/access"
	"github.com/scopeguard/scopeguard/internal/access/scope"
	"github.com/scopeguard/scopeguard/internal/db/controller/module"
	"github.com/scopeguard/scopeguard/internal/db/controller/role"
	"github.com/scopeguard/scopeguard/internal/db/controller/user"
	"github.com/scopeguard/scopeguard/internal/db/models"
)

// Catalog answers the lookups of the assignment store and the resolvers.
type Catalog struct {
	db *gorm.DB
}

// New returns a catalog on db.
func New(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

// GetRole returns the role of the module with its permissions and rules.
// Roles of other modules are reported as access.ErrNotFound.
func (c *Catalog) GetRole(ctx context.Context, moduleCode string, roleID uint) (*models.Role, error) {
	return role.Get(c.db.WithContext(ctx), moduleCode, roleID) //nolint:wrapcheck
}

// IsModuleActive reports whether the module is active for the tenant.
// Unknown modules are reported as access.ErrNotFound.
func (c *Catalog) IsModuleActive(ctx context.Context, tenantID, moduleCode string) (bool, error) {
	return module.IsActive(c.db.WithContext(ctx), tenantID, moduleCode) //nolint:wrapcheck
}

// UserExists reports whether the user is an active member of the tenant.
func (c *Catalog) UserExists(ctx context.Context, tenantID string, userID uint64) (bool, error) {
	return user.Exists(c.db.WithContext(ctx), tenantID, userID) //nolint:wrapcheck
}

// Subject returns what the scope filters need to know about the user.
func (c *Catalog) Subject(ctx context.Context, tenantID string, userID uint64) (scope.Subject, error) {
	db := c.db.WithContext(ctx)

	u, err := user.Get(db, tenantID, userID)
	if err != nil {
		return scope.Subject{}, err //nolint:wrapcheck
	}

	departments, err := user.ManagedDepartments(db, userID)
	if err != nil {
		return scope.Subject{}, err //nolint:wrapcheck
	}

	return scope.Subject{
		TenantID:           u.TenantID,
		UserID:             u.ID,
		TeamID:             u.TeamID,
		ManagedDepartments: departments,
	}, nil
}

// Incompatibilities returns every declared pair touching one of roleIDs.
func (c *Catalog) Incompatibilities(ctx context.Context, roleIDs []uint) ([]models.RoleIncompatibility, error) {
	return role.Incompatibilities(c.db.WithContext(ctx), roleIDs) //nolint:wrapcheck
}

// KnownPermission validates a (resource, action) pair received at the API boundary.
func (c *Catalog) KnownPermission(ctx context.Context, resource, action string) error {
	if resource == "" || action == "" {
		return fmt.Errorf("%w: resource and action are required", access.ErrValidation)
	}

	var count int64
	if err := c.db.WithContext(ctx).Model(&models.Permission{}).
		Where("resource = ? AND action = ?", resource, action).
		Count(&count).Error; err != nil {
		return access.Internal(err, "check permission")
	}

	if count == 0 {
		return fmt.Errorf("%w: unknown permission %s", access.ErrValidation, access.Key(resource, action))
	}

	return nil
}

// KnownResource validates a resource received at the API boundary.
func (c *Catalog) KnownResource(ctx context.Context, resource string) error {
	var count int64
	if err := c.db.WithContext(ctx).Model(&models.Permission{}).
		Where("resource = ?", resource).
		Count(&count).Error; err != nil {
		return access.Internal(err, "check resource")
	}

	if count == 0 {
		return fmt.Errorf("%w: unknown resource %q", access.ErrValidation, resource)
	}

	return nil
}
