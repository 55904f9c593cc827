package models

import "time"

// Role kinds as reported by Role.Kind.
const (
	RoleKindSystem   = "system"
	RoleKindTemplate = "template"
	RoleKindCustom   = "custom"
)

// Role represents a role of a single module's catalog.
// A role is identified by (ID, ModuleCode); its name is unique within the module.
type Role struct {
	// ID is the unique identifier for the role.
	ID uint `gorm:"primaryKey"`
	// ModuleCode is the module whose catalog owns the role (e.g., "finance").
	ModuleCode string `gorm:"size:64;not null;uniqueIndex:idx_role_module_name"`
	// Name is the role name, unique within the module.
	Name string `gorm:"size:100;not null;uniqueIndex:idx_role_module_name"`
	// Description provides a human-readable description of the role's purpose.
	Description string `gorm:"size:255"`
	// IsSystem indicates a built-in role that cannot be deleted.
	IsSystem bool `gorm:"default:false"`
	// IsTemplate indicates a role meant to be copied into custom roles.
	IsTemplate bool `gorm:"default:false"`
	// IsDefault marks the unscoped baseline role of a module. Its hidden and denied
	// field rules yield to explicit grants of other roles.
	IsDefault bool `gorm:"default:false"`
	// Permissions is the ordered permission set of the role.
	Permissions []RolePermission `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE"`
	// ScopeRules decide which data scope levels the role grants per permission.
	ScopeRules []DataScopeRule `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE"`
	// FieldRules decide field disclosure for resources the role can access.
	FieldRules []FieldRule `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE"`
	// CreatedAt is the timestamp when the role was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the role was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Role model.
func (Role) TableName() string {
	return "roles"
}

// Kind returns system, template or custom.
func (r *Role) Kind() string {
	switch {
	case r.IsSystem:
		return RoleKindSystem
	case r.IsTemplate:
		return RoleKindTemplate
	default:
		return RoleKindCustom
	}
}

// GrantsResource reports whether any permission of the role targets resource.
// Permissions must be preloaded.
func (r *Role) GrantsResource(resource string) bool {
	for i := range r.Permissions {
		if r.Permissions[i].Permission.Resource == resource {
			return true
		}
	}

	return false
}
