package models

import "github.com/scopeguard/scopeguard/internal/access"

// RolePermission places a permission in a role's ordered permission set.
type RolePermission struct {
	// RoleID is the ID of the role in this mapping.
	RoleID uint `gorm:"primaryKey;column:role_id"`
	// PermissionID is the ID of the permission in this mapping.
	PermissionID uint `gorm:"primaryKey;column:permission_id"`
	// Position orders the permissions of a role.
	Position int `gorm:"not null;default:0"`
	// DefaultScope is used when the role has no DataScopeRule for the permission.
	DefaultScope *access.DataScopeLevel `gorm:"type:varchar(20)"`
	// Permission is the associated permission (loaded via foreign key).
	Permission Permission `gorm:"foreignKey:PermissionID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the database table name for the RolePermission model.
func (RolePermission) TableName() string {
	return "role_permissions"
}

// Key returns the (resource, action) pair. Permission must be preloaded.
func (rp *RolePermission) Key() access.PermissionKey {
	return access.Key(rp.Permission.Resource, rp.Permission.Action)
}
