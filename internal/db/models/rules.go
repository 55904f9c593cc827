package models

import "github.com/scopeguard/scopeguard/internal/access"

// DataScopeRule lists the data scope levels a role grants for one permission.
type DataScopeRule struct {
	ID       uint            `gorm:"primaryKey"`
	RoleID   uint            `gorm:"not null;uniqueIndex:idx_scope_rule"`
	Resource string          `gorm:"size:100;not null;uniqueIndex:idx_scope_rule"`
	Action   string          `gorm:"size:50;not null;uniqueIndex:idx_scope_rule"`
	Levels   access.ScopeSet `gorm:"type:varchar(100);not null"`
}

// TableName specifies the database table name for the DataScopeRule model.
func (DataScopeRule) TableName() string {
	return "data_scope_rules"
}

// Key returns the permission the rule applies to.
func (r *DataScopeRule) Key() access.PermissionKey {
	return access.Key(r.Resource, r.Action)
}

// FieldRule decides how one field of a resource is disclosed to holders of a role.
// Field "*" applies to every field of the resource.
type FieldRule struct {
	ID          uint                    `gorm:"primaryKey"`
	RoleID      uint                    `gorm:"not null;uniqueIndex:idx_field_rule"`
	Resource    string                  `gorm:"size:100;not null;uniqueIndex:idx_field_rule"`
	Field       string                  `gorm:"size:100;not null;uniqueIndex:idx_field_rule"`
	AccessLevel access.FieldAccessLevel `gorm:"type:varchar(20);not null"`
	Strategy    access.MaskingStrategy  `gorm:"type:varchar(32)"`
}

// TableName specifies the database table name for the FieldRule model.
func (FieldRule) TableName() string {
	return "field_rules"
}

// RoleIncompatibility declares two roles that must not be held at the same time.
// The pair is unordered and stored with RoleAID < RoleBID.
type RoleIncompatibility struct {
	ID      uint   `gorm:"primaryKey"`
	RoleAID uint   `gorm:"column:role_a_id;not null;uniqueIndex:idx_role_incompatibility"`
	RoleBID uint   `gorm:"column:role_b_id;not null;uniqueIndex:idx_role_incompatibility"`
	Reason  string `gorm:"size:255;not null"`
}

// TableName specifies the database table name for the RoleIncompatibility model.
func (RoleIncompatibility) TableName() string {
	return "role_incompatibilities"
}

// NewRoleIncompatibility orders the pair.
func NewRoleIncompatibility(a, b uint, reason string) RoleIncompatibility {
	if a > b {
		a, b = b, a
	}

	return RoleIncompatibility{RoleAID: a, RoleBID: b, Reason: reason}
}

// Involves reports whether roleID is part of the pair and returns the other role.
func (ri *RoleIncompatibility) Involves(roleID uint) (uint, bool) {
	switch roleID {
	case ri.RoleAID:
		return ri.RoleBID, true
	case ri.RoleBID:
		return ri.RoleAID, true
	default:
		return 0, false
	}
}
