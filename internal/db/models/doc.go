// Package models contains the gorm model definitions of the permission engine.
//
// Roles, their permissions and rules form the role catalog. RoleAssignment rows
// bind a user to one role per module and are never updated in place except for
// deactivation. AuditEntry rows are append-only. Module, TenantModule, User and
// DepartmentManager back the registry and directory collaborators.
package models

// All returns every model in migration order.
func All() []any {
	return []any{
		&Module{},
		&TenantModule{},
		&User{},
		&DepartmentManager{},
		&Permission{},
		&Role{},
		&RolePermission{},
		&DataScopeRule{},
		&FieldRule{},
		&RoleIncompatibility{},
		&RoleAssignment{},
		&AuditEntry{},
	}
}
