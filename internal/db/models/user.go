package models

import "time"

// User is a directory entry of a tenant. Identity is verified upstream; the
// engine only needs to know that the user exists and where it sits in the
// team and department hierarchy for data scope filters.
type User struct {
	// ID is the unique identifier for the user.
	ID uint64 `gorm:"primaryKey"`
	// TenantID is the tenant the user belongs to.
	TenantID string `gorm:"size:64;not null;uniqueIndex:idx_user_tenant_username"`
	// Username is unique within the tenant.
	Username string `gorm:"size:100;not null;uniqueIndex:idx_user_tenant_username"`
	// Email is the user's email address.
	Email string `gorm:"size:255"`
	// TeamID is the team of the user, if any.
	TeamID *uint64
	// DepartmentID is the department of the user, if any.
	DepartmentID *uint64
	// Active indicates whether the user account is enabled.
	Active bool `gorm:"not null"`
	// CreatedAt is the timestamp when the user was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the user was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the User model.
func (User) TableName() string {
	return "users"
}

// DepartmentManager records that a user manages a department.
type DepartmentManager struct {
	UserID       uint64 `gorm:"primaryKey"`
	DepartmentID uint64 `gorm:"primaryKey"`
}

// TableName specifies the database table name for the DepartmentManager model.
func (DepartmentManager) TableName() string {
	return "department_managers"
}
