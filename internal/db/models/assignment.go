package models

import (
	"strconv"
	"strings"
	"time"
)

// DeactivationReason records why an assignment stopped being active.
type DeactivationReason string

const (
	// ReasonSuperseded is set when a new assignment for the same module replaced the row.
	ReasonSuperseded DeactivationReason = "superseded"
	// ReasonRemoved is set by an explicit remove.
	ReasonRemoved DeactivationReason = "removed"
	// ReasonUpdated is set when an update replaced the role.
	ReasonUpdated DeactivationReason = "updated"
	// ReasonExpired is set by the expiry sweeper.
	ReasonExpired DeactivationReason = "expired"
)

// RoleAssignment binds a user to a role of a module.
//
// Rows are created active and only ever transition to inactive; they are never
// deleted. ActiveKey is set while the row is active and cleared on
// deactivation, so its unique index admits at most one active row per
// (tenant, user, module).
type RoleAssignment struct {
	// ID is the unique identifier for the assignment.
	ID uint64 `gorm:"primaryKey"`
	// TenantID is the tenant the assignment belongs to.
	TenantID string `gorm:"size:64;not null;index:idx_assignment_subject,priority:1"`
	// UserID is the assigned user.
	UserID uint64 `gorm:"not null;index:idx_assignment_subject,priority:2"`
	// ModuleCode is the module of the role.
	ModuleCode string `gorm:"size:64;not null;index:idx_assignment_subject,priority:3"`
	// RoleID is the granted role.
	RoleID uint `gorm:"not null;index"`
	// Role is the associated role (loaded via foreign key).
	Role Role `gorm:"foreignKey:RoleID;references:ID;constraint:OnDelete:RESTRICT,OnUpdate:CASCADE"`
	// AssignedBy is the actor who created the assignment.
	AssignedBy string `gorm:"size:100;not null"`
	// AssignedAt is when the row was created.
	AssignedAt time.Time `gorm:"not null;index"`
	// ValidFrom is the first instant the assignment is effective.
	ValidFrom time.Time `gorm:"not null"`
	// ValidUntil is the instant the assignment stops being effective; nil means permanent.
	ValidUntil *time.Time `gorm:"index"`
	// Temporary marks assignments created as explicit temporary grants.
	Temporary bool `gorm:"not null;default:false"`
	// IsActive is true until the row is deactivated.
	IsActive bool `gorm:"not null;index"`
	// ActiveKey guards the one-active-assignment invariant; nil once inactive.
	ActiveKey *string `gorm:"size:200;uniqueIndex"`
	// DeactivatedAt is when the row was deactivated.
	DeactivatedAt *time.Time
	// DeactivatedBy is the actor who deactivated the row ("system" for expiry).
	DeactivatedBy string `gorm:"size:100"`
	// DeactivationReason tells why the row was deactivated.
	DeactivationReason DeactivationReason `gorm:"size:20"`
}

// TableName specifies the database table name for the RoleAssignment model.
func (RoleAssignment) TableName() string {
	return "role_assignments"
}

// ActiveKeyFor builds the guard value for (tenant, user, module).
func ActiveKeyFor(tenantID string, userID uint64, moduleCode string) string {
	return strings.Join([]string{tenantID, strconv.FormatUint(userID, 10), moduleCode}, "/")
}

// Permanent reports whether the assignment has no end.
func (a *RoleAssignment) Permanent() bool {
	return a.ValidUntil == nil
}

// EffectiveAt reports whether the assignment grants its role at t.
func (a *RoleAssignment) EffectiveAt(t time.Time) bool {
	if !a.IsActive || t.Before(a.ValidFrom) {
		return false
	}

	return a.ValidUntil == nil || t.Before(*a.ValidUntil)
}
