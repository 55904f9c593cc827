package models

import (
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrAuditEntryImmutable is returned when an audit entry would be updated or deleted.
var ErrAuditEntryImmutable = errors.New("audit entries are append-only")

// AuditEntry is an immutable record of an assignment change, expiry or denied access.
type AuditEntry struct {
	// ID is the unique identifier for the entry.
	ID uint64 `gorm:"primaryKey"`
	// TenantID is the tenant the change happened in.
	TenantID string `gorm:"size:64;not null;index:idx_audit_tenant_time,priority:1"`
	// Actor is who performed the action ("system" for the sweeper).
	Actor string `gorm:"size:100;not null"`
	// Action is what happened (e.g., "assignment.create").
	Action string `gorm:"size:64;not null;index"`
	// ResourceType is the kind of resource affected (e.g., "role_assignment").
	ResourceType string `gorm:"size:64;not null"`
	// ResourceID identifies the affected resource.
	ResourceID string `gorm:"size:100;not null"`
	// Details carries action specific data.
	Details datatypes.JSON
	// PerformedAt is when the action happened.
	PerformedAt time.Time `gorm:"not null;index:idx_audit_tenant_time,priority:2"`
}

// TableName specifies the database table name for the AuditEntry model.
func (AuditEntry) TableName() string {
	return "audit_entries"
}

// BeforeUpdate rejects any update.
func (*AuditEntry) BeforeUpdate(*gorm.DB) error {
	return ErrAuditEntryImmutable
}

// BeforeDelete rejects any delete.
func (*AuditEntry) BeforeDelete(*gorm.DB) error {
	return ErrAuditEntryImmutable
}
