// Package audit writes and reads the append-only audit log.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/scopeguard/scopeguard/internal/access"
	"github.com/scopeguard/scopeguard/internal/db/models"
)

// Actions written by the engine.
const (
	ActionAssignmentCreate     = "assignment.create"
	ActionAssignmentDeactivate = "assignment.deactivate"
	ActionAssignmentTemporary  = "assignment.temporary"
	ActionAssignmentExpire     = "assignment.expire"
	ActionAssignmentBulk       = "assignment.bulk"
	ActionFieldDenied          = "field.denied"
)

// Resource types written by the engine.
const (
	ResourceRoleAssignment = "role_assignment"
	ResourceField          = "field"
	ResourceBatch          = "assignment_batch"
)

// SystemActor is the actor of changes nobody requested explicitly.
const SystemActor = "system"

// Entry is an audit record before it is stored.
type Entry struct {
	TenantID     string
	Actor        string
	Action       string
	ResourceType string
	ResourceID   string
	Details      any
	PerformedAt  time.Time
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	TenantID     string
	Action       string
	ResourceType string
	ResourceID   string
	Limit        int
}

// Log persists audit entries with gorm.
type Log struct {
	db  *gorm.DB
	now func() time.Time
}

// New returns an audit log on db.
func New(db *gorm.DB) *Log {
	return &Log{db: db, now: time.Now}
}

// Record appends e. It joins the caller's transaction when tx is not nil so the
// entry commits or rolls back together with the change it describes.
func (l *Log) Record(ctx context.Context, tx *gorm.DB, e Entry) error {
	if tx == nil {
		tx = l.db
	}

	if e.PerformedAt.IsZero() {
		e.PerformedAt = l.now()
	}

	row := models.AuditEntry{
		TenantID:     e.TenantID,
		Actor:        e.Actor,
		Action:       e.Action,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		PerformedAt:  e.PerformedAt.UTC(),
	}

	if e.Details != nil {
		raw, err := json.Marshal(e.Details)
		if err != nil {
			return access.Internal(err, "encode audit details")
		}

		row.Details = datatypes.JSON(raw)
	}

	if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
		return access.Internal(err, "write audit entry")
	}

	return nil
}

// List returns matching entries, newest first.
func (l *Log) List(ctx context.Context, f Filter) ([]models.AuditEntry, error) {
	q := l.db.WithContext(ctx).Model(&models.AuditEntry{})

	if f.TenantID != "" {
		q = q.Where("tenant_id = ?", f.TenantID)
	}

	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}

	if f.ResourceType != "" {
		q = q.Where("resource_type = ?", f.ResourceType)
	}

	if f.ResourceID != "" {
		q = q.Where("resource_id = ?", f.ResourceID)
	}

	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var out []models.AuditEntry
	if err := q.Order("performed_at DESC, id DESC").Find(&out).Error; err != nil {
		return nil, access.Internal(err, "list audit entries")
	}

	return out, nil
}
