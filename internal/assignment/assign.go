package assignment

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/scopeguard/scopeguard/internal/access"
	"github.com/scopeguard/scopeguard/internal/audit"
	"github.com/scopeguard/scopeguard/internal/db/models"
)

type (
	// AssignInput describes a new assignment. ValidFrom defaults to now;
	// a nil ValidUntil makes the assignment permanent.
	AssignInput struct {
		TenantID   string     `json:"tenant_id"   validate:"required,max=64"`
		UserID     uint64     `json:"user_id"     validate:"required"`
		ModuleCode string     `json:"module_code" validate:"required,max=64"`
		RoleID     uint       `json:"role_id"     validate:"required"`
		AssignedBy string     `json:"assigned_by" validate:"required,max=100"`
		ValidFrom  *time.Time `json:"valid_from,omitempty"`
		ValidUntil *time.Time `json:"valid_until,omitempty"`
	}

	// UpdateInput replaces the role of an existing assignment.
	UpdateInput struct {
		TenantID   string     `json:"tenant_id"   validate:"required,max=64"`
		UserID     uint64     `json:"user_id"     validate:"required"`
		ModuleCode string     `json:"module_code" validate:"required,max=64"`
		RoleID     uint       `json:"role_id"     validate:"required"`
		AssignedBy string     `json:"assigned_by" validate:"required,max=100"`
		ValidUntil *time.Time `json:"valid_until,omitempty"`
	}

	// TemporaryInput describes a time boxed grant of at most MaxTemporaryHours.
	TemporaryInput struct {
		TenantID      string `json:"tenant_id"      validate:"required,max=64"`
		UserID        uint64 `json:"user_id"        validate:"required"`
		ModuleCode    string `json:"module_code"    validate:"required,max=64"`
		RoleID        uint   `json:"role_id"        validate:"required"`
		AssignedBy    string `json:"assigned_by"    validate:"required,max=100"`
		DurationHours int    `json:"duration_hours" validate:"gt=0,lte=72"`
		Reason        string `json:"reason"         validate:"max=500"`
	}
)

// replacement is one deactivate-then-insert unit.
type replacement struct {
	op          string
	next        models.RoleAssignment
	reason      models.DeactivationReason
	mustReplace bool // fail with ErrNotFound when nothing is active
	extra       *audit.Entry
}

// Assign makes the role the user's active role in the module, superseding
// any assignment active before.
func (s *Store) Assign(ctx context.Context, in AssignInput) (*models.RoleAssignment, error) {
	const op = "assign"

	if err := s.check(in); err != nil {
		return nil, failed(op, err, in.TenantID, in.UserID)
	}

	now := s.now()

	validFrom := now
	if in.ValidFrom != nil {
		validFrom = in.ValidFrom.UTC()
	}

	validUntil, err := until(in.ValidUntil, validFrom)
	if err != nil {
		return nil, failed(op, err, in.TenantID, in.UserID)
	}

	return s.replace(ctx, replacement{
		op: op,
		next: models.RoleAssignment{
			TenantID:   in.TenantID,
			UserID:     in.UserID,
			ModuleCode: in.ModuleCode,
			RoleID:     in.RoleID,
			AssignedBy: in.AssignedBy,
			AssignedAt: now,
			ValidFrom:  validFrom,
			ValidUntil: validUntil,
		},
		reason: models.ReasonSuperseded,
	})
}

// Update replaces the user's active role in the module. It fails with
// access.ErrNotFound when the user holds no role there.
func (s *Store) Update(ctx context.Context, in UpdateInput) (*models.RoleAssignment, error) {
	const op = "update"

	if err := s.check(in); err != nil {
		return nil, failed(op, err, in.TenantID, in.UserID)
	}

	now := s.now()

	validUntil, err := until(in.ValidUntil, now)
	if err != nil {
		return nil, failed(op, err, in.TenantID, in.UserID)
	}

	return s.replace(ctx, replacement{
		op: op,
		next: models.RoleAssignment{
			TenantID:   in.TenantID,
			UserID:     in.UserID,
			ModuleCode: in.ModuleCode,
			RoleID:     in.RoleID,
			AssignedBy: in.AssignedBy,
			AssignedAt: now,
			ValidFrom:  now,
			ValidUntil: validUntil,
		},
		reason:      models.ReasonUpdated,
		mustReplace: true,
	})
}

// CreateTemporary assigns the role for DurationHours starting now. The reason,
// when given, is written to the audit log.
func (s *Store) CreateTemporary(ctx context.Context, in TemporaryInput) (*models.RoleAssignment, error) {
	const op = "temporary"

	if err := s.check(in); err != nil {
		return nil, failed(op, err, in.TenantID, in.UserID)
	}

	now := s.now()
	validUntil := now.Add(time.Duration(in.DurationHours) * time.Hour)

	r := replacement{
		op: op,
		next: models.RoleAssignment{
			TenantID:   in.TenantID,
			UserID:     in.UserID,
			ModuleCode: in.ModuleCode,
			RoleID:     in.RoleID,
			AssignedBy: in.AssignedBy,
			AssignedAt: now,
			ValidFrom:  now,
			ValidUntil: &validUntil,
			Temporary:  true,
		},
		reason: models.ReasonSuperseded,
	}

	if in.Reason != "" {
		r.extra = &audit.Entry{
			TenantID:     in.TenantID,
			Actor:        in.AssignedBy,
			Action:       audit.ActionAssignmentTemporary,
			ResourceType: audit.ResourceRoleAssignment,
			Details: map[string]any{
				"user_id":        in.UserID,
				"module_code":    in.ModuleCode,
				"role_id":        in.RoleID,
				"duration_hours": in.DurationHours,
				"valid_until":    validUntil,
				"reason":         in.Reason,
			},
			PerformedAt: now,
		}
	}

	return s.replace(ctx, r)
}

// Remove deactivates the user's active assignment in the module.
func (s *Store) Remove(ctx context.Context, tenantID string, userID uint64, moduleCode, removedBy string) error {
	const op = "remove"

	if tenantID == "" || userID == 0 || moduleCode == "" || removedBy == "" {
		return failed(op, fmt.Errorf("%w: tenant, user, module and actor are required", access.ErrValidation), tenantID, userID)
	}

	now := s.now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := activeFor(tx, tenantID, userID, moduleCode)
		if err != nil {
			return err
		}

		if cur == nil {
			return fmt.Errorf("active assignment of user %d in module %s: %w", userID, moduleCode, access.ErrNotFound)
		}

		return s.deactivate(ctx, tx, cur, removedBy, models.ReasonRemoved, now)
	})
	if err != nil {
		return failed(op, err, tenantID, userID)
	}

	s.committed(op, tenantID, userID)

	log.Info().Str("tenant", tenantID).Uint64("user", userID).Str("module", moduleCode).
		Str("actor", removedBy).Msg("role assignment removed")

	return nil
}

// replace runs the shared precondition checks and the transactional swap.
func (s *Store) replace(ctx context.Context, r replacement) (*models.RoleAssignment, error) {
	next := r.next

	role, err := s.checkTarget(ctx, next.TenantID, next.UserID, next.ModuleCode, next.RoleID)
	if err != nil {
		return nil, failed(r.op, err, next.TenantID, next.UserID)
	}

	pairs, err := s.incompatibleWith(ctx, role)
	if err != nil {
		return nil, failed(r.op, err, next.TenantID, next.UserID)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		errTx := checkConflicts(tx, next.TenantID, next.UserID, role, pairs, next.AssignedAt)
		if errTx != nil {
			return errTx
		}

		cur, errTx := activeFor(tx, next.TenantID, next.UserID, next.ModuleCode)
		if errTx != nil {
			return errTx
		}

		switch {
		case cur != nil:
			if errTx = s.deactivate(ctx, tx, cur, next.AssignedBy, r.reason, next.AssignedAt); errTx != nil {
				return errTx
			}
		case r.mustReplace:
			return fmt.Errorf("active assignment of user %d in module %s: %w", next.UserID, next.ModuleCode, access.ErrNotFound)
		}

		if errTx = s.insert(ctx, tx, &next); errTx != nil {
			return errTx
		}

		if r.extra == nil {
			return nil
		}

		e := *r.extra
		e.ResourceID = fmt.Sprint(next.ID)

		return s.cfg.Audit.Record(ctx, tx, e) //nolint:wrapcheck
	})
	if err != nil {
		return nil, failed(r.op, err, next.TenantID, next.UserID)
	}

	next.Role = *role

	s.committed(r.op, next.TenantID, next.UserID)

	log.Info().
		Str("op", r.op).
		Str("tenant", next.TenantID).
		Uint64("user", next.UserID).
		Str("module", next.ModuleCode).
		Str("role", role.Name).
		Uint64("assignment", next.ID).
		Str("actor", next.AssignedBy).
		Msg("role assigned")

	return &next, nil
}

// until validates the end of a validity window.
func until(validUntil *time.Time, validFrom time.Time) (*time.Time, error) {
	if validUntil == nil {
		return nil, nil //nolint:nilnil
	}

	u := validUntil.UTC()
	if !u.After(validFrom) {
		return nil, fmt.Errorf("%w: valid_until %s must be after valid_from %s",
			access.ErrValidation, u.Format(time.RFC3339), validFrom.Format(time.RFC3339))
	}

	return &u, nil
}
