// Package assignment is the single mutation path for role assignments.
//
// Every change deactivates the current active row of (tenant, user, module)
// and inserts a new one inside one transaction; rows are never updated in
// place otherwise and never deleted. The expiry sweeper deactivates rows whose
// validity ended with the same conditional guard.
package assignment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/scopeguard/scopeguard/internal/access"
	"github.com/scopeguard/scopeguard/internal/audit"
	"github.com/scopeguard/scopeguard/internal/db/models"
	"github.com/scopeguard/scopeguard/internal/metrics"
)

// MaxTemporaryHours caps CreateTemporary.
const MaxTemporaryHours = 72

// Defaults used when Config leaves a value zero.
const (
	DefaultHistoryLimit    = 50
	DefaultBulkConcurrency = 4
)

type (
	// Catalog answers the existence checks made before every mutation.
	Catalog interface {
		GetRole(ctx context.Context, moduleCode string, roleID uint) (*models.Role, error)
		IsModuleActive(ctx context.Context, tenantID, moduleCode string) (bool, error)
		UserExists(ctx context.Context, tenantID string, userID uint64) (bool, error)
		Incompatibilities(ctx context.Context, roleIDs []uint) ([]models.RoleIncompatibility, error)
	}

	// Recorder appends audit entries, joining tx when given.
	Recorder interface {
		Record(ctx context.Context, tx *gorm.DB, e audit.Entry) error
	}

	// Invalidator is told about every user whose assignments changed.
	Invalidator interface {
		Invalidate(tenantID string, userID uint64)
	}

	// Config wires the store.
	Config struct {
		Catalog          Catalog
		Audit            Recorder
		Invalidator      Invalidator // optional
		EnforceConflicts bool        // reject roles incompatible with another active assignment
		HistoryLimit     int
		BulkConcurrency  int
	}
)

// Store creates, replaces and deactivates role assignments.
type Store struct {
	db       *gorm.DB
	cfg      Config
	validate *validator.Validate

	// Now returns the current instant, UTC.
	Now func() time.Time
}

// New returns a store on db.
func New(db *gorm.DB, cfg Config) *Store {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}

	if cfg.BulkConcurrency <= 0 {
		cfg.BulkConcurrency = DefaultBulkConcurrency
	}

	return &Store{
		db:       db,
		cfg:      cfg,
		validate: validator.New(),
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) now() time.Time {
	return s.Now().UTC()
}

// check validates input with its struct tags.
func (s *Store) check(in any) error {
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %w", access.ErrValidation, err)
	}

	return nil
}

// checkTarget verifies the preconditions shared by every assignment:
// the user exists in the tenant, the module is active and the role belongs to it.
func (s *Store) checkTarget(ctx context.Context, tenantID string, userID uint64, moduleCode string, roleID uint) (*models.Role, error) {
	ok, err := s.cfg.Catalog.UserExists(ctx, tenantID, userID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	if !ok {
		return nil, fmt.Errorf("user %d in tenant %s: %w", userID, tenantID, access.ErrNotFound)
	}

	active, err := s.cfg.Catalog.IsModuleActive(ctx, tenantID, moduleCode)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	if !active {
		return nil, fmt.Errorf("%w: module %s is not active for tenant %s", access.ErrInvalidState, moduleCode, tenantID)
	}

	return s.cfg.Catalog.GetRole(ctx, moduleCode, roleID) //nolint:wrapcheck
}

// incompatibleWith loads the declared incompatibilities of r when conflicts
// are enforced.
func (s *Store) incompatibleWith(ctx context.Context, r *models.Role) ([]models.RoleIncompatibility, error) {
	if !s.cfg.EnforceConflicts {
		return nil, nil
	}

	return s.cfg.Catalog.Incompatibilities(ctx, []uint{r.ID}) //nolint:wrapcheck
}

// checkConflicts rejects r inside tx when one of pairs names a role the user
// holds in another module at now.
func checkConflicts(
	tx *gorm.DB, tenantID string, userID uint64, r *models.Role, pairs []models.RoleIncompatibility, now time.Time,
) error {
	others := make([]uint, 0, len(pairs))

	for _, p := range pairs {
		if other, ok := p.Involves(r.ID); ok {
			others = append(others, other)
		}
	}

	if len(others) == 0 {
		return nil
	}

	var held []models.RoleAssignment
	if err := tx.
		Where("tenant_id = ? AND user_id = ? AND module_code <> ? AND is_active = ?", tenantID, userID, r.ModuleCode, true).
		Where("valid_from <= ? AND (valid_until IS NULL OR valid_until > ?)", now, now).
		Where("role_id IN ?", others).
		Order("id ASC").
		Find(&held).Error; err != nil {
		return access.Internal(err, "list active assignments")
	}

	for _, h := range held {
		for _, p := range pairs {
			if other, ok := p.Involves(r.ID); ok && other == h.RoleID {
				return fmt.Errorf("%w: role %s/%s is incompatible with active assignment %d: %s",
					access.ErrConflict, r.ModuleCode, r.Name, h.ID, p.Reason)
			}
		}
	}

	return nil
}

// activeFor loads the active row of (tenant, user, module) inside tx.
func activeFor(tx *gorm.DB, tenantID string, userID uint64, moduleCode string) (*models.RoleAssignment, error) {
	var rows []models.RoleAssignment
	if err := tx.
		Where("tenant_id = ? AND user_id = ? AND module_code = ? AND is_active = ?", tenantID, userID, moduleCode, true).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, access.Internal(err, "load active assignment")
	}

	if len(rows) == 0 {
		return nil, nil //nolint:nilnil
	}

	return &rows[0], nil
}

// deactivate flips a row to inactive if it still is active. A row that changed
// under us means a concurrent writer won.
func (s *Store) deactivate(
	ctx context.Context, tx *gorm.DB, a *models.RoleAssignment, actor string, reason models.DeactivationReason, now time.Time,
) error {
	result := tx.Model(&models.RoleAssignment{}).
		Where("id = ? AND is_active = ?", a.ID, true).
		Updates(map[string]any{
			"is_active":           false,
			"active_key":          nil,
			"deactivated_at":      now,
			"deactivated_by":      actor,
			"deactivation_reason": reason,
		})
	if result.Error != nil {
		return access.Internal(result.Error, "deactivate assignment")
	}

	if result.RowsAffected != 1 {
		return fmt.Errorf("%w: assignment %d was changed concurrently", access.ErrConflict, a.ID)
	}

	a.IsActive = false
	a.ActiveKey = nil
	a.DeactivatedAt = &now
	a.DeactivatedBy = actor
	a.DeactivationReason = reason

	return s.cfg.Audit.Record(ctx, tx, audit.Entry{ //nolint:wrapcheck
		TenantID:     a.TenantID,
		Actor:        actor,
		Action:       deactivationAction(reason),
		ResourceType: audit.ResourceRoleAssignment,
		ResourceID:   fmt.Sprint(a.ID),
		Details: map[string]any{
			"user_id":     a.UserID,
			"module_code": a.ModuleCode,
			"role_id":     a.RoleID,
			"reason":      reason,
		},
		PerformedAt: now,
	})
}

func deactivationAction(reason models.DeactivationReason) string {
	if reason == models.ReasonExpired {
		return audit.ActionAssignmentExpire
	}

	return audit.ActionAssignmentDeactivate
}

// insert stores a new active row.
func (s *Store) insert(ctx context.Context, tx *gorm.DB, a *models.RoleAssignment) error {
	key := models.ActiveKeyFor(a.TenantID, a.UserID, a.ModuleCode)
	a.IsActive = true
	a.ActiveKey = &key

	if err := tx.Create(a).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: another active assignment exists for user %d in module %s",
				access.ErrConflict, a.UserID, a.ModuleCode)
		}

		return access.Internal(err, "insert assignment")
	}

	return s.cfg.Audit.Record(ctx, tx, audit.Entry{ //nolint:wrapcheck
		TenantID:     a.TenantID,
		Actor:        a.AssignedBy,
		Action:       audit.ActionAssignmentCreate,
		ResourceType: audit.ResourceRoleAssignment,
		ResourceID:   fmt.Sprint(a.ID),
		Details: map[string]any{
			"user_id":     a.UserID,
			"module_code": a.ModuleCode,
			"role_id":     a.RoleID,
			"valid_from":  a.ValidFrom,
			"valid_until": a.ValidUntil,
			"temporary":   a.Temporary,
		},
		PerformedAt: a.AssignedAt,
	})
}

// committed runs after a successful mutation.
func (s *Store) committed(op, tenantID string, userID uint64) {
	if s.cfg.Invalidator != nil {
		s.cfg.Invalidator.Invalidate(tenantID, userID)
	}

	metrics.AssignmentMutations.WithLabelValues(op, "ok").Inc()
}

// failed records a failed mutation.
func failed(op string, err error, tenantID string, userID uint64) error {
	kind := access.KindOf(err)
	metrics.AssignmentMutations.WithLabelValues(op, kind.String()).Inc()

	ev := log.Warn()
	if kind == access.KindInternal || kind == access.KindUnknown {
		ev = log.Error()
	}

	ev.Err(err).Str("op", op).Str("tenant", tenantID).Uint64("user", userID).Msg("assignment mutation failed")

	return err
}
