package assignment

import (
	"context"
	"fmt"

	"github.com/scopeguard/scopeguard/internal/access"
	"github.com/scopeguard/scopeguard/internal/db/models"
)

// MaxHistoryLimit caps the rows History returns.
const MaxHistoryLimit = 1000

// History lists the user's assignments in the tenant, active and deactivated,
// most recent first. A limit of zero uses the configured default.
func (s *Store) History(ctx context.Context, tenantID string, userID uint64, limit int) ([]models.RoleAssignment, error) {
	switch {
	case limit < 0:
		return nil, fmt.Errorf("%w: negative history limit %d", access.ErrValidation, limit)
	case limit == 0:
		limit = s.cfg.HistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}

	var rows []models.RoleAssignment
	if err := s.db.WithContext(ctx).
		Preload("Role").
		Where("tenant_id = ? AND user_id = ?", tenantID, userID).
		Order("assigned_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, access.Internal(err, "load assignment history")
	}

	return rows, nil
}

// ActiveAssignments lists the user's active rows ordered by module.
func (s *Store) ActiveAssignments(ctx context.Context, tenantID string, userID uint64) ([]models.RoleAssignment, error) {
	var rows []models.RoleAssignment
	if err := s.db.WithContext(ctx).
		Preload("Role").
		Where("tenant_id = ? AND user_id = ? AND is_active = ?", tenantID, userID, true).
		Order("module_code").
		Find(&rows).Error; err != nil {
		return nil, access.Internal(err, "load active assignments")
	}

	return rows, nil
}
