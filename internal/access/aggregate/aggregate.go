// Package aggregate computes a user's effective permission set from their
// active role assignments across every module.
package aggregate

import (
	"context"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/scopeguard/scopeguard/internal/access"
	"github.com/scopeguard/scopeguard/internal/db/controller/role"
	"github.com/scopeguard/scopeguard/internal/db/models"
)

// Compute builds the effective permission set of the user at now.
//
// Only assignments effective at now contribute. Scope levels of the same
// permission held through several roles are unioned. A permission without a
// scope rule falls back to its default scope and then to own. Field rules count
// only for resources the contributing role grants a permission on.
// ValidUntil is set to the next instant an assignment starts or ends.
func Compute(ctx context.Context, db *gorm.DB, tenantID string, userID uint64, now time.Time) (*access.EffectivePermissionSet, error) {
	var rows []models.RoleAssignment

	err := db.WithContext(ctx).
		Preload("Role.Permissions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, permission_id ASC")
		}).
		Preload("Role.Permissions.Permission").
		Preload("Role.ScopeRules").
		Preload("Role.FieldRules").
		Where("tenant_id = ? AND user_id = ? AND is_active = ?", tenantID, userID, true).
		Where("valid_until IS NULL OR valid_until > ?", now).
		Order("module_code ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr //nolint:wrapcheck
		}

		return nil, access.Internal(err, "load active assignments")
	}

	set := access.NewEffectivePermissionSet(tenantID, userID, now)
	refs := make(map[uint]access.AssignmentRef, len(rows))

	for i := range rows {
		if err = ctx.Err(); err != nil {
			return nil, err //nolint:wrapcheck
		}

		a := &rows[i]

		if a.ValidFrom.After(now) {
			set.ValidUntil = earliest(set.ValidUntil, a.ValidFrom)
			continue
		}

		if a.ValidUntil != nil {
			set.ValidUntil = earliest(set.ValidUntil, *a.ValidUntil)
		}

		ref := access.AssignmentRef{
			AssignmentID: a.ID,
			ModuleCode:   a.ModuleCode,
			RoleID:       a.RoleID,
			RoleName:     a.Role.Name,
			IsDefault:    a.Role.IsDefault,
			ValidUntil:   a.ValidUntil,
		}
		set.Assignments = append(set.Assignments, ref)
		refs[a.RoleID] = ref

		addRole(set, &a.Role)
	}

	conflicts, err := detectConflicts(db.WithContext(ctx), refs)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr //nolint:wrapcheck
		}

		return nil, err
	}

	set.Conflicts = conflicts

	return set, nil
}

func addRole(set *access.EffectivePermissionSet, r *models.Role) {
	rules := make(map[access.PermissionKey]access.ScopeSet, len(r.ScopeRules))
	for i := range r.ScopeRules {
		rules[r.ScopeRules[i].Key()] = rules[r.ScopeRules[i].Key()].Union(r.ScopeRules[i].Levels)
	}

	for i := range r.Permissions {
		rp := &r.Permissions[i]
		key := rp.Key()

		levels, ok := rules[key]

		switch {
		case ok:
		case rp.DefaultScope != nil:
			levels = access.NewScopeSet(*rp.DefaultScope)
		default:
			levels = access.NewScopeSet(access.ScopeOwn)
		}

		set.Grant(key, levels)
	}

	for i := range r.FieldRules {
		fr := &r.FieldRules[i]
		if !r.GrantsResource(fr.Resource) {
			continue
		}

		set.AddFieldGrant(access.FieldGrant{
			Resource:    fr.Resource,
			Field:       fr.Field,
			AccessLevel: fr.AccessLevel,
			Strategy:    fr.Strategy,
			RoleID:      r.ID,
			FromDefault: r.IsDefault,
		})
	}
}

// detectConflicts reports every declared incompatible pair among the held roles.
func detectConflicts(db *gorm.DB, refs map[uint]access.AssignmentRef) ([]access.Conflict, error) {
	if len(refs) < 2 { //nolint:mnd
		return nil, nil
	}

	ids := make([]uint, 0, len(refs))
	for id := range refs {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	pairs, err := role.Incompatibilities(db, ids)
	if err != nil {
		return nil, err
	}

	var out []access.Conflict

	for _, p := range pairs {
		first, okA := refs[p.RoleAID]
		second, okB := refs[p.RoleBID]

		if okA && okB {
			out = append(out, access.Conflict{First: first, Second: second, Reason: p.Reason})
		}
	}

	return out, nil
}

func earliest(cur *time.Time, t time.Time) *time.Time {
	if cur == nil || t.Before(*cur) {
		return &t
	}

	return cur
}
