package access

import (
	"sort"
	"time"
)

// AssignmentRef is the slice of a role assignment the effective set keeps.
type AssignmentRef struct {
	AssignmentID uint64     `json:"assignment_id"`
	ModuleCode   string     `json:"module_code"`
	RoleID       uint       `json:"role_id"`
	RoleName     string     `json:"role_name"`
	IsDefault    bool       `json:"is_default"`
	ValidUntil   *time.Time `json:"valid_until,omitempty"`
}

// FieldGrant is a field rule contributed by one of the user's roles.
type FieldGrant struct {
	Resource    string           `json:"resource"`
	Field       string           `json:"field"`
	AccessLevel FieldAccessLevel `json:"access_level"`
	Strategy    MaskingStrategy  `json:"masking_strategy"`
	RoleID      uint             `json:"role_id"`
	FromDefault bool             `json:"from_default"`
}

// Conflict reports two active assignments declared mutually exclusive.
type Conflict struct {
	First  AssignmentRef `json:"first"`
	Second AssignmentRef `json:"second"`
	Reason string        `json:"reason"`
}

// EffectivePermissionSet is the union of every grant a user holds at EvaluatedAt.
// It is derived per request and never stored.
type EffectivePermissionSet struct {
	TenantID    string     `json:"tenant_id"`
	UserID      uint64     `json:"user_id"`
	EvaluatedAt time.Time  `json:"evaluated_at"`
	ValidUntil  *time.Time `json:"valid_until,omitempty"`

	Assignments        []AssignmentRef           `json:"assignments"`
	ScopesByPermission map[PermissionKey]ScopeSet `json:"-"`
	FieldGrants        map[string][]FieldGrant   `json:"-"`
	Conflicts          []Conflict                `json:"conflicts"`
}

// NewEffectivePermissionSet returns an empty set for the user at now.
func NewEffectivePermissionSet(tenantID string, userID uint64, now time.Time) *EffectivePermissionSet {
	return &EffectivePermissionSet{
		TenantID:           tenantID,
		UserID:             userID,
		EvaluatedAt:        now,
		ScopesByPermission: make(map[PermissionKey]ScopeSet),
		FieldGrants:        make(map[string][]FieldGrant),
	}
}

// Grant adds a permission and unions its scope levels with what is already held.
func (e *EffectivePermissionSet) Grant(key PermissionKey, scopes ScopeSet) {
	e.ScopesByPermission[key] = e.ScopesByPermission[key].Union(scopes)
}

// AddFieldGrant records a field rule for its resource.
func (e *EffectivePermissionSet) AddFieldGrant(g FieldGrant) {
	e.FieldGrants[g.Resource] = append(e.FieldGrants[g.Resource], g)
}

// Has reports whether the permission is held.
func (e *EffectivePermissionSet) Has(key PermissionKey) bool {
	if e == nil {
		return false
	}

	_, ok := e.ScopesByPermission[key]

	return ok
}

// Scopes returns the levels held for the permission.
func (e *EffectivePermissionSet) Scopes(key PermissionKey) (ScopeSet, bool) {
	if e == nil {
		return 0, false
	}

	s, ok := e.ScopesByPermission[key]

	return s, ok
}

// HasResource reports whether any action on resource is held.
func (e *EffectivePermissionSet) HasResource(resource string) bool {
	return len(e.Actions(resource)) > 0
}

// Actions returns the sorted actions held on resource.
func (e *EffectivePermissionSet) Actions(resource string) []string {
	if e == nil {
		return nil
	}

	var out []string

	for k := range e.ScopesByPermission {
		if k.Resource == resource {
			out = append(out, k.Action)
		}
	}

	sort.Strings(out)

	return out
}

// Permissions returns every held permission ordered by resource then action.
func (e *EffectivePermissionSet) Permissions() []PermissionKey {
	if e == nil {
		return nil
	}

	out := make([]PermissionKey, 0, len(e.ScopesByPermission))
	for k := range e.ScopesByPermission {
		out = append(out, k)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Resource != out[j].Resource {
			return out[i].Resource < out[j].Resource
		}

		return out[i].Action < out[j].Action
	})

	return out
}

// HasConflicts reports whether the aggregator flagged incompatible assignments.
func (e *EffectivePermissionSet) HasConflicts() bool {
	return e != nil && len(e.Conflicts) > 0
}

// StillValidAt reports whether the set describes the same grants at t.
func (e *EffectivePermissionSet) StillValidAt(t time.Time) bool {
	if e == nil || t.Before(e.EvaluatedAt) {
		return false
	}

	return e.ValidUntil == nil || t.Before(*e.ValidUntil)
}
