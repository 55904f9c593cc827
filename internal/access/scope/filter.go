package scope

import (
	"github.com/scopeguard/scopeguard/internal/access"
)

// Columns filtered per level.
const (
	ColumnTenant     = "tenant_id"
	ColumnDepartment = "department_id"
	ColumnTeam       = "team_id"
	ColumnOwner      = "owner_id"
)

// rejectAll is a predicate that matches no row on every supported engine.
const rejectAll = "1 = 0"

// Subject is the user a filter is built for.
type Subject struct {
	TenantID           string   `json:"tenant_id"`
	UserID             uint64   `json:"user_id"`
	TeamID             *uint64  `json:"team_id,omitempty"`
	ManagedDepartments []uint64 `json:"managed_departments,omitempty"`
}

// Filter is a row predicate derived from one data scope level.
// An empty Predicate means no restriction.
type Filter struct {
	Level     access.DataScopeLevel `json:"level"`
	Predicate string                `json:"predicate"`
	Args      []any                 `json:"args"`
}

// Unrestricted reports whether the filter lets every row through.
func (f Filter) Unrestricted() bool {
	return f.Predicate == ""
}

// RejectsAll reports whether the filter matches no row.
func (f Filter) RejectsAll() bool {
	return f.Predicate == rejectAll
}

// ForLevel translates a level into its predicate for subject s.
// Levels that need data the subject lacks (no team, no managed department) reject all rows.
func ForLevel(level access.DataScopeLevel, s Subject) Filter {
	f := Filter{Level: level}

	switch level {
	case access.ScopeGlobal:
		return f
	case access.ScopeTenant:
		f.Predicate = ColumnTenant + " = ?"
		f.Args = []any{s.TenantID}
	case access.ScopeDepartment:
		if len(s.ManagedDepartments) == 0 {
			f.Predicate = rejectAll
			return f
		}

		f.Predicate = ColumnDepartment + " IN ?"
		f.Args = []any{s.ManagedDepartments}
	case access.ScopeTeam:
		if s.TeamID == nil {
			f.Predicate = rejectAll
			return f
		}

		f.Predicate = ColumnTeam + " = ?"
		f.Args = []any{*s.TeamID}
	case access.ScopeOwn:
		f.Predicate = ColumnOwner + " = ?"
		f.Args = []any{s.UserID}
	case access.ScopeNone:
		f.Predicate = rejectAll
	default:
		f.Level = access.ScopeNone
		f.Predicate = rejectAll
	}

	return f
}
