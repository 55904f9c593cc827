// Package scope decides which data scope levels a user holds for a permission
// and turns a level into a row filter.
package scope

import (
	"fmt"

	"github.com/scopeguard/scopeguard/internal/access"
	"github.com/scopeguard/scopeguard/internal/metrics"
)

// Decision is the outcome of ResolveScope. Every granted level is kept so
// callers can pick the broadest for reads and the narrowest for writes.
type Decision struct {
	Resource string          `json:"resource"`
	Action   string          `json:"action"`
	Allowed  bool            `json:"allowed"`
	Levels   access.ScopeSet `json:"levels"`
}

// ResolveScope looks up the levels granted for (resource, action).
// A missing permission is reported as a decision with Allowed false, never as an error.
func ResolveScope(set *access.EffectivePermissionSet, resource, action string) Decision {
	d := Decision{Resource: resource, Action: action}

	levels, ok := set.Scopes(access.Key(resource, action))
	if ok && !levels.Empty() {
		d.Allowed = true
		d.Levels = levels
	}

	metrics.Decisions.WithLabelValues("scope", metrics.Outcome(d.Allowed)).Inc()

	return d
}

// Broadest returns the least restrictive granted level.
func (d Decision) Broadest() (access.DataScopeLevel, bool) {
	if !d.Allowed {
		return access.ScopeNone, false
	}

	return d.Levels.Broadest()
}

// Narrowest returns the most restrictive granted level.
func (d Decision) Narrowest() (access.DataScopeLevel, bool) {
	if !d.Allowed {
		return access.ScopeNone, false
	}

	return d.Levels.Narrowest()
}

// Filter builds the row filter for the broadest granted level.
// A denied decision yields a filter that matches no rows.
func (d Decision) Filter(s Subject) Filter {
	level, ok := d.Broadest()
	if !ok {
		return ForLevel(access.ScopeNone, s)
	}

	return ForLevel(level, s)
}

// FilterAt builds the row filter for one of the granted levels.
func (d Decision) FilterAt(level access.DataScopeLevel, s Subject) (Filter, error) {
	if !d.Allowed || !d.Levels.Has(level) {
		return Filter{}, fmt.Errorf("%w: level %s is not granted for %s.%s",
			access.ErrValidation, level, d.Resource, d.Action)
	}

	return ForLevel(level, s), nil
}
