package field

import (
	"sort"

	"github.com/scopeguard/scopeguard/internal/access"
)

// Evaluate returns the access level and configured strategy for resource.field.
//
// Without any permission on the resource the field is denied. Rules naming the
// field beat rules on the wildcard "*". Within the winning tier the least
// restrictive level wins, except that hidden and denied rules of non-default
// roles always hold. Hidden and denied rules of default roles give way to any
// readable rule of another role. Without applicable rules the field is full
// when the user may write the resource and read otherwise.
func Evaluate(set *access.EffectivePermissionSet, resource, field string) (access.FieldAccessLevel, access.MaskingStrategy) {
	if !set.HasResource(resource) {
		return access.FieldDenied, access.MaskUnset
	}

	var exact, wildcard []access.FieldGrant

	for _, g := range set.FieldGrants[resource] {
		switch g.Field {
		case field:
			exact = append(exact, g)
		case access.WildcardField:
			wildcard = append(wildcard, g)
		}
	}

	if len(exact) > 0 {
		level, strategy, fromDefault := combine(exact)
		if !level.Terminal() || !fromDefault {
			return level, strategy
		}

		if l, s, _ := combine(explicitReadable(wildcard)); l.Valid() {
			return l, s
		}

		return level, strategy
	}

	if len(wildcard) > 0 {
		level, strategy, _ := combine(wildcard)
		return level, strategy
	}

	for _, action := range set.Actions(resource) {
		if access.IsWriteAction(action) {
			return access.FieldFull, access.MaskUnset
		}
	}

	return access.FieldRead, access.MaskUnset
}

// combine folds the grants of one tier. fromDefault is true when the result is
// a terminal level that only default roles asked for. An empty tier yields an
// invalid level.
func combine(grants []access.FieldGrant) (access.FieldAccessLevel, access.MaskingStrategy, bool) {
	var (
		sticky, fallback, open access.FieldAccessLevel
		strategy               access.MaskingStrategy
	)

	for _, g := range grants {
		switch {
		case g.AccessLevel.Terminal() && g.FromDefault:
			fallback = mergeTerminal(fallback, g.AccessLevel)
		case g.AccessLevel.Terminal():
			sticky = mergeTerminal(sticky, g.AccessLevel)
		case !g.AccessLevel.Valid():
			continue
		case !open.Valid() || g.AccessLevel < open:
			open = g.AccessLevel
			strategy = g.Strategy
		case g.AccessLevel == open && strategy == access.MaskUnset:
			strategy = g.Strategy
		}
	}

	switch {
	case sticky.Valid():
		return sticky, access.MaskUnset, false
	case open.Valid():
		return open, strategy, false
	default:
		return fallback, access.MaskUnset, fallback.Valid()
	}
}

func mergeTerminal(cur, l access.FieldAccessLevel) access.FieldAccessLevel {
	if !cur.Valid() {
		return l
	}

	return access.LessRestrictive(cur, l)
}

// explicitReadable keeps the readable grants of non-default roles.
func explicitReadable(grants []access.FieldGrant) []access.FieldGrant {
	var out []access.FieldGrant

	for _, g := range grants {
		if !g.FromDefault && g.AccessLevel.Readable() {
			out = append(out, g)
		}
	}

	return out
}

func sortedKeys(record map[string]any) []string {
	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
