// Package field decides how each field of a record is disclosed to a user and
// masks the values accordingly.
package field

import (
	"github.com/scopeguard/scopeguard/internal/access"
	"github.com/scopeguard/scopeguard/internal/metrics"
)

// DeniedSentinel is the display value of denied fields.
const DeniedSentinel = "[ACCESS DENIED]"

// Decision is the outcome of resolving one field.
type Decision struct {
	Resource        string                  `json:"resource"`
	Field           string                  `json:"field"`
	AccessLevel     access.FieldAccessLevel `json:"access_level"`
	DisplayValue    any                     `json:"display_value"`
	AppliedStrategy access.MaskingStrategy  `json:"applied_strategy"`
	Editable        bool                    `json:"editable"`
}

// Omitted reports whether the field must be left out of the output.
func (d Decision) Omitted() bool {
	return d.AccessLevel == access.FieldHidden
}

// ResolveField resolves one field with the default masker.
func ResolveField(set *access.EffectivePermissionSet, resource, field string, value any) Decision {
	return DefaultMasker().ResolveField(set, resource, field, value)
}

// ResolveField decides the access level of resource.field and transforms value for display.
func (m Masker) ResolveField(set *access.EffectivePermissionSet, resource, field string, value any) Decision {
	level, strategy := Evaluate(set, resource, field)

	d := Decision{
		Resource:        resource,
		Field:           field,
		AccessLevel:     level,
		AppliedStrategy: strategy.ForLevel(level),
		Editable:        level == access.FieldFull,
	}

	switch level {
	case access.FieldFull, access.FieldRead:
		d.DisplayValue = value
	case access.FieldPartial, access.FieldMasked:
		d.DisplayValue = m.Apply(d.AppliedStrategy, value)
	case access.FieldHidden:
		d.DisplayValue = nil
	case access.FieldDenied:
		d.DisplayValue = DeniedSentinel
	}

	metrics.Decisions.WithLabelValues("field", metrics.Outcome(level.Readable())).Inc()

	return d
}

// ResolveRecord resolves every field of record. Hidden fields are dropped from
// the returned view; denied fields carry DeniedSentinel.
func (m Masker) ResolveRecord(
	set *access.EffectivePermissionSet, resource string, record map[string]any,
) (map[string]any, []Decision) {
	view := make(map[string]any, len(record))
	decisions := make([]Decision, 0, len(record))

	for _, name := range sortedKeys(record) {
		d := m.ResolveField(set, resource, name, record[name])
		decisions = append(decisions, d)

		if d.Omitted() {
			continue
		}

		view[name] = d.DisplayValue
	}

	return view, decisions
}

// ResolveRecord resolves a record with the default masker.
func ResolveRecord(
	set *access.EffectivePermissionSet, resource string, record map[string]any,
) (map[string]any, []Decision) {
	return DefaultMasker().ResolveRecord(set, resource, record)
}
