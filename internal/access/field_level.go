package access

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// FieldAccessLevel is how much of a single field a user may see.
//
// FieldFull, FieldRead, FieldPartial and FieldMasked are ordered by increasing
// restriction. FieldHidden and FieldDenied are terminal and incomparable:
// hidden fields are omitted from output, denied fields are present but refused.
type FieldAccessLevel uint8

const (
	fieldLevelInvalid FieldAccessLevel = iota
	// FieldFull allows reading and writing the field.
	FieldFull
	// FieldRead allows reading the field; writes are rejected upstream.
	FieldRead
	// FieldPartial reveals part of the value (see MaskPartialReveal).
	FieldPartial
	// FieldMasked replaces the value according to a MaskingStrategy.
	FieldMasked
	// FieldHidden omits the field entirely.
	FieldHidden
	// FieldDenied keeps the field but refuses access to its value.
	FieldDenied
)

var fieldLevelNames = [...]string{ //nolint:gochecknoglobals
	fieldLevelInvalid: "",
	FieldFull:         "full",
	FieldRead:         "read",
	FieldPartial:      "partial",
	FieldMasked:       "masked",
	FieldHidden:       "hidden",
	FieldDenied:       "denied",
}

// Valid reports whether l is one of the declared levels.
func (l FieldAccessLevel) Valid() bool {
	return l >= FieldFull && l <= FieldDenied
}

// Terminal reports whether l is hidden or denied.
func (l FieldAccessLevel) Terminal() bool {
	return l == FieldHidden || l == FieldDenied
}

// Readable reports whether the raw or transformed value leaves the boundary.
func (l FieldAccessLevel) Readable() bool {
	switch l {
	case FieldFull, FieldRead, FieldPartial, FieldMasked:
		return true
	case FieldHidden, FieldDenied, fieldLevelInvalid:
		return false
	}

	return false
}

// LessRestrictive returns the more permissive of two non-terminal levels.
// If either level is terminal the other one is returned unless both are terminal,
// in which case FieldDenied is preferred over FieldHidden.
func LessRestrictive(a, b FieldAccessLevel) FieldAccessLevel {
	switch {
	case a.Terminal() && b.Terminal():
		if a == FieldDenied || b == FieldDenied {
			return FieldDenied
		}

		return FieldHidden
	case a.Terminal():
		return b
	case b.Terminal():
		return a
	case a <= b:
		return a
	default:
		return b
	}
}

func (l FieldAccessLevel) String() string {
	if !l.Valid() {
		return fmt.Sprintf("FieldAccessLevel(%d)", uint8(l))
	}

	return fieldLevelNames[l]
}

// ParseFieldAccessLevel parses the lower-case level name.
func ParseFieldAccessLevel(s string) (FieldAccessLevel, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range fieldLevelNames {
		if n != "" && n == name {
			return FieldAccessLevel(i), nil
		}
	}

	return fieldLevelInvalid, fmt.Errorf("%w: unknown field access level %q", ErrValidation, s)
}

// MarshalText implements encoding.TextMarshaler.
func (l FieldAccessLevel) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("%w: invalid field access level %d", ErrValidation, uint8(l))
	}

	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *FieldAccessLevel) UnmarshalText(b []byte) error {
	parsed, err := ParseFieldAccessLevel(string(b))
	if err != nil {
		return err
	}

	*l = parsed

	return nil
}

// Value stores the level by name.
func (l FieldAccessLevel) Value() (driver.Value, error) {
	b, err := l.MarshalText()
	if err != nil {
		return nil, err
	}

	return string(b), nil
}

// Scan reads a level stored by name.
func (l *FieldAccessLevel) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return l.UnmarshalText([]byte(v))
	case []byte:
		return l.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into FieldAccessLevel", src)
	}
}

// MaskingStrategy is the transformation applied to masked and partial fields.
type MaskingStrategy uint8

const (
	// MaskUnset means the rule named no strategy; the level's default applies.
	MaskUnset MaskingStrategy = iota
	// MaskNone names no transformation explicitly; masked levels still redact.
	MaskNone
	// MaskRedact replaces the value with a fixed-length marker.
	MaskRedact
	// MaskPartialReveal keeps a fixed-length suffix and redacts the rest.
	MaskPartialReveal
	// MaskDomainPreserving redacts the local part of an email address.
	MaskDomainPreserving
	// MaskCurrencyRound rounds numbers to a coarse granularity.
	MaskCurrencyRound
)

var maskingNames = [...]string{ //nolint:gochecknoglobals
	MaskUnset:            "",
	MaskNone:             "none",
	MaskRedact:           "redact",
	MaskPartialReveal:    "partial-reveal",
	MaskDomainPreserving: "domain-preserving",
	MaskCurrencyRound:    "currency-round",
}

// Valid reports whether s is one of the declared strategies.
func (s MaskingStrategy) Valid() bool {
	return s <= MaskCurrencyRound
}

func (s MaskingStrategy) String() string {
	if !s.Valid() {
		return fmt.Sprintf("MaskingStrategy(%d)", uint8(s))
	}

	return maskingNames[s]
}

// ParseMaskingStrategy parses a strategy name. The empty string yields MaskUnset.
func ParseMaskingStrategy(s string) (MaskingStrategy, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range maskingNames {
		if n == name {
			return MaskingStrategy(i), nil
		}
	}

	return MaskUnset, fmt.Errorf("%w: unknown masking strategy %q", ErrValidation, s)
}

// ForLevel returns the strategy that actually applies at the given level.
// Levels other than masked and partial never transform values.
func (s MaskingStrategy) ForLevel(l FieldAccessLevel) MaskingStrategy {
	switch l {
	case FieldMasked:
		if s == MaskUnset || s == MaskNone {
			return MaskRedact
		}

		return s
	case FieldPartial:
		if s == MaskUnset || s == MaskNone {
			return MaskPartialReveal
		}

		return s
	case FieldFull, FieldRead, FieldHidden, FieldDenied, fieldLevelInvalid:
		return MaskNone
	}

	return MaskNone
}

// MarshalText implements encoding.TextMarshaler.
func (s MaskingStrategy) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: invalid masking strategy %d", ErrValidation, uint8(s))
	}

	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *MaskingStrategy) UnmarshalText(b []byte) error {
	parsed, err := ParseMaskingStrategy(string(b))
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}

// Value stores the strategy by name.
func (s MaskingStrategy) Value() (driver.Value, error) {
	b, err := s.MarshalText()
	if err != nil {
		return nil, err
	}

	return string(b), nil
}

// Scan reads a strategy stored by name. NULL yields MaskUnset.
func (s *MaskingStrategy) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = MaskUnset
		return nil
	case string:
		return s.UnmarshalText([]byte(v))
	case []byte:
		return s.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into MaskingStrategy", src)
	}
}
