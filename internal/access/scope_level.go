package access

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// DataScopeLevel is the breadth of records a grant covers.
// Levels are totally ordered from ScopeNone (nothing) to ScopeGlobal (every tenant).
type DataScopeLevel uint8

const (
	// ScopeNone grants no records at all.
	ScopeNone DataScopeLevel = iota
	// ScopeOwn covers records the user created or owns.
	ScopeOwn
	// ScopeTeam covers records of the user's team.
	ScopeTeam
	// ScopeDepartment covers records of the departments the user manages.
	ScopeDepartment
	// ScopeTenant covers every record of the tenant.
	ScopeTenant
	// ScopeGlobal is unrestricted across tenants.
	ScopeGlobal
)

var scopeLevelNames = [...]string{ //nolint:gochecknoglobals
	ScopeNone:       "none",
	ScopeOwn:        "own",
	ScopeTeam:       "team",
	ScopeDepartment: "department",
	ScopeTenant:     "tenant",
	ScopeGlobal:     "global",
}

// AllScopeLevels lists every level from narrowest to broadest.
func AllScopeLevels() []DataScopeLevel {
	return []DataScopeLevel{ScopeNone, ScopeOwn, ScopeTeam, ScopeDepartment, ScopeTenant, ScopeGlobal}
}

// Valid reports whether l is one of the declared levels.
func (l DataScopeLevel) Valid() bool {
	return l <= ScopeGlobal
}

func (l DataScopeLevel) String() string {
	if !l.Valid() {
		return fmt.Sprintf("DataScopeLevel(%d)", uint8(l))
	}

	return scopeLevelNames[l]
}

// ParseDataScopeLevel parses the lower-case level name.
func ParseDataScopeLevel(s string) (DataScopeLevel, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range scopeLevelNames {
		if n == name {
			return DataScopeLevel(i), nil
		}
	}

	return ScopeNone, fmt.Errorf("%w: unknown data scope level %q", ErrValidation, s)
}

// MarshalText implements encoding.TextMarshaler.
func (l DataScopeLevel) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("%w: invalid data scope level %d", ErrValidation, uint8(l))
	}

	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *DataScopeLevel) UnmarshalText(b []byte) error {
	parsed, err := ParseDataScopeLevel(string(b))
	if err != nil {
		return err
	}

	*l = parsed

	return nil
}

// Value stores the level by name.
func (l DataScopeLevel) Value() (driver.Value, error) {
	b, err := l.MarshalText()
	if err != nil {
		return nil, err
	}

	return string(b), nil
}

// Scan reads a level stored by name.
func (l *DataScopeLevel) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return l.UnmarshalText([]byte(v))
	case []byte:
		return l.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into DataScopeLevel", src)
	}
}

// ScopeSet is a set of DataScopeLevel values. Levels are not cumulative:
// holding ScopeTenant does not imply holding ScopeOwn unless both are granted.
type ScopeSet uint8

// NewScopeSet builds a set from the given levels.
func NewScopeSet(levels ...DataScopeLevel) ScopeSet {
	var s ScopeSet
	for _, l := range levels {
		s = s.Add(l)
	}

	return s
}

// Add returns s with l added. Invalid levels are ignored.
func (s ScopeSet) Add(l DataScopeLevel) ScopeSet {
	if !l.Valid() {
		return s
	}

	return s | 1<<l
}

// Has reports whether l is in the set.
func (s ScopeSet) Has(l DataScopeLevel) bool {
	return l.Valid() && s&(1<<l) != 0
}

// Union returns every level held by s or o.
func (s ScopeSet) Union(o ScopeSet) ScopeSet {
	return s | o
}

// Empty reports whether the set holds no level.
func (s ScopeSet) Empty() bool {
	return s == 0
}

// Levels returns the members ordered from narrowest to broadest.
func (s ScopeSet) Levels() []DataScopeLevel {
	out := make([]DataScopeLevel, 0, len(scopeLevelNames))
	for _, l := range AllScopeLevels() {
		if s.Has(l) {
			out = append(out, l)
		}
	}

	return out
}

// Broadest returns the least restrictive member.
func (s ScopeSet) Broadest() (DataScopeLevel, bool) {
	levels := s.Levels()
	if len(levels) == 0 {
		return ScopeNone, false
	}

	return levels[len(levels)-1], true
}

// Narrowest returns the most restrictive member.
func (s ScopeSet) Narrowest() (DataScopeLevel, bool) {
	levels := s.Levels()
	if len(levels) == 0 {
		return ScopeNone, false
	}

	return levels[0], true
}

func (s ScopeSet) String() string {
	levels := s.Levels()
	names := make([]string, len(levels))

	for i, l := range levels {
		names[i] = l.String()
	}

	return strings.Join(names, ",")
}

// ParseScopeSet parses a comma separated list of level names.
func ParseScopeSet(raw string) (ScopeSet, error) {
	var s ScopeSet

	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}

		l, err := ParseDataScopeLevel(part)
		if err != nil {
			return 0, err
		}

		s = s.Add(l)
	}

	return s, nil
}

// MarshalJSON renders the set as an ordered array of level names.
func (s ScopeSet) MarshalJSON() ([]byte, error) {
	levels := s.Levels()
	names := make([]string, len(levels))

	for i, l := range levels {
		names[i] = l.String()
	}

	return json.Marshal(names) //nolint:wrapcheck
}

// UnmarshalJSON reads an array of level names.
func (s *ScopeSet) UnmarshalJSON(b []byte) error {
	var names []string
	if err := json.Unmarshal(b, &names); err != nil {
		return fmt.Errorf("%w: scope set: %w", ErrValidation, err)
	}

	parsed, err := ParseScopeSet(strings.Join(names, ","))
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}

// Value stores the set as a comma separated list.
func (s ScopeSet) Value() (driver.Value, error) {
	return s.String(), nil
}

// Scan reads a comma separated list.
func (s *ScopeSet) Scan(src any) error {
	var raw string

	switch v := src.(type) {
	case nil:
		*s = 0
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into ScopeSet", src)
	}

	parsed, err := ParseScopeSet(raw)
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}
