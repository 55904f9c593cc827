package access

import (
	"fmt"
	"strings"
)

// WildcardField is the FieldRule field name that applies to every field of a resource.
const WildcardField = "*"

// PermissionKey identifies a permission by resource and action.
type PermissionKey struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

// Key builds a PermissionKey from its parts.
func Key(resource, action string) PermissionKey {
	return PermissionKey{Resource: resource, Action: action}
}

// String renders the key in resource.action form.
func (k PermissionKey) String() string {
	return k.Resource + "." + k.Action
}

// ParsePermissionKey parses the resource.action form. The action is the last
// dot separated segment, so resources may contain dots.
func ParsePermissionKey(s string) (PermissionKey, error) {
	idx := strings.LastIndex(s, ".")
	if idx <= 0 || idx == len(s)-1 {
		return PermissionKey{}, fmt.Errorf("%w: permission %q is not in resource.action form", ErrValidation, s)
	}

	return PermissionKey{Resource: s[:idx], Action: s[idx+1:]}, nil
}

// writeActions are the actions that make a field editable when no field rule applies.
var writeActions = map[string]struct{}{ //nolint:gochecknoglobals
	"create": {},
	"update": {},
	"write":  {},
	"manage": {},
}

// IsWriteAction reports whether action modifies a resource.
func IsWriteAction(action string) bool {
	_, ok := writeActions[strings.ToLower(action)]
	return ok
}
