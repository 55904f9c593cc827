package access

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a user, role, module or assignment does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for missing or malformed input, e.g. a temporary
	// assignment longer than MaxTemporaryHours.
	ErrValidation = errors.New("validation error")

	// ErrInvalidState is returned when the request is well formed but the current
	// state forbids it, e.g. the module is not active for the tenant.
	ErrInvalidState = errors.New("invalid state")

	// ErrConflict is returned when a role is incompatible with another active
	// assignment of the same user, or a concurrent writer won the active slot.
	ErrConflict = errors.New("conflict")

	// ErrInternal wraps repository and storage failures.
	ErrInternal = errors.New("internal error")
)

// Kind classifies an error of the taxonomy.
type Kind uint8

const (
	// KindUnknown is any error outside the taxonomy.
	KindUnknown Kind = iota
	// KindNotFound maps to ErrNotFound.
	KindNotFound
	// KindValidation maps to ErrValidation.
	KindValidation
	// KindInvalidState maps to ErrInvalidState.
	KindInvalidState
	// KindConflict maps to ErrConflict.
	KindConflict
	// KindInternal maps to ErrInternal.
	KindInternal
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindInvalidState:
		return "invalid_state"
	case KindConflict:
		return "conflict"
	case KindInternal:
		return "internal"
	case KindUnknown:
		return "unknown"
	}

	return "unknown"
}

// KindOf reports which taxonomy sentinel err wraps.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrInternal):
		return KindInternal
	default:
		return KindUnknown
	}
}

// Internal wraps a storage failure so it classifies as ErrInternal while
// keeping the cause reachable through errors.Is / errors.As.
func Internal(err error, msg string) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%w: %s: %w", ErrInternal, msg, err)
}
