package field

import (
	"context"
	"strconv"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/scopeguard/scopeguard/internal/access"
	"github.com/scopeguard/scopeguard/internal/audit"
)

// Recorder appends audit entries.
type Recorder interface {
	Record(ctx context.Context, tx *gorm.DB, e audit.Entry) error
}

// Resolver resolves fields and writes an audit entry for every denied field.
type Resolver struct {
	masker   Masker
	recorder Recorder
}

// NewResolver returns a resolver masking with m and auditing through rec.
func NewResolver(m Masker, rec Recorder) *Resolver {
	return &Resolver{masker: m.withDefaults(), recorder: rec}
}

// ResolveField resolves one field of the record identified by recordID.
func (r *Resolver) ResolveField(
	ctx context.Context, set *access.EffectivePermissionSet, resource, recordID, field string, value any,
) (Decision, error) {
	d := r.masker.ResolveField(set, resource, field, value)

	if d.AccessLevel == access.FieldDenied {
		if err := r.recordDenied(ctx, set, recordID, d); err != nil {
			return d, err
		}
	}

	return d, nil
}

// ResolveRecord resolves every field of the record identified by recordID.
func (r *Resolver) ResolveRecord(
	ctx context.Context, set *access.EffectivePermissionSet, resource, recordID string, record map[string]any,
) (map[string]any, []Decision, error) {
	view, decisions := r.masker.ResolveRecord(set, resource, record)

	for _, d := range decisions {
		if d.AccessLevel != access.FieldDenied {
			continue
		}

		if err := r.recordDenied(ctx, set, recordID, d); err != nil {
			return view, decisions, err
		}
	}

	return view, decisions, nil
}

func (r *Resolver) recordDenied(ctx context.Context, set *access.EffectivePermissionSet, recordID string, d Decision) error {
	var (
		tenantID string
		userID   uint64
	)

	if set != nil {
		tenantID, userID = set.TenantID, set.UserID
	}

	log.Debug().
		Str("tenant", tenantID).
		Uint64("user", userID).
		Str("resource", d.Resource).
		Str("field", d.Field).
		Msg("field access denied")

	if r.recorder == nil {
		return nil
	}

	return r.recorder.Record(ctx, nil, audit.Entry{ //nolint:wrapcheck
		TenantID:     tenantID,
		Actor:        strconv.FormatUint(userID, 10),
		Action:       audit.ActionFieldDenied,
		ResourceType: audit.ResourceField,
		ResourceID:   d.Resource + "." + d.Field,
		Details: map[string]any{
			"user_id":   userID,
			"resource":  d.Resource,
			"field":     d.Field,
			"record_id": recordID,
		},
	})
}
