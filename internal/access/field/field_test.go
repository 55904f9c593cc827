package field_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scopeguard/scopeguard/internal/access"
	"github.com/scopeguard/scopeguard/internal/access/field"
	"github.com/scopeguard/scopeguard/internal/audit"
	"github.com/scopeguard/scopeguard/internal/db/dbtest"
)

type grant struct {
	field       string
	level       access.FieldAccessLevel
	strategy    access.MaskingStrategy
	role        uint
	fromDefault bool
}

func effectiveSet(actions []string, grants ...grant) *access.EffectivePermissionSet {
	set := access.NewEffectivePermissionSet("acme", 7, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	for _, a := range actions {
		set.Grant(access.Key("users", a), access.NewScopeSet(access.ScopeTenant))
	}

	for _, g := range grants {
		set.AddFieldGrant(access.FieldGrant{
			Resource:    "users",
			Field:       g.field,
			AccessLevel: g.level,
			Strategy:    g.strategy,
			RoleID:      g.role,
			FromDefault: g.fromDefault,
		})
	}

	return set
}

func TestMostSpecificRuleWins(t *testing.T) {
	set := effectiveSet([]string{"read"},
		grant{field: "*", level: access.FieldRead, role: 1},
		grant{field: "ssn", level: access.FieldDenied, role: 1},
	)

	view, decisions := field.ResolveRecord(set, "users", map[string]any{
		"name":  "Ann",
		"email": "ann@acme.example",
		"ssn":   "123-45-6789",
	})

	require.Len(t, decisions, 3)

	for _, d := range decisions {
		if d.Field == "ssn" {
			assert.Equal(t, access.FieldDenied, d.AccessLevel)
			continue
		}

		assert.Equal(t, access.FieldRead, d.AccessLevel, d.Field)
		assert.False(t, d.Editable)
	}

	assert.Equal(t, field.DeniedSentinel, view["ssn"])
	assert.Equal(t, "Ann", view["name"])
}

func TestRedactNeverRevealsDigits(t *testing.T) {
	set := effectiveSet([]string{"read"},
		grant{field: "ssn", level: access.FieldMasked, strategy: access.MaskRedact, role: 1},
	)

	d := field.ResolveField(set, "users", "ssn", "123-45-6789")
	require.Equal(t, access.FieldMasked, d.AccessLevel)
	assert.Equal(t, access.MaskRedact, d.AppliedStrategy)

	shown, ok := d.DisplayValue.(string)
	require.True(t, ok)
	assert.Equal(t, field.DefaultRedactionMarker, shown)
	assert.False(t, strings.ContainsAny(shown, "0123456789-"))

	other := field.ResolveField(set, "users", "ssn", "1")
	assert.Equal(t, len(shown), len(other.DisplayValue.(string)), "marker length does not depend on the value")
}

func TestLeastRestrictiveAmongEqualSpecificity(t *testing.T) {
	set := effectiveSet([]string{"read"},
		grant{field: "salary", level: access.FieldMasked, strategy: access.MaskCurrencyRound, role: 1},
		grant{field: "salary", level: access.FieldRead, role: 2},
	)

	level, _ := field.Evaluate(set, "users", "salary")
	assert.Equal(t, access.FieldRead, level)
}

func TestExplicitDenyIsNotOverriddenByOtherRole(t *testing.T) {
	set := effectiveSet([]string{"read"},
		grant{field: "ssn", level: access.FieldHidden, role: 1},
		grant{field: "ssn", level: access.FieldFull, role: 2},
	)

	d := field.ResolveField(set, "users", "ssn", "123-45-6789")
	assert.Equal(t, access.FieldHidden, d.AccessLevel)
	assert.True(t, d.Omitted())
	assert.Nil(t, d.DisplayValue)
}

func TestDefaultRoleDenyYieldsToExplicitGrant(t *testing.T) {
	testCases := []struct {
		name   string
		grants []grant
		want   access.FieldAccessLevel
	}{
		{
			name: "same tier",
			grants: []grant{
				{field: "ssn", level: access.FieldDenied, role: 1, fromDefault: true},
				{field: "ssn", level: access.FieldPartial, strategy: access.MaskPartialReveal, role: 2},
			},
			want: access.FieldPartial,
		},
		{
			name: "wildcard of another role",
			grants: []grant{
				{field: "ssn", level: access.FieldDenied, role: 1, fromDefault: true},
				{field: "*", level: access.FieldRead, role: 2},
			},
			want: access.FieldRead,
		},
		{
			name: "wildcard of the default role itself",
			grants: []grant{
				{field: "ssn", level: access.FieldDenied, role: 1, fromDefault: true},
				{field: "*", level: access.FieldRead, role: 1, fromDefault: true},
			},
			want: access.FieldDenied,
		},
		{
			name: "denied beats hidden",
			grants: []grant{
				{field: "ssn", level: access.FieldHidden, role: 1},
				{field: "ssn", level: access.FieldDenied, role: 2},
			},
			want: access.FieldDenied,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			level, _ := field.Evaluate(effectiveSet([]string{"read"}, tc.grants...), "users", "ssn")
			assert.Equal(t, tc.want, level)
		})
	}
}

func TestNoRulesFallsBackToActions(t *testing.T) {
	level, _ := field.Evaluate(effectiveSet([]string{"read"}), "users", "name")
	assert.Equal(t, access.FieldRead, level)

	d := field.ResolveField(effectiveSet([]string{"read", "update"}), "users", "name", "Ann")
	assert.Equal(t, access.FieldFull, d.AccessLevel)
	assert.True(t, d.Editable)
	assert.Equal(t, "Ann", d.DisplayValue)

	d = field.ResolveField(effectiveSet(nil), "users", "name", "Ann")
	assert.Equal(t, access.FieldDenied, d.AccessLevel)
	assert.Equal(t, field.DeniedSentinel, d.DisplayValue)
}

func TestResolverAuditsDeniedFields(t *testing.T) {
	db := dbtest.Open(t)
	log := audit.New(db)
	r := field.NewResolver(field.Masker{}, log)
	ctx := context.Background()

	set := effectiveSet([]string{"read"},
		grant{field: "*", level: access.FieldRead, role: 1},
		grant{field: "ssn", level: access.FieldDenied, role: 1},
		grant{field: "salary", level: access.FieldDenied, role: 1},
	)

	view, _, err := r.ResolveRecord(ctx, set, "users", "42", map[string]any{
		"name": "Ann", "ssn": "123-45-6789", "salary": 81234,
	})
	require.NoError(t, err)
	assert.Equal(t, "Ann", view["name"])

	d, err := r.ResolveField(ctx, set, "users", "42", "name", "Ann")
	require.NoError(t, err)
	assert.Equal(t, access.FieldRead, d.AccessLevel)

	entries, err := log.List(ctx, audit.Filter{TenantID: "acme", Action: audit.ActionFieldDenied})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	ids := []string{entries[0].ResourceID, entries[1].ResourceID}
	assert.ElementsMatch(t, []string{"users.ssn", "users.salary"}, ids)
	assert.Equal(t, "7", entries[0].Actor)
}
