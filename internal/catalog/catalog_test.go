package catalog_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/scopeguard/scopeguard/internal/access"
	"github.com/scopeguard/scopeguard/internal/catalog"
	"github.com/scopeguard/scopeguard/internal/db/controller/role"
	"github.com/scopeguard/scopeguard/internal/db/dbtest"
	"github.com/scopeguard/scopeguard/internal/db/models"
)

const catalogFile = "../../etc/catalog.toml"

func seeded(t *testing.T) *gorm.DB {
	t.Helper()

	db := dbtest.Open(t)

	_, err := catalog.SeedFile(context.Background(), db, catalogFile)
	require.NoError(t, err)

	return db
}

func TestSeedIsIdempotent(t *testing.T) {
	db := seeded(t)
	ctx := context.Background()

	count := func(model any) int64 {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)

		return n
	}

	before := map[string]int64{
		"roles":        count(&models.Role{}),
		"permissions":  count(&models.Permission{}),
		"role_perms":   count(&models.RolePermission{}),
		"field_rules":  count(&models.FieldRule{}),
		"scope_rules":  count(&models.DataScopeRule{}),
		"incompatible": count(&models.RoleIncompatibility{}),
		"users":        count(&models.User{}),
	}

	sum, err := catalog.SeedFile(ctx, db, catalogFile)
	require.NoError(t, err)
	assert.Equal(t, 4, sum.Roles)
	assert.Equal(t, 1, sum.Incompatibilities)

	after := map[string]int64{
		"roles":        count(&models.Role{}),
		"permissions":  count(&models.Permission{}),
		"role_perms":   count(&models.RolePermission{}),
		"field_rules":  count(&models.FieldRule{}),
		"scope_rules":  count(&models.DataScopeRule{}),
		"incompatible": count(&models.RoleIncompatibility{}),
		"users":        count(&models.User{}),
	}

	assert.Equal(t, before, after)
	assert.Equal(t, int64(4), after["roles"])
	assert.Equal(t, int64(1), after["incompatible"])
}

func TestSeededRoleRules(t *testing.T) {
	db := seeded(t)

	r, err := role.GetByName(db, "hr", "hr-viewer")
	require.NoError(t, err)
	assert.True(t, r.IsDefault)

	require.Len(t, r.Permissions, 1)
	require.NotNil(t, r.Permissions[0].DefaultScope)
	assert.Equal(t, access.ScopeTeam, *r.Permissions[0].DefaultScope)

	levels := map[string]access.FieldAccessLevel{}
	for _, f := range r.FieldRules {
		levels[f.Field] = f.AccessLevel
	}

	assert.Equal(t, map[string]access.FieldAccessLevel{
		"*":     access.FieldRead,
		"ssn":   access.FieldDenied,
		"email": access.FieldMasked,
	}, levels)

	admin, err := role.GetByName(db, "finance", "finance-admin")
	require.NoError(t, err)
	assert.Equal(t, models.RoleKindSystem, admin.Kind())
	require.Len(t, admin.ScopeRules, 2)
}

func TestCatalogLookups(t *testing.T) {
	db := seeded(t)
	c := catalog.New(db)
	ctx := context.Background()

	active, err := c.IsModuleActive(ctx, "acme", "finance")
	require.NoError(t, err)
	assert.True(t, active)

	active, err = c.IsModuleActive(ctx, "acme", "crm")
	require.NoError(t, err)
	assert.False(t, active)

	_, err = c.IsModuleActive(ctx, "acme", "payroll")
	require.ErrorIs(t, err, access.ErrNotFound)

	ok, err := c.UserExists(ctx, "acme", 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.UserExists(ctx, "acme", 99)
	require.NoError(t, err)
	assert.False(t, ok)

	subject, err := c.Subject(ctx, "acme", 1)
	require.NoError(t, err)
	assert.Equal(t, "acme", subject.TenantID)
	require.NotNil(t, subject.TeamID)
	assert.Equal(t, uint64(10), *subject.TeamID)
	assert.Equal(t, []uint64{100}, subject.ManagedDepartments)

	viewer, err := role.GetByName(db, "finance", "finance-viewer")
	require.NoError(t, err)

	_, err = c.GetRole(ctx, "hr", viewer.ID)
	require.ErrorIs(t, err, access.ErrNotFound)

	got, err := c.GetRole(ctx, "finance", viewer.ID)
	require.NoError(t, err)
	assert.Equal(t, "finance-viewer", got.Name)

	require.NoError(t, c.KnownPermission(ctx, "reports", "read"))
	require.ErrorIs(t, c.KnownPermission(ctx, "reports", "shred"), access.ErrValidation)
	require.ErrorIs(t, c.KnownPermission(ctx, "", "read"), access.ErrValidation)
	require.NoError(t, c.KnownResource(ctx, "users"))
	require.ErrorIs(t, c.KnownResource(ctx, "planets"), access.ErrValidation)
}

func TestLoadFileValidates(t *testing.T) {
	testCases := []struct {
		name string
		doc  string
	}{
		{
			name: "field rule without access level",
			doc: `
[[roles]]
module = "finance"
name = "broken"
  [[roles.fields]]
  resource = "invoices"
  field = "amount"
`,
		},
		{
			name: "unknown scope level",
			doc: `
[[roles]]
module = "finance"
name = "broken"
permissions = [{ key = "reports.read", scope = "galaxy" }]
`,
		},
		{
			name: "incompatibility without module",
			doc: `
[[incompatibilities]]
first = "admin"
second = "hr/hr-admin"
reason = "x"
`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "catalog.toml")
			require.NoError(t, os.WriteFile(path, []byte(tc.doc), 0o600))

			_, err := catalog.LoadFile(path)
			require.Error(t, err)
		})
	}
}

func TestSeedRollsBackOnUnknownModule(t *testing.T) {
	db := dbtest.Open(t)

	_, err := catalog.Seed(context.Background(), db, &catalog.File{
		Modules: []catalog.ModuleEntry{{Code: "finance", Name: "Finance"}},
		Roles:   []catalog.RoleEntry{{Module: "payroll", Name: "clerk"}},
	})
	require.ErrorIs(t, err, access.ErrNotFound)

	var n int64
	require.NoError(t, db.Model(&models.Module{}).Count(&n).Error)
	assert.Zero(t, n)
}
