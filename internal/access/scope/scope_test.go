package scope_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scopeguard/scopeguard/internal/access"
	"github.com/scopeguard/scopeguard/internal/access/scope"
	"github.com/scopeguard/scopeguard/internal/db/dbtest"
)

func effective(grants map[access.PermissionKey]access.ScopeSet) *access.EffectivePermissionSet {
	set := access.NewEffectivePermissionSet("acme", 1, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	for k, v := range grants {
		set.Grant(k, v)
	}

	return set
}

func TestResolveScopeKeepsEveryLevel(t *testing.T) {
	set := effective(nil)
	reportsRead := access.Key("reports", "read")

	// role A in finance grants own, role B in hr grants tenant
	set.Grant(reportsRead, access.NewScopeSet(access.ScopeOwn))
	set.Grant(reportsRead, access.NewScopeSet(access.ScopeTenant))

	d := scope.ResolveScope(set, "reports", "read")
	require.True(t, d.Allowed)
	assert.Equal(t, []access.DataScopeLevel{access.ScopeOwn, access.ScopeTenant}, d.Levels.Levels())

	broadest, ok := d.Broadest()
	require.True(t, ok)
	assert.Equal(t, access.ScopeTenant, broadest)

	narrowest, ok := d.Narrowest()
	require.True(t, ok)
	assert.Equal(t, access.ScopeOwn, narrowest)
}

func TestResolveScopeMissingPermission(t *testing.T) {
	set := effective(map[access.PermissionKey]access.ScopeSet{
		access.Key("reports", "read"): access.NewScopeSet(access.ScopeTeam),
	})

	d := scope.ResolveScope(set, "reports", "delete")
	assert.False(t, d.Allowed)
	assert.True(t, d.Levels.Empty())

	_, ok := d.Broadest()
	assert.False(t, ok)
	assert.True(t, d.Filter(scope.Subject{TenantID: "acme", UserID: 1}).RejectsAll())

	assert.False(t, scope.ResolveScope(nil, "reports", "read").Allowed)
}

func TestForLevel(t *testing.T) {
	team := uint64(10)
	subject := scope.Subject{TenantID: "acme", UserID: 7, TeamID: &team, ManagedDepartments: []uint64{100, 200}}

	testCases := []struct {
		level     access.DataScopeLevel
		predicate string
		args      []any
	}{
		{access.ScopeGlobal, "", nil},
		{access.ScopeTenant, "tenant_id = ?", []any{"acme"}},
		{access.ScopeDepartment, "department_id IN ?", []any{[]uint64{100, 200}}},
		{access.ScopeTeam, "team_id = ?", []any{uint64(10)}},
		{access.ScopeOwn, "owner_id = ?", []any{uint64(7)}},
		{access.ScopeNone, "1 = 0", nil},
	}

	for _, tc := range testCases {
		t.Run(tc.level.String(), func(t *testing.T) {
			f := scope.ForLevel(tc.level, subject)
			assert.Equal(t, tc.level, f.Level)
			assert.Equal(t, tc.predicate, f.Predicate)
			assert.Equal(t, tc.args, f.Args)
		})
	}
}

func TestForLevelWithoutHierarchy(t *testing.T) {
	subject := scope.Subject{TenantID: "acme", UserID: 7}

	assert.True(t, scope.ForLevel(access.ScopeTeam, subject).RejectsAll())
	assert.True(t, scope.ForLevel(access.ScopeDepartment, subject).RejectsAll())
	assert.True(t, scope.ForLevel(access.ScopeGlobal, subject).Unrestricted())
}

func TestFilterAt(t *testing.T) {
	set := effective(map[access.PermissionKey]access.ScopeSet{
		access.Key("invoices", "update"): access.NewScopeSet(access.ScopeOwn, access.ScopeDepartment),
	})
	subject := scope.Subject{TenantID: "acme", UserID: 7, ManagedDepartments: []uint64{100}}

	d := scope.ResolveScope(set, "invoices", "update")

	f, err := d.FilterAt(access.ScopeOwn, subject)
	require.NoError(t, err)
	assert.Equal(t, "owner_id = ?", f.Predicate)

	_, err = d.FilterAt(access.ScopeTenant, subject)
	require.ErrorIs(t, err, access.ErrValidation)

	assert.Equal(t, access.ScopeDepartment, d.Filter(subject).Level)
}

type record struct {
	ID           uint64 `gorm:"primaryKey"`
	TenantID     string
	DepartmentID uint64
	TeamID       uint64
	OwnerID      uint64
}

func TestGormScope(t *testing.T) {
	db := dbtest.Open(t)
	require.NoError(t, db.AutoMigrate(&record{}))

	rows := []record{
		{ID: 1, TenantID: "acme", DepartmentID: 100, TeamID: 10, OwnerID: 7},
		{ID: 2, TenantID: "acme", DepartmentID: 100, TeamID: 11, OwnerID: 8},
		{ID: 3, TenantID: "acme", DepartmentID: 200, TeamID: 12, OwnerID: 9},
		{ID: 4, TenantID: "globex", DepartmentID: 300, TeamID: 13, OwnerID: 7},
	}
	require.NoError(t, db.Create(&rows).Error)

	team := uint64(10)
	subject := scope.Subject{TenantID: "acme", UserID: 7, TeamID: &team, ManagedDepartments: []uint64{100}}

	testCases := []struct {
		level access.DataScopeLevel
		want  []uint64
	}{
		{access.ScopeGlobal, []uint64{1, 2, 3, 4}},
		{access.ScopeTenant, []uint64{1, 2, 3}},
		{access.ScopeDepartment, []uint64{1, 2}},
		{access.ScopeTeam, []uint64{1}},
		{access.ScopeOwn, []uint64{1, 4}},
		{access.ScopeNone, []uint64{}},
	}

	for _, tc := range testCases {
		t.Run(tc.level.String(), func(t *testing.T) {
			ids := []uint64{}
			err := db.Model(&record{}).
				Scopes(scope.GormScope(scope.ForLevel(tc.level, subject))).
				Order("id").
				Pluck("id", &ids).Error
			require.NoError(t, err)
			assert.ElementsMatch(t, tc.want, ids)
		})
	}
}
