package aggregate_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/scopeguard/scopeguard/internal/access"
	"github.com/scopeguard/scopeguard/internal/access/aggregate"
	"github.com/scopeguard/scopeguard/internal/catalog"
	"github.com/scopeguard/scopeguard/internal/db/controller/role"
	"github.com/scopeguard/scopeguard/internal/db/dbtest"
	"github.com/scopeguard/scopeguard/internal/db/models"
)

var t0 = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC) //nolint:gochecknoglobals

func setup(t *testing.T) *gorm.DB {
	t.Helper()

	db := dbtest.Open(t)

	_, err := catalog.SeedFile(context.Background(), db, "../../../etc/catalog.toml")
	require.NoError(t, err)

	return db
}

// hold inserts an active assignment of module/name for user 1.
func hold(t *testing.T, db *gorm.DB, moduleCode, name string, from time.Time, until *time.Time) *models.RoleAssignment {
	t.Helper()

	r, err := role.GetByName(db, moduleCode, name)
	require.NoError(t, err)

	key := models.ActiveKeyFor("acme", 1, moduleCode)
	a := &models.RoleAssignment{
		TenantID:   "acme",
		UserID:     1,
		ModuleCode: moduleCode,
		RoleID:     r.ID,
		AssignedBy: "admin",
		AssignedAt: from,
		ValidFrom:  from,
		ValidUntil: until,
		IsActive:   true,
		ActiveKey:  &key,
	}
	require.NoError(t, db.Create(a).Error)

	return a
}

func TestComputeUnionsScopesAcrossModules(t *testing.T) {
	db := setup(t)
	hold(t, db, "finance", "finance-viewer", t0, nil)
	hold(t, db, "hr", "hr-admin", t0, nil)

	set, err := aggregate.Compute(context.Background(), db, "acme", 1, t0)
	require.NoError(t, err)

	levels, ok := set.Scopes(access.Key("reports", "read"))
	require.True(t, ok)
	assert.Equal(t, access.NewScopeSet(access.ScopeOwn, access.ScopeDepartment), levels)

	levels, ok = set.Scopes(access.Key("users", "read"))
	require.True(t, ok)
	assert.Equal(t, access.NewScopeSet(access.ScopeTenant), levels, "scope rule beats missing default")

	levels, ok = set.Scopes(access.Key("users", "update"))
	require.True(t, ok)
	assert.Equal(t, access.NewScopeSet(access.ScopeOwn), levels, "no rule and no default scope means own")

	assert.Len(t, set.Assignments, 2)
	assert.Empty(t, set.Conflicts)
	assert.Nil(t, set.ValidUntil)
}

func TestComputeKeepsFieldRulesOfGrantedResources(t *testing.T) {
	db := setup(t)
	hold(t, db, "hr", "hr-admin", t0, nil)

	set, err := aggregate.Compute(context.Background(), db, "acme", 1, t0)
	require.NoError(t, err)

	require.Len(t, set.FieldGrants["users"], 2)

	for _, g := range set.FieldGrants["users"] {
		assert.False(t, g.FromDefault)
	}

	assert.Empty(t, set.FieldGrants["invoices"])
}

func TestComputeReportsDeclaredConflicts(t *testing.T) {
	db := setup(t)
	fin := hold(t, db, "finance", "finance-admin", t0, nil)
	hr := hold(t, db, "hr", "hr-admin", t0, nil)

	set, err := aggregate.Compute(context.Background(), db, "acme", 1, t0)
	require.NoError(t, err)

	require.True(t, set.HasConflicts())
	require.Len(t, set.Conflicts, 1)

	c := set.Conflicts[0]
	assert.ElementsMatch(t, []uint64{fin.ID, hr.ID}, []uint64{c.First.AssignmentID, c.Second.AssignmentID})
	assert.Contains(t, c.Reason, "segregation of duties")
}

func TestComputeHonoursValidityWindow(t *testing.T) {
	db := setup(t)
	until := t0.Add(time.Hour)
	hold(t, db, "finance", "finance-viewer", t0, &until)
	hold(t, db, "hr", "hr-viewer", t0.Add(30*time.Minute), nil)

	set, err := aggregate.Compute(context.Background(), db, "acme", 1, t0)
	require.NoError(t, err)
	assert.True(t, set.Has(access.Key("invoices", "read")))
	assert.False(t, set.Has(access.Key("users", "read")), "pending assignment is not effective")
	require.NotNil(t, set.ValidUntil)
	assert.True(t, t0.Add(30*time.Minute).Equal(*set.ValidUntil))

	set, err = aggregate.Compute(context.Background(), db, "acme", 1, t0.Add(45*time.Minute))
	require.NoError(t, err)
	assert.True(t, set.Has(access.Key("users", "read")))
	require.NotNil(t, set.ValidUntil)
	assert.True(t, until.Equal(*set.ValidUntil))

	set, err = aggregate.Compute(context.Background(), db, "acme", 1, until)
	require.NoError(t, err)
	assert.False(t, set.Has(access.Key("invoices", "read")), "validity ends at valid_until")
}

func TestComputeIgnoresInactiveAssignments(t *testing.T) {
	db := setup(t)
	a := hold(t, db, "finance", "finance-viewer", t0, nil)

	require.NoError(t, db.Model(a).Updates(map[string]any{"is_active": false, "active_key": nil}).Error)

	set, err := aggregate.Compute(context.Background(), db, "acme", 1, t0)
	require.NoError(t, err)
	assert.Empty(t, set.Permissions())
	assert.Empty(t, set.Assignments)
}

func TestComputeHonoursCancellation(t *testing.T) {
	db := setup(t)
	hold(t, db, "finance", "finance-viewer", t0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := aggregate.Compute(ctx, db, "acme", 1, t0)
	require.ErrorIs(t, err, context.Canceled)
}

func TestEffectiveCachesUntilInvalidated(t *testing.T) {
	db := setup(t)
	until := t0.Add(time.Hour)
	hold(t, db, "finance", "finance-viewer", t0, &until)

	agg := aggregate.New(db, aggregate.Options{CacheSize: 16, CacheTTL: time.Hour})
	now := t0
	agg.Now = func() time.Time { return now }

	ctx := context.Background()

	first, err := agg.Effective(ctx, "acme", 1)
	require.NoError(t, err)

	second, err := agg.Effective(ctx, "acme", 1)
	require.NoError(t, err)
	assert.Same(t, first, second)

	agg.Invalidate("acme", 1)

	third, err := agg.Effective(ctx, "acme", 1)
	require.NoError(t, err)
	assert.NotSame(t, first, third)

	now = until

	expired, err := agg.Effective(ctx, "acme", 1)
	require.NoError(t, err)
	assert.NotSame(t, third, expired, "a cached set is not served past its ValidUntil")
	assert.False(t, expired.Has(access.Key("invoices", "read")))
}

func TestEffectiveWithoutCache(t *testing.T) {
	db := setup(t)
	hold(t, db, "finance", "finance-viewer", t0, nil)

	agg := aggregate.New(db, aggregate.Options{})
	agg.Now = func() time.Time { return t0 }

	first, err := agg.Effective(context.Background(), "acme", 1)
	require.NoError(t, err)

	second, err := agg.Effective(context.Background(), "acme", 1)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, first.Permissions(), second.Permissions())
}

func TestEffectiveServesJoinedCallerAfterFirstCallerCancels(t *testing.T) {
	db := setup(t)
	hold(t, db, "finance", "finance-viewer", t0, nil)

	entered := make(chan struct{})
	release := make(chan struct{})

	var once sync.Once

	require.NoError(t, db.Callback().Query().Before("gorm:query").Register("test:block", func(*gorm.DB) {
		once.Do(func() {
			close(entered)
			<-release
		})
	}))

	agg := aggregate.New(db, aggregate.Options{CacheSize: 16, CacheTTL: time.Hour})
	agg.Now = func() time.Time { return t0 }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	firstErr := make(chan error, 1)

	go func() {
		_, err := agg.Effective(ctx, "acme", 1)
		firstErr <- err
	}()

	<-entered

	type result struct {
		set *access.EffectivePermissionSet
		err error
	}

	second := make(chan result, 1)

	go func() {
		set, err := agg.Effective(context.Background(), "acme", 1)
		second <- result{set: set, err: err}
	}()

	// give the second caller time to join the in-flight computation
	time.Sleep(50 * time.Millisecond)
	cancel()

	require.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)

	res := <-second
	require.NoError(t, res.err)
	assert.True(t, res.set.Has(access.Key("invoices", "read")))
}
