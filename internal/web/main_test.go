package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/scopeguard/scopeguard/internal/access/aggregate"
	"github.com/scopeguard/scopeguard/internal/access/field"
	"github.com/scopeguard/scopeguard/internal/assignment"
	"github.com/scopeguard/scopeguard/internal/audit"
	"github.com/scopeguard/scopeguard/internal/catalog"
	"github.com/scopeguard/scopeguard/internal/config"
	"github.com/scopeguard/scopeguard/internal/db/controller/role"
	"github.com/scopeguard/scopeguard/internal/db/dbtest"
	"github.com/scopeguard/scopeguard/internal/db/models"
	"github.com/scopeguard/scopeguard/internal/web"
	"github.com/scopeguard/scopeguard/internal/web/handler"
)

type env struct {
	svc   *web.Service
	db    *gorm.DB
	audit *audit.Log
}

func setup(t *testing.T) *env {
	t.Helper()

	db := dbtest.Open(t)

	_, err := catalog.SeedFile(context.Background(), db, "../../etc/catalog.toml")
	require.NoError(t, err)

	cat := catalog.New(db)
	agg := aggregate.New(db, aggregate.Options{CacheSize: 16})
	log := audit.New(db)

	deps := &handler.Deps{
		Catalog:    cat,
		Aggregator: agg,
		Assignments: assignment.New(db, assignment.Config{
			Catalog:          cat,
			Audit:            log,
			Invalidator:      agg,
			EnforceConflicts: true,
		}),
		Fields: field.NewResolver(field.DefaultMasker(), log),
	}

	cfg := &config.Config{Title: "ScopeGuard", DevMode: true}

	return &env{svc: web.New(cfg, deps), db: db, audit: log}
}

func (e *env) roleID(t *testing.T, moduleCode, name string) uint {
	t.Helper()

	r, err := role.GetByName(e.db, moduleCode, name)
	require.NoError(t, err)

	return r.ID
}

// do sends a request and decodes a JSON answer into out when out is not nil.
func (e *env) do(t *testing.T, method, path, actor string, body, out any) int {
	t.Helper()

	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)

		r = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")

	if actor != "" {
		req.Header.Set(handler.HeaderActor, actor)
	}

	resp, err := e.svc.App.Test(req, -1)
	require.NoError(t, err)

	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}

	return resp.StatusCode
}

func rolePath(user uint64, module string) string {
	return fmt.Sprintf("/api/v1/tenants/acme/users/%d/modules/%s/role", user, module)
}

func TestCheckAliveAndMetrics(t *testing.T) {
	e := setup(t)

	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, web.CheckAlivePath, "", nil, nil))
	assert.True(t, e.svc.Alive())

	resp, err := e.svc.App.Test(httptest.NewRequest(http.MethodGet, web.MetricsPath, nil), -1)
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAssignLifecycle(t *testing.T) {
	e := setup(t)
	viewer := e.roleID(t, "finance", "finance-viewer")

	var created handler.AssignmentView
	status := e.do(t, http.MethodPost, rolePath(1, "finance"), "admin", map[string]any{"role_id": viewer}, &created)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "finance-viewer", created.RoleName)
	assert.Equal(t, "admin", created.AssignedBy)
	assert.True(t, created.IsActive)

	var updated handler.AssignmentView
	status = e.do(t, http.MethodPut, rolePath(1, "finance"), "admin",
		map[string]any{"role_id": e.roleID(t, "finance", "finance-admin")}, &updated)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "finance-admin", updated.RoleName)

	assert.Equal(t, http.StatusNoContent, e.do(t, http.MethodDelete, rolePath(1, "finance"), "admin", nil, nil))

	var failure handler.ErrorResponse
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodDelete, rolePath(1, "finance"), "admin", nil, &failure))
	assert.Equal(t, "not_found", failure.Kind)

	var history []handler.AssignmentView
	require.Equal(t, http.StatusOK,
		e.do(t, http.MethodGet, "/api/v1/tenants/acme/users/1/role-history?limit=10", "", nil, &history))
	require.Len(t, history, 2)
	assert.Equal(t, updated.ID, history[0].ID)
	assert.Equal(t, "removed", history[0].DeactivationReason)
	assert.Equal(t, "updated", history[1].DeactivationReason)
}

func TestErrorStatuses(t *testing.T) {
	e := setup(t)

	financeAdmin := e.roleID(t, "finance", "finance-admin")
	hrAdmin := e.roleID(t, "hr", "hr-admin")

	require.Equal(t, http.StatusCreated,
		e.do(t, http.MethodPost, rolePath(1, "hr"), "admin", map[string]any{"role_id": hrAdmin}, nil))

	tests := []struct {
		name   string
		method string
		path   string
		actor  string
		body   any
		status int
		kind   string
	}{
		{"missing actor", http.MethodPost, rolePath(1, "finance"), "", map[string]any{"role_id": financeAdmin}, http.StatusBadRequest, "validation"},
		{"bad user id", http.MethodPost, "/api/v1/tenants/acme/users/x/modules/finance/role", "admin", map[string]any{"role_id": financeAdmin}, http.StatusBadRequest, "validation"},
		{"missing role", http.MethodPost, rolePath(1, "finance"), "admin", map[string]any{}, http.StatusBadRequest, "validation"},
		{"inactive module", http.MethodPost, rolePath(1, "crm"), "admin", map[string]any{"role_id": financeAdmin}, http.StatusBadRequest, "invalid_state"},
		{"role of another module", http.MethodPost, rolePath(1, "finance"), "admin", map[string]any{"role_id": hrAdmin}, http.StatusNotFound, "not_found"},
		{"unknown user", http.MethodPost, rolePath(42, "finance"), "admin", map[string]any{"role_id": financeAdmin}, http.StatusNotFound, "not_found"},
		{"incompatible role", http.MethodPost, rolePath(1, "finance"), "admin", map[string]any{"role_id": financeAdmin}, http.StatusConflict, "conflict"},
		{"update without role", http.MethodPut, rolePath(2, "finance"), "admin", map[string]any{"role_id": financeAdmin}, http.StatusNotFound, "not_found"},
		{
			"temporary too long", http.MethodPost, "/api/v1/tenants/acme/users/2/modules/finance/temporary", "admin",
			map[string]any{"role_id": financeAdmin, "duration_hours": 73}, http.StatusBadRequest, "validation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var failure handler.ErrorResponse
			assert.Equal(t, tt.status, e.do(t, tt.method, tt.path, tt.actor, tt.body, &failure))
			assert.Equal(t, tt.kind, failure.Kind)
			assert.NotEmpty(t, failure.Error)
		})
	}
}

func TestTemporaryAndExpire(t *testing.T) {
	e := setup(t)

	var created handler.AssignmentView
	status := e.do(t, http.MethodPost, "/api/v1/tenants/acme/users/2/modules/finance/temporary", "admin",
		map[string]any{"role_id": e.roleID(t, "finance", "finance-admin"), "duration_hours": 72, "reason": "audit"}, &created)
	require.Equal(t, http.StatusCreated, status)
	assert.True(t, created.Temporary)
	require.NotNil(t, created.ValidUntil)

	var out struct {
		ExpiredAssignments int `json:"expired_assignments"`
	}
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, "/api/v1/system/expire", "ops", nil, &out))
	assert.Zero(t, out.ExpiredAssignments)
}

func TestBulkAssign(t *testing.T) {
	e := setup(t)

	var out struct {
		BatchID         string `json:"batch_id"`
		SuccessfulCount int    `json:"successful_count"`
		FailedCount     int    `json:"failed_count"`
		Results         []struct {
			UserID  uint64 `json:"user_id"`
			Success bool   `json:"success"`
			Kind    string `json:"kind"`
		} `json:"results"`
	}

	status := e.do(t, http.MethodPost, "/api/v1/tenants/acme/modules/finance/bulk-assign", "admin",
		map[string]any{"role_id": e.roleID(t, "finance", "finance-viewer"), "user_ids": []uint64{1, 77, 2}}, &out)
	require.Equal(t, http.StatusOK, status)

	assert.NotEmpty(t, out.BatchID)
	assert.Equal(t, 2, out.SuccessfulCount)
	assert.Equal(t, 1, out.FailedCount)
	require.Len(t, out.Results, 3)
	assert.Equal(t, uint64(77), out.Results[1].UserID)
	assert.False(t, out.Results[1].Success)
	assert.Equal(t, "not_found", out.Results[1].Kind)
}

func TestBulkAssignReportsUnrecordedBatch(t *testing.T) {
	e := setup(t)

	require.NoError(t, e.db.Migrator().DropTable(&models.AuditEntry{}))

	var out struct {
		BatchID     string `json:"batch_id"`
		FailedCount int    `json:"failed_count"`
		AuditError  string `json:"audit_error"`
	}

	status := e.do(t, http.MethodPost, "/api/v1/tenants/acme/modules/finance/bulk-assign", "admin",
		map[string]any{"role_id": e.roleID(t, "finance", "finance-viewer"), "user_ids": []uint64{1, 2}}, &out)
	require.Equal(t, http.StatusOK, status)

	assert.NotEmpty(t, out.BatchID)
	assert.Equal(t, 2, out.FailedCount)
	assert.Contains(t, out.AuditError, out.BatchID)
}

func TestDecisions(t *testing.T) {
	e := setup(t)

	require.Equal(t, http.StatusCreated, e.do(t, http.MethodPost, rolePath(1, "hr"), "admin",
		map[string]any{"role_id": e.roleID(t, "hr", "hr-viewer")}, nil))

	var effective struct {
		Permissions []struct {
			Permission string   `json:"permission"`
			Scopes     []string `json:"scopes"`
		} `json:"permissions"`
		Active []handler.AssignmentView `json:"active_assignments"`
	}
	require.Equal(t, http.StatusOK,
		e.do(t, http.MethodGet, "/api/v1/tenants/acme/users/1/effective-permissions", "", nil, &effective))
	require.Len(t, effective.Permissions, 1)
	assert.Equal(t, "users.read", effective.Permissions[0].Permission)
	assert.Equal(t, []string{"team"}, effective.Permissions[0].Scopes)
	assert.Len(t, effective.Active, 1)

	var scoped struct {
		Decision struct {
			Allowed bool `json:"allowed"`
		} `json:"decision"`
		Filter struct {
			Level     string `json:"level"`
			Predicate string `json:"predicate"`
		} `json:"filter"`
	}
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, "/api/v1/tenants/acme/users/1/scope", "",
		map[string]any{"resource": "users", "action": "read"}, &scoped))
	assert.True(t, scoped.Decision.Allowed)
	assert.Equal(t, "team", scoped.Filter.Level)
	assert.Equal(t, "team_id = ?", scoped.Filter.Predicate)

	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, "/api/v1/tenants/acme/users/1/scope", "",
		map[string]any{"resource": "reports", "action": "read"}, &scoped))
	assert.False(t, scoped.Decision.Allowed, "known permission the user does not hold")

	var failure handler.ErrorResponse
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPost, "/api/v1/tenants/acme/users/1/scope", "",
		map[string]any{"resource": "users", "action": "fly"}, &failure))
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet,
		"/api/v1/tenants/acme/users/42/effective-permissions", "", nil, &failure))

	var fields struct {
		Record map[string]any `json:"record"`
	}
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, "/api/v1/tenants/acme/users/1/fields", "", map[string]any{
		"resource":  "users",
		"record_id": "2",
		"record":    map[string]any{"name": "Bob", "email": "bob@acme.example", "ssn": "123-45-6789"},
	}, &fields))
	assert.Equal(t, "Bob", fields.Record["name"])
	assert.Equal(t, field.DefaultRedactionMarker+"@acme.example", fields.Record["email"])
	assert.Equal(t, field.DeniedSentinel, fields.Record["ssn"])

	entries, err := e.audit.List(context.Background(), audit.Filter{Action: audit.ActionFieldDenied})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "users.ssn", entries[0].ResourceID)
}
