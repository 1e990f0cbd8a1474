package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planfold/planfold/server/internal/api"
	"github.com/planfold/planfold/server/internal/config"
	"github.com/planfold/planfold/server/internal/model"
	"github.com/planfold/planfold/server/internal/store/sqlite"
	"github.com/planfold/planfold/server/platformservice"
)

const rootKey = "usr_root_test_key"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "api_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	st := sqlite.NewWithDB(db)

	// Seed the bootstrap admin directly; everything else goes through HTTP.
	_, err = st.Users().Create(context.Background(), &model.User{
		Username:     "root",
		Email:        "root@example.com",
		Role:         model.UserRoleAdmin,
		APIKey:       rootKey,
		Status:       "ACTIVE",
		CreationTime: time.Now().UTC(),
	})
	require.NoError(t, err)

	api.BindServiceHealth(func() bool { return true })

	cfg := config.NewForTesting()
	srv := httptest.NewServer(platformservice.BuildRouter(st, cfg, zerolog.Nop()))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, apiKey string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+"/api/v1"+path, &buf)
	require.NoError(t, err)
	if apiKey != "" {
		req.Header.Set("x-api-key", apiKey)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestAPI_EndToEnd(t *testing.T) {
	srv := newTestServer(t)

	// Health is public.
	code, body := doJSON(t, srv, "GET", "/health", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])

	// Anonymous callers cannot administer users.
	code, _ = doJSON(t, srv, "POST", "/users", "", map[string]string{"username": "alice", "email": "alice@example.com"})
	require.Equal(t, http.StatusUnauthorized, code)

	// Admin registers alice; her personal key is disclosed once.
	code, body = doJSON(t, srv, "POST", "/users", rootKey, map[string]string{"username": "alice", "email": "alice@example.com"})
	require.Equal(t, http.StatusCreated, code)
	aliceKey, _ := body["apiKey"].(string)
	require.NotEmpty(t, aliceKey)

	// A plain user cannot create accounts.
	code, _ = doJSON(t, srv, "POST", "/users", aliceKey, map[string]string{"username": "eve", "email": "eve@example.com"})
	require.Equal(t, http.StatusForbidden, code)

	// Unknown keys fail before authorization.
	code, _ = doJSON(t, srv, "GET", "/me", "usr_does_not_exist", nil)
	require.Equal(t, http.StatusUnauthorized, code)

	// Alice founds an organization and becomes its owner.
	code, body = doJSON(t, srv, "POST", "/organizations", aliceKey, map[string]string{"name": "Acme"})
	require.Equal(t, http.StatusCreated, code)
	orgID, _ := body["orgId"].(string)
	require.NotEmpty(t, orgID)
	assert.Equal(t, "alice", body["owner"])

	// The owner issues org keys with distinct scopes.
	code, body = doJSON(t, srv, "POST", "/organizations/"+orgID+"/keys", aliceKey,
		map[string]string{"name": "deploy", "scope": "MANAGEMENT"})
	require.Equal(t, http.StatusCreated, code)
	mgmtKey, _ := body["key"].(string)
	require.NotEmpty(t, mgmtKey)

	code, body = doJSON(t, srv, "POST", "/organizations/"+orgID+"/keys", aliceKey,
		map[string]string{"name": "flags", "scope": "EVALUATION"})
	require.Equal(t, http.StatusCreated, code)
	evalKey, _ := body["key"].(string)
	require.NotEmpty(t, evalKey)

	// Org credentials identify as the organization.
	code, body = doJSON(t, srv, "GET", "/me", mgmtKey, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "organization", body["kind"])
	assert.Equal(t, orgID, body["orgId"])

	// Org keys never open user administration routes.
	code, _ = doJSON(t, srv, "GET", "/users", mgmtKey, nil)
	require.Equal(t, http.StatusForbidden, code)

	// Admin publishes a catalog entry with two plans.
	code, body = doJSON(t, srv, "POST", "/services", rootKey, map[string]interface{}{
		"name": "Planner",
		"plans": []map[string]interface{}{
			{"name": "free", "monthlyPrice": 0, "features": map[string]interface{}{"sso": false, "maxProjects": 3}},
			{"name": "team", "monthlyPrice": 49, "features": map[string]interface{}{"sso": true, "maxProjects": 50}},
		},
	})
	require.Equal(t, http.StatusCreated, code)
	serviceID, _ := body["serviceId"].(string)
	require.NotEmpty(t, serviceID)

	// The evaluation key can read the catalog but not change it.
	code, _ = doJSON(t, srv, "GET", "/services", evalKey, nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = doJSON(t, srv, "POST", "/services", evalKey, map[string]interface{}{"name": "Nope"})
	require.Equal(t, http.StatusForbidden, code)

	// The management key subscribes its own org; orgId is implicit.
	code, body = doJSON(t, srv, "POST", "/contracts", mgmtKey,
		map[string]string{"serviceId": serviceID, "planName": "team"})
	require.Equal(t, http.StatusCreated, code)
	contractID, _ := body["contractId"].(string)
	require.NotEmpty(t, contractID)
	assert.Equal(t, "ACTIVE", body["status"])

	// Double subscription on the same pair conflicts.
	code, _ = doJSON(t, srv, "POST", "/contracts", mgmtKey,
		map[string]string{"serviceId": serviceID, "planName": "free"})
	require.Equal(t, http.StatusConflict, code)

	// Feature evaluation resolves through the active contract.
	code, body = doJSON(t, srv, "GET", "/evaluation/services/"+serviceID+"/features/sso", evalKey, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["value"])
	assert.Equal(t, "team", body["planName"])

	// The evaluation key cannot manage contracts.
	code, _ = doJSON(t, srv, "GET", "/contracts", evalKey, nil)
	require.Equal(t, http.StatusForbidden, code)

	// Terminate, then evaluation stops resolving.
	code, _ = doJSON(t, srv, "DELETE", "/contracts/"+contractID, mgmtKey, nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = doJSON(t, srv, "GET", "/evaluation/services/"+serviceID+"/features/sso", evalKey, nil)
	require.Equal(t, http.StatusNotFound, code)
}

func TestAPI_OrgRoleGuard(t *testing.T) {
	srv := newTestServer(t)

	// Two users: an owner and an outsider.
	code, body := doJSON(t, srv, "POST", "/users", rootKey, map[string]string{"username": "owner", "email": "owner@example.com"})
	require.Equal(t, http.StatusCreated, code)
	ownerKey := body["apiKey"].(string)

	code, body = doJSON(t, srv, "POST", "/users", rootKey, map[string]string{"username": "mallory", "email": "mallory@example.com"})
	require.Equal(t, http.StatusCreated, code)
	malloryKey := body["apiKey"].(string)

	code, body = doJSON(t, srv, "POST", "/organizations", ownerKey, map[string]string{"name": "Tenant One"})
	require.Equal(t, http.StatusCreated, code)
	orgID := body["orgId"].(string)

	// Outsiders are rejected as non-members, admins pass by override.
	code, _ = doJSON(t, srv, "GET", "/organizations/"+orgID, malloryKey, nil)
	require.Equal(t, http.StatusForbidden, code)
	code, _ = doJSON(t, srv, "GET", "/organizations/"+orgID, rootKey, nil)
	require.Equal(t, http.StatusOK, code)

	// The owner enrolls mallory as EVALUATOR; she can read but not manage.
	code, _ = doJSON(t, srv, "POST", "/organizations/"+orgID+"/members", ownerKey,
		map[string]string{"username": "mallory", "role": "EVALUATOR"})
	require.Equal(t, http.StatusCreated, code)

	code, _ = doJSON(t, srv, "GET", "/organizations/"+orgID, malloryKey, nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = doJSON(t, srv, "POST", "/organizations/"+orgID+"/keys", malloryKey,
		map[string]string{"name": "x", "scope": "ALL"})
	require.Equal(t, http.StatusForbidden, code)

	// Unknown organizations are reported as 404, not 403.
	code, _ = doJSON(t, srv, "GET", "/organizations/00000000-0000-0000-0000-000000000000", ownerKey, nil)
	require.Equal(t, http.StatusNotFound, code)

	// Org keys from one tenant cannot reach another tenant.
	code, body = doJSON(t, srv, "POST", "/organizations/"+orgID+"/keys", ownerKey,
		map[string]string{"name": "mgmt", "scope": "MANAGEMENT"})
	require.Equal(t, http.StatusCreated, code)
	mgmtKey := body["key"].(string)

	code, body = doJSON(t, srv, "POST", "/organizations", malloryKey, map[string]string{"name": "Tenant Two"})
	require.Equal(t, http.StatusCreated, code)
	otherOrg := body["orgId"].(string)

	code, _ = doJSON(t, srv, "GET", "/organizations/"+otherOrg, mgmtKey, nil)
	require.Equal(t, http.StatusForbidden, code)
}
