package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/planfold/planfold/server/internal/model"
)

func newTestMiddleware(t *testing.T) (*Middleware, *Identity) {
	t.Helper()
	resolver := newTestResolver()
	engine := NewEngine(DefaultTable())
	m := NewMiddleware(resolver, engine, "/api/v1", zerolog.Nop())

	var seen Identity
	return m, &seen
}

func secureHandler(m *Middleware, seen *Identity) http.Handler {
	return m.Secure(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := IdentityFrom(r.Context()); ok {
			*seen = id
		}
		w.WriteHeader(http.StatusOK)
	}))
}

func doRequest(h http.Handler, method, target, apiKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if apiKey != "" {
		req.Header.Set(HeaderAPIKey, apiKey)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestSecureAnonymousOnPublicRoute(t *testing.T) {
	m, seen := newTestMiddleware(t)
	rr := doRequest(secureHandler(m, seen), http.MethodGet, "/api/v1/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("public route must pass without credential, got %d", rr.Code)
	}
	if !seen.IsAnonymous() {
		t.Fatalf("expected anonymous identity in context, got %+v", *seen)
	}
}

func TestSecureAnonymousOnProtectedRoute(t *testing.T) {
	m, seen := newTestMiddleware(t)
	rr := doRequest(secureHandler(m, seen), http.MethodGet, "/api/v1/services", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestSecureInvalidKeyFailsFast(t *testing.T) {
	m, seen := newTestMiddleware(t)
	// Even on a public route an invalid key is rejected before table lookup.
	rr := doRequest(secureHandler(m, seen), http.MethodGet, "/api/v1/services", "usr_unknown")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown key, got %d", rr.Code)
	}
	var body struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("malformed error body: %v", err)
	}
	if body.Code != http.StatusUnauthorized || body.Message == "" {
		t.Fatalf("unexpected error body: %+v", body)
	}
}

func TestSecureUnknownPrefixRejected(t *testing.T) {
	m, seen := newTestMiddleware(t)
	rr := doRequest(secureHandler(m, seen), http.MethodGet, "/api/v1/services", "jwt_abc")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown prefix, got %d", rr.Code)
	}
}

func TestSecureAttachesIdentity(t *testing.T) {
	m, seen := newTestMiddleware(t)
	rr := doRequest(secureHandler(m, seen), http.MethodGet, "/api/v1/services", "org_eval")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected allow, got %d: %s", rr.Code, rr.Body.String())
	}
	if !seen.IsOrg() || seen.Org.Scope != model.OrgScopeEvaluation {
		t.Fatalf("expected org identity with per-key scope, got %+v", *seen)
	}
}

func TestSecureDeniesWrongScope(t *testing.T) {
	m, seen := newTestMiddleware(t)
	rr := doRequest(secureHandler(m, seen), http.MethodPost, "/api/v1/services", "org_eval")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestSecureOrgKeyOnUserRoute(t *testing.T) {
	m, seen := newTestMiddleware(t)
	rr := doRequest(secureHandler(m, seen), http.MethodGet, "/api/v1/users/alice", "org_mgmt")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for org key on user-only route, got %d", rr.Code)
	}
}

func TestSecureDefaultDeny(t *testing.T) {
	m, seen := newTestMiddleware(t)
	rr := doRequest(secureHandler(m, seen), http.MethodDelete, "/api/v1/not-in-table", "usr_admin")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("unmatched routes must fail closed with 403, got %d", rr.Code)
	}
}

func TestSecureLookupFailureIs500(t *testing.T) {
	resolver := NewResolver(
		&fakeUserLookup{err: errTestInfra},
		&fakeOrgLookup{err: errTestInfra},
	)
	m := NewMiddleware(resolver, NewEngine(DefaultTable()), "/api/v1", zerolog.Nop())
	var seen Identity
	rr := doRequest(secureHandler(m, &seen), http.MethodGet, "/api/v1/services", "usr_admin")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("infrastructure failures must be 500, not a denial; got %d", rr.Code)
	}
}

var errTestInfra = &infraError{}

type infraError struct{}

func (*infraError) Error() string { return "store unavailable" }
