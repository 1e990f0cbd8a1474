package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

// Middleware authenticates and authorizes every request: it resolves the
// x-api-key header to an identity, consults the permission table and either
// aborts with the mapped status or forwards the request with the identity
// attached to its context.
type Middleware struct {
	resolver *Resolver
	engine   *Engine
	basePath string
	log      zerolog.Logger
}

// NewMiddleware builds the middleware. basePath (e.g. "/api/v1") is stripped
// from the request path before table lookup.
func NewMiddleware(resolver *Resolver, engine *Engine, basePath string, log zerolog.Logger) *Middleware {
	return &Middleware{resolver: resolver, engine: engine, basePath: basePath, log: log}
}

// Secure is the gorilla/mux middleware entry point.
func (m *Middleware) Secure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := m.resolver.Resolve(r.Context(), r.Header.Get(HeaderAPIKey))
		if err != nil {
			if errors.Is(err, ErrInvalidCredential) {
				writeAuthError(w, http.StatusUnauthorized, err.Error())
				return
			}
			// Lookup infrastructure failure; never disguised as a 401.
			m.log.Error().Err(err).Msg("credential resolution failed")
			writeAuthError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		path := m.stripBase(r.URL.Path)
		decision := m.engine.Authorize(id, r.Method, path)
		if !decision.Allowed {
			status := StatusForReason(decision.Reason)
			m.log.Debug().
				Str("method", r.Method).
				Str("path", path).
				Str("reason", string(decision.Reason)).
				Msg("request denied")
			writeAuthError(w, status, denialMessage(decision.Reason))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func (m *Middleware) stripBase(path string) string {
	if m.basePath == "" {
		return path
	}
	trimmed := strings.TrimPrefix(path, m.basePath)
	if trimmed == "" {
		return "/"
	}
	return trimmed
}

// StatusForReason maps a denial reason to its HTTP status code.
func StatusForReason(reason Reason) int {
	if reason == ReasonAuthenticationRequired {
		return http.StatusUnauthorized
	}
	return http.StatusForbidden
}

func denialMessage(reason Reason) string {
	switch reason {
	case ReasonAuthenticationRequired:
		return "authentication required"
	case ReasonOrgKeyNotAllowed:
		return "organization API keys are not allowed on this route"
	case ReasonInsufficientUserRole:
		return "insufficient user role"
	case ReasonInsufficientOrgScope:
		return "insufficient organization key scope"
	case ReasonNotAMember:
		return "not a member of this organization"
	case ReasonInsufficientOrgRole:
		return "insufficient organization role"
	default:
		return "access denied"
	}
}

// writeAuthError mirrors the response shape of the api/respond package
// without importing it; auth must stay free of transport dependencies.
func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   http.StatusText(status),
		"code":    status,
		"message": message,
	})
}
