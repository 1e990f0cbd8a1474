package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/planfold/planfold/server/internal/model"
)

// OrgRoleGuard is the second, narrower authorization layer applied to
// organization-scoped routes. It resolves the caller's effective role inside
// the organization named by the route and checks it against an allow-list.
// Organization-key callers bypass this layer: their access was fully decided
// by key scope in the engine.
type OrgRoleGuard struct {
	orgs OrgLookup
	log  zerolog.Logger
}

func NewOrgRoleGuard(orgs OrgLookup, log zerolog.Logger) *OrgRoleGuard {
	return &OrgRoleGuard{orgs: orgs, log: log}
}

// ResolveOrgRole resolves the role of a user identity within the given
// organization. The owner resolves to OWNER, members to their stored role.
// found is false when the user is neither owner nor member; a global admin
// still passes Require in that case, but deliberately without a role, so
// role-specific handler branches see the absence.
func (g *OrgRoleGuard) ResolveOrgRole(ctx context.Context, id Identity, orgID string) (role model.OrgRole, found bool, err error) {
	if !id.IsUser() {
		return "", false, nil
	}
	org, err := g.orgs.OrgByID(ctx, orgID)
	if errors.Is(err, model.ErrNotFound) {
		return "", false, fmt.Errorf("%w: %s", ErrOrgNotFound, orgID)
	}
	if err != nil {
		return "", false, err
	}
	role, found = org.MemberRole(id.User.Username)
	return role, found, nil
}

// Require builds a mux middleware allowing only the given org roles. The
// route must carry an {orgId} variable. A global admin passes regardless of
// membership; the override is logged.
func (g *OrgRoleGuard) Require(allowed ...model.OrgRole) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok || id.IsAnonymous() {
				writeAuthError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if id.IsOrg() {
				next.ServeHTTP(w, r)
				return
			}

			orgID := mux.Vars(r)["orgId"]
			role, found, err := g.ResolveOrgRole(r.Context(), id, orgID)
			if err != nil {
				if errors.Is(err, ErrOrgNotFound) {
					// Missing org is a 404, never a denial.
					writeAuthError(w, http.StatusNotFound, "organization not found")
					return
				}
				g.log.Error().Err(err).Str("org", orgID).Msg("org role resolution failed")
				writeAuthError(w, http.StatusInternalServerError, "internal server error")
				return
			}

			ctx := r.Context()
			if found {
				ctx = WithOrgRole(ctx, role)
			}

			if id.IsAdmin() {
				g.log.Info().
					Str("user", id.User.Username).
					Str("org", orgID).
					Bool("member", found).
					Msg("global admin override on org-scoped route")
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			if !found {
				writeAuthError(w, StatusForReason(ReasonNotAMember), denialMessage(ReasonNotAMember))
				return
			}
			for _, a := range allowed {
				if role == a {
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}
			writeAuthError(w, StatusForReason(ReasonInsufficientOrgRole), denialMessage(ReasonInsufficientOrgRole))
		})
	}
}
