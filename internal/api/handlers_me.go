package api

import (
	"net/http"

	"github.com/planfold/planfold/server/internal/api/respond"
	"github.com/planfold/planfold/server/internal/auth"
)

// MeHandler echoes the identity the auth middleware attached to the request.
type MeHandler struct{}

func NewMeHandler() *MeHandler { return &MeHandler{} }

func (h *MeHandler) Whoami(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFrom(r.Context())
	switch {
	case id.IsUser():
		respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"kind":     "user",
			"username": id.User.Username,
			"role":     id.User.Role,
		})
	case id.IsOrg():
		respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"kind":  "organization",
			"orgId": id.Org.OrgID,
			"name":  id.Org.Name,
			"scope": id.Org.Scope,
		})
	default:
		// The permission table never routes anonymous callers here.
		respond.WriteError(w, http.StatusUnauthorized, "authentication required")
	}
}
