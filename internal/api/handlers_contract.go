package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/planfold/planfold/server/internal/api/respond"
	"github.com/planfold/planfold/server/internal/auth"
	"github.com/planfold/planfold/server/internal/services"
)

type ContractHandler struct {
	svc *services.ContractService
}

func NewContractHandler(svc *services.ContractService) *ContractHandler {
	return &ContractHandler{svc: svc}
}

// requestOrgID resolves the organization a contract call acts on. An
// organization credential always acts on itself; explicit orgIDs that point
// elsewhere are rejected. User credentials must name the org explicitly.
func requestOrgID(r *http.Request, explicit string) (string, bool) {
	id, _ := auth.IdentityFrom(r.Context())
	if id.IsOrg() {
		if explicit != "" && explicit != id.Org.OrgID {
			return "", false
		}
		return id.Org.OrgID, true
	}
	return explicit, explicit != ""
}

func (h *ContractHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var in struct {
		OrgID     string `json:"orgId,omitempty"`
		ServiceID string `json:"serviceId"`
		PlanName  string `json:"planName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "invalid json")
		return
	}
	if in.ServiceID == "" || in.PlanName == "" {
		respond.WriteBadRequest(w, "serviceId and planName are required")
		return
	}
	orgID, ok := requestOrgID(r, in.OrgID)
	if !ok {
		if in.OrgID == "" {
			respond.WriteBadRequest(w, "orgId is required")
		} else {
			respond.WriteForbidden(w, "credential belongs to another organization")
		}
		return
	}

	c, err := h.svc.Subscribe(r.Context(), orgID, in.ServiceID, in.PlanName)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, c)
}

func (h *ContractHandler) GetContract(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetContract(r.Context(), mux.Vars(r)["contractId"])
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	if _, ok := requestOrgID(r, c.OrgID); !ok {
		respond.WriteForbidden(w, "credential belongs to another organization")
		return
	}
	respond.WriteJSON(w, http.StatusOK, c)
}

func (h *ContractHandler) ListContracts(w http.ResponseWriter, r *http.Request) {
	explicit := r.URL.Query().Get("orgId")
	orgID, ok := requestOrgID(r, explicit)
	if !ok {
		if explicit == "" {
			respond.WriteBadRequest(w, "orgId query parameter is required")
		} else {
			respond.WriteForbidden(w, "credential belongs to another organization")
		}
		return
	}
	cs, err := h.svc.ListContracts(r.Context(), orgID)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"contracts": cs, "count": len(cs)})
}

// Terminate handles DELETE on a contract; the record is kept, only its
// status changes.
func (h *ContractHandler) Terminate(w http.ResponseWriter, r *http.Request) {
	contractID := mux.Vars(r)["contractId"]
	c, err := h.svc.GetContract(r.Context(), contractID)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	if _, ok := requestOrgID(r, c.OrgID); !ok {
		respond.WriteForbidden(w, "credential belongs to another organization")
		return
	}
	updated, err := h.svc.Terminate(r.Context(), contractID)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, updated)
}
