package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/planfold/planfold/server/internal/api/respond"
	"github.com/planfold/planfold/server/internal/services"
)

type EvaluationHandler struct {
	svc *services.EvaluationService
}

func NewEvaluationHandler(svc *services.EvaluationService) *EvaluationHandler {
	return &EvaluationHandler{svc: svc}
}

// EvaluateFeature handles GET /evaluation/services/{serviceId}/features/{feature}.
// Organization credentials evaluate against their own tenant; user
// credentials pass an explicit orgId query parameter.
func (h *EvaluationHandler) EvaluateFeature(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	orgID, ok := requestOrgID(r, r.URL.Query().Get("orgId"))
	if !ok {
		if r.URL.Query().Get("orgId") == "" {
			respond.WriteBadRequest(w, "orgId query parameter is required")
		} else {
			respond.WriteForbidden(w, "credential belongs to another organization")
		}
		return
	}

	ev, err := h.svc.Evaluate(r.Context(), orgID, vars["serviceId"], vars["feature"])
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, ev)
}
