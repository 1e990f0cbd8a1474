package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/planfold/planfold/server/internal/api/respond"
	"github.com/planfold/planfold/server/internal/api/validate"
	"github.com/planfold/planfold/server/internal/model"
	"github.com/planfold/planfold/server/internal/services"
)

type ServiceHandler struct {
	svc *services.CatalogService
}

func NewServiceHandler(svc *services.CatalogService) *ServiceHandler {
	return &ServiceHandler{svc: svc}
}

type servicePayload struct {
	Name        string              `json:"name"`
	Description *string             `json:"description,omitempty"`
	Features    []model.Feature     `json:"features,omitempty"`
	Plans       []model.PricingPlan `json:"plans,omitempty"`
}

func (p *servicePayload) toModel() *model.Service {
	return &model.Service{
		Name:        p.Name,
		Description: p.Description,
		Features:    p.Features,
		Plans:       p.Plans,
	}
}

func (h *ServiceHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	var in servicePayload
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "invalid json")
		return
	}
	if err := validate.Name("name", in.Name); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	out, err := h.svc.CreateService(r.Context(), in.toModel())
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, out)
}

func (h *ServiceHandler) GetService(w http.ResponseWriter, r *http.Request) {
	svc, err := h.svc.GetService(r.Context(), mux.Vars(r)["serviceId"])
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, svc)
}

func (h *ServiceHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	svcs, err := h.svc.ListServices(r.Context())
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"services": svcs, "count": len(svcs)})
}

func (h *ServiceHandler) UpdateService(w http.ResponseWriter, r *http.Request) {
	var in servicePayload
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "invalid json")
		return
	}
	if err := validate.Name("name", in.Name); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	out, err := h.svc.UpdateService(r.Context(), mux.Vars(r)["serviceId"], in.toModel())
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

func (h *ServiceHandler) DeleteService(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteService(r.Context(), mux.Vars(r)["serviceId"]); err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
