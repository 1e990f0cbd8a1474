package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/planfold/planfold/server/internal/api/respond"
	"github.com/planfold/planfold/server/internal/api/validate"
	"github.com/planfold/planfold/server/internal/auth"
	"github.com/planfold/planfold/server/internal/model"
	"github.com/planfold/planfold/server/internal/services"
)

type OrganizationHandler struct {
	svc *services.OrganizationService
}

func NewOrganizationHandler(svc *services.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{svc: svc}
}

// orgAccessAllowed rejects organization credentials reaching into another
// tenant. User credentials are vetted by the org-role guard instead.
func orgAccessAllowed(r *http.Request, orgID string) bool {
	id, _ := auth.IdentityFrom(r.Context())
	if id.IsOrg() {
		return id.Org.OrgID == orgID
	}
	return true
}

func (h *OrganizationHandler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name       string  `json:"name"`
		WebhookURL *string `json:"webhookUrl,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "invalid json")
		return
	}
	if err := validate.CreateOrganization(in.Name, in.WebhookURL); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	// Creation needs a personal key (enforced by the permission table), so
	// the caller becomes the owner.
	id, _ := auth.IdentityFrom(r.Context())
	if !id.IsUser() {
		respond.WriteForbidden(w, "organization creation requires a personal API key")
		return
	}
	out, err := h.svc.CreateOrganization(r.Context(), in.Name, id.User.Username, in.WebhookURL)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, out)
}

func (h *OrganizationHandler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	orgID := mux.Vars(r)["orgId"]
	if !orgAccessAllowed(r, orgID) {
		respond.WriteForbidden(w, "credential belongs to another organization")
		return
	}
	org, err := h.svc.GetOrganization(r.Context(), orgID)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	redactOrgKeys(org)
	respond.WriteJSON(w, http.StatusOK, org)
}

func (h *OrganizationHandler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.svc.ListOrganizations(r.Context())
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	for _, o := range orgs {
		redactOrgKeys(o)
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"organizations": orgs, "count": len(orgs)})
}

func (h *OrganizationHandler) DeleteOrganization(w http.ResponseWriter, r *http.Request) {
	orgID := mux.Vars(r)["orgId"]
	if !orgAccessAllowed(r, orgID) {
		respond.WriteForbidden(w, "credential belongs to another organization")
		return
	}
	if err := h.svc.DeleteOrganization(r.Context(), orgID); err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrganizationHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	orgID := mux.Vars(r)["orgId"]
	if !orgAccessAllowed(r, orgID) {
		respond.WriteForbidden(w, "credential belongs to another organization")
		return
	}
	var in struct {
		Username string        `json:"username"`
		Role     model.OrgRole `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "invalid json")
		return
	}
	if err := validate.Username(in.Username); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	org, err := h.svc.AddMember(r.Context(), orgID, in.Username, in.Role)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	redactOrgKeys(org)
	respond.WriteJSON(w, http.StatusCreated, org)
}

func (h *OrganizationHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	orgID := vars["orgId"]
	if !orgAccessAllowed(r, orgID) {
		respond.WriteForbidden(w, "credential belongs to another organization")
		return
	}
	org, err := h.svc.RemoveMember(r.Context(), orgID, vars["username"])
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	redactOrgKeys(org)
	respond.WriteJSON(w, http.StatusOK, org)
}

func (h *OrganizationHandler) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	orgID := mux.Vars(r)["orgId"]
	if !orgAccessAllowed(r, orgID) {
		respond.WriteForbidden(w, "credential belongs to another organization")
		return
	}
	var in struct {
		NewOwner string `json:"newOwner"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "invalid json")
		return
	}
	if err := validate.Username(in.NewOwner); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	org, err := h.svc.TransferOwnership(r.Context(), orgID, in.NewOwner)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	redactOrgKeys(org)
	respond.WriteJSON(w, http.StatusOK, org)
}

func (h *OrganizationHandler) SetWebhook(w http.ResponseWriter, r *http.Request) {
	orgID := mux.Vars(r)["orgId"]
	if !orgAccessAllowed(r, orgID) {
		respond.WriteForbidden(w, "credential belongs to another organization")
		return
	}
	var in struct {
		WebhookURL *string `json:"webhookUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "invalid json")
		return
	}
	if err := validate.MaxLen("webhookUrl", in.WebhookURL, 500); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	org, err := h.svc.SetWebhookURL(r.Context(), orgID, in.WebhookURL)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	redactOrgKeys(org)
	respond.WriteJSON(w, http.StatusOK, org)
}

func (h *OrganizationHandler) IssueAPIKey(w http.ResponseWriter, r *http.Request) {
	orgID := mux.Vars(r)["orgId"]
	if !orgAccessAllowed(r, orgID) {
		respond.WriteForbidden(w, "credential belongs to another organization")
		return
	}
	var in struct {
		Name  string         `json:"name"`
		Scope model.OrgScope `json:"scope"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "invalid json")
		return
	}
	entry, err := h.svc.IssueAPIKey(r.Context(), orgID, in.Name, in.Scope)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	// The only response that ever discloses the raw key value.
	respond.WriteJSON(w, http.StatusCreated, entry)
}

func (h *OrganizationHandler) RevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	orgID := vars["orgId"]
	if !orgAccessAllowed(r, orgID) {
		respond.WriteForbidden(w, "credential belongs to another organization")
		return
	}
	if err := h.svc.RevokeAPIKey(r.Context(), orgID, vars["key"]); err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// redactOrgKeys blanks raw key values before an organization record leaves
// the API. Key names and scopes stay visible.
func redactOrgKeys(o *model.Organization) {
	for i := range o.APIKeys {
		o.APIKeys[i].Key = ""
	}
}
