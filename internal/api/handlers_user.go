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

type UserHandler struct {
	svc *services.UserService
}

func NewUserHandler(svc *services.UserService) *UserHandler { return &UserHandler{svc: svc} }

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string         `json:"username"`
		Email    string         `json:"email"`
		Role     model.UserRole `json:"role,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "invalid json")
		return
	}
	if err := validate.CreateUser(in.Username, in.Email); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	u := &model.User{Username: in.Username, Email: in.Email, Role: in.Role}
	out, err := h.svc.CreateUser(r.Context(), u)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, out)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	u, err := h.svc.GetUser(r.Context(), username)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	// The personal key is only disclosed at creation time.
	u.APIKey = ""
	respond.WriteJSON(w, http.StatusOK, u)
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	for _, u := range users {
		u.APIKey = ""
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"users": users, "count": len(users)})
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	if err := h.svc.DeleteUser(r.Context(), username); err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
