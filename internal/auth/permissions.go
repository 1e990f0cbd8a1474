package auth

import (
	"net/http"

	"github.com/planfold/planfold/server/internal/model"
)

// DefaultRules is the production route permission table. Order matters: the
// engine stops at the first rule whose method and path both match, so more
// specific patterns must precede broader ones. Keep this data-only; the
// matching logic lives in rules.go and engine.go.
var DefaultRules = []PermissionRule{
	// Liveness probe, open to anyone.
	{
		Path:    "/health",
		Methods: []string{http.MethodGet},
		Public:  true,
	},

	// Identity echo for any authenticated caller.
	{
		Path:      "/me",
		Methods:   []string{http.MethodGet},
		UserRoles: []model.UserRole{model.UserRoleAdmin, model.UserRoleUser},
		OrgScopes: []model.OrgScope{model.OrgScopeAll, model.OrgScopeManagement, model.OrgScopeEvaluation},
	},

	// User administration is reserved for global admins with personal keys.
	{
		Path:        "/users",
		Methods:     []string{http.MethodPost, http.MethodGet},
		UserRoles:   []model.UserRole{model.UserRoleAdmin},
		UserKeyOnly: true,
	},
	{
		Path:        "/users/*",
		Methods:     []string{http.MethodGet},
		UserRoles:   []model.UserRole{model.UserRoleAdmin, model.UserRoleUser},
		UserKeyOnly: true,
	},
	{
		Path:        "/users/*",
		Methods:     []string{http.MethodPut, http.MethodDelete},
		UserRoles:   []model.UserRole{model.UserRoleAdmin},
		UserKeyOnly: true,
	},

	// Organizations: creation and listing need a personal key; everything
	// below an organization is additionally reachable with a management key
	// (fine-grained member/key routes are guarded again by RequireOrgRole).
	{
		Path:        "/organizations",
		Methods:     []string{http.MethodPost},
		UserRoles:   []model.UserRole{model.UserRoleAdmin, model.UserRoleUser},
		UserKeyOnly: true,
	},
	{
		Path:        "/organizations",
		Methods:     []string{http.MethodGet},
		UserRoles:   []model.UserRole{model.UserRoleAdmin},
		UserKeyOnly: true,
	},
	{
		Path:      "/organizations/**",
		Methods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		UserRoles: []model.UserRole{model.UserRoleAdmin, model.UserRoleUser},
		OrgScopes: []model.OrgScope{model.OrgScopeAll, model.OrgScopeManagement},
	},

	// Service catalog: reading is open to every credential kind, mutation
	// needs management capability or a global admin.
	{
		Path:      "/services",
		Methods:   []string{http.MethodGet},
		UserRoles: []model.UserRole{model.UserRoleAdmin, model.UserRoleUser},
		OrgScopes: []model.OrgScope{model.OrgScopeAll, model.OrgScopeManagement, model.OrgScopeEvaluation},
	},
	{
		Path:      "/services",
		Methods:   []string{http.MethodPost},
		UserRoles: []model.UserRole{model.UserRoleAdmin},
		OrgScopes: []model.OrgScope{model.OrgScopeAll, model.OrgScopeManagement},
	},
	{
		Path:      "/services/*",
		Methods:   []string{http.MethodGet},
		UserRoles: []model.UserRole{model.UserRoleAdmin, model.UserRoleUser},
		OrgScopes: []model.OrgScope{model.OrgScopeAll, model.OrgScopeManagement, model.OrgScopeEvaluation},
	},
	{
		Path:      "/services/*",
		Methods:   []string{http.MethodPut, http.MethodDelete},
		UserRoles: []model.UserRole{model.UserRoleAdmin},
		OrgScopes: []model.OrgScope{model.OrgScopeAll, model.OrgScopeManagement},
	},

	// Contracts.
	{
		Path:      "/contracts",
		Methods:   []string{http.MethodPost},
		UserRoles: []model.UserRole{model.UserRoleAdmin, model.UserRoleUser},
		OrgScopes: []model.OrgScope{model.OrgScopeAll, model.OrgScopeManagement},
	},
	{
		Path:      "/contracts",
		Methods:   []string{http.MethodGet},
		UserRoles: []model.UserRole{model.UserRoleAdmin},
		OrgScopes: []model.OrgScope{model.OrgScopeAll, model.OrgScopeManagement},
	},
	{
		Path:      "/contracts/*",
		Methods:   []string{http.MethodGet, http.MethodDelete},
		UserRoles: []model.UserRole{model.UserRoleAdmin, model.UserRoleUser},
		OrgScopes: []model.OrgScope{model.OrgScopeAll, model.OrgScopeManagement},
	},

	// Feature evaluation, the read path served to org evaluation keys.
	{
		Path:      "/evaluation/**",
		Methods:   []string{http.MethodGet, http.MethodPost},
		UserRoles: []model.UserRole{model.UserRoleAdmin, model.UserRoleUser},
		OrgScopes: []model.OrgScope{model.OrgScopeAll, model.OrgScopeEvaluation},
	},
}

// DefaultTable builds the immutable table from DefaultRules.
func DefaultTable() Table { return NewTable(DefaultRules) }
