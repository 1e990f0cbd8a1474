package auth

import "github.com/planfold/planfold/server/internal/model"

// PermissionRule is one declarative entry of the route permission table.
// Zero-value role/scope lists mean the corresponding credential kind has no
// access through this rule (unless Public).
type PermissionRule struct {
	// Path is the route pattern, matched with MatchPath after the API base
	// prefix has been stripped from the request path.
	Path string
	// Methods lists the HTTP methods this rule covers.
	Methods []string
	// UserRoles lists global user roles allowed through a user API key.
	UserRoles []model.UserRole
	// OrgScopes lists key scopes allowed through an organization API key.
	OrgScopes []model.OrgScope
	// UserKeyOnly rejects organization keys outright, regardless of scope.
	UserKeyOnly bool
	// Public allows the request without any credential.
	Public bool
}

// HasMethod reports whether the rule covers the given HTTP method.
func (r PermissionRule) HasMethod(method string) bool {
	for _, m := range r.Methods {
		if m == method {
			return true
		}
	}
	return false
}

// AllowsUserRole reports whether the rule grants access to the given global
// user role. A rule without UserRoles grants no user-key access.
func (r PermissionRule) AllowsUserRole(role model.UserRole) bool {
	for _, allowed := range r.UserRoles {
		if allowed == role {
			return true
		}
	}
	return false
}

// AllowsOrgScope reports whether the rule grants access to the given
// organization key scope. A rule without OrgScopes grants no org-key access.
func (r PermissionRule) AllowsOrgScope(scope model.OrgScope) bool {
	for _, allowed := range r.OrgScopes {
		if allowed == scope {
			return true
		}
	}
	return false
}

// Table is an immutable, ordered permission rule set. It is loaded once at
// startup and safe for concurrent reads.
type Table struct {
	rules []PermissionRule
}

// NewTable copies rules into an immutable table preserving declaration order.
func NewTable(rules []PermissionRule) Table {
	cp := make([]PermissionRule, len(rules))
	copy(cp, rules)
	return Table{rules: cp}
}

// FindRule returns the first rule whose method set and path pattern both
// match, in declaration order. Later matching rules are never consulted.
// The boolean is false when no rule matches; callers must treat that as an
// implicit deny.
func (t Table) FindRule(method, path string) (PermissionRule, bool) {
	for _, r := range t.rules {
		if r.HasMethod(method) && MatchPath(r.Path, path) {
			return r, true
		}
	}
	return PermissionRule{}, false
}

// Len returns the number of rules in the table.
func (t Table) Len() int { return len(t.rules) }
