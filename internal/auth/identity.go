package auth

import (
	"context"

	"github.com/planfold/planfold/server/internal/model"
)

// UserIdentity is a caller authenticated with a personal API key.
type UserIdentity struct {
	Username string
	Role     model.UserRole
	APIKey   string
}

// OrgIdentity is a caller authenticated with an organization API key. Scope
// comes from the matched key entry, not from the organization as a whole.
type OrgIdentity struct {
	OrgID   string
	Name    string
	Scope   model.OrgScope
	Owner   string
	Members []model.OrgMember
}

// Identity is the resolved caller of a single request. Exactly one of User or
// Org is set; both nil means the request is anonymous. Identities are built
// fresh per request and never shared.
type Identity struct {
	User *UserIdentity
	Org  *OrgIdentity
}

// Anonymous is the identity of a request that carried no credential.
var Anonymous = Identity{}

func (id Identity) IsAnonymous() bool { return id.User == nil && id.Org == nil }
func (id Identity) IsUser() bool      { return id.User != nil }
func (id Identity) IsOrg() bool       { return id.Org != nil }

// IsAdmin reports whether the caller is a user with the global ADMIN role.
func (id Identity) IsAdmin() bool {
	return id.User != nil && id.User.Role == model.UserRoleAdmin
}

type ctxKey int

const (
	identityKey ctxKey = iota
	orgRoleKey
)

// WithIdentity attaches the resolved identity to the request context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the identity attached by the middleware, if any.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// WithOrgRole records the caller's resolved role within the organization the
// route is scoped to. Only set when role resolution found a membership.
func WithOrgRole(ctx context.Context, role model.OrgRole) context.Context {
	return context.WithValue(ctx, orgRoleKey, role)
}

// OrgRoleFrom returns the resolved org role, if role resolution set one. A
// global admin passing on the override branch has no role here.
func OrgRoleFrom(ctx context.Context) (model.OrgRole, bool) {
	role, ok := ctx.Value(orgRoleKey).(model.OrgRole)
	return role, ok
}
