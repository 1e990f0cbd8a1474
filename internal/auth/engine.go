package auth

// Reason classifies why a request was denied. Each value maps to a distinct
// HTTP status and message in the transport layer.
type Reason string

const (
	// ReasonDefaultDenied: no rule in the table matched method+path.
	// The table fails closed.
	ReasonDefaultDenied Reason = "DEFAULT_DENIED"
	// ReasonAuthenticationRequired: anonymous request on a protected route.
	ReasonAuthenticationRequired Reason = "AUTHENTICATION_REQUIRED"
	// ReasonOrgKeyNotAllowed: organization key used on a user-key-only route.
	ReasonOrgKeyNotAllowed Reason = "ORG_KEY_NOT_ALLOWED"
	// ReasonInsufficientUserRole: user authenticated but role not allowed.
	ReasonInsufficientUserRole Reason = "INSUFFICIENT_USER_ROLE"
	// ReasonInsufficientOrgScope: org key authenticated but scope not allowed.
	ReasonInsufficientOrgScope Reason = "INSUFFICIENT_ORG_SCOPE"
	// ReasonNotAMember: caller holds no role within the target organization.
	ReasonNotAMember Reason = "NOT_A_MEMBER"
	// ReasonInsufficientOrgRole: member role not in the route's allow-list.
	ReasonInsufficientOrgRole Reason = "INSUFFICIENT_ORG_ROLE"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// Allow is the positive decision.
var Allow = Decision{Allowed: true}

// Deny builds a negative decision with the given reason.
func Deny(reason Reason) Decision { return Decision{Reason: reason} }

// Engine evaluates the permission table against a resolved identity. It has
// no mutable state and is safe for concurrent use.
type Engine struct {
	table Table
}

func NewEngine(table Table) *Engine { return &Engine{table: table} }

// Authorize finds the first matching rule for method+path and decides
// allow/deny for the given identity. Public rules admit anyone, including
// callers that sent no credential.
func (e *Engine) Authorize(id Identity, method, path string) Decision {
	rule, ok := e.table.FindRule(method, path)
	if !ok {
		return Deny(ReasonDefaultDenied)
	}
	if rule.Public {
		return Allow
	}
	if id.IsAnonymous() {
		return Deny(ReasonAuthenticationRequired)
	}
	if rule.UserKeyOnly && id.IsOrg() {
		return Deny(ReasonOrgKeyNotAllowed)
	}
	if id.IsUser() && !rule.AllowsUserRole(id.User.Role) {
		return Deny(ReasonInsufficientUserRole)
	}
	if id.IsOrg() && !rule.AllowsOrgScope(id.Org.Scope) {
		return Deny(ReasonInsufficientOrgScope)
	}
	return Allow
}
