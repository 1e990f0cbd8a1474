package model

import "time"

// UserRole is the global role attached to an individual user account.
type UserRole string

const (
	UserRoleAdmin UserRole = "ADMIN"
	UserRoleUser  UserRole = "USER"
)

// OrgScope is the capability level carried by an organization API key.
type OrgScope string

const (
	OrgScopeAll        OrgScope = "ALL"
	OrgScopeManagement OrgScope = "MANAGEMENT"
	OrgScopeEvaluation OrgScope = "EVALUATION"
)

// OrgRole is a membership-level role a user holds within one organization.
// The owner is never stored in the member list; OrgRoleOwner is derived.
type OrgRole string

const (
	OrgRoleOwner     OrgRole = "OWNER"
	OrgRoleAdmin     OrgRole = "ADMIN"
	OrgRoleManager   OrgRole = "MANAGER"
	OrgRoleEvaluator OrgRole = "EVALUATOR"
)

// User represents an individual account in the system.
type User struct {
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Role         UserRole  `json:"role"`
	APIKey       string    `json:"apiKey,omitempty"`
	Status       string    `json:"status"`
	CreationTime time.Time `json:"creationTime"`
}

// OrgMember links a user to an organization with an org-internal role.
type OrgMember struct {
	Username string  `json:"username"`
	Role     OrgRole `json:"role"`
}

// OrgAPIKey is one of the credentials held by an organization. Each key
// carries its own scope; an organization can hold keys of different scopes.
type OrgAPIKey struct {
	Key          string    `json:"key"`
	Name         string    `json:"name"`
	Scope        OrgScope  `json:"scope"`
	CreationTime time.Time `json:"creationTime"`
}

// Organization is a tenant. Owner is the username of the owning user.
type Organization struct {
	OrgID        string      `json:"orgId"`
	Name         string      `json:"name"`
	Owner        string      `json:"owner"`
	Members      []OrgMember `json:"members"`
	APIKeys      []OrgAPIKey `json:"apiKeys,omitempty"`
	WebhookURL   *string     `json:"webhookUrl,omitempty"`
	CreationTime time.Time   `json:"creationTime"`
}

// Feature is a named capability exposed by a service.
type Feature struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// PricingPlan names a tier of a service and the feature values it grants.
// Feature values are free-form JSON (booleans, quotas, strings).
type PricingPlan struct {
	Name         string                 `json:"name"`
	MonthlyPrice float64                `json:"monthlyPrice"`
	Features     map[string]interface{} `json:"features,omitempty"`
}

// Service is an entry in the catalog that organizations contract for.
type Service struct {
	ServiceID    string        `json:"serviceId"`
	Name         string        `json:"name"`
	Description  *string       `json:"description,omitempty"`
	Features     []Feature     `json:"features,omitempty"`
	Plans        []PricingPlan `json:"plans,omitempty"`
	CreationTime time.Time     `json:"creationTime"`
}

// Contract binds an organization to one pricing plan of a service.
type Contract struct {
	ContractID      string     `json:"contractId"`
	OrgID           string     `json:"orgId"`
	ServiceID       string     `json:"serviceId"`
	PlanName        string     `json:"planName"`
	Status          string     `json:"status"`
	CreationTime    time.Time  `json:"creationTime"`
	TerminationTime *time.Time `json:"terminationTime,omitempty"`
}

// Contract statuses.
const (
	ContractActive     = "ACTIVE"
	ContractTerminated = "TERMINATED"
)

// Evaluation is the result of resolving a feature for an organization.
type Evaluation struct {
	OrgID     string      `json:"orgId"`
	ServiceID string      `json:"serviceId"`
	Feature   string      `json:"feature"`
	PlanName  string      `json:"planName"`
	Value     interface{} `json:"value"`
}

// MemberRole reports the stored role for username, or false when the user is
// neither the owner nor a member. The owner resolves to OrgRoleOwner.
func (o *Organization) MemberRole(username string) (OrgRole, bool) {
	if username == o.Owner {
		return OrgRoleOwner, true
	}
	for _, m := range o.Members {
		if m.Username == username {
			return m.Role, true
		}
	}
	return "", false
}

// KeyByValue returns the API key entry matching the raw key value.
func (o *Organization) KeyByValue(raw string) (OrgAPIKey, bool) {
	for _, k := range o.APIKeys {
		if k.Key == raw {
			return k, true
		}
	}
	return OrgAPIKey{}, false
}
