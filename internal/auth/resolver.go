package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/planfold/planfold/server/internal/model"
)

// API key prefixes. The prefix is the sole discriminator of credential kind;
// the remainder of the key is an opaque random token.
const (
	UserKeyPrefix = "usr_"
	OrgKeyPrefix  = "org_"
)

// HeaderAPIKey is the request header carrying the raw API key.
const HeaderAPIKey = "x-api-key"

// UserLookup resolves a personal API key to its user account.
type UserLookup interface {
	// UserByAPIKey returns model.ErrNotFound when no user holds the key.
	UserByAPIKey(ctx context.Context, key string) (*model.User, error)
}

// OrgLookup resolves organization credentials and ids.
type OrgLookup interface {
	// OrgByAPIKey returns the organization holding the key together with the
	// matched key entry, or model.ErrNotFound. The entry matters because an
	// organization can hold several keys with different scopes.
	OrgByAPIKey(ctx context.Context, key string) (*model.Organization, *model.OrgAPIKey, error)
	// OrgByID returns model.ErrNotFound when the organization is absent.
	OrgByID(ctx context.Context, orgID string) (*model.Organization, error)
}

// Resolver turns a raw API key into a request identity. It never partially
// populates an identity: on error the caller must abort the request.
type Resolver struct {
	users UserLookup
	orgs  OrgLookup
}

func NewResolver(users UserLookup, orgs OrgLookup) *Resolver {
	return &Resolver{users: users, orgs: orgs}
}

// Resolve maps a raw key to an identity. An empty key resolves to Anonymous;
// whether that is acceptable is decided later by the engine against the
// matched rule. Unknown or unmatched keys fail with ErrInvalidCredential.
// Collaborator errors other than model.ErrNotFound propagate untouched so
// the transport can report them as internal failures, not as 401s.
func (r *Resolver) Resolve(ctx context.Context, rawKey string) (Identity, error) {
	if rawKey == "" {
		return Anonymous, nil
	}

	switch {
	case strings.HasPrefix(rawKey, UserKeyPrefix):
		u, err := r.users.UserByAPIKey(ctx, rawKey)
		if errors.Is(err, model.ErrNotFound) {
			return Anonymous, fmt.Errorf("%w: invalid user API key", ErrInvalidCredential)
		}
		if err != nil {
			return Anonymous, err
		}
		return Identity{User: &UserIdentity{
			Username: u.Username,
			Role:     u.Role,
			APIKey:   rawKey,
		}}, nil

	case strings.HasPrefix(rawKey, OrgKeyPrefix):
		org, key, err := r.orgs.OrgByAPIKey(ctx, rawKey)
		if errors.Is(err, model.ErrNotFound) {
			return Anonymous, fmt.Errorf("%w: invalid organization API key", ErrInvalidCredential)
		}
		if err != nil {
			return Anonymous, err
		}
		return Identity{Org: &OrgIdentity{
			OrgID:   org.OrgID,
			Name:    org.Name,
			Scope:   key.Scope,
			Owner:   org.Owner,
			Members: org.Members,
		}}, nil

	default:
		return Anonymous, fmt.Errorf("%w: API key must start with %q or %q",
			ErrInvalidCredential, UserKeyPrefix, OrgKeyPrefix)
	}
}
