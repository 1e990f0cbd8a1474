package auth

import "errors"

var (
	// ErrInvalidCredential is returned by the resolver when a supplied API
	// key is malformed or matches no account. Always surfaced as 401.
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrOrgNotFound is returned by org-role resolution when the target
	// organization does not exist. Surfaced as 404, never as a denial.
	ErrOrgNotFound = errors.New("organization not found")
)
