package domain

import "context"

// SubmissionLimiter bounds how often one requester may submit initial requests.
type SubmissionLimiter interface {
	// Allow records one submission for key and reports whether it is within the limit.
	Allow(ctx context.Context, key string) (bool, error)
}

// LifecycleMetrics records lifecycle outcomes.
type LifecycleMetrics interface {
	TransitionObserved(action Action, outcome string)
	ConflictDetected(action Action)
}

// Principal is the authenticated caller.
type Principal struct {
	Subject string
	Email   string
	Roles   []string
}

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool {
	for _, r := range p.Roles {
		if r == RoleAdmin {
			return true
		}
	}
	return false
}

// RoleAdmin is the role code granting access to admin-only operations.
const RoleAdmin = "admin"

// TokenIssuer issues tokens (e.g. JWT) for a principal.
type TokenIssuer interface {
	Issue(p Principal) (string, error)
}

// TokenVerifier verifies a token and returns the authenticated principal.
type TokenVerifier interface {
	Verify(token string) (Principal, error)
}
