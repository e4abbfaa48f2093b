package common

import (
	"context"
	"strings"
)

// DefaultUserID scopes ledger data when no user context is present (single-tenant mode).
const DefaultUserID = "default"

// UserContext holds per-request caller identity injected via X-Fieldledger-* headers.
// Authorization is enforced upstream; the ledger only uses the id to scope ownership.
type UserContext struct {
	UserID string
	// AllUsers widens report and listing scope to every user (financial staff view).
	AllUsers bool
}

type contextKey int

const (
	userContextKey contextKey = iota
	correlationIDKey
)

// WithUserContext stores a UserContext in the request context.
func WithUserContext(ctx context.Context, uc *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, uc)
}

// UserContextFromContext retrieves the UserContext from context, or nil if absent.
func UserContextFromContext(ctx context.Context) *UserContext {
	uc, _ := ctx.Value(userContextKey).(*UserContext)
	return uc
}

// ResolveUserID returns the UserID from context, or DefaultUserID when no user context is present.
// Used by services that need an owner for new records.
func ResolveUserID(ctx context.Context) string {
	if uc := UserContextFromContext(ctx); uc != nil && strings.TrimSpace(uc.UserID) != "" {
		return strings.TrimSpace(uc.UserID)
	}
	return DefaultUserID
}

// ResolveScopeUserID returns the user filter for reads: empty when the caller may
// see every user's entries, otherwise the caller's own id.
func ResolveScopeUserID(ctx context.Context) string {
	if uc := UserContextFromContext(ctx); uc != nil && uc.AllUsers {
		return ""
	}
	return ResolveUserID(ctx)
}

// WithCorrelationID stores the request correlation id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext returns the request correlation id, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}
