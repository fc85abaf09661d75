package common

import (
	"context"
	"strings"
)

// UserContext holds the authenticated user's identity and display
// preferences for one request. Injected by the auth middleware; services
// resolve it explicitly at the start of every operation.
type UserContext struct {
	UserID            string
	Email             string
	Role              string
	PreferredCurrency string
}

type contextKey int

const userContextKey contextKey = iota

// WithUserContext stores a UserContext in the request context.
func WithUserContext(ctx context.Context, uc *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, uc)
}

// UserContextFromContext retrieves the UserContext from context, or nil if absent.
func UserContextFromContext(ctx context.Context) *UserContext {
	uc, _ := ctx.Value(userContextKey).(*UserContext)
	return uc
}

// ResolveUserID returns the authenticated user's ID from context, or ""
// when no user context is present.
func ResolveUserID(ctx context.Context) string {
	if uc := UserContextFromContext(ctx); uc != nil {
		return uc.UserID
	}
	return ""
}

// ResolvePreferredCurrency returns the user's preferred display currency
// from context, or fallback when unset. Currency codes are normalized to
// upper case.
func ResolvePreferredCurrency(ctx context.Context, fallback string) string {
	if uc := UserContextFromContext(ctx); uc != nil && uc.PreferredCurrency != "" {
		return strings.ToUpper(uc.PreferredCurrency)
	}
	return fallback
}
