package middleware

import (
	"context"

	"github.com/eshop/storefront/internal/storefront"
)

type contextKey string

const (
	ctxUserID   contextKey = "user_id"
	ctxRole     contextKey = "actor_role"
	ctxAccessID contextKey = "access_id"
	ctxTab      contextKey = "tab"
)

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

func UserIDFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxUserID)
}

func RoleFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxRole)
}

func AccessIDFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxAccessID)
}

// TabFromContext returns the tab resolved by Auth, or nil outside authenticated routes.
func TabFromContext(ctx context.Context) *storefront.Tab {
	if ctx == nil {
		return nil
	}
	tab, _ := ctx.Value(ctxTab).(*storefront.Tab)
	return tab
}

// WithActor records who is calling.
func WithActor(ctx context.Context, userID, role string) context.Context {
	ctx = context.WithValue(ctx, ctxUserID, userID)
	return context.WithValue(ctx, ctxRole, role)
}

// WithTab stores the session's tab under its access id.
func WithTab(ctx context.Context, accessID string, tab *storefront.Tab) context.Context {
	ctx = context.WithValue(ctx, ctxAccessID, accessID)
	return context.WithValue(ctx, ctxTab, tab)
}
