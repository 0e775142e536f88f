package authz

import (
	"context"
	"net/http"
)

type contextKey string

const businessIDKey contextKey = "business_id"

// WithBusiness stores the tenant identity on the context.
func WithBusiness(ctx context.Context, businessID string) context.Context {
	if businessID == "" {
		return ctx
	}
	return context.WithValue(ctx, businessIDKey, businessID)
}

func BusinessIDFromRequest(r *http.Request) (string, bool) {
	bid, ok := r.Context().Value(businessIDKey).(string)
	if !ok || bid == "" {
		return "", false
	}
	return bid, true
}
