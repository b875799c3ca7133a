package handlers

import (
	"context"
	"net/http"
)

type callerKey struct{}

// withCaller stores the authenticated user identifier on the context.
func withCaller(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, callerKey{}, userID)
}

// callerID retrieves the authenticated user identifier from the context.
func callerID(ctx context.Context) string {
	if id, ok := ctx.Value(callerKey{}).(string); ok {
		return id
	}
	return ""
}

// requireUser wraps a handler with bearer-token authentication. The resolved
// user identifier is the owner identity every downstream ownership check
// relies on.
func requireUser(sessions SessionManager, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token := bearerToken(r)
		if token == "" {
			respondError(ctx, w, http.StatusUnauthorized, "authentication required")
			return
		}

		userID, err := sessions.Resolve(ctx, token)
		if err != nil {
			respondError(ctx, w, http.StatusUnauthorized, "invalid or expired session")
			return
		}

		next(w, r.WithContext(withCaller(ctx, userID)))
	}
}
