package core

import (
	"context"
	"net/http"
	"slices"

	manifest "github.com/joeydtaylor/steeze-kv/pkg/manifest"
	"github.com/joeydtaylor/steeze-kv/pkg/middleware/auth"
)

// withGuard answers 401/403 before the request reaches the worker pool.
func withGuard(next http.HandlerFunc, a *auth.Middleware, g manifest.Guard) http.HandlerFunc {
	if !g.RequireAuth && len(g.Users) == 0 && len(g.Roles) == 0 {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if status := authorize(r.Context(), a, g); status != http.StatusOK {
			writeStatus(w, status)
			return
		}
		next(w, r)
	}
}

// authorize: any guard needs an identity; Users and Roles, when set, must
// each match. Admins satisfy both lists.
func authorize(ctx context.Context, a *auth.Middleware, g manifest.Guard) int {
	if a == nil || !a.IsAuthenticated(ctx) {
		return http.StatusUnauthorized
	}
	if len(g.Users) > 0 && !slices.ContainsFunc(g.Users, func(u string) bool { return a.IsUser(ctx, u) }) {
		return http.StatusForbidden
	}
	if len(g.Roles) > 0 && !slices.ContainsFunc(g.Roles, func(role string) bool { return a.IsRole(ctx, auth.Role{Name: role}) }) {
		return http.StatusForbidden
	}
	return http.StatusOK
}
