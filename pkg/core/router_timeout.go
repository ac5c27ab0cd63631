package core

import (
	"context"
	"net/http"

	manifest "github.com/joeydtaylor/steeze-kv/pkg/manifest"
)

// withPolicy bounds the dispatcher wait by policy.timeout_ms. The pool's own
// dispatch timeout still applies; whichever is shorter wins.
func withPolicy(next http.HandlerFunc, p manifest.Policy) http.HandlerFunc {
	limit := p.Timeout()
	if limit <= 0 {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), limit)
		defer cancel()
		next(w, r.WithContext(ctx))
	}
}
