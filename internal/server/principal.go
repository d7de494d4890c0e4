package server

import (
	"context"
	"net/http"
	"strings"
)

// Principal is the authenticated caller as asserted by the gateway in
// front of this service. Token verification is the gateway's concern;
// these headers are trusted inside the deployment boundary.
type Principal struct {
	ID       string
	Role     string
	TenantID string
}

type principalCtxKey struct{}

func withPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

func currentPrincipal(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(Principal)
	return p, ok
}

func principalFromRequest(r *http.Request) (Principal, bool) {
	id := strings.TrimSpace(r.Header.Get("X-Principal-Id"))
	if id == "" {
		return Principal{}, false
	}
	return Principal{
		ID:       id,
		Role:     strings.ToLower(strings.TrimSpace(r.Header.Get("X-Principal-Role"))),
		TenantID: strings.TrimSpace(r.Header.Get("X-Tenant-Id")),
	}, true
}

func withPrincipalMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := principalFromRequest(r); ok {
			r = r.WithContext(withPrincipal(r.Context(), p))
		}
		next.ServeHTTP(w, r)
	})
}
