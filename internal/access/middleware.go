package access

import (
	"context"
	"encoding/json"
	"net/http"

	"novac/kit/observability"
)

type principalKey struct{}

// VerifierContract define token verification responsibility.
type VerifierContract interface {
	Verify(token string) (Principal, error)
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Require rejects requests without a valid bearer token (401) or whose role
// lacks perm (403).
func Require(v VerifierContract, perm Permission, logger *observability.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := v.Verify(BearerToken(r.Header.Get("Authorization")))
		if err != nil {
			logger.Warn("access denied", "layer", "middleware", "component", "access", "method", "Require", "path", r.URL.Path, "error", err.Error())
			w.Header().Set("WWW-Authenticate", `Bearer realm="novac"`)
			deny(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if !p.Can(perm) {
			logger.Warn("access denied", "layer", "middleware", "component", "access", "method", "Require", "path", r.URL.Path, "subject", p.Subject, "role", string(p.Role), "permission", string(perm))
			deny(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

func deny(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "data": map[string]string{"message": msg}})
}
