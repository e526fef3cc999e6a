package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/ariefcatur/go-commerce-ledger/internal/auth"
)

type ctxKey struct{}

// Authenticate requires a valid Bearer token and puts its actor on the
// request context.
func Authenticate(v *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(h, "Bearer ")
			if !ok || token == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
				return
			}
			claims, err := v.Verify(token)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
				return
			}
			ctx := context.WithValue(r.Context(), ctxKey{}, claims.Actor())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorFrom returns the actor set by Authenticate.
func ActorFrom(ctx context.Context) (auth.Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(auth.Actor)
	return a, ok
}

func actor(r *http.Request) auth.Actor {
	a, _ := ActorFrom(r.Context())
	return a
}
