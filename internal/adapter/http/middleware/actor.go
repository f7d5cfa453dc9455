package middleware

import (
	"net/http"

	"github.com/lexhq/trustledger/internal/domain"
)

const (
	// ActorIDHeader carries the already-authenticated actor identity.
	// Authentication itself lives upstream; this service only needs to
	// know who is acting, for audit and dual-control checks.
	ActorIDHeader   = "X-Actor-ID"
	actorNameHeader = "X-Actor-Name"
)

// Actor extracts the acting user from request headers into the request
// context. Mutating routes without an actor are rejected; every ledger
// change must be attributable to a person.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actorID := r.Header.Get(ActorIDHeader)

		if actorID == "" {
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"missing actor identity","message":"X-Actor-ID header is required"}`))
			return
		}

		ctx := domain.WithActor(r.Context(), domain.Actor{
			ID:   actorID,
			Name: r.Header.Get(actorNameHeader),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
