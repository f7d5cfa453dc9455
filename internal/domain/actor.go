package domain

import "context"

// Actor is the already-authenticated identity on whose behalf an
// operation runs. Authentication and permission checks happen outside
// this service; the only identity rule enforced here is maker/checker
// separation on approvals.
type Actor struct {
	ID   string
	Name string
}

type actorContextKey struct{}

// WithActor returns a context carrying the acting identity.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the acting identity from the context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
