package tokenledger

import "context"

// The acting identity is carried on the context, standing in for the host
// transaction's sender. Every mutating operation reads it; holder checks
// compare against it.

type actorKey struct{}

// WithActor returns a context carrying the acting identity.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom extracts the acting identity from the context, or "" if none
// is set.
func ActorFrom(ctx context.Context) string {
	if v, ok := ctx.Value(actorKey{}).(string); ok {
		return v
	}
	return ""
}
