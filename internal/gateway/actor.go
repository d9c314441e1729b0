package gateway

import "context"

type actorKey struct{}

// WithActor records the signed-in user performing a write so rows can be
// stamped with updated_by.
func WithActor(ctx context.Context, userID string) context.Context {
	if userID == "" {
		return ctx
	}
	return context.WithValue(ctx, actorKey{}, userID)
}

// Actor returns the acting user id, or nil when the call is anonymous.
func Actor(ctx context.Context) *string {
	id, ok := ctx.Value(actorKey{}).(string)
	if !ok {
		return nil
	}
	return &id
}
