package api

import (
	"context"

	"github.com/geijin5/apsar-emergency-api/models"
)

type actorKey struct{}

// WithActor returns a copy of parent carrying the authenticated actor
func WithActor(parent context.Context, actor models.Actor) context.Context {
	return context.WithValue(parent, actorKey{}, actor)
}

// ActorFrom returns the actor stored by the auth middleware
func ActorFrom(ctx context.Context) (models.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(models.Actor)
	return actor, ok
}
