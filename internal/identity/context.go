// Package identity carries the authenticated caller through request contexts.
package identity

import "context"

// Role is the coarse permission class of a caller.
type Role string

const (
	RoleUser   Role = "user"
	RoleAdmin  Role = "admin"
	RoleSystem Role = "system"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSystem:
		return true
	}
	return false
}

// Actor is the identity an operation is performed on behalf of.
type Actor struct {
	ID   string
	Role Role
}

// System is the actor used by background jobs.
func System() Actor {
	return Actor{ID: "system", Role: RoleSystem}
}

func (a Actor) IsAdmin() bool  { return a.Role == RoleAdmin }
func (a Actor) IsSystem() bool { return a.Role == RoleSystem }

type ctxKey string

const actorKey ctxKey = "booking.actor"

// WithActor stores the actor in context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext extracts the actor if present.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok && actor.ID != ""
}
