package identity

import (
	"context"
	"testing"
)

func TestActorContextRoundTrip(t *testing.T) {
	ctx := WithActor(context.Background(), Actor{ID: "user-1", Role: RoleUser})
	actor, ok := ActorFromContext(ctx)
	if !ok {
		t.Fatalf("expected actor in context")
	}
	if actor.ID != "user-1" || actor.Role != RoleUser {
		t.Fatalf("unexpected actor %+v", actor)
	}
}

func TestActorFromContextMissing(t *testing.T) {
	if _, ok := ActorFromContext(context.Background()); ok {
		t.Fatalf("expected no actor")
	}
	if _, ok := ActorFromContext(WithActor(context.Background(), Actor{})); ok {
		t.Fatalf("empty actor id should not count")
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleUser, RoleAdmin, RoleSystem} {
		if !r.Valid() {
			t.Fatalf("expected %q to be valid", r)
		}
	}
	if Role("root").Valid() {
		t.Fatalf("unexpected valid role")
	}
	if !System().IsSystem() || System().IsAdmin() {
		t.Fatalf("system actor flags wrong")
	}
}
