package shared

import "context"

type sessionContextKey struct{}

type actorContextKey struct{}

// Actor is the authenticated identity attached to every engine call.
// Role claims are trusted as supplied by the auth collaborator.
type Actor struct {
	ID   int64
	Name string
	Role string
}

// IsAdmin reports whether the actor holds the elevated role.
func (a Actor) IsAdmin() bool { return a.Role == "admin" }

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context. The zero Actor is
// returned when no identity was attached.
func ActorFromContext(ctx context.Context) Actor {
	actor, _ := ctx.Value(actorContextKey{}).(Actor)
	return actor
}
