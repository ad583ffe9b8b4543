// internal/app/session/session.go
package session

import (
	"context"

	"github.com/showteam/teamhub/internal/domain/models"
)

// Session identifies the member on whose behalf an operation runs.
// Repositories receive it explicitly; nothing reads a process-wide
// "current user".
type Session struct {
	Member models.Member
}

// New returns a Session for the member.
func New(m models.Member) Session {
	return Session{Member: m}
}

// UserID is the id of the session's member.
func (s Session) UserID() string {
	return s.Member.ID
}

type ctxKey struct{}

// WithSession stores the session on the request context. Only the HTTP layer
// uses this; repositories take the Session as a parameter.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored by WithSession.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok && s.Member.ID != ""
}
