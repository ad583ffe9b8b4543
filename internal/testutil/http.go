package testutil

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/showteam/teamhub/internal/app/session"
	"github.com/showteam/teamhub/internal/domain/models"
)

// WithChiURLParams adds chi URL parameters (key, value pairs) to the
// request context. Use this in handler tests that call handlers directly.
func WithChiURLParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// WithMember attaches a signed-in session for the member to the request.
func WithMember(r *http.Request, m models.Member) *http.Request {
	return r.WithContext(session.WithSession(r.Context(), session.New(m)))
}
