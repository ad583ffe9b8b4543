// internal/app/features/sessions/handler.go
package sessions

import (
	"context"
	"errors"
	"net/http"

	"github.com/showteam/teamhub/internal/app/board"
	"github.com/showteam/teamhub/internal/app/system/auditlog"
	"github.com/showteam/teamhub/internal/app/system/auth"
	"github.com/showteam/teamhub/internal/app/system/limits"
	"github.com/showteam/teamhub/internal/app/system/respond"
	"github.com/showteam/teamhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler signs members in and out. Credentials are checked by the
// identity provider in front of this service; a sign-in here only names
// the member.
type Handler struct {
	Users      auth.Users
	SessionMgr *auth.SessionManager
	Boards     *board.Registry
	Audit      *auditlog.Logger
	Log        *zap.Logger
}

func NewHandler(users auth.Users, sessionMgr *auth.SessionManager, boards *board.Registry, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:      users,
		SessionMgr: sessionMgr,
		Boards:     boards,
		Audit:      audit,
		Log:        logger,
	}
}

type signInRequest struct {
	UserID string `json:"user_id" validate:"required,max=128"`
}

// ServeSignIn handles POST /session.
func (h *Handler) ServeSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := respond.Decode(w, r, limits.MaxJSONBody, &req); err != nil {
		respond.BadRequest(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	member, err := h.Users.GetByID(ctx, req.UserID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.Log.Info("sign-in for unknown user", zap.String("user_id", req.UserID))
		h.Audit.SignInFailed(ctx, r, req.UserID, "unknown user")
		respond.Error(w, http.StatusUnauthorized, "unknown user")
		return
	}
	if err != nil {
		h.Log.Error("sign-in: load user", zap.String("user_id", req.UserID), zap.Error(err))
		respond.Upstream(w, "load user")
		return
	}

	if err := h.SessionMgr.SignIn(w, r, member.ID); err != nil {
		h.Log.Error("sign-in: save session", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "could not start session")
		return
	}
	h.Log.Info("member signed in", zap.String("user_id", member.ID))
	h.Audit.SignedIn(ctx, r, member.ID)
	respond.JSON(w, http.StatusOK, member)
}

// ServeSignOut handles DELETE /session.
func (h *Handler) ServeSignOut(w http.ResponseWriter, r *http.Request) {
	if sess, ok := auth.Current(r); ok {
		h.Boards.ForgetUser(sess.UserID())
		h.Audit.SignedOut(r.Context(), r, sess.UserID())
	}
	if err := h.SessionMgr.SignOut(w, r); err != nil {
		h.Log.Error("sign-out: save session", zap.Error(err))
	}
	respond.NoContent(w)
}

// ServeCurrent handles GET /session.
func (h *Handler) ServeCurrent(w http.ResponseWriter, r *http.Request) {
	sess, ok := auth.Current(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	respond.JSON(w, http.StatusOK, sess.Member)
}
