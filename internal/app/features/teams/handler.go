// internal/app/features/teams/handler.go
package teams

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/showteam/teamhub/internal/app/board"
	"github.com/showteam/teamhub/internal/app/repository"
	"github.com/showteam/teamhub/internal/app/session"
	"github.com/showteam/teamhub/internal/app/system/auditlog"
	"github.com/showteam/teamhub/internal/app/system/auth"
	"github.com/showteam/teamhub/internal/app/system/respond"
	"github.com/showteam/teamhub/internal/domain/models"
	"go.uber.org/zap"
)

// Handler serves teams, their members and join requests, and the live
// team-list feed.
type Handler struct {
	Teams    *repository.TeamRepository
	Users    auth.Users
	Boards   *board.Registry
	Audit    *auditlog.Logger
	Upgrader websocket.Upgrader
	Log      *zap.Logger

	// Feed keepalive; zero values use the defaults below.
	PingPeriod time.Duration
	PongWait   time.Duration
}

func NewHandler(teams *repository.TeamRepository, users auth.Users, boards *board.Registry, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Teams:  teams,
		Users:  users,
		Boards: boards,
		Audit:  audit,
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		Log: logger,
	}
}

// access is what a route requires of the signed-in member.
type access int

const (
	anyone access = iota // any signed-in member
	member               // a member of the team
	editor               // a member whose role can edit the team
)

// teamScope is the team named by {teamID}, seen through the member's board.
type teamScope struct {
	sess  session.Session
	board *board.Board
	team  models.Team
}

// scope loads {teamID} and checks access. On failure it has written the
// response.
func (h *Handler) scope(ctx context.Context, w http.ResponseWriter, r *http.Request, need access) (teamScope, bool) {
	sess, ok := auth.Current(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return teamScope{}, false
	}
	b := h.Boards.Get(sess, chi.URLParam(r, "teamID"))
	team, ok := b.Team(ctx)
	if !ok {
		respond.NotFound(w, "team")
		return teamScope{}, false
	}
	switch need {
	case member:
		if !team.HasMember(sess.UserID()) {
			respond.Error(w, http.StatusForbidden, "not a member of this team")
			return teamScope{}, false
		}
	case editor:
		if !team.CanEdit(sess.UserID()) {
			respond.Error(w, http.StatusForbidden, "only team leaders can do this")
			return teamScope{}, false
		}
	case anyone:
	}
	return teamScope{sess: sess, board: b, team: team}, true
}
