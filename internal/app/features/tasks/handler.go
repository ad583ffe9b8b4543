// internal/app/features/tasks/handler.go
package tasks

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/showteam/teamhub/internal/app/board"
	"github.com/showteam/teamhub/internal/app/repository"
	"github.com/showteam/teamhub/internal/app/session"
	"github.com/showteam/teamhub/internal/app/system/auth"
	"github.com/showteam/teamhub/internal/app/system/respond"
	"github.com/showteam/teamhub/internal/domain/models"
	"go.uber.org/zap"
)

// Handler serves a team's task board and task details. Every route needs
// the signed-in member to belong to the team.
type Handler struct {
	Boards *board.Registry
	Tasks  *repository.TaskRepository
	Log    *zap.Logger
	Now    func() time.Time
}

func NewHandler(boards *board.Registry, tasks *repository.TaskRepository, logger *zap.Logger) *Handler {
	return &Handler{
		Boards: boards,
		Tasks:  tasks,
		Log:    logger,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

type teamScope struct {
	sess  session.Session
	board *board.Board
	team  models.Team
}

// canManage reports whether the member may delete the task: its creator
// or a team leader.
func (s teamScope) canManage(t models.Task) bool {
	return t.Created.Member.ID == s.sess.UserID() || s.team.CanEdit(s.sess.UserID())
}

func (h *Handler) scope(ctx context.Context, w http.ResponseWriter, r *http.Request) (teamScope, bool) {
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
	if !team.HasMember(sess.UserID()) {
		respond.Error(w, http.StatusForbidden, "not a member of this team")
		return teamScope{}, false
	}
	return teamScope{sess: sess, board: b, team: team}, true
}

// taskScope also resolves {taskID} among the board's tasks, so a task of
// another team is never reachable through this one.
func (h *Handler) taskScope(ctx context.Context, w http.ResponseWriter, r *http.Request) (teamScope, models.Task, bool) {
	s, ok := h.scope(ctx, w, r)
	if !ok {
		return teamScope{}, models.Task{}, false
	}
	tasks, ok := s.board.Tasks(ctx)
	if !ok {
		respond.Upstream(w, "load tasks")
		return teamScope{}, models.Task{}, false
	}
	id := chi.URLParam(r, "taskID")
	for _, t := range tasks {
		if t.ID == id {
			return s, t, true
		}
	}
	respond.NotFound(w, "task")
	return teamScope{}, models.Task{}, false
}

// changed lets the team's other boards pick up a write made through s.
func (h *Handler) changed(s teamScope) {
	h.Boards.RefreshTeam(s.team.ID, s.sess.UserID())
}

// changedAll also drops s's own cache, for writes the board does not
// patch itself.
func (h *Handler) changedAll(s teamScope) {
	h.Boards.RefreshTeam(s.team.ID)
}
