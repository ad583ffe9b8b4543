// internal/app/features/tasks/board.go
package tasks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"github.com/showteam/teamhub/internal/app/board"
	"github.com/showteam/teamhub/internal/app/system/limits"
	"github.com/showteam/teamhub/internal/app/system/paging"
	"github.com/showteam/teamhub/internal/app/system/respond"
	"github.com/showteam/teamhub/internal/app/system/timeouts"
	"github.com/showteam/teamhub/internal/domain/models"
	"go.uber.org/zap"
)

const dayLayout = "2006-01-02"

type boardResponse struct {
	View board.View `json:"view"`
	board.Page
}

// ServeBoard handles GET /teams/{teamID}/tasks. Query parameters change the
// board's view and stick until changed again: tab, q, status, category,
// sort, page, page_size, start_from, start_to, due_from, due_to (dates as
// YYYY-MM-DD). An empty status or category clears that filter.
func (h *Handler) ServeBoard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	s, ok := h.scope(ctx, w, r)
	if !ok {
		return
	}
	v, err := viewFromQuery(r, s.board.View())
	if err != nil {
		respond.BadRequest(w, err)
		return
	}
	s.board.SetView(v)

	page, ok := s.board.Page(ctx)
	if !ok {
		respond.Upstream(w, "load tasks")
		return
	}
	respond.JSON(w, http.StatusOK, boardResponse{View: v, Page: page})
}

func viewFromQuery(r *http.Request, v board.View) (board.View, error) {
	q := r.URL.Query()
	var err error

	if q.Has("tab") {
		if v.Tab, err = board.ParseTab(query.Get(r, "tab")); err != nil {
			return v, err
		}
	}
	if q.Has("sort") {
		if v.Sort, err = board.ParseSort(query.Get(r, "sort")); err != nil {
			return v, err
		}
	}
	if q.Has("q") {
		v.Query = query.Search(r, "q")
	}
	if q.Has("status") {
		v.Status = ""
		if s := query.Get(r, "status"); s != "" {
			if v.Status, err = models.ParseStatus(s); err != nil {
				return v, err
			}
		}
	}
	if q.Has("category") {
		v.Category = ""
		if c := query.Get(r, "category"); c != "" {
			if v.Category, err = models.ParseTaskCategory(c); err != nil {
				return v, err
			}
		}
	}

	dates := []struct {
		name string
		dst  *time.Time
	}{
		{"start_from", &v.Start.From},
		{"start_to", &v.Start.To},
		{"due_from", &v.Due.From},
		{"due_to", &v.Due.To},
	}
	for _, d := range dates {
		if !q.Has(d.name) {
			continue
		}
		day, err := time.Parse(dayLayout, query.Get(r, d.name))
		if err != nil {
			return v, fmt.Errorf("%s: want a date like 2006-01-31", d.name)
		}
		*d.dst = day
	}

	if q.Has("page") {
		v.Page = paging.ParsePage(r)
	}
	if q.Has("page_size") {
		v.PageSize = paging.ParsePageSize(r)
	}
	return v, nil
}

// ServeStats handles GET /teams/{teamID}/stats: the member's completed and
// assigned counters and grade.
func (h *Handler) ServeStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	s, ok := h.scope(ctx, w, r)
	if !ok {
		return
	}
	if !s.board.LoadTaskCounts(ctx) {
		respond.Upstream(w, "load task counts")
		return
	}
	respond.JSON(w, http.StatusOK, s.board.Counts())
}

type taskRequest struct {
	Title         string    `json:"title" validate:"required,max=200"`
	Description   string    `json:"description" validate:"max=5000"`
	Status        string    `json:"status" validate:"omitempty,oneof=PENDING IN_PROGRESS ON_HOLD IN_REVIEW OVERDUE DONE"`
	Category      string    `json:"category" validate:"omitempty,oneof=ADMINISTRATIVE TECHNICAL DESIGN MARKETING OPERATIONS"`
	StartAt       time.Time `json:"start_at" validate:"required"`
	DueAt         time.Time `json:"due_at" validate:"required,gtefield=StartAt"`
	Repeat        string    `json:"repeat" validate:"omitempty,oneof=NO_REPEAT DAILY WEEKLY MONTHLY"`
	RepeatEndDate time.Time `json:"repeat_end_date"`
	Tags          []string  `json:"tags" validate:"max=20,dive,max=50"`
	Delegates     []string  `json:"delegates" validate:"max=200,dive,required"` // member record ids
}

var errBadTask = errors.New("invalid task")

// apply copies the request onto t. Delegates must be member records of
// team.
func (req taskRequest) apply(t models.Task, team models.Team) (models.Task, error) {
	t.Title = req.Title
	t.Description = req.Description
	t.StartAt = req.StartAt.UTC()
	t.DueAt = req.DueAt.UTC()
	if req.Status != "" {
		t.Status = models.Status(req.Status)
	}
	if req.Category != "" {
		t.Category = models.TaskCategory(req.Category)
	}
	if req.Repeat != "" {
		t.Repeat = models.Repeat(req.Repeat)
	}
	t.RepeatEndDate = req.RepeatEndDate.UTC()
	if t.Repeat != models.RepeatNone {
		if req.RepeatEndDate.IsZero() {
			return t, fmt.Errorf("%w: repeat_end_date is required when the task repeats", errBadTask)
		}
		if req.RepeatEndDate.Before(req.StartAt) {
			return t, fmt.Errorf("%w: repeat_end_date is before start_at", errBadTask)
		}
	} else {
		t.RepeatEndDate = time.Time{}
	}
	t.Tags = append([]string{}, req.Tags...)

	delegates := make([]models.MemberInfoTeam, 0, len(req.Delegates))
	for _, id := range req.Delegates {
		mi, ok := memberRecord(team, id)
		if !ok {
			return t, fmt.Errorf("%w: %s is not a member of this team", errBadTask, id)
		}
		delegates = append(delegates, mi)
	}
	t.Delegates = delegates
	return t, nil
}

func memberRecord(team models.Team, infoID string) (models.MemberInfoTeam, bool) {
	for _, mi := range team.Members {
		if mi.ID == infoID {
			return mi, true
		}
	}
	return models.MemberInfoTeam{}, false
}

// ServeCreate handles POST /teams/{teamID}/tasks. A repeating task is
// expanded into its whole series, every occurrence sharing one group id.
// Occurrences are inserted one by one; on a failure the ones already
// stored are kept and reported.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := respond.Decode(w, r, limits.MaxJSONBody, &req); err != nil {
		respond.BadRequest(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	s, ok := h.scope(ctx, w, r)
	if !ok {
		return
	}
	draft, err := req.apply(models.NewEmptyTask(s.sess.Member, h.Now()), s.team)
	if err != nil {
		respond.BadRequest(w, err)
		return
	}

	series := draft.Occurrences()
	created := make([]models.Task, 0, len(series))
	for _, o := range series {
		t, ok := s.board.AddTask(ctx, o)
		if !ok {
			h.Log.Warn("task series partially created",
				zap.String("team_id", s.team.ID),
				zap.String("group_id", draft.GroupID),
				zap.Int("created", len(created)),
				zap.Int("wanted", len(series)))
			break
		}
		created = append(created, t)
	}
	if len(created) > 0 {
		h.changed(s)
	}
	if len(created) < len(series) {
		respond.JSON(w, http.StatusBadGateway, map[string]any{
			"error":   fmt.Sprintf("created %d of %d tasks", len(created), len(series)),
			"created": created,
		})
		return
	}
	respond.JSON(w, http.StatusCreated, created)
}

// ServeDeleteSeries handles DELETE /teams/{teamID}/tasks/groups/{groupID}.
func (h *Handler) ServeDeleteSeries(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	s, ok := h.scope(ctx, w, r)
	if !ok {
		return
	}
	tasks, ok := s.board.Tasks(ctx)
	if !ok {
		respond.Upstream(w, "load tasks")
		return
	}
	groupID := chi.URLParam(r, "groupID")
	found := false
	for _, t := range tasks {
		if t.GroupID != groupID {
			continue
		}
		found = true
		if !s.canManage(t) {
			respond.Error(w, http.StatusForbidden, "only the creator or a team leader can delete these tasks")
			return
		}
	}
	if !found {
		respond.NotFound(w, "task series")
		return
	}
	if !s.board.DeleteRecurringTask(ctx, groupID) {
		respond.Upstream(w, "delete task series")
		return
	}
	h.changed(s)
	respond.NoContent(w)
}

type dragRequest struct {
	TaskID  string  `json:"task_id" validate:"required"`
	OffsetX float64 `json:"offset_x"`
}

// ServeDrag handles POST /teams/{teamID}/drag. The first call for a task
// picks it up; later calls for the same task move it by offset_x.
func (h *Handler) ServeDrag(w http.ResponseWriter, r *http.Request) {
	var req dragRequest
	if err := respond.Decode(w, r, limits.MaxJSONBody, &req); err != nil {
		respond.BadRequest(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	s, ok := h.scope(ctx, w, r)
	if !ok {
		return
	}
	if d, dragging := s.board.Dragging(); !dragging || d.TaskID != req.TaskID {
		if _, ok := s.board.Tasks(ctx); !ok {
			respond.Upstream(w, "load tasks")
			return
		}
		if !s.board.StartDrag(req.TaskID) {
			respond.NotFound(w, "task")
			return
		}
	}
	s.board.DragBy(req.OffsetX)
	d, _ := s.board.Dragging()
	respond.JSON(w, http.StatusOK, d)
}

// ServeCancelDrag handles DELETE /teams/{teamID}/drag.
func (h *Handler) ServeCancelDrag(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	s, ok := h.scope(ctx, w, r)
	if !ok {
		return
	}
	s.board.CancelDrag()
	respond.NoContent(w)
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=PENDING IN_PROGRESS ON_HOLD IN_REVIEW OVERDUE DONE"`
}

// ServeDrop handles POST /teams/{teamID}/drop: the dragged task lands on
// the status column.
func (h *Handler) ServeDrop(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := respond.Decode(w, r, limits.MaxJSONBody, &req); err != nil {
		respond.BadRequest(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	s, ok := h.scope(ctx, w, r)
	if !ok {
		return
	}
	if _, dragging := s.board.Dragging(); !dragging {
		respond.Error(w, http.StatusConflict, "no task is being dragged")
		return
	}
	if !s.board.DropOnStatus(ctx, models.Status(req.Status)) {
		respond.Upstream(w, "update status")
		return
	}
	h.changed(s)
	respond.NoContent(w)
}
