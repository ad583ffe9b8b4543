// internal/app/features/tasks/detail.go
package tasks

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/showteam/teamhub/internal/app/system/htmlsanitize"
	"github.com/showteam/teamhub/internal/app/system/limits"
	"github.com/showteam/teamhub/internal/app/system/respond"
	"github.com/showteam/teamhub/internal/app/system/timeouts"
	"github.com/showteam/teamhub/internal/domain/models"
)

type detailResponse struct {
	Task     models.Task      `json:"task"`
	Comments []models.Comment `json:"comments"`
}

// ServeGet handles GET /teams/{teamID}/tasks/{taskID}: the stored task with
// its comments.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	s, cached, ok := h.taskScope(ctx, w, r)
	if !ok {
		return
	}
	known := make([]models.Member, 0, len(s.team.Members)+1)
	known = append(known, cached.Created.Member)
	for _, mi := range s.team.Members {
		known = append(known, mi.Profile)
	}

	task, ok := h.Tasks.GetTaskByID(ctx, cached.ID, known)
	if !ok {
		respond.NotFound(w, "task")
		return
	}
	comments, ok := h.Tasks.Comments(ctx, task.ID)
	if !ok {
		respond.Upstream(w, "load comments")
		return
	}
	respond.JSON(w, http.StatusOK, detailResponse{Task: task, Comments: comments})
}

// ServeUpdate handles PUT /teams/{teamID}/tasks/{taskID}. The task's id,
// series, attachments, comments and creator are kept.
func (h *Handler) ServeUpdate(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := respond.Decode(w, r, limits.MaxJSONBody, &req); err != nil {
		respond.BadRequest(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	s, task, ok := h.taskScope(ctx, w, r)
	if !ok {
		return
	}
	updated, err := req.apply(task, s.team)
	if err != nil {
		respond.BadRequest(w, err)
		return
	}
	updated = updated.AppendHistory(models.HistoryTaskEdited, h.Now())

	if !s.board.UpdateTask(ctx, updated) {
		respond.Upstream(w, "update task")
		return
	}
	h.changed(s)
	respond.JSON(w, http.StatusOK, updated)
}

// ServeDelete handles DELETE /teams/{teamID}/tasks/{taskID}.
func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	s, task, ok := h.taskScope(ctx, w, r)
	if !ok {
		return
	}
	if !s.canManage(task) {
		respond.Error(w, http.StatusForbidden, "only the creator or a team leader can delete this task")
		return
	}
	if !s.board.DeleteTask(ctx, task) {
		respond.Upstream(w, "delete task")
		return
	}
	h.changed(s)
	respond.NoContent(w)
}

// ServeStatus handles PATCH /teams/{teamID}/tasks/{taskID}/status.
func (h *Handler) ServeStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := respond.Decode(w, r, limits.MaxJSONBody, &req); err != nil {
		respond.BadRequest(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	s, task, ok := h.taskScope(ctx, w, r)
	if !ok {
		return
	}
	if !s.board.UpdateStatus(ctx, task.ID, models.Status(req.Status)) {
		respond.Upstream(w, "update status")
		return
	}
	h.changed(s)
	task.Status = models.Status(req.Status)
	respond.JSON(w, http.StatusOK, task)
}

// ServeComments handles GET /teams/{teamID}/tasks/{taskID}/comments.
func (h *Handler) ServeComments(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	_, task, ok := h.taskScope(ctx, w, r)
	if !ok {
		return
	}
	comments, ok := h.Tasks.Comments(ctx, task.ID)
	if !ok {
		respond.Upstream(w, "load comments")
		return
	}
	respond.JSON(w, http.StatusOK, comments)
}

type commentRequest struct {
	Body string `json:"body" validate:"required"`
}

// ServePostComment handles POST /teams/{teamID}/tasks/{taskID}/comments.
// The body keeps safe formatting markup.
func (h *Handler) ServePostComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := respond.Decode(w, r, limits.MaxJSONBody, &req); err != nil {
		respond.BadRequest(w, err)
		return
	}
	if len(req.Body) > limits.MaxCommentLength {
		respond.BadRequest(w, errors.New("comment is too long"))
		return
	}
	if htmlsanitize.PlainText(req.Body) == "" {
		respond.BadRequest(w, errors.New("comment is empty"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	s, task, ok := h.taskScope(ctx, w, r)
	if !ok {
		return
	}
	c, ok := h.Tasks.PostComment(ctx, s.sess, task.ID, req.Body)
	if !ok {
		respond.Upstream(w, "post comment")
		return
	}
	h.changedAll(s)
	respond.JSON(w, http.StatusCreated, c)
}

type fileRequest struct {
	Name        string    `json:"name" validate:"required,max=255"`
	ContentType string    `json:"content_type" validate:"required,max=127"`
	Size        int64     `json:"size" validate:"gte=0"`
	UploadedBy  string    `json:"uploaded_by"` // removal only
	UploadedAt  time.Time `json:"uploaded_at"` // removal only
}

// ServeAddFile handles POST /teams/{teamID}/tasks/{taskID}/files. The
// uploader and time are stamped from the session.
func (h *Handler) ServeAddFile(w http.ResponseWriter, r *http.Request) {
	serveAttachment(h, w, r, func(ctx context.Context, s teamScope, task models.Task, req fileRequest) (any, bool) {
		f := models.File{
			Name:        req.Name,
			ContentType: req.ContentType,
			Size:        req.Size,
			UploadedBy:  s.sess.UserID(),
			UploadedAt:  h.Now(),
		}
		return f, h.Tasks.AddFile(ctx, f, task.ID)
	}, "add file", http.StatusCreated)
}

// ServeDeleteFile handles DELETE /teams/{teamID}/tasks/{taskID}/files.
// The body names the file exactly as stored.
func (h *Handler) ServeDeleteFile(w http.ResponseWriter, r *http.Request) {
	serveAttachment(h, w, r, func(ctx context.Context, _ teamScope, task models.Task, req fileRequest) (any, bool) {
		f := models.File(req)
		return f, h.Tasks.DeleteFile(ctx, f, task.ID)
	}, "delete file", http.StatusOK)
}

type linkRequest struct {
	URL     string    `json:"url" validate:"required,url,max=2048"`
	Title   string    `json:"title" validate:"max=200"`
	AddedBy string    `json:"added_by"` // removal only
	AddedAt time.Time `json:"added_at"` // removal only
}

// ServeAddLink handles POST /teams/{teamID}/tasks/{taskID}/links.
func (h *Handler) ServeAddLink(w http.ResponseWriter, r *http.Request) {
	serveAttachment(h, w, r, func(ctx context.Context, s teamScope, task models.Task, req linkRequest) (any, bool) {
		l := models.Link{
			URL:     req.URL,
			Title:   htmlsanitize.PlainText(req.Title),
			AddedBy: s.sess.UserID(),
			AddedAt: h.Now(),
		}
		return l, h.Tasks.AddLink(ctx, l, task.ID)
	}, "add link", http.StatusCreated)
}

// ServeDeleteLink handles DELETE /teams/{teamID}/tasks/{taskID}/links.
func (h *Handler) ServeDeleteLink(w http.ResponseWriter, r *http.Request) {
	serveAttachment(h, w, r, func(ctx context.Context, _ teamScope, task models.Task, req linkRequest) (any, bool) {
		l := models.Link(req)
		return l, h.Tasks.DeleteLink(ctx, l, task.ID)
	}, "delete link", http.StatusOK)
}

type historyRequest struct {
	Key string `json:"key" validate:"required,max=64"`
}

// ServeAddHistory handles POST /teams/{teamID}/tasks/{taskID}/history.
func (h *Handler) ServeAddHistory(w http.ResponseWriter, r *http.Request) {
	serveAttachment(h, w, r, func(ctx context.Context, _ teamScope, task models.Task, req historyRequest) (any, bool) {
		line := models.History{Timestamp: h.Now(), Key: req.Key}
		return line, h.Tasks.AddHistory(ctx, line, task.ID)
	}, "add history", http.StatusCreated)
}

// serveAttachment decodes a T, resolves the task and runs write. The
// board does not patch attachments, so every cache of the team is
// dropped afterwards.
func serveAttachment[T any](h *Handler, w http.ResponseWriter, r *http.Request,
	write func(ctx context.Context, s teamScope, task models.Task, req T) (any, bool),
	what string, status int) {
	var req T
	if err := respond.Decode(w, r, limits.MaxJSONBody, &req); err != nil {
		respond.BadRequest(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	s, task, ok := h.taskScope(ctx, w, r)
	if !ok {
		return
	}
	out, ok := write(ctx, s, task, req)
	if !ok {
		respond.Upstream(w, what)
		return
	}
	h.changedAll(s)
	respond.JSON(w, status, out)
}
