// internal/app/repository/tasks.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/showteam/teamhub/internal/app/session"
	"github.com/showteam/teamhub/internal/app/store/documents"
	"github.com/showteam/teamhub/internal/app/system/htmlsanitize"
	"github.com/showteam/teamhub/internal/app/system/metrics"
	"github.com/showteam/teamhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// TaskDeps bundles what a TaskRepository needs.
type TaskDeps struct {
	Tasks       TaskStore
	Comments    CommentStore
	MemberInfos MemberInfoStore
	Users       UserStore
	Tx          TxRunner
	Logger      *zap.Logger
	Now         func() time.Time // defaults to time.Now().UTC()
}

// TaskRepository reads and writes tasks. It is the error boundary for task
// operations: failures are logged and reported as false or absent values.
type TaskRepository struct {
	tasks    TaskStore
	comments CommentStore
	infos    MemberInfoStore
	users    UserStore
	tx       TxRunner
	log      *zap.Logger
	now      func() time.Time
}

// NewTaskRepository builds a TaskRepository.
func NewTaskRepository(d TaskDeps) *TaskRepository {
	now := d.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &TaskRepository{
		tasks:    d.Tasks,
		comments: d.Comments,
		infos:    d.MemberInfos,
		users:    d.Users,
		tx:       d.Tx,
		log:      d.Logger,
		now:      now,
	}
}

// GetTaskByID fetches one task. knownUsers resolves the creator and
// delegates without another users query; pass nil to load all profiles.
func (r *TaskRepository) GetTaskByID(ctx context.Context, id string, knownUsers []models.Member) (models.Task, bool) {
	doc, err := r.tasks.GetByID(ctx, id)
	if err != nil {
		r.failed("get_task", err, zap.String("task_id", id))
		return models.Task{}, false
	}
	dir, err := r.directory(ctx, []documents.Task{doc}, knownUsers)
	if err != nil {
		r.failed("get_task", err, zap.String("task_id", id))
		return models.Task{}, false
	}
	t, err := dir.Task(doc)
	if err != nil {
		r.failed("get_task", err, zap.String("task_id", id))
		return models.Task{}, false
	}
	metrics.Repo("get_task", true)
	return t, true
}

// ListByTeam fetches every task of a team once. Documents that cannot be
// mapped are logged and skipped.
func (r *TaskRepository) ListByTeam(ctx context.Context, teamID string) ([]models.Task, bool) {
	_, tasks, err := r.loadTeamTasks(ctx, teamID)
	if err != nil {
		r.failed("list_tasks", err, zap.String("team_id", teamID))
		return []models.Task{}, false
	}
	metrics.Repo("list_tasks", true)
	return tasks, true
}

// loadTeamTasks returns the raw documents and the mappable tasks.
func (r *TaskRepository) loadTeamTasks(ctx context.Context, teamID string) ([]documents.Task, []models.Task, error) {
	docs, err := r.tasks.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, nil, err
	}
	dir, err := r.directory(ctx, docs, nil)
	if err != nil {
		return nil, nil, err
	}
	tasks := make([]models.Task, 0, len(docs))
	for _, doc := range docs {
		t, err := dir.Task(doc)
		if err != nil {
			r.log.Warn("skipping unmappable task", zap.String("task_id", doc.ID), zap.Error(err))
			continue
		}
		tasks = append(tasks, t)
	}
	return docs, tasks, nil
}

// CompletedCountForUser counts DONE tasks the user created plus DONE tasks
// delegated to the user. A task the user both created and is delegated to
// counts twice.
func (r *TaskRepository) CompletedCountForUser(ctx context.Context, userID string) (int, bool) {
	return r.countForUser(ctx, "completed_count", userID, string(models.StatusDone))
}

// AssignedCountForUser counts tasks the user created plus tasks delegated
// to the user, any status, with the same double counting.
func (r *TaskRepository) AssignedCountForUser(ctx context.Context, userID string) (int, bool) {
	return r.countForUser(ctx, "assigned_count", userID, "")
}

func (r *TaskRepository) countForUser(ctx context.Context, op, userID, status string) (int, bool) {
	created, err := r.tasks.CountCreatedBy(ctx, userID, status)
	if err != nil {
		r.failed(op, err, zap.String("user_id", userID))
		return 0, false
	}
	infoIDs, err := r.infos.IDsByUser(ctx, userID)
	if err != nil {
		r.failed(op, err, zap.String("user_id", userID))
		return 0, false
	}
	delegated, err := r.tasks.CountDelegatedTo(ctx, infoIDs, status)
	if err != nil {
		r.failed(op, err, zap.String("user_id", userID))
		return 0, false
	}
	metrics.Repo(op, true)
	return int(created + delegated), true
}

// AddComment attaches an existing comment id to the task.
func (r *TaskRepository) AddComment(ctx context.Context, commentID, taskID string) bool {
	return r.result("add_comment", r.tasks.AddComment(ctx, taskID, commentID), zap.String("task_id", taskID))
}

// AddFile adds the attachment to the task's file set.
func (r *TaskRepository) AddFile(ctx context.Context, f models.File, taskID string) bool {
	return r.result("add_file", r.tasks.AddFile(ctx, taskID, documents.FileFromDomain(f)), zap.String("task_id", taskID))
}

// DeleteFile removes every equal attachment from the task.
func (r *TaskRepository) DeleteFile(ctx context.Context, f models.File, taskID string) bool {
	return r.result("delete_file", r.tasks.RemoveFile(ctx, taskID, documents.FileFromDomain(f)), zap.String("task_id", taskID))
}

// AddLink adds the link to the task's link set.
func (r *TaskRepository) AddLink(ctx context.Context, l models.Link, taskID string) bool {
	return r.result("add_link", r.tasks.AddLink(ctx, taskID, documents.LinkFromDomain(l)), zap.String("task_id", taskID))
}

// DeleteLink removes every equal link from the task.
func (r *TaskRepository) DeleteLink(ctx context.Context, l models.Link, taskID string) bool {
	return r.result("delete_link", r.tasks.RemoveLink(ctx, taskID, documents.LinkFromDomain(l)), zap.String("task_id", taskID))
}

// AddHistory appends an audit line to the task.
func (r *TaskRepository) AddHistory(ctx context.Context, h models.History, taskID string) bool {
	return r.result("add_history", r.tasks.AddHistory(ctx, taskID, documents.HistoryFromDomain(h)), zap.String("task_id", taskID))
}

// PostComment stores a new comment by the session member and attaches it
// to the task in one transaction.
func (r *TaskRepository) PostComment(ctx context.Context, sess session.Session, taskID, body string) (models.Comment, bool) {
	c := models.Comment{
		ID:        documents.NewID(),
		TaskID:    taskID,
		Author:    sess.Member,
		Body:      htmlsanitize.Sanitize(body),
		CreatedAt: r.now(),
	}
	err := r.tx.Run(ctx, func(ctx context.Context) error {
		if err := r.comments.Insert(ctx, documents.CommentFromDomain(c)); err != nil {
			return err
		}
		return r.tasks.AddComment(ctx, taskID, c.ID)
	})
	if err != nil {
		r.failed("post_comment", err, zap.String("task_id", taskID))
		return models.Comment{}, false
	}
	metrics.Repo("post_comment", true)
	return c, true
}

// Comments lists a task's comments, oldest first. Comments whose author
// profile is gone are skipped.
func (r *TaskRepository) Comments(ctx context.Context, taskID string) ([]models.Comment, bool) {
	docs, err := r.comments.ListByTask(ctx, taskID)
	if err != nil {
		r.failed("list_comments", err, zap.String("task_id", taskID))
		return []models.Comment{}, false
	}
	users, err := r.users.List(ctx)
	if err != nil {
		r.failed("list_comments", err, zap.String("task_id", taskID))
		return []models.Comment{}, false
	}
	dir := documents.NewDirectory(users, nil)
	out := make([]models.Comment, 0, len(docs))
	for _, doc := range docs {
		c, err := dir.Comment(doc)
		if err != nil {
			r.log.Warn("skipping unmappable comment", zap.String("comment_id", doc.ID), zap.Error(err))
			continue
		}
		out = append(out, c)
	}
	metrics.Repo("list_comments", true)
	return out, true
}

// UpdateTask overwrites the whole task document. Concurrent updates resolve
// as last writer wins.
func (r *TaskRepository) UpdateTask(ctx context.Context, task models.Task, teamID string) bool {
	return r.result("update_task", r.tasks.Replace(ctx, documents.TaskFromDomain(task, teamID)), zap.String("task_id", task.ID))
}

// UpdateStatus sets only the status field.
func (r *TaskRepository) UpdateStatus(ctx context.Context, status models.Status, taskID string) bool {
	return r.result("update_status", r.tasks.SetStatus(ctx, taskID, string(status)),
		zap.String("task_id", taskID), zap.String("status", string(status)))
}

// DeleteTask deletes the task and every comment it references in one
// transaction. Either all of them are gone or none is.
func (r *TaskRepository) DeleteTask(ctx context.Context, task models.Task) bool {
	err := r.tx.Run(ctx, func(ctx context.Context) error {
		return r.deleteTaskTx(ctx, task.ID, task.CommentIDs)
	})
	return r.result("delete_task", err, zap.String("task_id", task.ID))
}

// DeleteTasks deletes several tasks with their comments in one transaction.
// Used for removing a recurring series.
func (r *TaskRepository) DeleteTasks(ctx context.Context, tasks []models.Task) bool {
	err := r.tx.Run(ctx, func(ctx context.Context) error {
		for _, t := range tasks {
			if err := r.deleteTaskTx(ctx, t.ID, t.CommentIDs); err != nil {
				return err
			}
		}
		return nil
	})
	return r.result("delete_tasks", err, zap.Int("count", len(tasks)))
}

// deleteTaskTx must run inside a transaction. Comment ids stored on the
// document are merged with the caller's so comments attached after the
// caller loaded the task are removed too.
func (r *TaskRepository) deleteTaskTx(ctx context.Context, taskID string, commentIDs []string) error {
	ids := append([]string(nil), commentIDs...)
	doc, err := r.tasks.GetByID(ctx, taskID)
	switch {
	case err == nil:
		ids = union(ids, doc.Comments)
	case !errors.Is(err, mongo.ErrNoDocuments):
		return err
	}
	for _, id := range ids {
		if _, err := r.comments.Delete(ctx, id); err != nil {
			return err
		}
	}
	_, err = r.tasks.Delete(ctx, taskID)
	return err
}

// directory loads the member records referenced by docs plus profiles.
func (r *TaskRepository) directory(ctx context.Context, docs []documents.Task, knownUsers []models.Member) (*documents.Directory, error) {
	var ids []string
	for _, d := range docs {
		ids = union(ids, d.Delegates)
	}
	infos, err := r.infos.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	users := knownUsers
	if users == nil {
		if users, err = r.users.List(ctx); err != nil {
			return nil, err
		}
	}
	return documents.NewDirectory(users, infos), nil
}

func (r *TaskRepository) result(op string, err error, fields ...zap.Field) bool {
	if err != nil {
		r.failed(op, err, fields...)
		return false
	}
	metrics.Repo(op, true)
	return true
}

func (r *TaskRepository) failed(op string, err error, fields ...zap.Field) {
	logFailure(r.log, op, err, fields...)
}

func logFailure(log *zap.Logger, op string, err error, fields ...zap.Field) {
	metrics.Repo(op, false)
	fields = append(fields, zap.String("op", op), zap.Error(err))
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		log.Debug("document not found", fields...)
	case errors.Is(err, documents.ErrUnresolved), errors.Is(err, documents.ErrInvalidField):
		log.Warn("document could not be mapped", fields...)
	default:
		log.Error("repository operation failed", fields...)
	}
}

// union appends the values of b missing from a, keeping order.
func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	for _, v := range a {
		seen[v] = true
	}
	for _, v := range b {
		if !seen[v] {
			seen[v] = true
			a = append(a, v)
		}
	}
	return a
}
