// internal/app/board/board.go
package board

import (
	"context"
	"sync"
	"time"

	"github.com/showteam/teamhub/internal/app/session"
	"github.com/showteam/teamhub/internal/domain/models"
)

// Tasks is the task repository surface a board uses.
type Tasks interface {
	ListByTeam(ctx context.Context, teamID string) ([]models.Task, bool)
	CompletedCountForUser(ctx context.Context, userID string) (int, bool)
	AssignedCountForUser(ctx context.Context, userID string) (int, bool)
	UpdateTask(ctx context.Context, task models.Task, teamID string) bool
	UpdateStatus(ctx context.Context, status models.Status, taskID string) bool
	DeleteTask(ctx context.Context, task models.Task) bool
	DeleteTasks(ctx context.Context, tasks []models.Task) bool
}

// Teams is the team repository surface a board uses.
type Teams interface {
	GetTeamByID(ctx context.Context, id string) (models.Team, bool)
	AddTask(ctx context.Context, task models.Task, teamID string) (models.Task, bool)
	AddMember(ctx context.Context, team models.Team, info models.MemberInfoTeam) (models.Team, bool)
	RemoveMember(ctx context.Context, team models.Team, infoID string) (models.Team, bool)
	ChangeRole(ctx context.Context, infoID string, role models.Role) bool
	ChangeParticipation(ctx context.Context, infoID string, p models.Participation) bool
	DeleteRequest(ctx context.Context, team models.Team, userID string) (models.Team, bool)
}

// Drag is an in-progress drag of a task card.
type Drag struct {
	TaskID  string  `json:"task_id"`
	OffsetX float64 `json:"offset_x"`
}

// Counts are the member's task counters.
type Counts struct {
	Completed int `json:"completed"`
	Assigned  int `json:"assigned"`
	Grade     int `json:"grade"`
}

// Board is one member's working view of one team.
//
// The task list is loaded once and then served from the cache. Writes go
// to the repositories first; the cache is patched only after they report
// success. Repository calls are made without holding mu.
type Board struct {
	tasks  Tasks
	teams  Teams
	sess   session.Session
	teamID string

	mu        sync.Mutex
	loading   bool
	cache     []models.Task // nil until loaded
	gen       uint64        // bumped whenever the cache is dropped
	team      *models.Team
	completed int
	assigned  int
	view      View
	drag      *Drag
	lastUsed  time.Time
}

// New builds an empty board.
func New(tasks Tasks, teams Teams, sess session.Session, teamID string, now time.Time) *Board {
	return &Board{
		tasks:    tasks,
		teams:    teams,
		sess:     sess,
		teamID:   teamID,
		view:     DefaultView(now),
		lastUsed: now,
	}
}

func (b *Board) TeamID() string { return b.teamID }

// Loading reports whether the task list is being fetched.
func (b *Board) Loading() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loading
}

func (b *Board) touch(now time.Time) {
	b.mu.Lock()
	b.lastUsed = now
	b.mu.Unlock()
}

func (b *Board) idleSince() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastUsed
}

// Tasks returns the team's tasks, fetching them on first use.
func (b *Board) Tasks(ctx context.Context) ([]models.Task, bool) {
	b.mu.Lock()
	if b.cache != nil {
		out := append([]models.Task(nil), b.cache...)
		b.mu.Unlock()
		return out, true
	}
	b.loading = true
	gen := b.gen
	b.mu.Unlock()

	tasks, ok := b.tasks.ListByTeam(ctx, b.teamID)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.loading = false
	if !ok {
		return []models.Task{}, false
	}
	// A fetch that raced a Refresh may predate the change that caused it;
	// the caller gets the result but the cache stays empty.
	if b.gen != gen {
		return append([]models.Task(nil), tasks...), true
	}
	if b.cache == nil {
		b.cache = tasks
	}
	return append([]models.Task(nil), b.cache...), true
}

// Refresh drops the cached tasks and team so the next read fetches them.
func (b *Board) Refresh() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dropTasks()
	b.team = nil
}

// dropTasks empties the task cache and invalidates in-flight fetches.
// Callers hold mu.
func (b *Board) dropTasks() {
	b.cache = nil
	b.gen++
}

// Team returns the team, fetching it on first use.
func (b *Board) Team(ctx context.Context) (models.Team, bool) {
	b.mu.Lock()
	if b.team != nil {
		t := *b.team
		b.mu.Unlock()
		return t, true
	}
	b.mu.Unlock()

	team, ok := b.teams.GetTeamByID(ctx, b.teamID)
	if !ok {
		return models.Team{}, false
	}
	b.setTeam(team)
	return team, true
}

func (b *Board) setTeam(t models.Team) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.team = &t
}

// CanEdit reports whether the board's member may edit the team.
func (b *Board) CanEdit(ctx context.Context) bool {
	team, ok := b.Team(ctx)
	return ok && team.CanEdit(b.sess.UserID())
}

// ---- counters ----

// LoadTaskCounts refreshes the completed and assigned counters. The
// counters change only when this is called.
func (b *Board) LoadTaskCounts(ctx context.Context) bool {
	completed, ok := b.tasks.CompletedCountForUser(ctx, b.sess.UserID())
	if !ok {
		return false
	}
	assigned, ok := b.tasks.AssignedCountForUser(ctx, b.sess.UserID())
	if !ok {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.completed, b.assigned = completed, assigned
	return true
}

// Counts returns the last loaded counters.
func (b *Board) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Counts{Completed: b.completed, Assigned: b.assigned, Grade: grade(b.completed, b.assigned)}
}

// Grade is completed*10 / assigned, with assigned counted as 1 when zero.
func (b *Board) Grade() int {
	return b.Counts().Grade
}

func grade(completed, assigned int) int {
	if assigned == 0 {
		assigned = 1
	}
	return completed * 10 / assigned
}

// ---- view ----

func (b *Board) View() View {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.view
}

func (b *Board) SetView(v View) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.view = v
}

// Page applies the current view to the team's tasks.
func (b *Board) Page(ctx context.Context) (Page, bool) {
	tasks, ok := b.Tasks(ctx)
	if !ok {
		return b.View().Apply(nil, b.sess.UserID()), false
	}
	return b.View().Apply(tasks, b.sess.UserID()), true
}

// ---- task mutations ----

// AddTask stamps the created_task history line and inserts the task.
func (b *Board) AddTask(ctx context.Context, task models.Task) (models.Task, bool) {
	task = task.AppendHistory(models.HistoryCreatedTask, task.Created.Timestamp)
	inserted, ok := b.teams.AddTask(ctx, task, b.teamID)
	if !ok {
		return models.Task{}, false
	}
	b.patch(func() {
		b.cache = append(b.cache, inserted)
	})
	return inserted, true
}

// UpdateTask overwrites the task.
func (b *Board) UpdateTask(ctx context.Context, task models.Task) bool {
	if !b.tasks.UpdateTask(ctx, task, b.teamID) {
		return false
	}
	b.patch(func() {
		for i := range b.cache {
			if b.cache[i].ID == task.ID {
				b.cache[i] = task
			}
		}
	})
	return true
}

// UpdateStatus moves the task to another column.
func (b *Board) UpdateStatus(ctx context.Context, taskID string, status models.Status) bool {
	if !b.tasks.UpdateStatus(ctx, status, taskID) {
		return false
	}
	b.patch(func() { b.setCachedStatus(taskID, status) })
	return true
}

func (b *Board) setCachedStatus(taskID string, status models.Status) {
	for i := range b.cache {
		if b.cache[i].ID == taskID {
			b.cache[i].Status = status
		}
	}
}

// DeleteTask deletes one task with its comments.
func (b *Board) DeleteTask(ctx context.Context, task models.Task) bool {
	if !b.tasks.DeleteTask(ctx, task) {
		return false
	}
	b.patch(func() {
		b.cache = removeTasks(b.cache, func(t models.Task) bool { return t.ID == task.ID })
	})
	return true
}

// DeleteRecurringTask deletes every task of the recurring series groupID.
func (b *Board) DeleteRecurringTask(ctx context.Context, groupID string) bool {
	tasks, ok := b.Tasks(ctx)
	if !ok {
		return false
	}
	var series []models.Task
	for _, t := range tasks {
		if t.GroupID == groupID {
			series = append(series, t)
		}
	}
	if len(series) == 0 {
		return true
	}
	if !b.tasks.DeleteTasks(ctx, series) {
		return false
	}
	b.patch(func() {
		b.cache = removeTasks(b.cache, func(t models.Task) bool { return t.GroupID == groupID })
	})
	return true
}

// patch applies f to a loaded cache. An unloaded cache is left alone; it
// reflects the write when it is fetched.
func (b *Board) patch(f func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cache != nil {
		f()
	}
}

func removeTasks(in []models.Task, drop func(models.Task) bool) []models.Task {
	out := make([]models.Task, 0, len(in))
	for _, t := range in {
		if !drop(t) {
			out = append(out, t)
		}
	}
	return out
}

// ---- member mutations ----

// AddMember adds a member record to the team.
func (b *Board) AddMember(ctx context.Context, info models.MemberInfoTeam) (models.Team, bool) {
	team, ok := b.Team(ctx)
	if !ok {
		return models.Team{}, false
	}
	updated, ok := b.teams.AddMember(ctx, team, info)
	if !ok {
		return models.Team{}, false
	}
	b.setTeam(updated)
	return updated, true
}

// AcceptRequest turns the user's join request into a membership.
func (b *Board) AcceptRequest(ctx context.Context, userID string, role models.Role, p models.Participation) (models.Team, bool) {
	team, ok := b.Team(ctx)
	if !ok {
		return models.Team{}, false
	}
	for _, m := range team.Requests {
		if m.ID == userID {
			return b.AddMember(ctx, models.MemberInfoTeam{Profile: m, Role: role, Participation: p})
		}
	}
	return models.Team{}, false
}

// DeleteMemberRequest drops the user's join request.
func (b *Board) DeleteMemberRequest(ctx context.Context, userID string) (models.Team, bool) {
	team, ok := b.Team(ctx)
	if !ok {
		return models.Team{}, false
	}
	updated, ok := b.teams.DeleteRequest(ctx, team, userID)
	if !ok {
		return models.Team{}, false
	}
	b.setTeam(updated)
	return updated, true
}

// DeleteMember removes a member record from the team. The task cache is
// dropped because every task the member was delegated to changed.
func (b *Board) DeleteMember(ctx context.Context, infoID string) (models.Team, bool) {
	team, ok := b.Team(ctx)
	if !ok {
		return models.Team{}, false
	}
	updated, ok := b.teams.RemoveMember(ctx, team, infoID)
	if !ok {
		return models.Team{}, false
	}
	b.mu.Lock()
	b.team = &updated
	b.dropTasks()
	b.mu.Unlock()
	return updated, true
}

// ChangeRole sets a member's role.
func (b *Board) ChangeRole(ctx context.Context, infoID string, role models.Role) bool {
	if !b.teams.ChangeRole(ctx, infoID, role) {
		return false
	}
	b.patchMember(infoID, func(mi *models.MemberInfoTeam) { mi.Role = role })
	return true
}

// ChangeParticipation sets a member's participation.
func (b *Board) ChangeParticipation(ctx context.Context, infoID string, p models.Participation) bool {
	if !b.teams.ChangeParticipation(ctx, infoID, p) {
		return false
	}
	b.patchMember(infoID, func(mi *models.MemberInfoTeam) { mi.Participation = p })
	return true
}

// patchMember updates the member record in the cached team and in every
// cached delegate list.
func (b *Board) patchMember(infoID string, f func(*models.MemberInfoTeam)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.team != nil {
		t := *b.team
		t.Members = append([]models.MemberInfoTeam(nil), t.Members...)
		for i := range t.Members {
			if t.Members[i].ID == infoID {
				f(&t.Members[i])
			}
		}
		b.team = &t
	}
	for i := range b.cache {
		if !b.cache[i].HasDelegateRecord(infoID) {
			continue
		}
		ds := append([]models.MemberInfoTeam(nil), b.cache[i].Delegates...)
		for j := range ds {
			if ds[j].ID == infoID {
				f(&ds[j])
			}
		}
		b.cache[i].Delegates = ds
	}
}

// ---- drag and drop ----

// StartDrag picks up a cached task. It fails if the task is not loaded.
func (b *Board) StartDrag(taskID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range b.cache {
		if t.ID == taskID {
			b.drag = &Drag{TaskID: taskID}
			return true
		}
	}
	return false
}

// DragBy moves the dragged card horizontally.
func (b *Board) DragBy(dx float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.drag != nil {
		b.drag.OffsetX += dx
	}
}

// Dragging returns the current drag, if any.
func (b *Board) Dragging() (Drag, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.drag == nil {
		return Drag{}, false
	}
	return *b.drag, true
}

// CancelDrag drops the dragged card without changes.
func (b *Board) CancelDrag() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drag = nil
}

// DropOnStatus drops the dragged card on a status column. The drag ends
// whether or not the status write succeeds.
func (b *Board) DropOnStatus(ctx context.Context, status models.Status) bool {
	b.mu.Lock()
	d := b.drag
	b.drag = nil
	b.mu.Unlock()
	if d == nil {
		return false
	}
	if !b.tasks.UpdateStatus(ctx, status, d.TaskID) {
		return false
	}
	b.patch(func() { b.setCachedStatus(d.TaskID, status) })
	return true
}
