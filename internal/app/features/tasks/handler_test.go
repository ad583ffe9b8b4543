package tasks_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/go-chi/chi/v5"
	"github.com/showteam/teamhub/internal/app/board"
	"github.com/showteam/teamhub/internal/app/features/tasks"
	"github.com/showteam/teamhub/internal/app/repository"
	"github.com/showteam/teamhub/internal/app/system/chat"
	"github.com/showteam/teamhub/internal/domain/models"
	"github.com/showteam/teamhub/internal/testutil"
	"github.com/showteam/teamhub/internal/testutil/memstore"
	"go.uber.org/zap"
)

var (
	errBoom  = errors.New("boom")
	fixedNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
)

type nopBlobs struct{}

func (nopBlobs) Put(context.Context, string, io.Reader, *storage.PutOptions) error { return nil }

func (nopBlobs) Delete(context.Context, string) error { return nil }

type env struct {
	db     *memstore.DB
	router http.Handler

	alice, bob, carol models.Member
	alpha, beta       models.Task
}

// newEnv seeds team "t1" (alice leads, bob is a member) with two tasks:
// alpha by alice delegated to bob, and beta by bob, already done. carol
// belongs to no team.
func newEnv(t *testing.T) *env {
	t.Helper()
	logger := zap.NewNop()
	db := memstore.New()

	taskRepo := repository.NewTaskRepository(repository.TaskDeps{
		Tasks:       db.Tasks(),
		Comments:    db.Comments(),
		MemberInfos: db.MemberInfos(),
		Users:       db.Users(),
		Tx:          db.Tx(),
		Logger:      logger,
		Now:         func() time.Time { return fixedNow },
	})
	teamRepo := repository.NewTeamRepository(repository.TeamDeps{
		Teams:       db.Teams(),
		Tasks:       taskRepo,
		MemberInfos: db.MemberInfos(),
		Users:       db.Users(),
		Tx:          db.Tx(),
		Chat:        chat.Disabled{Log: logger},
		Blobs:       nopBlobs{},
		Logger:      logger,
	})
	boards := board.NewRegistry(taskRepo, teamRepo, func() time.Time { return fixedNow })
	h := tasks.NewHandler(boards, taskRepo, logger)
	h.Now = func() time.Time { return fixedNow }

	r := chi.NewRouter()
	r.Route("/teams/{teamID}", tasks.Register(h))

	e := &env{
		db:     db,
		router: r,
		alice:  testutil.NewMember("alice"),
		bob:    testutil.NewMember("bob"),
		carol:  testutil.NewMember("carol"),
	}
	for _, m := range []models.Member{e.alice, e.bob, e.carol} {
		db.SeedUser(m)
	}
	lead := models.MemberInfoTeam{ID: "mi-alice", Profile: e.alice, Role: models.RoleExecutiveLeader, Participation: models.ParticipationFullTime}
	mem := models.MemberInfoTeam{ID: "mi-bob", Profile: e.bob, Role: models.RoleMember, Participation: models.ParticipationFullTime}
	db.SeedMemberInfo(lead)
	db.SeedMemberInfo(mem)
	db.SeedTeam(models.Team{
		ID:       "t1",
		Name:     "Launch",
		Members:  []models.MemberInfoTeam{lead, mem},
		Created:  models.Created{Member: e.alice},
		Requests: []models.Member{},
	})

	e.alpha = testutil.NewTask("Alpha", e.alice)
	e.alpha.ID = "alpha"
	e.alpha.StartAt, e.alpha.DueAt = fixedNow, fixedNow.Add(24*time.Hour)
	e.alpha.CommentIDs = []string{}
	e.alpha.Delegates = []models.MemberInfoTeam{mem}
	db.SeedTask("t1", e.alpha)

	e.beta = testutil.NewTask("beta", e.bob)
	e.beta.ID = "beta"
	e.beta.StartAt, e.beta.DueAt = fixedNow, fixedNow.Add(24*time.Hour)
	e.beta.CommentIDs = []string{}
	e.beta.Status = models.StatusDone
	db.SeedTask("t1", e.beta)
	return e
}

func (e *env) do(t *testing.T, as models.Member, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, "/teams/t1"+path, strings.NewReader(body))
	req = testutil.WithMember(req, as)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

type boardBody struct {
	View  board.View    `json:"view"`
	Tasks []models.Task `json:"tasks"`
}

func titles(ts []models.Task) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.Title)
	}
	return out
}

func TestBoard_ViewParamsStick(t *testing.T) {
	e := newEnv(t)

	got := decode[boardBody](t, e.do(t, e.bob, http.MethodGet, "/tasks?sort=title_asc", ""))
	if strings.Join(titles(got.Tasks), ",") != "Alpha,beta" {
		t.Errorf("all tasks: %v", titles(got.Tasks))
	}

	got = decode[boardBody](t, e.do(t, e.bob, http.MethodGet, "/tasks?tab=mine", ""))
	if len(got.Tasks) != 1 || got.Tasks[0].ID != "alpha" {
		t.Errorf("mine: %v", titles(got.Tasks))
	}

	// No parameters: the previous tab and sort still apply.
	got = decode[boardBody](t, e.do(t, e.bob, http.MethodGet, "/tasks", ""))
	if got.View.Tab != board.TabMine || got.View.Sort != board.SortTitleAsc || len(got.Tasks) != 1 {
		t.Errorf("sticky view: %+v %v", got.View, titles(got.Tasks))
	}

	got = decode[boardBody](t, e.do(t, e.bob, http.MethodGet, "/tasks?tab=ALL&status=DONE", ""))
	if len(got.Tasks) != 1 || got.Tasks[0].ID != "beta" {
		t.Errorf("done: %v", titles(got.Tasks))
	}

	got = decode[boardBody](t, e.do(t, e.bob, http.MethodGet, "/tasks?status=&q=ALPHA", ""))
	if len(got.Tasks) != 1 || got.Tasks[0].ID != "alpha" {
		t.Errorf("search: %v", titles(got.Tasks))
	}
}

func TestBoard_Rejections(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name string
		as   models.Member
		path string
		want int
	}{
		{"unknown sort", e.bob, "/tasks?sort=sideways", http.StatusBadRequest},
		{"unknown status", e.bob, "/tasks?status=LOST", http.StatusBadRequest},
		{"bad date", e.bob, "/tasks?due_from=31-01-2026", http.StatusBadRequest},
		{"not a member", e.carol, "/tasks", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := e.do(t, tt.as, http.MethodGet, tt.path, ""); rec.Code != tt.want {
				t.Errorf("got %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestStats(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, e.bob, http.MethodGet, "/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d", rec.Code)
	}
	// bob created beta (done) and is delegated to alpha.
	want := board.Counts{Completed: 1, Assigned: 2, Grade: 5}
	if got := decode[board.Counts](t, rec); got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}

	e.db.FailOn("tasks.CountCreatedBy", errBoom)
	if rec := e.do(t, e.bob, http.MethodGet, "/stats", ""); rec.Code != http.StatusBadGateway {
		t.Errorf("store failure: got %d, want 502", rec.Code)
	}
}

const newTaskBody = `{"title":"Gamma","start_at":"2026-03-02T09:00:00Z","due_at":"2026-03-02T17:00:00Z","delegates":["mi-alice"]}`

func TestCreateTask(t *testing.T) {
	e := newEnv(t)
	e.do(t, e.alice, http.MethodGet, "/tasks", "") // alice's board caches two tasks

	rec := e.do(t, e.bob, http.MethodPost, "/tasks", newTaskBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
	created := decode[[]models.Task](t, rec)
	if len(created) != 1 {
		t.Fatalf("created %d tasks, want 1", len(created))
	}
	task := created[0]
	if task.Created.Member.ID != e.bob.ID || !task.IsDelegate(e.alice.ID) {
		t.Errorf("task: %+v", task)
	}
	if len(task.History) != 1 || task.History[0].Key != models.HistoryCreatedTask {
		t.Errorf("history: %+v", task.History)
	}
	if _, ok := e.db.Task(task.ID); !ok {
		t.Error("task not stored")
	}

	got := decode[boardBody](t, e.do(t, e.alice, http.MethodGet, "/tasks", ""))
	if len(got.Tasks) != 3 {
		t.Errorf("alice sees %d tasks, want 3", len(got.Tasks))
	}
}

func TestCreateTask_Rejections(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing title", `{"start_at":"2026-03-02T09:00:00Z","due_at":"2026-03-02T17:00:00Z"}`},
		{"due before start", `{"title":"x","start_at":"2026-03-02T09:00:00Z","due_at":"2026-03-01T17:00:00Z"}`},
		{"repeat without end", `{"title":"x","start_at":"2026-03-02T09:00:00Z","due_at":"2026-03-02T17:00:00Z","repeat":"DAILY"}`},
		{"unknown delegate", `{"title":"x","start_at":"2026-03-02T09:00:00Z","due_at":"2026-03-02T17:00:00Z","delegates":["mi-ghost"]}`},
		{"unknown category", `{"title":"x","start_at":"2026-03-02T09:00:00Z","due_at":"2026-03-02T17:00:00Z","category":"FUN"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := e.do(t, e.bob, http.MethodPost, "/tasks", tt.body); rec.Code != http.StatusBadRequest {
				t.Errorf("got %d, want 400 (%s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCreateAndDeleteSeries(t *testing.T) {
	e := newEnv(t)
	body := `{"title":"Standup","start_at":"2026-03-02T09:00:00Z","due_at":"2026-03-02T09:15:00Z",
		"repeat":"DAILY","repeat_end_date":"2026-03-04T00:00:00Z"}`

	rec := e.do(t, e.bob, http.MethodPost, "/tasks", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
	series := decode[[]models.Task](t, rec)
	if len(series) != 3 {
		t.Fatalf("occurrences: got %d, want 3", len(series))
	}
	for i, o := range series {
		if o.GroupID != series[0].GroupID {
			t.Errorf("occurrence %d group %q, want %q", i, o.GroupID, series[0].GroupID)
		}
		if want := time.Date(2026, 3, 2+i, 9, 0, 0, 0, time.UTC); !o.StartAt.Equal(want) {
			t.Errorf("occurrence %d starts %v, want %v", i, o.StartAt, want)
		}
	}

	path := "/tasks/groups/" + series[0].GroupID
	if rec := e.do(t, e.alice, http.MethodDelete, "/tasks/groups/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown series: got %d, want 404", rec.Code)
	}
	if rec := e.do(t, e.bob, http.MethodDelete, path, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete series: got %d", rec.Code)
	}
	for _, o := range series {
		if _, ok := e.db.Task(o.ID); ok {
			t.Errorf("task %s still stored", o.ID)
		}
	}
}

func TestCreateSeries_PartialFailure(t *testing.T) {
	e := newEnv(t)
	e.db.FailNth("tasks.Insert", 2, errBoom)
	body := `{"title":"Standup","start_at":"2026-03-02T09:00:00Z","due_at":"2026-03-02T09:15:00Z",
		"repeat":"WEEKLY","repeat_end_date":"2026-03-30T00:00:00Z"}`

	rec := e.do(t, e.bob, http.MethodPost, "/tasks", body)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("got %d, want 502", rec.Code)
	}
	got := decode[struct {
		Created []models.Task `json:"created"`
	}](t, rec)
	if len(got.Created) != 1 {
		t.Errorf("created: got %d, want 1", len(got.Created))
	}
}

func TestDeleteTask(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name string
		as   models.Member
		path string
		want int
	}{
		{"member deleting another's task", e.bob, "/tasks/alpha", http.StatusForbidden},
		{"unknown task", e.alice, "/tasks/nope", http.StatusNotFound},
		{"leader deletes any task", e.alice, "/tasks/beta", http.StatusNoContent},
		{"creator deletes own task", e.alice, "/tasks/alpha", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := e.do(t, tt.as, http.MethodDelete, tt.path, ""); rec.Code != tt.want {
				t.Errorf("got %d, want %d", rec.Code, tt.want)
			}
		})
	}
	if _, ok := e.db.Task("beta"); ok {
		t.Error("beta still stored")
	}
}

func TestDragAndDrop(t *testing.T) {
	e := newEnv(t)

	if rec := e.do(t, e.bob, http.MethodPost, "/drop", `{"status":"DONE"}`); rec.Code != http.StatusConflict {
		t.Errorf("drop without drag: got %d, want 409", rec.Code)
	}
	if rec := e.do(t, e.bob, http.MethodPost, "/drag", `{"task_id":"nope"}`); rec.Code != http.StatusNotFound {
		t.Errorf("drag unknown task: got %d, want 404", rec.Code)
	}

	e.do(t, e.bob, http.MethodPost, "/drag", `{"task_id":"alpha","offset_x":10}`)
	rec := e.do(t, e.bob, http.MethodPost, "/drag", `{"task_id":"alpha","offset_x":5}`)
	if d := decode[board.Drag](t, rec); d.TaskID != "alpha" || d.OffsetX != 15 {
		t.Errorf("drag: %+v", d)
	}

	if rec := e.do(t, e.bob, http.MethodPost, "/drop", `{"status":"IN_REVIEW"}`); rec.Code != http.StatusNoContent {
		t.Fatalf("drop: got %d", rec.Code)
	}
	if doc, _ := e.db.Task("alpha"); doc.Status != string(models.StatusInReview) {
		t.Errorf("stored status: %q", doc.Status)
	}
	got := decode[boardBody](t, e.do(t, e.bob, http.MethodGet, "/tasks?status=IN_REVIEW", ""))
	if len(got.Tasks) != 1 {
		t.Errorf("board after drop: %v", titles(got.Tasks))
	}

	e.do(t, e.bob, http.MethodPost, "/drag", `{"task_id":"beta"}`)
	if rec := e.do(t, e.bob, http.MethodDelete, "/drag", ""); rec.Code != http.StatusNoContent {
		t.Errorf("cancel: got %d", rec.Code)
	}
	if rec := e.do(t, e.bob, http.MethodPost, "/drop", `{"status":"PENDING"}`); rec.Code != http.StatusConflict {
		t.Errorf("drop after cancel: got %d, want 409", rec.Code)
	}
}

func TestUpdateTaskAndStatus(t *testing.T) {
	e := newEnv(t)
	body := `{"title":"Alpha v2","start_at":"2026-03-02T09:00:00Z","due_at":"2026-03-03T09:00:00Z","delegates":["mi-bob","mi-alice"]}`

	rec := e.do(t, e.bob, http.MethodPut, "/tasks/alpha", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: got %d %s", rec.Code, rec.Body.String())
	}
	updated := decode[models.Task](t, rec)
	if updated.Created.Member.ID != e.alice.ID || updated.GroupID != e.alpha.GroupID {
		t.Errorf("creator and series must be kept: %+v", updated)
	}
	if n := len(updated.History); n == 0 || updated.History[n-1].Key != models.HistoryTaskEdited {
		t.Errorf("history: %+v", updated.History)
	}
	if doc, _ := e.db.Task("alpha"); doc.Title != "Alpha v2" || len(doc.Delegates) != 2 {
		t.Errorf("stored: %+v", doc)
	}

	rec = e.do(t, e.bob, http.MethodPatch, "/tasks/alpha/status", `{"status":"ON_HOLD"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if doc, _ := e.db.Task("alpha"); doc.Status != string(models.StatusOnHold) {
		t.Errorf("stored status: %q", doc.Status)
	}
	if rec := e.do(t, e.bob, http.MethodPatch, "/tasks/alpha/status", `{"status":"LOST"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid status: got %d, want 400", rec.Code)
	}
}

func TestTaskDetailAndComments(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, e.bob, http.MethodPost, "/tasks/alpha/comments", `{"body":"<p>looks good</p><script>alert(1)</script>"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("post: got %d %s", rec.Code, rec.Body.String())
	}
	c := decode[models.Comment](t, rec)
	if strings.Contains(c.Body, "script") || !strings.Contains(c.Body, "looks good") {
		t.Errorf("sanitized body: %q", c.Body)
	}

	rec = e.do(t, e.alice, http.MethodGet, "/tasks/alpha/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: got %d", rec.Code)
	}
	detail := decode[struct {
		Task     models.Task      `json:"task"`
		Comments []models.Comment `json:"comments"`
	}](t, rec)
	if detail.Task.ID != "alpha" || len(detail.Comments) != 1 || detail.Comments[0].Author.ID != e.bob.ID {
		t.Errorf("detail: %+v", detail)
	}
	if len(detail.Task.CommentIDs) != 1 {
		t.Errorf("comment ids: %v", detail.Task.CommentIDs)
	}

	tests := []struct {
		name string
		body string
	}{
		{"empty", `{"body":""}`},
		{"markup only", `{"body":"<script>alert(1)</script>"}`},
		{"too long", `{"body":"` + strings.Repeat("a", 10_001) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := e.do(t, e.bob, http.MethodPost, "/tasks/alpha/comments", tt.body); rec.Code != http.StatusBadRequest {
				t.Errorf("got %d, want 400", rec.Code)
			}
		})
	}
}

func TestTaskOfAnotherTeamIsHidden(t *testing.T) {
	e := newEnv(t)
	other := testutil.NewTask("Elsewhere", e.alice)
	other.ID = "elsewhere"
	other.CommentIDs = []string{}
	e.db.SeedTask("t2", other)

	if rec := e.do(t, e.alice, http.MethodGet, "/tasks/elsewhere/", ""); rec.Code != http.StatusNotFound {
		t.Errorf("got %d, want 404", rec.Code)
	}
}

func TestFilesAndLinks(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, e.bob, http.MethodPost, "/tasks/alpha/files", `{"name":"plan.pdf","content_type":"application/pdf","size":2048}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add file: got %d %s", rec.Code, rec.Body.String())
	}
	stored := rec.Body.String()
	f := decode[models.File](t, rec)
	if f.UploadedBy != e.bob.ID || !f.UploadedAt.Equal(fixedNow) {
		t.Errorf("file: %+v", f)
	}
	if doc, _ := e.db.Task("alpha"); len(doc.Files) != 1 {
		t.Fatalf("stored files: %+v", doc.Files)
	}
	if rec := e.do(t, e.bob, http.MethodDelete, "/tasks/alpha/files", stored); rec.Code != http.StatusOK {
		t.Fatalf("delete file: got %d", rec.Code)
	}
	if doc, _ := e.db.Task("alpha"); len(doc.Files) != 0 {
		t.Errorf("files after delete: %+v", doc.Files)
	}

	if rec := e.do(t, e.bob, http.MethodPost, "/tasks/alpha/links", `{"url":"not a url"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad url: got %d, want 400", rec.Code)
	}
	rec = e.do(t, e.bob, http.MethodPost, "/tasks/alpha/links", `{"url":"https://example.com/brief","title":"<b>Brief</b>"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add link: got %d", rec.Code)
	}
	if l := decode[models.Link](t, rec); l.Title != "Brief" {
		t.Errorf("link title: %q", l.Title)
	}

	rec = e.do(t, e.bob, http.MethodPost, "/tasks/alpha/history", `{"key":"status_changed"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add history: got %d", rec.Code)
	}
	if doc, _ := e.db.Task("alpha"); len(doc.Links) != 1 || doc.History[len(doc.History)-1].Key != models.HistoryStatusChanged {
		t.Errorf("stored: links %+v history %+v", doc.Links, doc.History)
	}

	e.db.FailOn("tasks.AddLink", errBoom)
	if rec := e.do(t, e.bob, http.MethodPost, "/tasks/alpha/links", `{"url":"https://example.com/2"}`); rec.Code != http.StatusBadGateway {
		t.Errorf("store failure: got %d, want 502", rec.Code)
	}
}
