// Package memstore is an in-memory document store for tests. It implements
// the store interfaces the repositories depend on, runs transactions with
// snapshot and rollback, serves change feeds for the teams collection, and
// lets tests inject failures into individual operations.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/showteam/teamhub/internal/app/store/audit"
	"github.com/showteam/teamhub/internal/app/store/documents"
	"github.com/showteam/teamhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
)

type failure struct {
	err   error
	nth   int // fail on this call (1-based); 0 fails every call
	calls int
}

type collections struct {
	users    map[string]documents.User
	teams    map[string]documents.Team
	tasks    map[string]documents.Task
	infos    map[string]documents.MemberInfo
	comments map[string]documents.Comment
	order    map[string]int64
}

func (c collections) clone() collections {
	out := collections{
		users:    make(map[string]documents.User, len(c.users)),
		teams:    make(map[string]documents.Team, len(c.teams)),
		tasks:    make(map[string]documents.Task, len(c.tasks)),
		infos:    make(map[string]documents.MemberInfo, len(c.infos)),
		comments: make(map[string]documents.Comment, len(c.comments)),
		order:    make(map[string]int64, len(c.order)),
	}
	for k, v := range c.users {
		out.users[k] = v
	}
	for k, v := range c.teams {
		out.teams[k] = v.Clone()
	}
	for k, v := range c.tasks {
		out.tasks[k] = v.Clone()
	}
	for k, v := range c.infos {
		out.infos[k] = v
	}
	for k, v := range c.comments {
		out.comments[k] = v
	}
	for k, v := range c.order {
		out.order[k] = v
	}
	return out
}

// DB holds every collection.
type DB struct {
	mu       sync.Mutex
	txMu     sync.Mutex
	data     collections
	seq      int64
	failures map[string]*failure
	feeds    map[*Feed]struct{}
	txRuns   int
	rollback int
	events   []audit.Event
}

// New returns an empty store.
func New() *DB {
	return &DB{
		data: collections{
			users:    map[string]documents.User{},
			teams:    map[string]documents.Team{},
			tasks:    map[string]documents.Task{},
			infos:    map[string]documents.MemberInfo{},
			comments: map[string]documents.Comment{},
			order:    map[string]int64{},
		},
		failures: map[string]*failure{},
		feeds:    map[*Feed]struct{}{},
	}
}

func (db *DB) Users() *Users             { return &Users{db: db} }
func (db *DB) Teams() *Teams             { return &Teams{db: db} }
func (db *DB) Tasks() *Tasks             { return &Tasks{db: db} }
func (db *DB) MemberInfos() *MemberInfos { return &MemberInfos{db: db} }
func (db *DB) Comments() *Comments       { return &Comments{db: db} }
func (db *DB) Tx() *Tx                   { return &Tx{db: db} }

// FailOn makes every call to op (for example "tasks.Delete") return err.
func (db *DB) FailOn(op string, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.failures[op] = &failure{err: err}
}

// FailNth makes only the nth call (1-based) to op return err.
func (db *DB) FailNth(op string, n int, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.failures[op] = &failure{err: err, nth: n}
}

// ClearFailures removes every injected failure.
func (db *DB) ClearFailures() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.failures = map[string]*failure{}
}

// TxRuns is how many transactions were started.
func (db *DB) TxRuns() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.txRuns
}

// Rollbacks is how many transactions were rolled back.
func (db *DB) Rollbacks() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.rollback
}

// check must be called with db.mu held.
func (db *DB) check(op string) error {
	f, ok := db.failures[op]
	if !ok {
		return nil
	}
	f.calls++
	if f.nth == 0 || f.calls == f.nth {
		return f.err
	}
	return nil
}

func (db *DB) nextSeq(id string) {
	if _, ok := db.data.order[id]; ok {
		return
	}
	db.seq++
	db.data.order[id] = db.seq
}

// notify must be called with db.mu held.
func (db *DB) notify() {
	for f := range db.feeds {
		f.signal()
	}
}

// ---- inspection helpers ----

// Task returns the stored task document.
func (db *DB) Task(id string) (documents.Task, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	t, ok := db.data.tasks[id]
	return t.Clone(), ok
}

// Team returns the stored team document.
func (db *DB) Team(id string) (documents.Team, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	t, ok := db.data.teams[id]
	return t.Clone(), ok
}

// HasMemberInfo reports whether the member record exists.
func (db *DB) HasMemberInfo(id string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, ok := db.data.infos[id]
	return ok
}

// HasComment reports whether the comment exists.
func (db *DB) HasComment(id string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, ok := db.data.comments[id]
	return ok
}

// MemberInfoCount is the number of member records stored.
func (db *DB) MemberInfoCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.data.infos)
}

// TeamCount is the number of teams stored.
func (db *DB) TeamCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.data.teams)
}

// SeedUser stores a member profile.
func (db *DB) SeedUser(m models.Member) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.data.users[m.ID] = documents.UserFromDomain(m)
	db.nextSeq(m.ID)
}

// SeedMemberInfo stores a member record.
func (db *DB) SeedMemberInfo(mi models.MemberInfoTeam) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.data.infos[mi.ID] = documents.MemberInfoFromDomain(mi)
}

// SeedTeam stores a team document.
func (db *DB) SeedTeam(t models.Team) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.data.teams[t.ID] = documents.TeamFromDomain(t)
	db.nextSeq(t.ID)
	db.notify()
}

// SeedTask stores a task document in the team.
func (db *DB) SeedTask(teamID string, t models.Task) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.data.tasks[t.ID] = documents.TaskFromDomain(t, teamID)
	db.nextSeq(t.ID)
}

// SeedComment stores a comment document.
func (db *DB) SeedComment(c documents.Comment) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.data.comments[c.ID] = c
}

// ---- transactions ----

// Tx runs functions atomically against the DB.
type Tx struct {
	db *DB
}

// Run executes fn; if fn fails every collection is restored to its state
// before the call. Transactions are serialized.
func (tx *Tx) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	db := tx.db
	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.mu.Lock()
	db.txRuns++
	if err := db.check("tx.Run"); err != nil {
		db.mu.Unlock()
		return err
	}
	snapshot := db.data.clone()
	db.mu.Unlock()

	if err := fn(ctx); err != nil {
		db.mu.Lock()
		db.data = snapshot
		db.rollback++
		db.notify()
		db.mu.Unlock()
		return err
	}
	return nil
}

// ---- users ----

type Users struct{ db *DB }

func (s *Users) GetByID(_ context.Context, id string) (models.Member, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("users.GetByID"); err != nil {
		return models.Member{}, err
	}
	u, ok := s.db.data.users[id]
	if !ok {
		return models.Member{}, mongo.ErrNoDocuments
	}
	return u.Domain(), nil
}

func (s *Users) List(_ context.Context) ([]models.Member, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("users.List"); err != nil {
		return nil, err
	}
	out := make([]models.Member, 0, len(s.db.data.users))
	for _, u := range s.db.data.users {
		out = append(out, u.Domain())
	}
	sort.Slice(out, func(i, j int) bool { return s.db.data.order[out[i].ID] < s.db.data.order[out[j].ID] })
	return out, nil
}

// ---- teams ----

type Teams struct{ db *DB }

func (s *Teams) Insert(_ context.Context, t documents.Team) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("teams.Insert"); err != nil {
		return err
	}
	if _, ok := s.db.data.teams[t.ID]; ok {
		return mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	}
	s.db.data.teams[t.ID] = t.Clone()
	s.db.nextSeq(t.ID)
	s.db.notify()
	return nil
}

func (s *Teams) GetByID(_ context.Context, id string) (documents.Team, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("teams.GetByID"); err != nil {
		return documents.Team{}, err
	}
	t, ok := s.db.data.teams[id]
	if !ok {
		return documents.Team{}, mongo.ErrNoDocuments
	}
	return t.Clone(), nil
}

func (s *Teams) List(_ context.Context) ([]documents.Team, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("teams.List"); err != nil {
		return nil, err
	}
	out := make([]documents.Team, 0, len(s.db.data.teams))
	for _, t := range s.db.data.teams {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return s.db.data.order[out[i].ID] < s.db.data.order[out[j].ID] })
	return out, nil
}

func (s *Teams) Replace(_ context.Context, t documents.Team) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("teams.Replace"); err != nil {
		return err
	}
	s.db.data.teams[t.ID] = t.Clone()
	s.db.nextSeq(t.ID)
	s.db.notify()
	return nil
}

func (s *Teams) Delete(_ context.Context, id string) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("teams.Delete"); err != nil {
		return 0, err
	}
	if _, ok := s.db.data.teams[id]; !ok {
		return 0, nil
	}
	delete(s.db.data.teams, id)
	s.db.notify()
	return 1, nil
}

func (s *Teams) AddRequest(_ context.Context, teamID, userID string) error {
	return s.update("teams.AddRequest", teamID, func(t *documents.Team) error {
		if t.Requests == nil {
			return notArray("$addToSet", "requests_list")
		}
		t.Requests = addToSet(t.Requests, userID)
		return nil
	})
}

func (s *Teams) RemoveRequest(_ context.Context, teamID, userID string) error {
	return s.update("teams.RemoveRequest", teamID, func(t *documents.Team) error {
		if t.Requests == nil {
			return notArray("$pull", "requests_list")
		}
		t.Requests = without(t.Requests, func(id string) bool { return id == userID })
		return nil
	})
}

func (s *Teams) update(op, id string, f func(*documents.Team) error) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check(op); err != nil {
		return err
	}
	t, ok := s.db.data.teams[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	t = t.Clone()
	if err := f(&t); err != nil {
		return err
	}
	s.db.data.teams[id] = t
	s.db.notify()
	return nil
}

func (s *Teams) Watch(ctx context.Context) (documents.ChangeFeed, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("teams.Watch"); err != nil {
		return nil, err
	}
	f := &Feed{db: s.db, ch: make(chan struct{}, 1), done: make(chan struct{})}
	s.db.feeds[f] = struct{}{}
	return f, nil
}

// OpenFeeds is the number of change feeds not yet closed.
func (db *DB) OpenFeeds() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.feeds)
}

// BreakFeeds makes every open feed stop with err.
func (db *DB) BreakFeeds(err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for f := range db.feeds {
		f.fail(err)
	}
}

// ---- tasks ----

type Tasks struct{ db *DB }

func (s *Tasks) Insert(_ context.Context, t documents.Task) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("tasks.Insert"); err != nil {
		return err
	}
	if _, ok := s.db.data.tasks[t.ID]; ok {
		return mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	}
	s.db.data.tasks[t.ID] = t.Clone()
	s.db.nextSeq(t.ID)
	return nil
}

func (s *Tasks) GetByID(_ context.Context, id string) (documents.Task, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("tasks.GetByID"); err != nil {
		return documents.Task{}, err
	}
	t, ok := s.db.data.tasks[id]
	if !ok {
		return documents.Task{}, mongo.ErrNoDocuments
	}
	return t.Clone(), nil
}

func (s *Tasks) ListByTeam(_ context.Context, teamID string) ([]documents.Task, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("tasks.ListByTeam"); err != nil {
		return nil, err
	}
	var out []documents.Task
	for _, t := range s.db.data.tasks {
		if t.TeamID == teamID {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return s.db.data.order[out[i].ID] < s.db.data.order[out[j].ID] })
	return out, nil
}

func (s *Tasks) Replace(_ context.Context, t documents.Task) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("tasks.Replace"); err != nil {
		return err
	}
	s.db.data.tasks[t.ID] = t.Clone()
	s.db.nextSeq(t.ID)
	return nil
}

func (s *Tasks) SetStatus(_ context.Context, id, status string) error {
	return s.update("tasks.SetStatus", id, func(t *documents.Task) error {
		t.Status = status
		return nil
	})
}

func (s *Tasks) AddComment(_ context.Context, id, commentID string) error {
	return s.update("tasks.AddComment", id, func(t *documents.Task) error {
		if t.Comments == nil {
			return notArray("$addToSet", "comment_list")
		}
		t.Comments = addToSet(t.Comments, commentID)
		return nil
	})
}

func (s *Tasks) AddFile(_ context.Context, id string, f documents.File) error {
	return s.update("tasks.AddFile", id, func(t *documents.Task) error {
		if t.Files == nil {
			return notArray("$addToSet", "file_list")
		}
		t.Files = addToSet(t.Files, f)
		return nil
	})
}

func (s *Tasks) AddLink(_ context.Context, id string, l documents.Link) error {
	return s.update("tasks.AddLink", id, func(t *documents.Task) error {
		if t.Links == nil {
			return notArray("$addToSet", "link_list")
		}
		t.Links = addToSet(t.Links, l)
		return nil
	})
}

func (s *Tasks) AddHistory(_ context.Context, id string, h documents.History) error {
	return s.update("tasks.AddHistory", id, func(t *documents.Task) error {
		if t.History == nil {
			return notArray("$addToSet", "history_list")
		}
		t.History = addToSet(t.History, h)
		return nil
	})
}

func (s *Tasks) RemoveFile(_ context.Context, id string, f documents.File) error {
	return s.update("tasks.RemoveFile", id, func(t *documents.Task) error {
		if t.Files == nil {
			return notArray("$pull", "file_list")
		}
		t.Files = without(t.Files, func(v documents.File) bool { return v == f })
		return nil
	})
}

func (s *Tasks) RemoveLink(_ context.Context, id string, l documents.Link) error {
	return s.update("tasks.RemoveLink", id, func(t *documents.Task) error {
		if t.Links == nil {
			return notArray("$pull", "link_list")
		}
		t.Links = without(t.Links, func(v documents.Link) bool { return v == l })
		return nil
	})
}

func (s *Tasks) DetachMember(_ context.Context, id, memberInfoID string, h documents.History) error {
	return s.update("tasks.DetachMember", id, func(t *documents.Task) error {
		if t.Delegates == nil {
			return notArray("$pull", "delegate_list")
		}
		if t.History == nil {
			return notArray("$push", "history_list")
		}
		t.Delegates = without(t.Delegates, func(v string) bool { return v == memberInfoID })
		t.History = append(t.History, h)
		return nil
	})
}

func (s *Tasks) ReattachMember(_ context.Context, id, memberInfoID string, h documents.History) error {
	return s.update("tasks.ReattachMember", id, func(t *documents.Task) error {
		if t.Delegates == nil {
			return notArray("$addToSet", "delegate_list")
		}
		if t.History == nil {
			return notArray("$push", "history_list")
		}
		t.Delegates = addToSet(t.Delegates, memberInfoID)
		t.History = append(t.History, h)
		return nil
	})
}

func (s *Tasks) Delete(_ context.Context, id string) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("tasks.Delete"); err != nil {
		return 0, err
	}
	if _, ok := s.db.data.tasks[id]; !ok {
		return 0, nil
	}
	delete(s.db.data.tasks, id)
	return 1, nil
}

func (s *Tasks) CountCreatedBy(_ context.Context, userID, status string) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("tasks.CountCreatedBy"); err != nil {
		return 0, err
	}
	var n int64
	for _, t := range s.db.data.tasks {
		if t.Created.Member == userID && (status == "" || t.Status == status) {
			n++
		}
	}
	return n, nil
}

func (s *Tasks) CountDelegatedTo(_ context.Context, memberInfoIDs []string, status string) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("tasks.CountDelegatedTo"); err != nil {
		return 0, err
	}
	ids := map[string]bool{}
	for _, id := range memberInfoIDs {
		ids[id] = true
	}
	var n int64
	for _, t := range s.db.data.tasks {
		if status != "" && t.Status != status {
			continue
		}
		for _, d := range t.Delegates {
			if ids[d] {
				n++
				break
			}
		}
	}
	return n, nil
}

func (s *Tasks) update(op, id string, f func(*documents.Task) error) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check(op); err != nil {
		return err
	}
	t, ok := s.db.data.tasks[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	t = t.Clone()
	if err := f(&t); err != nil {
		return err
	}
	s.db.data.tasks[id] = t
	return nil
}

// ---- member infos ----

type MemberInfos struct{ db *DB }

func (s *MemberInfos) Insert(_ context.Context, mi documents.MemberInfo) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("memberinfo.Insert"); err != nil {
		return err
	}
	if _, ok := s.db.data.infos[mi.ID]; ok {
		return mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	}
	s.db.data.infos[mi.ID] = mi
	return nil
}

func (s *MemberInfos) GetByIDs(_ context.Context, ids []string) ([]documents.MemberInfo, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("memberinfo.GetByIDs"); err != nil {
		return nil, err
	}
	var out []documents.MemberInfo
	for _, id := range ids {
		if mi, ok := s.db.data.infos[id]; ok {
			out = append(out, mi)
		}
	}
	return out, nil
}

func (s *MemberInfos) IDsByUser(_ context.Context, userID string) ([]string, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("memberinfo.IDsByUser"); err != nil {
		return nil, err
	}
	var ids []string
	for id, mi := range s.db.data.infos {
		if mi.UserID == userID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemberInfos) Delete(_ context.Context, id string) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("memberinfo.Delete"); err != nil {
		return 0, err
	}
	if _, ok := s.db.data.infos[id]; !ok {
		return 0, nil
	}
	delete(s.db.data.infos, id)
	return 1, nil
}

func (s *MemberInfos) SetRole(_ context.Context, id, role string) error {
	return s.update("memberinfo.SetRole", id, func(mi *documents.MemberInfo) { mi.Role = role })
}

func (s *MemberInfos) SetParticipation(_ context.Context, id, p string) error {
	return s.update("memberinfo.SetParticipation", id, func(mi *documents.MemberInfo) { mi.Participation = p })
}

func (s *MemberInfos) update(op, id string, f func(*documents.MemberInfo)) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check(op); err != nil {
		return err
	}
	mi, ok := s.db.data.infos[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	f(&mi)
	s.db.data.infos[id] = mi
	return nil
}

// ---- comments ----

type Comments struct{ db *DB }

func (s *Comments) Insert(_ context.Context, c documents.Comment) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("comments.Insert"); err != nil {
		return err
	}
	s.db.data.comments[c.ID] = c
	return nil
}

func (s *Comments) GetByID(_ context.Context, id string) (documents.Comment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("comments.GetByID"); err != nil {
		return documents.Comment{}, err
	}
	c, ok := s.db.data.comments[id]
	if !ok {
		return documents.Comment{}, mongo.ErrNoDocuments
	}
	return c, nil
}

func (s *Comments) ListByTask(_ context.Context, taskID string) ([]documents.Comment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("comments.ListByTask"); err != nil {
		return nil, err
	}
	var out []documents.Comment
	for _, c := range s.db.data.comments {
		if c.TaskID == taskID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Comments) Delete(_ context.Context, id string) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("comments.Delete"); err != nil {
		return 0, err
	}
	if _, ok := s.db.data.comments[id]; !ok {
		return 0, nil
	}
	delete(s.db.data.comments, id)
	return 1, nil
}

// notArray is the write error the server returns for an array operator
// applied to a null field.
func notArray(op, field string) error {
	return mongo.WriteException{WriteErrors: []mongo.WriteError{{
		Code:    2,
		Message: "Cannot apply " + op + " to non-array field. Field named '" + field + "' has non-array type null",
	}}}
}

func addToSet[T comparable](in []T, v T) []T {
	for _, x := range in {
		if x == v {
			return in
		}
	}
	return append(in, v)
}

func without[T any](in []T, drop func(T) bool) []T {
	if in == nil {
		return nil
	}
	out := make([]T, 0, len(in))
	for _, v := range in {
		if !drop(v) {
			out = append(out, v)
		}
	}
	return out
}
