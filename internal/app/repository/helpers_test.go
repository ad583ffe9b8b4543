package repository_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/showteam/teamhub/internal/app/repository"
	"github.com/showteam/teamhub/internal/app/session"
	"github.com/showteam/teamhub/internal/domain/models"
	"github.com/showteam/teamhub/internal/testutil"
	"github.com/showteam/teamhub/internal/testutil/memstore"
	"go.uber.org/zap"
)

var errBoom = errors.New("boom")

type fakeChat struct {
	mu      sync.Mutex
	created []string
	deleted []string
	err     error
}

func (c *fakeChat) AddNewGroupChat(_ context.Context, teamID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.created = append(c.created, teamID)
	return c.err
}

func (c *fakeChat) DeleteGroupChatByTeamID(_ context.Context, teamID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, teamID)
	return c.err
}

// failingBlobs is an in-memory object store whose writes fail while err is set.
type failingBlobs struct {
	*storage.Memory
	err error
}

func (b *failingBlobs) Put(ctx context.Context, path string, r io.Reader, opts *storage.PutOptions) error {
	if b.err != nil {
		return b.err
	}
	return b.Memory.Put(ctx, path, r, opts)
}

var fixedNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type harness struct {
	db    *memstore.DB
	chat  *fakeChat
	blobs *failingBlobs
	tasks *repository.TaskRepository
	teams *repository.TeamRepository
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := memstore.New()
	h := &harness{db: db, chat: &fakeChat{}, blobs: &failingBlobs{Memory: storage.NewMemory(storage.MemoryConfig{})}}
	now := func() time.Time { return fixedNow }
	h.tasks = repository.NewTaskRepository(repository.TaskDeps{
		Tasks:       db.Tasks(),
		Comments:    db.Comments(),
		MemberInfos: db.MemberInfos(),
		Users:       db.Users(),
		Tx:          db.Tx(),
		Logger:      zap.NewNop(),
		Now:         now,
	})
	h.teams = repository.NewTeamRepository(repository.TeamDeps{
		Teams:       db.Teams(),
		Tasks:       h.tasks,
		MemberInfos: db.MemberInfos(),
		Users:       db.Users(),
		Tx:          db.Tx(),
		Chat:        h.chat,
		Blobs:       h.blobs,
		Logger:      zap.NewNop(),
		Now:         now,
	})
	return h
}

// user seeds a profile.
func (h *harness) user(name string) models.Member {
	m := testutil.NewMember(name)
	h.db.SeedUser(m)
	return m
}

// member seeds a member record for the profile.
func (h *harness) member(m models.Member, role models.Role) models.MemberInfoTeam {
	mi := models.MemberInfoTeam{
		ID:            "mi-" + m.ID,
		Profile:       m,
		Role:          role,
		Participation: models.ParticipationFullTime,
	}
	h.db.SeedMemberInfo(mi)
	return mi
}

// team seeds a team with the given members.
func (h *harness) team(id string, creator models.Member, members ...models.MemberInfoTeam) models.Team {
	t := models.Team{
		ID:       id,
		Name:     "Team " + id,
		Members:  members,
		Created:  models.Created{Member: creator, Timestamp: fixedNow},
		Requests: []models.Member{},
	}
	h.db.SeedTeam(t)
	return t
}

// task seeds a task in the team.
func (h *harness) task(teamID, id string, creator models.Member, delegates ...models.MemberInfoTeam) models.Task {
	t := testutil.NewTask("Task "+id, creator)
	t.ID = id
	t.CommentIDs = []string{}
	t.Delegates = delegates
	h.db.SeedTask(teamID, t)
	return t
}

func sess(m models.Member) session.Session {
	return session.New(m)
}
