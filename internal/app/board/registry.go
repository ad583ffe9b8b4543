// internal/app/board/registry.go
package board

import (
	"slices"
	"sync"
	"time"

	"github.com/showteam/teamhub/internal/app/session"
	"github.com/showteam/teamhub/internal/app/system/metrics"
)

type key struct {
	userID string
	teamID string
}

// Registry keeps one board per (member, team).
type Registry struct {
	tasks Tasks
	teams Teams
	now   func() time.Time

	mu     sync.Mutex
	boards map[key]*Board
}

// NewRegistry builds an empty registry. now defaults to time.Now.
func NewRegistry(tasks Tasks, teams Teams, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{tasks: tasks, teams: teams, now: now, boards: map[key]*Board{}}
}

// Get returns the member's board for the team, creating it on first use.
func (r *Registry) Get(sess session.Session, teamID string) *Board {
	now := r.now()
	k := key{userID: sess.UserID(), teamID: teamID}

	r.mu.Lock()
	b, ok := r.boards[k]
	if !ok {
		b = New(r.tasks, r.teams, sess, teamID, now)
		r.boards[k] = b
		metrics.SetBoards(len(r.boards))
	}
	r.mu.Unlock()

	b.touch(now)
	return b
}

// Forget drops the member's board for the team.
func (r *Registry) Forget(userID, teamID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.boards, key{userID: userID, teamID: teamID})
	metrics.SetBoards(len(r.boards))
}

// ForgetUser drops every board of the member.
func (r *Registry) ForgetUser(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.boards {
		if k.userID == userID {
			delete(r.boards, k)
		}
	}
	metrics.SetBoards(len(r.boards))
}

// ForgetTeam drops every board of the team.
func (r *Registry) ForgetTeam(teamID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.boards {
		if k.teamID == teamID {
			delete(r.boards, k)
		}
	}
	metrics.SetBoards(len(r.boards))
}

// RefreshTeam drops the cached state of every board of the team, except
// the boards of the listed members.
func (r *Registry) RefreshTeam(teamID string, exceptUserIDs ...string) {
	r.mu.Lock()
	var boards []*Board
	for k, b := range r.boards {
		if k.teamID == teamID && !slices.Contains(exceptUserIDs, k.userID) {
			boards = append(boards, b)
		}
	}
	r.mu.Unlock()
	for _, b := range boards {
		b.Refresh()
	}
}

// Sweep drops boards unused for longer than idle and returns how many
// were dropped.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k, b := range r.boards {
		if b.idleSince().Before(cutoff) {
			delete(r.boards, k)
			n++
		}
	}
	metrics.SetBoards(len(r.boards))
	return n
}

// Len is the number of live boards.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.boards)
}
