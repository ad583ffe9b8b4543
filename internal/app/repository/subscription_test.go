package repository_test

import (
	"errors"
	"testing"
	"time"

	"github.com/showteam/teamhub/internal/domain/models"
	"github.com/showteam/teamhub/internal/testutil"
)

func nextUpdate(t *testing.T, ch <-chan []models.Team) ([]models.Team, bool) {
	t.Helper()
	select {
	case teams, ok := <-ch:
		return teams, ok
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a team update")
		return nil, false
	}
}

func TestSubscribeTeams(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := h.user("alice")
	h.team("a", alice, h.member(alice, models.RoleLeader))

	sub, err := h.teams.SubscribeTeams(ctx, sess(alice))
	if err != nil {
		t.Fatalf("SubscribeTeams: %v", err)
	}
	defer sub.Unsubscribe()

	teams, _ := nextUpdate(t, sub.Updates())
	if len(teams) != 1 || teams[0].ID != "a" {
		t.Fatalf("initial list: got %+v", teams)
	}

	ai2 := models.MemberInfoTeam{ID: "mi-alice-b", Profile: alice, Role: models.RoleMember, Participation: models.ParticipationPartTime}
	h.db.SeedMemberInfo(ai2)
	h.team("b", alice, ai2)

	teams, _ = nextUpdate(t, sub.Updates())
	if len(teams) != 2 {
		t.Errorf("after change: got %d teams, want 2", len(teams))
	}
}

func TestSubscribeTeams_Unsubscribe(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := h.user("alice")
	sub, err := h.teams.SubscribeTeams(ctx, sess(alice))
	if err != nil {
		t.Fatalf("SubscribeTeams: %v", err)
	}
	if h.db.OpenFeeds() != 1 {
		t.Fatalf("open feeds: got %d, want 1", h.db.OpenFeeds())
	}

	sub.Unsubscribe()
	sub.Unsubscribe()

	if h.db.OpenFeeds() != 0 {
		t.Errorf("open feeds after unsubscribe: got %d, want 0", h.db.OpenFeeds())
	}
	// Drain whatever was buffered; the channel must end up closed.
	for range sub.Updates() {
	}
}

func TestSubscribeTeams_FeedFailureSendsEmptyList(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := h.user("alice")
	h.team("a", alice, h.member(alice, models.RoleLeader))

	sub, err := h.teams.SubscribeTeams(ctx, sess(alice))
	if err != nil {
		t.Fatalf("SubscribeTeams: %v", err)
	}
	defer sub.Unsubscribe()

	if teams, _ := nextUpdate(t, sub.Updates()); len(teams) != 1 {
		t.Fatalf("initial list: got %d teams", len(teams))
	}

	h.db.BreakFeeds(errBoom)

	teams, ok := nextUpdate(t, sub.Updates())
	if !ok {
		t.Fatal("channel closed before the empty list was sent")
	}
	if len(teams) != 0 {
		t.Errorf("after failure: got %d teams, want 0", len(teams))
	}
	if _, ok := nextUpdate(t, sub.Updates()); ok {
		t.Error("expected the channel to close after a feed failure")
	}
}

func TestSubscribeTeams_WatchFailure(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	h.db.FailOn("teams.Watch", errBoom)
	_, err := h.teams.SubscribeTeams(ctx, sess(h.user("alice")))
	if !errors.Is(err, errBoom) {
		t.Errorf("SubscribeTeams: err = %v, want it to wrap the watch failure", err)
	}
}
