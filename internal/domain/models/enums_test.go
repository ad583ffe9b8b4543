package models

import (
	"testing"
	"time"
)

func TestParseStatus(t *testing.T) {
	for _, s := range Statuses {
		got, err := ParseStatus(string(s))
		if err != nil {
			t.Fatalf("ParseStatus(%q) error: %v", s, err)
		}
		if got != s {
			t.Errorf("ParseStatus(%q) = %q", s, got)
		}
	}
	if _, err := ParseStatus("done"); err == nil {
		t.Error("expected lowercase status to be rejected")
	}
	if _, err := ParseStatus(""); err == nil {
		t.Error("expected empty status to be rejected")
	}
}

func TestStatusRank_FollowsColumnOrder(t *testing.T) {
	for i, s := range Statuses {
		if s.Rank() != i {
			t.Errorf("%s.Rank() = %d, want %d", s, s.Rank(), i)
		}
	}
	if Status("BOGUS").Rank() != len(Statuses) {
		t.Error("unknown status should sort last")
	}
}

func TestParseClosedVariants(t *testing.T) {
	tests := []struct {
		name  string
		parse func(string) error
		good  []string
		bad   string
	}{
		{"role", func(s string) error { _, err := ParseRole(s); return err },
			[]string{"EXECUTIVE_LEADER", "LEADER", "SENIOR_MEMBER", "MEMBER", "JUNIOR_MEMBER"}, "OWNER"},
		{"participation", func(s string) error { _, err := ParseParticipation(s); return err },
			[]string{"FULL_TIME", "PART_TIME", "OCCASIONAL"}, "NEVER"},
		{"repeat", func(s string) error { _, err := ParseRepeat(s); return err },
			[]string{"NO_REPEAT", "DAILY", "WEEKLY", "MONTHLY"}, "YEARLY"},
		{"category", func(s string) error { _, err := ParseTaskCategory(s); return err },
			[]string{"ADMINISTRATIVE", "TECHNICAL", "DESIGN", "MARKETING", "OPERATIONS"}, "LEGAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, v := range tt.good {
				if err := tt.parse(v); err != nil {
					t.Errorf("parse(%q) error: %v", v, err)
				}
			}
			if err := tt.parse(tt.bad); err == nil {
				t.Errorf("parse(%q) should fail", tt.bad)
			}
		})
	}
}

func TestTeamCanEdit(t *testing.T) {
	team := Team{Members: []MemberInfoTeam{
		{ID: "mi1", Profile: Member{ID: "u1"}, Role: RoleExecutiveLeader},
		{ID: "mi2", Profile: Member{ID: "u2"}, Role: RoleMember},
	}}

	if !team.CanEdit("u1") {
		t.Error("executive leader should be able to edit")
	}
	if team.CanEdit("u2") {
		t.Error("member should not be able to edit")
	}
	if team.CanEdit("u3") {
		t.Error("non-member should not be able to edit")
	}
}

func TestNewEmptyTask_Defaults(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	task := NewEmptyTask(Member{ID: "u1"}, now)

	if task.Status != StatusPending {
		t.Errorf("status: got %q, want %q", task.Status, StatusPending)
	}
	if task.Repeat != RepeatNone {
		t.Errorf("repeat: got %q, want %q", task.Repeat, RepeatNone)
	}
	if task.Category != CategoryAdministrative {
		t.Errorf("category: got %q, want %q", task.Category, CategoryAdministrative)
	}
	if !task.DueAt.Equal(now.Add(24 * time.Hour)) {
		t.Errorf("due: got %v, want one day after %v", task.DueAt, now)
	}
	if task.GroupID == "" {
		t.Error("expected a group id")
	}
	if task.Created.Member.ID != "u1" {
		t.Errorf("created member: got %q", task.Created.Member.ID)
	}
	if task.Tags == nil || task.Files == nil || task.Links == nil ||
		task.CommentIDs == nil || task.Delegates == nil || task.History == nil {
		t.Errorf("lists should start empty, not nil: %+v", task)
	}
}

func TestTaskWithoutDelegate_LeavesOriginalIntact(t *testing.T) {
	task := Task{Delegates: []MemberInfoTeam{{ID: "a"}, {ID: "b"}}}
	out := task.WithoutDelegate("a")

	if len(out.Delegates) != 1 || out.Delegates[0].ID != "b" {
		t.Errorf("unexpected delegates: %+v", out.Delegates)
	}
	if len(task.Delegates) != 2 {
		t.Error("original task was modified")
	}
}

func TestOccurrences(t *testing.T) {
	start := time.Date(2026, 1, 31, 9, 0, 0, 0, time.UTC)
	base := Task{GroupID: "g1", StartAt: start, DueAt: start.Add(2 * time.Hour)}

	tests := []struct {
		name   string
		repeat Repeat
		end    time.Time
		want   []time.Time
	}{
		{"no repeat", RepeatNone, start.AddDate(0, 0, 10), []time.Time{start}},
		{"no end date", RepeatDaily, time.Time{}, []time.Time{start}},
		{"daily, end day inclusive", RepeatDaily, time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
			[]time.Time{start, start.AddDate(0, 0, 1), start.AddDate(0, 0, 2)}},
		{"weekly", RepeatWeekly, start.AddDate(0, 0, 20),
			[]time.Time{start, start.AddDate(0, 0, 7), start.AddDate(0, 0, 14)}},
		{"monthly", RepeatMonthly, start.AddDate(0, 1, 0),
			[]time.Time{start, start.AddDate(0, 1, 0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := base
			task.Repeat = tt.repeat
			task.RepeatEndDate = tt.end
			got := task.Occurrences()
			if len(got) != len(tt.want) {
				t.Fatalf("got %d occurrences, want %d", len(got), len(tt.want))
			}
			for i, o := range got {
				if !o.StartAt.Equal(tt.want[i]) {
					t.Errorf("occurrence %d starts %v, want %v", i, o.StartAt, tt.want[i])
				}
				if o.DueAt.Sub(o.StartAt) != 2*time.Hour {
					t.Errorf("occurrence %d: due moved relative to start", i)
				}
				if o.GroupID != "g1" {
					t.Errorf("occurrence %d: group %q", i, o.GroupID)
				}
			}
		})
	}
}

func TestOccurrences_Capped(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	task := Task{StartAt: start, DueAt: start, Repeat: RepeatDaily, RepeatEndDate: start.AddDate(5, 0, 0)}
	if got := len(task.Occurrences()); got != MaxOccurrences {
		t.Errorf("got %d occurrences, want %d", got, MaxOccurrences)
	}
}
