// internal/domain/models/taskenums.go
package models

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a task.
//
// Values are stored verbatim in the task document's "status" field and are
// matched exactly by the completed-count query (StatusDone).
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusOnHold     Status = "ON_HOLD"
	StatusInReview   Status = "IN_REVIEW"
	StatusOverdue    Status = "OVERDUE"
	StatusDone       Status = "DONE"
)

// Statuses is the full, ordered set of task statuses (kanban column order).
var Statuses = []Status{
	StatusPending,
	StatusInProgress,
	StatusOnHold,
	StatusInReview,
	StatusOverdue,
	StatusDone,
}

// ParseStatus converts a stored value into a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusInProgress, StatusOnHold, StatusInReview, StatusOverdue, StatusDone:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown task status %q", s)
}

// Rank is the position of the status in Statuses.
func (s Status) Rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusInProgress:
		return 1
	case StatusOnHold:
		return 2
	case StatusInReview:
		return 3
	case StatusOverdue:
		return 4
	case StatusDone:
		return 5
	}
	return len(Statuses)
}

// Repeat is the recurrence rule of a task.
type Repeat string

const (
	RepeatNone    Repeat = "NO_REPEAT"
	RepeatDaily   Repeat = "DAILY"
	RepeatWeekly  Repeat = "WEEKLY"
	RepeatMonthly Repeat = "MONTHLY"
)

// ParseRepeat converts a stored value into a Repeat.
func ParseRepeat(s string) (Repeat, error) {
	switch Repeat(s) {
	case RepeatNone, RepeatDaily, RepeatWeekly, RepeatMonthly:
		return Repeat(s), nil
	}
	return "", fmt.Errorf("unknown repeat rule %q", s)
}

// Shift moves t forward by n repeat periods. RepeatNone leaves t alone.
func (r Repeat) Shift(t time.Time, n int) time.Time {
	switch r {
	case RepeatDaily:
		return t.AddDate(0, 0, n)
	case RepeatWeekly:
		return t.AddDate(0, 0, 7*n)
	case RepeatMonthly:
		return t.AddDate(0, n, 0)
	case RepeatNone:
	}
	return t
}

// TaskCategory groups tasks by kind of work.
type TaskCategory string

const (
	CategoryAdministrative TaskCategory = "ADMINISTRATIVE"
	CategoryTechnical      TaskCategory = "TECHNICAL"
	CategoryDesign         TaskCategory = "DESIGN"
	CategoryMarketing      TaskCategory = "MARKETING"
	CategoryOperations     TaskCategory = "OPERATIONS"
)

// ParseTaskCategory converts a stored value into a TaskCategory.
func ParseTaskCategory(s string) (TaskCategory, error) {
	switch TaskCategory(s) {
	case CategoryAdministrative, CategoryTechnical, CategoryDesign, CategoryMarketing, CategoryOperations:
		return TaskCategory(s), nil
	}
	return "", fmt.Errorf("unknown task category %q", s)
}

// History message keys. They are stable identifiers; human-facing text is
// resolved by clients.
const (
	HistoryCreatedTask      = "created_task"
	HistoryLeftTeam         = "left_team"
	HistoryLeftTeamReverted = "left_team_reverted"
	HistoryRemovedFromTeam  = "removed_from_team"
	HistoryStatusChanged    = "status_changed"
	HistoryTaskEdited       = "task_edited"
)
