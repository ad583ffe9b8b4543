// internal/domain/models/task.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Task is a unit of work inside a team.
//
// NOTE:
//   - The owning team is not a field; stores keep it as team_id and the
//     repository API passes it alongside the task.
//   - CommentIDs reference documents in the comments collection.
//   - Tasks created together as one recurring series share GroupID.
type Task struct {
	ID            string           `json:"id"`
	GroupID       string           `json:"group_id"`
	Title         string           `json:"title"`
	Status        Status           `json:"status"`
	StartAt       time.Time        `json:"start_at"`
	DueAt         time.Time        `json:"due_at"`
	Repeat        Repeat           `json:"repeat"`
	RepeatEndDate time.Time        `json:"repeat_end_date"`
	Description   string           `json:"description"`
	Category      TaskCategory     `json:"category"`
	Tags          []string         `json:"tags"`
	Files         []File           `json:"files"`
	Links         []Link           `json:"links"`
	CommentIDs    []string         `json:"comment_ids"`
	Delegates     []MemberInfoTeam `json:"delegates"`
	History       []History        `json:"history"`
	Created       Created          `json:"created"`
}

// File is an attachment descriptor. Two files are the same file when
// every field matches.
type File struct {
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedBy  string    `json:"uploaded_by"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Link is an attached URL. Equality is by value.
type Link struct {
	URL     string    `json:"url"`
	Title   string    `json:"title"`
	AddedBy string    `json:"added_by"`
	AddedAt time.Time `json:"added_at"`
}

// History is one append-only audit line of a task.
type History struct {
	Timestamp time.Time `json:"timestamp"`
	Key       string    `json:"key"`
}

// Comment is a message attached to a task.
type Comment struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	Author    Member    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// NewEmptyTask returns the defaults used for a new task draft: pending,
// not repeating, administrative, due one day after it starts. Every list
// starts empty rather than nil.
func NewEmptyTask(creator Member, now time.Time) Task {
	return Task{
		GroupID:    uuid.NewString(),
		Status:     StatusPending,
		StartAt:    now,
		DueAt:      now.Add(24 * time.Hour),
		Repeat:     RepeatNone,
		Category:   CategoryAdministrative,
		Tags:       []string{},
		Files:      []File{},
		Links:      []Link{},
		CommentIDs: []string{},
		Delegates:  []MemberInfoTeam{},
		History:    []History{},
		Created:    Created{Member: creator, Timestamp: now},
	}
}

// MaxOccurrences caps how many tasks one recurring series expands into.
const MaxOccurrences = 366

// Occurrences expands a repeating task into its series, one task per
// period from StartAt up to and including the day of RepeatEndDate. All
// occurrences share GroupID. A task that does not repeat, or has no end
// date, is a series of one.
func (t Task) Occurrences() []Task {
	if t.Repeat == RepeatNone || t.Repeat == "" || t.RepeatEndDate.IsZero() {
		return []Task{t}
	}
	y, m, d := t.RepeatEndDate.Date()
	last := time.Date(y, m, d+1, 0, 0, 0, 0, t.RepeatEndDate.Location())

	out := []Task{t}
	for n := 1; n < MaxOccurrences; n++ {
		start := t.Repeat.Shift(t.StartAt, n)
		if !start.Before(last) {
			break
		}
		o := t
		o.StartAt = start
		o.DueAt = t.Repeat.Shift(t.DueAt, n)
		out = append(out, o)
	}
	return out
}

// IsDelegate reports whether the user is one of the task's delegates.
func (t Task) IsDelegate(userID string) bool {
	for _, d := range t.Delegates {
		if d.Profile.ID == userID {
			return true
		}
	}
	return false
}

// HasDelegateRecord reports whether the member record is delegated.
func (t Task) HasDelegateRecord(infoID string) bool {
	for _, d := range t.Delegates {
		if d.ID == infoID {
			return true
		}
	}
	return false
}

// WithoutDelegate returns a copy of the task without the member record
// in its delegate list.
func (t Task) WithoutDelegate(infoID string) Task {
	if t.Delegates == nil {
		return t
	}
	out := make([]MemberInfoTeam, 0, len(t.Delegates))
	for _, d := range t.Delegates {
		if d.ID != infoID {
			out = append(out, d)
		}
	}
	t.Delegates = out
	return t
}

// AppendHistory returns a copy of the task with one more history line.
func (t Task) AppendHistory(key string, at time.Time) Task {
	h := make([]History, 0, len(t.History)+1)
	h = append(h, t.History...)
	t.History = append(h, History{Timestamp: at, Key: key})
	return t
}
