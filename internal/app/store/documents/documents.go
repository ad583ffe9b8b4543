// internal/app/store/documents/documents.go
package documents

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Collection names.
const (
	CollTeams      = "teams"
	CollTasks      = "tasks"
	CollUsers      = "users"
	CollMemberInfo = "memberInfoTeam"
	CollComments   = "comments"
	CollAudit      = "auditEvents"
)

// Array field names on task documents. Array updates ($addToSet/$pull)
// address these fields directly.
const (
	FieldTaskComments  = "comment_list"
	FieldTaskFiles     = "file_list"
	FieldTaskLinks     = "link_list"
	FieldTaskHistory   = "history_list"
	FieldTaskDelegates = "delegate_list"
	FieldTeamMembers   = "members_list"
	FieldTeamRequests  = "requests_list"
)

// ChangeFeed is a server-side watch on a collection. *mongo.ChangeStream
// satisfies it. Next blocks until a change arrives and returns false once
// the feed is closed, its context ends, or it fails (see Err).
type ChangeFeed interface {
	Next(ctx context.Context) bool
	Err() error
	Close(ctx context.Context) error
}

// NewID allocates a document id.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// User is a document in the users collection.
type User struct {
	ID       string `bson:"_id"`
	Name     string `bson:"name"`
	Surname  string `bson:"surname"`
	Nickname string `bson:"nickname"`
	Email    string `bson:"email"`
	Location string `bson:"location"`
	NameCI   string `bson:"name_ci"` // folded "name surname" for search
}

// MemberInfo is a document in the memberInfoTeam collection.
type MemberInfo struct {
	ID            string `bson:"_id"`
	UserID        string `bson:"user_id"`
	Role          string `bson:"role"`
	Participation string `bson:"participation"`
}

// Created references the creating user by id.
type Created struct {
	Member    string    `bson:"member"`
	Timestamp time.Time `bson:"timestamp"`
}

// Team is a document in the teams collection.
type Team struct {
	ID          string   `bson:"_id"`
	Name        string   `bson:"name"`
	NameCI      string   `bson:"name_ci"`
	PictureKey  string   `bson:"picture_key,omitempty"`
	Members     []string `bson:"members_list"`  // memberInfoTeam ids
	Category    int      `bson:"category"`
	Created     Created  `bson:"created"`
	Description string   `bson:"description"`
	Requests    []string `bson:"requests_list"` // user ids
}

// File is an attachment value embedded in a task.
type File struct {
	Name        string    `bson:"name"`
	ContentType string    `bson:"content_type"`
	Size        int64     `bson:"size"`
	UploadedBy  string    `bson:"uploaded_by"`
	UploadedAt  time.Time `bson:"uploaded_at"`
}

// Link is a URL value embedded in a task.
type Link struct {
	URL     string    `bson:"url"`
	Title   string    `bson:"title"`
	AddedBy string    `bson:"added_by"`
	AddedAt time.Time `bson:"added_at"`
}

// History is an audit line embedded in a task.
type History struct {
	Timestamp time.Time `bson:"timestamp"`
	Key       string    `bson:"key"`
}

// Task is a document in the tasks collection.
type Task struct {
	ID            string    `bson:"_id"`
	TeamID        string    `bson:"team_id"`
	GroupID       string    `bson:"group_id"`
	Title         string    `bson:"title"`
	Status        string    `bson:"status"`
	StartAt       time.Time `bson:"start_at"`
	DueAt         time.Time `bson:"due_at"`
	Repeat        string    `bson:"repeat"`
	RepeatEndDate time.Time `bson:"repeat_end_date"`
	Description   string    `bson:"description"`
	Category      string    `bson:"category"`
	Tags          []string  `bson:"tags"`
	Files         []File    `bson:"file_list"`
	Links         []Link    `bson:"link_list"`
	Comments      []string  `bson:"comment_list"`  // comment ids
	Delegates     []string  `bson:"delegate_list"` // memberInfoTeam ids
	History       []History `bson:"history_list"`
	Created       Created   `bson:"created"`
}

// Comment is a document in the comments collection.
type Comment struct {
	ID        string    `bson:"_id"`
	TaskID    string    `bson:"task_id"`
	AuthorID  string    `bson:"author_id"`
	Body      string    `bson:"body"`
	CreatedAt time.Time `bson:"created_at"`
}

// Clone returns a deep copy of the task document.
func (t Task) Clone() Task {
	t.Tags = cloneSlice(t.Tags)
	t.Files = cloneSlice(t.Files)
	t.Links = cloneSlice(t.Links)
	t.Comments = cloneSlice(t.Comments)
	t.Delegates = cloneSlice(t.Delegates)
	t.History = cloneSlice(t.History)
	return t
}

// Clone returns a deep copy of the team document.
func (t Team) Clone() Team {
	t.Members = cloneSlice(t.Members)
	t.Requests = cloneSlice(t.Requests)
	return t
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
