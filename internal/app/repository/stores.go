// internal/app/repository/stores.go
package repository

import (
	"context"
	"io"

	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/showteam/teamhub/internal/app/store/documents"
	"github.com/showteam/teamhub/internal/domain/models"
)

// TaskStore is the tasks collection.
type TaskStore interface {
	Insert(ctx context.Context, t documents.Task) error
	GetByID(ctx context.Context, id string) (documents.Task, error)
	ListByTeam(ctx context.Context, teamID string) ([]documents.Task, error)
	Replace(ctx context.Context, t documents.Task) error
	SetStatus(ctx context.Context, id, status string) error
	AddComment(ctx context.Context, id, commentID string) error
	AddFile(ctx context.Context, id string, f documents.File) error
	AddLink(ctx context.Context, id string, l documents.Link) error
	AddHistory(ctx context.Context, id string, h documents.History) error
	RemoveFile(ctx context.Context, id string, f documents.File) error
	RemoveLink(ctx context.Context, id string, l documents.Link) error
	DetachMember(ctx context.Context, id, memberInfoID string, h documents.History) error
	ReattachMember(ctx context.Context, id, memberInfoID string, h documents.History) error
	Delete(ctx context.Context, id string) (int64, error)
	CountCreatedBy(ctx context.Context, userID, status string) (int64, error)
	CountDelegatedTo(ctx context.Context, memberInfoIDs []string, status string) (int64, error)
}

// TeamStore is the teams collection.
type TeamStore interface {
	Insert(ctx context.Context, t documents.Team) error
	GetByID(ctx context.Context, id string) (documents.Team, error)
	List(ctx context.Context) ([]documents.Team, error)
	Replace(ctx context.Context, t documents.Team) error
	Delete(ctx context.Context, id string) (int64, error)
	AddRequest(ctx context.Context, teamID, userID string) error
	RemoveRequest(ctx context.Context, teamID, userID string) error
	Watch(ctx context.Context) (documents.ChangeFeed, error)
}

// MemberInfoStore is the memberInfoTeam collection.
type MemberInfoStore interface {
	Insert(ctx context.Context, mi documents.MemberInfo) error
	GetByIDs(ctx context.Context, ids []string) ([]documents.MemberInfo, error)
	IDsByUser(ctx context.Context, userID string) ([]string, error)
	Delete(ctx context.Context, id string) (int64, error)
	SetRole(ctx context.Context, id, role string) error
	SetParticipation(ctx context.Context, id, participation string) error
}

// CommentStore is the comments collection.
type CommentStore interface {
	Insert(ctx context.Context, c documents.Comment) error
	ListByTask(ctx context.Context, taskID string) ([]documents.Comment, error)
	Delete(ctx context.Context, id string) (int64, error)
}

// UserStore reads member profiles.
type UserStore interface {
	GetByID(ctx context.Context, id string) (models.Member, error)
	List(ctx context.Context) ([]models.Member, error)
}

// TxRunner runs fn atomically. Store calls inside fn must use the ctx it
// receives.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// ChatService manages a team's group chat.
type ChatService interface {
	AddNewGroupChat(ctx context.Context, teamID string) error
	DeleteGroupChatByTeamID(ctx context.Context, teamID string) error
}

// BlobStore stores binary objects by key. storage.Store satisfies it.
type BlobStore interface {
	Put(ctx context.Context, path string, r io.Reader, opts *storage.PutOptions) error
	Delete(ctx context.Context, path string) error
}
