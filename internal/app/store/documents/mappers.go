// internal/app/store/documents/mappers.go
package documents

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/showteam/teamhub/internal/domain/models"
)

// ErrUnresolved is returned when a document references a user or member
// record the Directory does not know.
var ErrUnresolved = errors.New("unresolved reference")

// ErrInvalidField is returned when a stored enum value cannot be parsed.
var ErrInvalidField = errors.New("invalid field value")

// Directory resolves id references found in documents. It is built from
// data the caller already holds so mapping never issues queries.
type Directory struct {
	users map[string]models.Member
	infos map[string]MemberInfo
}

// NewDirectory builds a Directory from known users and member records.
func NewDirectory(users []models.Member, infos []MemberInfo) *Directory {
	d := &Directory{
		users: make(map[string]models.Member, len(users)),
		infos: make(map[string]MemberInfo, len(infos)),
	}
	for _, u := range users {
		d.users[u.ID] = u
	}
	for _, mi := range infos {
		d.infos[mi.ID] = mi
	}
	return d
}

// Member resolves a user id.
func (d *Directory) Member(id string) (models.Member, error) {
	m, ok := d.users[id]
	if !ok {
		return models.Member{}, fmt.Errorf("%w: user %q", ErrUnresolved, id)
	}
	return m, nil
}

// MemberInfo maps a member record document.
func (d *Directory) MemberInfo(doc MemberInfo) (models.MemberInfoTeam, error) {
	profile, err := d.Member(doc.UserID)
	if err != nil {
		return models.MemberInfoTeam{}, fmt.Errorf("member info %s: %w", doc.ID, err)
	}
	role, err := models.ParseRole(doc.Role)
	if err != nil {
		return models.MemberInfoTeam{}, fmt.Errorf("member info %s: %w: %v", doc.ID, ErrInvalidField, err)
	}
	part, err := models.ParseParticipation(doc.Participation)
	if err != nil {
		return models.MemberInfoTeam{}, fmt.Errorf("member info %s: %w: %v", doc.ID, ErrInvalidField, err)
	}
	return models.MemberInfoTeam{ID: doc.ID, Profile: profile, Role: role, Participation: part}, nil
}

func (d *Directory) memberInfos(ids []string) ([]models.MemberInfoTeam, error) {
	if ids == nil {
		return nil, nil
	}
	out := make([]models.MemberInfoTeam, 0, len(ids))
	for _, id := range ids {
		doc, ok := d.infos[id]
		if !ok {
			return nil, fmt.Errorf("%w: member info %q", ErrUnresolved, id)
		}
		mi, err := d.MemberInfo(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, mi)
	}
	return out, nil
}

func (d *Directory) created(c Created) (models.Created, error) {
	m, err := d.Member(c.Member)
	if err != nil {
		return models.Created{}, err
	}
	return models.Created{Member: m, Timestamp: c.Timestamp}, nil
}

// Task maps a task document to the domain model.
func (d *Directory) Task(doc Task) (models.Task, error) {
	status, err := models.ParseStatus(doc.Status)
	if err != nil {
		return models.Task{}, fmt.Errorf("task %s: %w: %v", doc.ID, ErrInvalidField, err)
	}
	repeat, err := models.ParseRepeat(doc.Repeat)
	if err != nil {
		return models.Task{}, fmt.Errorf("task %s: %w: %v", doc.ID, ErrInvalidField, err)
	}
	category, err := models.ParseTaskCategory(doc.Category)
	if err != nil {
		return models.Task{}, fmt.Errorf("task %s: %w: %v", doc.ID, ErrInvalidField, err)
	}
	delegates, err := d.memberInfos(doc.Delegates)
	if err != nil {
		return models.Task{}, fmt.Errorf("task %s delegates: %w", doc.ID, err)
	}
	created, err := d.created(doc.Created)
	if err != nil {
		return models.Task{}, fmt.Errorf("task %s creator: %w", doc.ID, err)
	}

	return models.Task{
		ID:            doc.ID,
		GroupID:       doc.GroupID,
		Title:         doc.Title,
		Status:        status,
		StartAt:       doc.StartAt,
		DueAt:         doc.DueAt,
		Repeat:        repeat,
		RepeatEndDate: doc.RepeatEndDate,
		Description:   doc.Description,
		Category:      category,
		Tags:          cloneSlice(doc.Tags),
		Files:         mapSlice(doc.Files, FileToDomain),
		Links:         mapSlice(doc.Links, LinkToDomain),
		CommentIDs:    cloneSlice(doc.Comments),
		Delegates:     delegates,
		History:       mapSlice(doc.History, HistoryToDomain),
		Created:       created,
	}, nil
}

// TaskFromDomain maps a task to its document in the given team. Lists are
// always stored as arrays, never null, so array update operators apply.
func TaskFromDomain(t models.Task, teamID string) Task {
	delegates := make([]string, 0, len(t.Delegates))
	for _, mi := range t.Delegates {
		delegates = append(delegates, mi.ID)
	}
	return Task{
		ID:            t.ID,
		TeamID:        teamID,
		GroupID:       t.GroupID,
		Title:         t.Title,
		Status:        string(t.Status),
		StartAt:       t.StartAt,
		DueAt:         t.DueAt,
		Repeat:        string(t.Repeat),
		RepeatEndDate: t.RepeatEndDate,
		Description:   t.Description,
		Category:      string(t.Category),
		Tags:          arrayOf(t.Tags),
		Files:         mapArray(t.Files, FileFromDomain),
		Links:         mapArray(t.Links, LinkFromDomain),
		Comments:      arrayOf(t.CommentIDs),
		Delegates:     delegates,
		History:       mapArray(t.History, HistoryFromDomain),
		Created:       Created{Member: t.Created.Member.ID, Timestamp: t.Created.Timestamp},
	}
}

// Team maps a team document to the domain model.
func (d *Directory) Team(doc Team) (models.Team, error) {
	members, err := d.memberInfos(doc.Members)
	if err != nil {
		return models.Team{}, fmt.Errorf("team %s members: %w", doc.ID, err)
	}
	var requests []models.Member
	if doc.Requests != nil {
		requests = make([]models.Member, 0, len(doc.Requests))
		for _, id := range doc.Requests {
			m, err := d.Member(id)
			if err != nil {
				return models.Team{}, fmt.Errorf("team %s requests: %w", doc.ID, err)
			}
			requests = append(requests, m)
		}
	}
	created, err := d.created(doc.Created)
	if err != nil {
		return models.Team{}, fmt.Errorf("team %s creator: %w", doc.ID, err)
	}
	return models.Team{
		ID:          doc.ID,
		Name:        doc.Name,
		PictureKey:  doc.PictureKey,
		Members:     members,
		Category:    doc.Category,
		Created:     created,
		Description: doc.Description,
		Requests:    requests,
	}, nil
}

// TeamFromDomain maps a team to its document. The picture payload is not
// part of the document; only its storage key is.
func TeamFromDomain(t models.Team) Team {
	members := make([]string, 0, len(t.Members))
	for _, mi := range t.Members {
		members = append(members, mi.ID)
	}
	requests := make([]string, 0, len(t.Requests))
	for _, m := range t.Requests {
		requests = append(requests, m.ID)
	}
	return Team{
		ID:          t.ID,
		Name:        t.Name,
		NameCI:      text.Fold(t.Name),
		PictureKey:  t.PictureKey,
		Members:     members,
		Category:    t.Category,
		Created:     Created{Member: t.Created.Member.ID, Timestamp: t.Created.Timestamp},
		Description: t.Description,
		Requests:    requests,
	}
}

// MemberInfoFromDomain maps a member record to its document.
func MemberInfoFromDomain(mi models.MemberInfoTeam) MemberInfo {
	return MemberInfo{
		ID:            mi.ID,
		UserID:        mi.Profile.ID,
		Role:          string(mi.Role),
		Participation: string(mi.Participation),
	}
}

// Comment maps a comment document to the domain model.
func (d *Directory) Comment(doc Comment) (models.Comment, error) {
	author, err := d.Member(doc.AuthorID)
	if err != nil {
		return models.Comment{}, fmt.Errorf("comment %s author: %w", doc.ID, err)
	}
	return models.Comment{
		ID:        doc.ID,
		TaskID:    doc.TaskID,
		Author:    author,
		Body:      doc.Body,
		CreatedAt: doc.CreatedAt,
	}, nil
}

// CommentFromDomain maps a comment to its document.
func CommentFromDomain(c models.Comment) Comment {
	return Comment{
		ID:        c.ID,
		TaskID:    c.TaskID,
		AuthorID:  c.Author.ID,
		Body:      c.Body,
		CreatedAt: c.CreatedAt,
	}
}

// UserFromDomain maps a member profile to its users document.
func UserFromDomain(m models.Member) User {
	return User{
		ID:       m.ID,
		Name:     m.Name,
		Surname:  m.Surname,
		Nickname: m.Nickname,
		Email:    m.Email,
		Location: m.Location,
		NameCI:   text.Fold(strings.TrimSpace(m.Name + " " + m.Surname)),
	}
}

// Domain maps a users document to a member profile.
func (u User) Domain() models.Member {
	return models.Member{
		ID:       u.ID,
		Name:     u.Name,
		Surname:  u.Surname,
		Nickname: u.Nickname,
		Email:    u.Email,
		Location: u.Location,
	}
}

func FileToDomain(f File) models.File {
	return models.File{Name: f.Name, ContentType: f.ContentType, Size: f.Size, UploadedBy: f.UploadedBy, UploadedAt: f.UploadedAt}
}

func FileFromDomain(f models.File) File {
	return File{Name: f.Name, ContentType: f.ContentType, Size: f.Size, UploadedBy: f.UploadedBy, UploadedAt: f.UploadedAt}
}

func LinkToDomain(l Link) models.Link {
	return models.Link{URL: l.URL, Title: l.Title, AddedBy: l.AddedBy, AddedAt: l.AddedAt}
}

func LinkFromDomain(l models.Link) Link {
	return Link{URL: l.URL, Title: l.Title, AddedBy: l.AddedBy, AddedAt: l.AddedAt}
}

func HistoryToDomain(h History) models.History {
	return models.History{Timestamp: h.Timestamp, Key: h.Key}
}

func HistoryFromDomain(h models.History) History {
	return History{Timestamp: h.Timestamp, Key: h.Key}
}

func mapSlice[A, B any](in []A, f func(A) B) []B {
	if in == nil {
		return nil
	}
	out := make([]B, len(in))
	for i, v := range in {
		out[i] = f(v)
	}
	return out
}

// arrayOf copies in, turning nil into an empty slice.
func arrayOf[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func mapArray[A, B any](in []A, f func(A) B) []B {
	out := make([]B, len(in))
	for i, v := range in {
		out[i] = f(v)
	}
	return out
}
