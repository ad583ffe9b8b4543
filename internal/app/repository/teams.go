// internal/app/repository/teams.go
package repository

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/showteam/teamhub/internal/app/session"
	"github.com/showteam/teamhub/internal/app/store/documents"
	"github.com/showteam/teamhub/internal/app/system/metrics"
	"github.com/showteam/teamhub/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrAlreadyMember is logged when a profile is added to a team twice.
var ErrAlreadyMember = errors.New("profile is already a member of the team")

// ErrLastMember is logged when removing a member would leave the team
// empty. The last member leaves through LeaveTeam, which dissolves the team.
var ErrLastMember = errors.New("cannot remove the team's last member")

// TeamDeps bundles what a TeamRepository needs.
type TeamDeps struct {
	Teams       TeamStore
	Tasks       *TaskRepository
	MemberInfos MemberInfoStore
	Users       UserStore
	Tx          TxRunner
	Chat        ChatService
	Blobs       BlobStore
	Logger      *zap.Logger
	Now         func() time.Time // defaults to time.Now().UTC()
}

// TeamRepository manages teams, their member records and join requests.
// Like TaskRepository it logs failures and reports them as false or absent.
type TeamRepository struct {
	teams TeamStore
	tasks *TaskRepository
	infos MemberInfoStore
	users UserStore
	tx    TxRunner
	chat  ChatService
	blobs BlobStore
	log   *zap.Logger
	now   func() time.Time
}

// NewTeamRepository builds a TeamRepository.
func NewTeamRepository(d TeamDeps) *TeamRepository {
	now := d.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &TeamRepository{
		teams: d.Teams,
		tasks: d.Tasks,
		infos: d.MemberInfos,
		users: d.Users,
		tx:    d.Tx,
		chat:  d.Chat,
		blobs: d.Blobs,
		log:   d.Logger,
		now:   now,
	}
}

// PictureKey is the blob key of a team's picture.
func PictureKey(teamID string) string {
	return "team_" + teamID + ".jpg"
}

// AddTeam creates a team owned by the session member.
//
// Member records are written first, in parallel and independently. Only if
// every write succeeds does one transaction create the group chat and the
// team document. Member records written before a failure are not removed;
// their ids are logged.
func (r *TeamRepository) AddTeam(ctx context.Context, sess session.Session, team models.Team) (models.Team, bool) {
	members := make([]models.MemberInfoTeam, len(team.Members))
	var (
		mu      sync.Mutex
		written []string
		g       errgroup.Group
	)
	for i, mi := range team.Members {
		if mi.ID == "" {
			mi.ID = documents.NewID()
		}
		members[i] = mi
		doc := documents.MemberInfoFromDomain(mi)
		g.Go(func() error {
			if err := r.infos.Insert(ctx, doc); err != nil {
				return err
			}
			mu.Lock()
			written = append(written, doc.ID)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.failed("add_team", err, zap.Strings("orphaned_member_info_ids", written))
		return models.Team{}, false
	}

	team.ID = documents.NewID()
	team.Members = members
	team.Created = models.Created{Member: sess.Member, Timestamp: r.now()}
	if team.Requests == nil {
		team.Requests = []models.Member{}
	}
	if err := r.storePicture(ctx, &team); err != nil {
		r.failed("add_team", err, zap.String("team_id", team.ID), zap.Strings("orphaned_member_info_ids", written))
		return models.Team{}, false
	}

	err := r.tx.Run(ctx, func(ctx context.Context) error {
		if err := r.chat.AddNewGroupChat(ctx, team.ID); err != nil {
			r.log.Warn("group chat creation failed", zap.String("team_id", team.ID), zap.Error(err))
		}
		return r.teams.Insert(ctx, documents.TeamFromDomain(team))
	})
	if err != nil {
		r.failed("add_team", err, zap.String("team_id", team.ID), zap.Strings("orphaned_member_info_ids", written))
		return models.Team{}, false
	}

	r.log.Info("team created", zap.String("team_id", team.ID), zap.Int("members", len(members)))
	metrics.Repo("add_team", true)
	return team, true
}

// GetTeamByID fetches and maps one team.
func (r *TeamRepository) GetTeamByID(ctx context.Context, id string) (models.Team, bool) {
	doc, err := r.teams.GetByID(ctx, id)
	if err != nil {
		r.failed("get_team", err, zap.String("team_id", id))
		return models.Team{}, false
	}
	teams, err := r.mapTeams(ctx, []documents.Team{doc})
	if err != nil {
		r.failed("get_team", err, zap.String("team_id", id))
		return models.Team{}, false
	}
	if len(teams) == 0 {
		metrics.Repo("get_team", false)
		return models.Team{}, false
	}
	metrics.Repo("get_team", true)
	return teams[0], true
}

// ListTeamsForMember returns the teams the session member belongs to.
func (r *TeamRepository) ListTeamsForMember(ctx context.Context, sess session.Session) ([]models.Team, bool) {
	docs, err := r.teams.List(ctx)
	if err != nil {
		r.failed("list_teams", err, zap.String("user_id", sess.UserID()))
		return []models.Team{}, false
	}
	mine, err := r.infos.IDsByUser(ctx, sess.UserID())
	if err != nil {
		r.failed("list_teams", err, zap.String("user_id", sess.UserID()))
		return []models.Team{}, false
	}
	own := make(map[string]bool, len(mine))
	for _, id := range mine {
		own[id] = true
	}
	candidates := docs[:0]
	for _, d := range docs {
		for _, id := range d.Members {
			if own[id] {
				candidates = append(candidates, d)
				break
			}
		}
	}

	teams, err := r.mapTeams(ctx, candidates)
	if err != nil {
		r.failed("list_teams", err, zap.String("user_id", sess.UserID()))
		return []models.Team{}, false
	}
	out := make([]models.Team, 0, len(teams))
	for _, t := range teams {
		if t.HasMember(sess.UserID()) {
			out = append(out, t)
		}
	}
	metrics.Repo("list_teams", true)
	return out, true
}

// mapTeams maps documents, skipping (and logging) the ones that fail.
func (r *TeamRepository) mapTeams(ctx context.Context, docs []documents.Team) ([]models.Team, error) {
	if len(docs) == 0 {
		return []models.Team{}, nil
	}
	var ids []string
	for _, d := range docs {
		ids = union(ids, d.Members)
	}
	infos, err := r.infos.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	users, err := r.users.List(ctx)
	if err != nil {
		return nil, err
	}
	dir := documents.NewDirectory(users, infos)
	out := make([]models.Team, 0, len(docs))
	for _, d := range docs {
		t, err := dir.Team(d)
		if err != nil {
			r.log.Warn("skipping unmappable team", zap.String("team_id", d.ID), zap.Error(err))
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// AddTask inserts a new task into the team. The task gets a fresh id and an
// empty comment list.
func (r *TeamRepository) AddTask(ctx context.Context, task models.Task, teamID string) (models.Task, bool) {
	task.ID = documents.NewID()
	task.CommentIDs = []string{}
	err := r.tx.Run(ctx, func(ctx context.Context) error {
		return r.tasks.tasks.Insert(ctx, documents.TaskFromDomain(task, teamID))
	})
	if err != nil {
		r.failed("add_task", err, zap.String("team_id", teamID))
		return models.Task{}, false
	}
	metrics.Repo("add_task", true)
	return task, true
}

// UpdateTeam stores the picture (if the team carries one) as
// team_{id}.jpg and then overwrites the team document.
func (r *TeamRepository) UpdateTeam(ctx context.Context, team models.Team) bool {
	err := r.replaceTeam(ctx, team)
	return r.result("update_team", err, zap.String("team_id", team.ID))
}

func (r *TeamRepository) replaceTeam(ctx context.Context, team models.Team) error {
	if err := r.storePicture(ctx, &team); err != nil {
		return err
	}
	return r.teams.Replace(ctx, documents.TeamFromDomain(team))
}

func (r *TeamRepository) storePicture(ctx context.Context, team *models.Team) error {
	if len(team.Picture) == 0 {
		return nil
	}
	key := PictureKey(team.ID)
	if err := r.blobs.Put(ctx, key, bytes.NewReader(team.Picture), &storage.PutOptions{ContentType: "image/jpeg"}); err != nil {
		return err
	}
	team.PictureKey = key
	team.Picture = nil
	return nil
}

// DeleteTeam removes the team with everything it owns. The group chat is
// deleted first and outside the transaction; tasks, their comments, member
// records and the team document go in one transaction. The picture is
// removed last.
func (r *TeamRepository) DeleteTeam(ctx context.Context, team models.Team) bool {
	docs, err := r.tasks.tasks.ListByTeam(ctx, team.ID)
	if err != nil {
		r.failed("delete_team", err, zap.String("team_id", team.ID))
		return false
	}
	if err := r.chat.DeleteGroupChatByTeamID(ctx, team.ID); err != nil {
		r.log.Warn("group chat deletion failed", zap.String("team_id", team.ID), zap.Error(err))
	}

	err = r.tx.Run(ctx, func(ctx context.Context) error {
		for _, d := range docs {
			if err := r.tasks.deleteTaskTx(ctx, d.ID, d.Comments); err != nil {
				return err
			}
		}
		ids := make([]string, 0, len(team.Members))
		for _, mi := range team.Members {
			ids = append(ids, mi.ID)
		}
		if current, err := r.teams.GetByID(ctx, team.ID); err == nil {
			ids = union(ids, current.Members)
		}
		for _, id := range ids {
			if _, err := r.infos.Delete(ctx, id); err != nil {
				return err
			}
		}
		_, err := r.teams.Delete(ctx, team.ID)
		return err
	})
	if err != nil {
		r.failed("delete_team", err, zap.String("team_id", team.ID))
		return false
	}
	r.deletePicture(ctx, team.ID)
	r.log.Info("team deleted", zap.String("team_id", team.ID), zap.Int("tasks", len(docs)))
	metrics.Repo("delete_team", true)
	return true
}

// deletePicture drops the team's picture. A team without one is fine; other
// failures leave an orphaned object and are only logged.
func (r *TeamRepository) deletePicture(ctx context.Context, teamID string) {
	err := r.blobs.Delete(ctx, PictureKey(teamID))
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		r.log.Warn("team picture deletion failed", zap.String("team_id", teamID), zap.Error(err))
	}
}

// LeaveTeam removes the member from the team. See leaveWorkflow for the
// steps and their compensations.
func (r *TeamRepository) LeaveTeam(ctx context.Context, member models.MemberInfoTeam, team models.Team) (LeaveOutcome, bool) {
	w := &leaveWorkflow{repo: r, member: member, team: team, at: r.now()}
	out, err := w.run(ctx)
	if err != nil {
		r.failed("leave_team", err, zap.String("team_id", team.ID), zap.String("member_info_id", member.ID))
		return LeaveOutcome{}, false
	}
	metrics.Repo("leave_team", true)
	return out, true
}

// AddTeamJoinRequest records that memberID asks to join. A request already
// present on the caller's copy of the team is not sent again. On success
// the caller's copy is updated.
func (r *TeamRepository) AddTeamJoinRequest(ctx context.Context, team *models.Team, memberID string) models.JoinRequestResult {
	if team.HasRequest(memberID) {
		return models.JoinRequestAlreadyExists
	}
	member, err := r.users.GetByID(ctx, memberID)
	if err != nil {
		r.failed("add_join_request", err, zap.String("team_id", team.ID), zap.String("user_id", memberID))
		return models.JoinRequestFailed
	}
	if err := r.teams.AddRequest(ctx, team.ID, memberID); err != nil {
		r.failed("add_join_request", err, zap.String("team_id", team.ID), zap.String("user_id", memberID))
		return models.JoinRequestFailed
	}
	team.Requests = append(team.Requests, member)
	metrics.Repo("add_join_request", true)
	return models.JoinRequestAdded
}

// DeleteRequest drops a pending join request.
func (r *TeamRepository) DeleteRequest(ctx context.Context, team models.Team, userID string) (models.Team, bool) {
	if err := r.teams.RemoveRequest(ctx, team.ID, userID); err != nil {
		r.failed("delete_join_request", err, zap.String("team_id", team.ID), zap.String("user_id", userID))
		return models.Team{}, false
	}
	metrics.Repo("delete_join_request", true)
	return team.WithoutRequest(userID), true
}

// AddMember creates a member record for the profile and adds it to the
// team, clearing the profile's join request, in one transaction.
func (r *TeamRepository) AddMember(ctx context.Context, team models.Team, info models.MemberInfoTeam) (models.Team, bool) {
	if team.HasMember(info.Profile.ID) {
		r.failed("add_member", ErrAlreadyMember, zap.String("team_id", team.ID), zap.String("user_id", info.Profile.ID))
		return models.Team{}, false
	}
	info.ID = documents.NewID()
	updated := team.WithoutRequest(info.Profile.ID)
	updated.Members = append(append([]models.MemberInfoTeam{}, team.Members...), info)

	err := r.tx.Run(ctx, func(ctx context.Context) error {
		if err := r.infos.Insert(ctx, documents.MemberInfoFromDomain(info)); err != nil {
			return err
		}
		return r.teams.Replace(ctx, documents.TeamFromDomain(updated))
	})
	if err != nil {
		r.failed("add_member", err, zap.String("team_id", team.ID), zap.String("user_id", info.Profile.ID))
		return models.Team{}, false
	}
	metrics.Repo("add_member", true)
	return updated, true
}

// RemoveMember takes a member out of the team: the record leaves every
// task's delegate list, is deleted, and the team is rewritten, all in one
// transaction. The team's last member cannot be removed.
func (r *TeamRepository) RemoveMember(ctx context.Context, team models.Team, infoID string) (models.Team, bool) {
	updated := team.WithoutMember(infoID)
	if len(updated.Members) == 0 {
		r.failed("remove_member", ErrLastMember, zap.String("team_id", team.ID), zap.String("member_info_id", infoID))
		return models.Team{}, false
	}
	at := documents.History{Timestamp: r.now(), Key: models.HistoryRemovedFromTeam}

	err := r.tx.Run(ctx, func(ctx context.Context) error {
		docs, err := r.tasks.tasks.ListByTeam(ctx, team.ID)
		if err != nil {
			return err
		}
		for _, d := range docs {
			if !contains(d.Delegates, infoID) {
				continue
			}
			if err := r.tasks.tasks.DetachMember(ctx, d.ID, infoID, at); err != nil {
				return err
			}
		}
		if _, err := r.infos.Delete(ctx, infoID); err != nil {
			return err
		}
		return r.teams.Replace(ctx, documents.TeamFromDomain(updated))
	})
	if err != nil {
		r.failed("remove_member", err, zap.String("team_id", team.ID), zap.String("member_info_id", infoID))
		return models.Team{}, false
	}
	metrics.Repo("remove_member", true)
	return updated, true
}

// ChangeRole sets a member record's role.
func (r *TeamRepository) ChangeRole(ctx context.Context, infoID string, role models.Role) bool {
	return r.result("change_role", r.infos.SetRole(ctx, infoID, string(role)), zap.String("member_info_id", infoID))
}

// ChangeParticipation sets a member record's participation.
func (r *TeamRepository) ChangeParticipation(ctx context.Context, infoID string, p models.Participation) bool {
	return r.result("change_participation", r.infos.SetParticipation(ctx, infoID, string(p)), zap.String("member_info_id", infoID))
}

func (r *TeamRepository) result(op string, err error, fields ...zap.Field) bool {
	if err != nil {
		r.failed(op, err, fields...)
		return false
	}
	metrics.Repo(op, true)
	return true
}

func (r *TeamRepository) failed(op string, err error, fields ...zap.Field) {
	logFailure(r.log, op, err, fields...)
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
