// internal/app/features/teams/teams.go
package teams

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/showteam/teamhub/internal/app/system/auth"
	"github.com/showteam/teamhub/internal/app/system/htmlsanitize"
	"github.com/showteam/teamhub/internal/app/system/limits"
	"github.com/showteam/teamhub/internal/app/system/respond"
	"github.com/showteam/teamhub/internal/app/system/timeouts"
	"github.com/showteam/teamhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type memberInput struct {
	UserID        string `json:"user_id" validate:"required,max=128"`
	Role          string `json:"role" validate:"required,oneof=EXECUTIVE_LEADER LEADER SENIOR_MEMBER MEMBER JUNIOR_MEMBER"`
	Participation string `json:"participation" validate:"required,oneof=FULL_TIME PART_TIME OCCASIONAL"`
}

type createTeamRequest struct {
	Name        string        `json:"name" validate:"required,max=100"`
	Description string        `json:"description" validate:"max=2000"`
	Category    int           `json:"category" validate:"gte=0"`
	Picture     []byte        `json:"picture"`
	Members     []memberInput `json:"members" validate:"max=200,dive"`
}

type updateTeamRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=2000"`
	Category    int    `json:"category" validate:"gte=0"`
	Picture     []byte `json:"picture"`
}

// ServeList handles GET /teams: the signed-in member's teams.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	sess, ok := auth.Current(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	teams, ok := h.Teams.ListTeamsForMember(ctx, sess)
	if !ok {
		respond.Upstream(w, "list teams")
		return
	}
	respond.JSON(w, http.StatusOK, teams)
}

// ServeCreate handles POST /teams. The creator always ends up in the team
// as an executive leader working full time, unless the body lists them with
// another role.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	sess, ok := auth.Current(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req createTeamRequest
	if err := respond.Decode(w, r, limits.MaxTeamBody, &req); err != nil {
		respond.BadRequest(w, err)
		return
	}
	name := htmlsanitize.PlainText(req.Name)
	if name == "" {
		respond.BadRequest(w, errors.New("name is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	members, err := h.resolveMembers(ctx, sess.Member, req.Members)
	if err != nil {
		if errors.Is(err, errBadMember) {
			respond.BadRequest(w, err)
		} else {
			respond.Upstream(w, "load members")
		}
		return
	}

	team, ok := h.Teams.AddTeam(ctx, sess, models.Team{
		Name:        name,
		Description: htmlsanitize.PlainText(req.Description),
		Category:    req.Category,
		Picture:     req.Picture,
		Members:     members,
		Requests:    []models.Member{},
	})
	if !ok {
		respond.Upstream(w, "create team")
		return
	}
	h.Log.Info("team created via API", zap.String("team_id", team.ID), zap.String("user_id", sess.UserID()))
	h.Audit.TeamCreated(ctx, r, sess.UserID(), team.ID, team.Name)
	respond.JSON(w, http.StatusCreated, team)
}

var errBadMember = errors.New("invalid member")

// resolveMembers loads each listed profile and adds the creator if missing.
func (h *Handler) resolveMembers(ctx context.Context, creator models.Member, in []memberInput) ([]models.MemberInfoTeam, error) {
	seen := map[string]bool{}
	out := make([]models.MemberInfoTeam, 0, len(in)+1)
	for _, m := range in {
		if seen[m.UserID] {
			return nil, fmt.Errorf("%w: %s is listed twice", errBadMember, m.UserID)
		}
		seen[m.UserID] = true

		profile, err := h.Users.GetByID(ctx, m.UserID)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: unknown user %s", errBadMember, m.UserID)
		}
		if err != nil {
			h.Log.Warn("resolve team member failed", zap.String("user_id", m.UserID), zap.Error(err))
			return nil, err
		}
		role, _ := models.ParseRole(m.Role)
		p, _ := models.ParseParticipation(m.Participation)
		out = append(out, models.MemberInfoTeam{Profile: profile, Role: role, Participation: p})
	}
	if !seen[creator.ID] {
		out = append([]models.MemberInfoTeam{{
			Profile:       creator,
			Role:          models.RoleExecutiveLeader,
			Participation: models.ParticipationFullTime,
		}}, out...)
	}
	return out, nil
}

// ServeGet handles GET /teams/{teamID}. Any signed-in member may look a
// team up, so that they can ask to join it.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	s, ok := h.scope(ctx, w, r, anyone)
	if !ok {
		return
	}
	respond.JSON(w, http.StatusOK, s.team)
}

// ServeUpdate handles PUT /teams/{teamID}.
func (h *Handler) ServeUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateTeamRequest
	if err := respond.Decode(w, r, limits.MaxTeamBody, &req); err != nil {
		respond.BadRequest(w, err)
		return
	}
	name := htmlsanitize.PlainText(req.Name)
	if name == "" {
		respond.BadRequest(w, errors.New("name is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	s, ok := h.scope(ctx, w, r, editor)
	if !ok {
		return
	}
	team := s.team
	team.Name = name
	team.Description = htmlsanitize.PlainText(req.Description)
	team.Category = req.Category
	team.Picture = req.Picture

	if !h.Teams.UpdateTeam(ctx, team) {
		respond.Upstream(w, "update team")
		return
	}
	h.Boards.RefreshTeam(team.ID)
	h.Audit.TeamUpdated(ctx, r, s.sess.UserID(), team.ID, team.Name)

	updated, ok := s.board.Team(ctx)
	if !ok {
		respond.NotFound(w, "team")
		return
	}
	respond.JSON(w, http.StatusOK, updated)
}

// ServeDelete handles DELETE /teams/{teamID}.
func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	s, ok := h.scope(ctx, w, r, editor)
	if !ok {
		return
	}
	if !h.Teams.DeleteTeam(ctx, s.team) {
		respond.Upstream(w, "delete team")
		return
	}
	h.Boards.ForgetTeam(s.team.ID)
	h.Audit.TeamDeleted(ctx, r, s.sess.UserID(), s.team.ID, s.team.Name)
	respond.NoContent(w)
}

type leaveResponse struct {
	Team      models.Team `json:"team"`
	Dissolved bool        `json:"dissolved"`
}

// ServeLeave handles POST /teams/{teamID}/leave. The last member to leave
// dissolves the team.
func (h *Handler) ServeLeave(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	s, ok := h.scope(ctx, w, r, member)
	if !ok {
		return
	}
	h.leave(ctx, w, r, s)
}

func (h *Handler) leave(ctx context.Context, w http.ResponseWriter, r *http.Request, s teamScope) {
	info, _ := s.team.MemberInfoFor(s.sess.UserID())

	out, ok := h.Teams.LeaveTeam(ctx, info, s.team)
	if !ok {
		respond.Upstream(w, "leave team")
		return
	}
	h.Boards.Forget(s.sess.UserID(), s.team.ID)
	h.Audit.MemberLeft(ctx, r, s.team.ID, s.sess.UserID(), out.Dissolved)
	if out.Dissolved {
		h.Boards.ForgetTeam(s.team.ID)
	} else {
		h.Boards.RefreshTeam(s.team.ID)
	}
	respond.JSON(w, http.StatusOK, leaveResponse{Team: out.Team, Dissolved: out.Dissolved})
}
