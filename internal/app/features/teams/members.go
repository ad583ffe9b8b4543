// internal/app/features/teams/members.go
package teams

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/showteam/teamhub/internal/app/system/limits"
	"github.com/showteam/teamhub/internal/app/system/respond"
	"github.com/showteam/teamhub/internal/app/system/timeouts"
	"github.com/showteam/teamhub/internal/domain/models"
)

type roleRequest struct {
	Role string `json:"role" validate:"required,oneof=EXECUTIVE_LEADER LEADER SENIOR_MEMBER MEMBER JUNIOR_MEMBER"`
}

type participationRequest struct {
	Participation string `json:"participation" validate:"required,oneof=FULL_TIME PART_TIME OCCASIONAL"`
}

type acceptRequest struct {
	roleRequest
	participationRequest
}

type joinResponse struct {
	Result models.JoinRequestResult `json:"result"`
}

// ServeRequestJoin handles POST /teams/{teamID}/requests: the signed-in
// member asks to join.
func (h *Handler) ServeRequestJoin(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	s, ok := h.scope(ctx, w, r, anyone)
	if !ok {
		return
	}
	if s.team.HasMember(s.sess.UserID()) {
		respond.Error(w, http.StatusConflict, "already a member of this team")
		return
	}

	team := s.team
	switch res := h.Teams.AddTeamJoinRequest(ctx, &team, s.sess.UserID()); res {
	case models.JoinRequestAdded:
		h.Boards.RefreshTeam(team.ID)
		h.Audit.JoinRequested(ctx, r, team.ID, s.sess.UserID())
		respond.JSON(w, http.StatusCreated, joinResponse{Result: res})
	case models.JoinRequestAlreadyExists:
		respond.JSON(w, http.StatusOK, joinResponse{Result: res})
	case models.JoinRequestFailed:
		respond.Upstream(w, "join request")
	}
}

// ServeDeleteRequest handles DELETE /teams/{teamID}/requests/{userID}.
// Leaders may decline any request; a member may withdraw their own.
func (h *Handler) ServeDeleteRequest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	userID := chi.URLParam(r, "userID")
	s, ok := h.scope(ctx, w, r, anyone)
	if !ok {
		return
	}
	if userID != s.sess.UserID() && !s.team.CanEdit(s.sess.UserID()) {
		respond.Error(w, http.StatusForbidden, "only team leaders can do this")
		return
	}
	if !s.team.HasRequest(userID) {
		respond.NotFound(w, "join request")
		return
	}

	team, ok := s.board.DeleteMemberRequest(ctx, userID)
	if !ok {
		respond.Upstream(w, "delete join request")
		return
	}
	h.Boards.RefreshTeam(team.ID, s.sess.UserID())
	h.Audit.RequestDeleted(ctx, r, s.sess.UserID(), team.ID, userID)
	respond.JSON(w, http.StatusOK, team)
}

// ServeAcceptRequest handles POST /teams/{teamID}/requests/{userID}/accept.
func (h *Handler) ServeAcceptRequest(w http.ResponseWriter, r *http.Request) {
	var req acceptRequest
	if err := respond.Decode(w, r, limits.MaxJSONBody, &req); err != nil {
		respond.BadRequest(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	userID := chi.URLParam(r, "userID")
	s, ok := h.scope(ctx, w, r, editor)
	if !ok {
		return
	}
	if !s.team.HasRequest(userID) {
		respond.NotFound(w, "join request")
		return
	}

	role, _ := models.ParseRole(req.Role)
	p, _ := models.ParseParticipation(req.Participation)
	team, ok := s.board.AcceptRequest(ctx, userID, role, p)
	if !ok {
		respond.Upstream(w, "accept join request")
		return
	}
	h.Audit.RequestAccepted(ctx, r, s.sess.UserID(), team.ID, userID, string(role))
	h.Boards.RefreshTeam(team.ID, s.sess.UserID())
	respond.JSON(w, http.StatusOK, team)
}

// memberScope is a team scope plus the {infoID} member record.
func (h *Handler) memberScope(ctx context.Context, w http.ResponseWriter, r *http.Request) (teamScope, models.MemberInfoTeam, bool) {
	s, ok := h.scope(ctx, w, r, editor)
	if !ok {
		return teamScope{}, models.MemberInfoTeam{}, false
	}
	infoID := chi.URLParam(r, "infoID")
	for _, mi := range s.team.Members {
		if mi.ID == infoID {
			return s, mi, true
		}
	}
	respond.NotFound(w, "member")
	return teamScope{}, models.MemberInfoTeam{}, false
}

// ServeChangeRole handles PUT /teams/{teamID}/members/{infoID}/role.
func (h *Handler) ServeChangeRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := respond.Decode(w, r, limits.MaxJSONBody, &req); err != nil {
		respond.BadRequest(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	s, mi, ok := h.memberScope(ctx, w, r)
	if !ok {
		return
	}
	role, _ := models.ParseRole(req.Role)
	if !s.board.ChangeRole(ctx, mi.ID, role) {
		respond.Upstream(w, "change role")
		return
	}
	h.Audit.RoleChanged(ctx, r, s.sess.UserID(), s.team.ID, mi.Profile.ID, string(role))
	h.finishMemberChange(ctx, w, s)
}

// ServeChangeParticipation handles PUT
// /teams/{teamID}/members/{infoID}/participation.
func (h *Handler) ServeChangeParticipation(w http.ResponseWriter, r *http.Request) {
	var req participationRequest
	if err := respond.Decode(w, r, limits.MaxJSONBody, &req); err != nil {
		respond.BadRequest(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	s, mi, ok := h.memberScope(ctx, w, r)
	if !ok {
		return
	}
	p, _ := models.ParseParticipation(req.Participation)
	if !s.board.ChangeParticipation(ctx, mi.ID, p) {
		respond.Upstream(w, "change participation")
		return
	}
	h.Audit.ParticipationChanged(ctx, r, s.sess.UserID(), s.team.ID, mi.Profile.ID, string(p))
	h.finishMemberChange(ctx, w, s)
}

func (h *Handler) finishMemberChange(ctx context.Context, w http.ResponseWriter, s teamScope) {
	h.Boards.RefreshTeam(s.team.ID, s.sess.UserID())
	team, ok := s.board.Team(ctx)
	if !ok {
		respond.NotFound(w, "team")
		return
	}
	respond.JSON(w, http.StatusOK, team)
}

// ServeRemoveMember handles DELETE /teams/{teamID}/members/{infoID}. The
// member is taken off every task they were delegated to. Removing oneself
// is a leave and answers like POST /leave.
func (h *Handler) ServeRemoveMember(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	s, mi, ok := h.memberScope(ctx, w, r)
	if !ok {
		return
	}
	if mi.Profile.ID == s.sess.UserID() {
		h.leave(ctx, w, r, s)
		return
	}
	team, ok := s.board.DeleteMember(ctx, mi.ID)
	if !ok {
		respond.Upstream(w, "remove member")
		return
	}
	h.Boards.Forget(mi.Profile.ID, team.ID)
	h.Boards.RefreshTeam(team.ID, s.sess.UserID())
	h.Audit.MemberRemoved(ctx, r, s.sess.UserID(), team.ID, mi.Profile.ID)
	respond.JSON(w, http.StatusOK, team)
}
