// internal/app/features/teams/activity.go
package teams

import (
	"context"
	"net/http"

	"github.com/showteam/teamhub/internal/app/store/audit"
	"github.com/showteam/teamhub/internal/app/system/paging"
	"github.com/showteam/teamhub/internal/app/system/respond"
	"github.com/showteam/teamhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

type activityResponse struct {
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Events   []audit.Event `json:"events"`
}

// ServeActivity handles GET /teams/{teamID}/activity: the team's audit
// trail, newest first, paged with page and page_size.
func (h *Handler) ServeActivity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	s, ok := h.scope(ctx, w, r, member)
	if !ok {
		return
	}
	page, size := paging.ParsePage(r), paging.ParsePageSize(r)
	events, err := h.Audit.TeamActivity(ctx, s.team.ID, int64(size), int64((page-1)*size))
	if err != nil {
		h.Log.Warn("load team activity failed", zap.String("team_id", s.team.ID), zap.Error(err))
		respond.Upstream(w, "load activity")
		return
	}
	respond.JSON(w, http.StatusOK, activityResponse{Page: page, PageSize: size, Events: events})
}
