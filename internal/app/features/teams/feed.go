// internal/app/features/teams/feed.go
package teams

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/showteam/teamhub/internal/app/system/auth"
	"github.com/showteam/teamhub/internal/app/system/respond"
	"github.com/showteam/teamhub/internal/domain/models"
	"go.uber.org/zap"
)

const (
	defaultPingPeriod = 30 * time.Second
	defaultPongWait   = 60 * time.Second
	writeWait         = 10 * time.Second
)

type feedMessage struct {
	Teams []models.Team `json:"teams"`
}

// ServeFeed handles GET /teams/feed. It upgrades to a websocket and pushes
// the member's team list whenever any team changes. The connection is
// closed after an empty list if the change feed fails.
func (h *Handler) ServeFeed(w http.ResponseWriter, r *http.Request) {
	sess, ok := auth.Current(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub, err := h.Teams.SubscribeTeams(ctx, sess)
	if err != nil {
		respond.Upstream(w, "team feed")
		return
	}
	defer sub.Unsubscribe()

	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	log := h.Log.With(zap.String("user_id", sess.UserID()))
	pingPeriod, pongWait := h.keepalive()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// The client never sends anything useful; reading surfaces close frames
	// and dead peers.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case teams, open := <-sub.Updates():
			if !open {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed ended"),
					time.Now().Add(writeWait))
				return
			}
			if teams == nil {
				teams = []models.Team{}
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(feedMessage{Teams: teams}); err != nil {
				log.Debug("team feed write failed", zap.Error(err))
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Debug("team feed ping failed", zap.Error(err))
				return
			}
		}
	}
}

func (h *Handler) keepalive() (ping, pong time.Duration) {
	ping, pong = h.PingPeriod, h.PongWait
	if ping <= 0 {
		ping = defaultPingPeriod
	}
	if pong <= 0 {
		pong = defaultPongWait
	}
	return ping, pong
}
