// internal/app/features/health/handler.go
package health

import (
	"context"
	"errors"
	"net/http"

	"github.com/showteam/teamhub/internal/app/system/chat"
	"github.com/showteam/teamhub/internal/app/system/respond"
	"github.com/showteam/teamhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Pinger checks that a backend answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// MongoPinger pings the primary.
func MongoPinger(client *mongo.Client) Pinger {
	return PingFunc(func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	})
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	DB   Pinger
	Chat Pinger
	Log  *zap.Logger
}

func NewHandler(db, chatSvc Pinger, logger *zap.Logger) *Handler {
	return &Handler{DB: db, Chat: chatSvc, Log: logger}
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Chat     string `json:"chat"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Serve handles GET /health.
//
// The database decides the status code: 200 when it answers, 503 when it
// does not. Chat is informational ("connected", "disabled" or
// "unavailable") because team writes tolerate chat failures.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	resp := healthResponse{
		Status:   "ok",
		Database: "connected",
		Chat:     h.chatState(ctx),
	}

	if err := h.DB.Ping(ctx); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
		resp.Error = err.Error()
		respond.JSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) chatState(ctx context.Context) string {
	if h.Chat == nil {
		return "disabled"
	}
	err := h.Chat.Ping(ctx)
	switch {
	case err == nil:
		return "connected"
	case errors.Is(err, chat.ErrDisabled):
		return "disabled"
	}
	h.Log.Warn("health-check: chat ping failed", zap.Error(err))
	return "unavailable"
}
