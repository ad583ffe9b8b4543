// internal/app/system/chat/chat.go
//
// Package chat manages the group chat room that belongs to each team.
package chat

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Service creates and removes team chat rooms.
type Service interface {
	AddNewGroupChat(ctx context.Context, teamID string) error
	DeleteGroupChatByTeamID(ctx context.Context, teamID string) error
	Ping(ctx context.Context) error
}

// RoomKey is the hash holding a team's room metadata.
func RoomKey(teamID string) string { return "teamhub:chat:" + teamID }

// MessagesKey is the list holding a team's messages.
func MessagesKey(teamID string) string { return RoomKey(teamID) + ":messages" }

// Redis stores chat rooms in Redis. Every call passes through a circuit
// breaker so a dead Redis fails fast instead of stalling team writes.
type Redis struct {
	client *redis.Client
	cb     *gobreaker.CircuitBreaker
	log    *zap.Logger
	now    func() time.Time
}

// NewRedis wraps client. breakerTimeout is how long the breaker stays
// open before letting a trial request through.
func NewRedis(client *redis.Client, breakerTimeout time.Duration, logger *zap.Logger) *Redis {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "chat-redis",
		MaxRequests: 1,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return &Redis{client: client, cb: cb, log: logger, now: time.Now}
}

func (r *Redis) do(fn func() error) error {
	_, err := r.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

// AddNewGroupChat creates the team's room. Creating an existing room
// leaves its messages alone.
func (r *Redis) AddNewGroupChat(ctx context.Context, teamID string) error {
	return r.do(func() error {
		return r.client.HSet(ctx, RoomKey(teamID),
			"team_id", teamID,
			"created_at", r.now().UTC().Format(time.RFC3339),
		).Err()
	})
}

// DeleteGroupChatByTeamID removes the room and its messages.
func (r *Redis) DeleteGroupChatByTeamID(ctx context.Context, teamID string) error {
	return r.do(func() error {
		return r.client.Del(ctx, RoomKey(teamID), MessagesKey(teamID)).Err()
	})
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.do(func() error {
		return r.client.Ping(ctx).Err()
	})
}

// ErrDisabled is returned by Disabled.Ping.
var ErrDisabled = errors.New("chat service disabled")

// Disabled is used when no chat backend is configured. Room calls are
// logged and succeed.
type Disabled struct {
	Log *zap.Logger
}

func (d Disabled) AddNewGroupChat(_ context.Context, teamID string) error {
	d.Log.Debug("chat disabled; skipping room creation", zap.String("team_id", teamID))
	return nil
}

func (d Disabled) DeleteGroupChatByTeamID(_ context.Context, teamID string) error {
	d.Log.Debug("chat disabled; skipping room deletion", zap.String("team_id", teamID))
	return nil
}

func (d Disabled) Ping(context.Context) error { return ErrDisabled }
