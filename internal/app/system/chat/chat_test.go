package chat

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

func TestKeys(t *testing.T) {
	if got := RoomKey("abc"); got != "teamhub:chat:abc" {
		t.Errorf("RoomKey = %q", got)
	}
	if got := MessagesKey("abc"); got != "teamhub:chat:abc:messages" {
		t.Errorf("MessagesKey = %q", got)
	}
}

func TestDisabled(t *testing.T) {
	d := Disabled{Log: zap.NewNop()}
	ctx := context.Background()
	if err := d.AddNewGroupChat(ctx, "t1"); err != nil {
		t.Errorf("AddNewGroupChat: %v", err)
	}
	if err := d.DeleteGroupChatByTeamID(ctx, "t1"); err != nil {
		t.Errorf("DeleteGroupChatByTeamID: %v", err)
	}
	if err := d.Ping(ctx); !errors.Is(err, ErrDisabled) {
		t.Errorf("Ping: got %v, want ErrDisabled", err)
	}
}

func TestRedis_BreakerOpensOnUnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	svc := NewRedis(client, time.Minute, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := 0; i < 4; i++ {
		err := svc.AddNewGroupChat(ctx, "t1")
		if err == nil {
			t.Fatal("expected an error from an unreachable server")
		}
		if errors.Is(err, gobreaker.ErrOpenState) {
			t.Fatalf("breaker opened too early, after %d failures", i)
		}
	}
	if err := svc.Ping(ctx); !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("after repeated failures: got %v, want ErrOpenState", err)
	}
}

// TestRedis_Roundtrip needs a Redis server:
// TEAMHUB_TEST_REDIS_ADDR=localhost:6379 go test ./internal/app/system/chat
func TestRedis_Roundtrip(t *testing.T) {
	addr := os.Getenv("TEAMHUB_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEAMHUB_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	svc := NewRedis(client, time.Second, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	teamID := "test-" + time.Now().Format("150405.000000")
	if err := svc.AddNewGroupChat(ctx, teamID); err != nil {
		t.Fatalf("AddNewGroupChat: %v", err)
	}
	got, err := client.HGet(ctx, RoomKey(teamID), "team_id").Result()
	if err != nil || got != teamID {
		t.Fatalf("room hash: got %q, %v", got, err)
	}
	client.RPush(ctx, MessagesKey(teamID), "hello")

	if err := svc.DeleteGroupChatByTeamID(ctx, teamID); err != nil {
		t.Fatalf("DeleteGroupChatByTeamID: %v", err)
	}
	n, err := client.Exists(ctx, RoomKey(teamID), MessagesKey(teamID)).Result()
	if err != nil || n != 0 {
		t.Errorf("keys left after delete: %d, %v", n, err)
	}
}
