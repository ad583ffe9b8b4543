// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/redis/go-redis/v9"
	"github.com/showteam/teamhub/internal/app/board"
	"github.com/showteam/teamhub/internal/app/repository"
	userstore "github.com/showteam/teamhub/internal/app/store/users"
	"github.com/showteam/teamhub/internal/app/system/auditlog"
	"github.com/showteam/teamhub/internal/app/system/chat"
	"github.com/showteam/teamhub/internal/app/system/ratelimit"
	"github.com/showteam/teamhub/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds the backends ConnectDB opens and the services Startup
// builds on them. WAFFLE passes DBDeps by value, so the services live
// behind a pointer that ConnectDB allocates.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database
	Redis         *redis.Client // nil when chat is disabled
	Chat          chat.Service
	Blobs         storage.Store

	Services *Services
}

// Services are the repositories and long-lived state shared by handlers.
type Services struct {
	Users   *userstore.Store
	Tasks   *repository.TaskRepository
	Teams   *repository.TeamRepository
	Boards  *board.Registry
	Audit   *auditlog.Logger
	SignIns *ratelimit.Limiter
	Sweeper *workers.BoardSweeper
}
