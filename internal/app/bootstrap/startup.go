// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"time"

	"github.com/dalemusser/waffle/config"
	"github.com/showteam/teamhub/internal/app/board"
	"github.com/showteam/teamhub/internal/app/repository"
	"github.com/showteam/teamhub/internal/app/store/audit"
	commentstore "github.com/showteam/teamhub/internal/app/store/comments"
	memberinfostore "github.com/showteam/teamhub/internal/app/store/memberinfo"
	taskstore "github.com/showteam/teamhub/internal/app/store/tasks"
	teamstore "github.com/showteam/teamhub/internal/app/store/teams"
	userstore "github.com/showteam/teamhub/internal/app/store/users"
	"github.com/showteam/teamhub/internal/app/system/auditlog"
	"github.com/showteam/teamhub/internal/app/system/ratelimit"
	"github.com/showteam/teamhub/internal/app/system/timeouts"
	"github.com/showteam/teamhub/internal/app/system/txn"
	"github.com/showteam/teamhub/internal/app/system/workers"
	"go.uber.org/zap"
)

// Sign-in attempts allowed per client IP per window.
const (
	signInLimit  = 10
	signInWindow = time.Minute
)

// Startup applies timeout overrides, builds the repositories and the
// board registry, and starts the idle board sweeper.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("operation timeouts overridden from env", zap.Int("count", n))
	}
	buildServices(deps, appCfg, logger)
	deps.Services.Sweeper.Start()
	return nil
}

func buildServices(deps DBDeps, appCfg AppConfig, logger *zap.Logger) {
	db := deps.MongoDatabase
	s := deps.Services

	s.Users = userstore.New(db)
	memberInfos := memberinfostore.New(db)
	tx := txn.New(deps.MongoClient, logger, appCfg.TxnAllowFallback)

	s.Tasks = repository.NewTaskRepository(repository.TaskDeps{
		Tasks:       taskstore.New(db),
		Comments:    commentstore.New(db),
		MemberInfos: memberInfos,
		Users:       s.Users,
		Tx:          tx,
		Logger:      logger,
	})
	s.Teams = repository.NewTeamRepository(repository.TeamDeps{
		Teams:       teamstore.New(db),
		Tasks:       s.Tasks,
		MemberInfos: memberInfos,
		Users:       s.Users,
		Tx:          tx,
		Chat:        deps.Chat,
		Blobs:       deps.Blobs,
		Logger:      logger,
	})
	s.Boards = board.NewRegistry(s.Tasks, s.Teams, nil)
	s.Audit = auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth: appCfg.AuditLogAuth,
		Team: appCfg.AuditLogTeam,
	})
	s.SignIns = ratelimit.New(signInLimit, signInWindow)
	s.Sweeper = workers.NewBoardSweeper(cacheSweeper{boards: s.Boards, limiter: s.SignIns},
		logger, appCfg.BoardSweepInterval, appCfg.BoardIdleTTL)
}

// cacheSweeper also prunes expired rate limit windows on each board
// sweep.
type cacheSweeper struct {
	boards  *board.Registry
	limiter *ratelimit.Limiter
}

func (c cacheSweeper) Sweep(idle time.Duration) int {
	c.limiter.Prune()
	return c.boards.Sweep(idle)
}
