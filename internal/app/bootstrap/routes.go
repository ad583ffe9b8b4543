// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	healthfeature "github.com/showteam/teamhub/internal/app/features/health"
	sessionsfeature "github.com/showteam/teamhub/internal/app/features/sessions"
	tasksfeature "github.com/showteam/teamhub/internal/app/features/tasks"
	teamsfeature "github.com/showteam/teamhub/internal/app/features/teams"
	"github.com/showteam/teamhub/internal/app/system/auth"
	"github.com/showteam/teamhub/internal/app/system/metrics"
	"go.uber.org/zap"
)

// BuildHandler builds the JSON API. Every route sees the session
// middleware; /teams requires a signed-in member.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	s := deps.Services
	if s == nil || s.Boards == nil {
		return nil, errors.New("services not built; Startup must run before BuildHandler")
	}

	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain,
		appCfg.SessionMaxAge, secure, s.Users, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(metrics.Middleware)
	r.Use(sessionMgr.LoadSession)

	healthHandler := healthfeature.NewHandler(healthfeature.MongoPinger(deps.MongoClient), deps.Chat, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", metrics.Handler())

	sessionsHandler := sessionsfeature.NewHandler(s.Users, sessionMgr, s.Boards, s.Audit, logger)
	r.Mount("/session", sessionsfeature.Routes(sessionsHandler, s.SignIns))

	teamsHandler := teamsfeature.NewHandler(s.Teams, s.Users, s.Boards, s.Audit, logger)
	tasksHandler := tasksfeature.NewHandler(s.Boards, s.Tasks, logger)
	r.With(sessionMgr.RequireSignedIn).Mount("/teams", teamsfeature.Routes(teamsHandler, tasksfeature.Register(tasksHandler)))

	return r, nil
}
