// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/showteam/teamhub/internal/app/system/auditlog"
	"go.uber.org/zap"
)

// minProdSessionKey is the shortest session key accepted in prod.
const minProdSessionKey = 32

// appConfigKeys are read from config files (mongo_uri), env vars
// (TEAMHUB_MONGO_URI) and flags (--mongo_uri).
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "teamhub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "txn_allow_fallback", Default: false, Desc: "Run multi-document writes without a transaction when the server has no replica set"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (at least 32 bytes in prod)"},
	{Name: "session_name", Default: "teamhub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session cookie lifetime"},

	{Name: "storage_type", Default: "local", Desc: "Team picture storage: 'local' or 's3'"},
	{Name: "storage_local_path", Default: "./uploads/teams", Desc: "Local storage root"},
	{Name: "storage_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "storage_s3_prefix", Default: "teams/", Desc: "S3 key prefix"},

	{Name: "chat_redis_addr", Default: "", Desc: "Redis address for team chat rooms (blank disables chat)"},
	{Name: "chat_redis_password", Default: "", Desc: "Redis password"},
	{Name: "chat_redis_db", Default: 0, Desc: "Redis database number"},
	{Name: "chat_breaker_timeout", Default: "30s", Desc: "How long the chat circuit breaker stays open"},

	{Name: "audit_log_auth", Default: "all", Desc: "Sign-in events: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_team", Default: "all", Desc: "Team and membership events: 'all' (db+log), 'db', 'log', or 'off'"},

	{Name: "board_idle_ttl", Default: "30m", Desc: "Drop a member's cached board after this long unused"},
	{Name: "board_sweep_interval", Default: "1m", Desc: "How often idle boards are swept"},
}

// LoadConfig loads WAFFLE core config and teamhub's app config.
// Precedence is flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "TEAMHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		TxnAllowFallback: appValues.Bool("txn_allow_fallback"),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 720*time.Hour),

		StorageType:      appValues.String("storage_type"),
		StorageLocalPath: appValues.String("storage_local_path"),
		StorageS3Region:  appValues.String("storage_s3_region"),
		StorageS3Bucket:  appValues.String("storage_s3_bucket"),
		StorageS3Prefix:  appValues.String("storage_s3_prefix"),

		ChatRedisAddr:      appValues.String("chat_redis_addr"),
		ChatRedisPassword:  appValues.String("chat_redis_password"),
		ChatRedisDB:        appValues.Int("chat_redis_db"),
		ChatBreakerTimeout: appValues.Duration("chat_breaker_timeout", 30*time.Second),

		AuditLogAuth: appValues.String("audit_log_auth"),
		AuditLogTeam: appValues.String("audit_log_team"),

		BoardIdleTTL:       appValues.Duration("board_idle_ttl", 30*time.Minute),
		BoardSweepInterval: appValues.Duration("board_sweep_interval", time.Minute),
	}
	return coreCfg, appCfg, nil
}

// ValidateConfig rejects configurations that would only fail later, once
// a backend is dialled or a cookie is signed.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.MongoDatabase == "" {
		return errors.New("mongo_database is required")
	}

	switch appCfg.StorageType {
	case "local":
		if appCfg.StorageLocalPath == "" {
			return errors.New("storage_type local requires storage_local_path")
		}
	case "s3":
		if appCfg.StorageS3Bucket == "" || appCfg.StorageS3Region == "" {
			return errors.New("storage_type s3 requires storage_s3_bucket and storage_s3_region")
		}
	default:
		return fmt.Errorf("storage_type must be 'local' or 's3', got %q", appCfg.StorageType)
	}

	if coreCfg != nil && coreCfg.Env == "prod" && len(appCfg.SessionKey) < minProdSessionKey {
		return fmt.Errorf("session_key must be at least %d bytes in prod", minProdSessionKey)
	}
	for key, v := range map[string]string{"audit_log_auth": appCfg.AuditLogAuth, "audit_log_team": appCfg.AuditLogTeam} {
		switch v {
		case auditlog.All, auditlog.DB, auditlog.Log, auditlog.Off:
		default:
			return fmt.Errorf("%s must be 'all', 'db', 'log' or 'off', got %q", key, v)
		}
	}
	if appCfg.BoardSweepInterval <= 0 || appCfg.BoardIdleTTL <= 0 {
		return errors.New("board_sweep_interval and board_idle_ttl must be positive")
	}
	return nil
}
