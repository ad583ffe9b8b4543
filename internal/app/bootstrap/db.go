// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/waffle/config"
	"github.com/redis/go-redis/v9"
	"github.com/showteam/teamhub/internal/app/system/blob"
	"github.com/showteam/teamhub/internal/app/system/chat"
	"github.com/showteam/teamhub/internal/app/system/indexes"
	"github.com/showteam/teamhub/internal/app/system/timeouts"
	"github.com/showteam/teamhub/internal/app/system/validators"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB dials MongoDB, the chat Redis (when configured) and the
// picture store.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	opts := options.Client().ApplyURI(appCfg.MongoURI).SetAppName("teamhub")
	if appCfg.MongoMaxPoolSize > 0 {
		opts.SetMaxPoolSize(appCfg.MongoMaxPoolSize)
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("ping mongo: %w", err)
	}
	logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))

	deps := DBDeps{
		MongoClient:   client,
		MongoDatabase: client.Database(appCfg.MongoDatabase),
		Services:      &Services{},
	}

	if appCfg.ChatRedisAddr == "" {
		logger.Info("chat_redis_addr is empty, team chat rooms are disabled")
		deps.Chat = chat.Disabled{Log: logger}
	} else {
		deps.Redis = redis.NewClient(&redis.Options{
			Addr:     appCfg.ChatRedisAddr,
			Password: appCfg.ChatRedisPassword,
			DB:       appCfg.ChatRedisDB,
		})
		// Chat is optional for team writes, so an unreachable Redis only warns.
		if err := deps.Redis.Ping(pingCtx).Err(); err != nil {
			logger.Warn("chat redis ping failed", zap.String("addr", appCfg.ChatRedisAddr), zap.Error(err))
		}
		deps.Chat = chat.NewRedis(deps.Redis, appCfg.ChatBreakerTimeout, logger)
	}

	deps.Blobs, err = blob.New(ctx, blob.Config{
		Type:      appCfg.StorageType,
		LocalPath: appCfg.StorageLocalPath,
		S3Region:  appCfg.StorageS3Region,
		S3Bucket:  appCfg.StorageS3Bucket,
		S3Prefix:  appCfg.StorageS3Prefix,
	})
	if err != nil {
		closeAll(deps, logger)
		return DBDeps{}, fmt.Errorf("open %s storage: %w", appCfg.StorageType, err)
	}
	return deps, nil
}

// EnsureSchema applies collection validators, then indexes.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if err := validators.EnsureAll(ctx, deps.MongoDatabase, logger); err != nil {
		return fmt.Errorf("ensure validators: %w", err)
	}
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase, logger); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	return nil
}
