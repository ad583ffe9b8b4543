// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds teamhub's own configuration. WAFFLE's CoreConfig covers
// the listener, TLS, logging and CORS; everything here is loaded by
// LoadConfig from config files, TEAMHUB_* env vars or flags.
type AppConfig struct {
	// MongoDB
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	TxnAllowFallback bool // run writes without a transaction on standalone servers

	// Session cookie
	SessionKey    string
	SessionName   string
	SessionDomain string
	SessionMaxAge time.Duration

	// Team pictures
	StorageType      string // "local" or "s3"
	StorageLocalPath string
	StorageS3Region  string
	StorageS3Bucket  string
	StorageS3Prefix  string

	// Group chat. A blank address disables it.
	ChatRedisAddr      string
	ChatRedisPassword  string
	ChatRedisDB        int
	ChatBreakerTimeout time.Duration

	// Audit trail destinations: "all", "db", "log" or "off"
	AuditLogAuth string
	AuditLogTeam string

	// Board cache
	BoardIdleTTL       time.Duration
	BoardSweepInterval time.Duration
}
