// Package txn runs multi-document writes inside MongoDB transactions.
//
// Transactions need a replica set or sharded cluster. On a standalone
// server the Runner either refuses (the default) or, when fallback is
// enabled for local development, logs a warning and runs the writes
// without atomicity.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Runner executes functions inside a session transaction.
type Runner struct {
	client        *mongo.Client
	log           *zap.Logger
	allowFallback bool
}

// New returns a Runner bound to the client.
func New(client *mongo.Client, logger *zap.Logger, allowFallback bool) *Runner {
	return &Runner{client: client, log: logger, allowFallback: allowFallback}
}

// Run executes fn in a transaction. The ctx handed to fn carries the
// session; every store call inside fn must use it. fn may be retried by the
// driver on transient errors, so it must not have side effects outside the
// database other than idempotent ones.
func (r *Runner) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := r.client.StartSession()
	if err != nil {
		return r.fallback(ctx, err, fn)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		return r.fallback(ctx, err, fn)
	}
	return err
}

func (r *Runner) fallback(ctx context.Context, cause error, fn func(ctx context.Context) error) error {
	if !r.allowFallback {
		return cause
	}
	r.log.Warn("transactions not supported; running without atomicity", zap.Error(cause))
	return fn(ctx)
}

// IsNotSupported reports whether err means the server cannot run
// transactions (standalone mongod, sessions unavailable).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, 51, 263: // IllegalOperation, IllegalOpMsgFlag, OperationNotSupportedInTransaction
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	has := func(a, b string) bool { return strings.Contains(msg, a) && strings.Contains(msg, b) }
	return has("transaction", "replica set") ||
		has("session", "not supported") ||
		has("transaction", "session") ||
		strings.Contains(msg, "illegal operation")
}
