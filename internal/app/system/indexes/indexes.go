// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/showteam/teamhub/internal/app/store/documents"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each collection's set is idempotent.
Problems are aggregated so every failing collection is reported at once.
*/
func EnsureAll(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
	sets := []struct {
		coll   string
		models []mongo.IndexModel
	}{
		{documents.CollTasks, []mongo.IndexModel{
			index("idx_tasks_team", bson.D{{Key: "team_id", Value: 1}, {Key: "created.timestamp", Value: 1}}),
			index("idx_tasks_creator_status", bson.D{{Key: "created.member", Value: 1}, {Key: "status", Value: 1}}),
			index("idx_tasks_delegates_status", bson.D{{Key: documents.FieldTaskDelegates, Value: 1}, {Key: "status", Value: 1}}),
			index("idx_tasks_group", bson.D{{Key: "group_id", Value: 1}}),
		}},
		{documents.CollTeams, []mongo.IndexModel{
			index("idx_teams_name_ci", bson.D{{Key: "name_ci", Value: 1}}),
			index("idx_teams_members", bson.D{{Key: documents.FieldTeamMembers, Value: 1}}),
		}},
		{documents.CollMemberInfo, []mongo.IndexModel{
			index("idx_memberinfo_user", bson.D{{Key: "user_id", Value: 1}}),
		}},
		{documents.CollComments, []mongo.IndexModel{
			index("idx_comments_task", bson.D{{Key: "task_id", Value: 1}, {Key: "created_at", Value: 1}}),
		}},
		{documents.CollAudit, []mongo.IndexModel{
			index("idx_audit_team_time", bson.D{{Key: "team_id", Value: 1}, {Key: "timestamp", Value: -1}}),
			index("idx_audit_user_time", bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}}),
			index("idx_audit_category_type", bson.D{{Key: "category", Value: 1}, {Key: "event_type", Value: 1}, {Key: "timestamp", Value: -1}}),
		}},
		{documents.CollUsers, []mongo.IndexModel{
			index("idx_users_name_ci", bson.D{{Key: "name_ci", Value: 1}}),
		}},
	}

	var problems []string
	for _, s := range sets {
		if err := ensureIndexSet(ctx, db.Collection(s.coll), s.models, log); err != nil {
			problems = append(problems, s.coll+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func index(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name)}
}

type existingIndex struct {
	Name string `bson:"name"`
	Key  bson.D `bson:"key"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

// ensureIndexSet creates missing indexes and renames ones that exist with
// the same keys under another name.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel, log *zap.Logger) error {
	existing := map[string]existingIndex{} // key signature -> index
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return err
	}
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			log.Warn("failed to decode existing index", zap.String("collection", coll.Name()), zap.Error(err))
			continue
		}
		existing[keySig(idx.Key)] = idx
	}
	cur.Close(ctx)

	var errs []string
	for _, m := range models {
		name := *m.Options.Name
		sig := keySig(m.Keys.(bson.D))

		if ex, ok := existing[sig]; ok {
			if ex.Name == name {
				log.Debug("reusing existing index", zap.String("collection", coll.Name()), zap.String("name", name))
				continue
			}
			log.Info("renaming index",
				zap.String("collection", coll.Name()),
				zap.String("from", ex.Name),
				zap.String("to", name))
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s: rename drop failed: %v", name, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			errs = append(errs, fmt.Sprintf("%s(%s): %v", name, sig, err))
			continue
		}
		log.Info("index ensured", zap.String("collection", coll.Name()), zap.String("name", name), zap.String("keys", sig))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
