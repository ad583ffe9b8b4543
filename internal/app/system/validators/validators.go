// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/showteam/teamhub/internal/app/store/documents"
	"github.com/showteam/teamhub/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates the collections (if missing) and attaches JSON-Schema
// validators. Servers without collMod/validator support are logged and
// skipped.
func EnsureAll(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll, log); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema, log); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				log.Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure(documents.CollUsers, usersSchema())
	ensure(documents.CollTeams, teamsSchema())
	ensure(documents.CollMemberInfo, memberInfoSchema())
	ensure(documents.CollTasks, tasksSchema())
	ensure(documents.CollComments, commentsSchema())

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// ensureCollection reports created==true only when it made the collection.
func ensureCollection(ctx context.Context, db *mongo.Database, name string, log *zap.Logger) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		log.Debug("collection exists", zap.String("collection", name))
		return false, nil
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		if isNamespaceExistsErr(err) {
			log.Debug("collection exists", zap.String("collection", name))
			return false, nil
		}
		log.Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	log.Info("created collection", zap.String("collection", name))
	return true, nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *zap.Logger) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	log.Debug("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func commandErrorMatches(err error, code int32, phrases ...string) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		if ce.Code == code {
			return true
		}
		msg := strings.ToLower(ce.Message)
		for _, p := range phrases {
			if strings.Contains(msg, p) {
				return true
			}
		}
	}
	s := strings.ToLower(err.Error())
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func isNamespaceExistsErr(err error) bool {
	return commandErrorMatches(err, 48, "already exists", "namespace exists")
}

func isNoSuchCommand(err error) bool {
	return commandErrorMatches(err, 59, "no such command")
}

func isNotImplemented(err error) bool {
	return commandErrorMatches(err, 115, "not implemented", "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func enum[T ~string](values ...T) bson.M {
	a := bson.A{}
	for _, v := range values {
		a = append(a, string(v))
	}
	return bson.M{"enum": a}
}

func created() bson.M {
	return bson.M{
		"bsonType": "object",
		"required": bson.A{"member", "timestamp"},
		"properties": bson.M{
			"member":    bson.M{"bsonType": "string"},
			"timestamp": bson.M{"bsonType": "date"},
		},
	}
}

func stringArray() bson.M {
	return bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}}
}

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name"},
			"properties": bson.M{
				"name":     bson.M{"bsonType": "string"},
				"surname":  bson.M{"bsonType": "string"},
				"nickname": bson.M{"bsonType": "string"},
				"email":    bson.M{"bsonType": "string"},
				"location": bson.M{"bsonType": "string"},
				"name_ci":  bson.M{"bsonType": "string"},
			},
		},
	}
}

func teamsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "members_list", "created"},
			"properties": bson.M{
				"name":          nonBlank,
				"name_ci":       bson.M{"bsonType": "string"},
				"picture_key":   bson.M{"bsonType": "string"},
				"members_list":  stringArray(),
				"requests_list": stringArray(),
				"category":      bson.M{"bsonType": bson.A{"int", "long"}},
				"created":       created(),
				"description":   bson.M{"bsonType": "string"},
			},
		},
	}
}

func memberInfoSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"user_id", "role", "participation"},
			"properties": bson.M{
				"user_id": nonBlank,
				"role": enum(models.RoleExecutiveLeader, models.RoleLeader,
					models.RoleSeniorMember, models.RoleMember, models.RoleJuniorMember),
				"participation": enum(models.ParticipationFullTime, models.ParticipationPartTime,
					models.ParticipationOccasional),
			},
		},
	}
}

func tasksSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"team_id", "title", "status", "created"},
			"properties": bson.M{
				"team_id":       nonBlank,
				"group_id":      bson.M{"bsonType": "string"},
				"title":         bson.M{"bsonType": "string"},
				"status":        enum(models.Statuses...),
				"start_at":      bson.M{"bsonType": "date"},
				"due_at":        bson.M{"bsonType": "date"},
				"repeat":        enum(models.RepeatNone, models.RepeatDaily, models.RepeatWeekly, models.RepeatMonthly),
				"category":      bson.M{"bsonType": "string"},
				"tags":          stringArray(),
				"file_list":     bson.M{"bsonType": "array"},
				"link_list":     bson.M{"bsonType": "array"},
				"comment_list":  stringArray(),
				"delegate_list": stringArray(),
				"history_list":  bson.M{"bsonType": "array"},
				"created":       created(),
			},
		},
	}
}

func commentsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"task_id", "author_id", "body", "created_at"},
			"properties": bson.M{
				"task_id":    nonBlank,
				"author_id":  nonBlank,
				"body":       bson.M{"bsonType": "string"},
				"created_at": bson.M{"bsonType": "date"},
			},
		},
	}
}
