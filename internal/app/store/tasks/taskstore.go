// internal/app/store/tasks/taskstore.go
package taskstore

import (
	"context"

	"github.com/showteam/teamhub/internal/app/store/documents"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(documents.CollTasks)}
}

func (s *Store) Insert(ctx context.Context, t documents.Task) error {
	_, err := s.c.InsertOne(ctx, t)
	return err
}

func (s *Store) GetByID(ctx context.Context, id string) (documents.Task, error) {
	var t documents.Task
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return documents.Task{}, err
	}
	return t, nil
}

// ListByTeam returns every task of a team in creation order.
func (s *Store) ListByTeam(ctx context.Context, teamID string) ([]documents.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created.timestamp", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"team_id": teamID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []documents.Task
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Replace overwrites the whole document, creating it if missing.
func (s *Store) Replace(ctx context.Context, t documents.Task) error {
	_, err := s.c.ReplaceOne(ctx, bson.M{"_id": t.ID}, t, options.Replace().SetUpsert(true))
	return err
}

func (s *Store) SetStatus(ctx context.Context, id, status string) error {
	return s.update(ctx, id, bson.M{"$set": bson.M{"status": status}})
}

func (s *Store) AddComment(ctx context.Context, id, commentID string) error {
	return s.addToSet(ctx, id, documents.FieldTaskComments, commentID)
}

func (s *Store) AddFile(ctx context.Context, id string, f documents.File) error {
	return s.addToSet(ctx, id, documents.FieldTaskFiles, f)
}

func (s *Store) AddLink(ctx context.Context, id string, l documents.Link) error {
	return s.addToSet(ctx, id, documents.FieldTaskLinks, l)
}

func (s *Store) AddHistory(ctx context.Context, id string, h documents.History) error {
	return s.addToSet(ctx, id, documents.FieldTaskHistory, h)
}

func (s *Store) RemoveFile(ctx context.Context, id string, f documents.File) error {
	return s.pull(ctx, id, documents.FieldTaskFiles, f)
}

func (s *Store) RemoveLink(ctx context.Context, id string, l documents.Link) error {
	return s.pull(ctx, id, documents.FieldTaskLinks, l)
}

// DetachMember removes a member record from the delegate list and appends
// a history line in one update.
func (s *Store) DetachMember(ctx context.Context, id, memberInfoID string, h documents.History) error {
	return s.update(ctx, id, bson.M{
		"$pull": bson.M{documents.FieldTaskDelegates: memberInfoID},
		"$push": bson.M{documents.FieldTaskHistory: h},
	})
}

// ReattachMember puts a member record back on the delegate list and
// appends a history line.
func (s *Store) ReattachMember(ctx context.Context, id, memberInfoID string, h documents.History) error {
	return s.update(ctx, id, bson.M{
		"$addToSet": bson.M{documents.FieldTaskDelegates: memberInfoID},
		"$push":     bson.M{documents.FieldTaskHistory: h},
	})
}

// Delete removes a task. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id string) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// CountCreatedBy counts tasks created by the user with the given status.
// An empty status counts every task.
func (s *Store) CountCreatedBy(ctx context.Context, userID, status string) (int64, error) {
	filter := bson.M{"created.member": userID}
	if status != "" {
		filter["status"] = status
	}
	return s.c.CountDocuments(ctx, filter)
}

// CountDelegatedTo counts tasks whose delegate list contains any of the
// member records, with the given status. An empty status counts every task.
func (s *Store) CountDelegatedTo(ctx context.Context, memberInfoIDs []string, status string) (int64, error) {
	if len(memberInfoIDs) == 0 {
		return 0, nil
	}
	filter := bson.M{documents.FieldTaskDelegates: bson.M{"$in": memberInfoIDs}}
	if status != "" {
		filter["status"] = status
	}
	return s.c.CountDocuments(ctx, filter)
}

func (s *Store) addToSet(ctx context.Context, id, field string, v any) error {
	return s.update(ctx, id, bson.M{"$addToSet": bson.M{field: v}})
}

func (s *Store) pull(ctx context.Context, id, field string, v any) error {
	return s.update(ctx, id, bson.M{"$pull": bson.M{field: v}})
}

func (s *Store) update(ctx context.Context, id string, upd bson.M) error {
	res, err := s.c.UpdateByID(ctx, id, upd)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
