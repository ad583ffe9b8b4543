// internal/app/store/comments/commentstore.go
package commentstore

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
	return &Store{c: db.Collection(documents.CollComments)}
}

func (s *Store) Insert(ctx context.Context, c documents.Comment) error {
	_, err := s.c.InsertOne(ctx, c)
	return err
}

func (s *Store) GetByID(ctx context.Context, id string) (documents.Comment, error) {
	var c documents.Comment
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return documents.Comment{}, err
	}
	return c, nil
}

// ListByTask returns a task's comments, oldest first.
func (s *Store) ListByTask(ctx context.Context, taskID string) ([]documents.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"task_id": taskID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []documents.Comment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a comment. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id string) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
