// internal/app/store/teams/teamstore.go
package teamstore

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
	return &Store{c: db.Collection(documents.CollTeams)}
}

func (s *Store) Insert(ctx context.Context, t documents.Team) error {
	_, err := s.c.InsertOne(ctx, t)
	return err
}

func (s *Store) GetByID(ctx context.Context, id string) (documents.Team, error) {
	var t documents.Team
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return documents.Team{}, err
	}
	return t, nil
}

// List returns every team sorted by folded name.
func (s *Store) List(ctx context.Context) ([]documents.Team, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []documents.Team
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Replace overwrites the whole document, creating it if missing.
func (s *Store) Replace(ctx context.Context, t documents.Team) error {
	_, err := s.c.ReplaceOne(ctx, bson.M{"_id": t.ID}, t, options.Replace().SetUpsert(true))
	return err
}

// Delete removes a team. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id string) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// AddRequest adds the user to the team's join requests (set semantics).
func (s *Store) AddRequest(ctx context.Context, teamID, userID string) error {
	res, err := s.c.UpdateByID(ctx, teamID, bson.M{"$addToSet": bson.M{documents.FieldTeamRequests: userID}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// RemoveRequest drops the user from the team's join requests.
func (s *Store) RemoveRequest(ctx context.Context, teamID, userID string) error {
	res, err := s.c.UpdateByID(ctx, teamID, bson.M{"$pull": bson.M{documents.FieldTeamRequests: userID}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Watch opens a change stream over the teams collection. Any insert,
// update, replace or delete produces one event.
func (s *Store) Watch(ctx context.Context) (documents.ChangeFeed, error) {
	cs, err := s.c.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return nil, err
	}
	return cs, nil
}
