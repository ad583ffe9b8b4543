// internal/app/store/memberinfo/memberinfostore.go
package memberinfostore

import (
	"context"

	"github.com/showteam/teamhub/internal/app/store/documents"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store manages memberInfoTeam documents. A member record belongs to one
// team; the team lists its records by id.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(documents.CollMemberInfo)}
}

func (s *Store) Insert(ctx context.Context, mi documents.MemberInfo) error {
	_, err := s.c.InsertOne(ctx, mi)
	return err
}

// GetByIDs returns the member records with the given ids. Missing ids are
// silently absent from the result.
func (s *Store) GetByIDs(ctx context.Context, ids []string) ([]documents.MemberInfo, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []documents.MemberInfo
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// IDsByUser returns the ids of every member record of the user, across teams.
func (s *Store) IDsByUser(ctx context.Context, userID string) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var ids []string
	for cur.Next(ctx) {
		var row struct {
			ID string `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		ids = append(ids, row.ID)
	}
	return ids, cur.Err()
}

// Delete removes a member record. Returns the number of documents deleted.
func (s *Store) Delete(ctx context.Context, id string) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *Store) SetRole(ctx context.Context, id, role string) error {
	return s.set(ctx, id, "role", role)
}

func (s *Store) SetParticipation(ctx context.Context, id, participation string) error {
	return s.set(ctx, id, "participation", participation)
}

func (s *Store) set(ctx context.Context, id, field, value string) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{field: value}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
