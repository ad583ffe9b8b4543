// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"errors"

	"github.com/showteam/teamhub/internal/app/store/documents"
	"github.com/showteam/teamhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrDuplicateUser = errors.New("a user with this id already exists")

// Store reads member profiles. Profiles are owned by the sign-up flow; this
// service only inserts them for seeding and tests.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(documents.CollUsers)}
}

func (s *Store) Insert(ctx context.Context, m models.Member) error {
	_, err := s.c.InsertOne(ctx, documents.UserFromDomain(m))
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateUser
		}
		return err
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id string) (models.Member, error) {
	var u documents.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return models.Member{}, err
	}
	return u.Domain(), nil
}

// List returns every profile sorted by folded name.
func (s *Store) List(ctx context.Context) ([]models.Member, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Member
	for cur.Next(ctx) {
		var u documents.User
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		out = append(out, u.Domain())
	}
	return out, cur.Err()
}
