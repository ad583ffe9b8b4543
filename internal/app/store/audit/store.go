// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"github.com/showteam/teamhub/internal/app/store/documents"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryAuth = "auth"
	CategoryTeam = "team"
)

// Auth event types
const (
	EventSignedIn     = "signed_in"
	EventSignInFailed = "sign_in_failed"
	EventSignedOut    = "signed_out"
)

// Team event types
const (
	EventTeamCreated          = "team_created"
	EventTeamUpdated          = "team_updated"
	EventTeamDeleted          = "team_deleted"
	EventJoinRequested        = "join_requested"
	EventRequestAccepted      = "join_request_accepted"
	EventRequestDeleted       = "join_request_deleted"
	EventRoleChanged          = "role_changed"
	EventParticipationChanged = "participation_changed"
	EventMemberRemoved        = "member_removed"
	EventMemberLeft           = "member_left"
)

// DefaultLimit caps a query that names no limit.
const DefaultLimit = 100

// Event is one audit record.
type Event struct {
	ID        string    `bson:"_id" json:"id"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	TeamID    string    `bson:"team_id,omitempty" json:"team_id,omitempty"`

	Category  string `bson:"category" json:"category"`
	EventType string `bson:"event_type" json:"event_type"`

	UserID  string `bson:"user_id,omitempty" json:"user_id,omitempty"`   // affected member
	ActorID string `bson:"actor_id,omitempty" json:"actor_id,omitempty"` // who acted

	IP        string `bson:"ip" json:"-"`
	UserAgent string `bson:"user_agent,omitempty" json:"-"`

	Success       bool   `bson:"success" json:"success"`
	FailureReason string `bson:"failure_reason,omitempty" json:"failure_reason,omitempty"`

	Details map[string]string `bson:"details,omitempty" json:"details,omitempty"`
}

// QueryFilter selects events. Zero fields match everything.
type QueryFilter struct {
	TeamID    string
	UserID    string
	Category  string
	EventType string
	Since     *time.Time
	Until     *time.Time
	Limit     int64
	Offset    int64
}

// Matches reports whether e passes the filter's field and time criteria.
// Limit and Offset are ignored.
func (f QueryFilter) Matches(e Event) bool {
	switch {
	case f.TeamID != "" && e.TeamID != f.TeamID,
		f.UserID != "" && e.UserID != f.UserID,
		f.Category != "" && e.Category != f.Category,
		f.EventType != "" && e.EventType != f.EventType,
		f.Since != nil && e.Timestamp.Before(*f.Since),
		f.Until != nil && e.Timestamp.After(*f.Until):
		return false
	}
	return true
}

func (f QueryFilter) doc() bson.M {
	q := bson.M{}
	if f.TeamID != "" {
		q["team_id"] = f.TeamID
	}
	if f.UserID != "" {
		q["user_id"] = f.UserID
	}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.EventType != "" {
		q["event_type"] = f.EventType
	}
	if f.Since != nil || f.Until != nil {
		ts := bson.M{}
		if f.Since != nil {
			ts["$gte"] = *f.Since
		}
		if f.Until != nil {
			ts["$lte"] = *f.Until
		}
		q["timestamp"] = ts
	}
	return q
}

// Store is the auditEvents collection.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(documents.CollAudit)}
}

// Log inserts an event, filling in a missing id or timestamp.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = documents.NewID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

// Query returns matching events, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit).
		SetSkip(filter.Offset)

	cur, err := s.c.Find(ctx, filter.doc(), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	events := []Event{}
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Count returns how many events match, ignoring Limit and Offset.
func (s *Store) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	return s.c.CountDocuments(ctx, filter.doc())
}
