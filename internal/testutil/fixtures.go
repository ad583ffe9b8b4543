package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/showteam/teamhub/internal/app/store/documents"
	"github.com/showteam/teamhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// DefaultTestMongoURI is used when TEAMHUB_TEST_MONGO_URI is not set.
const DefaultTestMongoURI = "mongodb://localhost:27017"

// TestContext returns a context suitable for one test's database calls.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// SetupTestDB connects to the test MongoDB and returns a fresh, uniquely
// named database that is dropped when the test finishes. The test is
// skipped when no server is reachable.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv("TEAMHUB_TEST_MONGO_URI")
	if uri == "" {
		uri = DefaultTestMongoURI
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(2*time.Second))
	if err != nil {
		t.Skipf("mongo not available: %v", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		t.Skipf("mongo not reachable at %s: %v", uri, err)
	}

	db := client.Database("teamhub_test_" + primitive.NewObjectID().Hex())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db
}

// Fixtures provides helper methods for creating test data in MongoDB.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts a member profile and returns it.
func (f *Fixtures) CreateUser(ctx context.Context, name string) models.Member {
	f.t.Helper()

	m := NewMember(name)
	if _, err := f.db.Collection(documents.CollUsers).InsertOne(ctx, documents.UserFromDomain(m)); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return m
}

// CreateMemberInfo inserts a member record for the user with the given role.
func (f *Fixtures) CreateMemberInfo(ctx context.Context, user models.Member, role models.Role) models.MemberInfoTeam {
	f.t.Helper()

	mi := models.MemberInfoTeam{
		ID:            documents.NewID(),
		Profile:       user,
		Role:          role,
		Participation: models.ParticipationFullTime,
	}
	if _, err := f.db.Collection(documents.CollMemberInfo).InsertOne(ctx, documents.MemberInfoFromDomain(mi)); err != nil {
		f.t.Fatalf("failed to create test member info: %v", err)
	}
	return mi
}

// CreateTeam inserts a team with the given member records.
func (f *Fixtures) CreateTeam(ctx context.Context, name string, creator models.Member, members ...models.MemberInfoTeam) models.Team {
	f.t.Helper()

	team := models.Team{
		ID:       documents.NewID(),
		Name:     name,
		Members:  members,
		Created:  models.Created{Member: creator, Timestamp: time.Now().UTC().Truncate(time.Millisecond)},
		Requests: []models.Member{},
	}
	if _, err := f.db.Collection(documents.CollTeams).InsertOne(ctx, documents.TeamFromDomain(team)); err != nil {
		f.t.Fatalf("failed to create test team: %v", err)
	}
	return team
}

// CreateTask inserts a task in the team.
func (f *Fixtures) CreateTask(ctx context.Context, teamID string, task models.Task) models.Task {
	f.t.Helper()

	if task.ID == "" {
		task.ID = documents.NewID()
	}
	if _, err := f.db.Collection(documents.CollTasks).InsertOne(ctx, documents.TaskFromDomain(task, teamID)); err != nil {
		f.t.Fatalf("failed to create test task: %v", err)
	}
	return task
}

// NewMember returns an unsaved member profile with a fresh id.
func NewMember(name string) models.Member {
	return models.Member{
		ID:       documents.NewID(),
		Name:     name,
		Surname:  "Tester",
		Nickname: name,
		Email:    name + "@example.com",
	}
}

// NewTask returns an unsaved pending task created by the member.
func NewTask(title string, creator models.Member) models.Task {
	now := time.Now().UTC().Truncate(time.Millisecond)
	t := models.NewEmptyTask(creator, now)
	t.Title = title
	return t
}
