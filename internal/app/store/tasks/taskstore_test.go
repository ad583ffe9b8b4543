package taskstore_test

import (
	"errors"
	"testing"
	"time"

	"github.com/showteam/teamhub/internal/app/store/documents"
	taskstore "github.com/showteam/teamhub/internal/app/store/tasks"
	"github.com/showteam/teamhub/internal/domain/models"
	"github.com/showteam/teamhub/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
)

var at = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// newTaskDoc builds a task document the way the repository does, starting
// from a task whose lists were never set.
func newTaskDoc(teamID, creatorID string, delegates ...string) documents.Task {
	doc := documents.TaskFromDomain(models.Task{
		ID:      documents.NewID(),
		Title:   "Write the brief",
		Status:  models.StatusPending,
		Created: models.Created{Member: models.Member{ID: creatorID}, Timestamp: at},
	}, teamID)
	doc.Delegates = append(doc.Delegates, delegates...)
	return doc
}

func TestStore_ArrayUpdatesOnFreshTask(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := taskstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	doc := newTaskDoc("team1", "u1", "mi1", "mi2")
	if err := store.Insert(ctx, doc); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	file := documents.File{Name: "brief.pdf", ContentType: "application/pdf", Size: 42, UploadedBy: "u1", UploadedAt: at}
	if err := store.AddFile(ctx, doc.ID, file); err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	// $addToSet keeps the list a set.
	if err := store.AddFile(ctx, doc.ID, file); err != nil {
		t.Fatalf("AddFile again: %v", err)
	}
	if err := store.AddHistory(ctx, doc.ID, documents.History{Timestamp: at, Key: "task_created"}); err != nil {
		t.Fatalf("AddHistory: %v", err)
	}
	if err := store.DetachMember(ctx, doc.ID, "mi1", documents.History{Timestamp: at.Add(time.Minute), Key: "member_left"}); err != nil {
		t.Fatalf("DetachMember: %v", err)
	}

	got, err := store.GetByID(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(got.Files) != 1 || got.Files[0].Name != "brief.pdf" {
		t.Errorf("files = %+v, want one brief.pdf", got.Files)
	}
	if len(got.Delegates) != 1 || got.Delegates[0] != "mi2" {
		t.Errorf("delegates = %v, want [mi2]", got.Delegates)
	}
	if len(got.History) != 2 || got.History[0].Key != "task_created" || got.History[1].Key != "member_left" {
		t.Errorf("history = %+v", got.History)
	}

	if err := store.ReattachMember(ctx, doc.ID, "mi1", documents.History{Timestamp: at.Add(2 * time.Minute), Key: "member_restored"}); err != nil {
		t.Fatalf("ReattachMember: %v", err)
	}
	got, _ = store.GetByID(ctx, doc.ID)
	if len(got.Delegates) != 2 || len(got.History) != 3 {
		t.Errorf("after reattach: delegates=%v history=%d", got.Delegates, len(got.History))
	}
}

func TestStore_RemoveMatchesByValue(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := taskstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	doc := newTaskDoc("team1", "u1")
	if err := store.Insert(ctx, doc); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	keepFile := documents.File{Name: "keep.txt", ContentType: "text/plain", Size: 1, UploadedBy: "u1", UploadedAt: at}
	dropFile := documents.File{Name: "drop.txt", ContentType: "text/plain", Size: 2, UploadedBy: "u1", UploadedAt: at}
	keepLink := documents.Link{URL: "https://example.com/keep", Title: "keep", AddedBy: "u1", AddedAt: at}
	dropLink := documents.Link{URL: "https://example.com/drop", Title: "drop", AddedBy: "u1", AddedAt: at}
	for _, f := range []documents.File{keepFile, dropFile} {
		if err := store.AddFile(ctx, doc.ID, f); err != nil {
			t.Fatalf("AddFile: %v", err)
		}
	}
	for _, l := range []documents.Link{keepLink, dropLink} {
		if err := store.AddLink(ctx, doc.ID, l); err != nil {
			t.Fatalf("AddLink: %v", err)
		}
	}

	// A value that differs in one field matches nothing.
	near := dropFile
	near.Size = 3
	if err := store.RemoveFile(ctx, doc.ID, near); err != nil {
		t.Fatalf("RemoveFile(near): %v", err)
	}
	got, _ := store.GetByID(ctx, doc.ID)
	if len(got.Files) != 2 {
		t.Fatalf("files after near-miss = %d, want 2", len(got.Files))
	}

	if err := store.RemoveFile(ctx, doc.ID, dropFile); err != nil {
		t.Fatalf("RemoveFile: %v", err)
	}
	if err := store.RemoveLink(ctx, doc.ID, dropLink); err != nil {
		t.Fatalf("RemoveLink: %v", err)
	}
	got, _ = store.GetByID(ctx, doc.ID)
	if len(got.Files) != 1 || got.Files[0].Name != "keep.txt" {
		t.Errorf("files = %+v, want keep.txt only", got.Files)
	}
	if len(got.Links) != 1 || got.Links[0].URL != keepLink.URL {
		t.Errorf("links = %+v, want the keep link only", got.Links)
	}
}

func TestStore_UpdateMissingTask(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := taskstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := store.AddHistory(ctx, "missing", documents.History{Timestamp: at, Key: "task_edited"})
	if !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("AddHistory on a missing task: err = %v, want ErrNoDocuments", err)
	}
}

func TestStore_CountsDoNotDeduplicate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := taskstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// u1 created own and both, and is delegated to each through mi1 or
	// mi9. A task listing both of u1's records still counts once per query.
	own := newTaskDoc("team1", "u1", "mi1")
	both := newTaskDoc("team1", "u1", "mi1", "mi9")
	both.Status = string(models.StatusDone)
	other := newTaskDoc("team1", "u2", "mi2")
	for _, d := range []documents.Task{own, both, other} {
		if err := store.Insert(ctx, d); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	created, err := store.CountCreatedBy(ctx, "u1", "")
	if err != nil {
		t.Fatalf("CountCreatedBy: %v", err)
	}
	delegated, err := store.CountDelegatedTo(ctx, []string{"mi1", "mi9"}, "")
	if err != nil {
		t.Fatalf("CountDelegatedTo: %v", err)
	}
	if created != 2 || delegated != 2 {
		t.Errorf("created=%d delegated=%d, want 2 and 2", created, delegated)
	}
	if created+delegated != 4 {
		t.Errorf("summed count = %d, want 4 for two tasks", created+delegated)
	}

	done, _ := store.CountCreatedBy(ctx, "u1", string(models.StatusDone))
	doneDelegated, _ := store.CountDelegatedTo(ctx, []string{"mi1", "mi9"}, string(models.StatusDone))
	if done != 1 || doneDelegated != 1 {
		t.Errorf("done: created=%d delegated=%d, want 1 and 1", done, doneDelegated)
	}

	if n, err := store.CountDelegatedTo(ctx, nil, ""); err != nil || n != 0 {
		t.Errorf("CountDelegatedTo(nil) = %d, %v; want 0, nil", n, err)
	}
}

func TestStore_ListByTeamInCreationOrder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := taskstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	later := newTaskDoc("team1", "u1")
	later.Created.Timestamp = at.Add(time.Hour)
	earlier := newTaskDoc("team1", "u1")
	elsewhere := newTaskDoc("team2", "u1")
	for _, d := range []documents.Task{later, earlier, elsewhere} {
		if err := store.Insert(ctx, d); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	got, err := store.ListByTeam(ctx, "team1")
	if err != nil {
		t.Fatalf("ListByTeam: %v", err)
	}
	if len(got) != 2 || got[0].ID != earlier.ID || got[1].ID != later.ID {
		t.Errorf("ListByTeam order = %v", ids(got))
	}
}

func ids(tasks []documents.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}
