package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/showteam/teamhub/internal/app/store/documents"
	"github.com/showteam/teamhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestArrayUpdatesRejectNullLists(t *testing.T) {
	db := New()
	ctx := context.Background()
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	// A document written with null lists, as an older writer could leave it.
	db.data.tasks["legacy"] = documents.Task{ID: "legacy", TeamID: "team1"}
	db.data.tasks["fresh"] = documents.TaskFromDomain(models.Task{ID: "fresh"}, "team1")
	db.data.teams["team1"] = documents.Team{ID: "team1"}

	tasks := db.Tasks()
	file := documents.File{Name: "brief.pdf", UploadedAt: at}
	hist := documents.History{Timestamp: at, Key: "task_edited"}

	calls := map[string]func(id string) error{
		"AddFile":      func(id string) error { return tasks.AddFile(ctx, id, file) },
		"RemoveLink":   func(id string) error { return tasks.RemoveLink(ctx, id, documents.Link{URL: "https://example.com"}) },
		"AddHistory":   func(id string) error { return tasks.AddHistory(ctx, id, hist) },
		"DetachMember": func(id string) error { return tasks.DetachMember(ctx, id, "mi1", hist) },
	}
	for name, call := range calls {
		var we mongo.WriteException
		if err := call("legacy"); !errors.As(err, &we) {
			t.Errorf("%s on null lists: err = %v, want a write exception", name, err)
		}
		if err := call("fresh"); err != nil {
			t.Errorf("%s on empty lists: %v", name, err)
		}
	}
	if doc := db.data.tasks["legacy"]; doc.Files != nil || doc.History != nil {
		t.Errorf("failed updates changed the document: %+v", doc)
	}

	var we mongo.WriteException
	if err := db.Teams().AddRequest(ctx, "team1", "u2"); !errors.As(err, &we) {
		t.Errorf("AddRequest on a null list: err = %v, want a write exception", err)
	}
}
