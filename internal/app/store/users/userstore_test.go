package userstore_test

import (
	"errors"
	"testing"

	userstore "github.com/showteam/teamhub/internal/app/store/users"
	"github.com/showteam/teamhub/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStore_InsertAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := testutil.NewMember("alice")
	if err := store.Insert(ctx, alice); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := store.Insert(ctx, alice); !errors.Is(err, userstore.ErrDuplicateUser) {
		t.Errorf("second Insert: err = %v, want ErrDuplicateUser", err)
	}

	got, err := store.GetByID(ctx, alice.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got != alice {
		t.Errorf("GetByID = %+v, want %+v", got, alice)
	}
	if _, err := store.GetByID(ctx, "missing"); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("GetByID(missing): err = %v, want ErrNoDocuments", err)
	}
}

func TestStore_ListSortsByFoldedName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, name := range []string{"zoe", "Ángel", "bob"} {
		if err := store.Insert(ctx, testutil.NewMember(name)); err != nil {
			t.Fatalf("Insert(%s): %v", name, err)
		}
	}

	got, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var names []string
	for _, m := range got {
		names = append(names, m.Name)
	}
	if len(names) != 3 || names[0] != "Ángel" || names[1] != "bob" || names[2] != "zoe" {
		t.Errorf("List order = %v", names)
	}
}
