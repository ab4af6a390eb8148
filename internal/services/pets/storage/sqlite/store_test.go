package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/pawtrail/pawtrail/internal/services/pets/storage"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "pets.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func createPet(t *testing.T, store *Store, pet storage.Pet) storage.Pet {
	t.Helper()
	created, err := store.CreatePet(context.Background(), pet)
	if err != nil {
		t.Fatalf("create pet: %v", err)
	}
	return created
}

func TestCreateAndGetPet(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	age := 3
	lost := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)

	created := createPet(t, store, storage.Pet{
		OwnerID:             1,
		Name:                "  Rex  ",
		Species:             "dog",
		Breed:               "husky",
		Age:                 &age,
		Color:               "grey",
		Gender:              "male",
		DistinctiveFeatures: "torn left ear",
		Status:              storage.StatusLost,
		LastSeenLocation:    "Volunteer Park",
		CoordX:              "47.6301",
		CoordY:              "-122.3150",
		LostDate:            &lost,
	})
	if created.ID == 0 {
		t.Fatal("created pet has no id")
	}
	if created.Name != "Rex" {
		t.Fatalf("name = %q, want trimmed", created.Name)
	}

	got, err := store.GetPet(ctx, created.ID)
	if err != nil {
		t.Fatalf("get pet: %v", err)
	}
	if got.Status != storage.StatusLost || got.Breed != "husky" {
		t.Fatalf("got = %+v", got)
	}
	if got.Age == nil || *got.Age != 3 {
		t.Fatalf("age = %v, want 3", got.Age)
	}
	if got.LostDate == nil || !got.LostDate.Equal(lost) {
		t.Fatalf("lost date = %v, want %v", got.LostDate, lost)
	}
}

func TestCreatePetDefaultsToHome(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	created := createPet(t, store, storage.Pet{OwnerID: 1, Name: "Maple"})
	if created.Status != storage.StatusHome {
		t.Fatalf("status = %q, want %q", created.Status, storage.StatusHome)
	}
	if created.Age != nil || created.LostDate != nil {
		t.Fatalf("optional fields not null: %+v", created)
	}
}

func TestCreatePetValidation(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	if _, err := store.CreatePet(ctx, storage.Pet{OwnerID: 1, Name: "   "}); err == nil {
		t.Fatal("blank name accepted")
	}
	if _, err := store.CreatePet(ctx, storage.Pet{Name: "Rex"}); err == nil {
		t.Fatal("missing owner accepted")
	}
	if _, err := store.CreatePet(ctx, storage.Pet{OwnerID: 1, Name: "Rex", Status: "wandering"}); err == nil {
		t.Fatal("invalid status accepted")
	}
}

func TestUpdatePet(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	created := createPet(t, store, storage.Pet{OwnerID: 1, Name: "Rex", Status: storage.StatusHome})

	created.Status = storage.StatusLost
	created.LastSeenLocation = "Pike Place"
	updated, err := store.UpdatePet(ctx, created)
	if err != nil {
		t.Fatalf("update pet: %v", err)
	}
	if updated.Status != storage.StatusLost || updated.LastSeenLocation != "Pike Place" {
		t.Fatalf("updated = %+v", updated)
	}

	missing := created
	missing.ID = created.ID + 999
	if _, err := store.UpdatePet(ctx, missing); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("update missing pet = %v, want ErrNotFound", err)
	}
}

func TestListPetsFilters(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	createPet(t, store, storage.Pet{OwnerID: 1, Name: "Rex", Species: "dog", Status: storage.StatusLost})
	createPet(t, store, storage.Pet{OwnerID: 1, Name: "Maple", Species: "cat", Status: storage.StatusHome})
	createPet(t, store, storage.Pet{OwnerID: 2, Name: "Biscuit", Species: "dog", Status: storage.StatusFound})

	lost, err := store.ListPets(ctx, storage.ListFilter{Status: storage.StatusLost})
	if err != nil {
		t.Fatalf("list lost: %v", err)
	}
	if len(lost) != 1 || lost[0].Name != "Rex" {
		t.Fatalf("lost = %+v", lost)
	}

	dogs, err := store.ListPets(ctx, storage.ListFilter{Species: "dog"})
	if err != nil {
		t.Fatalf("list dogs: %v", err)
	}
	if len(dogs) != 2 {
		t.Fatalf("dogs = %+v", dogs)
	}

	mine, err := store.ListPets(ctx, storage.ListFilter{OwnerID: 1})
	if err != nil {
		t.Fatalf("list by owner: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("owner pets = %+v", mine)
	}
}

func TestListPetsPagination(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		createPet(t, store, storage.Pet{OwnerID: 1, Name: "Pet", CreatedAt: base.Add(time.Duration(i) * time.Hour)})
	}

	page, err := store.ListPets(ctx, storage.ListFilter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("list page: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("page size = %d, want 2", len(page))
	}
	// Newest first; offset 2 skips the two most recent.
	if !page[0].CreatedAt.Equal(base.Add(2 * time.Hour)) {
		t.Fatalf("page start = %v", page[0].CreatedAt)
	}
}

func TestPhotoLifecycle(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	pet := createPet(t, store, storage.Pet{OwnerID: 1, Name: "Rex"})

	first, err := store.AddPhoto(ctx, storage.Photo{PetID: pet.ID, PhotoURL: "https://cdn.example.com/a.jpg", IsPrimary: true})
	if err != nil {
		t.Fatalf("add photo: %v", err)
	}
	if !first.IsPrimary {
		t.Fatal("first photo is not primary")
	}

	second, err := store.AddPhoto(ctx, storage.Photo{PetID: pet.ID, PhotoURL: "https://cdn.example.com/b.jpg", IsPrimary: true})
	if err != nil {
		t.Fatalf("add second photo: %v", err)
	}
	if !second.IsPrimary {
		t.Fatal("second photo is not primary")
	}

	photos, err := store.ListPhotos(ctx, pet.ID)
	if err != nil {
		t.Fatalf("list photos: %v", err)
	}
	if len(photos) != 2 {
		t.Fatalf("photos = %+v", photos)
	}
	if photos[0].ID != second.ID {
		t.Fatal("primary photo not listed first")
	}
	// The earlier primary was demoted.
	demoted, err := store.GetPhoto(ctx, first.ID)
	if err != nil {
		t.Fatalf("get photo: %v", err)
	}
	if demoted.IsPrimary {
		t.Fatal("previous primary photo was not demoted")
	}

	if err := store.DeletePhoto(ctx, first.ID); err != nil {
		t.Fatalf("delete photo: %v", err)
	}
	if err := store.DeletePhoto(ctx, first.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("delete missing photo = %v, want ErrNotFound", err)
	}
}

func TestDeletePetCascades(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	found := createPet(t, store, storage.Pet{OwnerID: 1, Name: "Stray", Status: storage.StatusFound})
	lost := createPet(t, store, storage.Pet{OwnerID: 2, Name: "Rex", Status: storage.StatusLost})

	if _, err := store.AddPhoto(ctx, storage.Photo{PetID: found.ID, PhotoURL: "https://cdn.example.com/a.jpg"}); err != nil {
		t.Fatalf("add photo: %v", err)
	}
	if _, err := store.UpsertMatch(ctx, storage.Match{FoundPetID: found.ID, LostPetID: lost.ID, SimilarityScore: 0.9}); err != nil {
		t.Fatalf("upsert match: %v", err)
	}

	if err := store.DeletePet(ctx, found.ID); err != nil {
		t.Fatalf("delete pet: %v", err)
	}
	if _, err := store.GetPet(ctx, found.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get deleted pet = %v, want ErrNotFound", err)
	}
	photos, err := store.ListPhotos(ctx, found.ID)
	if err != nil {
		t.Fatalf("list photos: %v", err)
	}
	if len(photos) != 0 {
		t.Fatalf("photos survived pet delete: %+v", photos)
	}
	matches, err := store.ListMatchesForPet(ctx, lost.ID)
	if err != nil {
		t.Fatalf("list matches: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("matches survived pet delete: %+v", matches)
	}
}

func TestUpsertMatchReplacesScore(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	found := createPet(t, store, storage.Pet{OwnerID: 1, Name: "Stray", Status: storage.StatusFound})
	lost := createPet(t, store, storage.Pet{OwnerID: 2, Name: "Rex", Status: storage.StatusLost})

	first, err := store.UpsertMatch(ctx, storage.Match{FoundPetID: found.ID, LostPetID: lost.ID, SimilarityScore: 0.72})
	if err != nil {
		t.Fatalf("upsert match: %v", err)
	}
	second, err := store.UpsertMatch(ctx, storage.Match{FoundPetID: found.ID, LostPetID: lost.ID, SimilarityScore: 0.91})
	if err != nil {
		t.Fatalf("upsert match again: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("upsert created a second row: %d vs %d", second.ID, first.ID)
	}
	if second.SimilarityScore != 0.91 {
		t.Fatalf("score = %v, want 0.91", second.SimilarityScore)
	}
}

func TestListMatchesForPetOrdersByScore(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	lost := createPet(t, store, storage.Pet{OwnerID: 1, Name: "Rex", Status: storage.StatusLost})
	foundA := createPet(t, store, storage.Pet{OwnerID: 2, Name: "StrayA", Status: storage.StatusFound})
	foundB := createPet(t, store, storage.Pet{OwnerID: 3, Name: "StrayB", Status: storage.StatusFound})

	if _, err := store.UpsertMatch(ctx, storage.Match{FoundPetID: foundA.ID, LostPetID: lost.ID, SimilarityScore: 0.6}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := store.UpsertMatch(ctx, storage.Match{FoundPetID: foundB.ID, LostPetID: lost.ID, SimilarityScore: 0.95}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	matches, err := store.ListMatchesForPet(ctx, lost.ID)
	if err != nil {
		t.Fatalf("list matches: %v", err)
	}
	if len(matches) != 2 || matches[0].FoundPetID != foundB.ID {
		t.Fatalf("matches = %+v, want best score first", matches)
	}
}
