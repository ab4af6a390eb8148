// Package storage defines persistence contracts for pet records, their
// photos, and similarity matches.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// Status is the lifecycle state of a pet record.
type Status string

const (
	StatusLost  Status = "lost"
	StatusFound Status = "found"
	StatusHome  Status = "home"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusLost, StatusFound, StatusHome:
		return true
	}
	return false
}

// Pet stores one pet record. Coordinates are kept as opaque strings;
// clients send them in whatever datum their map provider uses.
type Pet struct {
	ID                  int64
	OwnerID             int64
	Name                string
	Species             string
	Breed               string
	Age                 *int
	Color               string
	Gender              string
	DistinctiveFeatures string
	Status              Status
	LastSeenLocation    string
	CoordX              string
	CoordY              string
	LostDate            *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Photo stores one uploaded pet photo reference.
type Photo struct {
	ID        int64
	PetID     int64
	PhotoURL  string
	IsPrimary bool
	CreatedAt time.Time
}

// Match stores one scored pairing of a found pet against a lost pet.
type Match struct {
	ID              int64
	FoundPetID      int64
	LostPetID       int64
	SimilarityScore float64
	CreatedAt       time.Time
}

// ListFilter narrows pet listings. Zero values mean no constraint.
type ListFilter struct {
	Status  Status
	OwnerID int64
	Species string
	Offset  int
	Limit   int
}

// PetStore persists pet records.
type PetStore interface {
	CreatePet(ctx context.Context, pet Pet) (Pet, error)
	GetPet(ctx context.Context, id int64) (Pet, error)
	// UpdatePet overwrites the mutable fields of an existing record.
	UpdatePet(ctx context.Context, pet Pet) (Pet, error)
	// ListPets returns pets newest-first, narrowed by filter.
	ListPets(ctx context.Context, filter ListFilter) ([]Pet, error)
	DeletePet(ctx context.Context, id int64) error
}

// PhotoStore persists pet photo references.
type PhotoStore interface {
	// AddPhoto stores a photo reference. A primary photo demotes any
	// existing primary for the same pet.
	AddPhoto(ctx context.Context, photo Photo) (Photo, error)
	ListPhotos(ctx context.Context, petID int64) ([]Photo, error)
	GetPhoto(ctx context.Context, id int64) (Photo, error)
	DeletePhoto(ctx context.Context, id int64) error
}

// MatchStore persists similarity matches.
type MatchStore interface {
	// UpsertMatch records a score for the pair, replacing a previous
	// score for the same found/lost pairing.
	UpsertMatch(ctx context.Context, match Match) (Match, error)
	GetMatch(ctx context.Context, id int64) (Match, error)
	// ListMatchesForPet returns matches touching the pet from either
	// side, best score first.
	ListMatchesForPet(ctx context.Context, petID int64) ([]Match, error)
	DeleteMatchesForPet(ctx context.Context, petID int64) error
}
