// Package app implements the pet registry: records, photo uploads, and
// similarity matching.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/pawtrail/pawtrail/internal/platform/errors"
	"github.com/pawtrail/pawtrail/internal/services/pets/match"
	"github.com/pawtrail/pawtrail/internal/services/pets/photo"
	"github.com/pawtrail/pawtrail/internal/services/pets/storage"
)

// Config carries the dependencies for the pets service. Uploads and
// Matcher are optional; without them photo uploads and matching report
// a configuration error instead of panicking.
type Config struct {
	Pets    storage.PetStore
	Photos  storage.PhotoStore
	Matches storage.MatchStore
	Uploads *photo.Processor
	Matcher *match.Matcher
}

// Service owns pet records and their derived state.
type Service struct {
	pets    storage.PetStore
	photos  storage.PhotoStore
	matches storage.MatchStore
	uploads *photo.Processor
	matcher *match.Matcher
}

// PetInput is the caller-supplied portion of a pet record.
type PetInput struct {
	Name                string
	Species             string
	Breed               string
	Age                 *int
	Color               string
	Gender              string
	DistinctiveFeatures string
	Status              storage.Status
	LastSeenLocation    string
	CoordX              string
	CoordY              string
	LostDate            *time.Time
}

// PetWithPhotos bundles a record with its photo references.
type PetWithPhotos struct {
	Pet    storage.Pet
	Photos []storage.Photo
}

// New validates cfg and returns a Service.
func New(cfg Config) (*Service, error) {
	if cfg.Pets == nil || cfg.Photos == nil || cfg.Matches == nil {
		return nil, fmt.Errorf("pets service: pet, photo, and match stores are required")
	}
	return &Service{
		pets:    cfg.Pets,
		photos:  cfg.Photos,
		matches: cfg.Matches,
		uploads: cfg.Uploads,
		matcher: cfg.Matcher,
	}, nil
}

// CreatePet registers a pet for ownerID and stores any uploaded photos.
// The first photo becomes primary.
func (s *Service) CreatePet(ctx context.Context, ownerID int64, input PetInput, uploads [][]byte) (PetWithPhotos, error) {
	if input.Name == "" {
		return PetWithPhotos{}, apperrors.New(apperrors.CodePetEmptyName, "pet name is required")
	}
	if input.Status != "" && !input.Status.Valid() {
		return PetWithPhotos{}, apperrors.New(apperrors.CodePetInvalidStatus, fmt.Sprintf("unknown status %q", input.Status))
	}
	pet, err := s.pets.CreatePet(ctx, storage.Pet{
		OwnerID:             ownerID,
		Name:                input.Name,
		Species:             input.Species,
		Breed:               input.Breed,
		Age:                 input.Age,
		Color:               input.Color,
		Gender:              input.Gender,
		DistinctiveFeatures: input.DistinctiveFeatures,
		Status:              input.Status,
		LastSeenLocation:    input.LastSeenLocation,
		CoordX:              input.CoordX,
		CoordY:              input.CoordY,
		LostDate:            input.LostDate,
	})
	if err != nil {
		return PetWithPhotos{}, fmt.Errorf("create pet: %w", err)
	}
	photos, err := s.storeUploads(ctx, pet.ID, uploads, true)
	if err != nil {
		return PetWithPhotos{}, err
	}
	return PetWithPhotos{Pet: pet, Photos: photos}, nil
}

// GetPet loads a record with its photos.
func (s *Service) GetPet(ctx context.Context, id int64) (PetWithPhotos, error) {
	pet, err := s.pets.GetPet(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return PetWithPhotos{}, apperrors.New(apperrors.CodePetNotFound, "pet not found")
		}
		return PetWithPhotos{}, fmt.Errorf("get pet: %w", err)
	}
	photos, err := s.photos.ListPhotos(ctx, id)
	if err != nil {
		return PetWithPhotos{}, fmt.Errorf("list photos: %w", err)
	}
	return PetWithPhotos{Pet: pet, Photos: photos}, nil
}

// ListPets returns records with photos, narrowed by filter.
func (s *Service) ListPets(ctx context.Context, filter storage.ListFilter) ([]PetWithPhotos, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.New(apperrors.CodePetInvalidStatus, fmt.Sprintf("unknown status %q", filter.Status))
	}
	pets, err := s.pets.ListPets(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list pets: %w", err)
	}
	out := make([]PetWithPhotos, 0, len(pets))
	for _, pet := range pets {
		photos, err := s.photos.ListPhotos(ctx, pet.ID)
		if err != nil {
			return nil, fmt.Errorf("list photos: %w", err)
		}
		out = append(out, PetWithPhotos{Pet: pet, Photos: photos})
	}
	return out, nil
}

// UpdatePet overwrites the caller's own record.
func (s *Service) UpdatePet(ctx context.Context, userID, petID int64, input PetInput) (storage.Pet, error) {
	existing, err := s.ownedPet(ctx, userID, petID)
	if err != nil {
		return storage.Pet{}, err
	}
	if input.Name == "" {
		return storage.Pet{}, apperrors.New(apperrors.CodePetEmptyName, "pet name is required")
	}
	if !input.Status.Valid() {
		return storage.Pet{}, apperrors.New(apperrors.CodePetInvalidStatus, fmt.Sprintf("unknown status %q", input.Status))
	}
	existing.Name = input.Name
	existing.Species = input.Species
	existing.Breed = input.Breed
	existing.Age = input.Age
	existing.Color = input.Color
	existing.Gender = input.Gender
	existing.DistinctiveFeatures = input.DistinctiveFeatures
	existing.Status = input.Status
	existing.LastSeenLocation = input.LastSeenLocation
	existing.CoordX = input.CoordX
	existing.CoordY = input.CoordY
	existing.LostDate = input.LostDate

	updated, err := s.pets.UpdatePet(ctx, existing)
	if err != nil {
		return storage.Pet{}, fmt.Errorf("update pet: %w", err)
	}
	return updated, nil
}

// DeletePet removes the caller's own record with its photos and matches.
func (s *Service) DeletePet(ctx context.Context, userID, petID int64) error {
	if _, err := s.ownedPet(ctx, userID, petID); err != nil {
		return err
	}
	if err := s.pets.DeletePet(ctx, petID); err != nil {
		return fmt.Errorf("delete pet: %w", err)
	}
	return nil
}

// AddPhotos uploads additional photos for the caller's own pet.
func (s *Service) AddPhotos(ctx context.Context, userID, petID int64, uploads [][]byte) ([]storage.Photo, error) {
	if _, err := s.ownedPet(ctx, userID, petID); err != nil {
		return nil, err
	}
	if len(uploads) == 0 {
		return nil, apperrors.New(apperrors.CodePhotoEmptyContents, "no photos supplied")
	}
	existing, err := s.photos.ListPhotos(ctx, petID)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	return s.storeUploads(ctx, petID, uploads, len(existing) == 0)
}

// FindMatches scores the caller's own pet against open lost reports.
func (s *Service) FindMatches(ctx context.Context, userID, petID int64) ([]match.Result, error) {
	pet, err := s.ownedPet(ctx, userID, petID)
	if err != nil {
		return nil, err
	}
	if s.matcher == nil {
		return nil, apperrors.New(apperrors.CodeMatchScorerFailed, "matching is not configured")
	}
	return s.matcher.FindMatches(ctx, pet)
}

// ListMatches returns recorded matches touching the pet.
func (s *Service) ListMatches(ctx context.Context, petID int64) ([]storage.Match, error) {
	if _, err := s.pets.GetPet(ctx, petID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.New(apperrors.CodePetNotFound, "pet not found")
		}
		return nil, fmt.Errorf("get pet: %w", err)
	}
	matches, err := s.matches.ListMatchesForPet(ctx, petID)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return matches, nil
}

func (s *Service) ownedPet(ctx context.Context, userID, petID int64) (storage.Pet, error) {
	pet, err := s.pets.GetPet(ctx, petID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Pet{}, apperrors.New(apperrors.CodePetNotFound, "pet not found")
		}
		return storage.Pet{}, fmt.Errorf("get pet: %w", err)
	}
	if pet.OwnerID != userID {
		return storage.Pet{}, apperrors.New(apperrors.CodePetNotOwner, "pet belongs to another user")
	}
	return pet, nil
}

func (s *Service) storeUploads(ctx context.Context, petID int64, uploads [][]byte, firstIsPrimary bool) ([]storage.Photo, error) {
	if len(uploads) == 0 {
		return nil, nil
	}
	if s.uploads == nil {
		return nil, apperrors.New(apperrors.CodePhotoUploadFailed, "photo uploads are not configured")
	}
	var photos []storage.Photo
	for i, data := range uploads {
		upload, err := s.uploads.Process(ctx, data)
		if err != nil {
			return nil, err
		}
		stored, err := s.photos.AddPhoto(ctx, storage.Photo{
			PetID:     petID,
			PhotoURL:  upload.URL,
			IsPrimary: firstIsPrimary && i == 0,
		})
		if err != nil {
			return nil, fmt.Errorf("store photo: %w", err)
		}
		photos = append(photos, stored)
	}
	return photos, nil
}
