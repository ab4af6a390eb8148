package match

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/pawtrail/pawtrail/internal/services/pets/storage"
)

// DefaultThreshold is the minimum similarity for a pair to be recorded.
const DefaultThreshold = 0.35

// Notifier delivers a match alert to the lost pet's owner.
type Notifier interface {
	NotifyMatch(ctx context.Context, userID, matchID int64, message string) error
}

// Result is one scored candidate above the threshold.
type Result struct {
	Match   storage.Match
	LostPet storage.Pet
}

// Config carries the dependencies for the matcher.
type Config struct {
	Pets      storage.PetStore
	Photos    storage.PhotoStore
	Matches   storage.MatchStore
	Scorer    Scorer
	Notifier  Notifier
	Threshold float64
	Now       func() time.Time
}

// Matcher scores a found pet against open lost reports of the same
// species, persists pairs above the threshold, and alerts the owners.
type Matcher struct {
	pets      storage.PetStore
	photos    storage.PhotoStore
	matches   storage.MatchStore
	scorer    Scorer
	notifier  Notifier
	threshold float64
	now       func() time.Time
}

// New validates cfg and returns a Matcher.
func New(cfg Config) (*Matcher, error) {
	if cfg.Pets == nil || cfg.Photos == nil || cfg.Matches == nil {
		return nil, fmt.Errorf("matcher: pet, photo, and match stores are required")
	}
	if cfg.Scorer == nil {
		return nil, fmt.Errorf("matcher: scorer is required")
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Matcher{
		pets:      cfg.Pets,
		photos:    cfg.Photos,
		matches:   cfg.Matches,
		scorer:    cfg.Scorer,
		notifier:  cfg.Notifier,
		threshold: cfg.Threshold,
		now:       cfg.Now,
	}, nil
}

// FindMatches scores foundPet against every lost pet of the same
// species. Scoring failures for individual candidates are logged and
// skipped so one bad photo cannot sink the whole pass. Results come
// back best score first.
func (m *Matcher) FindMatches(ctx context.Context, foundPet storage.Pet) ([]Result, error) {
	foundPhoto, ok, err := m.primaryPhoto(ctx, foundPet.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	candidates, err := m.pets.ListPets(ctx, storage.ListFilter{
		Status:  storage.StatusLost,
		Species: foundPet.Species,
	})
	if err != nil {
		return nil, fmt.Errorf("list lost pets: %w", err)
	}

	var results []Result
	for _, lostPet := range candidates {
		if lostPet.ID == foundPet.ID {
			continue
		}
		lostPhoto, ok, err := m.primaryPhoto(ctx, lostPet.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		score, err := m.scorer.Score(ctx, foundPhoto.PhotoURL, lostPhoto.PhotoURL)
		if err != nil {
			log.Printf("match: score failed found=%d lost=%d err=%v", foundPet.ID, lostPet.ID, err)
			continue
		}
		if score < m.threshold {
			continue
		}
		stored, err := m.matches.UpsertMatch(ctx, storage.Match{
			FoundPetID:      foundPet.ID,
			LostPetID:       lostPet.ID,
			SimilarityScore: score,
			CreatedAt:       m.now().UTC(),
		})
		if err != nil {
			return nil, fmt.Errorf("record match: %w", err)
		}
		results = append(results, Result{Match: stored, LostPet: lostPet})
		m.notify(ctx, lostPet, stored)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Match.SimilarityScore > results[j].Match.SimilarityScore
	})
	return results, nil
}

func (m *Matcher) notify(ctx context.Context, lostPet storage.Pet, match storage.Match) {
	if m.notifier == nil {
		return
	}
	message := fmt.Sprintf("A found pet looks %d%% similar to %s.", int(match.SimilarityScore*100), lostPet.Name)
	if err := m.notifier.NotifyMatch(ctx, lostPet.OwnerID, match.ID, message); err != nil {
		log.Printf("match: notify owner failed match=%d owner=%d err=%v", match.ID, lostPet.OwnerID, err)
	}
}

func (m *Matcher) primaryPhoto(ctx context.Context, petID int64) (storage.Photo, bool, error) {
	photos, err := m.photos.ListPhotos(ctx, petID)
	if err != nil {
		return storage.Photo{}, false, fmt.Errorf("list photos for pet %d: %w", petID, err)
	}
	if len(photos) == 0 {
		return storage.Photo{}, false, nil
	}
	// ListPhotos orders primary first.
	return photos[0], true, nil
}
