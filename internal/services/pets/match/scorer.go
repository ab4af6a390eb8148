// Package match scores found pets against open lost reports and records
// the promising pairs.
package match

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/caarlos0/env/v11"

	apperrors "github.com/pawtrail/pawtrail/internal/platform/errors"
	"github.com/pawtrail/pawtrail/internal/platform/timeouts"
)

// Scorer computes visual similarity between two pet photos, in [0, 1].
type Scorer interface {
	Score(ctx context.Context, foundPhotoURL, lostPhotoURL string) (float64, error)
}

// scorerEnv holds raw env values before post-parse validation.
type scorerEnv struct {
	URL string `env:"PAWTRAIL_SCORER_URL"`
}

// HTTPScorerConfig defines where similarity requests are sent.
type HTTPScorerConfig struct {
	URL    string
	Client *http.Client
}

// LoadHTTPScorerConfigFromEnv reads scorer configuration. An empty URL
// means matching is disabled.
func LoadHTTPScorerConfigFromEnv() (HTTPScorerConfig, error) {
	var raw scorerEnv
	if err := env.Parse(&raw); err != nil {
		return HTTPScorerConfig{}, fmt.Errorf("parse scorer env: %w", err)
	}
	return HTTPScorerConfig{URL: strings.TrimSpace(raw.URL)}, nil
}

// HTTPScorer posts photo pairs to a similarity service.
type HTTPScorer struct {
	url    string
	client *http.Client
}

// NewHTTPScorer validates cfg and returns a scorer.
func NewHTTPScorer(cfg HTTPScorerConfig) (*HTTPScorer, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("scorer url is required")
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: timeouts.ScorerRequest}
	}
	return &HTTPScorer{url: cfg.URL, client: client}, nil
}

type scoreRequest struct {
	FoundPhotoURL string `json:"found_photo_url"`
	LostPhotoURL  string `json:"lost_photo_url"`
}

type scoreResponse struct {
	Similarity float64 `json:"similarity"`
}

// Score posts the photo pair and returns the reported similarity.
func (s *HTTPScorer) Score(ctx context.Context, foundPhotoURL, lostPhotoURL string) (float64, error) {
	body, err := json.Marshal(scoreRequest{FoundPhotoURL: foundPhotoURL, LostPhotoURL: lostPhotoURL})
	if err != nil {
		return 0, fmt.Errorf("encode score request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeMatchScorerFailed, "similarity service unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, apperrors.New(apperrors.CodeMatchScorerFailed, fmt.Sprintf("similarity service returned %d", resp.StatusCode))
	}
	var decoded scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return 0, apperrors.Wrap(apperrors.CodeMatchScorerFailed, "similarity response is malformed", err)
	}
	if decoded.Similarity < 0 || decoded.Similarity > 1 {
		return 0, apperrors.New(apperrors.CodeMatchScorerFailed, fmt.Sprintf("similarity %v out of range", decoded.Similarity))
	}
	return decoded.Similarity, nil
}
