package client

import (
	"context"

	"github.com/turtacn/KeyIP-Chem/pkg/errors"
)

// ScreeningClient covers substructure matching and library search.
type ScreeningClient struct {
	client *Client
}

// Match tests one SMARTS pattern against one molecule.
func (s *ScreeningClient) Match(ctx context.Context, smiles, pattern string) (*MatchResult, error) {
	if smiles == "" || pattern == "" {
		return nil, errors.InvalidParam("smiles and pattern are required")
	}
	var out MatchResult
	body := map[string]string{"smiles": smiles, "pattern": pattern}
	if err := s.client.post(ctx, "/match", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Screen tests every pattern against one molecule.  Pattern failures are
// reported per outcome rather than as an error.
func (s *ScreeningClient) Screen(ctx context.Context, smiles string, patterns []string) (*ScreenResult, error) {
	if smiles == "" {
		return nil, errors.InvalidParam("smiles is required")
	}
	body := struct {
		SMILES   string   `json:"smiles"`
		Patterns []string `json:"patterns"`
	}{smiles, patterns}

	var out ScreenResult
	if err := s.client.post(ctx, "/screen", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *ScreeningClient) SearchLibrary(ctx context.Context, req *LibrarySearchRequest) (*SearchResult, error) {
	if req == nil || req.Pattern == "" {
		return nil, errors.InvalidParam("pattern is required")
	}
	if req.MaxHits < 0 {
		return nil, errors.InvalidParam("max_hits must not be negative")
	}
	var out SearchResult
	if err := s.client.post(ctx, "/library/search", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

//Personal.AI order the ending
