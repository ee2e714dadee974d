package client

import (
	"context"
	"net/url"

	"github.com/turtacn/KeyIP-Chem/pkg/errors"
)

// MoleculesClient covers structure parsing, fingerprints and the compound
// store.
type MoleculesClient struct {
	client *Client
}

// Parse validates smiles and returns its summary.
func (m *MoleculesClient) Parse(ctx context.Context, smiles string) (*ParseResult, error) {
	if smiles == "" {
		return nil, errors.InvalidParam("smiles is required")
	}
	var out ParseResult
	if err := m.client.post(ctx, "/parse", map[string]string{"smiles": smiles}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Fingerprint computes the structural key fingerprint of smiles.
func (m *MoleculesClient) Fingerprint(ctx context.Context, smiles string) (*Fingerprint, error) {
	if smiles == "" {
		return nil, errors.InvalidParam("smiles is required")
	}
	var out Fingerprint
	if err := m.client.post(ctx, "/fingerprint", map[string]string{"smiles": smiles}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Compare scores two structures.  An empty metric means tanimoto.
func (m *MoleculesClient) Compare(ctx context.Context, a, b, metric string) (*Similarity, error) {
	if a == "" || b == "" {
		return nil, errors.InvalidParam("both structures are required")
	}
	body := map[string]string{"smiles": a, "compare": b}
	if metric != "" {
		body["metric"] = metric
	}
	var out Similarity
	if err := m.client.post(ctx, "/fingerprint", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RegisterCompound stores a structure and returns it with its assigned ID.
func (m *MoleculesClient) RegisterCompound(ctx context.Context, req *RegisterCompoundRequest) (*Compound, error) {
	if req == nil || req.SMILES == "" {
		return nil, errors.InvalidParam("smiles is required")
	}
	var out Compound
	if err := m.client.post(ctx, "/compounds", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (m *MoleculesClient) GetCompound(ctx context.Context, id string) (*Compound, error) {
	if id == "" {
		return nil, errors.InvalidParam("compound id is required")
	}
	var out Compound
	if err := m.client.get(ctx, "/compounds/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

//Personal.AI order the ending
