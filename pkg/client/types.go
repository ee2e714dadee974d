package client

import "time"

// ParseResult summarizes a parsed structure.
type ParseResult struct {
	Input     string `json:"input"`
	SMILES    string `json:"smiles"`
	Formula   string `json:"formula"`
	Atoms     int    `json:"atoms"`
	Bonds     int    `json:"bonds"`
	Rings     int    `json:"rings"`
	Fragments int    `json:"fragments"`
	Aromatic  int    `json:"aromatic_atoms"`
}

// Fingerprint is a structural key fingerprint in hex and as set bit
// positions.
type Fingerprint struct {
	SMILES string `json:"smiles"`
	Type   string `json:"type"`
	Length int    `json:"length"`
	Hex    string `json:"hex"`
	OnBits []int  `json:"on_bits"`
}

// Similarity is the score between two fingerprints.
type Similarity struct {
	Metric string       `json:"metric"`
	Score  float64      `json:"score"`
	A      *Fingerprint `json:"a"`
	B      *Fingerprint `json:"b"`
}

// MatchResult is the outcome of one pattern against one molecule.  Atoms
// maps pattern atom i to molecule atom Atoms[i].
type MatchResult struct {
	SMILES  string `json:"smiles"`
	Pattern string `json:"pattern"`
	Matched bool   `json:"matched"`
	Atoms   []int  `json:"atoms,omitempty"`
	Steps   int64  `json:"steps"`
}

// PatternOutcome is one row of a ScreenResult.  A pattern that failed to
// compile or ran out of budget carries Error and ErrorCode.
type PatternOutcome struct {
	Pattern   string `json:"pattern"`
	Matched   bool   `json:"matched"`
	Atoms     []int  `json:"atoms,omitempty"`
	Steps     int64  `json:"steps"`
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

type ScreenResult struct {
	SMILES   string           `json:"smiles"`
	Outcomes []PatternOutcome `json:"outcomes"`
	Matched  int              `json:"matched"`
	Failed   int              `json:"failed"`
	Cached   bool             `json:"cached"`
}

// Compound is a registered library entry.
type Compound struct {
	ID         string            `json:"id"`
	Name       string            `json:"name,omitempty"`
	SMILES     string            `json:"smiles"`
	Formula    string            `json:"formula"`
	AtomCount  int               `json:"atom_count"`
	BondCount  int               `json:"bond_count"`
	Properties map[string]string `json:"properties,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// RegisterCompoundRequest registers a structure in the compound store.
type RegisterCompoundRequest struct {
	SMILES     string            `json:"smiles"`
	Name       string            `json:"name,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// LibrarySearchRequest searches an SDF object when Object is set, otherwise
// the compound store.  MaxHits is capped by the server.
type LibrarySearchRequest struct {
	Pattern string `json:"pattern"`
	Bucket  string `json:"bucket,omitempty"`
	Object  string `json:"object,omitempty"`
	MaxHits int    `json:"max_hits,omitempty"`
}

type Hit struct {
	Index  int    `json:"index"`
	Name   string `json:"name,omitempty"`
	SMILES string `json:"smiles"`
	Atoms  []int  `json:"atoms,omitempty"`
}

// RecordFailure is a library record that could not be read or matched.
type RecordFailure struct {
	Index int    `json:"index"`
	Name  string `json:"name,omitempty"`
	Error string `json:"error"`
}

type SearchResult struct {
	Pattern   string          `json:"pattern"`
	Source    string          `json:"source"`
	Scanned   int             `json:"scanned"`
	Skipped   int             `json:"skipped"`
	Hits      []Hit           `json:"hits"`
	Failures  []RecordFailure `json:"failures,omitempty"`
	Truncated bool            `json:"truncated,omitempty"`
}

// HealthStatus is the liveness endpoint answer.
type HealthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// ReadinessStatus is the readiness endpoint answer.  Status is "ready" or
// "not_ready".
type ReadinessStatus struct {
	Status     string                     `json:"status"`
	Components map[string]ComponentStatus `json:"components,omitempty"`
}

type ComponentStatus struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

//Personal.AI order the ending
