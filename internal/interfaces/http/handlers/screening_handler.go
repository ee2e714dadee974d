package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/KeyIP-Chem/internal/application/screening"
	"github.com/turtacn/KeyIP-Chem/internal/domain/molecule"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/storage/minio"
	"github.com/turtacn/KeyIP-Chem/pkg/errors"
)

// ScreeningHandler serves the substructure endpoints.
type ScreeningHandler struct {
	svc       screening.Service
	libraries minio.LibraryRepository
	compounds molecule.Repository
	maxHits   int
}

// ScreeningOption configures a ScreeningHandler.
type ScreeningOption func(*ScreeningHandler)

// WithLibraryStore enables library searches over SDF objects.
func WithLibraryStore(repo minio.LibraryRepository) ScreeningOption {
	return func(h *ScreeningHandler) { h.libraries = repo }
}

// WithCompoundStore enables library searches over the compound store.
func WithCompoundStore(repo molecule.Repository) ScreeningOption {
	return func(h *ScreeningHandler) { h.compounds = repo }
}

// WithMaxHits caps the hits returned by one library search.
func WithMaxHits(n int) ScreeningOption {
	return func(h *ScreeningHandler) { h.maxHits = n }
}

// NewScreeningHandler creates a ScreeningHandler.
func NewScreeningHandler(svc screening.Service, opts ...ScreeningOption) *ScreeningHandler {
	h := &ScreeningHandler{svc: svc, maxHits: 1000}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// MatchRequest is the body of POST /api/v1/match.
type MatchRequest struct {
	SMILES  string `json:"smiles" binding:"required"`
	Pattern string `json:"pattern" binding:"required"`
}

// ScreenRequest is the body of POST /api/v1/screen.
type ScreenRequest struct {
	SMILES   string   `json:"smiles" binding:"required"`
	Patterns []string `json:"patterns"`
}

// LibrarySearchRequest is the body of POST /api/v1/library/search.  Object
// names an SDF object; without it the compound store is searched.
type LibrarySearchRequest struct {
	Pattern string `json:"pattern" binding:"required"`
	Bucket  string `json:"bucket,omitempty"`
	Object  string `json:"object,omitempty"`
	MaxHits int    `json:"max_hits,omitempty"`
}

// Match handles POST /api/v1/match.
func (h *ScreeningHandler) Match(c *gin.Context) {
	var req MatchRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Match(c.Request.Context(), &screening.MatchInput{SMILES: req.SMILES, Pattern: req.Pattern})
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Screen handles POST /api/v1/screen.  Per-pattern failures are reported in
// the outcomes and do not fail the request.
func (h *ScreeningHandler) Screen(c *gin.Context) {
	var req ScreenRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Screen(c.Request.Context(), &screening.ScreenInput{SMILES: req.SMILES, Patterns: req.Patterns})
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// SearchLibrary handles POST /api/v1/library/search.
func (h *ScreeningHandler) SearchLibrary(c *gin.Context) {
	var req LibrarySearchRequest
	if !bindJSON(c, &req) {
		return
	}

	var source screening.LibrarySource
	switch {
	case req.Object != "" && h.libraries != nil:
		source = screening.NewObjectSource(h.libraries, req.Bucket, req.Object)
	case req.Object == "" && h.compounds != nil:
		source = screening.NewStoreSource(h.compounds)
	default:
		writeAppError(c, errors.New(errors.ErrCodeServiceUnavailable, "library source is not configured"))
		return
	}

	maxHits := req.MaxHits
	if maxHits <= 0 || maxHits > h.maxHits {
		maxHits = h.maxHits
	}
	res, err := h.svc.SearchLibrary(c.Request.Context(), &screening.SearchInput{
		Pattern: req.Pattern,
		Source:  source,
		MaxHits: maxHits,
	})
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

//Personal.AI order the ending
