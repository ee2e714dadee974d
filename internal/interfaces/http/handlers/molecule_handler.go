package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/KeyIP-Chem/internal/application/screening"
	"github.com/turtacn/KeyIP-Chem/internal/domain/fingerprint"
)

// MoleculeHandler serves the per-molecule endpoints: parse, fingerprint and
// the compound store.
type MoleculeHandler struct {
	svc screening.Service
}

// NewMoleculeHandler creates a MoleculeHandler.
func NewMoleculeHandler(svc screening.Service) *MoleculeHandler {
	return &MoleculeHandler{svc: svc}
}

// ParseRequest is the body of POST /api/v1/parse.
type ParseRequest struct {
	SMILES string `json:"smiles" binding:"required"`
}

// FingerprintRequest is the body of POST /api/v1/fingerprint.  With Compare
// set the response is a similarity score instead of a fingerprint.
type FingerprintRequest struct {
	SMILES  string `json:"smiles" binding:"required"`
	Compare string `json:"compare,omitempty"`
	Metric  string `json:"metric,omitempty"`
}

// RegisterCompoundRequest is the body of POST /api/v1/compounds.
type RegisterCompoundRequest struct {
	SMILES     string            `json:"smiles" binding:"required"`
	Name       string            `json:"name"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Parse handles POST /api/v1/parse.
func (h *MoleculeHandler) Parse(c *gin.Context) {
	var req ParseRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Parse(c.Request.Context(), req.SMILES)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Fingerprint handles POST /api/v1/fingerprint.
func (h *MoleculeHandler) Fingerprint(c *gin.Context) {
	var req FingerprintRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	if req.Compare == "" {
		res, err := h.svc.Fingerprint(ctx, req.SMILES)
		if err != nil {
			writeAppError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
		return
	}

	res, err := h.svc.Compare(ctx, &screening.CompareInput{
		A:      req.SMILES,
		B:      req.Compare,
		Metric: fingerprint.Metric(req.Metric),
	})
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// RegisterCompound handles POST /api/v1/compounds.
func (h *MoleculeHandler) RegisterCompound(c *gin.Context) {
	var req RegisterCompoundRequest
	if !bindJSON(c, &req) {
		return
	}
	compound, err := h.svc.RegisterCompound(c.Request.Context(), &screening.RegisterInput{
		SMILES:     req.SMILES,
		Name:       req.Name,
		Properties: req.Properties,
	})
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, compound)
}

// GetCompound handles GET /api/v1/compounds/:id.
func (h *MoleculeHandler) GetCompound(c *gin.Context) {
	compound, err := h.svc.GetCompound(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, compound)
}

//Personal.AI order the ending
