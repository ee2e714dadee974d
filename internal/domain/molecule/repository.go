package molecule

import (
	"context"
	"time"
)

// Compound is a structure registered in the compound library.  Only the line
// notation is persisted; graphs are rebuilt on demand.
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

// NewCompound describes g as a library entry.  The ID is assigned by the
// caller.
func NewCompound(id, name, smiles string, g *Graph) *Compound {
	return &Compound{
		ID:        id,
		Name:      name,
		SMILES:    smiles,
		Formula:   g.Formula(),
		AtomCount: g.NumAtoms(),
		BondCount: g.NumBonds(),
		CreatedAt: time.Now().UTC(),
	}
}

// Repository defines the persistence contract for the compound library.
type Repository interface {
	// Save inserts a compound.  A duplicate SMILES returns
	// errors.ErrCodeMoleculeAlreadyExists.
	Save(ctx context.Context, c *Compound) error

	// BatchSave inserts many compounds in one round trip; it is all-or-nothing.
	BatchSave(ctx context.Context, cs []*Compound) error

	// FindByID returns errors.ErrCodeMoleculeNotFound when id is unknown.
	FindByID(ctx context.Context, id string) (*Compound, error)

	// Iterate streams every compound in insertion order.  Returning an error
	// from fn stops the iteration and is passed through.
	Iterate(ctx context.Context, fn func(*Compound) error) error

	Count(ctx context.Context) (int64, error)
}

//Personal.AI order the ending
