// Package substructure compiles SMARTS-style patterns into linear programs and
// runs them against molecular graphs with a backtracking matcher.
//
// A compiled Program is immutable and safe for concurrent use; every call to
// Match allocates its own binding state, so one Program can be evaluated
// against many graphs, and many Programs against one graph, in parallel.
package substructure

import (
	"math"

	"github.com/turtacn/KeyIP-Chem/internal/domain/molecule"
)

// ExprKind tags an Expr node.
type ExprKind uint8

const (
	ExprTrue ExprKind = iota
	ExprNot
	ExprAndHigh // "&" or juxtaposition
	ExprOr      // ","
	ExprAndLow  // ";"

	// Atom predicates.
	AtomElement          // #N, any aromaticity
	AtomAliphaticElement // C, [C]
	AtomAromaticElement  // c, [c]
	AtomAromatic         // a
	AtomAliphatic        // A
	AtomIsotope
	AtomCharge
	AtomDegree          // D<n>
	AtomTotalH          // H<n>
	AtomImplicitH       // h<n>
	AtomRingCount       // R<n>
	AtomRingSize        // r<n>
	AtomValence         // v<n>
	AtomConnectivity    // X<n>
	AtomRingBonds       // x<n>
	AtomHybridization   // ^<n>
	AtomChirality       // @, @@
	AtomRecursive       // $(...)

	// Bond predicates.
	BondSingle
	BondDouble
	BondTriple
	BondQuadruple
	BondAromatic
	BondAny
	BondRing
	BondUp
	BondDown
	BondDefault // single or aromatic
)

// anyCount marks a numeric primitive written without digits whose meaning is
// "at least one" (R, r, x, h).
const anyCount = -1

// Chirality values carried by AtomChirality.
const (
	chiralAnticlockwise = 1
	chiralClockwise     = 2
	// chiralOrUnspecified is or-ed in by a trailing '?'.
	chiralOrUnspecified = 4
)

// Expr is a predicate tree over atoms or bonds.  Connectives use Left and
// Right (ExprNot uses Left only); leaves carry their argument in Value, and
// AtomRecursive points at an independently compiled Program.
type Expr struct {
	Kind      ExprKind
	Left      *Expr
	Right     *Expr
	Value     int
	Recursive *Program
}

func leaf(kind ExprKind, v int) *Expr { return &Expr{Kind: kind, Value: v} }

func binary(kind ExprKind, l, r *Expr) *Expr { return &Expr{Kind: kind, Left: l, Right: r} }

// atomEnv carries the per-call data atom predicates read.
type atomEnv struct {
	g     *molecule.Graph
	rings *molecule.RingInfo
	st    *matchState
}

func (e *Expr) matchAtom(env *atomEnv, i int) bool {
	switch e.Kind {
	case ExprTrue:
		return true
	case ExprNot:
		return !e.Left.matchAtom(env, i)
	case ExprAndHigh, ExprAndLow:
		return e.Left.matchAtom(env, i) && e.Right.matchAtom(env, i)
	case ExprOr:
		return e.Left.matchAtom(env, i) || e.Right.matchAtom(env, i)
	}

	a := env.g.Atom(i)
	switch e.Kind {
	case AtomElement:
		return int(a.Element) == e.Value
	case AtomAliphaticElement:
		return int(a.Element) == e.Value && !a.Aromatic
	case AtomAromaticElement:
		return int(a.Element) == e.Value && a.Aromatic
	case AtomAromatic:
		return a.Aromatic
	case AtomAliphatic:
		return !a.Aromatic
	case AtomIsotope:
		return isotopeMatches(a, e.Value)
	case AtomCharge:
		return a.Charge == e.Value
	case AtomDegree:
		return env.g.Degree(i) == e.Value
	case AtomTotalH:
		return a.Hydrogens == e.Value
	case AtomImplicitH:
		h := 0
		if a.ImplicitHydrogens {
			h = a.Hydrogens
		}
		if e.Value == anyCount {
			return h > 0
		}
		return h == e.Value
	case AtomRingCount:
		n := env.rings.AtomRingCount(i)
		if e.Value == anyCount {
			return n > 0
		}
		return n == e.Value
	case AtomRingSize:
		switch e.Value {
		case anyCount:
			return env.rings.InRing(i)
		case 0:
			return !env.rings.InRing(i)
		}
		return env.rings.InRingOfSize(i, e.Value)
	case AtomValence:
		return env.g.Valence(i) == e.Value
	case AtomConnectivity:
		return env.g.Degree(i)+a.Hydrogens == e.Value
	case AtomRingBonds:
		n := env.rings.RingBondCount(i)
		if e.Value == anyCount {
			return n > 0
		}
		return n == e.Value
	case AtomHybridization:
		return hybridization(env.g, i) == e.Value
	case AtomChirality:
		return chiralityMatches(a.Chirality, e.Value)
	case AtomRecursive:
		return env.st.recursive(e.Recursive, i)
	}
	return false
}

// isotopeMatches compares a query mass number against an atom.  The query
// holds when it equals the atom's explicit mass number, or the most common
// mass number of the atom's element (an unlabelled carbon and a 13C-labelled
// one both satisfy [12*]).  A query of 0 matches only unlabelled atoms.
func isotopeMatches(a *molecule.Atom, mass int) bool {
	if mass == 0 {
		return a.Isotope == 0
	}
	if a.Isotope == mass {
		return true
	}
	return a.Element != molecule.Unknown && a.Element.MostCommonIsotope() == mass
}

func chiralityMatches(c molecule.Chirality, v int) bool {
	switch c {
	case molecule.ChiralityNone:
		return v&chiralOrUnspecified != 0
	case molecule.ChiralityAnticlockwise:
		return v&chiralAnticlockwise != 0
	case molecule.ChiralityClockwise:
		return v&chiralClockwise != 0
	}
	// Extended classes only satisfy the unspecified form.
	return v&chiralOrUnspecified != 0
}

// hybridization derives sp (1), sp2 (2) or sp3 (3) from the bond pattern.
// Atoms without a conventional valence report 0.
func hybridization(g *molecule.Graph, i int) int {
	a := g.Atom(i)
	if a.Element.DefaultValence() == 0 {
		return 0
	}
	if a.Aromatic {
		return 2
	}
	var doubles, triples int
	for _, bi := range g.IncidentBonds(i) {
		b := g.Bond(bi)
		switch {
		case b.Aromatic:
			return 2
		case b.Order >= 3:
			triples++
		case b.Order >= 2:
			doubles++
		}
	}
	switch {
	case triples > 0 || doubles > 1:
		return 1
	case doubles == 1:
		return 2
	}
	return 3
}

func (e *Expr) matchBond(b *molecule.Bond, inRing bool) bool {
	switch e.Kind {
	case ExprTrue, BondAny:
		return true
	case ExprNot:
		return !e.Left.matchBond(b, inRing)
	case ExprAndHigh, ExprAndLow:
		return e.Left.matchBond(b, inRing) && e.Right.matchBond(b, inRing)
	case ExprOr:
		return e.Left.matchBond(b, inRing) || e.Right.matchBond(b, inRing)
	case BondSingle:
		return !b.Aromatic && orderIs(b, 1)
	case BondDouble:
		return !b.Aromatic && orderIs(b, 2)
	case BondTriple:
		return orderIs(b, 3)
	case BondQuadruple:
		return orderIs(b, 4)
	case BondAromatic:
		return b.Aromatic
	case BondRing:
		return inRing
	case BondUp:
		return b.Stereo == molecule.StereoUp || (e.Value == 1 && b.Stereo == molecule.StereoNone)
	case BondDown:
		return b.Stereo == molecule.StereoDown || (e.Value == 1 && b.Stereo == molecule.StereoNone)
	case BondDefault:
		return b.Aromatic || orderIs(b, 1)
	}
	return false
}

func orderIs(b *molecule.Bond, o float64) bool {
	return math.Abs(b.Order-o) < 1e-9
}

//Personal.AI order the ending
