package molecule

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Chirality is the tetrahedral or extended stereo tag of an atom as written in
// line notation: "@", "@@", or an extended class such as "@SP1" or "@OH12".
type Chirality string

const (
	ChiralityNone          Chirality = ""
	ChiralityAnticlockwise Chirality = "@"
	ChiralityClockwise     Chirality = "@@"
)

// BondStereo is the directional marker of a single bond around a double bond.
type BondStereo uint8

const (
	StereoNone BondStereo = iota
	StereoUp              // "/"
	StereoDown            // "\"
)

func (s BondStereo) String() string {
	switch s {
	case StereoUp:
		return "/"
	case StereoDown:
		return `\`
	}
	return ""
}

// Point3 is a coordinate triple read from a structure-data record.
type Point3 struct {
	X, Y, Z float64
}

// Atom is a vertex of a molecular graph.
type Atom struct {
	Element Element `json:"element"`

	// Isotope is the mass number; 0 means unspecified.
	Isotope int `json:"isotope,omitempty"`

	// Hydrogens is the total attached hydrogen count.  When ImplicitHydrogens
	// is set the count was derived from the valence electrons and bond orders
	// rather than written explicitly.
	Hydrogens         int  `json:"hydrogens"`
	ImplicitHydrogens bool `json:"implicit_hydrogens,omitempty"`

	Aromatic bool `json:"aromatic,omitempty"`
	Charge   int  `json:"charge,omitempty"`

	// Ring is set when a ring-closure digit touched the atom.
	Ring bool `json:"ring,omitempty"`

	Chirality Chirality `json:"chirality,omitempty"`
	Class     int       `json:"class,omitempty"`
	Coords    *Point3   `json:"coords,omitempty"`
}

// Bond is an edge of a molecular graph.
type Bond struct {
	Source int `json:"source"`
	Target int `json:"target"`

	// Order is 1, 2, 3 or 4, or 1.5 for a bond written explicitly aromatic.
	// Implicit bonds between aromatic atoms alternate between 1 and 2 with
	// Aromatic set.
	Order    float64    `json:"order"`
	Aromatic bool       `json:"aromatic,omitempty"`
	Ring     bool       `json:"ring,omitempty"`
	Stereo   BondStereo `json:"stereo,omitempty"`
}

// Other returns the endpoint opposite to atom.
func (b *Bond) Other(atom int) int {
	if b.Source == atom {
		return b.Target
	}
	return b.Source
}

// Graph is an arena-backed molecular graph.  Atoms and bonds are addressed by
// their insertion index.  A graph is built once by a parser and is read-only
// afterwards; concurrent readers need no synchronization.
type Graph struct {
	atoms    []Atom
	bonds    []Bond
	incident [][]int

	rings *RingInfo
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{}
}

// AddAtom appends a and returns its index.
func (g *Graph) AddAtom(a Atom) int {
	g.atoms = append(g.atoms, a)
	g.incident = append(g.incident, nil)
	g.rings = nil
	return len(g.atoms) - 1
}

// AddBond connects src and dst and returns the bond index.
func (g *Graph) AddBond(src, dst int, b Bond) (int, error) {
	if src < 0 || src >= len(g.atoms) || dst < 0 || dst >= len(g.atoms) {
		return -1, fmt.Errorf("bond endpoints %d-%d out of range [0,%d)", src, dst, len(g.atoms))
	}
	if src == dst {
		return -1, fmt.Errorf("bond endpoints must be distinct, got %d twice", src)
	}
	b.Source, b.Target = src, dst
	g.bonds = append(g.bonds, b)
	idx := len(g.bonds) - 1
	g.incident[src] = append(g.incident[src], idx)
	g.incident[dst] = append(g.incident[dst], idx)
	g.rings = nil
	return idx, nil
}

// NumAtoms returns the atom count.
func (g *Graph) NumAtoms() int { return len(g.atoms) }

// NumBonds returns the bond count.
func (g *Graph) NumBonds() int { return len(g.bonds) }

// Atom returns the atom at index i.
func (g *Graph) Atom(i int) *Atom { return &g.atoms[i] }

// Bond returns the bond at index i.
func (g *Graph) Bond(i int) *Bond { return &g.bonds[i] }

// Atoms returns the atom arena.  Callers must not modify it.
func (g *Graph) Atoms() []Atom { return g.atoms }

// Bonds returns the bond arena.  Callers must not modify it.
func (g *Graph) Bonds() []Bond { return g.bonds }

// IncidentBonds returns the indices of the bonds touching atom i, in insertion
// order.
func (g *Graph) IncidentBonds(i int) []int { return g.incident[i] }

// Degree returns the number of explicit bonds touching atom i.
func (g *Graph) Degree(i int) int { return len(g.incident[i]) }

// Neighbor returns the atom across bond b from atom i.
func (g *Graph) Neighbor(i, b int) int { return g.bonds[b].Other(i) }

// BondBetween returns the index of the bond joining a and b.
func (g *Graph) BondBetween(a, b int) (int, bool) {
	for _, bi := range g.incident[a] {
		if g.bonds[bi].Other(a) == b {
			return bi, true
		}
	}
	return -1, false
}

// BondOrderSum returns the sum of bond orders around atom i.
func (g *Graph) BondOrderSum(i int) float64 {
	var sum float64
	for _, bi := range g.incident[i] {
		sum += g.bonds[bi].Order
	}
	return sum
}

// Valence returns the total bond order around atom i, hydrogens included,
// rounded up.
func (g *Graph) Valence(i int) int {
	return int(math.Ceil(g.BondOrderSum(i)-1e-9)) + g.atoms[i].Hydrogens
}

// FillImplicitHydrogens sets the hydrogen count of atom i to
// max(0, valence electrons - bond order sum).  Atoms whose hydrogen count was
// written explicitly are left alone.
func (g *Graph) FillImplicitHydrogens(i int) {
	if !g.atoms[i].ImplicitHydrogens {
		return
	}
	g.DeriveHydrogens(i)
}

// DeriveHydrogens recomputes the hydrogen count of atom i from its incident
// bonds and marks it derived, overriding any written count.  Fractional
// aromatic orders round up.
func (g *Graph) DeriveHydrogens(i int) {
	a := &g.atoms[i]
	h := a.Element.ValenceElectrons() - int(math.Ceil(g.BondOrderSum(i)-1e-9))
	if h < 0 {
		h = 0
	}
	a.Hydrogens = h
	a.ImplicitHydrogens = true
}

// Finalize computes the ring perception data and caches it on the graph.
// Parsers call it once construction is complete.
func (g *Graph) Finalize() {
	g.rings = perceiveRings(g)
}

// Rings returns the ring perception data.  A finalized graph returns its
// cached copy; otherwise the data is computed afresh on each call so that
// concurrent readers never write to the graph.
func (g *Graph) Rings() *RingInfo {
	if g.rings != nil {
		return g.rings
	}
	return perceiveRings(g)
}

// Fragments returns the connected components as lists of atom indices.
func (g *Graph) Fragments() [][]int {
	seen := make([]bool, len(g.atoms))
	var out [][]int
	for start := range g.atoms {
		if seen[start] {
			continue
		}
		var comp []int
		stack := []int{start}
		seen[start] = true
		for len(stack) > 0 {
			a := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			comp = append(comp, a)
			for _, bi := range g.incident[a] {
				n := g.bonds[bi].Other(a)
				if !seen[n] {
					seen[n] = true
					stack = append(stack, n)
				}
			}
		}
		out = append(out, comp)
	}
	return out
}

// Formula returns the Hill-order molecular formula, hydrogens included.
func (g *Graph) Formula() string {
	counts := make(map[Element]int)
	for _, a := range g.atoms {
		counts[a.Element]++
		if a.Hydrogens > 0 {
			counts[Hydrogen] += a.Hydrogens
		}
	}
	return hillFormula(counts)
}

func hillFormula(counts map[Element]int) string {
	var others []Element
	for e := range counts {
		if e != Carbon && e != Hydrogen {
			others = append(others, e)
		}
	}
	sort.Slice(others, func(i, j int) bool { return others[i].Symbol() < others[j].Symbol() })

	var sb strings.Builder
	write := func(e Element) {
		n := counts[e]
		if n == 0 {
			return
		}
		sb.WriteString(e.Symbol())
		if n > 1 {
			sb.WriteString(strconv.Itoa(n))
		}
	}
	if counts[Carbon] > 0 {
		write(Carbon)
		write(Hydrogen)
	} else {
		others = append(others, Hydrogen)
		sort.Slice(others, func(i, j int) bool { return others[i].Symbol() < others[j].Symbol() })
	}
	for _, e := range others {
		write(e)
	}
	return sb.String()
}

//Personal.AI order the ending
