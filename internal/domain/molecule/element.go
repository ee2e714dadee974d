// Package molecule is the chemistry core of KeyIP-Chem.  It holds the element
// table, the arena-backed molecular graph, the line-notation (SMILES) parser and
// the structure-data (SDF V2000) reader.  Everything here is pure computation:
// no I/O beyond the io.Reader handed to the SDF reader, no logging and no
// global mutable state, so graphs can be shared read-only across goroutines.
package molecule

import "strings"

// Element is a chemical element identified by its atomic number.  The zero
// value is Unknown, which also stands for the wildcard atom "*".
type Element uint8

// Unknown is the wildcard / unrecognized element.
const Unknown Element = 0

// MaxAtomicNumber is the highest atomic number in the table.
const MaxAtomicNumber = 118

// Frequently referenced elements.
const (
	Hydrogen   Element = 1
	Boron      Element = 5
	Carbon     Element = 6
	Nitrogen   Element = 7
	Oxygen     Element = 8
	Fluorine   Element = 9
	Phosphorus Element = 15
	Sulfur     Element = 16
	Chlorine   Element = 17
	Arsenic    Element = 33
	Selenium   Element = 34
	Bromine    Element = 35
	Tellurium  Element = 52
	Iodine     Element = 53
)

var symbols = [MaxAtomicNumber + 1]string{
	"*",
	"H", "He",
	"Li", "Be", "B", "C", "N", "O", "F", "Ne",
	"Na", "Mg", "Al", "Si", "P", "S", "Cl", "Ar",
	"K", "Ca", "Sc", "Ti", "V", "Cr", "Mn", "Fe", "Co", "Ni", "Cu", "Zn",
	"Ga", "Ge", "As", "Se", "Br", "Kr",
	"Rb", "Sr", "Y", "Zr", "Nb", "Mo", "Tc", "Ru", "Rh", "Pd", "Ag", "Cd",
	"In", "Sn", "Sb", "Te", "I", "Xe",
	"Cs", "Ba", "La", "Ce", "Pr", "Nd", "Pm", "Sm", "Eu", "Gd", "Tb", "Dy",
	"Ho", "Er", "Tm", "Yb", "Lu", "Hf", "Ta", "W", "Re", "Os", "Ir", "Pt",
	"Au", "Hg", "Tl", "Pb", "Bi", "Po", "At", "Rn",
	"Fr", "Ra", "Ac", "Th", "Pa", "U", "Np", "Pu", "Am", "Cm", "Bk", "Cf",
	"Es", "Fm", "Md", "No", "Lr", "Rf", "Db", "Sg", "Bh", "Hs", "Mt", "Ds",
	"Rg", "Cn", "Nh", "Fl", "Mc", "Lv", "Ts", "Og",
}

// Mass number of the most abundant isotope; for elements without a stable
// isotope the longest-lived one is used.
var commonIsotopes = [MaxAtomicNumber + 1]uint16{
	0,
	1, 4,
	7, 9, 11, 12, 14, 16, 19, 20,
	23, 24, 27, 28, 31, 32, 35, 40,
	39, 40, 45, 48, 51, 52, 55, 56, 59, 58, 63, 64,
	69, 74, 75, 80, 79, 84,
	85, 88, 89, 90, 93, 98, 98, 102, 103, 106, 107, 114,
	115, 120, 121, 130, 127, 132,
	133, 138, 139, 140, 141, 142, 145, 152, 153, 158, 159, 164,
	165, 166, 169, 174, 175, 180, 181, 184, 187, 192, 193, 195,
	197, 202, 205, 208, 209, 209, 210, 222,
	223, 226, 227, 232, 231, 238, 237, 244, 243, 247, 247, 251,
	252, 257, 258, 259, 266, 267, 268, 269, 270, 269, 278, 281,
	282, 285, 286, 289, 290, 293, 294, 294,
}

// nobleCores lists the atomic numbers of the noble gases closing each period.
var nobleCores = [...]int{0, 2, 10, 18, 36, 54, 86, 118}

var bySymbol = func() map[string]Element {
	m := make(map[string]Element, MaxAtomicNumber)
	for z := 1; z <= MaxAtomicNumber; z++ {
		m[symbols[z]] = Element(z)
	}
	return m
}()

// ElementFromSymbol resolves a capitalized element symbol ("C", "Cl").  The
// wildcard "*" resolves to Unknown.  The second result is false when the
// symbol is not in the table.
func ElementFromSymbol(symbol string) (Element, bool) {
	if symbol == "*" {
		return Unknown, true
	}
	e, ok := bySymbol[symbol]
	return e, ok
}

// ElementFromAtomicNumber returns the element with atomic number z.
func ElementFromAtomicNumber(z int) (Element, bool) {
	if z < 0 || z > MaxAtomicNumber {
		return Unknown, false
	}
	return Element(z), true
}

// aromaticSymbols is the set of lowercase symbols allowed for aromatic atoms.
var aromaticSymbols = map[string]Element{
	"b":  Boron,
	"c":  Carbon,
	"n":  Nitrogen,
	"o":  Oxygen,
	"p":  Phosphorus,
	"s":  Sulfur,
	"se": Selenium,
	"as": Arsenic,
	"te": Tellurium,
}

// AromaticElementFromSymbol resolves a lowercase aromatic symbol ("c", "se").
func AromaticElementFromSymbol(symbol string) (Element, bool) {
	e, ok := aromaticSymbols[symbol]
	return e, ok
}

// AtomicNumber returns the atomic number, 0 for Unknown.
func (e Element) AtomicNumber() int { return int(e) }

// Valid reports whether e is Unknown or a real element.
func (e Element) Valid() bool { return int(e) <= MaxAtomicNumber }

// Symbol returns the capitalized symbol, "*" for Unknown.
func (e Element) Symbol() string {
	if !e.Valid() {
		return "?"
	}
	return symbols[e]
}

// AromaticSymbol returns the lowercase form of the symbol.
func (e Element) AromaticSymbol() string {
	return strings.ToLower(e.Symbol())
}

func (e Element) String() string { return e.Symbol() }

// MostCommonIsotope returns the mass number of the element's most abundant
// isotope, or 0 for Unknown.
func (e Element) MostCommonIsotope() int {
	if !e.Valid() {
		return 0
	}
	return int(commonIsotopes[e])
}

// Period returns the periodic-table row, 0 for Unknown.
func (e Element) Period() int {
	z := int(e)
	if z == 0 || z > MaxAtomicNumber {
		return 0
	}
	for p := 1; p < len(nobleCores); p++ {
		if z <= nobleCores[p] {
			return p
		}
	}
	return 0
}

// Group returns the IUPAC group (1-18).  Lanthanides and actinides after La
// and Ac report 0 since they sit outside the 18 columns.
func (e Element) Group() int {
	z := int(e)
	p := e.Period()
	if p == 0 {
		return 0
	}
	pos := z - nobleCores[p-1] // 1-based position within the period
	switch p {
	case 1:
		if z == 1 {
			return 1
		}
		return 18
	case 2, 3:
		if pos <= 2 {
			return pos
		}
		return pos + 10
	case 4, 5:
		return pos
	default:
		switch {
		case pos <= 3:
			return pos
		case pos <= 17:
			return 0
		default:
			return pos - 14
		}
	}
}

// ValenceElectrons returns the number of electrons outside the preceding
// noble-gas core.  Transition metals therefore report their d electrons too.
func (e Element) ValenceElectrons() int {
	p := e.Period()
	if p == 0 {
		return 0
	}
	return int(e) - nobleCores[p-1]
}

// mainGroupElectrons returns the s+p valence electron count of a main-group
// element and false for transition, inner-transition and unknown elements.
func (e Element) mainGroupElectrons() (int, bool) {
	if e == Hydrogen {
		return 1, true
	}
	g := e.Group()
	switch {
	case g == 1 || g == 2:
		return g, true
	case g >= 13 && g <= 18:
		if e.Period() == 1 {
			return 2, true
		}
		return g - 10, true
	default:
		return 0, false
	}
}

// DefaultValence is the number of bonds (hydrogens included) the element forms
// in its neutral, uncharged state: the valence electron count up to four, and
// eight minus that count beyond.  Elements without a conventional valence
// (transition metals, noble gases, Unknown) report 0.
func (e Element) DefaultValence() int {
	return e.chargedValence(0)
}

// chargedValence is DefaultValence adjusted for a formal charge, so that N+
// bonds four times and O- once.
func (e Element) chargedValence(charge int) int {
	ve, ok := e.mainGroupElectrons()
	if !ok {
		return 0
	}
	if e == Hydrogen {
		if charge != 0 {
			return 0
		}
		return 1
	}
	if ve == 8 || (e.Period() == 1 && ve == 2) {
		return 0
	}
	ve -= charge
	switch {
	case ve < 0 || ve > 8:
		return 0
	case ve <= 4:
		return ve
	default:
		return 8 - ve
	}
}

// IsOrganicSubset reports whether the element may be written outside brackets
// in line notation.
func (e Element) IsOrganicSubset() bool {
	switch e {
	case Boron, Carbon, Nitrogen, Oxygen, Phosphorus, Sulfur, Fluorine, Chlorine, Bromine, Iodine:
		return true
	}
	return false
}

//Personal.AI order the ending
