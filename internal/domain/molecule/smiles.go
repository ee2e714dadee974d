package molecule

import "strconv"

// DefaultMaxNestingDepth bounds branch nesting in line notation.
const DefaultMaxNestingDepth = 64

// ParserOption customizes a SMILESParser.
type ParserOption func(*SMILESParser)

// WithMaxNestingDepth sets the deepest branch nesting accepted.  Values <= 0
// keep the default.
func WithMaxNestingDepth(depth int) ParserOption {
	return func(p *SMILESParser) {
		if depth > 0 {
			p.maxDepth = depth
		}
	}
}

// SMILESParser turns line notation into a Graph.  A parser holds only its
// limits and may be shared across goroutines.
type SMILESParser struct {
	maxDepth int
}

// NewSMILESParser builds a parser with the given options.
func NewSMILESParser(opts ...ParserOption) *SMILESParser {
	p := &SMILESParser{maxDepth: DefaultMaxNestingDepth}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultParser = NewSMILESParser()

// ParseSMILES parses src with the default limits.
func ParseSMILES(src string) (*Graph, error) {
	return defaultParser.Parse(src)
}

// bondSpec is a bond symbol read ahead of the atom or ring digit it applies to.
type bondSpec struct {
	order    float64
	aromatic bool
	stereo   BondStereo
	offset   int
}

type openRing struct {
	atom   int
	bond   *bondSpec
	offset int
}

type smilesState struct {
	sc       *Scanner
	g        *Graph
	maxDepth int

	prev     int
	branches []int // attachment atoms
	opens    []int // offsets of '(' for error reporting
	rings    map[int]openRing

	aromaticFlip bool
}

// Parse converts src into a molecular graph.
func (p *SMILESParser) Parse(src string) (*Graph, error) {
	if src == "" {
		return nil, unexpectedEndf(0, "empty input")
	}
	st := &smilesState{
		sc:       NewScanner(src),
		g:        NewGraph(),
		maxDepth: p.maxDepth,
		prev:     -1,
		rings:    make(map[int]openRing),
	}
	if err := st.run(); err != nil {
		return nil, err
	}
	st.g.Finalize()
	return st.g, nil
}

func (st *smilesState) run() error {
	sc := st.sc
	for !sc.IsDone() {
		c, _ := sc.Peek()
		switch c {
		case '(':
			if st.prev < 0 {
				return structuralErrorf(sc.Cursor(), "branch opened with no preceding atom")
			}
			if len(st.branches) >= st.maxDepth {
				return structuralErrorf(sc.Cursor(), "branch nesting exceeds limit %d", st.maxDepth)
			}
			st.branches = append(st.branches, st.prev)
			st.opens = append(st.opens, sc.Cursor())
			sc.Pop()
			continue
		case ')':
			if len(st.branches) == 0 {
				return structuralErrorf(sc.Cursor(), "unbalanced ')'")
			}
			n := len(st.branches) - 1
			st.prev = st.branches[n]
			st.branches, st.opens = st.branches[:n], st.opens[:n]
			sc.Pop()
			continue
		case '.':
			if len(st.branches) > 0 {
				return structuralErrorf(sc.Cursor(), "fragment separator inside a branch")
			}
			st.prev = -1
			sc.Pop()
			continue
		}

		bond, err := st.readBond()
		if err != nil {
			return err
		}
		c, ok := sc.Peek()
		if !ok {
			return unexpectedEndf(sc.Cursor(), "input ends after a bond symbol")
		}
		if isDigit(c) || c == '%' {
			if err := st.ringClosure(bond); err != nil {
				return err
			}
			continue
		}
		if bond != nil && st.prev < 0 {
			return structuralErrorf(bond.offset, "bond symbol with no preceding atom")
		}
		if err := st.atom(bond); err != nil {
			return err
		}
	}

	if len(st.branches) > 0 {
		return structuralErrorf(st.opens[len(st.opens)-1], "unbalanced '('")
	}
	if len(st.rings) > 0 {
		first := -1
		var num int
		for n, r := range st.rings {
			if first < 0 || r.offset < first {
				first, num = r.offset, n
			}
		}
		return structuralErrorf(first, "ring %d is never closed", num)
	}
	return nil
}

func (st *smilesState) readBond() (*bondSpec, error) {
	c, ok := st.sc.Peek()
	if !ok {
		return nil, nil
	}
	b := &bondSpec{order: 1, offset: st.sc.Cursor()}
	switch c {
	case '-', '~':
	case '=':
		b.order = 2
	case '#':
		b.order = 3
	case '$':
		b.order = 4
	case ':':
		b.order, b.aromatic = 1.5, true
	case '/':
		b.stereo = StereoUp
	case '\\':
		b.stereo = StereoDown
	default:
		return nil, nil
	}
	st.sc.Pop()
	return b, nil
}

// ringNumber reads a single digit or a "%NN" ring label.
func (st *smilesState) ringNumber() (int, int, error) {
	sc := st.sc
	off := sc.Cursor()
	c, _ := sc.Pop()
	if c != '%' {
		return int(c - '0'), off, nil
	}
	n, digits := sc.popDigits(2)
	if digits == 2 {
		return n, off, nil
	}
	if sc.IsDone() {
		return 0, off, unexpectedEndf(sc.Cursor(), "ring label '%%' needs two digits")
	}
	return 0, off, structuralErrorf(off, "ring label '%%' needs two digits")
}

func (st *smilesState) ringClosure(bond *bondSpec) error {
	num, off, err := st.ringNumber()
	if err != nil {
		return err
	}
	if st.prev < 0 {
		return structuralErrorf(off, "ring closure %d with no preceding atom", num)
	}
	open, pending := st.rings[num]
	if !pending {
		st.rings[num] = openRing{atom: st.prev, bond: bond, offset: off}
		st.g.atoms[st.prev].Ring = true
		return nil
	}
	delete(st.rings, num)

	if open.atom == st.prev {
		return structuralErrorf(off, "ring %d closes on its own atom", num)
	}
	if _, dup := st.g.BondBetween(open.atom, st.prev); dup {
		return structuralErrorf(off, "ring %d duplicates an existing bond", num)
	}
	spec := bond
	switch {
	case spec == nil:
		spec = open.bond
	case open.bond != nil && (open.bond.order != spec.order || open.bond.aromatic != spec.aromatic):
		return structuralErrorf(off, "ring %d has conflicting bond symbols", num)
	}
	b := st.bondFor(open.atom, st.prev, spec)
	b.Ring = true
	st.g.atoms[st.prev].Ring = true
	return st.connect(open.atom, st.prev, b, off)
}

// bondFor builds the bond between two atoms from an optional explicit symbol.
// Without one, two aromatic atoms get an aromatic bond whose order alternates
// 1, 2, 1, ... across the parse.
func (st *smilesState) bondFor(a, b int, spec *bondSpec) Bond {
	if spec != nil {
		return Bond{Order: spec.order, Aromatic: spec.aromatic, Stereo: spec.stereo}
	}
	if st.g.atoms[a].Aromatic && st.g.atoms[b].Aromatic {
		st.aromaticFlip = !st.aromaticFlip
		order := 2.0
		if st.aromaticFlip {
			order = 1
		}
		return Bond{Order: order, Aromatic: true}
	}
	return Bond{Order: 1}
}

func (st *smilesState) connect(a, b int, bond Bond, off int) error {
	if _, err := st.g.AddBond(a, b, bond); err != nil {
		return structuralErrorf(off, "%v", err)
	}
	st.g.DeriveHydrogens(a)
	st.g.DeriveHydrogens(b)
	return nil
}

func (st *smilesState) atom(bond *bondSpec) error {
	sc := st.sc
	off := sc.Cursor()
	var (
		a   Atom
		err error
	)
	c, _ := sc.Peek()
	switch {
	case c == '[':
		a, err = st.bracketAtom()
	case c == '*':
		sc.Pop()
		a = Atom{Element: Unknown}
	default:
		a, err = st.organicAtom()
	}
	if err != nil {
		return err
	}

	idx := st.g.AddAtom(a)
	st.g.FillImplicitHydrogens(idx)
	if st.prev >= 0 {
		if err := st.connect(st.prev, idx, st.bondFor(st.prev, idx, bond), off); err != nil {
			return err
		}
	}
	st.prev = idx
	return nil
}

func (st *smilesState) organicAtom() (Atom, error) {
	sc := st.sc
	off := sc.Cursor()
	c, _ := sc.Pop()
	switch c {
	case 'B':
		if sc.popIf('r') {
			return Atom{Element: Bromine, ImplicitHydrogens: true}, nil
		}
		return Atom{Element: Boron, ImplicitHydrogens: true}, nil
	case 'C':
		if sc.popIf('l') {
			return Atom{Element: Chlorine, ImplicitHydrogens: true}, nil
		}
		return Atom{Element: Carbon, ImplicitHydrogens: true}, nil
	case 'N', 'O', 'P', 'S', 'F', 'I':
		e, _ := ElementFromSymbol(string(c))
		return Atom{Element: e, ImplicitHydrogens: true}, nil
	case 'b', 'c', 'n', 'o', 'p', 's':
		e, _ := AromaticElementFromSymbol(string(c))
		return Atom{Element: e, Aromatic: true, ImplicitHydrogens: true}, nil
	}
	sc.Back()
	return Atom{}, lexicalErrorf(off, "unexpected character %q", c)
}

func (st *smilesState) bracketAtom() (Atom, error) {
	sc := st.sc
	open := sc.Cursor()
	sc.Pop() // '['

	var a Atom
	if iso, n := sc.popDigits(0); n > 0 {
		if n > 3 {
			return a, structuralErrorf(open+1, "isotope has more than 3 digits")
		}
		a.Isotope = iso
	}

	if err := st.bracketSymbol(&a); err != nil {
		return a, err
	}
	if err := st.chirality(&a); err != nil {
		return a, err
	}
	if sc.popIf('H') {
		a.Hydrogens = 1
		if h, n := sc.popDigits(1); n > 0 {
			a.Hydrogens = h
		}
	}
	if err := st.charge(&a); err != nil {
		return a, err
	}
	if sc.popIf(':') {
		cls, n := sc.popDigits(0)
		if n == 0 {
			return a, st.expect("atom class digits")
		}
		a.Class = cls
	}
	if !sc.popIf(']') {
		return a, st.expect("']'")
	}
	return a, nil
}

// expect builds the error for a missing token at the cursor.
func (st *smilesState) expect(what string) error {
	c, ok := st.sc.Peek()
	if !ok {
		return unexpectedEndf(st.sc.Cursor(), "input ends inside a bracket atom, expected %s", what)
	}
	return lexicalErrorf(st.sc.Cursor(), "unexpected character %q, expected %s", c, what)
}

func (st *smilesState) bracketSymbol(a *Atom) error {
	sc := st.sc
	off := sc.Cursor()
	c, ok := sc.Peek()
	if !ok {
		return st.expect("element symbol")
	}
	switch {
	case c == '*':
		sc.Pop()
		a.Element = Unknown
		return nil
	case isUpper(c):
		sc.Pop()
		if l, ok := sc.Peek(); ok && isLower(l) {
			if e, ok := ElementFromSymbol(string([]byte{c, l})); ok {
				sc.Pop()
				a.Element = e
				return nil
			}
		}
		e, ok := ElementFromSymbol(string(c))
		if !ok {
			return lexicalErrorf(off, "unknown element symbol %q", string(c))
		}
		a.Element = e
		return nil
	case isLower(c):
		sc.Pop()
		if l, ok := sc.Peek(); ok && isLower(l) {
			if e, ok := AromaticElementFromSymbol(string([]byte{c, l})); ok {
				sc.Pop()
				a.Element, a.Aromatic = e, true
				return nil
			}
		}
		e, ok := AromaticElementFromSymbol(string(c))
		if !ok {
			return lexicalErrorf(off, "unknown aromatic symbol %q", string(c))
		}
		a.Element, a.Aromatic = e, true
		return nil
	}
	return lexicalErrorf(off, "unexpected character %q, expected element symbol", c)
}

var chiralClasses = map[string]int{"TH": 2, "AL": 2, "SP": 3, "TB": 20, "OH": 30}

func (st *smilesState) chirality(a *Atom) error {
	sc := st.sc
	off := sc.Cursor()
	if !sc.popIf('@') {
		return nil
	}
	if sc.popIf('@') {
		a.Chirality = ChiralityClockwise
		return nil
	}
	c1, ok1 := sc.PeekAt(0)
	c2, ok2 := sc.PeekAt(1)
	if !ok1 || !ok2 || !isUpper(c1) || !isUpper(c2) {
		a.Chirality = ChiralityAnticlockwise
		return nil
	}
	class := string([]byte{c1, c2})
	max, known := chiralClasses[class]
	if !known {
		a.Chirality = ChiralityAnticlockwise
		return nil
	}
	sc.Pop()
	sc.Pop()
	n, digits := sc.popDigits(2)
	if digits == 0 || n < 1 || n > max {
		return structuralErrorf(off, "chirality @%s needs a number in 1..%d", class, max)
	}
	switch {
	case class == "TH" && n == 1:
		a.Chirality = ChiralityAnticlockwise
	case class == "TH" && n == 2:
		a.Chirality = ChiralityClockwise
	default:
		a.Chirality = Chirality("@" + class + strconv.Itoa(n))
	}
	return nil
}

func (st *smilesState) charge(a *Atom) error {
	sc := st.sc
	off := sc.Cursor()
	c, ok := sc.Peek()
	if !ok || (c != '+' && c != '-') {
		return nil
	}
	sc.Pop()
	sign := 1
	if c == '-' {
		sign = -1
	}
	if sc.popIf(c) {
		a.Charge = 2 * sign
		return nil
	}
	n, digits := sc.popDigits(2)
	if digits == 0 {
		a.Charge = sign
		return nil
	}
	if n < 1 || n > 15 {
		return structuralErrorf(off, "charge %d out of range 1..15", n)
	}
	a.Charge = sign * n
	return nil
}

//Personal.AI order the ending
