package substructure

import (
	"errors"
	"fmt"

	"github.com/turtacn/KeyIP-Chem/internal/domain/molecule"
)

// CompileError reports a pattern-specific failure: a malformed bracket
// expression, an operator with a missing operand, or an unterminated
// recursive sub-pattern.  Lexical, end-of-input and structural problems use
// the molecule package's error types so both notations report alike.
type CompileError struct{ molecule.ParseError }

func compileErrorf(offset int, cause error, format string, args ...interface{}) error {
	return &CompileError{molecule.ParseError{Message: fmt.Sprintf(format, args...), Offset: offset, Cause: cause}}
}

// ErrorOffset returns the input offset carried by a compile or parse failure.
func ErrorOffset(err error) (int, bool) {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Offset, true
	}
	return molecule.ErrorOffset(err)
}

// DefaultMaxNestingDepth bounds both branch nesting and $(...) nesting.
const DefaultMaxNestingDepth = molecule.DefaultMaxNestingDepth

// CompilerOption customizes a Compiler.
type CompilerOption func(*Compiler)

// WithMaxNestingDepth sets the deepest branch or recursive nesting accepted.
func WithMaxNestingDepth(depth int) CompilerOption {
	return func(c *Compiler) {
		if depth > 0 {
			c.maxDepth = depth
		}
	}
}

// Compiler turns pattern text into Programs.  It holds only limits and may be
// shared.
type Compiler struct {
	maxDepth int
}

// NewCompiler builds a compiler with the given options.
func NewCompiler(opts ...CompilerOption) *Compiler {
	c := &Compiler{maxDepth: DefaultMaxNestingDepth}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultCompiler = NewCompiler()

// Compile compiles pattern with the default limits.
func Compile(pattern string) (*Program, error) {
	return defaultCompiler.Compile(pattern)
}

// Compile compiles pattern.
func (c *Compiler) Compile(pattern string) (*Program, error) {
	cs := &compileState{maxDepth: c.maxDepth, sc: molecule.NewScanner(pattern)}
	return cs.program(0)
}

type compileState struct {
	maxDepth int
	sc       *molecule.Scanner
}

type patternRing struct {
	node   int
	bond   *Expr
	offset int
}

// program compiles until end of input, or, for a recursive sub-pattern
// (depth > 0), until the ')' closing it.
func (cs *compileState) program(depth int) (*Program, error) {
	sc := cs.sc
	src := sc.Source()
	start := sc.Cursor()
	end := -1
	p := &Program{}

	prev := -1
	var branches, opens []int
	rings := make(map[int]patternRing)

loop:
	for {
		c, ok := sc.Peek()
		if !ok {
			if depth > 0 {
				return nil, compileErrorf(start, molecule.NewUnexpectedEndError(sc.Cursor(), "input ended"),
					"unterminated recursive pattern")
			}
			break
		}
		switch c {
		case '(':
			if prev < 0 {
				return nil, molecule.NewStructuralError(sc.Cursor(), "branch opened with no preceding atom")
			}
			if len(branches) >= cs.maxDepth {
				return nil, molecule.NewStructuralError(sc.Cursor(), fmt.Sprintf("branch nesting exceeds limit %d", cs.maxDepth))
			}
			branches = append(branches, prev)
			opens = append(opens, sc.Cursor())
			sc.Pop()
			continue
		case ')':
			if len(branches) == 0 {
				if depth > 0 {
					end = sc.Cursor()
					sc.Pop()
					break loop
				}
				return nil, molecule.NewStructuralError(sc.Cursor(), "unbalanced ')'")
			}
			n := len(branches) - 1
			prev = branches[n]
			branches, opens = branches[:n], opens[:n]
			sc.Pop()
			continue
		case '.':
			if len(branches) > 0 {
				return nil, molecule.NewStructuralError(sc.Cursor(), "fragment separator inside a branch")
			}
			prev = -1
			sc.Pop()
			continue
		case ']':
			if depth > 0 {
				return nil, unclosedRecursion(start, sc.Cursor())
			}
		case '$':
			if next, _ := sc.PeekAt(1); next == '(' {
				return nil, compileErrorf(sc.Cursor(), nil, "recursive pattern $(...) must be written inside a bracket atom")
			}
		}

		bondOff := sc.Cursor()
		bond, err := cs.bondExpr()
		if err != nil {
			return nil, err
		}
		c, ok = sc.Peek()
		if !ok {
			return nil, molecule.NewUnexpectedEndError(sc.Cursor(), "pattern ends after a bond expression")
		}
		if c == ']' && depth > 0 {
			return nil, unclosedRecursion(start, sc.Cursor())
		}

		if isDigit(c) || c == '%' {
			num, off, err := cs.ringNumber()
			if err != nil {
				return nil, err
			}
			if prev < 0 {
				return nil, molecule.NewStructuralError(off, fmt.Sprintf("ring closure %d with no preceding atom", num))
			}
			open, pending := rings[num]
			if !pending {
				rings[num] = patternRing{node: prev, bond: bond, offset: off}
				continue
			}
			delete(rings, num)
			if open.node == prev {
				return nil, molecule.NewStructuralError(off, fmt.Sprintf("ring %d closes on its own atom", num))
			}
			p.emit(Node{Op: OpCloseRing, From: open.node, To: prev, Bond: ringBond(open.bond, bond)})
			continue
		}

		if bond != nil {
			if prev < 0 {
				return nil, molecule.NewStructuralError(bondOff, "bond expression with no preceding atom")
			}
			if c == '(' || c == ')' || c == '.' {
				return nil, molecule.NewStructuralError(bondOff, "bond expression with no following atom")
			}
		}
		atom, err := cs.atomExpr(depth)
		if err != nil {
			return nil, err
		}
		if prev < 0 {
			prev = p.emit(Node{Op: OpSeedAtom, Atom: atom})
			continue
		}
		if bond == nil {
			bond = leaf(BondDefault, 0)
		}
		prev = p.emit(Node{Op: OpGrowBond, From: prev, Atom: atom, Bond: bond})
	}

	if len(branches) > 0 {
		return nil, molecule.NewStructuralError(opens[len(opens)-1], "unbalanced '('")
	}
	if len(rings) > 0 {
		first, num := -1, 0
		for n, r := range rings {
			if first < 0 || r.offset < first {
				first, num = r.offset, n
			}
		}
		return nil, molecule.NewStructuralError(first, fmt.Sprintf("ring %d is never closed", num))
	}
	if end < 0 {
		end = sc.Cursor()
	}
	if p.atoms == 0 {
		return nil, compileErrorf(start, nil, "empty pattern")
	}
	p.source = src[start:end]
	return p, nil
}

// unclosedRecursion reports a bracket closed before the recursive pattern
// opened at start.
func unclosedRecursion(start, at int) error {
	return compileErrorf(start, nil, "unterminated recursive pattern: ']' at offset %d before ')'", at)
}

func ringBond(open, close *Expr) *Expr {
	switch {
	case open == nil && close == nil:
		return leaf(BondDefault, 0)
	case open == nil:
		return close
	case close == nil:
		return open
	}
	return binary(ExprAndHigh, open, close)
}

func (cs *compileState) ringNumber() (int, int, error) {
	sc := cs.sc
	off := sc.Cursor()
	c, _ := sc.Pop()
	if c != '%' {
		return int(c - '0'), off, nil
	}
	n, digits := popDigits(sc, 2)
	if digits == 2 {
		return n, off, nil
	}
	if sc.IsDone() {
		return 0, off, molecule.NewUnexpectedEndError(sc.Cursor(), "ring label '%' needs two digits")
	}
	return 0, off, molecule.NewStructuralError(off, "ring label '%' needs two digits")
}

// ─────────────────────────────────────────────────────────────────────────────
// Bond expressions
// ─────────────────────────────────────────────────────────────────────────────

func isBondPrimitive(c byte) bool {
	switch c {
	case '-', '=', '#', '$', ':', '~', '@', '/', '\\', '!':
		return true
	}
	return false
}

// bondExpr parses an optional bond expression.  It returns nil when the cursor
// is not on a bond symbol.
func (cs *compileState) bondExpr() (*Expr, error) {
	c, ok := cs.sc.Peek()
	if !ok || !isBondPrimitive(c) {
		return nil, nil
	}
	return cs.bondLow()
}

func (cs *compileState) bondLow() (*Expr, error) {
	left, err := cs.bondOr()
	if err != nil {
		return nil, err
	}
	for popIf(cs.sc, ';') {
		right, err := cs.bondOr()
		if err != nil {
			return nil, err
		}
		left = binary(ExprAndLow, left, right)
	}
	return left, nil
}

func (cs *compileState) bondOr() (*Expr, error) {
	left, err := cs.bondHigh()
	if err != nil {
		return nil, err
	}
	for popIf(cs.sc, ',') {
		right, err := cs.bondHigh()
		if err != nil {
			return nil, err
		}
		left = binary(ExprOr, left, right)
	}
	return left, nil
}

func (cs *compileState) bondHigh() (*Expr, error) {
	left, err := cs.bondNot()
	if err != nil {
		return nil, err
	}
	for {
		c, ok := cs.sc.Peek()
		if !ok {
			return left, nil
		}
		switch {
		case c == '&':
			cs.sc.Pop()
		case isBondPrimitive(c):
		default:
			return left, nil
		}
		right, err := cs.bondNot()
		if err != nil {
			return nil, err
		}
		left = binary(ExprAndHigh, left, right)
	}
}

func (cs *compileState) bondNot() (*Expr, error) {
	if popIf(cs.sc, '!') {
		inner, err := cs.bondNot()
		if err != nil {
			return nil, err
		}
		return &Expr{Kind: ExprNot, Left: inner}, nil
	}
	return cs.bondPrimitive()
}

func (cs *compileState) bondPrimitive() (*Expr, error) {
	sc := cs.sc
	off := sc.Cursor()
	c, ok := sc.Pop()
	if !ok {
		return nil, molecule.NewUnexpectedEndError(off, "pattern ends inside a bond expression")
	}
	switch c {
	case '-':
		return leaf(BondSingle, 0), nil
	case '=':
		return leaf(BondDouble, 0), nil
	case '#':
		return leaf(BondTriple, 0), nil
	case '$':
		return leaf(BondQuadruple, 0), nil
	case ':':
		return leaf(BondAromatic, 0), nil
	case '~':
		return leaf(BondAny, 0), nil
	case '@':
		return leaf(BondRing, 0), nil
	case '/', '\\':
		kind := BondUp
		if c == '\\' {
			kind = BondDown
		}
		v := 0
		if popIf(sc, '?') {
			v = 1
		}
		return leaf(kind, v), nil
	}
	sc.Back()
	return nil, compileErrorf(off, nil, "expected a bond primitive, found %q", c)
}

// ─────────────────────────────────────────────────────────────────────────────
// Atom expressions
// ─────────────────────────────────────────────────────────────────────────────

func (cs *compileState) atomExpr(depth int) (*Expr, error) {
	sc := cs.sc
	off := sc.Cursor()
	c, _ := sc.Peek()
	if c != '[' {
		return cs.bareAtom()
	}
	sc.Pop()
	if popIf(sc, ']') {
		return nil, compileErrorf(off, nil, "empty bracket expression")
	}
	e, err := cs.atomLow(depth)
	if err != nil {
		return nil, err
	}
	if popIf(sc, ']') {
		return e, nil
	}
	if sc.IsDone() {
		return nil, compileErrorf(off, molecule.NewUnexpectedEndError(sc.Cursor(), "input ended"),
			"unterminated bracket expression")
	}
	bad, _ := sc.Peek()
	return nil, compileErrorf(sc.Cursor(), nil, "unexpected %q in bracket expression", bad)
}

func (cs *compileState) bareAtom() (*Expr, error) {
	sc := cs.sc
	off := sc.Cursor()
	c, _ := sc.Pop()
	switch c {
	case '*':
		return leaf(ExprTrue, 0), nil
	case 'a':
		return leaf(AtomAromatic, 0), nil
	case 'A':
		return leaf(AtomAliphatic, 0), nil
	case 'B':
		if popIf(sc, 'r') {
			return leaf(AtomAliphaticElement, int(molecule.Bromine)), nil
		}
		return leaf(AtomAliphaticElement, int(molecule.Boron)), nil
	case 'C':
		if popIf(sc, 'l') {
			return leaf(AtomAliphaticElement, int(molecule.Chlorine)), nil
		}
		return leaf(AtomAliphaticElement, int(molecule.Carbon)), nil
	case 'N', 'O', 'P', 'S', 'F', 'I':
		e, _ := molecule.ElementFromSymbol(string(c))
		return leaf(AtomAliphaticElement, int(e)), nil
	case 'b', 'c', 'n', 'o', 'p', 's':
		e, _ := molecule.AromaticElementFromSymbol(string(c))
		return leaf(AtomAromaticElement, int(e)), nil
	}
	sc.Back()
	return nil, molecule.NewLexicalError(off, fmt.Sprintf("unexpected character %q", c))
}

func (cs *compileState) atomLow(depth int) (*Expr, error) {
	left, err := cs.atomOr(depth)
	if err != nil {
		return nil, err
	}
	for popIf(cs.sc, ';') {
		right, err := cs.atomOr(depth)
		if err != nil {
			return nil, err
		}
		left = binary(ExprAndLow, left, right)
	}
	return left, nil
}

func (cs *compileState) atomOr(depth int) (*Expr, error) {
	left, err := cs.atomHigh(depth)
	if err != nil {
		return nil, err
	}
	for popIf(cs.sc, ',') {
		right, err := cs.atomHigh(depth)
		if err != nil {
			return nil, err
		}
		left = binary(ExprOr, left, right)
	}
	return left, nil
}

func (cs *compileState) atomHigh(depth int) (*Expr, error) {
	left, err := cs.atomNot(depth)
	if err != nil {
		return nil, err
	}
	for {
		c, ok := cs.sc.Peek()
		if !ok || c == ']' || c == ';' || c == ',' {
			return left, nil
		}
		if c == '&' {
			cs.sc.Pop()
		}
		right, err := cs.atomNot(depth)
		if err != nil {
			return nil, err
		}
		left = binary(ExprAndHigh, left, right)
	}
}

func (cs *compileState) atomNot(depth int) (*Expr, error) {
	if popIf(cs.sc, '!') {
		inner, err := cs.atomNot(depth)
		if err != nil {
			return nil, err
		}
		return &Expr{Kind: ExprNot, Left: inner}, nil
	}
	return cs.atomPrimitive(depth)
}

func (cs *compileState) atomPrimitive(depth int) (*Expr, error) {
	sc := cs.sc
	off := sc.Cursor()
	c, ok := sc.Peek()
	if !ok {
		return nil, compileErrorf(off, molecule.NewUnexpectedEndError(off, "input ended"),
			"unterminated bracket expression")
	}

	switch {
	case isDigit(c):
		n, _ := popDigits(sc, 0)
		return leaf(AtomIsotope, n), nil
	case isUpper(c):
		return cs.upperPrimitive()
	case isLower(c):
		return cs.lowerPrimitive()
	}

	sc.Pop()
	switch c {
	case '*':
		return leaf(ExprTrue, 0), nil
	case '#':
		n, digits := popDigits(sc, 0)
		if digits == 0 {
			if sc.IsDone() {
				return nil, molecule.NewUnexpectedEndError(sc.Cursor(), "'#' needs an atomic number")
			}
			return nil, compileErrorf(off, nil, "'#' needs an atomic number")
		}
		e, ok := molecule.ElementFromAtomicNumber(n)
		if !ok || e == molecule.Unknown {
			return nil, molecule.NewStructuralError(off, fmt.Sprintf("atomic number %d outside [1,%d]", n, molecule.MaxAtomicNumber))
		}
		return leaf(AtomElement, int(e)), nil
	case '+', '-':
		sign := 1
		if c == '-' {
			sign = -1
		}
		if n, digits := popDigits(sc, 0); digits > 0 {
			return leaf(AtomCharge, sign*n), nil
		}
		n := 1
		for popIf(sc, c) {
			n++
		}
		return leaf(AtomCharge, sign*n), nil
	case '@':
		v := chiralAnticlockwise
		if popIf(sc, '@') {
			v = chiralClockwise
		}
		if popIf(sc, '?') {
			v |= chiralOrUnspecified
		}
		return leaf(AtomChirality, v), nil
	case '^':
		n, digits := popDigits(sc, 0)
		if digits == 0 {
			return nil, compileErrorf(off, nil, "'^' needs a hybridization number")
		}
		return leaf(AtomHybridization, n), nil
	case '$':
		if !popIf(sc, '(') {
			return nil, compileErrorf(off, nil, "'$' must be followed by '('")
		}
		if depth+1 > cs.maxDepth {
			return nil, molecule.NewStructuralError(off, fmt.Sprintf("recursive pattern nesting exceeds limit %d", cs.maxDepth))
		}
		sub, err := cs.program(depth + 1)
		if err != nil {
			return nil, err
		}
		return &Expr{Kind: AtomRecursive, Recursive: sub}, nil
	case ']', ';', ',', '&', '!':
		sc.Back()
		return nil, compileErrorf(off, nil, "operator %q is missing an operand", c)
	}
	sc.Back()
	return nil, molecule.NewLexicalError(off, fmt.Sprintf("unexpected character %q in bracket expression", c))
}

// optCount reads an optional count, returning def when no digits follow.
func optCount(sc *molecule.Scanner, def int) int {
	if n, digits := popDigits(sc, 0); digits > 0 {
		return n
	}
	return def
}

func (cs *compileState) upperPrimitive() (*Expr, error) {
	sc := cs.sc
	off := sc.Cursor()
	c, _ := sc.Pop()
	if l, ok := sc.Peek(); ok && isLower(l) {
		if e, ok := molecule.ElementFromSymbol(string([]byte{c, l})); ok {
			sc.Pop()
			return leaf(AtomAliphaticElement, int(e)), nil
		}
	}
	switch c {
	case 'H':
		if cs.hydrogenIsElement(off) {
			return leaf(AtomAliphaticElement, int(molecule.Hydrogen)), nil
		}
		return leaf(AtomTotalH, optCount(sc, 1)), nil
	case 'D':
		return leaf(AtomDegree, optCount(sc, 1)), nil
	case 'R':
		return leaf(AtomRingCount, optCount(sc, anyCount)), nil
	case 'X':
		return leaf(AtomConnectivity, optCount(sc, 1)), nil
	case 'A':
		return leaf(AtomAliphatic, 0), nil
	}
	if e, ok := molecule.ElementFromSymbol(string(c)); ok {
		return leaf(AtomAliphaticElement, int(e)), nil
	}
	return nil, molecule.NewLexicalError(off, fmt.Sprintf("unknown symbol %q", c))
}

// hydrogenIsElement decides whether the 'H' at off names the element rather
// than a hydrogen count: only an isotope may precede it inside the bracket and
// only a charge or the closing bracket may follow.
func (cs *compileState) hydrogenIsElement(off int) bool {
	src := cs.sc.Source()
	i := off - 1
	for i >= 0 && isDigit(src[i]) {
		i--
	}
	if i < 0 || src[i] != '[' {
		return false
	}
	next, ok := cs.sc.Peek()
	return ok && (next == ']' || next == '+' || next == '-')
}

func (cs *compileState) lowerPrimitive() (*Expr, error) {
	sc := cs.sc
	off := sc.Cursor()
	c, _ := sc.Pop()
	if l, ok := sc.Peek(); ok && isLower(l) {
		if e, ok := molecule.AromaticElementFromSymbol(string([]byte{c, l})); ok {
			sc.Pop()
			return leaf(AtomAromaticElement, int(e)), nil
		}
	}
	switch c {
	case 'a':
		return leaf(AtomAromatic, 0), nil
	case 'r':
		return leaf(AtomRingSize, optCount(sc, anyCount)), nil
	case 'v':
		return leaf(AtomValence, optCount(sc, 1)), nil
	case 'x':
		return leaf(AtomRingBonds, optCount(sc, anyCount)), nil
	case 'h':
		return leaf(AtomImplicitH, optCount(sc, anyCount)), nil
	}
	if e, ok := molecule.AromaticElementFromSymbol(string(c)); ok {
		return leaf(AtomAromaticElement, int(e)), nil
	}
	return nil, molecule.NewLexicalError(off, fmt.Sprintf("unknown symbol %q", c))
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanner helpers
// ─────────────────────────────────────────────────────────────────────────────

func popIf(sc *molecule.Scanner, c byte) bool {
	if b, ok := sc.Peek(); ok && b == c {
		sc.Pop()
		return true
	}
	return false
}

func popDigits(sc *molecule.Scanner, max int) (value, n int) {
	for max <= 0 || n < max {
		c, ok := sc.Peek()
		if !ok || !isDigit(c) {
			break
		}
		sc.Pop()
		value = value*10 + int(c-'0')
		n++
	}
	return value, n
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }

func isLower(c byte) bool { return c >= 'a' && c <= 'z' }

//Personal.AI order the ending
