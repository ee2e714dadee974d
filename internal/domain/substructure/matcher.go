package substructure

import (
	"context"
	"errors"

	"github.com/turtacn/KeyIP-Chem/internal/domain/molecule"
)

// ErrStepBudgetExceeded is returned when a search tries more candidate
// bindings than its budget allows.  It is distinct from a "no match" result.
var ErrStepBudgetExceeded = errors.New("substructure: step budget exceeded")

// ctxCheckInterval is how many steps pass between context checks.
const ctxCheckInterval = 256

// MatchOption customizes a Matcher.
type MatchOption func(*Matcher)

// WithStepBudget caps the number of candidate bindings one Match call may try,
// nested recursive searches included.  Zero or less means unlimited.
func WithStepBudget(steps int64) MatchOption {
	return func(m *Matcher) { m.budget = steps }
}

// Matcher runs programs against graphs under a step budget.  It is stateless
// between calls and safe for concurrent use.
type Matcher struct {
	budget int64
}

// NewMatcher builds a matcher with the given options.
func NewMatcher(opts ...MatchOption) *Matcher {
	m := &Matcher{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Result describes a finished search.
type Result struct {
	Matched bool
	// Atoms holds the target atom bound to each pattern atom, in pattern
	// order, when Matched is set.
	Atoms []int
	// Steps is the number of candidate bindings tried.
	Steps int64
}

// Match reports whether p embeds in g.  The search is depth-first over target
// atoms and bonds in ascending index order and stops at the first complete
// embedding.  A cancelled context or an exhausted budget aborts the search
// with an error.
func (m *Matcher) Match(ctx context.Context, p *Program, g *molecule.Graph) (Result, error) {
	b := &budget{ctx: ctx, limit: m.budget}
	st := newMatchState(p, g, g.Rings(), b, make(map[memoKey]bool))
	ok := st.search(0)
	res := Result{Steps: b.steps}
	if b.err != nil {
		return res, b.err
	}
	if ok {
		res.Matched = true
		res.Atoms = make([]int, 0, p.atoms)
		for i, n := range p.nodes {
			if n.Op != OpCloseRing {
				res.Atoms = append(res.Atoms, st.atoms[i])
			}
		}
	}
	return res, nil
}

var unlimited = NewMatcher()

// Match reports whether the program embeds in g, with no budget and no
// deadline.
func (p *Program) Match(g *molecule.Graph) bool {
	res, _ := unlimited.Match(context.Background(), p, g)
	return res.Matched
}

// MatchContext is Match with cancellation and an optional step budget.
func (p *Program) MatchContext(ctx context.Context, g *molecule.Graph, opts ...MatchOption) (bool, error) {
	res, err := NewMatcher(opts...).Match(ctx, p, g)
	return res.Matched, err
}

type budget struct {
	ctx   context.Context
	limit int64
	steps int64
	err   error
}

func (b *budget) tick() bool {
	if b.err != nil {
		return false
	}
	b.steps++
	if b.limit > 0 && b.steps > b.limit {
		b.err = ErrStepBudgetExceeded
		return false
	}
	if b.steps%ctxCheckInterval == 0 && b.ctx != nil {
		if err := b.ctx.Err(); err != nil {
			b.err = err
			return false
		}
	}
	return true
}

type memoKey struct {
	prog *Program
	atom int
}

type matchState struct {
	prog     *Program
	env      atomEnv
	atoms    []int // program index -> target atom
	bonds    []int // program index -> target bond
	atomUsed []bool
	bondUsed []bool
	fixed    int
	budget   *budget
	memo     map[memoKey]bool
}

func newMatchState(p *Program, g *molecule.Graph, rings *molecule.RingInfo, b *budget, memo map[memoKey]bool) *matchState {
	st := &matchState{
		prog:     p,
		atoms:    make([]int, len(p.nodes)),
		bonds:    make([]int, len(p.nodes)),
		atomUsed: make([]bool, g.NumAtoms()),
		bondUsed: make([]bool, g.NumBonds()),
		fixed:    -1,
		budget:   b,
		memo:     memo,
	}
	for i := range st.atoms {
		st.atoms[i], st.bonds[i] = -1, -1
	}
	st.env = atomEnv{g: g, rings: rings, st: st}
	return st
}

func (st *matchState) search(pos int) bool {
	if pos == len(st.prog.nodes) {
		return true
	}
	g := st.env.g
	n := &st.prog.nodes[pos]

	switch n.Op {
	case OpSeedAtom:
		lo, hi := 0, g.NumAtoms()
		if pos == 0 && st.fixed >= 0 {
			lo, hi = st.fixed, st.fixed+1
		}
		for a := lo; a < hi; a++ {
			if st.atomUsed[a] {
				continue
			}
			if !st.budget.tick() {
				return false
			}
			if !n.Atom.matchAtom(&st.env, a) {
				if st.budget.err != nil {
					return false
				}
				continue
			}
			st.bindAtom(pos, a)
			if st.search(pos + 1) {
				return true
			}
			st.unbindAtom(pos, a)
			if st.budget.err != nil {
				return false
			}
		}

	case OpGrowBond:
		src := st.atoms[n.From]
		for _, bi := range g.IncidentBonds(src) {
			if st.bondUsed[bi] {
				continue
			}
			dst := g.Neighbor(src, bi)
			if st.atomUsed[dst] {
				continue
			}
			if !st.budget.tick() {
				return false
			}
			if !n.Bond.matchBond(g.Bond(bi), st.env.rings.BondInRing(bi)) {
				continue
			}
			if !n.Atom.matchAtom(&st.env, dst) {
				if st.budget.err != nil {
					return false
				}
				continue
			}
			st.bindAtom(pos, dst)
			st.bindBond(pos, bi)
			if st.search(pos + 1) {
				return true
			}
			st.unbindBond(pos, bi)
			st.unbindAtom(pos, dst)
			if st.budget.err != nil {
				return false
			}
		}

	case OpCloseRing:
		bi, ok := g.BondBetween(st.atoms[n.From], st.atoms[n.To])
		if !ok || st.bondUsed[bi] {
			return false
		}
		if !st.budget.tick() {
			return false
		}
		if !n.Bond.matchBond(g.Bond(bi), st.env.rings.BondInRing(bi)) {
			return false
		}
		st.bindBond(pos, bi)
		if st.search(pos + 1) {
			return true
		}
		st.unbindBond(pos, bi)
	}
	return false
}

func (st *matchState) bindAtom(pos, a int) {
	st.atoms[pos] = a
	st.atomUsed[a] = true
}

func (st *matchState) unbindAtom(pos, a int) {
	st.atoms[pos] = -1
	st.atomUsed[a] = false
}

func (st *matchState) bindBond(pos, b int) {
	st.bonds[pos] = b
	st.bondUsed[b] = true
}

func (st *matchState) unbindBond(pos, b int) {
	st.bonds[pos] = -1
	st.bondUsed[b] = false
}

// recursive evaluates a $(...) predicate: the sub-program must embed with its
// first atom bound to atom.  Results are memoized per call since they depend
// only on the sub-program and the atom.
func (st *matchState) recursive(p *Program, atom int) bool {
	if st.budget.err != nil || p == nil {
		return false
	}
	key := memoKey{prog: p, atom: atom}
	if v, ok := st.memo[key]; ok {
		return v
	}
	sub := newMatchState(p, st.env.g, st.env.rings, st.budget, st.memo)
	sub.fixed = atom
	ok := sub.search(0)
	if st.budget.err == nil {
		st.memo[key] = ok
	}
	return ok
}

//Personal.AI order the ending
