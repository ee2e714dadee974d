package substructure

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/KeyIP-Chem/internal/domain/molecule"
)

func mustGraph(t *testing.T, smiles string) *molecule.Graph {
	t.Helper()
	g, err := molecule.ParseSMILES(smiles)
	require.NoError(t, err, smiles)
	return g
}

func mustProgram(t *testing.T, pattern string) *Program {
	t.Helper()
	p, err := Compile(pattern)
	require.NoError(t, err, pattern)
	return p
}

type matchCase struct {
	pattern string
	smiles  string
	want    bool
}

func runMatchCases(t *testing.T, cases []matchCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.pattern+"~"+tc.smiles, func(t *testing.T) {
			p := mustProgram(t, tc.pattern)
			g := mustGraph(t, tc.smiles)
			assert.Equal(t, tc.want, p.Match(g))
		})
	}
}

func TestMatch_Elements(t *testing.T) {
	runMatchCases(t, []matchCase{
		{"[#6]", "CCO", true},
		{"[#7]", "CCO", false},
		{"O", "CCO", true},
		{"N", "CCO", false},
		{"[#6]", "c1ccccc1", true},
		{"C", "c1ccccc1", false},
		{"c", "c1ccccc1", true},
		{"a", "n1ccccc1", true},
		{"A", "c1ccccc1", false},
		{"Cl", "CCCl", true},
		{"[Na]", "[Na+].[Cl-]", true},
		{"*", "[Xe]", true},
	})
}

func TestMatch_Precedence(t *testing.T) {
	runMatchCases(t, []matchCase{
		{"[C,N;+]", "C", false},
		{"[C,N;+]", "[NH4+]", true},
		{"[C,N;+]", "[OH3+]", false},
		{"[C,N;+]", "[CH3+]", true},
		{"[C,N&+]", "C", true},
		{"[C,N&+]", "N", false},
		{"[C,N&+]", "[NH4+]", true},
		{"[!C;!c]", "c1ccccc1", false},
		{"[!C;!c]", "CCO", true},
	})
}

func TestMatch_Isotopes(t *testing.T) {
	runMatchCases(t, []matchCase{
		{"[12*]", "C", true},
		{"[12*]", "[CH4]", true},
		{"[12*]", "[12CH4]", true},
		{"[12*]", "[13CH4]", true},
		{"[13*]", "C", false},
		{"[13*]", "[CH4]", false},
		{"[13*]", "[12CH4]", false},
		{"[13*]", "[13CH4]", true},
		{"[2H]", "[2H]O[2H]", true},
		{"[2H]", "[H]O[H]", false},
	})
}

func TestMatch_Counts(t *testing.T) {
	runMatchCases(t, []matchCase{
		{"[D4]", "CC(C)(C)C", true},
		{"[D4]", "CCC", false},
		{"[CH3]", "CCO", true},
		{"[OH5]", "CCO", true},
		{"[OH]", "CCO", false},
		{"[OH5]", "COC", false},
		{"[OH4]", "COC", true},
		{"[NH]", "C[N+](C)(C)C", true},
		{"[X4]", "C", true},
		{"[v4]", "C", true},
		{"[v5]", "N", true},
		{"[v3]", "N", false},
		{"[+]", "[NH4+]", true},
		{"[-]", "[Cl-]", true},
		{"[-2]", "[O--]", true},
		{"[--]", "[O-2]", true},
		{"[+0]", "[NH4+]", false},
	})
}

func TestMatch_Rings(t *testing.T) {
	runMatchCases(t, []matchCase{
		{"[R]", "CC1CC1", true},
		{"[R]", "CCCC", false},
		{"[R0]", "CC1CC1", true},
		{"[R0]", "C1CC1", false},
		{"[r3]", "CC1CC1", true},
		{"[r5]", "CC1CC1", false},
		{"[R2]", "c1ccc2ccccc2c1", true},
		{"[R2]", "c1ccccc1", false},
		{"[x3]", "c1ccc2ccccc2c1", true},
		{"C@C", "C1CC1", true},
		{"C@C", "CC", false},
		{"C!@C", "CC1CC1", true},
		{"C!@C", "C1CC1", false},
		{"C1CCCCC1", "C1CCCCC1", true},
		{"C1CCCCC1", "CCCCCC", false},
		{"C1CCCCC1", "c1ccccc1", false},
		{"c1ccccc1", "c1ccccc1", true},
		{"c1ccccc1", "n1ccccc1", false},
		{"a1aaaaa1", "n1ccccc1", true},
	})
}

func TestMatch_Bonds(t *testing.T) {
	runMatchCases(t, []matchCase{
		{"C=C", "C=C", true},
		{"C=C", "CC", false},
		{"C#N", "CC#N", true},
		{"C~O", "C=O", true},
		{"CO", "C=O", false},
		{"c:c", "c1ccccc1", true},
		{"cc", "c1ccccc1", true},
		{"c=c", "c1ccccc1", false},
		{"c-c", "c1ccccc1", false},
		{"c-c", "c1ccccc1-c1ccccc1", true},
		{"F/C", "F/C=C/F", true},
		{`F\C`, "F/C=C/F", false},
		{"F/?C", "FC", true},
		{"C=,#C", "C#C", true},
		{"C=;@C", "C=C", false},
	})
}

func TestMatch_HybridizationAndChirality(t *testing.T) {
	runMatchCases(t, []matchCase{
		{"[^1]", "CC#N", true},
		{"[^2]", "C=C", true},
		{"[^2]", "c1ccccc1", true},
		{"[^3]", "CC", true},
		{"[^1]", "CC", false},
		{"[C@@]", "[C@@H](F)(Cl)Br", true},
		{"[C@]", "[C@@H](F)(Cl)Br", false},
		{"[C@?]", "CC", true},
		{"[C@?]", "[C@@H](F)(Cl)Br", false},
	})
}

func TestMatch_Recursive(t *testing.T) {
	runMatchCases(t, []matchCase{
		{"[C;$(C=O)]", "CC(=O)O", true},
		{"[C;$(C=O)]", "CCO", false},
		{"[N;$(NC=O)]", "CC(=O)N", true},
		{"[N;$(NC=O)]", "CCN", false},
		{"[$([OD1]-C=O)]", "CC(=O)O", true},
		{"[$([OD1]-C=O)]", "CCO", false},
		{"[$([C;$(C=O)]O)]", "CC(=O)O", true},
		{"[$([C;$(C=O)]O)]", "OCC=O", false},
		{"[$(*~[#7]),$(*~[#8])]C", "NCC", true},
		{"[!$(C=O)]O", "CC(=O)O", false},
	})
}

func TestMatch_Disconnected(t *testing.T) {
	runMatchCases(t, []matchCase{
		{"C.O", "CCO", true},
		{"C.C.C", "CC", false},
		{"O.O", "CCO", false},
		{"[Na+].[Cl-]", "[Cl-].[Na+]", true},
	})
}

func TestMatcher_ReportsBinding(t *testing.T) {
	p := mustProgram(t, "CO")
	g := mustGraph(t, "CCO")

	res, err := NewMatcher().Match(context.Background(), p, g)
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Equal(t, []int{1, 2}, res.Atoms)
	assert.Greater(t, res.Steps, int64(0))

	again, err := NewMatcher().Match(context.Background(), p, g)
	require.NoError(t, err)
	assert.Equal(t, res, again)
}

func TestMatcher_NoMatchIsNotAnError(t *testing.T) {
	res, err := NewMatcher(WithStepBudget(1000)).Match(context.Background(), mustProgram(t, "N"), mustGraph(t, "CCO"))
	require.NoError(t, err)
	assert.False(t, res.Matched)
	assert.Nil(t, res.Atoms)
}

func TestMatcher_StepBudget(t *testing.T) {
	p := mustProgram(t, "CCCCCCCCCC")
	g := mustGraph(t, strings.Repeat("C", 20))

	res, err := NewMatcher(WithStepBudget(3)).Match(context.Background(), p, g)
	assert.True(t, errors.Is(err, ErrStepBudgetExceeded))
	assert.False(t, res.Matched)

	ok, err := p.MatchContext(context.Background(), g)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMatcher_StepBudgetCoversRecursion(t *testing.T) {
	p := mustProgram(t, "[$(CCCCCCCCCC)]")
	g := mustGraph(t, strings.Repeat("C", 20))

	_, err := p.MatchContext(context.Background(), g, WithStepBudget(2))
	assert.True(t, errors.Is(err, ErrStepBudgetExceeded))
	assert.True(t, p.Match(g))
}

func TestMatcher_Cancelled(t *testing.T) {
	p := mustProgram(t, "CCCCCCCCCCN")
	g := mustGraph(t, strings.Repeat("C", 300))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.MatchContext(ctx, g)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestMatcher_ConcurrentUse(t *testing.T) {
	patterns := []*Program{
		mustProgram(t, "c1ccccc1"),
		mustProgram(t, "[C;$(C=O)]O"),
		mustProgram(t, "[#7]"),
		mustProgram(t, "[R2]"),
	}
	graphs := []*molecule.Graph{
		mustGraph(t, "c1ccc2ccccc2c1"),
		mustGraph(t, "CC(=O)O"),
		mustGraph(t, "n1ccccc1"),
	}
	want := [][]bool{
		{true, false, false},
		{false, true, false},
		{false, false, true},
		{true, false, false},
	}

	m := NewMatcher(WithStepBudget(10000))
	var eg errgroup.Group
	for round := 0; round < 16; round++ {
		for i, p := range patterns {
			for j, g := range graphs {
				i, j, p, g := i, j, p, g
				eg.Go(func() error {
					res, err := m.Match(context.Background(), p, g)
					if err != nil {
						return err
					}
					if res.Matched != want[i][j] {
						return errors.New(p.Source() + " gave an unexpected result")
					}
					return nil
				})
			}
		}
	}
	require.NoError(t, eg.Wait())
}

//Personal.AI order the ending
