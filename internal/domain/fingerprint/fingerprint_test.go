package fingerprint

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-Chem/internal/domain/molecule"
	"github.com/turtacn/KeyIP-Chem/internal/domain/substructure"
	"github.com/turtacn/KeyIP-Chem/pkg/errors"
)

func TestFingerprint_BitOperations(t *testing.T) {
	fp := New(TypeMACCS, 12)
	assert.Len(t, fp.Bits, 2)

	fp.SetBit(0)
	fp.SetBit(9)
	fp.SetBit(9)
	fp.SetBit(12)
	fp.SetBit(-1)

	assert.True(t, fp.GetBit(0))
	assert.True(t, fp.GetBit(9))
	assert.False(t, fp.GetBit(1))
	assert.False(t, fp.GetBit(12))
	assert.Equal(t, 2, fp.NumOnBits)
	assert.Equal(t, []int{0, 9}, fp.OnBits())
	assert.Equal(t, "0102", fp.Hex())
}

func TestFromBytes(t *testing.T) {
	fp, err := FromBytes(TypeMACCS, []byte{0xff, 0x01}, 9)
	require.NoError(t, err)
	assert.Equal(t, 9, fp.NumOnBits)
	assert.True(t, fp.GetBit(8))

	_, err = FromBytes(TypeMACCS, []byte{0xff}, 9)
	assert.True(t, errors.IsValidation(err))
}

func TestSimilarity(t *testing.T) {
	a := New(TypeMACCS, 16)
	b := New(TypeMACCS, 16)
	for _, i := range []int{1, 2, 3, 4} {
		a.SetBit(i)
	}
	for _, i := range []int{3, 4, 5, 6} {
		b.SetBit(i)
	}

	s, err := Tanimoto(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/6.0, s, 1e-12)

	s, err = Dice(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, s, 1e-12)

	s, err = Similarity(MetricTanimoto, a, a)
	require.NoError(t, err)
	assert.Equal(t, 1.0, s)

	s, err = Tanimoto(New(TypeMACCS, 16), New(TypeMACCS, 16))
	require.NoError(t, err)
	assert.Equal(t, 0.0, s)

	_, err = Tanimoto(a, New(TypeMACCS, 8))
	assert.True(t, errors.IsValidation(err))

	_, err = Similarity(Metric("cosine"), a, b)
	assert.Error(t, err)
	assert.False(t, Metric("cosine").IsValid())
}

func TestMACCS_AllKeysCompile(t *testing.T) {
	ks, err := MACCS()
	require.NoError(t, err)
	assert.Equal(t, MACCSLength, ks.Len())
	assert.Equal(t, TypeMACCS, ks.Type())
	assert.Equal(t, "a", ks.Pattern(162))
	assert.Equal(t, "", ks.Pattern(0))
}

func maccsOf(t *testing.T, smiles string) *Fingerprint {
	t.Helper()
	ks, err := MACCS()
	require.NoError(t, err)
	g, err := molecule.ParseSMILES(smiles)
	require.NoError(t, err)
	fp, err := ks.Generate(context.Background(), g, nil)
	require.NoError(t, err)
	require.Equal(t, MACCSLength, fp.Length)
	return fp
}

func TestMACCS_Generate(t *testing.T) {
	tests := []struct {
		smiles string
		set    []int
		unset  []int
	}{
		{"c1ccccc1", []int{162, 163, 165}, []int{0, 125, 161, 164, 166}},
		{"c1ccc2ccccc2c1", []int{125, 162, 165}, []int{0, 166}},
		{"CCO", []int{139, 157, 160, 164}, []int{162, 165, 166}},
		{"[13CH4]", []int{0, 160}, []int{164, 165}},
		{"[Na+].[Cl-]", []int{35, 49, 103, 166}, []int{0, 165}},
		{"CC#N", []int{41, 84, 151, 161}, []int{164}},
		{"COC", []int{131, 139, 164}, []int{84, 151, 161}},
		{"CC(C)(C)C", []int{74, 141, 149, 160}, []int{131, 139, 161, 164}},
	}
	for _, tt := range tests {
		t.Run(tt.smiles, func(t *testing.T) {
			fp := maccsOf(t, tt.smiles)
			for _, i := range tt.set {
				assert.True(t, fp.GetBit(i), "key %d should be set", i)
			}
			for _, i := range tt.unset {
				assert.False(t, fp.GetBit(i), "key %d should be unset", i)
			}
		})
	}
}

func TestMACCS_SimilarMoleculesScoreHigher(t *testing.T) {
	toluene := maccsOf(t, "Cc1ccccc1")
	xylene := maccsOf(t, "Cc1ccccc1C")
	ethanol := maccsOf(t, "CCO")

	near, err := Tanimoto(toluene, xylene)
	require.NoError(t, err)
	far, err := Tanimoto(toluene, ethanol)
	require.NoError(t, err)
	assert.Greater(t, near, far)
}

func TestGenerate_Aborts(t *testing.T) {
	ks, err := MACCS()
	require.NoError(t, err)
	g, err := molecule.ParseSMILES("c1ccccc1")
	require.NoError(t, err)

	_, err = ks.Generate(context.Background(), g, substructure.NewMatcher(substructure.WithStepBudget(1)))
	assert.True(t, stderrors.Is(err, substructure.ErrStepBudgetExceeded))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ks.Generate(ctx, g, nil)
	assert.True(t, stderrors.Is(err, context.Canceled))
}

func TestCompileKeys_ReportsEveryFailure(t *testing.T) {
	_, err := CompileKeys("custom", []string{"C", "[C", "", "C?"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodePatternLibraryInvalid))
	assert.Contains(t, err.Error(), "2 of 4 keys")

	var ce *substructure.CompileError
	assert.True(t, stderrors.As(err, &ce))
	var lex *molecule.LexicalError
	assert.True(t, stderrors.As(err, &lex))
}

//Personal.AI order the ending
