package screening

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-Chem/internal/config"
	"github.com/turtacn/KeyIP-Chem/internal/domain/molecule"
	"github.com/turtacn/KeyIP-Chem/pkg/errors"
)

func mixedLibrary() string {
	return sdfRecord("ethanol", "C", "C", "O") +
		brokenRecord +
		sdfRecord("methane", "C") +
		sdfRecord("methanol", "C", "O")
}

func TestSearchLibrary_SDF(t *testing.T) {
	svc := newTestService(t, WithLimits(config.MatcherConfig{Workers: 3}))

	res, err := svc.SearchLibrary(context.Background(), &SearchInput{
		Pattern: "O",
		Source:  NewSDFSource(strings.NewReader(mixedLibrary())),
	})
	require.NoError(t, err)
	assert.Equal(t, SourceSDF, res.Source)
	assert.Equal(t, 4, res.Scanned)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, 2, res.Failures[0].Index)

	require.Len(t, res.Hits, 2)
	assert.Equal(t, 1, res.Hits[0].Index)
	assert.Equal(t, "ethanol", res.Hits[0].Name)
	assert.Equal(t, 4, res.Hits[1].Index)
	assert.Equal(t, "methanol", res.Hits[1].Name)
	assert.Equal(t, 2, atomCount(t, res.Hits[1].SMILES))
	assert.False(t, res.Truncated)
}

// atomCount parses smiles and returns its atom count.
func atomCount(t *testing.T, smiles string) int {
	t.Helper()
	g, err := molecule.ParseSMILES(smiles)
	require.NoError(t, err)
	return g.NumAtoms()
}

func TestSearchLibrary_MaxHits(t *testing.T) {
	svc := newTestService(t)
	lib := strings.Repeat(sdfRecord("ethanol", "C", "C", "O"), 20)

	res, err := svc.SearchLibrary(context.Background(), &SearchInput{
		Pattern: "CO",
		Source:  NewSDFSource(strings.NewReader(lib)),
		MaxHits: 3,
	})
	require.NoError(t, err)
	assert.Len(t, res.Hits, 3)
	assert.True(t, res.Truncated)
}

func TestSearchLibrary_Errors(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.SearchLibrary(ctx, &SearchInput{Pattern: "[C", Source: NewSDFSource(strings.NewReader(""))})
	assert.Equal(t, errors.ErrCodePatternInvalidSMARTS, errors.GetCode(err))

	_, err = svc.SearchLibrary(ctx, &SearchInput{Pattern: "C"})
	assert.True(t, errors.IsValidation(err))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = svc.SearchLibrary(cancelled, &SearchInput{Pattern: "C", Source: NewSDFSource(strings.NewReader(mixedLibrary()))})
	assert.Equal(t, errors.ErrCodeTimeout, errors.GetCode(err))
}

func TestSearchLibrary_Empty(t *testing.T) {
	svc := newTestService(t)
	res, err := svc.SearchLibrary(context.Background(), &SearchInput{Pattern: "C", Source: NewSDFSource(strings.NewReader(""))})
	require.NoError(t, err)
	assert.Zero(t, res.Scanned)
	assert.NotNil(t, res.Hits)
	assert.Empty(t, res.Hits)
}

func TestSearchLibrary_Store(t *testing.T) {
	repo := new(mockCompoundRepo)
	repo.On("Iterate", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		fn := args.Get(1).(func(*molecule.Compound) error)
		for _, c := range []*molecule.Compound{
			{Name: "ethanol", SMILES: "CCO"},
			{Name: "corrupt", SMILES: "C("},
			{Name: "ethylamine", SMILES: "CCN"},
		} {
			if fn(c) != nil {
				return
			}
		}
	}).Return(nil)
	svc := newTestService(t)

	res, err := svc.SearchLibrary(context.Background(), &SearchInput{Pattern: "N", Source: NewStoreSource(repo)})
	require.NoError(t, err)
	assert.Equal(t, SourceStore, res.Source)
	assert.Equal(t, 3, res.Scanned)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, 3, res.Hits[0].Index)
	assert.Equal(t, "CCN", res.Hits[0].SMILES)
}

func TestSearchLibrary_Object(t *testing.T) {
	repo := new(mockLibraryRepo)
	repo.On("Open", mock.Anything, "", "set1.sdf").
		Return(io.NopCloser(strings.NewReader(mixedLibrary())), nil)
	svc := newTestService(t)

	res, err := svc.SearchLibrary(context.Background(), &SearchInput{
		Pattern: "C",
		Source:  NewObjectSource(repo, "", "set1.sdf"),
	})
	require.NoError(t, err)
	assert.Equal(t, SourceObject, res.Source)
	assert.Len(t, res.Hits, 3)
	repo.AssertExpectations(t)
}

func TestSearchLibrary_ObjectMissing(t *testing.T) {
	repo := new(mockLibraryRepo)
	repo.On("Open", mock.Anything, "libs", "gone.sdf").
		Return(nil, errors.New(errors.ErrCodeNotFound, "object not found"))
	svc := newTestService(t)

	_, err := svc.SearchLibrary(context.Background(), &SearchInput{
		Pattern: "C",
		Source:  NewObjectSource(repo, "libs", "gone.sdf"),
	})
	assert.True(t, errors.IsNotFound(err))
}

//Personal.AI order the ending
