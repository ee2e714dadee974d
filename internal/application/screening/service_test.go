package screening

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-Chem/internal/config"
	"github.com/turtacn/KeyIP-Chem/internal/domain/fingerprint"
	"github.com/turtacn/KeyIP-Chem/internal/domain/molecule"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/database/redis"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/storage/minio"
	"github.com/turtacn/KeyIP-Chem/internal/testutil"
	"github.com/turtacn/KeyIP-Chem/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Mocks
// ─────────────────────────────────────────────────────────────────────────────

type mockCompoundRepo struct {
	mock.Mock
}

func (m *mockCompoundRepo) Save(ctx context.Context, c *molecule.Compound) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockCompoundRepo) BatchSave(ctx context.Context, cs []*molecule.Compound) error {
	return m.Called(ctx, cs).Error(0)
}

func (m *mockCompoundRepo) FindByID(ctx context.Context, id string) (*molecule.Compound, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*molecule.Compound), args.Error(1)
}

func (m *mockCompoundRepo) Iterate(ctx context.Context, fn func(*molecule.Compound) error) error {
	return m.Called(ctx, fn).Error(0)
}

func (m *mockCompoundRepo) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockLibraryRepo struct {
	mock.Mock
}

func (m *mockLibraryRepo) Open(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	args := m.Called(ctx, bucket, object)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *mockLibraryRepo) Stat(ctx context.Context, bucket, object string) (*minio.LibraryInfo, error) {
	args := m.Called(ctx, bucket, object)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*minio.LibraryInfo), args.Error(1)
}

func (m *mockLibraryRepo) Put(ctx context.Context, bucket, object string, r io.Reader, size int64) (*minio.LibraryInfo, error) {
	args := m.Called(ctx, bucket, object, r, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*minio.LibraryInfo), args.Error(1)
}

func (m *mockLibraryRepo) List(ctx context.Context, bucket, prefix string) ([]minio.LibraryInfo, error) {
	args := m.Called(ctx, bucket, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]minio.LibraryInfo), args.Error(1)
}

// ─────────────────────────────────────────────────────────────────────────────
// Fixtures
// ─────────────────────────────────────────────────────────────────────────────

func newTestService(t *testing.T, opts ...Option) Service {
	t.Helper()
	svc, err := NewService(logging.NewNopLogger(), prometheus.NewNopAppMetrics(), opts...)
	require.NoError(t, err)
	return svc
}

func sdfRecord(name string, symbols ...string) string {
	var sb strings.Builder
	sb.WriteString(name + "\n  test\n\n")
	fmt.Fprintf(&sb, "%3d%3d  0  0  0  0  0  0  0  0999 V2000\n", len(symbols), len(symbols)-1)
	for i, sym := range symbols {
		fmt.Fprintf(&sb, "%10.4f%10.4f%10.4f %-3s 0  0  0  0  0  0  0  0  0  0  0  0\n", float64(i)*1.5, 0.0, 0.0, sym)
	}
	for i := 1; i < len(symbols); i++ {
		fmt.Fprintf(&sb, "%3d%3d  1  0\n", i, i+1)
	}
	sb.WriteString("M  END\n$$$$\n")
	return sb.String()
}

const brokenRecord = "broken\n  test\n\n  2  0  0  0  0  0  0  0  0  0999 V2000\ngarbage\n$$$$\n"

// ─────────────────────────────────────────────────────────────────────────────
// Parse / Match
// ─────────────────────────────────────────────────────────────────────────────

func TestParse(t *testing.T) {
	svc := newTestService(t)

	res, err := svc.Parse(context.Background(), "c1ccccc1O")
	require.NoError(t, err)
	assert.Equal(t, 7, res.Atoms)
	assert.Equal(t, 7, res.Bonds)
	assert.Equal(t, 1, res.Rings)
	assert.Equal(t, 1, res.Fragments)
	assert.Equal(t, 6, res.Aromatic)
	assert.Equal(t, testutil.MustParseSMILES(t, "c1ccccc1O").Formula(), res.Formula)

	again := testutil.MustParseSMILES(t, res.SMILES)
	assert.Equal(t, res.Atoms, again.NumAtoms())
}

func TestParse_Invalid(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Parse(context.Background(), "C(")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMoleculeInvalidSMILES))

	_, err = svc.Parse(context.Background(), "")
	assert.True(t, errors.IsCode(err, errors.ErrCodeMoleculeInvalidSMILES))
}

func TestParseErrorKind(t *testing.T) {
	assert.Equal(t, "", parseErrorKind(nil))
	assert.Equal(t, "lexical", parseErrorKind(molecule.NewLexicalError(0, "bad")))
	assert.Equal(t, "unexpected_end", parseErrorKind(molecule.NewUnexpectedEndError(0, "end")))
	assert.Equal(t, "structural", parseErrorKind(molecule.NewStructuralError(0, "ring")))
	assert.Equal(t, "other", parseErrorKind(io.ErrUnexpectedEOF))
}

func TestMatch(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	res, err := svc.Match(ctx, &MatchInput{SMILES: "CCO", Pattern: "O"})
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Equal(t, []int{2}, res.Atoms)
	assert.Positive(t, res.Steps)

	res, err = svc.Match(ctx, &MatchInput{SMILES: "CCO", Pattern: "N"})
	require.NoError(t, err)
	assert.False(t, res.Matched)
	assert.Empty(t, res.Atoms)
}

func TestMatch_Errors(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Match(ctx, &MatchInput{SMILES: "CCO", Pattern: "[C"})
	assert.True(t, errors.IsCode(err, errors.ErrCodePatternInvalidSMARTS))

	_, err = svc.Match(ctx, &MatchInput{SMILES: "C(", Pattern: "C"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeMoleculeInvalidSMILES))
}

func TestMatch_BudgetExceeded(t *testing.T) {
	svc := newTestService(t, WithLimits(config.MatcherConfig{StepBudget: 1}))

	_, err := svc.Match(context.Background(), &MatchInput{SMILES: "CCCCCC", Pattern: "CCCC"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodePatternBudgetExceeded, errors.GetCode(err))
}

func TestWrapMatchError(t *testing.T) {
	assert.Equal(t, errors.ErrCodeTimeout, errors.GetCode(wrapMatchError(context.DeadlineExceeded, "C")))
	assert.Equal(t, errors.ErrCodeTimeout, errors.GetCode(wrapMatchError(context.Canceled, "C")))
	assert.Equal(t, errors.ErrCodeSubstructureSearchFailed, errors.GetCode(wrapMatchError(io.EOF, "C")))
}

// ─────────────────────────────────────────────────────────────────────────────
// Screen
// ─────────────────────────────────────────────────────────────────────────────

func TestScreen_OrderAndPerPatternErrors(t *testing.T) {
	svc := newTestService(t, WithLimits(config.MatcherConfig{Workers: 2}))

	res, err := svc.Screen(context.Background(), &ScreenInput{
		SMILES:   "CCO",
		Patterns: []string{"O", "N", "[C", "CC", "[OH5]"},
	})
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 5)

	var got []string
	for _, o := range res.Outcomes {
		got = append(got, o.Pattern)
	}
	assert.Equal(t, []string{"O", "N", "[C", "CC", "[OH5]"}, got)

	assert.True(t, res.Outcomes[0].Matched)
	assert.False(t, res.Outcomes[1].Matched)
	assert.Empty(t, res.Outcomes[1].Error)
	assert.False(t, res.Outcomes[2].Matched)
	assert.Equal(t, string(errors.ErrCodePatternInvalidSMARTS), res.Outcomes[2].ErrorCode)
	assert.True(t, res.Outcomes[3].Matched)
	assert.True(t, res.Outcomes[4].Matched)

	assert.Equal(t, 3, res.Matched)
	assert.Equal(t, 1, res.Failed)
	assert.False(t, res.Cached)
}

func TestScreen_BudgetIsPerPattern(t *testing.T) {
	svc := newTestService(t, WithLimits(config.MatcherConfig{StepBudget: 1}))

	res, err := svc.Screen(context.Background(), &ScreenInput{SMILES: "CCCCCC", Patterns: []string{"CCCC", "N"}})
	require.NoError(t, err)
	assert.Equal(t, string(errors.ErrCodePatternBudgetExceeded), res.Outcomes[0].ErrorCode)
	assert.Empty(t, res.Outcomes[1].ErrorCode)
}

func TestScreen_Validation(t *testing.T) {
	svc := newTestService(t, WithLimits(config.MatcherConfig{MaxPatterns: 2}))
	ctx := context.Background()

	_, err := svc.Screen(ctx, &ScreenInput{SMILES: "CCO"})
	assert.True(t, errors.IsValidation(err))

	_, err = svc.Screen(ctx, &ScreenInput{SMILES: "CCO", Patterns: []string{"C", "O", "N"}})
	assert.Equal(t, errors.ErrCodePatternTooMany, errors.GetCode(err))

	_, err = svc.Screen(ctx, &ScreenInput{SMILES: "C1CC", Patterns: []string{"C"}})
	assert.Equal(t, errors.ErrCodeMoleculeInvalidSMILES, errors.GetCode(err))
}

func TestScreen_Cancelled(t *testing.T) {
	svc := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Screen(ctx, &ScreenInput{SMILES: "CCO", Patterns: []string{"O"}})
	assert.Equal(t, errors.ErrCodeTimeout, errors.GetCode(err))
}

func newTestCache(t *testing.T) (redis.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redis.NewClient(config.RedisConfig{Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return redis.NewRedisCache(client, logging.NewNopLogger(), redis.WithPrefix("test:"), redis.WithoutJitter()), mr
}

func TestScreen_ResultCache(t *testing.T) {
	cache, mr := newTestCache(t)
	svc := newTestService(t, WithResultCache(cache, time.Minute))
	ctx := context.Background()
	input := &ScreenInput{SMILES: "CCO", Patterns: []string{"O", "N"}}

	first, err := svc.Screen(ctx, input)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.True(t, mr.Exists("test:"+screenCacheKey("CCO", []string{"O", "N"})))

	second, err := svc.Screen(ctx, input)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Outcomes, second.Outcomes)
	assert.Equal(t, first.Matched, second.Matched)
}

func TestScreen_FailedResultsAreNotCached(t *testing.T) {
	cache, mr := newTestCache(t)
	svc := newTestService(t, WithResultCache(cache, time.Minute))
	input := &ScreenInput{SMILES: "CCO", Patterns: []string{"O", "[C"}}

	_, err := svc.Screen(context.Background(), input)
	require.NoError(t, err)
	assert.False(t, mr.Exists("test:"+screenCacheKey("CCO", input.Patterns)))
}

func TestScreen_CacheOutageDegrades(t *testing.T) {
	cache, mr := newTestCache(t)
	log := testutil.NewMockLogger()
	svc, err := NewService(log, prometheus.NewNopAppMetrics(), WithResultCache(cache, time.Minute))
	require.NoError(t, err)
	mr.Close()

	res, err := svc.Screen(context.Background(), &ScreenInput{SMILES: "CCO", Patterns: []string{"O"}})
	require.NoError(t, err)
	assert.True(t, res.Outcomes[0].Matched)
	assert.True(t, log.HasMessage("warn", "result cache read failed"))
}

func TestScreenCacheKey(t *testing.T) {
	a := screenCacheKey("CCO", []string{"O", "N"})
	assert.Equal(t, a, screenCacheKey("CCO", []string{"O", "N"}))
	assert.NotEqual(t, a, screenCacheKey("CCO", []string{"N", "O"}))
	assert.NotEqual(t, screenCacheKey("CC", []string{"ON"}), screenCacheKey("CCO", []string{"N"}))
	assert.True(t, strings.HasPrefix(a, "screen:"))
}

// ─────────────────────────────────────────────────────────────────────────────
// Pattern cache and limits
// ─────────────────────────────────────────────────────────────────────────────

func TestPatternCache_Bounded(t *testing.T) {
	svc := newTestService(t, WithPatternCacheSize(2))
	impl := svc.(*serviceImpl)
	ctx := context.Background()

	for _, p := range []string{"C", "O", "N", "C"} {
		_, err := svc.Match(ctx, &MatchInput{SMILES: "CCO", Pattern: p})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, impl.patterns.Len())

	_, err := svc.Match(ctx, &MatchInput{SMILES: "CCO", Pattern: "[C"})
	require.Error(t, err)
	assert.Equal(t, 2, impl.patterns.Len())
}

func TestPatternCache_Disabled(t *testing.T) {
	svc := newTestService(t, WithPatternCacheSize(0))
	_, err := svc.Match(context.Background(), &MatchInput{SMILES: "CCO", Pattern: "O"})
	require.NoError(t, err)
	assert.Equal(t, 0, svc.(*serviceImpl).patterns.Len())
}

func TestSetLimits(t *testing.T) {
	svc := newTestService(t)
	impl := svc.(*serviceImpl)
	_, err := svc.Match(context.Background(), &MatchInput{SMILES: "CCO", Pattern: "O"})
	require.NoError(t, err)
	require.Equal(t, 1, impl.patterns.Len())

	svc.SetLimits(config.MatcherConfig{StepBudget: 10, MaxNestingDepth: 8, Workers: 3})
	limits := svc.Limits()
	assert.Equal(t, int64(10), limits.StepBudget)
	assert.Equal(t, 8, limits.MaxNestingDepth)
	assert.Equal(t, 3, limits.Workers)
	assert.Equal(t, config.DefaultMatcherMaxPatterns, limits.MaxPatterns)
	assert.Equal(t, 0, impl.patterns.Len())
}

func TestSetLimits_NestingDepthApplies(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Parse(context.Background(), "C(C(C(C)))")
	require.NoError(t, err)

	svc.SetLimits(config.MatcherConfig{MaxNestingDepth: 1})
	_, err = svc.Parse(context.Background(), "C(C(C(C)))")
	assert.True(t, errors.IsCode(err, errors.ErrCodeMoleculeInvalidSMILES))
}

// ─────────────────────────────────────────────────────────────────────────────
// Fingerprints
// ─────────────────────────────────────────────────────────────────────────────

func TestFingerprint(t *testing.T) {
	svc := newTestService(t)
	ks, err := fingerprint.MACCS()
	require.NoError(t, err)

	res, err := svc.Fingerprint(context.Background(), "c1ccccc1")
	require.NoError(t, err)
	assert.Equal(t, fingerprint.TypeMACCS, res.Type)
	assert.Equal(t, ks.Len(), res.Length)
	assert.NotEmpty(t, res.OnBits)
	assert.Equal(t, res.Fingerprint.Hex(), res.Hex)
}

func TestFingerprint_BudgetMapsToFailure(t *testing.T) {
	svc := newTestService(t, WithLimits(config.MatcherConfig{StepBudget: 1}))
	_, err := svc.Fingerprint(context.Background(), "c1ccccc1")
	assert.Equal(t, errors.ErrCodeFingerprintGenerationFailed, errors.GetCode(err))
}

func TestCompare(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	near, err := svc.Compare(ctx, &CompareInput{A: "Cc1ccccc1", B: "Cc1ccccc1C"})
	require.NoError(t, err)
	assert.Equal(t, fingerprint.MetricTanimoto, near.Metric)

	far, err := svc.Compare(ctx, &CompareInput{A: "Cc1ccccc1", B: "CCO"})
	require.NoError(t, err)
	assert.Greater(t, near.Score, far.Score)

	self, err := svc.Compare(ctx, &CompareInput{A: "CCO", B: "CCO", Metric: fingerprint.MetricDice})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, self.Score, 1e-9)

	_, err = svc.Compare(ctx, &CompareInput{A: "CCO", B: "CCO", Metric: "cosine"})
	assert.True(t, errors.IsValidation(err))
}

// ─────────────────────────────────────────────────────────────────────────────
// Compound store
// ─────────────────────────────────────────────────────────────────────────────

func TestRegisterCompound(t *testing.T) {
	repo := new(mockCompoundRepo)
	repo.On("Save", mock.Anything, mock.AnythingOfType("*molecule.Compound")).Return(nil)
	svc := newTestService(t, WithCompoundRepository(repo))

	c, err := svc.RegisterCompound(context.Background(), &RegisterInput{
		SMILES:     "CCO",
		Name:       "ethanol",
		Properties: map[string]string{"cas": "64-17-5"},
	})
	require.NoError(t, err)
	_, perr := uuid.Parse(c.ID)
	assert.NoError(t, perr)
	assert.Equal(t, "ethanol", c.Name)
	assert.Equal(t, 3, c.AtomCount)
	assert.Equal(t, "64-17-5", c.Properties["cas"])
	repo.AssertExpectations(t)
}

func TestRegisterCompound_Errors(t *testing.T) {
	_, err := newTestService(t).RegisterCompound(context.Background(), &RegisterInput{SMILES: "CCO"})
	assert.Equal(t, errors.ErrCodeServiceUnavailable, errors.GetCode(err))

	repo := new(mockCompoundRepo)
	svc := newTestService(t, WithCompoundRepository(repo))
	_, err = svc.RegisterCompound(context.Background(), &RegisterInput{SMILES: "C("})
	assert.Equal(t, errors.ErrCodeMoleculeInvalidSMILES, errors.GetCode(err))
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)

	repo.On("Save", mock.Anything, mock.Anything).Return(errors.New(errors.ErrCodeMoleculeAlreadyExists, "duplicate"))
	_, err = svc.RegisterCompound(context.Background(), &RegisterInput{SMILES: "CCO"})
	assert.Equal(t, errors.ErrCodeMoleculeAlreadyExists, errors.GetCode(err))
}

func TestGetCompound(t *testing.T) {
	repo := new(mockCompoundRepo)
	repo.On("FindByID", mock.Anything, "missing").Return(nil, errors.New(errors.ErrCodeMoleculeNotFound, "not found"))
	svc := newTestService(t, WithCompoundRepository(repo))

	_, err := svc.GetCompound(context.Background(), "missing")
	assert.True(t, errors.IsNotFound(err))

	_, err = svc.GetCompound(context.Background(), "")
	assert.True(t, errors.IsValidation(err))
}

//Personal.AI order the ending
