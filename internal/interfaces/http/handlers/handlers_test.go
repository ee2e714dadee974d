package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-Chem/internal/application/screening"
	"github.com/turtacn/KeyIP-Chem/internal/domain/molecule"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/storage/minio"
	"github.com/turtacn/KeyIP-Chem/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- Mocks ---

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

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Name() string                    { return s.name }
func (s stubChecker) Check(ctx context.Context) error { return s.err }

// --- Helpers ---

type testEnv struct {
	router    *gin.Engine
	compounds *mockCompoundRepo
	libraries *mockLibraryRepo
}

func setupRouter(t *testing.T, withStores bool) *testEnv {
	t.Helper()
	env := &testEnv{compounds: new(mockCompoundRepo), libraries: new(mockLibraryRepo)}

	var svcOpts []screening.Option
	var scrOpts []ScreeningOption
	if withStores {
		svcOpts = append(svcOpts, screening.WithCompoundRepository(env.compounds))
		scrOpts = append(scrOpts, WithCompoundStore(env.compounds), WithLibraryStore(env.libraries), WithMaxHits(10))
	}
	svc, err := screening.NewService(logging.NewNopLogger(), nil, svcOpts...)
	require.NoError(t, err)

	mol := NewMoleculeHandler(svc)
	scr := NewScreeningHandler(svc, scrOpts...)

	r := gin.New()
	api := r.Group("/api/v1")
	api.POST("/parse", mol.Parse)
	api.POST("/fingerprint", mol.Fingerprint)
	api.POST("/compounds", mol.RegisterCompound)
	api.GET("/compounds/:id", mol.GetCompound)
	api.POST("/match", scr.Match)
	api.POST("/screen", scr.Screen)
	api.POST("/library/search", scr.SearchLibrary)
	env.router = r
	return env
}

func doJSON(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
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

// --- Parse ---

func TestParse_Success(t *testing.T) {
	env := setupRouter(t, false)

	w := doJSON(env.router, http.MethodPost, "/api/v1/parse", ParseRequest{SMILES: "c1ccccc1O"})
	require.Equal(t, http.StatusOK, w.Code)

	var res screening.ParseResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 7, res.Atoms)
	assert.Equal(t, 1, res.Rings)
	assert.Equal(t, 6, res.Aromatic)
}

func TestParse_InvalidSMILES(t *testing.T) {
	env := setupRouter(t, false)

	w := doJSON(env.router, http.MethodPost, "/api/v1/parse", ParseRequest{SMILES: "C("})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, string(errors.ErrCodeMoleculeInvalidSMILES), resp.Code)
	assert.Equal(t, "invalid SMILES", resp.Message)
	assert.Contains(t, resp.Detail, "offset")
}

func TestParse_BadBody(t *testing.T) {
	env := setupRouter(t, false)

	for _, body := range []string{"{", `{"smiles": ""}`, `{}`} {
		w := doJSON(env.router, http.MethodPost, "/api/v1/parse", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, string(errors.ErrCodeBadRequest), decodeError(t, w).Code, body)
	}
}

// --- Match / Screen ---

func TestMatch(t *testing.T) {
	env := setupRouter(t, false)

	w := doJSON(env.router, http.MethodPost, "/api/v1/match", MatchRequest{SMILES: "CCO", Pattern: "[OD1]"})
	require.Equal(t, http.StatusOK, w.Code)
	var res screening.MatchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Matched)
	assert.Equal(t, []int{2}, res.Atoms)

	w = doJSON(env.router, http.MethodPost, "/api/v1/match", MatchRequest{SMILES: "CCO", Pattern: "[C"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(errors.ErrCodePatternInvalidSMARTS), decodeError(t, w).Code)
}

func TestScreen(t *testing.T) {
	env := setupRouter(t, false)

	w := doJSON(env.router, http.MethodPost, "/api/v1/screen", ScreenRequest{
		SMILES:   "CC(=O)O",
		Patterns: []string{"C(=O)[OD1]", "N", "[C"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var res screening.ScreenResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Len(t, res.Outcomes, 3)
	assert.True(t, res.Outcomes[0].Matched)
	assert.False(t, res.Outcomes[1].Matched)
	assert.Equal(t, string(errors.ErrCodePatternInvalidSMARTS), res.Outcomes[2].ErrorCode)
	assert.Equal(t, 1, res.Matched)
	assert.Equal(t, 1, res.Failed)
}

func TestScreen_NoPatterns(t *testing.T) {
	env := setupRouter(t, false)

	w := doJSON(env.router, http.MethodPost, "/api/v1/screen", ScreenRequest{SMILES: "CCO"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(errors.ErrCodeBadRequest), decodeError(t, w).Code)
}

// --- Fingerprint ---

func TestFingerprint(t *testing.T) {
	env := setupRouter(t, false)

	w := doJSON(env.router, http.MethodPost, "/api/v1/fingerprint", FingerprintRequest{SMILES: "c1ccccc1O"})
	require.Equal(t, http.StatusOK, w.Code)
	var res screening.FingerprintResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.NotEmpty(t, res.Hex)
	assert.NotEmpty(t, res.OnBits)
}

func TestFingerprint_Compare(t *testing.T) {
	env := setupRouter(t, false)

	w := doJSON(env.router, http.MethodPost, "/api/v1/fingerprint", FingerprintRequest{SMILES: "c1ccccc1O", Compare: "Oc1ccccc1"})
	require.Equal(t, http.StatusOK, w.Code)
	var res screening.CompareResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.InDelta(t, 1.0, res.Score, 1e-9)

	w = doJSON(env.router, http.MethodPost, "/api/v1/fingerprint", FingerprintRequest{SMILES: "CCO", Compare: "CCN", Metric: "cosine"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, string(errors.ErrCodeValidation), decodeError(t, w).Code)
}

// --- Compounds ---

func TestCompounds_NoStore(t *testing.T) {
	env := setupRouter(t, false)

	w := doJSON(env.router, http.MethodPost, "/api/v1/compounds", RegisterCompoundRequest{SMILES: "CCO"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, string(errors.ErrCodeServiceUnavailable), resp.Code)
	assert.Equal(t, errors.DefaultMessageForCode(errors.ErrCodeServiceUnavailable), resp.Message)
}

func TestCompounds_RegisterAndGet(t *testing.T) {
	env := setupRouter(t, true)
	env.compounds.On("Save", mock.Anything, mock.AnythingOfType("*molecule.Compound")).Return(nil)

	w := doJSON(env.router, http.MethodPost, "/api/v1/compounds", RegisterCompoundRequest{SMILES: "CCO", Name: "ethanol"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created molecule.Compound
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "ethanol", created.Name)
	assert.Equal(t, 3, created.AtomCount)

	env.compounds.On("FindByID", mock.Anything, created.ID).Return(&created, nil)
	env.compounds.On("FindByID", mock.Anything, "missing").
		Return(nil, errors.New(errors.ErrCodeMoleculeNotFound, "compound not found"))

	w = doJSON(env.router, http.MethodGet, "/api/v1/compounds/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(env.router, http.MethodGet, "/api/v1/compounds/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(errors.ErrCodeMoleculeNotFound), decodeError(t, w).Code)
}

func TestCompounds_ServerErrorIsMasked(t *testing.T) {
	env := setupRouter(t, true)
	env.compounds.On("Save", mock.Anything, mock.Anything).
		Return(errors.Wrap(io.ErrUnexpectedEOF, errors.ErrCodeDatabaseError, "insert into compounds failed"))

	w := doJSON(env.router, http.MethodPost, "/api/v1/compounds", RegisterCompoundRequest{SMILES: "CCO"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "insert into compounds")
	assert.NotContains(t, w.Body.String(), "unexpected EOF")
}

// --- Library search ---

func TestSearchLibrary_Object(t *testing.T) {
	env := setupRouter(t, true)
	lib := sdfRecord("ethanol", "C", "C", "O") + sdfRecord("methane", "C") + sdfRecord("methanol", "C", "O")
	env.libraries.On("Open", mock.Anything, "", "set.sdf").Return(io.NopCloser(strings.NewReader(lib)), nil)

	w := doJSON(env.router, http.MethodPost, "/api/v1/library/search", LibrarySearchRequest{Pattern: "O", Object: "set.sdf"})
	require.Equal(t, http.StatusOK, w.Code)
	var res screening.SearchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 3, res.Scanned)
	require.Len(t, res.Hits, 2)
	assert.Equal(t, "ethanol", res.Hits[0].Name)
	assert.Equal(t, "methanol", res.Hits[1].Name)
}

func TestSearchLibrary_Store(t *testing.T) {
	env := setupRouter(t, true)
	env.compounds.On("Iterate", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		fn := args.Get(1).(func(*molecule.Compound) error)
		_ = fn(&molecule.Compound{Name: "ethylamine", SMILES: "CCN"})
	}).Return(nil)

	w := doJSON(env.router, http.MethodPost, "/api/v1/library/search", LibrarySearchRequest{Pattern: "N"})
	require.Equal(t, http.StatusOK, w.Code)
	var res screening.SearchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, screening.SourceStore, res.Source)
	assert.Len(t, res.Hits, 1)
}

func TestSearchLibrary_NotConfigured(t *testing.T) {
	env := setupRouter(t, false)

	w := doJSON(env.router, http.MethodPost, "/api/v1/library/search", LibrarySearchRequest{Pattern: "O", Object: "set.sdf"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// --- Health ---

func TestHealth(t *testing.T) {
	r := gin.New()
	h := NewHealthHandler("1.2.3", nil, stubChecker{name: "redis"}, stubChecker{name: "postgres", err: io.EOF})
	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)

	w := doJSON(r, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var live LivenessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &live))
	assert.Equal(t, "1.2.3", live.Version)

	w = doJSON(r, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var ready ReadinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ready))
	assert.Equal(t, "not_ready", ready.Status)
	assert.Equal(t, "healthy", ready.Components["redis"].Status)
	assert.Equal(t, "unhealthy", ready.Components["postgres"].Status)
}

func TestNewCheck(t *testing.T) {
	calls := 0
	c := NewCheck("minio", func(ctx context.Context) error {
		calls++
		return io.ErrUnexpectedEOF
	})
	assert.Equal(t, "minio", c.Name())
	assert.ErrorIs(t, c.Check(context.Background()), io.ErrUnexpectedEOF)
	assert.Equal(t, 1, calls)
}

func TestHealth_Ready(t *testing.T) {
	var down atomic.Bool
	h := NewHealthHandler("dev", nil, stubChecker{name: "redis"}, NewCheck("postgres", func(context.Context) error {
		if down.Load() {
			return io.EOF
		}
		return nil
	}))
	assert.True(t, h.Ready(context.Background()))
	down.Store(true)
	assert.False(t, h.Ready(context.Background()))
	assert.True(t, NewHealthHandler("dev", nil).Ready(context.Background()))
}

func TestHealth_NoCheckers(t *testing.T) {
	r := gin.New()
	r.GET("/readyz", NewHealthHandler("dev", nil).Readiness)

	w := doJSON(r, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

//Personal.AI order the ending
