// Package screening provides the application-level service for parsing,
// matching and screening molecules.  It sits between the HTTP, CLI and worker
// front ends and the domain engines, and owns the caches, limits and metrics
// around them.
package screening

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/KeyIP-Chem/internal/config"
	"github.com/turtacn/KeyIP-Chem/internal/domain/fingerprint"
	"github.com/turtacn/KeyIP-Chem/internal/domain/molecule"
	"github.com/turtacn/KeyIP-Chem/internal/domain/substructure"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/database/redis"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/KeyIP-Chem/pkg/errors"
)

// Service defines the interface for screening operations.
type Service interface {
	Parse(ctx context.Context, smiles string) (*ParseResult, error)
	Match(ctx context.Context, input *MatchInput) (*MatchResult, error)
	Screen(ctx context.Context, input *ScreenInput) (*ScreenResult, error)
	Fingerprint(ctx context.Context, smiles string) (*FingerprintResult, error)
	Compare(ctx context.Context, input *CompareInput) (*CompareResult, error)
	SearchLibrary(ctx context.Context, input *SearchInput) (*SearchResult, error)
	RegisterCompound(ctx context.Context, input *RegisterInput) (*molecule.Compound, error)
	GetCompound(ctx context.Context, id string) (*molecule.Compound, error)

	// SetLimits replaces the matcher limits.  Calls in flight keep the limits
	// they started with.
	SetLimits(limits config.MatcherConfig)
	Limits() config.MatcherConfig
}

// MatchInput contains input for a single-pattern match.
type MatchInput struct {
	SMILES  string
	Pattern string
}

// ScreenInput contains input for screening one molecule against many
// patterns.
type ScreenInput struct {
	SMILES   string
	Patterns []string
}

// CompareInput contains input for a fingerprint similarity comparison.
type CompareInput struct {
	A      string
	B      string
	Metric fingerprint.Metric
}

// SearchInput contains input for a library search.
type SearchInput struct {
	Pattern string
	Source  LibrarySource
	// MaxHits stops the search early once reached.  Zero means no limit.
	MaxHits int
}

// RegisterInput contains input for adding a compound to the store.
type RegisterInput struct {
	SMILES     string
	Name       string
	Properties map[string]string
}

// ParseResult summarizes a parsed molecule.
type ParseResult struct {
	Input     string `json:"input"`
	SMILES    string `json:"smiles"`
	Formula   string `json:"formula"`
	Atoms     int    `json:"atoms"`
	Bonds     int    `json:"bonds"`
	Rings     int    `json:"rings"`
	Fragments int    `json:"fragments"`
	Aromatic  int    `json:"aromatic_atoms"`
}

// MatchResult is the outcome of a single-pattern match.
type MatchResult struct {
	SMILES  string `json:"smiles"`
	Pattern string `json:"pattern"`
	Matched bool   `json:"matched"`
	Atoms   []int  `json:"atoms,omitempty"`
	Steps   int64  `json:"steps"`
}

// PatternOutcome is one pattern's result within a screen.  A pattern that
// failed to compile or exhausted its limits carries Error and ErrorCode and
// is reported as unmatched.
type PatternOutcome struct {
	Pattern   string `json:"pattern"`
	Matched   bool   `json:"matched"`
	Atoms     []int  `json:"atoms,omitempty"`
	Steps     int64  `json:"steps"`
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

// ScreenResult holds the outcomes in the order the patterns were given.
type ScreenResult struct {
	SMILES   string           `json:"smiles"`
	Outcomes []PatternOutcome `json:"outcomes"`
	Matched  int              `json:"matched"`
	Failed   int              `json:"failed"`
	Cached   bool             `json:"cached"`
}

// FingerprintResult is a key fingerprint of one molecule.
type FingerprintResult struct {
	SMILES      string                   `json:"smiles"`
	Fingerprint *fingerprint.Fingerprint `json:"-"`
	Type        fingerprint.Type         `json:"type"`
	Length      int                      `json:"length"`
	Hex         string                   `json:"hex"`
	OnBits      []int                    `json:"on_bits"`
}

// CompareResult is the similarity of two molecules' fingerprints.
type CompareResult struct {
	Metric fingerprint.Metric `json:"metric"`
	Score  float64            `json:"score"`
	A      *FingerprintResult `json:"a"`
	B      *FingerprintResult `json:"b"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Construction
// ─────────────────────────────────────────────────────────────────────────────

// Option configures the service.
type Option func(*serviceImpl)

// WithLimits sets the initial matcher limits.
func WithLimits(limits config.MatcherConfig) Option {
	return func(s *serviceImpl) { s.limits.Store(normalizeLimits(limits)) }
}

// WithResultCache caches screening results under ttl.  A nil cache disables
// result caching.
func WithResultCache(cache redis.Cache, ttl time.Duration) Option {
	return func(s *serviceImpl) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// WithPatternCacheSize bounds the compiled-pattern cache.  Zero disables it.
func WithPatternCacheSize(n int) Option {
	return func(s *serviceImpl) { s.patterns = newPatternCache(n) }
}

// WithCompoundRepository enables RegisterCompound and GetCompound.
func WithCompoundRepository(repo molecule.Repository) Option {
	return func(s *serviceImpl) { s.compounds = repo }
}

// WithKeySet replaces the MACCS keys used by Fingerprint.
func WithKeySet(ks *fingerprint.KeySet) Option {
	return func(s *serviceImpl) { s.keys = ks }
}

// WithSlowThreshold sets the duration after which an operation is logged at
// warn level.
func WithSlowThreshold(d time.Duration) Option {
	return func(s *serviceImpl) { s.slow = d }
}

type serviceImpl struct {
	logger  logging.Logger
	metrics *prometheus.AppMetrics

	limits   atomic.Pointer[config.MatcherConfig]
	patterns *patternCache

	cache    redis.Cache
	cacheTTL time.Duration

	compounds molecule.Repository
	keys      *fingerprint.KeySet
	slow      time.Duration
}

// NewService creates a new screening service.  The MACCS key set is compiled
// here so a broken key table fails start-up rather than the first request.
func NewService(logger logging.Logger, metrics *prometheus.AppMetrics, opts ...Option) (Service, error) {
	if metrics == nil {
		metrics = prometheus.NewNopAppMetrics()
	}
	s := &serviceImpl{
		logger:   logger.Named("screening"),
		metrics:  metrics,
		patterns: newPatternCache(config.DefaultCacheCompiledPatterns),
		slow:     time.Second,
	}
	s.limits.Store(normalizeLimits(config.MatcherConfig{}))
	for _, opt := range opts {
		opt(s)
	}
	if s.keys == nil {
		ks, err := fingerprint.MACCS()
		if err != nil {
			return nil, err
		}
		s.keys = ks
	}
	return s, nil
}

func normalizeLimits(l config.MatcherConfig) *config.MatcherConfig {
	if l.MaxNestingDepth <= 0 {
		l.MaxNestingDepth = config.DefaultMatcherMaxNestingDepth
	}
	if l.Workers <= 0 {
		l.Workers = config.DefaultMatcherWorkers()
	}
	if l.MaxPatterns <= 0 {
		l.MaxPatterns = config.DefaultMatcherMaxPatterns
	}
	return &l
}

func (s *serviceImpl) SetLimits(limits config.MatcherConfig) {
	next := normalizeLimits(limits)
	prev := s.limits.Swap(next)
	if prev.MaxNestingDepth != next.MaxNestingDepth {
		s.patterns.Reset()
	}
	s.logger.Info("matcher limits updated",
		logging.Int64("step_budget", next.StepBudget),
		logging.Int("max_nesting_depth", next.MaxNestingDepth),
		logging.Duration("match_timeout", next.MatchTimeout),
		logging.Int("workers", next.Workers))
}

func (s *serviceImpl) Limits() config.MatcherConfig {
	return *s.limits.Load()
}

// ─────────────────────────────────────────────────────────────────────────────
// Parse
// ─────────────────────────────────────────────────────────────────────────────

func (s *serviceImpl) parse(smiles string, limits *config.MatcherConfig) (*molecule.Graph, error) {
	p := molecule.NewSMILESParser(molecule.WithMaxNestingDepth(limits.MaxNestingDepth))
	g, err := p.Parse(smiles)
	prometheus.RecordParse(s.metrics, "smiles", parseErrorKind(err))
	if err != nil {
		return nil, wrapParseError(err, smiles)
	}
	return g, nil
}

func (s *serviceImpl) Parse(ctx context.Context, smiles string) (*ParseResult, error) {
	g, err := s.parse(smiles, s.limits.Load())
	if err != nil {
		return nil, err
	}
	res := &ParseResult{
		Input:     smiles,
		SMILES:    molecule.WriteSMILES(g),
		Formula:   g.Formula(),
		Atoms:     g.NumAtoms(),
		Bonds:     g.NumBonds(),
		Rings:     g.Rings().NumRings(),
		Fragments: len(g.Fragments()),
	}
	for i := 0; i < g.NumAtoms(); i++ {
		if g.Atom(i).Aromatic {
			res.Aromatic++
		}
	}
	return res, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Match
// ─────────────────────────────────────────────────────────────────────────────

// matchOne runs p against g under the limits' budget and timeout and records
// the attempt.
func (s *serviceImpl) matchOne(ctx context.Context, p *substructure.Program, g *molecule.Graph, limits *config.MatcherConfig) (substructure.Result, error) {
	if limits.MatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limits.MatchTimeout)
		defer cancel()
	}
	start := time.Now()
	res, err := substructure.NewMatcher(substructure.WithStepBudget(limits.StepBudget)).Match(ctx, p, g)
	prometheus.RecordMatch(s.metrics, matchOutcome(res, err), time.Since(start), res.Steps)
	if err != nil {
		return res, wrapMatchError(err, p.Source())
	}
	return res, nil
}

func (s *serviceImpl) Match(ctx context.Context, input *MatchInput) (*MatchResult, error) {
	limits := s.limits.Load()
	g, err := s.parse(input.SMILES, limits)
	if err != nil {
		return nil, err
	}
	p, err := s.compile(input.Pattern, limits)
	if err != nil {
		return nil, err
	}
	res, err := s.matchOne(ctx, p, g, limits)
	if err != nil {
		return nil, err
	}
	return &MatchResult{
		SMILES:  input.SMILES,
		Pattern: input.Pattern,
		Matched: res.Matched,
		Atoms:   res.Atoms,
		Steps:   res.Steps,
	}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Fingerprints
// ─────────────────────────────────────────────────────────────────────────────

func (s *serviceImpl) Fingerprint(ctx context.Context, smiles string) (*FingerprintResult, error) {
	limits := s.limits.Load()
	g, err := s.parse(smiles, limits)
	if err != nil {
		return nil, err
	}
	if limits.MatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limits.MatchTimeout)
		defer cancel()
	}
	fp, err := s.keys.Generate(ctx, g, substructure.NewMatcher(substructure.WithStepBudget(limits.StepBudget)))
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
			return nil, errors.Wrap(err, errors.ErrCodeTimeout, "fingerprint generation timed out").WithDetail(smiles)
		}
		return nil, errors.Wrap(err, errors.ErrCodeFingerprintGenerationFailed, "failed to generate fingerprint").WithDetail(smiles)
	}
	return &FingerprintResult{
		SMILES:      smiles,
		Fingerprint: fp,
		Type:        fp.Type,
		Length:      fp.Length,
		Hex:         fp.Hex(),
		OnBits:      fp.OnBits(),
	}, nil
}

func (s *serviceImpl) Compare(ctx context.Context, input *CompareInput) (*CompareResult, error) {
	metric := input.Metric
	if metric == "" {
		metric = fingerprint.MetricTanimoto
	}
	if !metric.IsValid() {
		return nil, errors.Errorf(errors.ErrCodeValidation, "unknown similarity metric %q", metric)
	}
	a, err := s.Fingerprint(ctx, input.A)
	if err != nil {
		return nil, err
	}
	b, err := s.Fingerprint(ctx, input.B)
	if err != nil {
		return nil, err
	}
	score, err := fingerprint.Similarity(metric, a.Fingerprint, b.Fingerprint)
	if err != nil {
		return nil, err
	}
	return &CompareResult{Metric: metric, Score: score, A: a, B: b}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Compound store
// ─────────────────────────────────────────────────────────────────────────────

var errNoCompoundStore = errors.New(errors.ErrCodeServiceUnavailable, "compound store is not configured")

func (s *serviceImpl) RegisterCompound(ctx context.Context, input *RegisterInput) (*molecule.Compound, error) {
	if s.compounds == nil {
		return nil, errNoCompoundStore
	}
	g, err := s.parse(input.SMILES, s.limits.Load())
	if err != nil {
		return nil, err
	}
	c := molecule.NewCompound(uuid.NewString(), input.Name, input.SMILES, g)
	c.Properties = input.Properties
	if err := s.compounds.Save(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info("compound registered",
		logging.String("id", c.ID),
		logging.String("formula", c.Formula))
	return c, nil
}

func (s *serviceImpl) GetCompound(ctx context.Context, id string) (*molecule.Compound, error) {
	if s.compounds == nil {
		return nil, errNoCompoundStore
	}
	if id == "" {
		return nil, errors.InvalidParam("compound id is required")
	}
	return s.compounds.FindByID(ctx, id)
}

// ─────────────────────────────────────────────────────────────────────────────
// Error mapping
// ─────────────────────────────────────────────────────────────────────────────

// parseErrorKind labels a parse failure for metrics.  It returns "" for nil.
func parseErrorKind(err error) string {
	if err == nil {
		return ""
	}
	var (
		lex *molecule.LexicalError
		end *molecule.UnexpectedEndError
		st  *molecule.StructuralError
	)
	switch {
	case stderrors.As(err, &lex):
		return "lexical"
	case stderrors.As(err, &end):
		return "unexpected_end"
	case stderrors.As(err, &st):
		return "structural"
	default:
		return "other"
	}
}

func wrapParseError(err error, smiles string) error {
	detail := smiles
	if off, ok := molecule.ErrorOffset(err); ok {
		detail = fmt.Sprintf("%s (offset %d)", smiles, off)
	}
	return errors.Wrap(err, errors.ErrCodeMoleculeInvalidSMILES, "invalid SMILES").WithDetail(detail)
}

func wrapCompileError(err error, pattern string) error {
	detail := pattern
	if off, ok := substructure.ErrorOffset(err); ok {
		detail = fmt.Sprintf("%s (offset %d)", pattern, off)
	}
	return errors.Wrap(err, errors.ErrCodePatternInvalidSMARTS, "invalid SMARTS pattern").WithDetail(detail)
}

func wrapMatchError(err error, pattern string) error {
	switch {
	case stderrors.Is(err, substructure.ErrStepBudgetExceeded):
		return errors.Wrap(err, errors.ErrCodePatternBudgetExceeded, "match exceeded its step budget").WithDetail(pattern)
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.Wrap(err, errors.ErrCodeTimeout, "match timed out").WithDetail(pattern)
	case stderrors.Is(err, context.Canceled):
		return errors.Wrap(err, errors.ErrCodeTimeout, "match cancelled").WithDetail(pattern)
	default:
		return errors.Wrap(err, errors.ErrCodeSubstructureSearchFailed, "match failed").WithDetail(pattern)
	}
}

func matchOutcome(res substructure.Result, err error) string {
	switch {
	case err == nil && res.Matched:
		return prometheus.OutcomeMatched
	case err == nil:
		return prometheus.OutcomeUnmatched
	case stderrors.Is(err, substructure.ErrStepBudgetExceeded):
		return prometheus.OutcomeBudgetExceeded
	case stderrors.Is(err, context.DeadlineExceeded), stderrors.Is(err, context.Canceled):
		return prometheus.OutcomeTimeout
	default:
		return prometheus.OutcomeError
	}
}

//Personal.AI order the ending
