package screening

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/KeyIP-Chem/internal/config"
	"github.com/turtacn/KeyIP-Chem/internal/domain/molecule"
	"github.com/turtacn/KeyIP-Chem/internal/domain/substructure"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/database/redis"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/KeyIP-Chem/pkg/errors"
)

// Screen parses the molecule once and matches every pattern against the
// shared graph, at most limits.Workers at a time.  A pattern that fails to
// compile or exceeds its limits is reported in its outcome; only a bad
// molecule, an oversized request or a cancelled context fails the call.
func (s *serviceImpl) Screen(ctx context.Context, input *ScreenInput) (*ScreenResult, error) {
	start := time.Now()
	limits := s.limits.Load()

	if len(input.Patterns) == 0 {
		return nil, errors.InvalidParam("at least one pattern is required")
	}
	if len(input.Patterns) > limits.MaxPatterns {
		return nil, errors.Errorf(errors.ErrCodePatternTooMany,
			"%d patterns exceed the limit of %d", len(input.Patterns), limits.MaxPatterns)
	}

	g, err := s.parse(input.SMILES, limits)
	if err != nil {
		return nil, err
	}
	prometheus.RecordScreen(s.metrics, len(input.Patterns))

	key := screenCacheKey(input.SMILES, input.Patterns)
	if cached, ok := s.cachedScreen(ctx, key); ok {
		return cached, nil
	}

	outcomes := make([]PatternOutcome, len(input.Patterns))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(limits.Workers)
	for i, pattern := range input.Patterns {
		i, pattern := i, pattern
		eg.Go(func() error {
			outcomes[i] = s.screenOne(egCtx, pattern, g, limits)
			return nil
		})
	}
	_ = eg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTimeout, "screening cancelled").WithDetail(input.SMILES)
	}

	res := &ScreenResult{SMILES: input.SMILES, Outcomes: outcomes}
	for _, o := range outcomes {
		switch {
		case o.Error != "":
			res.Failed++
		case o.Matched:
			res.Matched++
		}
	}

	if res.Failed == 0 {
		s.storeScreen(ctx, key, res)
	}
	logging.LogOperationDuration(logging.FromContext(ctx, s.logger), "screen", start, s.slow,
		logging.Int("patterns", len(input.Patterns)),
		logging.Int("matched", res.Matched),
		logging.Int("failed", res.Failed))
	return res, nil
}

func (s *serviceImpl) screenOne(ctx context.Context, pattern string, g *molecule.Graph, limits *config.MatcherConfig) PatternOutcome {
	out := PatternOutcome{Pattern: pattern}
	p, err := s.compile(pattern, limits)
	if err == nil {
		var res substructure.Result
		res, err = s.matchOne(ctx, p, g, limits)
		out.Matched, out.Atoms, out.Steps = res.Matched, res.Atoms, res.Steps
	}
	if err != nil {
		out.Matched, out.Atoms = false, nil
		out.Error = err.Error()
		out.ErrorCode = string(errors.GetCode(err))
	}
	return out
}

// screenCacheKey hashes the molecule and the ordered pattern list.  The NUL
// separator cannot occur in either notation.
func screenCacheKey(smiles string, patterns []string) string {
	h := sha256.New()
	h.Write([]byte(smiles))
	for _, p := range patterns {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return "screen:" + hex.EncodeToString(h.Sum(nil))
}

// cachedScreen looks key up in the result cache.  Cache failures degrade to a
// miss.
func (s *serviceImpl) cachedScreen(ctx context.Context, key string) (*ScreenResult, bool) {
	if s.cache == nil {
		return nil, false
	}
	var res ScreenResult
	err := s.cache.Get(ctx, key, &res)
	switch {
	case err == nil:
		prometheus.RecordCacheAccess(s.metrics, "result", true)
		res.Cached = true
		return &res, true
	case stderrors.Is(err, redis.ErrCacheMiss):
	default:
		s.logger.Warn("result cache read failed", logging.String("key", key), logging.Err(err))
	}
	prometheus.RecordCacheAccess(s.metrics, "result", false)
	return nil, false
}

func (s *serviceImpl) storeScreen(ctx context.Context, key string, res *ScreenResult) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, res, s.cacheTTL); err != nil {
		s.logger.Warn("result cache write failed", logging.String("key", key), logging.Err(err))
	}
}

//Personal.AI order the ending
