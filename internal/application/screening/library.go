package screening

import (
	"context"
	stderrors "errors"
	"io"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/KeyIP-Chem/internal/domain/molecule"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/storage/minio"
	"github.com/turtacn/KeyIP-Chem/pkg/errors"
)

// Library source kinds, used as the metrics label.
const (
	SourceSDF    = "sdf"
	SourceObject = "object"
	SourceStore  = "store"
)

// maxReportedFailures bounds SearchResult.Failures; Skipped keeps the full
// count.
const maxReportedFailures = 100

// Entry is one library record handed to the search.  Err is set instead of
// Graph when the record could not be read.
type Entry struct {
	Index  int
	Name   string
	SMILES string
	Graph  *molecule.Graph
	Err    error
}

// LibrarySource streams the records of a compound library.
type LibrarySource interface {
	Kind() string
	// Each calls fn for every record in order.  An error from fn stops the
	// walk and is returned.
	Each(ctx context.Context, fn func(*Entry) error) error
}

// Hit is a library record the pattern matched.
type Hit struct {
	Index  int    `json:"index"`
	Name   string `json:"name,omitempty"`
	SMILES string `json:"smiles"`
	Atoms  []int  `json:"atoms,omitempty"`
}

// RecordFailure is a record that was skipped.
type RecordFailure struct {
	Index int    `json:"index"`
	Name  string `json:"name,omitempty"`
	Error string `json:"error"`
}

// SearchResult holds the hits of a library search in record order.
type SearchResult struct {
	Pattern   string          `json:"pattern"`
	Source    string          `json:"source"`
	Scanned   int             `json:"scanned"`
	Skipped   int             `json:"skipped"`
	Hits      []Hit           `json:"hits"`
	Failures  []RecordFailure `json:"failures,omitempty"`
	Truncated bool            `json:"truncated,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Sources
// ─────────────────────────────────────────────────────────────────────────────

type sdfSource struct {
	r    io.Reader
	kind string
}

// NewSDFSource reads V2000 records from r.  Malformed records are reported
// as failed entries and reading resumes at the next record.
func NewSDFSource(r io.Reader) LibrarySource {
	return &sdfSource{r: r, kind: SourceSDF}
}

func (s *sdfSource) Kind() string { return s.kind }

func (s *sdfSource) Each(ctx context.Context, fn func(*Entry) error) error {
	rr := molecule.NewRecordReader(s.r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := rr.Next()
		if err == io.EOF {
			return nil
		}
		var recErr *molecule.RecordError
		switch {
		case err == nil:
			err = fn(&Entry{
				Index:  rr.Index(),
				Name:   rec.Name,
				SMILES: molecule.WriteSMILES(rec.Graph),
				Graph:  rec.Graph,
			})
		case stderrors.As(err, &recErr):
			err = fn(&Entry{Index: rr.Index(), Err: errors.Wrap(err, errors.ErrCodeMoleculeInvalidRecord, "invalid record")})
		default:
			return errors.Wrap(err, errors.ErrCodeMoleculeInvalidFormat, "failed to read structure-data stream")
		}
		if err != nil {
			return err
		}
	}
}

type objectSource struct {
	repo   minio.LibraryRepository
	bucket string
	object string
}

// NewObjectSource reads an SDF library from object storage.  An empty bucket
// selects the configured default.
func NewObjectSource(repo minio.LibraryRepository, bucket, object string) LibrarySource {
	return &objectSource{repo: repo, bucket: bucket, object: object}
}

func (s *objectSource) Kind() string { return SourceObject }

func (s *objectSource) Each(ctx context.Context, fn func(*Entry) error) error {
	body, err := s.repo.Open(ctx, s.bucket, s.object)
	if err != nil {
		return err
	}
	defer body.Close()
	return (&sdfSource{r: body, kind: SourceObject}).Each(ctx, fn)
}

type storeSource struct {
	repo molecule.Repository
}

// NewStoreSource walks the compound store.  Stored SMILES are re-parsed;
// one that no longer parses is reported as a failed entry.
func NewStoreSource(repo molecule.Repository) LibrarySource {
	return &storeSource{repo: repo}
}

func (s *storeSource) Kind() string { return SourceStore }

func (s *storeSource) Each(ctx context.Context, fn func(*Entry) error) error {
	index := 0
	return s.repo.Iterate(ctx, func(c *molecule.Compound) error {
		index++
		e := &Entry{Index: index, Name: c.Name, SMILES: c.SMILES}
		g, err := molecule.ParseSMILES(c.SMILES)
		if err != nil {
			e.Err = wrapParseError(err, c.SMILES)
		} else {
			e.Graph = g
		}
		return fn(e)
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Search
// ─────────────────────────────────────────────────────────────────────────────

// SearchLibrary matches one pattern against every record of a library.  The
// source is read by one goroutine and records are matched by limits.Workers
// goroutines.  Records that fail to read or exceed the match limits are
// skipped and counted.  With MaxHits set the search stops once that many
// hits are found, so the hits are the first found rather than the first in
// record order.
func (s *serviceImpl) SearchLibrary(ctx context.Context, input *SearchInput) (*SearchResult, error) {
	if input.Source == nil {
		return nil, errors.InvalidParam("library source is required")
	}
	start := time.Now()
	limits := s.limits.Load()

	p, err := s.compile(input.Pattern, limits)
	if err != nil {
		return nil, err
	}

	res := &SearchResult{Pattern: input.Pattern, Source: input.Source.Kind(), Hits: []Hit{}}
	var mu sync.Mutex

	searchCtx, stop := context.WithCancel(ctx)
	defer stop()
	eg, egCtx := errgroup.WithContext(searchCtx)

	entries := make(chan *Entry)
	eg.Go(func() error {
		defer close(entries)
		return input.Source.Each(egCtx, func(e *Entry) error {
			select {
			case entries <- e:
				return nil
			case <-egCtx.Done():
				return egCtx.Err()
			}
		})
	})

	fail := func(e *Entry, err error) {
		res.Skipped++
		if len(res.Failures) < maxReportedFailures {
			res.Failures = append(res.Failures, RecordFailure{Index: e.Index, Name: e.Name, Error: err.Error()})
		}
	}

	for w := 0; w < limits.Workers; w++ {
		eg.Go(func() error {
			for e := range entries {
				if e.Err != nil {
					mu.Lock()
					res.Scanned++
					fail(e, e.Err)
					mu.Unlock()
					continue
				}
				m, err := s.matchOne(egCtx, p, e.Graph, limits)
				if err != nil && searchCtx.Err() != nil {
					return searchCtx.Err()
				}

				mu.Lock()
				res.Scanned++
				switch {
				case err != nil:
					fail(e, err)
				case m.Matched && (input.MaxHits == 0 || len(res.Hits) < input.MaxHits):
					res.Hits = append(res.Hits, Hit{Index: e.Index, Name: e.Name, SMILES: e.SMILES, Atoms: m.Atoms})
					if input.MaxHits > 0 && len(res.Hits) >= input.MaxHits {
						res.Truncated = true
						stop()
					}
				}
				mu.Unlock()
			}
			return nil
		})
	}

	err = eg.Wait()
	prometheus.RecordLibraryRecords(s.metrics, res.Source, res.Scanned)
	switch {
	case ctx.Err() != nil:
		return nil, errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "library search cancelled").WithDetail(input.Pattern)
	case err != nil && !res.Truncated:
		var ae *errors.AppError
		if stderrors.As(err, &ae) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.ErrCodeSubstructureSearchFailed, "library search failed").WithDetail(input.Pattern)
	}

	sort.Slice(res.Hits, func(i, j int) bool { return res.Hits[i].Index < res.Hits[j].Index })
	sort.Slice(res.Failures, func(i, j int) bool { return res.Failures[i].Index < res.Failures[j].Index })

	logging.LogOperationDuration(logging.FromContext(ctx, s.logger), "library_search", start, s.slow,
		logging.String("source", res.Source),
		logging.Int("scanned", res.Scanned),
		logging.Int("hits", len(res.Hits)),
		logging.Int("skipped", res.Skipped))
	return res, nil
}

//Personal.AI order the ending
