package prometheus

import (
	"strconv"
	"time"
)

// Match outcome label values.
const (
	OutcomeMatched        = "matched"
	OutcomeUnmatched      = "unmatched"
	OutcomeBudgetExceeded = "budget_exceeded"
	OutcomeTimeout        = "timeout"
	OutcomeError          = "error"
)

// AppMetrics holds every metric family the service exports.
type AppMetrics struct {
	// HTTP
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec

	// gRPC
	GRPCRequestsTotal   CounterVec
	GRPCRequestDuration HistogramVec

	// Parsing and compilation
	ParseTotal       CounterVec
	ParseErrorsTotal CounterVec
	CompileTotal     CounterVec
	LibraryRecords   CounterVec

	// Matching
	MatchTotal          CounterVec
	MatchDuration       HistogramVec
	MatchSteps          HistogramVec
	ScreenPatterns      HistogramVec
	BudgetExceededTotal CounterVec

	// Caches
	CacheHitsTotal   CounterVec
	CacheMissesTotal CounterVec

	// Worker
	JobsTotal   CounterVec
	JobDuration HistogramVec
	ActiveJobs  GaugeVec

	// Health
	HealthCheckStatus GaugeVec
}

var (
	DefaultHTTPDurationBuckets  = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultMatchDurationBuckets = []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5}
	DefaultStepBuckets          = []float64{10, 100, 1_000, 10_000, 100_000, 1_000_000, 10_000_000}
	DefaultPatternCountBuckets  = []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}
	DefaultJobDurationBuckets   = []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 300}
)

// NewAppMetrics registers all metric families on collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")

	m.GRPCRequestsTotal = collector.RegisterCounter("grpc_requests_total", "Total gRPC calls", "service", "method", "code")
	m.GRPCRequestDuration = collector.RegisterHistogram("grpc_request_duration_seconds", "gRPC call duration", DefaultHTTPDurationBuckets, "service", "method")

	m.ParseTotal = collector.RegisterCounter("parse_total", "Molecule parses by notation and status", "notation", "status")
	m.ParseErrorsTotal = collector.RegisterCounter("parse_errors_total", "Molecule parse failures by error kind", "notation", "kind")
	m.CompileTotal = collector.RegisterCounter("pattern_compile_total", "Pattern compilations by status", "status")
	m.LibraryRecords = collector.RegisterCounter("library_records_total", "Library records screened by source", "source")

	m.MatchTotal = collector.RegisterCounter("match_total", "Substructure matches by outcome", "outcome")
	m.MatchDuration = collector.RegisterHistogram("match_duration_seconds", "Duration of one pattern match", DefaultMatchDurationBuckets)
	m.MatchSteps = collector.RegisterHistogram("match_steps", "Matcher steps consumed per match", DefaultStepBuckets)
	m.ScreenPatterns = collector.RegisterHistogram("screen_patterns", "Patterns per screening request", DefaultPatternCountBuckets)
	m.BudgetExceededTotal = collector.RegisterCounter("match_budget_exceeded_total", "Matches aborted by the step budget or timeout", "reason")

	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")

	m.JobsTotal = collector.RegisterCounter("jobs_total", "Screening jobs by status", "status")
	m.JobDuration = collector.RegisterHistogram("job_duration_seconds", "Screening job duration", DefaultJobDurationBuckets)
	m.ActiveJobs = collector.RegisterGauge("active_jobs", "Screening jobs in progress")

	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")

	return m
}

// NewNopAppMetrics returns metrics that record nothing.
func NewNopAppMetrics() *AppMetrics {
	return &AppMetrics{
		HTTPRequestsTotal:   noopCounterVec{},
		HTTPRequestDuration: noopHistogramVec{},
		GRPCRequestsTotal:   noopCounterVec{},
		GRPCRequestDuration: noopHistogramVec{},
		ParseTotal:          noopCounterVec{},
		ParseErrorsTotal:    noopCounterVec{},
		CompileTotal:        noopCounterVec{},
		LibraryRecords:      noopCounterVec{},
		MatchTotal:          noopCounterVec{},
		MatchDuration:       noopHistogramVec{},
		MatchSteps:          noopHistogramVec{},
		ScreenPatterns:      noopHistogramVec{},
		BudgetExceededTotal: noopCounterVec{},
		CacheHitsTotal:      noopCounterVec{},
		CacheMissesTotal:    noopCounterVec{},
		JobsTotal:           noopCounterVec{},
		JobDuration:         noopHistogramVec{},
		ActiveJobs:          noopGaugeVec{},
		HealthCheckStatus:   noopGaugeVec{},
	}
}

// Helpers

func RecordHTTPRequest(m *AppMetrics, method, path string, statusCode int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordGRPCRequest records one gRPC call under its status code name.
func RecordGRPCRequest(m *AppMetrics, service, method, code string, duration time.Duration) {
	m.GRPCRequestsTotal.WithLabelValues(service, method, code).Inc()
	m.GRPCRequestDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

// RecordParse counts one parse.  kind is empty on success.
func RecordParse(m *AppMetrics, notation, kind string) {
	if kind == "" {
		m.ParseTotal.WithLabelValues(notation, "ok").Inc()
		return
	}
	m.ParseTotal.WithLabelValues(notation, "error").Inc()
	m.ParseErrorsTotal.WithLabelValues(notation, kind).Inc()
}

func RecordCompile(m *AppMetrics, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.CompileTotal.WithLabelValues(status).Inc()
}

// RecordMatch records one match attempt.  Budget and timeout outcomes are
// also counted in BudgetExceededTotal.
func RecordMatch(m *AppMetrics, outcome string, duration time.Duration, steps int64) {
	m.MatchTotal.WithLabelValues(outcome).Inc()
	m.MatchDuration.WithLabelValues().Observe(duration.Seconds())
	m.MatchSteps.WithLabelValues().Observe(float64(steps))
	switch outcome {
	case OutcomeBudgetExceeded:
		m.BudgetExceededTotal.WithLabelValues("steps").Inc()
	case OutcomeTimeout:
		m.BudgetExceededTotal.WithLabelValues("timeout").Inc()
	}
}

func RecordScreen(m *AppMetrics, patterns int) {
	m.ScreenPatterns.WithLabelValues().Observe(float64(patterns))
}

func RecordLibraryRecords(m *AppMetrics, source string, n int) {
	m.LibraryRecords.WithLabelValues(source).Add(float64(n))
}

func RecordCacheAccess(m *AppMetrics, cache string, hit bool) {
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		m.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

func RecordJob(m *AppMetrics, status string, duration time.Duration) {
	m.JobsTotal.WithLabelValues(status).Inc()
	m.JobDuration.WithLabelValues().Observe(duration.Seconds())
}

func SetHealth(m *AppMetrics, component string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	m.HealthCheckStatus.WithLabelValues(component).Set(v)
}

//Personal.AI order the ending
