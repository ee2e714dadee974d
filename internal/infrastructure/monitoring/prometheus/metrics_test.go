package prometheus

import (
	"errors"
	"testing"
	"time"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppMetrics_Registers(t *testing.T) {
	c := newTestCollector(t)
	m := NewAppMetrics(c)

	RecordHTTPRequest(m, "POST", "/api/v1/match", 200, 3*time.Millisecond)
	RecordGRPCRequest(m, "grpc.health.v1.Health", "Check", "OK", time.Millisecond)
	RecordParse(m, "smiles", "")
	RecordParse(m, "smiles", "lexical")
	RecordCompile(m, nil)
	RecordCompile(m, errors.New("bad pattern"))
	RecordMatch(m, OutcomeMatched, time.Microsecond, 12)
	RecordMatch(m, OutcomeBudgetExceeded, time.Millisecond, 1000)
	RecordMatch(m, OutcomeTimeout, time.Second, 50)
	RecordScreen(m, 3)
	RecordLibraryRecords(m, "sdf", 25)
	RecordCacheAccess(m, "pattern", true)
	RecordCacheAccess(m, "pattern", false)
	RecordJob(m, "ok", time.Second)
	SetHealth(m, "redis", true)

	out := scrapeMetrics(t, c)
	for _, want := range []string{
		`test_unit_http_requests_total{method="POST",path="/api/v1/match",status_code="200"} 1`,
		`test_unit_grpc_requests_total{code="OK",method="Check",service="grpc.health.v1.Health"} 1`,
		`test_unit_grpc_request_duration_seconds_count{method="Check",service="grpc.health.v1.Health"} 1`,
		`test_unit_parse_total{notation="smiles",status="ok"} 1`,
		`test_unit_parse_errors_total{kind="lexical",notation="smiles"} 1`,
		`test_unit_pattern_compile_total{status="error"} 1`,
		`test_unit_match_total{outcome="matched"} 1`,
		`test_unit_match_budget_exceeded_total{reason="steps"} 1`,
		`test_unit_match_budget_exceeded_total{reason="timeout"} 1`,
		`test_unit_match_steps_count 3`,
		`test_unit_screen_patterns_sum 3`,
		`test_unit_library_records_total{source="sdf"} 25`,
		`test_unit_cache_hits_total{cache="pattern"} 1`,
		`test_unit_cache_misses_total{cache="pattern"} 1`,
		`test_unit_jobs_total{status="ok"} 1`,
		`test_unit_health_check_status{component="redis"} 1`,
	} {
		assert.Contains(t, out, want)
	}
}

func TestNewAppMetrics_FamilyCount(t *testing.T) {
	c := newTestCollector(t)
	m := NewAppMetrics(c)
	m.ActiveJobs.WithLabelValues().Inc()

	n, err := promtestutil.GatherAndCount(c.Gatherer(), "test_unit_active_jobs")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNopAppMetrics(t *testing.T) {
	m := NewNopAppMetrics()
	assert.NotPanics(t, func() {
		RecordMatch(m, OutcomeTimeout, time.Second, 1)
		RecordGRPCRequest(m, "svc", "M", "Internal", time.Second)
		RecordParse(m, "sdf", "structural")
		RecordJob(m, "failed", time.Second)
		SetHealth(m, "postgres", false)
		m.ActiveJobs.WithLabelValues().Dec()
	})
}

//Personal.AI order the ending
