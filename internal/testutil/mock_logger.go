// Package testutil holds helpers shared by the service-layer tests: a
// recording logger and molecule fixtures.
package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-Chem/internal/domain/molecule"
	"github.com/turtacn/KeyIP-Chem/internal/domain/substructure"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/monitoring/logging"
)

// LogMessage is one captured entry.  Fields include those bound through With.
type LogMessage struct {
	Level   string
	Logger  string
	Message string
	Fields  []logging.Field
}

// Field returns the value of the named field and whether it was present.
func (m LogMessage) Field(key string) (interface{}, bool) {
	for i := len(m.Fields) - 1; i >= 0; i-- {
		if m.Fields[i].Key == key {
			return m.Fields[i].Value, true
		}
	}
	return nil, false
}

type logSink struct {
	mu       sync.Mutex
	messages []LogMessage
}

// MockLogger implements logging.Logger and records every entry.  Children
// made by With and Named write to the same record.
type MockLogger struct {
	sink  *logSink
	name  string
	bound []logging.Field
}

// NewMockLogger creates an empty recording logger.
func NewMockLogger() *MockLogger {
	return &MockLogger{sink: &logSink{}}
}

func (m *MockLogger) log(level, msg string, fields []logging.Field) {
	all := make([]logging.Field, 0, len(m.bound)+len(fields))
	all = append(all, m.bound...)
	all = append(all, fields...)
	m.sink.mu.Lock()
	defer m.sink.mu.Unlock()
	m.sink.messages = append(m.sink.messages, LogMessage{Level: level, Logger: m.name, Message: msg, Fields: all})
}

func (m *MockLogger) Debug(msg string, fields ...logging.Field) { m.log("debug", msg, fields) }
func (m *MockLogger) Info(msg string, fields ...logging.Field)  { m.log("info", msg, fields) }
func (m *MockLogger) Warn(msg string, fields ...logging.Field)  { m.log("warn", msg, fields) }
func (m *MockLogger) Error(msg string, fields ...logging.Field) { m.log("error", msg, fields) }
func (m *MockLogger) Fatal(msg string, fields ...logging.Field) { m.log("fatal", msg, fields) }

func (m *MockLogger) With(fields ...logging.Field) logging.Logger {
	bound := append(append([]logging.Field(nil), m.bound...), fields...)
	return &MockLogger{sink: m.sink, name: m.name, bound: bound}
}

func (m *MockLogger) Named(name string) logging.Logger {
	full := name
	if m.name != "" {
		full = m.name + "." + name
	}
	return &MockLogger{sink: m.sink, name: full, bound: m.bound}
}

func (m *MockLogger) Sync() error { return nil }

// Messages returns a copy of the captured entries.
func (m *MockLogger) Messages() []LogMessage {
	m.sink.mu.Lock()
	defer m.sink.mu.Unlock()
	out := make([]LogMessage, len(m.sink.messages))
	copy(out, m.sink.messages)
	return out
}

// Clear drops the captured entries.
func (m *MockLogger) Clear() {
	m.sink.mu.Lock()
	defer m.sink.mu.Unlock()
	m.sink.messages = nil
}

// HasMessage reports whether an entry with level and msg was captured.
func (m *MockLogger) HasMessage(level, msg string) bool {
	_, ok := m.Find(level, msg)
	return ok
}

// Find returns the first entry with level and msg.
func (m *MockLogger) Find(level, msg string) (LogMessage, bool) {
	for _, e := range m.Messages() {
		if e.Level == level && e.Message == msg {
			return e, true
		}
	}
	return LogMessage{}, false
}

// ─────────────────────────────────────────────────────────────────────────────
// Molecule fixtures
// ─────────────────────────────────────────────────────────────────────────────

// Common molecules by name.
var Molecules = map[string]string{
	"ethanol":     "CCO",
	"acetic_acid": "CC(=O)O",
	"benzene":     "c1ccccc1",
	"toluene":     "Cc1ccccc1",
	"pyridine":    "n1ccccc1",
	"naphthalene": "c1ccc2ccccc2c1",
	"aspirin":     "CC(=O)Oc1ccccc1C(=O)O",
	"caffeine":    "Cn1cnc2c1c(=O)n(C)c(=O)n2C",
	"salt":        "[Na+].[Cl-]",
}

// MustParseSMILES parses smiles or fails the test.
func MustParseSMILES(t testing.TB, smiles string) *molecule.Graph {
	t.Helper()
	g, err := molecule.ParseSMILES(smiles)
	require.NoError(t, err, smiles)
	return g
}

// MustCompile compiles pattern or fails the test.
func MustCompile(t testing.TB, pattern string) *substructure.Program {
	t.Helper()
	p, err := substructure.Compile(pattern)
	require.NoError(t, err, pattern)
	return p
}

//Personal.AI order the ending
