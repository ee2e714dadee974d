package cli

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-Chem/internal/application/screening"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/storage/minio"
	"github.com/turtacn/KeyIP-Chem/pkg/errors"
)

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

type result struct {
	stdout string
	stderr string
	err    error
}

// run executes the root command with args and a silent logger.
func run(t *testing.T, stdin string, args []string, opts ...RootOption) result {
	t.Helper()
	cmd := NewRootCommand(append([]RootOption{WithLogger(logging.NewNopLogger())}, opts...)...)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err != nil {
		PrintError(cmd, err)
	}
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
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

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "keyip", cmd.Use)
	assert.NotEmpty(t, cmd.Short)

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"parse", "match", "screen", "fingerprint", "sdf", "library", "db"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}

	for _, flag := range []string{"config", "log-level", "output", "verbose", "timeout"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
	assert.Equal(t, "text", cmd.PersistentFlags().Lookup("output").DefValue)
	assert.Equal(t, "o", cmd.PersistentFlags().Lookup("output").Shorthand)
}

func TestRoot_UnknownOutputFormat(t *testing.T) {
	r := run(t, "", []string{"parse", "-o", "xml", "CCO"})
	require.Error(t, r.err)
	assert.True(t, errors.IsCode(r.err, errors.ErrCodeBadRequest))
	assert.Equal(t, 2, ExitCode(r.err))
}

func TestRoot_ConfigFile(t *testing.T) {
	path := writeTemp(t, "config.yaml", "matcher:\n  max_patterns: 1\n")
	r := run(t, "", []string{"screen", "--config", path, "-p", "O", "-p", "N", "CCO"})
	require.Error(t, r.err)
	assert.True(t, errors.IsCode(r.err, errors.ErrCodePatternTooMany))
}

func TestRoot_MissingConfigFile(t *testing.T) {
	r := run(t, "", []string{"parse", "--config", filepath.Join(t.TempDir(), "absent.yaml"), "CCO"})
	require.Error(t, r.err)
	assert.Contains(t, r.err.Error(), "config initialization failed")
}

func TestRoot_InjectedService(t *testing.T) {
	svc, err := screening.NewService(logging.NewNopLogger(), nil)
	require.NoError(t, err)
	r := run(t, "", []string{"parse", "C"}, WithService(svc))
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "CH4")
}

func TestGetCLIContext_Missing(t *testing.T) {
	cmd := NewParseCmd()
	cmd.SetContext(context.Background())
	_, err := GetCLIContext(cmd)
	assert.Error(t, err)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(&ExitError{Code: 1}))
	assert.Equal(t, 3, ExitCode(fmt.Errorf("wrapped: %w", &ExitError{Code: 3})))
	assert.Equal(t, 2, ExitCode(stderrors.New("boom")))
}

func TestPrintError(t *testing.T) {
	cmd := NewRootCommand()
	var buf bytes.Buffer
	cmd.SetErr(&buf)

	PrintError(cmd, errors.InvalidParam("bad input").WithDetail("offset 3"))
	assert.Equal(t, "Error [COMMON_002]: bad input\n  offset 3\n", buf.String())

	buf.Reset()
	PrintError(cmd, stderrors.New("plain"))
	assert.Equal(t, "Error: plain\n", buf.String())

	buf.Reset()
	PrintError(cmd, &ExitError{Code: 1})
	assert.Empty(t, buf.String())
}

func TestFormatTable(t *testing.T) {
	out := FormatTable([]string{"A", "LONGER"}, [][]string{{"xyz", "1"}, {"q"}})
	assert.Equal(t, "A    LONGER\n---  ------\nxyz  1\nq    \n", out)
	assert.Empty(t, FormatTable(nil, nil))
}

func TestRoot_Timeout(t *testing.T) {
	r := run(t, "", []string{"--timeout", time.Minute.String(), "parse", "CCO"})
	require.NoError(t, r.err)
}

func TestPrintResult_NoContext(t *testing.T) {
	cmd := NewParseCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	require.NoError(t, PrintResult(cmd, "hello"))
	assert.Equal(t, "hello\n", buf.String())

	buf.Reset()
	require.NoError(t, printJSON(&buf, map[string]int{"a": 1}))
	var decoded map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 1, decoded["a"])
}

//Personal.AI order the ending
