// Package cli implements the keyip command line: one-shot parsing, matching,
// screening and library search against the in-process screening service.
package cli

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/KeyIP-Chem/internal/application/screening"
	"github.com/turtacn/KeyIP-Chem/internal/config"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/database/postgres"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/storage/minio"
	"github.com/turtacn/KeyIP-Chem/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// annotationWatch marks commands that keep running long enough for a config
// reload to matter.
const annotationWatch = "keyip/watch-config"

type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	Verbose      bool
	Timeout      time.Duration
}

// CLIContext carries initialized dependencies through the command tree.
type CLIContext struct {
	Config       *config.Config
	Logger       logging.Logger
	Service      screening.Service
	OutputFormat string
	Timeout      time.Duration

	libraries   minio.LibraryRepository
	schema      SchemaMigrator
	levelSwitch *logging.LevelSwitch
}

// Libraries returns the object-storage library repository, connecting on
// first use.
func (c *CLIContext) Libraries(ctx context.Context) (minio.LibraryRepository, error) {
	if c.libraries != nil {
		return c.libraries, nil
	}
	if c.Config == nil || !c.Config.MinIO.Enabled {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "object storage is not configured").
			WithDetail("set minio.enabled in the config file or KEYIP_MINIO_ENABLED")
	}
	client, err := minio.NewClient(ctx, c.Config.MinIO, c.Logger)
	if err != nil {
		return nil, err
	}
	c.libraries = minio.NewLibraryRepository(client, c.Logger)
	return c.libraries, nil
}

// Schema returns the migrator for the compound store schema.
func (c *CLIContext) Schema() (SchemaMigrator, error) {
	if c.schema != nil {
		return c.schema, nil
	}
	if c.Config == nil || !c.Config.Database.Enabled {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "database is not configured").
			WithDetail("set database.enabled in the config file or KEYIP_DATABASE_ENABLED")
	}
	c.schema = postgres.NewMigratorFromConfig(c.Config.Database, c.Logger)
	return c.schema, nil
}

// withTimeout applies the --timeout flag to ctx.
func (c *CLIContext) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.Timeout)
}

// RootOption injects a dependency in place of the one built from config.
type RootOption func(*rootDeps)

type rootDeps struct {
	service   screening.Service
	libraries minio.LibraryRepository
	schema    SchemaMigrator
	logger    logging.Logger
}

// WithService makes every command use svc.
func WithService(svc screening.Service) RootOption {
	return func(d *rootDeps) { d.service = svc }
}

// WithLibraryRepository makes the sdf and library commands use repo instead
// of connecting to MinIO.
func WithLibraryRepository(repo minio.LibraryRepository) RootOption {
	return func(d *rootDeps) { d.libraries = repo }
}

// WithSchemaMigrator makes the db commands use m instead of the configured
// database.
func WithSchemaMigrator(m SchemaMigrator) RootOption {
	return func(d *rootDeps) { d.schema = m }
}

// WithLogger replaces the stderr console logger.
func WithLogger(l logging.Logger) RootOption {
	return func(d *rootDeps) { d.logger = l }
}

// NewRootCommand creates the root cobra command with all global flags and subcommands.
func NewRootCommand(options ...RootOption) *cobra.Command {
	opts := &RootOptions{}
	deps := &rootDeps{}
	for _, o := range options {
		o(deps)
	}

	cmd := &cobra.Command{
		Use:   "keyip",
		Short: "KeyIP-Chem CLI: SMILES parsing and SMARTS substructure screening",
		Long: "keyip parses SMILES, matches SMARTS patterns against molecules, screens a molecule\n" +
			"against pattern sets, computes structural-key fingerprints and searches SDF\n" +
			"compound libraries stored locally or in object storage.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts, deps)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: defaults plus KEYIP_* environment)")
	pf.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "text", "output format (text, json, table)")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")
	pf.DurationVar(&opts.Timeout, "timeout", 0, "overall operation timeout (0 disables)")

	cmd.AddCommand(
		NewParseCmd(),
		NewMatchCmd(),
		NewScreenCmd(),
		NewFingerprintCmd(),
		NewSDFCmd(),
		NewLibraryCmd(),
		NewDBCmd(),
	)
	return cmd
}

// persistentPreRun initializes config, logger and service, then stores CLIContext.
func persistentPreRun(cmd *cobra.Command, opts *RootOptions, deps *rootDeps) error {
	switch strings.ToLower(opts.OutputFormat) {
	case "text", "json", "table":
	default:
		return errors.Errorf(errors.ErrCodeBadRequest, "unknown output format %q", opts.OutputFormat).
			WithDetail("use text, json or table")
	}

	cfg, err := config.LoadOptional(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	logger, levelSwitch := deps.logger, (*logging.LevelSwitch)(nil)
	if logger == nil {
		logger, levelSwitch, err = initLogger(cmd, cfg, opts)
		if err != nil {
			return fmt.Errorf("logger initialization failed: %w", err)
		}
	}

	svc := deps.service
	if svc == nil {
		svc, err = screening.NewService(logger, prometheus.NewNopAppMetrics(),
			screening.WithLimits(cfg.Matcher),
			screening.WithPatternCacheSize(cfg.Cache.CompiledPatterns))
		if err != nil {
			return fmt.Errorf("service initialization failed: %w", err)
		}
	}

	cliCtx := &CLIContext{
		Config:       cfg,
		Logger:       logger,
		Service:      svc,
		OutputFormat: strings.ToLower(opts.OutputFormat),
		Timeout:      opts.Timeout,
		libraries:    deps.libraries,
		schema:       deps.schema,
		levelSwitch:  levelSwitch,
	}

	if opts.ConfigPath != "" && cmd.Annotations[annotationWatch] == "true" {
		watchConfig(cmd, cliCtx, opts.ConfigPath)
	}

	cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cliCtx))
	return nil
}

// initLogger creates a console logger on stderr.  An explicit --log-level
// wins over the config file, which wins over the flag default.
func initLogger(cmd *cobra.Command, cfg *config.Config, opts *RootOptions) (logging.Logger, *logging.LevelSwitch, error) {
	level := opts.LogLevel
	if !cmd.Flags().Changed("log-level") && opts.ConfigPath != "" && cfg.Log.Level != "" {
		level = cfg.Log.Level
	}
	if opts.Verbose {
		level = "debug"
	}
	return logging.NewLoggerWithSwitch(logging.LogConfig{
		Level:            level,
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
}

// watchConfig re-applies the log level and matcher limits while a long
// library search runs.
func watchConfig(cmd *cobra.Command, cliCtx *CLIContext, path string) {
	levelFixed := cmd.Flags().Changed("log-level") || cmd.Flags().Changed("verbose")
	err := config.Watch(path, func(cfg *config.Config) {
		if cliCtx.levelSwitch != nil && !levelFixed {
			if err := cliCtx.levelSwitch.Set(cfg.Log.Level); err != nil {
				cliCtx.Logger.Warn("ignoring reloaded log level", logging.Err(err))
			}
		}
		cliCtx.Service.SetLimits(cfg.Matcher)
		cliCtx.Logger.Info("configuration reloaded", logging.String("path", path))
	}, func(err error) {
		cliCtx.Logger.Warn("configuration reload failed", logging.Err(err))
	})
	if err != nil {
		cliCtx.Logger.Warn("configuration watch disabled", logging.Err(err))
	}
}

// GetCLIContext extracts CLIContext from a cobra command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "CLIContext not found in command context")
	}
	return cliCtx, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Exit status
// ─────────────────────────────────────────────────────────────────────────────

// ExitError carries a process exit code.  A nil Err exits silently.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps the result of Execute to a process exit code: 0 on success,
// the ExitError code when one is returned and 2 for any other failure.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if stderrors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 2
}

// Execute is the main entry point for the CLI application.
func Execute(ctx context.Context, options ...RootOption) error {
	rootCmd := NewRootCommand(options...)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		PrintError(rootCmd, err)
		return err
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Output
// ─────────────────────────────────────────────────────────────────────────────

// textRenderer is implemented by results with a human-readable layout.
type textRenderer interface {
	RenderText(w io.Writer)
}

// tableProvider is implemented by results that render as rows.
type tableProvider interface {
	TableHeaders() []string
	TableRows() [][]string
}

// PrintResult outputs data in the format specified by CLIContext.
func PrintResult(cmd *cobra.Command, data interface{}) error {
	format := "text"
	if cliCtx, err := GetCLIContext(cmd); err == nil {
		format = cliCtx.OutputFormat
	}

	switch format {
	case "json":
		return printJSON(cmd.OutOrStdout(), data)
	case "table":
		if tp, ok := data.(tableProvider); ok {
			fmt.Fprint(cmd.OutOrStdout(), FormatTable(tp.TableHeaders(), tp.TableRows()))
			return nil
		}
		return printText(cmd.OutOrStdout(), data)
	default:
		return printText(cmd.OutOrStdout(), data)
	}
}

func printJSON(w io.Writer, data interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func printText(w io.Writer, data interface{}) error {
	switch v := data.(type) {
	case textRenderer:
		v.RenderText(w)
	case string:
		fmt.Fprintln(w, v)
	case fmt.Stringer:
		fmt.Fprintln(w, v.String())
	default:
		fmt.Fprintf(w, "%+v\n", v)
	}
	return nil
}

// PrintError writes a formatted error message to stderr.  Application
// errors are printed with their code and detail.
func PrintError(cmd *cobra.Command, err error) {
	var exitErr *ExitError
	if err == nil || (stderrors.As(err, &exitErr) && exitErr.Err == nil) {
		return
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error [%s]: %s\n", appErr.Code, appErr.Message)
		if appErr.Detail != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", appErr.Detail)
		}
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
}

// PrintSuccess writes a formatted success message to stdout.
func PrintSuccess(cmd *cobra.Command, msg string) {
	fmt.Fprintf(cmd.OutOrStdout(), "OK: %s\n", msg)
}

// FormatTable renders headers and rows as an aligned ASCII table.
func FormatTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}

	colWidths := make([]int, len(headers))
	for i, h := range headers {
		colWidths[i] = len(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(colWidths); i++ {
			if len(row[i]) > colWidths[i] {
				colWidths[i] = len(row[i])
			}
		}
	}

	var sb strings.Builder
	writeRow := func(cells []string) {
		for i := range headers {
			if i > 0 {
				sb.WriteString("  ")
			}
			val := ""
			if i < len(cells) {
				val = cells[i]
			}
			if i == len(headers)-1 {
				sb.WriteString(val)
			} else {
				sb.WriteString(padRight(val, colWidths[i]))
			}
		}
		sb.WriteString("\n")
	}

	writeRow(headers)
	sep := make([]string, len(headers))
	for i, w := range colWidths {
		sep[i] = strings.Repeat("-", w)
	}
	writeRow(sep)
	for _, row := range rows {
		writeRow(row)
	}
	return sb.String()
}

// padRight pads s with spaces to the given width.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// formatAtoms renders matched atom indices as "0,1,2".
func formatAtoms(atoms []int) string {
	parts := make([]string, len(atoms))
	for i, a := range atoms {
		parts[i] = fmt.Sprint(a)
	}
	return strings.Join(parts, ",")
}

// openInput opens path for reading, with "-" meaning stdin.
func openInput(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "cannot open input file").WithDetail(path)
	}
	return f, nil
}

//Personal.AI order the ending
