package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/KeyIP-Chem/internal/application/screening"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/storage/minio"
	"github.com/turtacn/KeyIP-Chem/pkg/errors"
)

// NewSDFCmd creates the sdf command.
func NewSDFCmd() *cobra.Command {
	var (
		pattern string
		bucket  string
		object  string
		maxHits int
	)

	cmd := &cobra.Command{
		Use:   "sdf [file]",
		Short: "Search an SDF compound library for a SMARTS pattern",
		Long: "Stream an SDF library and report every record the pattern matches.  The library is\n" +
			"read from a local file (- for stdin) or, with --object, from object storage.\n" +
			"Records that cannot be parsed are counted as skipped.",
		Example: "  keyip sdf library.sdf --pattern 'c1ccccc1[OX2H]'\n" +
			"  keyip sdf --bucket libs --object vendor/2024.sdf --pattern '[NX3;H2]' --max-hits 50",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{annotationWatch: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if maxHits < 0 {
				return errors.InvalidParam("max-hits must not be negative")
			}
			ctx, cancel := cliCtx.withTimeout(cmd.Context())
			defer cancel()

			var source screening.LibrarySource
			switch {
			case object != "" && len(args) > 0:
				return errors.InvalidParam("give either a file or --object, not both")
			case object != "":
				repo, err := cliCtx.Libraries(ctx)
				if err != nil {
					return err
				}
				source = screening.NewObjectSource(repo, bucket, object)
			case len(args) == 1:
				rc, err := openInput(cmd, args[0])
				if err != nil {
					return err
				}
				defer rc.Close()
				source = screening.NewSDFSource(rc)
			default:
				return errors.InvalidParam("no library given").WithDetail("pass an SDF file or --object")
			}

			res, err := cliCtx.Service.SearchLibrary(ctx, &screening.SearchInput{
				Pattern: pattern,
				Source:  source,
				MaxHits: maxHits,
			})
			if err != nil {
				return err
			}
			return PrintResult(cmd, searchView{res})
		},
	}

	cmd.Flags().StringVarP(&pattern, "pattern", "p", "", "SMARTS pattern (required)")
	cmd.Flags().StringVar(&bucket, "bucket", "", "object storage bucket (default: minio.bucket)")
	cmd.Flags().StringVar(&object, "object", "", "object key of the SDF library")
	cmd.Flags().IntVar(&maxHits, "max-hits", 0, "stop after this many hits (0 = all)")
	_ = cmd.MarkFlagRequired("pattern")
	return cmd
}

type searchView struct{ *screening.SearchResult }

func (v searchView) RenderText(w io.Writer) {
	for _, h := range v.Hits {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", h.Index, h.Name, h.SMILES, formatAtoms(h.Atoms))
	}
	for _, f := range v.Failures {
		fmt.Fprintf(w, "# skipped record %d %s: %s\n", f.Index, f.Name, f.Error)
	}
	suffix := ""
	if v.Truncated {
		suffix = " (stopped at max hits)"
	}
	fmt.Fprintf(w, "# %d hits in %d records, %d skipped%s\n", len(v.Hits), v.Scanned, v.Skipped, suffix)
}

func (v searchView) TableHeaders() []string { return []string{"INDEX", "NAME", "SMILES", "ATOMS"} }
func (v searchView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Hits))
	for _, h := range v.Hits {
		rows = append(rows, []string{strconv.Itoa(h.Index), h.Name, h.SMILES, formatAtoms(h.Atoms)})
	}
	return rows
}

// NewLibraryCmd creates the library command group for managing SDF libraries
// in object storage.
func NewLibraryCmd() *cobra.Command {
	libraryCmd := &cobra.Command{
		Use:   "library",
		Short: "Manage SDF compound libraries in object storage",
	}

	var putBucket, putObject string
	putCmd := &cobra.Command{
		Use:   "put <file>",
		Short: "Upload an SDF library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeBadRequest, "cannot open library file").WithDetail(args[0])
			}
			defer f.Close()
			st, err := f.Stat()
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeBadRequest, "cannot stat library file").WithDetail(args[0])
			}

			object := putObject
			if object == "" {
				object = filepath.Base(args[0])
			}

			ctx, cancel := cliCtx.withTimeout(cmd.Context())
			defer cancel()
			repo, err := cliCtx.Libraries(ctx)
			if err != nil {
				return err
			}
			info, err := repo.Put(ctx, putBucket, object, f, st.Size())
			if err != nil {
				return err
			}
			cliCtx.Logger.Debug("library uploaded",
				logging.String("bucket", info.Bucket),
				logging.String("object", info.Object),
				logging.Int64("size", info.Size))
			if cliCtx.OutputFormat == "json" {
				return PrintResult(cmd, info)
			}
			PrintSuccess(cmd, fmt.Sprintf("uploaded %s/%s (%d bytes)", info.Bucket, info.Object, info.Size))
			return nil
		},
	}
	putCmd.Flags().StringVar(&putBucket, "bucket", "", "target bucket (default: minio.bucket)")
	putCmd.Flags().StringVar(&putObject, "object", "", "object key (default: file name)")

	var lsBucket, lsPrefix string
	lsCmd := &cobra.Command{
		Use:   "ls",
		Short: "List SDF libraries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.withTimeout(cmd.Context())
			defer cancel()
			repo, err := cliCtx.Libraries(ctx)
			if err != nil {
				return err
			}
			infos, err := repo.List(ctx, lsBucket, lsPrefix)
			if err != nil {
				return err
			}
			return PrintResult(cmd, libraryListView(infos))
		},
	}
	lsCmd.Flags().StringVar(&lsBucket, "bucket", "", "bucket to list (default: minio.bucket)")
	lsCmd.Flags().StringVar(&lsPrefix, "prefix", "", "object key prefix")

	libraryCmd.AddCommand(putCmd, lsCmd)
	return libraryCmd
}

type libraryListView []minio.LibraryInfo

func (v libraryListView) RenderText(w io.Writer) {
	for _, info := range v {
		fmt.Fprintf(w, "%s/%s\t%d\t%s\n", info.Bucket, info.Object, info.Size, info.LastModified.Format(time.RFC3339))
	}
}

func (v libraryListView) TableHeaders() []string {
	return []string{"BUCKET", "OBJECT", "SIZE", "MODIFIED"}
}

func (v libraryListView) TableRows() [][]string {
	rows := make([][]string, 0, len(v))
	for _, info := range v {
		rows = append(rows, []string{info.Bucket, info.Object, strconv.FormatInt(info.Size, 10), info.LastModified.Format(time.RFC3339)})
	}
	return rows
}

//Personal.AI order the ending
