package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/KeyIP-Chem/internal/application/screening"
	"github.com/turtacn/KeyIP-Chem/pkg/errors"
)

// NewMatchCmd creates the match command.
func NewMatchCmd() *cobra.Command {
	var exitCode bool

	cmd := &cobra.Command{
		Use:   "match <smarts> <smiles>",
		Short: "Test whether a SMARTS pattern occurs in a molecule",
		Long: "Match one SMARTS pattern against one SMILES molecule and print the first\n" +
			"embedding.  With --exit-code the command exits 1 when the pattern does not match.",
		Example: "  keyip match '[OX2H]' 'CCO'\n" +
			"  keyip match --exit-code 'c1ccccc1' 'CCO' || echo 'no benzene'",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.withTimeout(cmd.Context())
			defer cancel()

			res, err := cliCtx.Service.Match(ctx, &screening.MatchInput{Pattern: args[0], SMILES: args[1]})
			if err != nil {
				return err
			}
			if err := PrintResult(cmd, matchView{res}); err != nil {
				return err
			}
			if exitCode && !res.Matched {
				return &ExitError{Code: 1}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&exitCode, "exit-code", false, "exit with status 1 when the pattern does not match")
	return cmd
}

type matchView struct{ *screening.MatchResult }

func (v matchView) RenderText(w io.Writer) {
	if !v.Matched {
		fmt.Fprintf(w, "no match (%d steps)\n", v.Steps)
		return
	}
	fmt.Fprintf(w, "match atoms=%s (%d steps)\n", formatAtoms(v.Atoms), v.Steps)
}

func (v matchView) TableHeaders() []string { return []string{"PATTERN", "MATCHED", "ATOMS", "STEPS"} }
func (v matchView) TableRows() [][]string {
	return [][]string{{v.Pattern, strconv.FormatBool(v.Matched), formatAtoms(v.Atoms), strconv.FormatInt(v.Steps, 10)}}
}

// NewScreenCmd creates the screen command.
func NewScreenCmd() *cobra.Command {
	var (
		patterns     []string
		patternsFile string
	)

	cmd := &cobra.Command{
		Use:   "screen <smiles>",
		Short: "Screen a molecule against a set of SMARTS patterns",
		Long: "Screen one molecule against many SMARTS patterns.  Patterns come from repeated\n" +
			"--pattern flags and from a patterns file with one pattern per line; blank lines\n" +
			"and lines starting with # are ignored.  A pattern that fails to compile or runs out\n" +
			"of budget is reported as an error row without failing the screen.",
		Example: "  keyip screen -p '[OX2H]' -p 'C=O' 'CC(=O)O'\n" +
			"  keyip screen --patterns-file alerts.smarts -o table 'CC(=O)Nc1ccc(O)cc1'",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			all := append([]string(nil), patterns...)
			if patternsFile != "" {
				rc, err := openInput(cmd, patternsFile)
				if err != nil {
					return err
				}
				fromFile, err := readPatterns(rc)
				rc.Close()
				if err != nil {
					return errors.Wrap(err, errors.ErrCodeBadRequest, "cannot read patterns file").WithDetail(patternsFile)
				}
				all = append(all, fromFile...)
			}
			if len(all) == 0 {
				return errors.InvalidParam("no patterns given").WithDetail("use --pattern or --patterns-file")
			}

			ctx, cancel := cliCtx.withTimeout(cmd.Context())
			defer cancel()

			res, err := cliCtx.Service.Screen(ctx, &screening.ScreenInput{SMILES: args[0], Patterns: all})
			if err != nil {
				return err
			}
			return PrintResult(cmd, screenView{res})
		},
	}

	cmd.Flags().StringArrayVarP(&patterns, "pattern", "p", nil, "SMARTS pattern (repeatable)")
	cmd.Flags().StringVarP(&patternsFile, "patterns-file", "f", "", "file with one SMARTS pattern per line (- for stdin)")
	return cmd
}

// readPatterns returns the non-blank, non-comment lines of r.
func readPatterns(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}

type screenView struct{ *screening.ScreenResult }

func (v screenView) RenderText(w io.Writer) {
	for _, o := range v.Outcomes {
		switch {
		case o.Error != "":
			fmt.Fprintf(w, "ERROR  %s  [%s] %s\n", o.Pattern, o.ErrorCode, o.Error)
		case o.Matched:
			fmt.Fprintf(w, "MATCH  %s  atoms=%s\n", o.Pattern, formatAtoms(o.Atoms))
		default:
			fmt.Fprintf(w, "-      %s\n", o.Pattern)
		}
	}
	fmt.Fprintf(w, "%d/%d matched, %d failed\n", v.Matched, len(v.Outcomes), v.Failed)
}

func (v screenView) TableHeaders() []string {
	return []string{"PATTERN", "MATCHED", "ATOMS", "STEPS", "ERROR"}
}

func (v screenView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Outcomes))
	for _, o := range v.Outcomes {
		errText := ""
		if o.ErrorCode != "" {
			errText = o.ErrorCode + ": " + o.Error
		}
		rows = append(rows, []string{
			o.Pattern,
			strconv.FormatBool(o.Matched),
			formatAtoms(o.Atoms),
			strconv.FormatInt(o.Steps, 10),
			errText,
		})
	}
	return rows
}

//Personal.AI order the ending
