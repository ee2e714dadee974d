package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/KeyIP-Chem/internal/application/screening"
	"github.com/turtacn/KeyIP-Chem/internal/domain/fingerprint"
)

// NewParseCmd creates the parse command.
func NewParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <smiles>",
		Short: "Parse a SMILES string and summarize the molecule",
		Example: "  keyip parse 'c1ccccc1O'\n" +
			"  keyip parse -o json 'CC(=O)Nc1ccc(O)cc1'",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.withTimeout(cmd.Context())
			defer cancel()

			res, err := cliCtx.Service.Parse(ctx, args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, parseView{res})
		},
	}
}

type parseView struct{ *screening.ParseResult }

func (v parseView) fields() [][]string {
	return [][]string{
		{"smiles", v.SMILES},
		{"formula", v.Formula},
		{"atoms", strconv.Itoa(v.Atoms)},
		{"bonds", strconv.Itoa(v.Bonds)},
		{"rings", strconv.Itoa(v.Rings)},
		{"fragments", strconv.Itoa(v.Fragments)},
		{"aromatic", strconv.Itoa(v.Aromatic)},
	}
}

func (v parseView) RenderText(w io.Writer) {
	for _, f := range v.fields() {
		fmt.Fprintf(w, "%-10s %s\n", f[0]+":", f[1])
	}
}

func (v parseView) TableHeaders() []string { return []string{"FIELD", "VALUE"} }
func (v parseView) TableRows() [][]string  { return v.fields() }

// NewFingerprintCmd creates the fingerprint command.
func NewFingerprintCmd() *cobra.Command {
	var (
		compare string
		metric  string
	)

	cmd := &cobra.Command{
		Use:   "fingerprint <smiles>",
		Short: "Compute a structural-key fingerprint, optionally comparing two molecules",
		Example: "  keyip fingerprint 'c1ccccc1O'\n" +
			"  keyip fingerprint 'c1ccccc1O' --compare 'c1ccccc1N' --metric dice",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.withTimeout(cmd.Context())
			defer cancel()

			if compare == "" {
				res, err := cliCtx.Service.Fingerprint(ctx, args[0])
				if err != nil {
					return err
				}
				return PrintResult(cmd, fingerprintView{res})
			}

			res, err := cliCtx.Service.Compare(ctx, &screening.CompareInput{
				A:      args[0],
				B:      compare,
				Metric: fingerprint.Metric(metric),
			})
			if err != nil {
				return err
			}
			return PrintResult(cmd, compareView{res})
		},
	}

	cmd.Flags().StringVar(&compare, "compare", "", "second SMILES to compare against")
	cmd.Flags().StringVar(&metric, "metric", string(fingerprint.MetricTanimoto), "similarity metric: tanimoto|dice")
	return cmd
}

type fingerprintView struct{ *screening.FingerprintResult }

func (v fingerprintView) RenderText(w io.Writer) {
	fmt.Fprintf(w, "%s/%d %s\n", v.Type, v.Length, v.Hex)
	fmt.Fprintf(w, "on bits (%d): %s\n", len(v.OnBits), formatAtoms(v.OnBits))
}

func (v fingerprintView) TableHeaders() []string { return []string{"SMILES", "TYPE", "BITS", "ON", "HEX"} }
func (v fingerprintView) TableRows() [][]string {
	return [][]string{fingerprintRow(v.FingerprintResult)}
}

func fingerprintRow(r *screening.FingerprintResult) []string {
	return []string{r.SMILES, string(r.Type), strconv.Itoa(r.Length), strconv.Itoa(len(r.OnBits)), r.Hex}
}

type compareView struct{ *screening.CompareResult }

func (v compareView) RenderText(w io.Writer) {
	fmt.Fprintf(w, "%s %.4f\n", v.Metric, v.Score)
}

func (v compareView) TableHeaders() []string { return []string{"SMILES", "TYPE", "BITS", "ON", "HEX"} }
func (v compareView) TableRows() [][]string {
	return [][]string{fingerprintRow(v.A), fingerprintRow(v.B)}
}

//Personal.AI order the ending
