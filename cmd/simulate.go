package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/sav3/internal/chain"
	"github.com/Mohsinsiddi/sav3/internal/ledger"
	"github.com/Mohsinsiddi/sav3/internal/sale"
	"github.com/Mohsinsiddi/sav3/internal/scenario"
	"github.com/Mohsinsiddi/sav3/internal/ui"
)

var (
	simVariant   string
	simMaxBatch  uint64
	simMaxSupply uint64
	simWindow    time.Duration
	simQuiet     bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a full sale on the in-process ledger",
	Long: `Deploy a sale on a fresh in-process ledger and play the whole life cycle:
presale, whitelist and public mints with their allowlists, pause, caps,
supply and payment checks, reserved mints and the final withdraw.

Every step is compared with the expected outcome; the command fails if any
step differs.`,
	Example: `  sav3 simulate
  sav3 simulate --variant sw3
  sav3 simulate --variant both --max-batch 2 --max-supply 10`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		var variants []sale.Variant
		if simVariant == "both" {
			variants = []sale.Variant{sale.VariantWindow, sale.VariantFlag}
		} else {
			v, err := sale.ParseVariant(simVariant)
			if err != nil {
				return err
			}
			variants = []sale.Variant{v}
		}

		failed := 0
		for _, v := range variants {
			sc := scenario.DefaultConfig(v)
			if cmd.Flags().Changed("max-batch") {
				sc.MaxBatchSize = simMaxBatch
			}
			if cmd.Flags().Changed("max-supply") {
				sc.MaxSupply = simMaxSupply
			}
			sc.Window = simWindow

			l := ledger.New(ledger.WithAccounts(scenario.MinAccounts))
			rep, err := scenario.Run(cmd.Context(), l, sc)
			if err != nil {
				return err
			}
			printReport(out, rep)
			failed += len(rep.Failures())
		}
		if failed > 0 {
			return fmt.Errorf("%d step(s) did not go as expected", failed)
		}
		return nil
	},
}

func printReport(out io.Writer, rep *scenario.Report) {
	kind := "Sav3 (time windows)"
	if rep.Variant == sale.VariantFlag {
		kind = "Sw3 (flags)"
	}
	fmt.Fprintln(out, ui.KeyValueBlock(kind, [][2]string{
		{"Contract", ui.Addr(rep.Contract.Hex())},
		{"Owner", ui.Addr(rep.Owner.Hex())},
	}))

	if !simQuiet {
		tbl := ui.NewTable([]ui.Column{
			{Title: "", Width: 2},
			{Title: "Step", Width: 40},
			{Title: "From", Width: 14},
			{Title: "Result", Width: 52},
		})
		for _, s := range rep.Steps {
			mark := ui.StyleSuccess.Render("✓")
			if !s.OK() {
				mark = ui.StyleError.Render("✗")
			}
			tbl.AddRow(ui.Row{mark, s.Name, ui.TruncateAddr(s.From.Hex()), stepResult(s)})
		}
		fmt.Fprintln(out, tbl.Render())
	}

	for _, s := range rep.Failures() {
		fmt.Fprintln(out, ui.Err(fmt.Sprintf("%s: want %q, got %s", s.Name, s.Want, stepResult(s))))
	}
	summary := fmt.Sprintf("%d/%d steps · %d minted · %d reserved used · %s withdrawn",
		len(rep.Steps)-len(rep.Failures()), len(rep.Steps), rep.TotalSupply, rep.UsedReserved, chain.FormatETH(rep.Withdrawn))
	if rep.Passed() {
		fmt.Fprintln(out, ui.Success(summary))
	} else {
		fmt.Fprintln(out, ui.Warn(summary))
	}
	fmt.Fprintln(out)
}

func stepResult(s scenario.Step) string {
	switch {
	case s.Err != nil:
		return ui.TrimErr(s.Err.Error(), 52)
	case s.View:
		return s.Got
	}
	return ui.Revert(s.Got)
}

func init() {
	simulateCmd.Flags().StringVar(&simVariant, "variant", "sav3", "sav3 (time windows), sw3 (flags) or both")
	simulateCmd.Flags().Uint64Var(&simMaxBatch, "max-batch", 100, "max tokens per public mint")
	simulateCmd.Flags().Uint64Var(&simMaxSupply, "max-supply", 5000, "collection size")
	simulateCmd.Flags().DurationVar(&simWindow, "window", time.Hour, "how long each Sav3 phase stays open")
	simulateCmd.Flags().BoolVarP(&simQuiet, "quiet", "q", false, "only print the summary and failures")
}
