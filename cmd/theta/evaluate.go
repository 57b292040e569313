package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/newthinker/theta/internal/app"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	evaluateInput string
	evaluateJSON  bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score a macro snapshot and build the option portfolio",
	Long: `Reads a document holding a macro snapshot and per-asset market data
(YAML, or JSON when the file ends in .json; "-" reads YAML from stdin),
then prints class scores, positions and portfolio totals.`,
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().StringVarP(&evaluateInput, "input", "i", "", "input document (required)")
	evaluateCmd.Flags().BoolVar(&evaluateJSON, "json", false, "print the evaluation as JSON")
	evaluateCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	in, err := readInput(evaluateInput, cmd.InOrStdin())
	if err != nil {
		return err
	}

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	eval, err := a.Evaluate(cmd.Context(), in)
	if err != nil {
		return fmt.Errorf("evaluating: %w", err)
	}

	out := cmd.OutOrStdout()
	if evaluateJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(eval)
	}
	printEvaluation(out, eval)
	return nil
}

// readInput decodes an evaluation input document.
func readInput(path string, stdin io.Reader) (app.Input, error) {
	var in app.Input

	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return in, fmt.Errorf("opening input: %w", err)
		}
		defer f.Close()
		r = f
	}

	var err error
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.NewDecoder(r).Decode(&in)
	} else {
		err = yaml.NewDecoder(r).Decode(&in)
	}
	if err != nil {
		return in, fmt.Errorf("decoding input %s: %w", path, err)
	}
	return in, nil
}

func printEvaluation(out io.Writer, eval *app.Evaluation) {
	fmt.Fprintf(out, "Evaluation %s (%s)\n\n", eval.ID, eval.CreatedAt.Format("2006-01-02 15:04:05 MST"))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ASSET CLASS\tCYCLE\tLIQUIDITY\tRATES\tVALUATION\tCOMMODITY\tTOTAL\tSIGNAL\t")
	fmt.Fprintln(w, "-----------\t-----\t---------\t-----\t---------\t---------\t-----\t------\t")
	for _, s := range eval.Scores {
		f := s.Factors
		fmt.Fprintf(w, "%s\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\t%s\t\n",
			s.AssetClass, f.BusinessCycle, f.Liquidity, f.InterestRate, f.Valuation, f.Commodity, s.Total, s.Signal)
	}
	w.Flush()
	fmt.Fprintln(out)

	if len(eval.Positions) == 0 {
		fmt.Fprintln(out, "No positions.")
	} else {
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SYMBOL\tSTRATEGY\tLOTS\tPUT\tCALL\tPREMIUM/CT\tPREMIUM\tBUYING POWER\tROC %\t")
		fmt.Fprintln(w, "------\t--------\t----\t---\t----\t----------\t-------\t------------\t-----\t")
		for _, p := range eval.Positions {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t\n",
				p.Symbol, p.Strategy, p.Lots, formatStrike(p.PutStrike), formatStrike(p.CallStrike),
				p.PremiumPerContract, p.TotalPremium, p.BuyingPowerRequired, p.ReturnOnCapital)
		}
		w.Flush()
	}

	for _, s := range eval.Skipped {
		fmt.Fprintf(out, "skipped %s: %s", s.Symbol, s.Reason)
		if s.Error != "" {
			fmt.Fprintf(out, " (%s)", s.Error)
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintln(out)

	m := eval.Metrics
	fmt.Fprintf(out, "Trades:            %d\n", m.TradeCount)
	fmt.Fprintf(out, "Total premium:     %.2f\n", m.TotalPremium)
	fmt.Fprintf(out, "Total notional:    %.2f\n", m.TotalNotional)
	fmt.Fprintf(out, "Buying power:      %.2f\n", m.TotalBuyingPower)
	fmt.Fprintf(out, "Return on capital: %.2f%%\n", m.AvgReturnOnCapital)
	fmt.Fprintf(out, "Monthly return:    %.2f%%\n", m.MonthlyReturn)
	fmt.Fprintf(out, "Annualized return: %.2f%%\n", m.AnnualizedReturn)

	if len(eval.Alerts) > 0 {
		fmt.Fprintln(out)
		for _, a := range eval.Alerts {
			fmt.Fprintln(out, a.Message)
		}
	}
}

func formatStrike(k float64) string {
	if k == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f", k)
}
