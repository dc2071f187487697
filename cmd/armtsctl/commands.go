package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"armts/internal/archive"
	"armts/internal/dataset"
	"armts/internal/explain"
	"armts/internal/model"
	"armts/pkg/armts"
)

type datasetFlags struct {
	path            string
	timestampColumn string
	intervalColumn  string
}

func (f *datasetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.path, "data", "", "dataset CSV path")
	cmd.Flags().StringVar(&f.timestampColumn, "timestamp-column", "", "timestamp column name")
	cmd.Flags().StringVar(&f.intervalColumn, "interval-column", "", "interval column name")
}

// apply copies the flags that were set onto the loaded configuration.
func (f *datasetFlags) apply(cmd *cobra.Command, a *app) {
	if cmd.Flags().Changed("data") {
		a.cfg.Dataset.Path = f.path
	}
	if cmd.Flags().Changed("timestamp-column") {
		a.cfg.Dataset.TimestampColumn = f.timestampColumn
	}
	if cmd.Flags().Changed("interval-column") {
		a.cfg.Dataset.IntervalColumn = f.intervalColumn
	}
}

func newDescribeCommand(a *app) *cobra.Command {
	var data datasetFlags
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Summarize the features of a dataset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data.apply(cmd, a)
			table, err := armts.LoadTable(a.cfg.Dataset)
			if err != nil {
				return err
			}
			summaries := dataset.Describe(table)
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, summaries)
			}

			fmt.Fprintf(out, "dataset=%s rows=%s\n", table.Name(), humanize.Comma(int64(table.Len())))
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "FEATURE\tTYPE\tCOUNT\tMIN\tMAX\tMEAN\tSTD\tCATEGORIES")
			for _, s := range summaries {
				switch s.Kind {
				case model.Numerical:
					fmt.Fprintf(w, "%s\t%s\t%s\t%.4f\t%.4f\t%.4f\t%.4f\t\n",
						s.Name, s.Kind, humanize.Comma(int64(s.Count)), s.Min, s.Max, s.Mean, s.StdDev)
				default:
					fmt.Fprintf(w, "%s\t%s\t%s\t\t\t\t\t%s\n",
						s.Name, s.Kind, humanize.Comma(int64(s.Count)), strings.Join(s.Categories, ","))
				}
			}
			return w.Flush()
		},
	}
	data.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func newDimensionCommand(a *app) *cobra.Command {
	var data datasetFlags
	var mode string
	cmd := &cobra.Command{
		Use:   "dimension",
		Short: "Print the vector length an optimizer must supply",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data.apply(cmd, a)
			if cmd.Flags().Changed("mode") {
				a.cfg.Problem.Mode = mode
			}
			table, err := armts.LoadTable(a.cfg.Dataset)
			if err != nil {
				return err
			}
			dim, err := armts.Dimension(table, a.cfg.Problem.Mode)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "mode=%s dimension=%d\n", a.cfg.Problem.Mode, dim)
			return nil
		},
	}
	data.register(cmd)
	cmd.Flags().StringVar(&mode, "mode", "", "timeseries|interval")
	return cmd
}

func newMineCommand(a *app) *cobra.Command {
	var data datasetFlags
	var (
		mode            string
		intervalMapping string
		keyScheme       string
		scope           string
		aggregator      string
		population      int
		iterations      int
		seed            int64
		workers         int
		top             int
		outDir          string
		metricsOut      string
	)
	cmd := &cobra.Command{
		Use:   "mine",
		Short: "Sample random rules over a dataset and keep the best",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data.apply(cmd, a)
			flags := cmd.Flags()
			cfg := &a.cfg
			if flags.Changed("mode") {
				cfg.Problem.Mode = mode
			}
			if flags.Changed("interval-mapping") {
				cfg.Problem.IntervalMapping = intervalMapping
			}
			if flags.Changed("key-scheme") {
				cfg.Problem.KeyScheme = keyScheme
			}
			if flags.Changed("scope") {
				cfg.Problem.Scope = scope
			}
			if flags.Changed("aggregator") {
				cfg.Problem.Aggregator = aggregator
			}
			if flags.Changed("population") {
				cfg.Search.Population = population
			}
			if flags.Changed("iterations") {
				cfg.Search.Iterations = iterations
			}
			if flags.Changed("seed") {
				cfg.Search.Seed = seed
			}
			if flags.Changed("workers") {
				cfg.Search.Workers = workers
			}
			if flags.Changed("top") {
				cfg.Search.Top = top
			}
			if flags.Changed("out") {
				cfg.Output.Dir = outDir
			}

			summary, err := a.client.Mine(cmd.Context(), armts.MineRequest{Config: *cfg})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run_id=%s dataset=%s rows=%s dimension=%d evaluations=%s archived=%s best=%.6f\n",
				summary.RunID, summary.Dataset, humanize.Comma(int64(summary.Rows)), summary.Dimension,
				humanize.Comma(int64(summary.Evaluations)), humanize.Comma(int64(summary.ArchiveSize)), summary.BestFitness)
			if err := printRows(out, summary.Top); err != nil {
				return err
			}
			for _, path := range summary.Exported {
				fmt.Fprintf(out, "exported %s\n", path)
			}
			if metricsOut != "" {
				if err := prometheus.WriteToTextfile(metricsOut, a.registry); err != nil {
					return fmt.Errorf("write metrics: %w", err)
				}
				fmt.Fprintf(out, "metrics %s\n", metricsOut)
			}
			return nil
		},
	}
	data.register(cmd)
	f := cmd.Flags()
	f.StringVar(&mode, "mode", "", "timeseries|interval")
	f.StringVar(&intervalMapping, "interval-mapping", "", "segment|global")
	f.StringVar(&keyScheme, "key-scheme", "", "unordered|sided")
	f.StringVar(&scope, "scope", "", "window|global")
	f.StringVar(&aggregator, "aggregator", "", "fitness aggregator name")
	f.IntVar(&population, "population", 0, "vectors per iteration")
	f.IntVar(&iterations, "iterations", 0, "sampling iterations")
	f.Int64Var(&seed, "seed", 0, "random seed")
	f.IntVar(&workers, "workers", 0, "parallel evaluations")
	f.IntVar(&top, "top", 0, "rules to print, 0 for all")
	f.StringVar(&outDir, "out", "", "directory for rules.csv and rules.json")
	f.StringVar(&metricsOut, "metrics-out", "", "write evaluation metrics in prometheus text format to this file")
	return cmd
}

func newRunsCommand(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			runs, err := a.client.Runs(cmd.Context(), armts.RunsRequest{Limit: limit})
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tCREATED\tDATASET\tMODE\tEVALUATIONS\tRULES\tBEST")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%.6f\n",
					r.ID, humanize.Time(r.CreatedAt), r.Dataset, r.Mode,
					humanize.Comma(int64(r.Evaluations)), humanize.Comma(int64(r.RuleCount)), r.BestFitness)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")
	return cmd
}

func newShowCommand(a *app) *cobra.Command {
	var (
		latest bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "show [run-id]",
		Short: "Print the rules of a stored run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := a.client.Run(cmd.Context(), armts.RunRequest{RunID: firstArg(args), Latest: latest})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, run.Rows())
			}
			fmt.Fprintf(out, "run_id=%s dataset=%s mode=%s rules=%s\n",
				run.ID, run.Config.Dataset, run.Config.Mode, humanize.Comma(int64(len(run.Rules))))
			return printRows(out, run.Rows())
		},
	}
	cmd.Flags().BoolVar(&latest, "latest", false, "use the most recent run")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func newExplainCommand(a *app) *cobra.Command {
	var data datasetFlags
	var (
		latest bool
		rank   int
		shift  float64
		steps  int
	)
	cmd := &cobra.Command{
		Use:   "explain [run-id]",
		Short: "Rank the conditions of a stored rule",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data.apply(cmd, a)
			res, err := a.client.Explain(cmd.Context(), armts.ExplainRequest{
				RunID:          firstArg(args),
				Latest:         latest,
				Rank:           rank,
				Dataset:        a.cfg.Dataset,
				StabilityShift: shift,
				StabilitySteps: steps,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run_id=%s rule: %s => %s fitness=%.6f\n",
				res.RunID, res.Rule.Antecedent, res.Rule.Consequent, res.Rule.Fitness)
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SIDE\tRANK\tFEATURE\tSCORE\tCOVERAGE\tINCLUSION\tAMPLITUDE")
			for _, side := range []struct {
				name   string
				scores []explain.FeatureScore
			}{
				{"antecedent", res.Antecedent},
				{"consequent", res.Consequent},
			} {
				for i, s := range side.scores {
					fmt.Fprintf(w, "%s\t%d\t%s\t%.4f\t%.4f\t%.4f\t%.4f\n",
						side.name, i+1, s.Feature, s.Score, s.Coverage, s.Inclusion, s.Amplitude)
				}
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if res.Stability != nil {
				fmt.Fprintf(out, "stability=%.4f windows=%d\n", res.Stability.Score, len(res.Stability.Series))
			}
			return nil
		},
	}
	data.register(cmd)
	cmd.Flags().BoolVar(&latest, "latest", false, "use the most recent run")
	cmd.Flags().IntVar(&rank, "rank", 0, "rule rank within the run, 0 being the best")
	cmd.Flags().Float64Var(&shift, "shift", 0, "stability window shift in seconds (or interval units); 0 disables")
	cmd.Flags().IntVar(&steps, "steps", 2, "stability shifts on each side of the window")
	return cmd
}

func printRows(w io.Writer, rows []archive.Row) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tFITNESS\tSUPPORT\tCONFIDENCE\tANTECEDENT\tCONSEQUENT\tSTART\tEND")
	for i, r := range rows {
		fmt.Fprintf(tw, "%d\t%.6f\t%.4f\t%.4f\t%s\t%s\t%s\t%s\n",
			i+1, r.Fitness, r.Support, r.Confidence, r.Antecedent, r.Consequent, r.Start, r.End)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
