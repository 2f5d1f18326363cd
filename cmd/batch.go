package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/flightsearch-cli/internal/batch"
	"github.com/xkilldash9x/flightsearch-cli/internal/flightsearch"
	"github.com/xkilldash9x/flightsearch-cli/internal/observability"
)

// newBatchCmd creates the `batch` command.
func newBatchCmd() *cobra.Command {
	var (
		reportPath string
		confirm    bool
	)

	batchCmd := &cobra.Command{
		Use:   "batch <searches.yaml>",
		Short: "Runs several searches, each in its own browser",
		Long: `Runs every search listed in a YAML file. Searches run in parallel up to
batch.concurrency, and browser launches are spaced by batch.launch_interval.
A failed search does not stop the others; the command fails if any did.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}
			logger := observability.GetLogger()

			queries, err := batch.LoadQueries(args[0])
			if err != nil {
				return err
			}
			opts, err := flightsearch.OptionsFromConfig(cfg)
			if err != nil {
				return err
			}

			var confirmer flightsearch.Confirmer = flightsearch.AutoConfirm{}
			if confirm {
				confirmer = flightsearch.Serialized(flightsearch.NewPromptConfirmer(cmd.InOrStdin(), cmd.OutOrStdout()))
			}
			ctrl, err := flightsearch.NewController(newOpener(cfg.Browser, logger), confirmer, opts, logger)
			if err != nil {
				return err
			}

			outcomes := batch.Run(ctx, ctrl, queries, batch.Options{
				Concurrency:    cfg.Batch.Concurrency,
				LaunchInterval: cfg.Batch.LaunchInterval,
			}, logger)
			report := batch.NewReport(outcomes, time.Now().UTC())

			printOutcomes(cmd.OutOrStdout(), outcomes)
			if reportPath != "" {
				if err := writeReportFile(reportPath, report); err != nil {
					return err
				}
			}
			if report.Failed > 0 {
				return fmt.Errorf("%d of %d searches failed", report.Failed, report.Total)
			}
			return nil
		},
	}

	batchCmd.Flags().StringVarP(&reportPath, "report", "o", "", "write a JSON report of all outcomes to this file")
	batchCmd.Flags().BoolVar(&confirm, "confirm", false, "wait for Enter before closing each browser")
	batchCmd.Flags().Int("concurrency", 0, "browsers open at once (default from config)")
	addBrowserFlags(batchCmd)
	return batchCmd
}

func printOutcomes(w io.Writer, outcomes []batch.Outcome) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSEARCH\tPHASE\tDURATION\tERROR")
	for _, o := range outcomes {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", o.Index+1, o.Query, o.Phase, o.Duration.Round(time.Millisecond), o.Error)
	}
	_ = tw.Flush()
}

func writeReportFile(path string, report batch.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := batch.WriteReport(f, report); err != nil {
		_ = f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	return f.Close()
}
