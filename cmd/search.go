package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/flightsearch-cli/internal/flightsearch"
	"github.com/xkilldash9x/flightsearch-cli/internal/observability"
)

// newOpener is replaced in tests to run against a scripted page.
var newOpener = flightsearch.BrowserOpener

type searchFlags struct {
	from, to   string
	start, end string
	noConfirm  bool
}

// newSearchCmd creates and configures the `search` command.
func newSearchCmd() *cobra.Command {
	var f searchFlags

	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "Fills in the flight search form and submits it",
		Example: `  flightsearch-cli search --from Seoul --to Busan --start 2025-03-05 --end 2025-03-09
  flightsearch-cli search --from Seoul --to Jeju --start 2025-04-01 --end 2025-04-03 --headless --no-confirm`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}
			logger := observability.GetLogger()

			q, err := flightsearch.ParseTripQuery(f.from, f.to, f.start, f.end)
			if err != nil {
				return err
			}
			opts, err := flightsearch.OptionsFromConfig(cfg)
			if err != nil {
				return err
			}

			var confirmer flightsearch.Confirmer = flightsearch.AutoConfirm{}
			if !f.noConfirm {
				confirmer = flightsearch.NewPromptConfirmer(cmd.InOrStdin(), cmd.OutOrStdout())
			}

			ctrl, err := flightsearch.NewController(newOpener(cfg.Browser, logger), confirmer, opts, logger)
			if err != nil {
				return err
			}

			res, err := ctrl.Run(ctx, q)
			if err != nil {
				if res != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Search %s failed while %s: %v\n", res.RunID, res.FailedIn(), err)
				}
				return err
			}
			logger.Info("Search completed.", zap.String("run_id", res.RunID))
			fmt.Fprintf(cmd.OutOrStdout(), "Search %s %s in %s: %s\n", res.RunID, res.Phase, res.Duration.Round(time.Millisecond), q)
			return nil
		},
	}

	searchCmd.Flags().StringVar(&f.from, "from", "", "departure city as typed into the search form (required)")
	searchCmd.Flags().StringVar(&f.to, "to", "", "arrival city (required)")
	searchCmd.Flags().StringVar(&f.start, "start", "", "departure date, YYYY-MM-DD (required)")
	searchCmd.Flags().StringVar(&f.end, "end", "", "return date, YYYY-MM-DD (required)")
	searchCmd.Flags().BoolVar(&f.noConfirm, "no-confirm", false, "close the browser right after submitting instead of waiting for Enter")
	addBrowserFlags(searchCmd)

	for _, name := range []string{"from", "to", "start", "end"} {
		_ = searchCmd.MarkFlagRequired(name)
	}
	return searchCmd
}

// addBrowserFlags registers the flags shared by commands that open browsers.
func addBrowserFlags(cmd *cobra.Command) {
	cmd.Flags().String("url", "", "search page URL (default from config)")
	cmd.Flags().Bool("headless", false, "run the browser without a window")
	cmd.Flags().String("driver", "", "browser driver: chromedp or playwright")
	cmd.Flags().String("remote-url", "", "attach to a running Chrome (DevTools websocket URL)")
	cmd.Flags().String("match", "", "suggestion choice: first or contains")
}
