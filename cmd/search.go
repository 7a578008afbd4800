package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/searchive/searchive/internal/app"
)

var (
	searchCount int
	includeNews bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Run one query through the full pipeline and archive the output",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := app.Build(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		query := strings.Join(args, " ")
		report, err := a.Session().Run(cmd.Context(), query, searchCount, includeNews)
		if err != nil && len(report.Results) == 0 {
			return err
		}
		if err != nil {
			a.Logger().Warn("run completed with archival errors", zap.Error(err))
		}

		succeeded, failed := 0, 0
		for _, o := range report.Outcomes {
			if o.Success {
				succeeded++
			} else {
				failed++
			}
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "query:      %s\n", report.Query)
		fmt.Fprintf(out, "results:    %d\n", len(report.Results))
		fmt.Fprintf(out, "extracted:  %d succeeded, %d failed\n", succeeded, failed)
		if report.SearchBatchFile != "" {
			fmt.Fprintf(out, "search log: %s\n", report.SearchBatchFile)
		}
		if report.ExtractionBatchFile != "" {
			fmt.Fprintf(out, "extract log: %s\n", report.ExtractionBatchFile)
		}
		for _, o := range report.Outcomes {
			if o.Success {
				fmt.Fprintf(out, "  ok   %s (%d chars)\n", o.URL, len([]rune(o.Text)))
			} else {
				fmt.Fprintf(out, "  fail %s: %s\n", o.URL, o.Error)
			}
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchCount, "count", 0,
		"number of results to request (0 uses the configured default)")
	searchCmd.Flags().BoolVar(&includeNews, "news", false,
		"also query the news endpoint and merge deduplicated results")
	rootCmd.AddCommand(searchCmd)
}
