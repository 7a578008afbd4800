// Package cmd defines the searchive command line interface.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/searchive/searchive/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "searchive",
	Short: "Search the web and archive extracted page text",
	Long: `searchive issues rate-limited search queries, extracts readable
text from the result pages with bounded concurrency, and archives both
the results and the extracted text in an append-only, deduplicating
JSON archive.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is environment variables only)")
}

func loadConfig() (config.Config, error) {
	return config.Load(cfgFile)
}
