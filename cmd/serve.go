package cmd

import (
	"github.com/spf13/cobra"

	"github.com/searchive/searchive/internal/api"
	"github.com/searchive/searchive/internal/app"
	"github.com/searchive/searchive/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the searchive HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := app.Build(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		apiServer := api.NewServer(a.Session(), a.Archive(), a.Logger())
		return server.New(cfg.Server.Port, apiServer.Handler(), a.Logger()).Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
