package cmd

import (
	"encoding/json"
	"fmt"

	statusadapter "github.com/bnema/galho-seco-gateway/internal/adapters/render/status"
	"github.com/spf13/cobra"
)

func newStatusCmd(app *app) *cobra.Command {
	var worldFile string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show linked accounts and the characters each one syncs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, _, err := app.loadEngine(worldFile)
			if err != nil {
				return err
			}
			settings, err := app.settings.Get(cmd.Context())
			if err != nil {
				return err
			}

			statuses, err := app.newSyncService(engine).Status(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(statuses)
			}

			opts := statusadapter.RenderOptions{ServerAddress: settings.ServerAddress, WorldTitle: engine.Title()}
			if settings.HasServer() {
				opts.Interval = settings.SweepInterval()
			}
			rendered, err := app.statusRenderer(statuses, opts)
			if err != nil {
				return fmt.Errorf("render status: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().StringVar(&worldFile, "world", "", "World file to read characters from (default: $GSG_WORLD_FILE)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}
