package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/galho-seco-gateway/internal/application"
	"github.com/bnema/galho-seco-gateway/internal/domain"
	"github.com/spf13/cobra"
)

var errPushFailed = errors.New("push failed")

func newPushCmd(app *app) *cobra.Command {
	var worldFile string
	var quiet bool

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Push every owned character once, one batch per linked account",
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

			service := app.newSyncService(engine)
			var deliveries []application.Delivery
			sweep := func(ctx context.Context) error {
				var err error
				deliveries, err = service.Sweep(ctx, settings.ServerAddress)
				return err
			}

			if quiet {
				err = sweep(cmd.Context())
			} else {
				err = runPushSpinner(cmd.Context(), cmd.ErrOrStderr(), "Pushing characters to "+settings.ServerAddress+"...", sweep)
			}
			if err != nil {
				if errors.Is(err, domain.ErrConfigurationIncomplete) {
					return fmt.Errorf("%w (see `gsg config set server.address` and `gsg account set`)", err)
				}
				return err
			}

			return writeDeliveries(cmd, deliveries)
		},
	}

	cmd.Flags().StringVar(&worldFile, "world", "", "World file to read characters from (default: $GSG_WORLD_FILE)")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "Do not show a spinner")

	return cmd
}

func writeDeliveries(cmd *cobra.Command, deliveries []application.Delivery) error {
	failed := 0
	for _, delivery := range deliveries {
		state := "ok"
		if delivery.Err != nil {
			failed++
			state = "error: " + delivery.Err.Error()
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d characters\t%s\n", delivery.Account, delivery.Characters, state)
	}

	if len(deliveries) == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no account with a usable key and matching user, nothing pushed")
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d accounts: %w", failed, len(deliveries), errPushFailed)
	}

	return nil
}
