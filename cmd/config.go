package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bnema/galho-seco-gateway/internal/domain"
	"github.com/spf13/cobra"
)

const (
	keyServerAddress  = "server.address"
	keyUpdateInterval = "sync.update_interval"
	keyWorldTitle     = "world.title"
)

var settableKeys = []string{keyServerAddress, keyUpdateInterval, keyWorldTitle}

func newConfigCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change gateway settings",
	}

	cmd.AddCommand(
		newConfigShowCmd(app),
		newConfigSetCmd(app),
	)

	return cmd
}

func newConfigShowCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := app.settings.Get(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%s = %q\n", keyServerAddress, settings.ServerAddress)
			_, _ = fmt.Fprintf(out, "%s = %s\n", keyUpdateInterval, strconv.FormatFloat(settings.UpdateInterval, 'f', -1, 64))
			_, _ = fmt.Fprintf(out, "%s = %q\n", keyWorldTitle, settings.Title())
			if !settings.HasServer() {
				_, _ = fmt.Fprintln(out, "# server address not configured, the gateway will not connect or sync")
			}

			return nil
		},
	}
}

func newConfigSetCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:       "set <key> <value>",
		Short:     "Change one setting (" + strings.Join(settableKeys, ", ") + ")",
		Args:      cobra.ExactArgs(2),
		ValidArgs: settableKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := app.settings.Get(cmd.Context())
			if err != nil {
				return err
			}

			settings, err = applySetting(settings, args[0], args[1])
			if err != nil {
				return err
			}
			if err := app.settings.Save(cmd.Context(), settings); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s updated\n", args[0])
			return err
		},
	}
}

func applySetting(settings domain.Settings, key string, value string) (domain.Settings, error) {
	switch strings.TrimSpace(key) {
	case keyServerAddress:
		settings.ServerAddress = strings.TrimSpace(value)
	case keyUpdateInterval:
		minutes, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return settings, fmt.Errorf("%s: parse minutes %q: %w", keyUpdateInterval, value, err)
		}
		if minutes <= 0 {
			return settings, fmt.Errorf("%s must be positive, got %v", keyUpdateInterval, minutes)
		}
		settings.UpdateInterval = minutes
	case keyWorldTitle:
		settings.WorldTitle = strings.TrimSpace(value)
	default:
		return settings, fmt.Errorf("unknown setting %q, expected one of %s", key, strings.Join(settableKeys, ", "))
	}

	return settings, nil
}
