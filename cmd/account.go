package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/bnema/galho-seco-gateway/internal/application"
	"github.com/bnema/galho-seco-gateway/internal/domain"
	"github.com/spf13/cobra"
)

func newAccountCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage linked accounts",
	}

	cmd.AddCommand(
		newAccountListCmd(app),
		newAccountSetCmd(app),
		newAccountRemoveCmd(app),
	)

	return cmd
}

func newAccountListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List linked accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			views, err := app.accounts.List(cmd.Context())
			if err != nil {
				return err
			}

			if len(views) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no linked accounts")
				return nil
			}
			for _, view := range views {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", view.Account.ID, labelOrDash(view.Account.Label), view.Source, keyState(view))
			}

			return nil
		},
	}
}

func newAccountSetCmd(app *app) *cobra.Command {
	var label string
	var apiKey string
	var keyFromStdin bool
	var useSecretStore bool

	cmd := &cobra.Command{
		Use:   "set <account-id>",
		Short: "Link an account or replace its API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if keyFromStdin {
				key, err := readLine(cmd)
				if err != nil {
					return err
				}
				apiKey = key
			}

			err := app.accounts.SetAPIKey(cmd.Context(), application.SetAPIKeyCommand{
				ID:             domain.AccountID(strings.TrimSpace(args[0])),
				Label:          label,
				APIKey:         apiKey,
				UseSecretStore: useSecretStore,
			})
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "account %s linked\n", strings.TrimSpace(args[0]))
			return err
		},
	}

	cmd.Flags().StringVar(&label, "label", "", "Display label for the account")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key issued by the Galho Seco service")
	cmd.Flags().BoolVar(&keyFromStdin, "api-key-stdin", false, "Read the API key from the first line of stdin")
	cmd.Flags().BoolVar(&useSecretStore, "secret-store", false, "Keep the API key in the secret store instead of accounts.toml")
	cmd.MarkFlagsMutuallyExclusive("api-key", "api-key-stdin")
	cmd.MarkFlagsOneRequired("api-key", "api-key-stdin")

	return cmd
}

func newAccountRemoveCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <account-id>",
		Aliases: []string{"rm"},
		Short:   "Unlink an account and delete its stored key",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domain.AccountID(strings.TrimSpace(args[0]))
			if err := app.accounts.RemoveAccount(cmd.Context(), id); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "account %s removed\n", id)
			return err
		},
	}
}

func readLine(cmd *cobra.Command) (string, error) {
	scanner := bufio.NewScanner(cmd.InOrStdin())
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("read api key: %w", err)
		}
		return "", nil
	}

	return strings.TrimSpace(scanner.Text()), nil
}

func labelOrDash(label string) string {
	if strings.TrimSpace(label) == "" {
		return "-"
	}
	return label
}

func keyState(view application.AccountView) string {
	switch {
	case view.Source == domain.KeySourceNone:
		return "no key"
	case view.Resolved:
		return "ok"
	default:
		return "unresolved"
	}
}
