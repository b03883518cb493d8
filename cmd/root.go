package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "gsg",
		Short:         "Galho Seco gateway (gsg): sync a tabletop session with the Galho Seco service",
		Long:          "gsg keeps a live socket to the Galho Seco service, runs the rolls and character updates it asks for, and pushes owned characters back over HTTP. It also manages the linked accounts and settings the gateway runs with.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp(os.Stderr)
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newAccountCmd(app),
		newConfigCmd(app),
		newServeCmd(app),
		newPushCmd(app),
		newStatusCmd(app),
	)

	return rootCmd
}
