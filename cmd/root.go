package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "pc",
		Short:         "PlebChat CLI (pc): Lightning-gated chat with persona agents",
		Long:          "pc (PlebChat CLI) talks to persona agents from the terminal: free messages within each agent's quota, Lightning invoices beyond it, with conversations persisted locally.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newChatCmd(app),
		newConvoCmd(app),
		newPurposeCmd(app),
	)

	return rootCmd
}
