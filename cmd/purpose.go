package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPurposeCmd(a *app) *cobra.Command {
	purposeCmd := &cobra.Command{
		Use:   "purpose",
		Short: "Browse and refresh the agent directory",
	}

	purposeCmd.AddCommand(newPurposeListCmd(a), newPurposeRefreshCmd(a))
	return purposeCmd
}

func newPurposeListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available agents with pricing and quota",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			for _, purpose := range a.purposes.List() {
				pricing := fmt.Sprintf("%d free sends, then %d sats", purpose.ConvoCount, purpose.SatsPay)
				if purpose.Paid {
					pricing = fmt.Sprintf("%d sats per message", purpose.SatsPay)
				}
				fmt.Fprintf(out, "%-16s %s (%s) - %s\n", purpose.ID, purpose.Title, purpose.ChatModel, pricing)
				if purpose.Description != "" {
					fmt.Fprintf(out, "%-16s %s\n", "", purpose.Description)
				}
			}
			return nil
		},
	}
}

func newPurposeRefreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch the latest agent table from the directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.purposes.Refresh(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Refreshed %d agents.\n", len(a.purposes.List()))
			return nil
		},
	}
}
