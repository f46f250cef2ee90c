package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	convoadapter "github.com/bnema/plebchat-cli/internal/adapters/render/convo"
	"github.com/bnema/plebchat-cli/internal/application"
	"github.com/bnema/plebchat-cli/internal/domain"
)

func newConvoCmd(a *app) *cobra.Command {
	convoCmd := &cobra.Command{
		Use:   "convo",
		Short: "Manage conversations",
	}

	convoCmd.AddCommand(
		newConvoListCmd(a),
		newConvoNewCmd(a),
		newConvoSelectCmd(a),
		newConvoShowCmd(a),
		newConvoDeleteCmd(a),
		newConvoDeleteAllCmd(a),
		newConvoExportCmd(a),
		newConvoImportCmd(a),
	)
	return convoCmd
}

func newConvoListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List conversations with quota and token budget",
		RunE: func(cmd *cobra.Command, _ []string) error {
			activeID := a.store.ActiveID()
			conversations := a.store.List()

			entries := make([]convoadapter.Entry, 0, len(conversations))
			for _, conv := range conversations {
				purpose, _ := a.purposes.Get(conv.PurposeID)
				entries = append(entries, convoadapter.Entry{
					Conversation: conv,
					Purpose:      purpose,
					Active:       conv.ID == activeID,
				})
			}

			output, err := a.convoRenderer(entries, convoadapter.RenderOptions{})
			if err != nil {
				return fmt.Errorf("render conversations: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}
}

func newConvoNewCmd(a *app) *cobra.Command {
	var purposeID string

	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Start a new conversation and make it active",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conv := a.store.Create()
			if purposeID != "" {
				if _, ok := a.purposes.Get(domain.PurposeID(purposeID)); !ok {
					return fmt.Errorf("purpose %s: %w", purposeID, domain.ErrPurposeNotFound)
				}
				a.store.SetPurpose(conv.ID, domain.PurposeID(purposeID))
			}

			if err := a.saveSnapshot(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created conversation %s\n", conv.ID)
			return nil
		},
	}

	newCmd.Flags().StringVar(&purposeID, "purpose", "", "purpose id for the new conversation (defaults to the active conversation's purpose)")
	return newCmd
}

func newConvoSelectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "select <id>",
		Short: "Make a conversation active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domain.ConversationID(args[0])
			if _, ok := a.store.Get(id); !ok {
				return fmt.Errorf("conversation %s: %w", args[0], domain.ErrConversationNotFound)
			}

			a.store.SetActive(id)
			return a.saveSnapshot(cmd.Context())
		},
	}
}

func newConvoShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Print a conversation's messages",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var convoID string
			if len(args) == 1 {
				convoID = args[0]
			}
			id, err := resolveConversation(a, convoID)
			if err != nil {
				return err
			}

			conv, _ := a.store.Get(id)
			out := cmd.OutOrStdout()

			title := conv.Title()
			if title == "" {
				title = "Untitled"
			}
			fmt.Fprintf(out, "%s (%s)\n", title, conv.ID)
			fmt.Fprintf(out, "purpose: %s, tokens: %d, free sends used: %d\n\n", conv.PurposeID, conv.TokenCount, conv.ConversationCount)

			for _, msg := range conv.Messages {
				if msg.Typing {
					fmt.Fprintf(out, "%s: ...\n", msg.Sender)
					continue
				}
				fmt.Fprintf(out, "%s: %s\n", msg.Sender, msg.Text)
			}
			return nil
		},
	}
}

func newConvoDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.store.Delete(domain.ConversationID(args[0]))
			return a.saveSnapshot(cmd.Context())
		},
	}
}

func newConvoDeleteAllCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-all",
		Short: "Delete every conversation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conv := a.store.DeleteAll()
			a.composer.ClearSentHistory()

			if err := a.saveSnapshot(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Cleared. New conversation %s\n", conv.ID)
			return nil
		},
	}
}

func newConvoExportCmd(a *app) *cobra.Command {
	var outPath string

	exportCmd := &cobra.Command{
		Use:   "export [id]",
		Short: "Export a conversation to a JSON file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var convoID string
			if len(args) == 1 {
				convoID = args[0]
			}
			id, err := resolveConversation(a, convoID)
			if err != nil {
				return err
			}

			conv, _ := a.store.Get(id)
			data, err := application.ExportConversation(conv)
			if err != nil {
				return err
			}

			path := outPath
			if path == "" {
				path = application.ExportFileName(conv.ID)
			}
			if err := os.WriteFile(path, data, 0o600); err != nil {
				return fmt.Errorf("write export file: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", path)
			return nil
		},
	}

	exportCmd.Flags().StringVar(&outPath, "out", "", "output file (defaults to conversation-<id>.json)")
	return exportCmd
}

func newConvoImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a conversation from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read import file: %w", err)
			}

			conv, err := application.ParseConversation(data, a.defaultPurposeID, nil)
			if err != nil {
				return err
			}

			a.store.Import(conv)
			if err := a.saveSnapshot(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported conversation %s\n", conv.ID)
			return nil
		},
	}
}
