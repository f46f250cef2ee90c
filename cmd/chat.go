package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bnema/plebchat-cli/internal/application"
	"github.com/bnema/plebchat-cli/internal/domain"
	"github.com/bnema/plebchat-cli/internal/ports"
)

func newChatCmd(a *app) *cobra.Command {
	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Send messages to the active conversation",
	}

	chatCmd.AddCommand(newChatSendCmd(a), newChatStopCmd(a))
	return chatCmd
}

func newChatSendCmd(a *app) *cobra.Command {
	var (
		attachments []string
		mode        string
		paste       bool
		convoID     string
	)

	sendCmd := &cobra.Command{
		Use:   "send [text...]",
		Short: "Send a message, paying a Lightning invoice when over quota",
		Long:  "Sends the message through the payment gate: free while the agent's quota lasts, otherwise a Lightning invoice is shown and the message goes out once it settles. Attachments and pasted stdin are merged into the message under the conversation's token budget.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			id, err := resolveConversation(a, convoID)
			if err != nil {
				return err
			}

			sendMode, err := parseSendMode(mode)
			if err != nil {
				return err
			}

			a.composer.SetDraft(strings.TrimSpace(strings.Join(args, " ")))

			if len(attachments) > 0 {
				names := make([]string, len(attachments))
				for i, path := range attachments {
					names[i] = filepath.Base(path)
				}
				if err := a.composer.AttachFiles(ctx, id, attachments, names); err != nil {
					return fmt.Errorf("attach files: %w", err)
				}
			}

			if paste {
				clipboard, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read pasted input: %w", err)
				}
				if err := a.composer.PasteText(ctx, id, string(clipboard)); err != nil {
					return fmt.Errorf("paste text: %w", err)
				}
			}

			outcome, err := runPaymentSpinner(ctx, cmd.OutOrStdout(), func(ctx context.Context, present application.InvoicePresenter) (application.SendOutcome, error) {
				return a.composer.Send(ctx, id, sendMode, present)
			})
			if err != nil {
				if errors.Is(err, context.Canceled) {
					fmt.Fprintln(cmd.OutOrStdout(), "Payment cancelled; message kept as draft.")
					return nil
				}
				return err
			}

			printOutcome(cmd.OutOrStdout(), outcome)

			if err := a.saveSnapshot(context.WithoutCancel(ctx)); err != nil {
				return err
			}
			return nil
		},
	}

	sendCmd.Flags().StringArrayVar(&attachments, "attach", nil, "attach a text file (repeatable)")
	sendCmd.Flags().StringVar(&mode, "mode", string(ports.SendModeImmediate), "send mode: immediate or react")
	sendCmd.Flags().BoolVar(&paste, "paste", false, "merge stdin into the message as pasted content")
	sendCmd.Flags().StringVar(&convoID, "convo", "", "conversation id (defaults to the active conversation)")

	return sendCmd
}

func newChatStopCmd(a *app) *cobra.Command {
	var convoID string

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Abort the in-flight response generation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := resolveConversation(a, convoID)
			if err != nil {
				return err
			}

			a.composer.Stop(id)
			fmt.Fprintln(cmd.OutOrStdout(), "Stopped.")
			return nil
		},
	}

	stopCmd.Flags().StringVar(&convoID, "convo", "", "conversation id (defaults to the active conversation)")
	return stopCmd
}

func resolveConversation(a *app, convoID string) (domain.ConversationID, error) {
	if convoID != "" {
		id := domain.ConversationID(convoID)
		if _, ok := a.store.Get(id); !ok {
			return "", fmt.Errorf("conversation %s: %w", convoID, domain.ErrConversationNotFound)
		}
		return id, nil
	}

	id := a.store.ActiveID()
	if id == "" {
		return "", domain.ErrConversationNotFound
	}
	return id, nil
}

func parseSendMode(mode string) (ports.SendMode, error) {
	switch ports.SendMode(strings.ToLower(strings.TrimSpace(mode))) {
	case ports.SendModeImmediate:
		return ports.SendModeImmediate, nil
	case ports.SendModeReAct:
		return ports.SendModeReAct, nil
	default:
		return "", fmt.Errorf("unknown send mode %q (want immediate or react)", mode)
	}
}

func printOutcome(w io.Writer, outcome application.SendOutcome) {
	switch outcome.Kind {
	case application.OutcomeSentFree:
		fmt.Fprintln(w, "Sent (free quota).")
	case application.OutcomeSentPaidAuto:
		fmt.Fprintln(w, "Sent (paid via wallet).")
	case application.OutcomeSentPaidManual:
		fmt.Fprintln(w, "Sent (invoice settled).")
	case application.OutcomeTimeout:
		fmt.Fprintln(w, "Payment not confirmed in time; message kept as draft.")
	}
}
