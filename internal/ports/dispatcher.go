package ports

import (
	"context"

	"github.com/bnema/plebchat-cli/internal/domain"
)

type SendMode string

const (
	SendModeImmediate SendMode = "immediate"
	SendModeReAct     SendMode = "react"
)

// MessageDispatcher hands an authorized send to the model backend. The model
// call and streaming of the reply into the conversation happen behind this
// port; the core treats it as fire-and-forget.
type MessageDispatcher interface {
	Send(ctx context.Context, mode SendMode, conversationID domain.ConversationID, text string) error
}
