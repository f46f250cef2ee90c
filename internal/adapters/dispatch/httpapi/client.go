// Package httpapi hands authorized sends to the chat backend. The backend
// runs the model and streams the reply on its own; the client only needs the
// acceptance status.
package httpapi

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/bnema/plebchat-cli/internal/domain"
	"github.com/bnema/plebchat-cli/internal/ports"
)

const (
	sendPath = "/chat/send"

	defaultTimeout = 30 * time.Second
)

type sendRequest struct {
	ConversationID string `json:"conversationId"`
	Text           string `json:"text"`
	Mode           string `json:"mode"`
}

type Client struct {
	http *resty.Client
}

var _ ports.MessageDispatcher = (*Client)(nil)

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{http: resty.New().SetBaseURL(baseURL).SetTimeout(timeout)}
}

func (c *Client) Send(ctx context.Context, mode ports.SendMode, conversationID domain.ConversationID, text string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(sendRequest{
			ConversationID: string(conversationID),
			Text:           text,
			Mode:           string(mode),
		}).
		Post(sendPath)
	if err != nil {
		return fmt.Errorf("dispatch message: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("dispatch message: status %s", resp.Status())
	}
	return nil
}
