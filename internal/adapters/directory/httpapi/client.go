// Package httpapi fetches the purpose table from the agent directory.
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
	agentsPath = "/data/agents"

	defaultTimeout = 15 * time.Second

	// defaultContextTokens is assumed when a descriptor omits the model's
	// context window size.
	defaultContextTokens = 4096
)

type agentsRequest struct {
	FingerPrint string `json:"fingerPrint"`
}

type agentsResponse struct {
	SystemPurposes map[string]purposeDescriptor `json:"SystemPurposes"`
}

type purposeDescriptor struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	PlaceHolder   string   `json:"placeHolder"`
	Examples      []string `json:"examples"`
	SystemMessage string   `json:"systemMessage"`
	ChatLLM       string   `json:"chatLLM"`
	MaxToken      int      `json:"maxToken"`
	ContextWindow int      `json:"contextWindow"`
	ConvoCount    int      `json:"convoCount"`
	SatsPay       int64    `json:"satsPay"`
	Paid          bool     `json:"paid"`
	NIP05         string   `json:"nip05"`
}

type Client struct {
	http *resty.Client
}

var _ ports.PurposeDirectory = (*Client)(nil)

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{http: resty.New().SetBaseURL(baseURL).SetTimeout(timeout)}
}

func (c *Client) Fetch(ctx context.Context, fingerprint string) (map[domain.PurposeID]domain.Purpose, error) {
	var out agentsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(agentsRequest{FingerPrint: fingerprint}).
		SetResult(&out).
		Post(agentsPath)
	if err != nil {
		return nil, fmt.Errorf("fetch agents: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch agents: status %s", resp.Status())
	}
	if len(out.SystemPurposes) == 0 {
		return nil, fmt.Errorf("fetch agents: empty purpose table")
	}

	table := make(map[domain.PurposeID]domain.Purpose, len(out.SystemPurposes))
	for id, descriptor := range out.SystemPurposes {
		table[domain.PurposeID(id)] = toPurpose(domain.PurposeID(id), descriptor)
	}
	return table, nil
}

func toPurpose(id domain.PurposeID, d purposeDescriptor) domain.Purpose {
	contextTokens := d.ContextWindow
	if contextTokens <= 0 {
		contextTokens = defaultContextTokens
	}

	return domain.Purpose{
		ID:             id,
		Title:          d.Title,
		Description:    d.Description,
		Placeholder:    d.PlaceHolder,
		Examples:       d.Examples,
		SystemMessage:  d.SystemMessage,
		ChatModel:      d.ChatLLM,
		ContextTokens:  contextTokens,
		ResponseTokens: d.MaxToken,
		ConvoCount:     d.ConvoCount,
		SatsPay:        d.SatsPay,
		Paid:           d.Paid,
		NIP05:          d.NIP05,
	}
}
