// Package httpapi implements the optional automatic-payment capability over
// an LNBits-style wallet API. When no wallet endpoint is configured the
// capability is simply absent and sends fall back to the manual invoice path.
package httpapi

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"

	"github.com/bnema/plebchat-cli/internal/domain"
	"github.com/bnema/plebchat-cli/internal/ports"
)

const (
	paymentsPath = "/api/v1/payments"
	apiKeyHeader = "X-Api-Key"

	defaultTimeout = 30 * time.Second
)

type payRequest struct {
	Out    bool   `json:"out"`
	Bolt11 string `json:"bolt11"`
}

type payResponse struct {
	PaymentHash string `json:"payment_hash" validate:"required"`
	Preimage    string `json:"preimage"`
}

type Client struct {
	http     *resty.Client
	validate *validator.Validate
}

var _ ports.Wallet = (*Client)(nil)

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader(apiKeyHeader, apiKey),
		validate: validator.New(),
	}
}

// PayInvoice pays the bolt11 payment request and returns the preimage as
// payment proof. An empty preimage in the wallet's answer is tolerated; the
// proof is then confirmed through settlement verification alone.
func (c *Client) PayInvoice(ctx context.Context, paymentRequest string) (string, error) {
	var out payResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payRequest{Out: true, Bolt11: paymentRequest}).
		SetResult(&out).
		Post(paymentsPath)
	if err != nil {
		return "", fmt.Errorf("pay invoice: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("pay invoice: status %s", resp.Status())
	}
	if err := c.validate.Struct(out); err != nil {
		return "", fmt.Errorf("%w: payment response: %v", domain.ErrWalletPayment, err)
	}

	return out.Preimage, nil
}
