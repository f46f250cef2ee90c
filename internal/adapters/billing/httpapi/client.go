// Package httpapi implements the billing collaborator over the getcurrent
// HTTP API: invoice creation plus LNURL-style settlement verification.
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
	requestPath = "/current/request"
	verifyPath  = "/current/verify"

	defaultTimeout = 15 * time.Second
)

type invoiceRequest struct {
	AmountMsat int64  `json:"amtinsats"`
	NIP05      string `json:"nip05"`
}

type invoiceResponse struct {
	PR     string `json:"pr" validate:"required"`
	Verify string `json:"verify" validate:"required,url"`
}

type verifyRequest struct {
	VerifyURL string `json:"verifyUrl"`
}

type verifyResponse struct {
	Settled  *bool  `json:"settled" validate:"required"`
	Preimage string `json:"preimage"`
}

// Client talks to the billing endpoint. It implements both the invoice
// lifecycle and the payment-proof check, since proofs are confirmed against
// the same verification endpoint.
type Client struct {
	http     *resty.Client
	validate *validator.Validate
}

var (
	_ ports.BillingClient = (*Client)(nil)
	_ ports.ProofChecker  = (*Client)(nil)
)

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		http:     resty.New().SetBaseURL(baseURL).SetTimeout(timeout),
		validate: validator.New(),
	}
}

func (c *Client) RequestInvoice(ctx context.Context, amountMsat int64, payee string) (ports.Invoice, error) {
	var out invoiceResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(invoiceRequest{AmountMsat: amountMsat, NIP05: payee}).
		SetResult(&out).
		Post(requestPath)
	if err != nil {
		return ports.Invoice{}, fmt.Errorf("request invoice: %w", err)
	}
	if resp.IsError() {
		return ports.Invoice{}, fmt.Errorf("request invoice: status %s", resp.Status())
	}
	if err := c.validate.Struct(out); err != nil {
		return ports.Invoice{}, fmt.Errorf("%w: invoice: %v", domain.ErrInvalidBillingResponse, err)
	}

	return ports.Invoice{PaymentRequest: out.PR, VerifyRef: out.Verify}, nil
}

func (c *Client) Verify(ctx context.Context, verifyRef string) (ports.Settlement, error) {
	var out verifyResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(verifyRequest{VerifyURL: verifyRef}).
		SetResult(&out).
		Post(verifyPath)
	if err != nil {
		return ports.Settlement{}, fmt.Errorf("verify settlement: %w", err)
	}
	if resp.IsError() {
		return ports.Settlement{}, fmt.Errorf("verify settlement: status %s", resp.Status())
	}
	if err := c.validate.Struct(out); err != nil {
		return ports.Settlement{}, fmt.Errorf("%w: verification: %v", domain.ErrInvalidBillingResponse, err)
	}

	return ports.Settlement{Settled: *out.Settled, Preimage: out.Preimage}, nil
}

// IsSettled confirms a payment proof by re-querying the invoice's
// verification reference and cross-checking the reported preimage.
func (c *Client) IsSettled(ctx context.Context, invoice ports.Invoice, preimage string) (bool, error) {
	settlement, err := c.Verify(ctx, invoice.VerifyRef)
	if err != nil {
		return false, err
	}
	if !settlement.Settled {
		return false, nil
	}
	if settlement.Preimage != "" && preimage != "" && settlement.Preimage != preimage {
		return false, fmt.Errorf("%w: preimage mismatch", domain.ErrInvalidBillingResponse)
	}
	return true, nil
}
