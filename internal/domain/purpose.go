package domain

import (
	"fmt"
	"strings"
)

type PurposeID string

// Purpose is a persona preset governing model choice, free-message quota and
// price. Descriptors come from the agent directory and are replaced wholesale
// on refresh.
type Purpose struct {
	ID            PurposeID
	Title         string
	Description   string
	Placeholder   string
	Examples      []string
	SystemMessage string

	ChatModel      string
	ContextTokens  int
	ResponseTokens int

	// Billing policy.
	ConvoCount int   // free sends before the paywall
	SatsPay    int64 // price per paid send, in sats
	Paid       bool  // true forces payment from the first send
	NIP05      string
}

func (p Purpose) Validate() error {
	if strings.TrimSpace(string(p.ID)) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if p.ConvoCount < 0 {
		return fmt.Errorf("convo count must not be negative")
	}
	if p.SatsPay < 0 {
		return fmt.Errorf("sats price must not be negative")
	}
	return nil
}

// AmountMsat returns the invoice amount in millisatoshis.
func (p Purpose) AmountMsat() int64 {
	return p.SatsPay * 1000
}

// PayeeOrDefault returns the purpose's payee routing hint, falling back to
// the configured default payee.
func (p Purpose) PayeeOrDefault(fallback string) string {
	if strings.TrimSpace(p.NIP05) != "" {
		return p.NIP05
	}
	return fallback
}
