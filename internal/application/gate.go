package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bnema/plebchat-cli/internal/domain"
	"github.com/bnema/plebchat-cli/internal/ports"
	"github.com/rs/zerolog"
)

// MaxVerifyAttempts bounds both settlement loops. The manual QR path polls
// the verification endpoint this many times; the automatic path re-checks
// the payment proof the same number of times before giving up.
const MaxVerifyAttempts = 180

type OutcomeKind string

const (
	OutcomeSentFree       OutcomeKind = "sent_free"
	OutcomeSentPaidAuto   OutcomeKind = "sent_paid_auto"
	OutcomeSentPaidManual OutcomeKind = "sent_paid_manual"
	OutcomeTimeout        OutcomeKind = "timeout"
)

// SendOutcome is the terminal state of one send attempt. A timeout is an
// outcome, not an error: the message was not dispatched and the caller keeps
// the draft, but nothing failed in the transport or schema sense.
type SendOutcome struct {
	Kind           OutcomeKind
	PaymentRequest string
}

// Delivered reports whether the message was handed to the dispatcher.
func (o SendOutcome) Delivered() bool {
	switch o.Kind {
	case OutcomeSentFree, OutcomeSentPaidAuto, OutcomeSentPaidManual:
		return true
	default:
		return false
	}
}

// InvoicePresenter shows a payment request to the user when the manual path
// is taken (e.g. renders it as a scannable code). Nil is allowed.
type InvoicePresenter func(paymentRequest string)

type GateConfig struct {
	DefaultPayee      string
	MaxVerifyAttempts int
	PollInterval      time.Duration
	Logger            zerolog.Logger
}

// PaymentGate authorizes sends: free while the conversation is under the
// purpose's quota, otherwise gated behind a settled Lightning invoice.
type PaymentGate struct {
	store      *ChatStore
	purposes   *PurposeRegistry
	billing    ports.BillingClient
	wallet     ports.Wallet // nil when no automatic-payment capability exists
	proofs     ports.ProofChecker
	dispatcher ports.MessageDispatcher

	defaultPayee string
	maxAttempts  int
	pollInterval time.Duration
	log          zerolog.Logger
}

func NewPaymentGate(
	store *ChatStore,
	purposes *PurposeRegistry,
	billing ports.BillingClient,
	wallet ports.Wallet,
	proofs ports.ProofChecker,
	dispatcher ports.MessageDispatcher,
	cfg GateConfig,
) *PaymentGate {
	if cfg.MaxVerifyAttempts <= 0 {
		cfg.MaxVerifyAttempts = MaxVerifyAttempts
	}

	return &PaymentGate{
		store:        store,
		purposes:     purposes,
		billing:      billing,
		wallet:       wallet,
		proofs:       proofs,
		dispatcher:   dispatcher,
		defaultPayee: cfg.DefaultPayee,
		maxAttempts:  cfg.MaxVerifyAttempts,
		pollInterval: cfg.PollInterval,
		log:          cfg.Logger,
	}
}

// Send runs one authorization attempt for the trimmed text. Steps execute
// strictly in sequence: quota check, invoice request, wallet probe, then
// either the manual poll loop or the automatic pay-and-verify loop, then
// dispatch. Every failure is scoped to this attempt; the conversation is
// left intact for retry.
func (g *PaymentGate) Send(ctx context.Context, conversationID domain.ConversationID, text string, mode ports.SendMode, present InvoicePresenter) (SendOutcome, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return SendOutcome{}, domain.ErrEmptyDraft
	}

	conv, ok := g.store.Get(conversationID)
	if !ok {
		return SendOutcome{}, fmt.Errorf("send to %s: %w", conversationID, domain.ErrConversationNotFound)
	}

	purpose, ok := g.purposes.Get(conv.PurposeID)
	if !ok {
		return SendOutcome{}, fmt.Errorf("send with purpose %s: %w", conv.PurposeID, domain.ErrPurposeNotFound)
	}

	attempt := g.log.With().
		Str("conversation_id", string(conversationID)).
		Str("purpose_id", string(purpose.ID)).
		Logger()

	if conv.ConversationCount < purpose.ConvoCount && !purpose.Paid {
		g.store.SetConversationCount(conversationID, conv.ConversationCount+1)
		if err := g.dispatcher.Send(ctx, mode, conversationID, text); err != nil {
			return SendOutcome{}, fmt.Errorf("dispatch message: %w", err)
		}
		attempt.Debug().Int("conversation_count", conv.ConversationCount+1).Msg("sent under free quota")
		return SendOutcome{Kind: OutcomeSentFree}, nil
	}

	invoice, err := g.billing.RequestInvoice(ctx, purpose.AmountMsat(), purpose.PayeeOrDefault(g.defaultPayee))
	if err != nil {
		attempt.Warn().Err(err).Msg("invoice request failed")
		return SendOutcome{}, fmt.Errorf("request invoice: %w", err)
	}

	if g.wallet == nil {
		return g.settleManually(ctx, attempt, conversationID, text, mode, invoice, present)
	}
	return g.settleAutomatically(ctx, attempt, conversationID, text, mode, invoice)
}

// settleManually shows the payment request and polls the verification
// collaborator until settlement, cancellation or the attempt cap. The free
// counter is not touched: this is a paid send.
func (g *PaymentGate) settleManually(ctx context.Context, log zerolog.Logger, conversationID domain.ConversationID, text string, mode ports.SendMode, invoice ports.Invoice, present InvoicePresenter) (SendOutcome, error) {
	if present != nil {
		present(invoice.PaymentRequest)
	}

	for poll := 1; poll <= g.maxAttempts; poll++ {
		if err := ctx.Err(); err != nil {
			return SendOutcome{}, err
		}

		settlement, err := g.billing.Verify(ctx, invoice.VerifyRef)
		if err != nil {
			log.Warn().Err(err).Int("poll", poll).Msg("settlement verification failed")
			return SendOutcome{}, fmt.Errorf("verify settlement: %w", err)
		}

		if settlement.Settled {
			if err := g.dispatcher.Send(ctx, mode, conversationID, text); err != nil {
				return SendOutcome{}, fmt.Errorf("dispatch message: %w", err)
			}
			log.Info().Int("poll", poll).Msg("manual payment settled")
			return SendOutcome{Kind: OutcomeSentPaidManual, PaymentRequest: invoice.PaymentRequest}, nil
		}

		if err := g.wait(ctx); err != nil {
			return SendOutcome{}, err
		}
	}

	log.Warn().Int("polls", g.maxAttempts).Msg("manual payment timed out unsettled")
	return SendOutcome{Kind: OutcomeTimeout, PaymentRequest: invoice.PaymentRequest}, nil
}

// settleAutomatically pays through the wallet capability, then re-checks the
// returned proof against the invoice until settlement is confirmed, bounded
// by the same attempt cap as the manual path.
func (g *PaymentGate) settleAutomatically(ctx context.Context, log zerolog.Logger, conversationID domain.ConversationID, text string, mode ports.SendMode, invoice ports.Invoice) (SendOutcome, error) {
	preimage, err := g.wallet.PayInvoice(ctx, invoice.PaymentRequest)
	if err != nil {
		log.Warn().Err(err).Msg("wallet payment failed")
		return SendOutcome{}, fmt.Errorf("%w: %v", domain.ErrWalletPayment, err)
	}

	for check := 1; check <= g.maxAttempts; check++ {
		if err := ctx.Err(); err != nil {
			return SendOutcome{}, err
		}

		settled, err := g.proofs.IsSettled(ctx, invoice, preimage)
		if err != nil {
			log.Warn().Err(err).Int("check", check).Msg("proof check failed")
			return SendOutcome{}, fmt.Errorf("check payment proof: %w", err)
		}

		if settled {
			// A settled automatic payment resets the counter to one
			// instead of leaving the free quota untouched.
			g.store.SetConversationCount(conversationID, 1)
			if err := g.dispatcher.Send(ctx, mode, conversationID, text); err != nil {
				return SendOutcome{}, fmt.Errorf("dispatch message: %w", err)
			}
			log.Info().Int("check", check).Msg("automatic payment settled")
			return SendOutcome{Kind: OutcomeSentPaidAuto, PaymentRequest: invoice.PaymentRequest}, nil
		}

		if err := g.wait(ctx); err != nil {
			return SendOutcome{}, err
		}
	}

	log.Warn().Int("checks", g.maxAttempts).Msg("automatic payment proof never settled")
	return SendOutcome{Kind: OutcomeTimeout, PaymentRequest: invoice.PaymentRequest}, nil
}

func (g *PaymentGate) wait(ctx context.Context) error {
	if g.pollInterval <= 0 {
		return nil
	}
	timer := time.NewTimer(g.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
