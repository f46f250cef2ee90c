package application

import (
	"context"
	"sync"
	"time"

	"github.com/bnema/plebchat-cli/internal/domain"
	"github.com/bnema/plebchat-cli/internal/ports"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeBilling struct {
	invoice     ports.Invoice
	invoiceErr  error
	requests    int
	settleAfter int // Verify reports settled once polls reach this count; 0 = never
	verifyErr   error
	verifies    int
}

func (b *fakeBilling) RequestInvoice(ctx context.Context, amountMsat int64, payee string) (ports.Invoice, error) {
	b.requests++
	if b.invoiceErr != nil {
		return ports.Invoice{}, b.invoiceErr
	}
	return b.invoice, nil
}

func (b *fakeBilling) Verify(ctx context.Context, verifyRef string) (ports.Settlement, error) {
	b.verifies++
	if b.verifyErr != nil {
		return ports.Settlement{}, b.verifyErr
	}
	settled := b.settleAfter > 0 && b.verifies >= b.settleAfter
	return ports.Settlement{Settled: settled, Preimage: "preimage"}, nil
}

type fakeWallet struct {
	preimage string
	err      error
	payments int
}

func (w *fakeWallet) PayInvoice(ctx context.Context, paymentRequest string) (string, error) {
	w.payments++
	if w.err != nil {
		return "", w.err
	}
	return w.preimage, nil
}

type fakeProofs struct {
	settleAfter int
	err         error
	checks      int
}

func (p *fakeProofs) IsSettled(ctx context.Context, invoice ports.Invoice, preimage string) (bool, error) {
	p.checks++
	if p.err != nil {
		return false, p.err
	}
	return p.settleAfter > 0 && p.checks >= p.settleAfter, nil
}

type dispatched struct {
	mode           ports.SendMode
	conversationID domain.ConversationID
	text           string
}

type fakeDispatcher struct {
	err  error
	sent []dispatched
}

func (d *fakeDispatcher) Send(ctx context.Context, mode ports.SendMode, conversationID domain.ConversationID, text string) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, dispatched{mode: mode, conversationID: conversationID, text: text})
	return nil
}

type fakeDirectory struct {
	table map[domain.PurposeID]domain.Purpose
	err   error
}

func (d *fakeDirectory) Fetch(ctx context.Context, fingerprint string) (map[domain.PurposeID]domain.Purpose, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.table, nil
}

type fakeExtractor struct {
	texts map[string]string
	errs  map[string]error
}

func (e *fakeExtractor) Extract(ctx context.Context, path string) (string, error) {
	if err, ok := e.errs[path]; ok {
		return "", err
	}
	return e.texts[path], nil
}

type fakeReducer struct {
	reduced string
	err     error
	calls   int
}

func (r *fakeReducer) Reduce(ctx context.Context, text string, tokenBudget int) (string, error) {
	r.calls++
	if r.err != nil {
		return "", r.err
	}
	return r.reduced, nil
}
