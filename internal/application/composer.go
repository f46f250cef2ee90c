package application

import (
	"context"
	"strings"
	"sync"

	"github.com/bnema/plebchat-cli/internal/domain"
	"github.com/bnema/plebchat-cli/internal/ports"
)

// MaxSentMessages bounds the recent-sends history used by the reuse picker.
const MaxSentMessages = 20

// Composer coordinates the draft text and the user actions around it:
// attaching files, pasting, dictation, sending and stopping generation. The
// draft is transient UI state; it becomes a message only at send time, and
// is cleared only after a confirmed, authorized send.
type Composer struct {
	mu    sync.Mutex
	draft string
	sent  []domain.SentMessage

	store    *ChatStore
	purposes *PurposeRegistry
	gate     *PaymentGate
	budget   *BudgetGate
	clock    ports.Clock
}

func NewComposer(store *ChatStore, purposes *PurposeRegistry, gate *PaymentGate, budget *BudgetGate, clock ports.Clock) *Composer {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &Composer{
		store:    store,
		purposes: purposes,
		gate:     gate,
		budget:   budget,
		clock:    clock,
	}
}

func (c *Composer) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

func (c *Composer) SetDraft(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = text
}

// AttachFiles extracts the given files, runs the combined text through the
// budget gate for the conversation and merges the admitted result into the
// draft.
func (c *Composer) AttachFiles(ctx context.Context, conversationID domain.ConversationID, paths []string, names []string) error {
	newText := c.budget.AssembleFiles(ctx, paths, names)
	if strings.TrimSpace(newText) == "" {
		return nil
	}

	budget, model := c.budgetFor(conversationID)

	c.mu.Lock()
	defer c.mu.Unlock()
	merged, err := c.budget.Admit(ctx, c.draft, newText, model, budget)
	if err != nil {
		return err
	}
	c.draft = merged
	return nil
}

// PasteText merges pasted or dropped text into the draft with the fenced
// paste template, subject to the same budget check as attachments.
func (c *Composer) PasteText(ctx context.Context, conversationID domain.ConversationID, clipboard string) error {
	if clipboard == "" {
		return nil
	}

	budget, model := c.budgetFor(conversationID)

	c.mu.Lock()
	defer c.mu.Unlock()
	merged, err := c.budget.AdmitPaste(ctx, c.draft, clipboard, model, budget)
	if err != nil {
		return err
	}
	c.draft = merged
	return nil
}

// ApplyTranscript merges a dictation transcript into the draft. The
// transcript is capitalized when it starts a sentence: at the beginning of
// the draft or after terminal punctuation.
func (c *Composer) ApplyTranscript(transcript string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := strings.TrimSpace(c.draft)
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		c.draft = current
		return
	}

	startsSentence := current == "" ||
		strings.HasSuffix(current, ".") ||
		strings.HasSuffix(current, "!") ||
		strings.HasSuffix(current, "?")
	if startsSentence {
		transcript = strings.ToUpper(transcript[:1]) + transcript[1:]
	}

	if current == "" {
		c.draft = transcript
		return
	}
	c.draft = current + " " + transcript
}

// Send authorizes and dispatches the current draft through the payment
// gate. The draft is cleared and the text recorded in the sent history only
// when the attempt confirms delivery; any failure or timeout preserves the
// draft for retry.
func (c *Composer) Send(ctx context.Context, conversationID domain.ConversationID, mode ports.SendMode, present InvoicePresenter) (SendOutcome, error) {
	c.mu.Lock()
	text := strings.TrimSpace(c.draft)
	c.mu.Unlock()

	outcome, err := c.gate.Send(ctx, conversationID, text, mode, present)
	if err != nil {
		return outcome, err
	}
	if !outcome.Delivered() {
		return outcome, nil
	}

	c.mu.Lock()
	c.draft = ""
	c.recordSentLocked(text)
	c.mu.Unlock()
	return outcome, nil
}

// Stop aborts the conversation's in-flight response generation.
func (c *Composer) Stop(conversationID domain.ConversationID) {
	c.store.StopTyping(conversationID)
}

// SentHistory returns the recent-sends list, most recent first.
func (c *Composer) SentHistory() []domain.SentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.SentMessage, len(c.sent))
	copy(out, c.sent)
	return out
}

// RestoreSentHistory seeds the history from a snapshot.
func (c *Composer) RestoreSentHistory(sent []domain.SentMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(sent) > MaxSentMessages {
		sent = sent[:MaxSentMessages]
	}
	c.sent = make([]domain.SentMessage, len(sent))
	copy(c.sent, sent)
}

func (c *Composer) ClearSentHistory() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = nil
}

// ReuseSent copies a history entry back into the draft.
func (c *Composer) ReuseSent(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.sent) {
		return false
	}
	c.draft = c.sent[index].Text
	return true
}

func (c *Composer) recordSentLocked(text string) {
	now := c.clock.Now()
	for i := range c.sent {
		if c.sent[i].Text == text {
			entry := c.sent[i]
			entry.Count++
			entry.Date = now
			c.sent = append(c.sent[:i], c.sent[i+1:]...)
			c.sent = append([]domain.SentMessage{entry}, c.sent...)
			return
		}
	}

	c.sent = append([]domain.SentMessage{{Date: now, Text: text, Count: 1}}, c.sent...)
	if len(c.sent) > MaxSentMessages {
		c.sent = c.sent[:MaxSentMessages]
	}
}

// budgetFor derives the token budget for new content in a conversation from
// its purpose's model limits, the committed history and the current draft.
func (c *Composer) budgetFor(conversationID domain.ConversationID) (Budget, string) {
	conv, ok := c.store.Get(conversationID)
	if !ok {
		return Budget{}, ""
	}

	purpose, _ := c.purposes.Get(conv.PurposeID)

	c.mu.Lock()
	direct := domain.EstimateDirect(c.draft, purpose.ChatModel)
	c.mu.Unlock()

	return Budget{
		ContextTokens:  purpose.ContextTokens,
		DirectTokens:   direct,
		HistoryTokens:  conv.TokenCount,
		ResponseTokens: purpose.ResponseTokens,
	}, purpose.ChatModel
}
