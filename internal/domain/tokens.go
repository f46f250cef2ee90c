package domain

// Token accounting uses the ~4 chars/token heuristic. Good enough for budget
// thresholds and quota display, not billing-accurate.

const (
	// MessageTokenOverhead is the framing cost of one message (role,
	// separators).
	MessageTokenOverhead = 4

	// ConversationTokenOverhead is the fixed framing cost of a thread.
	ConversationTokenOverhead = 3

	charsPerToken = 4
)

// EstimateText estimates the token count of text for the given model. Empty
// text costs zero; framing overhead is accounted separately.
func EstimateText(text string, model string) int {
	_ = model // the heuristic is model-independent
	if len(text) == 0 {
		return 0
	}
	return (len(text) + charsPerToken - 1) / charsPerToken
}

// EstimateDirect estimates the cost of sending text as a standalone message:
// framing plus content. An empty draft still costs the framing overhead.
func EstimateDirect(text string, model string) int {
	return MessageTokenOverhead + EstimateText(text, model)
}

// SumMessageTokens folds cached per-message counts into the conversation
// total: 3 + sum(4 + message.TokenCount).
func SumMessageTokens(messages []Message) int {
	total := ConversationTokenOverhead
	for _, msg := range messages {
		total += MessageTokenOverhead + msg.TokenCount
	}
	return total
}

// EnsureTokenCount computes and caches the message token count. Without
// force, an existing cached value is kept.
func (m *Message) EnsureTokenCount(model string, force bool) int {
	if force || m.TokenCount == 0 {
		m.TokenCount = EstimateText(m.Text, model)
	}
	return m.TokenCount
}
