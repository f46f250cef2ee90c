package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateTextEmptyIsFree(t *testing.T) {
	assert.Equal(t, 0, EstimateText("", "llama-2-7b-chat-hf"))
}

func TestEstimateTextRoundsUp(t *testing.T) {
	assert.Equal(t, 1, EstimateText("abc", "llama-2-7b-chat-hf"))
	assert.Equal(t, 1, EstimateText("abcd", "llama-2-7b-chat-hf"))
	assert.Equal(t, 2, EstimateText("abcde", "llama-2-7b-chat-hf"))
}

func TestEstimateDirectEmptyDraftCostsFraming(t *testing.T) {
	assert.Equal(t, MessageTokenOverhead, EstimateDirect("", "llama-2-7b-chat-hf"))
}

func TestSumMessageTokensInvariant(t *testing.T) {
	now := time.Now()
	a := NewMessage(RoleUser, "hello there", now)
	a.EnsureTokenCount("m", true)
	b := NewMessage(RoleAssistant, "general kenobi", now)
	b.EnsureTokenCount("m", true)

	want := ConversationTokenOverhead +
		(MessageTokenOverhead + a.TokenCount) +
		(MessageTokenOverhead + b.TokenCount)
	assert.Equal(t, want, SumMessageTokens([]Message{a, b}))
}

func TestSumMessageTokensEmptyThread(t *testing.T) {
	assert.Equal(t, ConversationTokenOverhead, SumMessageTokens(nil))
}

func TestEnsureTokenCountKeepsCacheWithoutForce(t *testing.T) {
	msg := NewMessage(RoleUser, "some cached text", time.Now())
	msg.TokenCount = 42

	assert.Equal(t, 42, msg.EnsureTokenCount("m", false))
	assert.Equal(t, EstimateText(msg.Text, "m"), msg.EnsureTokenCount("m", true))
}

func TestConversationRecountTokens(t *testing.T) {
	now := time.Now()
	conv := NewConversation("generalist", now)
	msg := NewMessage(RoleUser, "count me", now)
	msg.EnsureTokenCount("m", true)
	conv.Messages = append(conv.Messages, msg)

	conv.RecountTokens()
	assert.Equal(t, SumMessageTokens(conv.Messages), conv.TokenCount)
}

func TestConversationCloneIsDeep(t *testing.T) {
	now := time.Now()
	conv := NewConversation("generalist", now)
	conv.Messages = append(conv.Messages, NewMessage(RoleUser, "original", now))
	conv.Ephemerals = append(conv.Ephemerals, NewEphemeral("step", "initial"))

	clone := conv.Clone()
	clone.Messages[0].Text = "mutated"
	clone.Ephemerals[0].State["k"] = "v"

	assert.Equal(t, "original", conv.Messages[0].Text)
	assert.Empty(t, conv.Ephemerals[0].State)
}

func TestAbortPendingIsIdempotent(t *testing.T) {
	conv := NewConversation("generalist", time.Now())
	conv.AbortPending() // no handle installed

	calls := 0
	conv.Cancel = func() { calls++ }
	conv.AbortPending()
	conv.AbortPending()
	assert.Equal(t, 1, calls)
}

func TestNewMessageSenderNames(t *testing.T) {
	now := time.Now()
	assert.Equal(t, "You", NewMessage(RoleUser, "", now).Sender)
	assert.Equal(t, "Bot", NewMessage(RoleAssistant, "", now).Sender)
	assert.Equal(t, "Bot", NewMessage(RoleSystem, "", now).Sender)
}

func TestNewTypingMessageStartsEmpty(t *testing.T) {
	msg := NewTypingMessage("generalist", "llama-2-7b-chat-hf", time.Now())
	assert.True(t, msg.Typing)
	assert.Empty(t, msg.Text)
	assert.Zero(t, msg.TokenCount)
	assert.Equal(t, RoleAssistant, msg.Role)
}

func TestPurposeValidate(t *testing.T) {
	purpose := Purpose{ID: "orange-pill", Title: "Orange Pill GPT", ConvoCount: 5, SatsPay: 50}
	require.NoError(t, purpose.Validate())

	assert.Error(t, Purpose{Title: "No ID"}.Validate())
	assert.Error(t, Purpose{ID: "x", Title: "Neg quota", ConvoCount: -1}.Validate())
	assert.Error(t, Purpose{ID: "x", Title: "Neg price", SatsPay: -1}.Validate())
}

func TestPurposeAmountMsat(t *testing.T) {
	assert.Equal(t, int64(50_000), Purpose{SatsPay: 50}.AmountMsat())
}

func TestPurposePayeeOrDefault(t *testing.T) {
	assert.Equal(t, "plebai@getcurrent.io", Purpose{}.PayeeOrDefault("plebai@getcurrent.io"))
	assert.Equal(t, "agent@example.com", Purpose{NIP05: "agent@example.com"}.PayeeOrDefault("plebai@getcurrent.io"))
}

func TestMessagePreview(t *testing.T) {
	msg := NewMessage(RoleUser, "first line\nsecond line", time.Now())
	assert.Equal(t, "first line", msg.Preview(50))

	long := NewMessage(RoleUser, "abcdefghij", time.Now())
	assert.Equal(t, "abcde...", long.Preview(5))
}
