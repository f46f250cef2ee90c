package domain

import (
	"time"

	"github.com/google/uuid"
)

type ConversationID string
type MessageID string
type EphemeralID string

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// CancelHandle aborts an in-flight response generation. It is transient:
// never persisted, present only while the assistant is typing.
type CancelHandle func()

// Conversation is an ordered thread of messages plus its quota and billing
// state. TokenCount always satisfies 3 + sum(4 + message.TokenCount) over the
// current message list.
type Conversation struct {
	ID        ConversationID
	Messages  []Message
	PurposeID PurposeID
	UserTitle string
	AutoTitle string

	TokenCount        int
	ConversationCount int

	Created time.Time
	Updated time.Time

	// Transient, excluded from any snapshot.
	Cancel     CancelHandle
	Ephemerals []Ephemeral
}

func NewConversation(purposeID PurposeID, now time.Time) Conversation {
	return Conversation{
		ID:        ConversationID(uuid.NewString()),
		Messages:  []Message{},
		PurposeID: purposeID,
		Created:   now,
		Updated:   now,
	}
}

// Title returns the user title when set, then the auto title.
func (c Conversation) Title() string {
	if c.UserTitle != "" {
		return c.UserTitle
	}
	return c.AutoTitle
}

// AbortPending invokes and clears the cancellation handle. Safe to call when
// no handle is installed.
func (c *Conversation) AbortPending() {
	if c.Cancel != nil {
		c.Cancel()
		c.Cancel = nil
	}
}

// RecountTokens recomputes the conversation total from the cached per-message
// counts: 3 tokens of thread framing plus 4 per message.
func (c *Conversation) RecountTokens() {
	c.TokenCount = SumMessageTokens(c.Messages)
}

// Clone returns a deep copy so that callers never share message or ephemeral
// slices with the store.
func (c Conversation) Clone() Conversation {
	clone := c
	clone.Messages = make([]Message, len(c.Messages))
	copy(clone.Messages, c.Messages)
	clone.Ephemerals = make([]Ephemeral, len(c.Ephemerals))
	for i, e := range c.Ephemerals {
		clone.Ephemerals[i] = e.clone()
	}
	return clone
}

// Message is a single chat entry. User messages are created complete;
// assistant messages stream in with Typing set and are finalized when the
// stream ends, at which point TokenCount is recomputed.
type Message struct {
	ID     MessageID
	Role   Role
	Sender string
	Avatar string
	Text   string
	Typing bool

	// Cached estimate for the current chat model. Zero means not yet
	// calculated.
	TokenCount int

	PurposeID   PurposeID
	OriginModel string

	Created time.Time
	Updated time.Time
}

func NewMessage(role Role, text string, now time.Time) Message {
	sender := "Bot"
	if role == RoleUser {
		sender = "You"
	}
	return Message{
		ID:      MessageID(uuid.NewString()),
		Role:    role,
		Sender:  sender,
		Text:    text,
		Created: now,
	}
}

// NewTypingMessage creates an empty assistant message that will be mutated in
// place as the response streams in.
func NewTypingMessage(purposeID PurposeID, originModel string, now time.Time) Message {
	msg := NewMessage(RoleAssistant, "", now)
	msg.Typing = true
	msg.PurposeID = purposeID
	msg.OriginModel = originModel
	return msg
}

// Preview returns the first line of the message, clipped to max runes.
func (m Message) Preview(max int) string {
	text := m.Text
	for i, r := range text {
		if r == '\n' {
			text = text[:i]
			break
		}
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}

// Ephemeral is a side-channel progress/debug record scoped to one
// conversation. It exists only in memory and is dropped from snapshots.
type Ephemeral struct {
	ID    EphemeralID
	Title string
	Text  string
	State map[string]any
}

func NewEphemeral(title, initialText string) Ephemeral {
	return Ephemeral{
		ID:    EphemeralID(uuid.NewString()),
		Title: title,
		Text:  initialText,
		State: map[string]any{},
	}
}

func (e Ephemeral) clone() Ephemeral {
	clone := e
	clone.State = make(map[string]any, len(e.State))
	for k, v := range e.State {
		clone.State[k] = v
	}
	return clone
}
