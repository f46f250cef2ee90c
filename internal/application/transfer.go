package application

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bnema/plebchat-cli/internal/domain"
	"github.com/bnema/plebchat-cli/internal/ports"
)

// Interchange documents use camelCase keys and millisecond epoch timestamps
// so exports stay readable with the web client's conversation format.

type conversationDocument struct {
	ID                string            `json:"id"`
	Messages          []messageDocument `json:"messages"`
	SystemPurposeID   string            `json:"systemPurposeId,omitempty"`
	UserTitle         string            `json:"userTitle,omitempty"`
	AutoTitle         string            `json:"autoTitle,omitempty"`
	TokenCount        int               `json:"tokenCount"`
	ConversationCount int               `json:"conversationCount"`
	Created           int64             `json:"created"`
	Updated           int64             `json:"updated"`
}

type messageDocument struct {
	ID         string `json:"id"`
	Role       string `json:"role"`
	Sender     string `json:"sender,omitempty"`
	Avatar     string `json:"avatar,omitempty"`
	Text       string `json:"text"`
	TokenCount int    `json:"tokenCount"`
	PurposeID  string `json:"purposeId,omitempty"`
	OriginLLM  string `json:"originLLM,omitempty"`
	Created    int64  `json:"created"`
	Updated    int64  `json:"updated,omitempty"`
}

// ExportFileName is the suggested name for an exported conversation.
func ExportFileName(id domain.ConversationID) string {
	return fmt.Sprintf("conversation-%s.json", id)
}

// ExportConversation serializes a conversation to the interchange document.
// Transient state (typing flags, cancellation, ephemerals) is not exported.
func ExportConversation(conv domain.Conversation) ([]byte, error) {
	doc := conversationDocument{
		ID:                string(conv.ID),
		Messages:          make([]messageDocument, 0, len(conv.Messages)),
		SystemPurposeID:   string(conv.PurposeID),
		UserTitle:         conv.UserTitle,
		AutoTitle:         conv.AutoTitle,
		TokenCount:        conv.TokenCount,
		ConversationCount: conv.ConversationCount,
		Created:           toMillis(conv.Created),
		Updated:           toMillis(conv.Updated),
	}
	for _, msg := range conv.Messages {
		if msg.Typing {
			continue
		}
		doc.Messages = append(doc.Messages, messageDocument{
			ID:         string(msg.ID),
			Role:       string(msg.Role),
			Sender:     msg.Sender,
			Avatar:     msg.Avatar,
			Text:       msg.Text,
			TokenCount: msg.TokenCount,
			PurposeID:  string(msg.PurposeID),
			OriginLLM:  msg.OriginModel,
			Created:    toMillis(msg.Created),
			Updated:    toMillis(msg.Updated),
		})
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode conversation: %w", err)
	}
	return out, nil
}

// ParseConversation decodes an interchange document back into a
// conversation. Missing optional fields fall back to sensible defaults; the
// id and message list are required.
func ParseConversation(data []byte, defaultPurposeID domain.PurposeID, clock ports.Clock) (domain.Conversation, error) {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	var doc conversationDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.Conversation{}, fmt.Errorf("decode conversation: %w", err)
	}
	if doc.ID == "" {
		return domain.Conversation{}, fmt.Errorf("decode conversation: missing id")
	}
	if doc.Messages == nil {
		return domain.Conversation{}, fmt.Errorf("decode conversation: missing messages")
	}

	now := clock.Now()
	conv := domain.Conversation{
		ID:                domain.ConversationID(doc.ID),
		Messages:          make([]domain.Message, 0, len(doc.Messages)),
		PurposeID:         domain.PurposeID(doc.SystemPurposeID),
		UserTitle:         doc.UserTitle,
		AutoTitle:         doc.AutoTitle,
		TokenCount:        doc.TokenCount,
		ConversationCount: doc.ConversationCount,
		Created:           fromMillis(doc.Created, now),
		Updated:           fromMillis(doc.Updated, now),
	}
	if conv.PurposeID == "" {
		conv.PurposeID = defaultPurposeID
	}

	for _, msg := range doc.Messages {
		conv.Messages = append(conv.Messages, domain.Message{
			ID:          domain.MessageID(msg.ID),
			Role:        domain.Role(msg.Role),
			Sender:      msg.Sender,
			Avatar:      msg.Avatar,
			Text:        msg.Text,
			TokenCount:  msg.TokenCount,
			PurposeID:   domain.PurposeID(msg.PurposeID),
			OriginModel: msg.OriginLLM,
			Created:     fromMillis(msg.Created, now),
			Updated:     fromMillis(msg.Updated, time.Time{}),
		})
	}
	return conv, nil
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64, fallback time.Time) time.Time {
	if ms == 0 {
		return fallback
	}
	return time.UnixMilli(ms)
}
