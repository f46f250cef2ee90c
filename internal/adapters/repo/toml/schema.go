package toml

import (
	"time"

	"github.com/bnema/plebchat-cli/internal/domain"
	"github.com/bnema/plebchat-cli/internal/ports"
)

// Schema version 2 renamed the quota fields; older files are abandoned and
// the client starts fresh rather than migrating.
const currentSchemaVersion = 2

type fileSchema struct {
	Version       int                  `toml:"version"`
	ActiveID      string               `toml:"active_id,omitempty"`
	Conversations []conversationSchema `toml:"conversations"`
	SentHistory   []sentSchema         `toml:"sent_history,omitempty"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

// supportedVersion reports whether the on-disk data can be used as-is. Any
// other version means the file belongs to a different schema generation and
// is discarded wholesale.
func (s fileSchema) supportedVersion() bool {
	return s.Version == 0 || s.Version == currentSchemaVersion
}

type conversationSchema struct {
	ID                string          `toml:"id"`
	PurposeID         string          `toml:"purpose_id,omitempty"`
	UserTitle         string          `toml:"user_title,omitempty"`
	AutoTitle         string          `toml:"auto_title,omitempty"`
	TokenCount        int             `toml:"token_count"`
	ConversationCount int             `toml:"conversation_count"`
	Created           string          `toml:"created,omitempty"`
	Updated           string          `toml:"updated,omitempty"`
	Messages          []messageSchema `toml:"messages"`
}

type messageSchema struct {
	ID          string `toml:"id"`
	Role        string `toml:"role"`
	Sender      string `toml:"sender,omitempty"`
	Avatar      string `toml:"avatar,omitempty"`
	Text        string `toml:"text"`
	TokenCount  int    `toml:"token_count"`
	PurposeID   string `toml:"purpose_id,omitempty"`
	OriginModel string `toml:"origin_model,omitempty"`
	Created     string `toml:"created,omitempty"`
	Updated     string `toml:"updated,omitempty"`
}

type sentSchema struct {
	Date  string `toml:"date,omitempty"`
	Text  string `toml:"text"`
	Count int    `toml:"count"`
}

func toSchema(snapshot ports.Snapshot) fileSchema {
	file := fileSchema{
		Version:       currentSchemaVersion,
		ActiveID:      string(snapshot.ActiveID),
		Conversations: make([]conversationSchema, 0, len(snapshot.Conversations)),
		SentHistory:   make([]sentSchema, 0, len(snapshot.SentHistory)),
	}

	for _, conv := range snapshot.Conversations {
		encoded := conversationSchema{
			ID:                string(conv.ID),
			PurposeID:         string(conv.PurposeID),
			UserTitle:         conv.UserTitle,
			AutoTitle:         conv.AutoTitle,
			TokenCount:        conv.TokenCount,
			ConversationCount: conv.ConversationCount,
			Created:           formatTime(conv.Created),
			Updated:           formatTime(conv.Updated),
			Messages:          make([]messageSchema, 0, len(conv.Messages)),
		}
		for _, msg := range conv.Messages {
			encoded.Messages = append(encoded.Messages, messageSchema{
				ID:          string(msg.ID),
				Role:        string(msg.Role),
				Sender:      msg.Sender,
				Avatar:      msg.Avatar,
				Text:        msg.Text,
				TokenCount:  msg.TokenCount,
				PurposeID:   string(msg.PurposeID),
				OriginModel: msg.OriginModel,
				Created:     formatTime(msg.Created),
				Updated:     formatTime(msg.Updated),
			})
		}
		file.Conversations = append(file.Conversations, encoded)
	}

	for _, sent := range snapshot.SentHistory {
		file.SentHistory = append(file.SentHistory, sentSchema{
			Date:  formatTime(sent.Date),
			Text:  sent.Text,
			Count: sent.Count,
		})
	}

	return file
}

func fromSchema(file fileSchema) ports.Snapshot {
	snapshot := ports.Snapshot{
		ActiveID:      domain.ConversationID(file.ActiveID),
		Conversations: make([]domain.Conversation, 0, len(file.Conversations)),
		SentHistory:   make([]domain.SentMessage, 0, len(file.SentHistory)),
	}

	for _, entry := range file.Conversations {
		conv := domain.Conversation{
			ID:                domain.ConversationID(entry.ID),
			PurposeID:         domain.PurposeID(entry.PurposeID),
			UserTitle:         entry.UserTitle,
			AutoTitle:         entry.AutoTitle,
			TokenCount:        entry.TokenCount,
			ConversationCount: entry.ConversationCount,
			Created:           parseTime(entry.Created),
			Updated:           parseTime(entry.Updated),
			Messages:          make([]domain.Message, 0, len(entry.Messages)),
		}
		for _, msg := range entry.Messages {
			conv.Messages = append(conv.Messages, domain.Message{
				ID:          domain.MessageID(msg.ID),
				Role:        domain.Role(msg.Role),
				Sender:      msg.Sender,
				Avatar:      msg.Avatar,
				Text:        msg.Text,
				TokenCount:  msg.TokenCount,
				PurposeID:   domain.PurposeID(msg.PurposeID),
				OriginModel: msg.OriginModel,
				Created:     parseTime(msg.Created),
				Updated:     parseTime(msg.Updated),
			})
		}
		snapshot.Conversations = append(snapshot.Conversations, conv)
	}

	for _, sent := range file.SentHistory {
		snapshot.SentHistory = append(snapshot.SentHistory, domain.SentMessage{
			Date:  parseTime(sent.Date),
			Text:  sent.Text,
			Count: sent.Count,
		})
	}

	return snapshot
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.Format(time.RFC3339)
}
