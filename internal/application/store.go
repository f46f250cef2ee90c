package application

import (
	"sync"

	"github.com/bnema/plebchat-cli/internal/domain"
	"github.com/bnema/plebchat-cli/internal/ports"
)

// MaxConversations caps the retained conversation list; the oldest beyond
// the cap are evicted.
const MaxConversations = 20

type StoreConfig struct {
	DefaultPurposeID domain.PurposeID
	ChatModel        string
	MaxConversations int
	Clock            ports.Clock
}

// ChatStore owns every conversation, message and ephemeral record and is
// their only writer. Mutations replace the affected conversation wholesale
// (copy-on-write), so readers never observe a half-updated one.
//
// All operations are total: an unknown conversation id is a silent no-op,
// because UI actions race with deletion.
type ChatStore struct {
	mu               sync.Mutex
	conversations    []domain.Conversation // newest first
	activeID         domain.ConversationID
	defaultPurposeID domain.PurposeID
	chatModel        string
	maxConversations int
	clock            ports.Clock
}

func NewChatStore(cfg StoreConfig) *ChatStore {
	if cfg.Clock == nil {
		cfg.Clock = ports.SystemClock{}
	}
	if cfg.MaxConversations <= 0 {
		cfg.MaxConversations = MaxConversations
	}

	s := &ChatStore{
		defaultPurposeID: cfg.DefaultPurposeID,
		chatModel:        cfg.ChatModel,
		maxConversations: cfg.MaxConversations,
		clock:            cfg.Clock,
	}

	seed := domain.NewConversation(cfg.DefaultPurposeID, s.clock.Now())
	s.conversations = []domain.Conversation{seed}
	s.activeID = seed.ID
	return s
}

// SetChatModel switches the model used for token estimates on subsequent
// mutations. Cached counts are not retroactively recomputed.
func (s *ChatStore) SetChatModel(model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatModel = model
}

// Create prepends a new conversation inheriting the active conversation's
// purpose and makes it active. The list is capped; evicted conversations
// have any pending generation aborted.
func (s *ChatStore) Create() domain.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	purposeID := s.defaultPurposeID
	if active, ok := s.findLocked(s.activeID); ok {
		purposeID = active.PurposeID
	}

	conv := domain.NewConversation(purposeID, s.clock.Now())
	s.prependLocked(conv)
	s.activeID = conv.ID
	return conv.Clone()
}

// Delete removes a conversation, aborting any in-flight generation first.
// When the active conversation is deleted, the conversation now occupying
// the same list position becomes active (clamped), or none if the list is
// empty.
func (s *ChatStore) Delete(id domain.ConversationID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.indexLocked(id)
	if index < 0 {
		return
	}

	s.conversations[index].AbortPending()
	s.conversations = append(s.conversations[:index], s.conversations[index+1:]...)

	if s.activeID != id {
		return
	}
	if len(s.conversations) == 0 {
		s.activeID = ""
		return
	}
	if index >= len(s.conversations) {
		index = len(s.conversations) - 1
	}
	s.activeID = s.conversations[index].ID
}

// DeleteAll aborts every pending generation and leaves a single fresh
// conversation inheriting the previously active purpose.
func (s *ChatStore) DeleteAll() domain.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	purposeID := s.defaultPurposeID
	if active, ok := s.findLocked(s.activeID); ok {
		purposeID = active.PurposeID
	}

	for i := range s.conversations {
		s.conversations[i].AbortPending()
	}

	conv := domain.NewConversation(purposeID, s.clock.Now())
	s.conversations = []domain.Conversation{conv}
	s.activeID = conv.ID
	return conv.Clone()
}

// Import replaces any existing conversation with the same id and makes the
// imported conversation active. Transient fields are reset.
func (s *ChatStore) Import(conv domain.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index := s.indexLocked(conv.ID); index >= 0 {
		s.conversations[index].AbortPending()
		s.conversations = append(s.conversations[:index], s.conversations[index+1:]...)
	}

	conv = conv.Clone()
	conv.Cancel = nil
	conv.Ephemerals = []domain.Ephemeral{}
	s.prependLocked(conv)
	s.activeID = conv.ID
}

func (s *ChatStore) SetActive(id domain.ConversationID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexLocked(id) >= 0 {
		s.activeID = id
	}
}

// Active returns a clone of the active conversation, if any.
func (s *ChatStore) Active() (domain.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.findLocked(s.activeID)
	if !ok {
		return domain.Conversation{}, false
	}
	return conv.Clone(), true
}

func (s *ChatStore) ActiveID() domain.ConversationID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Get returns a clone of the conversation with the given id.
func (s *ChatStore) Get(id domain.ConversationID) (domain.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.findLocked(id)
	if !ok {
		return domain.Conversation{}, false
	}
	return conv.Clone(), true
}

// List returns clones of all conversations, newest first.
func (s *ChatStore) List() []domain.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Conversation, len(s.conversations))
	for i, conv := range s.conversations {
		out[i] = conv.Clone()
	}
	return out
}

// StartTyping installs the cancellation handle for an in-flight generation.
func (s *ChatStore) StartTyping(id domain.ConversationID, cancel domain.CancelHandle) {
	s.edit(id, func(conv *domain.Conversation) {
		conv.Cancel = cancel
	})
}

// StopTyping aborts any in-flight generation and clears the handle.
func (s *ChatStore) StopTyping(id domain.ConversationID) {
	s.edit(id, func(conv *domain.Conversation) {
		conv.AbortPending()
	})
}

// SetMessages replaces the message list wholesale: pending generation is
// aborted, token counts are recomputed over non-typing messages and
// ephemerals are cleared.
func (s *ChatStore) SetMessages(id domain.ConversationID, messages []domain.Message) {
	s.edit(id, func(conv *domain.Conversation) {
		conv.AbortPending()

		replaced := make([]domain.Message, len(messages))
		copy(replaced, messages)
		for i := range replaced {
			if !replaced[i].Typing {
				replaced[i].EnsureTokenCount(s.chatModel, false)
			}
		}

		conv.Messages = replaced
		conv.RecountTokens()
		conv.Ephemerals = []domain.Ephemeral{}
		conv.Updated = s.clock.Now()
	})
}

// AppendMessage appends one message, computing its token count immediately
// unless it is still typing.
func (s *ChatStore) AppendMessage(id domain.ConversationID, msg domain.Message) {
	s.edit(id, func(conv *domain.Conversation) {
		if !msg.Typing {
			msg.EnsureTokenCount(s.chatModel, true)
		}
		conv.Messages = append(conv.Messages, msg)
		conv.RecountTokens()
		conv.Updated = s.clock.Now()
	})
}

func (s *ChatStore) DeleteMessage(id domain.ConversationID, messageID domain.MessageID) {
	s.edit(id, func(conv *domain.Conversation) {
		kept := conv.Messages[:0:0]
		for _, msg := range conv.Messages {
			if msg.ID != messageID {
				kept = append(kept, msg)
			}
		}
		conv.Messages = kept
		conv.RecountTokens()
		conv.Updated = s.clock.Now()
	})
}

// MessagePatch is a partial message update. Nil fields are left untouched.
type MessagePatch struct {
	Text        *string
	Typing      *bool
	Sender      *string
	Avatar      *string
	OriginModel *string
	PurposeID   *domain.PurposeID
}

// EditMessage applies a patch to one message. The token count is recomputed
// whenever the patch clears the typing flag or the message was not typing;
// Updated is stamped only when touch is set.
func (s *ChatStore) EditMessage(id domain.ConversationID, messageID domain.MessageID, patch MessagePatch, touch bool) {
	s.edit(id, func(conv *domain.Conversation) {
		for i := range conv.Messages {
			msg := &conv.Messages[i]
			if msg.ID != messageID {
				continue
			}

			wasTyping := msg.Typing
			if patch.Text != nil {
				msg.Text = *patch.Text
			}
			if patch.Typing != nil {
				msg.Typing = *patch.Typing
			}
			if patch.Sender != nil {
				msg.Sender = *patch.Sender
			}
			if patch.Avatar != nil {
				msg.Avatar = *patch.Avatar
			}
			if patch.OriginModel != nil {
				msg.OriginModel = *patch.OriginModel
			}
			if patch.PurposeID != nil {
				msg.PurposeID = *patch.PurposeID
			}

			finalized := patch.Typing != nil && !*patch.Typing
			if finalized || !wasTyping {
				msg.EnsureTokenCount(s.chatModel, true)
			}
			if touch {
				msg.Updated = s.clock.Now()
			}
			break
		}

		conv.RecountTokens()
		if touch {
			conv.Updated = s.clock.Now()
		}
	})
}

func (s *ChatStore) SetPurpose(id domain.ConversationID, purposeID domain.PurposeID) {
	s.edit(id, func(conv *domain.Conversation) {
		conv.PurposeID = purposeID
	})
}

func (s *ChatStore) SetAutoTitle(id domain.ConversationID, title string) {
	s.edit(id, func(conv *domain.Conversation) {
		conv.AutoTitle = title
	})
}

func (s *ChatStore) SetUserTitle(id domain.ConversationID, title string) {
	s.edit(id, func(conv *domain.Conversation) {
		conv.UserTitle = title
	})
}

func (s *ChatStore) SetTokenCount(id domain.ConversationID, tokenCount int) {
	s.edit(id, func(conv *domain.Conversation) {
		conv.TokenCount = tokenCount
	})
}

func (s *ChatStore) SetConversationCount(id domain.ConversationID, count int) {
	s.edit(id, func(conv *domain.Conversation) {
		conv.ConversationCount = count
	})
}

func (s *ChatStore) AppendEphemeral(id domain.ConversationID, eph domain.Ephemeral) {
	s.edit(id, func(conv *domain.Conversation) {
		conv.Ephemerals = append(conv.Ephemerals, eph)
	})
}

func (s *ChatStore) DeleteEphemeral(id domain.ConversationID, ephemeralID domain.EphemeralID) {
	s.edit(id, func(conv *domain.Conversation) {
		kept := conv.Ephemerals[:0:0]
		for _, eph := range conv.Ephemerals {
			if eph.ID != ephemeralID {
				kept = append(kept, eph)
			}
		}
		conv.Ephemerals = kept
	})
}

func (s *ChatStore) UpdateEphemeralText(id domain.ConversationID, ephemeralID domain.EphemeralID, text string) {
	s.edit(id, func(conv *domain.Conversation) {
		for i := range conv.Ephemerals {
			if conv.Ephemerals[i].ID == ephemeralID {
				conv.Ephemerals[i].Text = text
				return
			}
		}
	})
}

func (s *ChatStore) UpdateEphemeralState(id domain.ConversationID, ephemeralID domain.EphemeralID, state map[string]any) {
	s.edit(id, func(conv *domain.Conversation) {
		for i := range conv.Ephemerals {
			if conv.Ephemerals[i].ID == ephemeralID {
				conv.Ephemerals[i].State = state
				return
			}
		}
	})
}

// Snapshot returns the durable view of the store: conversations without
// cancellation handles or ephemerals, plus the active id.
func (s *ChatStore) Snapshot() ports.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	conversations := make([]domain.Conversation, len(s.conversations))
	for i, conv := range s.conversations {
		clone := conv.Clone()
		clone.Cancel = nil
		clone.Ephemerals = nil
		conversations[i] = clone
	}

	return ports.Snapshot{
		Conversations: conversations,
		ActiveID:      s.activeID,
	}
}

// Restore replaces the store state from a snapshot. Messages left typing by
// a prior session are repaired to typing=false, transient fields are
// re-initialized and the first conversation becomes active when none is
// marked.
func (s *ChatStore) Restore(snapshot ports.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(snapshot.Conversations) == 0 {
		seed := domain.NewConversation(s.defaultPurposeID, s.clock.Now())
		s.conversations = []domain.Conversation{seed}
		s.activeID = seed.ID
		return
	}

	conversations := make([]domain.Conversation, len(snapshot.Conversations))
	for i, conv := range snapshot.Conversations {
		restored := conv.Clone()
		restored.Cancel = nil
		restored.Ephemerals = []domain.Ephemeral{}
		for j := range restored.Messages {
			restored.Messages[j].Typing = false
		}
		conversations[i] = restored
	}

	s.conversations = conversations
	s.activeID = snapshot.ActiveID
	if _, ok := s.findLocked(s.activeID); !ok {
		s.activeID = conversations[0].ID
	}
}

func (s *ChatStore) edit(id domain.ConversationID, apply func(conv *domain.Conversation)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.indexLocked(id)
	if index < 0 {
		return
	}

	updated := s.conversations[index].Clone()
	apply(&updated)
	s.conversations[index] = updated
}

func (s *ChatStore) prependLocked(conv domain.Conversation) {
	s.conversations = append([]domain.Conversation{conv}, s.conversations...)
	for len(s.conversations) > s.maxConversations {
		last := len(s.conversations) - 1
		s.conversations[last].AbortPending()
		s.conversations = s.conversations[:last]
	}
}

func (s *ChatStore) indexLocked(id domain.ConversationID) int {
	if id == "" {
		return -1
	}
	for i := range s.conversations {
		if s.conversations[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *ChatStore) findLocked(id domain.ConversationID) (domain.Conversation, bool) {
	index := s.indexLocked(id)
	if index < 0 {
		return domain.Conversation{}, false
	}
	return s.conversations[index], true
}
