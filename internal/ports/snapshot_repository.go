package ports

import (
	"context"

	"github.com/bnema/plebchat-cli/internal/domain"
)

// Snapshot is the durable state of the client: the conversation list, the
// active conversation and the recent-sends history. Cancellation handles and
// ephemerals are never part of it.
type Snapshot struct {
	Conversations []domain.Conversation
	ActiveID      domain.ConversationID
	SentHistory   []domain.SentMessage
}

// SnapshotRepository persists whole snapshots. A schema version bump
// invalidates prior data: Load then returns an empty snapshot, no migration.
type SnapshotRepository interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snapshot Snapshot) error
}
