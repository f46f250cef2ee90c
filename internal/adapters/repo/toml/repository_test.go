package toml

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/plebchat-cli/internal/domain"
	"github.com/bnema/plebchat-cli/internal/ports"
)

func newTestRepository(t *testing.T) (*Repository, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "chats.toml")

	cfg := viper.New()
	cfg.Set(chatsPathKey, path)

	repo, err := NewRepository(cfg)
	require.NoError(t, err)
	return repo, path
}

func sampleSnapshot(t *testing.T) ports.Snapshot {
	t.Helper()

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	conv := domain.NewConversation("generic", now)
	conv.AutoTitle = "First question"
	conv.ConversationCount = 2
	conv.Messages = []domain.Message{
		domain.NewMessage(domain.RoleUser, "hello bot", now),
		domain.NewMessage(domain.RoleAssistant, "hello human", now),
	}
	for i := range conv.Messages {
		conv.Messages[i].EnsureTokenCount("gpt-4", true)
	}
	conv.RecountTokens()

	return ports.Snapshot{
		Conversations: []domain.Conversation{conv},
		ActiveID:      conv.ID,
		SentHistory:   []domain.SentMessage{{Date: now, Text: "hello bot", Count: 1}},
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	repo, _ := newTestRepository(t)
	snapshot := sampleSnapshot(t)

	require.NoError(t, repo.Save(context.Background(), snapshot))

	loaded, err := repo.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, loaded.Conversations, 1)
	conv := loaded.Conversations[0]
	assert.Equal(t, snapshot.Conversations[0].ID, conv.ID)
	assert.Equal(t, "First question", conv.AutoTitle)
	assert.Equal(t, 2, conv.ConversationCount)
	assert.Equal(t, snapshot.Conversations[0].TokenCount, conv.TokenCount)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "hello bot", conv.Messages[0].Text)
	assert.Equal(t, domain.RoleAssistant, conv.Messages[1].Role)
	assert.Equal(t, snapshot.ActiveID, loaded.ActiveID)
	require.Len(t, loaded.SentHistory, 1)
	assert.Equal(t, "hello bot", loaded.SentHistory[0].Text)
}

func TestLoadMissingFileYieldsEmptySnapshot(t *testing.T) {
	repo, _ := newTestRepository(t)

	loaded, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded.Conversations)
	assert.Empty(t, loaded.ActiveID)
}

func TestLoadOtherSchemaVersionStartsFresh(t *testing.T) {
	repo, path := newTestRepository(t)

	old := "version = 1\n\n[[conversations]]\nid = \"legacy\"\n"
	require.NoError(t, os.WriteFile(path, []byte(old), 0o600))

	loaded, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded.Conversations, "old schema generations are discarded, not migrated")
}

func TestSaveWritesCurrentVersion(t *testing.T) {
	repo, path := newTestRepository(t)

	require.NoError(t, repo.Save(context.Background(), sampleSnapshot(t)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "version = 2")
}

func TestSaveSetsRestrictivePermissions(t *testing.T) {
	repo, path := newTestRepository(t)

	require.NoError(t, repo.Save(context.Background(), sampleSnapshot(t)))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSaveOverwritesAtomically(t *testing.T) {
	repo, path := newTestRepository(t)
	require.NoError(t, repo.Save(context.Background(), sampleSnapshot(t)))

	require.NoError(t, repo.Save(context.Background(), ports.Snapshot{}))

	loaded, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded.Conversations)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestCancelledContextRejected(t *testing.T) {
	repo, _ := newTestRepository(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, repo.Save(ctx, ports.Snapshot{}), context.Canceled)
}
