package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/bnema/plebchat-cli/internal/ports"
)

const (
	configName      = "config"
	configType      = "toml"
	chatsPathKey    = "chats.path"
	chatsFileMode   = 0o600
	chatsDirMode    = 0o700
	chatsConfigDir  = ".plebchat"
	chatsConfigFile = "chats.toml"
	tempFilePattern = ".chats-*.toml.tmp"
)

// Repository persists whole snapshots to a single TOML file. Writes go
// through a temp file and rename so a crash never leaves a torn file.
type Repository struct {
	chatsPath string
	mu        *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.SnapshotRepository = (*Repository)(nil)

func NewRepository(cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	defaultPath := filepath.Join(homeDir, chatsConfigDir, chatsConfigFile)

	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(filepath.Join(homeDir, chatsConfigDir))
	cfg.SetDefault(chatsPathKey, defaultPath)

	err = cfg.ReadInConfig()
	if err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	chatsPath := cfg.GetString(chatsPathKey)
	if chatsPath == "" {
		return nil, errors.New("chats path is empty")
	}
	chatsPath, err = normalizeChatsPath(chatsPath)
	if err != nil {
		return nil, err
	}

	return &Repository{chatsPath: chatsPath, mu: lockForPath(chatsPath)}, nil
}

// Load reads the persisted snapshot. A missing file or a file from another
// schema generation yields an empty snapshot: the client starts fresh.
func (r *Repository) Load(ctx context.Context) (ports.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return ports.Snapshot{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return ports.Snapshot{}, err
	}

	return fromSchema(file), nil
}

func (r *Repository) Save(ctx context.Context, snapshot ports.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.writeSchema(toSchema(snapshot))
}

func (r *Repository) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(r.chatsPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{}, nil
		}
		return fileSchema{}, fmt.Errorf("read chats file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode chats file: %w", err)
	}
	if !file.supportedVersion() {
		return fileSchema{}, nil
	}
	file.applyDefaults()

	return file, nil
}

func normalizeChatsPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve chats path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func (r *Repository) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(r.chatsPath), chatsDirMode); err != nil {
		return fmt.Errorf("create chats directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode chats file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.chatsPath), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp chats file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp chats file: %w", err)
	}

	if err := tempFile.Chmod(chatsFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp chats file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp chats file: %w", err)
	}

	if err := os.Rename(tempName, r.chatsPath); err != nil {
		return fmt.Errorf("replace chats file: %w", err)
	}

	cleanup = false

	if err := os.Chmod(r.chatsPath, chatsFileMode); err != nil {
		return fmt.Errorf("chmod chats file: %w", err)
	}

	return nil
}
