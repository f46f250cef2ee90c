package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	billingadapter "github.com/bnema/plebchat-cli/internal/adapters/billing/httpapi"
	directoryadapter "github.com/bnema/plebchat-cli/internal/adapters/directory/httpapi"
	dispatchadapter "github.com/bnema/plebchat-cli/internal/adapters/dispatch/httpapi"
	"github.com/bnema/plebchat-cli/internal/adapters/extract"
	"github.com/bnema/plebchat-cli/internal/adapters/reduce"
	convoadapter "github.com/bnema/plebchat-cli/internal/adapters/render/convo"
	tomlrepo "github.com/bnema/plebchat-cli/internal/adapters/repo/toml"
	walletadapter "github.com/bnema/plebchat-cli/internal/adapters/wallet/httpapi"
	"github.com/bnema/plebchat-cli/internal/application"
	"github.com/bnema/plebchat-cli/internal/domain"
	"github.com/bnema/plebchat-cli/internal/logger"
	"github.com/bnema/plebchat-cli/internal/ports"
)

const (
	defaultPayee          = "plebai@getcurrent.io"
	defaultBillingURL     = "https://api.getcurrent.io"
	defaultDirectoryURL   = "https://api.getcurrent.io"
	defaultDispatchURL    = "https://api.getcurrent.io"
	defaultPurposeID      = "Generic"
	defaultChatModel      = "gpt-3.5-turbo"
	defaultContextTokens  = 4096
	defaultResponseTokens = 1024
	defaultFreeSends      = 5
	defaultSatsPay        = 50
)

type app struct {
	store    *application.ChatStore
	purposes *application.PurposeRegistry
	composer *application.Composer
	repo     ports.SnapshotRepository

	convoRenderer func([]convoadapter.Entry, convoadapter.RenderOptions) (string, error)

	defaultPurposeID domain.PurposeID
	log              zerolog.Logger
}

func wireApp() (*app, error) {
	cfg := viper.New()
	if err := loadConfig(cfg); err != nil {
		return nil, err
	}

	log := logger.New(os.Stderr, cfg.GetString("log.level"))

	repo, err := tomlrepo.NewRepository(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire snapshot repository: %w", err)
	}

	purposeID := domain.PurposeID(cfg.GetString("purpose.default"))

	store := application.NewChatStore(application.StoreConfig{
		DefaultPurposeID: purposeID,
		ChatModel:        defaultChatModel,
	})

	snapshot, err := repo.Load(context.Background())
	if err != nil {
		return nil, fmt.Errorf("load chats: %w", err)
	}
	store.Restore(snapshot)

	directory := directoryadapter.NewClient(cfg.GetString("directory.url"), 0)
	purposes := application.NewPurposeRegistry(directory, cfg.GetString("fingerprint"))
	if err := purposes.Seed(builtinPurpose(purposeID)); err != nil {
		return nil, fmt.Errorf("seed default purpose: %w", err)
	}

	billing := billingadapter.NewClient(cfg.GetString("billing.url"), 0)
	dispatcher := dispatchadapter.NewClient(cfg.GetString("dispatch.url"), 0)

	// No configured wallet endpoint means no automatic-payment capability;
	// paid sends then take the manual invoice path.
	var wallet ports.Wallet
	if walletURL := cfg.GetString("wallet.url"); walletURL != "" {
		wallet = walletadapter.NewClient(walletURL, cfg.GetString("wallet.api_key"), 0)
	}

	gate := application.NewPaymentGate(store, purposes, billing, wallet, billing, dispatcher, application.GateConfig{
		DefaultPayee: cfg.GetString("billing.payee"),
		PollInterval: time.Second,
		Logger:       log,
	})

	budget := application.NewBudgetGate(extract.New(), reduce.New())
	composer := application.NewComposer(store, purposes, gate, budget, nil)
	composer.RestoreSentHistory(snapshot.SentHistory)

	return &app{
		store:            store,
		purposes:         purposes,
		composer:         composer,
		repo:             repo,
		convoRenderer:    convoadapter.Render,
		defaultPurposeID: purposeID,
		log:              log,
	}, nil
}

func loadConfig(cfg *viper.Viper) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}

	cfg.SetConfigName("config")
	cfg.SetConfigType("toml")
	cfg.AddConfigPath(filepath.Join(homeDir, ".plebchat"))

	cfg.SetDefault("log.level", envOrDefault("PC_LOG_LEVEL", "warn"))
	cfg.SetDefault("billing.url", envOrDefault("PC_BILLING_URL", defaultBillingURL))
	cfg.SetDefault("billing.payee", envOrDefault("PC_BILLING_PAYEE", defaultPayee))
	cfg.SetDefault("wallet.url", envOrDefault("PC_WALLET_URL", ""))
	cfg.SetDefault("wallet.api_key", envOrDefault("PC_WALLET_API_KEY", ""))
	cfg.SetDefault("directory.url", envOrDefault("PC_DIRECTORY_URL", defaultDirectoryURL))
	cfg.SetDefault("dispatch.url", envOrDefault("PC_DISPATCH_URL", defaultDispatchURL))
	cfg.SetDefault("fingerprint", envOrDefault("PC_FINGERPRINT", ""))
	cfg.SetDefault("purpose.default", envOrDefault("PC_DEFAULT_PURPOSE", defaultPurposeID))

	if err := cfg.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return fmt.Errorf("read config file: %w", err)
		}
	}

	return nil
}

// builtinPurpose keeps the client usable before the first directory refresh.
func builtinPurpose(id domain.PurposeID) domain.Purpose {
	return domain.Purpose{
		ID:             id,
		Title:          "Default",
		Description:    "General-purpose assistant",
		Placeholder:    "Ask me anything",
		ChatModel:      defaultChatModel,
		ContextTokens:  defaultContextTokens,
		ResponseTokens: defaultResponseTokens,
		ConvoCount:     defaultFreeSends,
		SatsPay:        defaultSatsPay,
	}
}

// saveSnapshot persists the store plus the composer's sent history.
func (a *app) saveSnapshot(ctx context.Context) error {
	snapshot := a.store.Snapshot()
	snapshot.SentHistory = a.composer.SentHistory()
	if err := a.repo.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("save chats: %w", err)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
