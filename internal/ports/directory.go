package ports

import (
	"context"

	"github.com/bnema/plebchat-cli/internal/domain"
)

// PurposeDirectory fetches the purpose table keyed by the client
// fingerprint. The result replaces the in-memory table wholesale.
type PurposeDirectory interface {
	Fetch(ctx context.Context, fingerprint string) (map[domain.PurposeID]domain.Purpose, error)
}
