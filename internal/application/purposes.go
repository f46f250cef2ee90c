package application

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bnema/plebchat-cli/internal/domain"
	"github.com/bnema/plebchat-cli/internal/ports"
)

// PurposeRegistry holds the purpose table as a read-only snapshot, replaced
// atomically on refresh so consumers never observe a half-updated table.
type PurposeRegistry struct {
	mu          sync.RWMutex
	table       map[domain.PurposeID]domain.Purpose
	directory   ports.PurposeDirectory
	fingerprint string
}

func NewPurposeRegistry(directory ports.PurposeDirectory, fingerprint string) *PurposeRegistry {
	return &PurposeRegistry{
		table:       map[domain.PurposeID]domain.Purpose{},
		directory:   directory,
		fingerprint: fingerprint,
	}
}

// Seed installs descriptors without contacting the directory, used for the
// built-in default purpose and for tests.
func (r *PurposeRegistry) Seed(purposes ...domain.Purpose) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, purpose := range purposes {
		if err := purpose.Validate(); err != nil {
			return fmt.Errorf("seed purpose %q: %w", purpose.ID, err)
		}
		r.table[purpose.ID] = purpose
	}
	return nil
}

// Refresh fetches the directory's purpose table and swaps it in wholesale.
// On error the previous table stays in place.
func (r *PurposeRegistry) Refresh(ctx context.Context) error {
	if r.directory == nil {
		return fmt.Errorf("no purpose directory configured")
	}

	fetched, err := r.directory.Fetch(ctx, r.fingerprint)
	if err != nil {
		return fmt.Errorf("fetch purpose table: %w", err)
	}

	table := make(map[domain.PurposeID]domain.Purpose, len(fetched))
	for id, purpose := range fetched {
		if purpose.ID == "" {
			purpose.ID = id
		}
		if err := purpose.Validate(); err != nil {
			return fmt.Errorf("purpose %q from directory: %w", id, err)
		}
		table[id] = purpose
	}

	r.mu.Lock()
	r.table = table
	r.mu.Unlock()
	return nil
}

func (r *PurposeRegistry) Get(id domain.PurposeID) (domain.Purpose, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	purpose, ok := r.table[id]
	return purpose, ok
}

// List returns all descriptors sorted by id.
func (r *PurposeRegistry) List() []domain.Purpose {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Purpose, 0, len(r.table))
	for _, purpose := range r.table {
		out = append(out, purpose)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
