package ports

import "context"

// ContentReducer shrinks over-budget attachment text to fit the remaining
// token budget before it is merged into the draft.
type ContentReducer interface {
	Reduce(ctx context.Context, text string, tokenBudget int) (string, error)
}

// Extractor converts one attached file to text. Extraction failures are
// per-file: the budget gate annotates them inline and continues the batch.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}
