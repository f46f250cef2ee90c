// Package reduce shrinks over-budget content so it can still ride along in
// the draft. The head-truncation strategy keeps the opening of the text,
// which for documents and logs carries the most context, and marks the cut.
package reduce

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bnema/plebchat-cli/internal/domain"
	"github.com/bnema/plebchat-cli/internal/ports"
)

const truncationNotice = "\n\n[...content truncated to fit the conversation's token budget...]"

type HeadTruncator struct{}

var _ ports.ContentReducer = (*HeadTruncator)(nil)

func New() *HeadTruncator {
	return &HeadTruncator{}
}

// Reduce clips text to roughly tokenBudget tokens, cutting at the last line
// boundary inside the budget when one exists.
func (r *HeadTruncator) Reduce(ctx context.Context, text string, tokenBudget int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if tokenBudget <= 0 {
		return "", fmt.Errorf("no token budget left for reduced content")
	}
	if domain.EstimateText(text, "") <= tokenBudget {
		return text, nil
	}

	// Reserve room for the truncation notice itself.
	noticeTokens := domain.EstimateText(truncationNotice, "")
	budgetChars := (tokenBudget - noticeTokens) * 4
	if budgetChars <= 0 {
		return "", fmt.Errorf("token budget %d too small for truncated content", tokenBudget)
	}
	if budgetChars > len(text) {
		budgetChars = len(text)
	}

	for budgetChars > 0 && !utf8.RuneStart(text[budgetChars]) {
		budgetChars--
	}
	clipped := text[:budgetChars]
	if cut := strings.LastIndexByte(clipped, '\n'); cut > budgetChars/2 {
		clipped = clipped[:cut]
	}

	return clipped + truncationNotice, nil
}
