package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/plebchat-cli/internal/domain"
)

func TestBudgetRemaining(t *testing.T) {
	b := Budget{ContextTokens: 1000, DirectTokens: 50, HistoryTokens: 300, ResponseTokens: 256}
	assert.Equal(t, 394, b.Remaining())

	b.HistoryTokens = 900
	assert.Negative(t, b.Remaining())
}

func TestAssembleFilesFencesEachFile(t *testing.T) {
	gate := NewBudgetGate(&fakeExtractor{texts: map[string]string{
		"/tmp/a.txt": "alpha body",
		"/tmp/b.md":  "bravo body",
	}}, nil)

	text := gate.AssembleFiles(context.Background(), []string{"/tmp/a.txt", "/tmp/b.md"}, []string{"a.txt", "b.md"})

	assert.Contains(t, text, "```a.txt\nalpha body\n```")
	assert.Contains(t, text, "```b.md\nbravo body\n```")
}

func TestAssembleFilesAnnotatesFailureInline(t *testing.T) {
	gate := NewBudgetGate(&fakeExtractor{
		texts: map[string]string{"/tmp/good.txt": "good body"},
		errs:  map[string]error{"/tmp/bad.pdf": domain.ErrUnsupportedExtraction},
	}, nil)

	text := gate.AssembleFiles(context.Background(), []string{"/tmp/bad.pdf", "/tmp/good.txt"}, []string{"bad.pdf", "good.txt"})

	assert.Contains(t, text, "Error loading file bad.pdf")
	assert.Contains(t, text, "good body", "one failed file does not abort the batch")
}

func TestAdmitWithinBudgetConcatenates(t *testing.T) {
	gate := NewBudgetGate(&fakeExtractor{}, nil)
	budget := Budget{ContextTokens: 1000}

	merged, err := gate.Admit(context.Background(), "draft", "new content", "gpt-4", budget)

	require.NoError(t, err)
	assert.Equal(t, "draft\n\nnew content", merged)
}

func TestAdmitIntoEmptyDraft(t *testing.T) {
	gate := NewBudgetGate(&fakeExtractor{}, nil)

	merged, err := gate.Admit(context.Background(), "", "new content", "gpt-4", Budget{ContextTokens: 1000})

	require.NoError(t, err)
	assert.Equal(t, "new content", merged)
}

func TestAdmitOverBudgetDivertsToReducer(t *testing.T) {
	reducer := &fakeReducer{reduced: "summary"}
	gate := NewBudgetGate(&fakeExtractor{}, reducer)
	budget := Budget{ContextTokens: 10, HistoryTokens: 8}

	merged, err := gate.Admit(context.Background(), "draft", "a body that certainly exceeds two tokens", "gpt-4", budget)

	require.NoError(t, err)
	assert.Equal(t, 1, reducer.calls)
	assert.Equal(t, "draft\n\nsummary", merged)
}

func TestAdmitOverBudgetWithoutReducerFails(t *testing.T) {
	gate := NewBudgetGate(&fakeExtractor{}, nil)
	budget := Budget{ContextTokens: 1}

	merged, err := gate.Admit(context.Background(), "draft", "far too much content to fit", "gpt-4", budget)

	require.Error(t, err)
	assert.Equal(t, "draft", merged, "draft is left untouched on rejection")
}

func TestAdmitReducerFailureSurfaces(t *testing.T) {
	reducer := &fakeReducer{err: errors.New("reducer offline")}
	gate := NewBudgetGate(&fakeExtractor{}, reducer)

	_, err := gate.Admit(context.Background(), "draft", "far too much content to fit", "gpt-4", Budget{ContextTokens: 1})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "reduce over-budget content")
}

func TestAdmitPasteFencesClipboard(t *testing.T) {
	gate := NewBudgetGate(&fakeExtractor{}, nil)

	merged, err := gate.AdmitPaste(context.Background(), "draft", "pasted snippet", "gpt-4", Budget{ContextTokens: 1000})

	require.NoError(t, err)
	assert.Equal(t, "draft\n\n```\npasted snippet\n```", merged)
}

func TestAdmitPasteOverBudgetReduces(t *testing.T) {
	reducer := &fakeReducer{reduced: "clipped"}
	gate := NewBudgetGate(&fakeExtractor{}, reducer)

	merged, err := gate.AdmitPaste(context.Background(), "draft", "a very long clipboard payload", "gpt-4", Budget{ContextTokens: 2})

	require.NoError(t, err)
	assert.Equal(t, 1, reducer.calls)
	assert.Contains(t, merged, "```\nclipped\n```")
}
