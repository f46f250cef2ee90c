package reduce

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/plebchat-cli/internal/domain"
)

func TestReducePassThroughWithinBudget(t *testing.T) {
	text := "short body"

	out, err := New().Reduce(context.Background(), text, 100)

	require.NoError(t, err)
	assert.Equal(t, text, out)
}

func TestReduceClipsToBudget(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		sb.WriteString("line of filler content\n")
	}
	text := sb.String()
	budget := 100

	out, err := New().Reduce(context.Background(), text, budget)

	require.NoError(t, err)
	assert.Less(t, len(out), len(text))
	assert.LessOrEqual(t, domain.EstimateText(out, ""), budget)
	assert.Contains(t, out, "truncated")
}

func TestReduceCutsAtLineBoundary(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		sb.WriteString("0123456789\n")
	}

	out, err := New().Reduce(context.Background(), sb.String(), 50)

	require.NoError(t, err)
	body := strings.SplitN(out, "\n\n[", 2)[0]
	assert.True(t, strings.HasSuffix(body, "0123456789"), "cut lands on a line boundary")
}

func TestReduceZeroBudgetFails(t *testing.T) {
	_, err := New().Reduce(context.Background(), "anything", 0)
	assert.Error(t, err)

	_, err = New().Reduce(context.Background(), strings.Repeat("x", 1000), 5)
	assert.Error(t, err, "budget smaller than the truncation notice")
}
