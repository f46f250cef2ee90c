package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/bnema/plebchat-cli/internal/domain"
	"github.com/bnema/plebchat-cli/internal/ports"
)

// Prompt templates used when merging attached or pasted content into the
// draft. {{input}} is the current draft.
const (
	templateConcatenate   = "{{input}}\n\n{{text}}"
	templatePasteFile     = "{{input}}\n\n```{{fileName}}\n{{fileText}}\n```\n"
	templatePasteMarkdown = "{{input}}\n\n```\n{{clipboard}}\n```\n"
)

func expandTemplate(template string, input string, dict map[string]string) string {
	expanded := strings.TrimSpace(strings.ReplaceAll(template, "{{input}}", strings.TrimSpace(input)))
	for key, value := range dict {
		expanded = strings.ReplaceAll(expanded, "{{"+key+"}}", strings.TrimSpace(value))
	}
	return expanded
}

// Budget is the token budget of one send: the model's context window minus
// what the draft, the history and the reserved response already commit.
type Budget struct {
	ContextTokens  int
	DirectTokens   int
	HistoryTokens  int
	ResponseTokens int
}

func (b Budget) Remaining() int {
	return b.ContextTokens - b.DirectTokens - b.HistoryTokens - b.ResponseTokens
}

// BudgetGate assembles attachment text and decides whether it fits the
// remaining token budget. Over-budget content is diverted to the reducer
// instead of being merged directly.
type BudgetGate struct {
	extractor ports.Extractor
	reducer   ports.ContentReducer
}

func NewBudgetGate(extractor ports.Extractor, reducer ports.ContentReducer) *BudgetGate {
	return &BudgetGate{extractor: extractor, reducer: reducer}
}

// AssembleFiles converts each attached file to text and concatenates the
// results with per-file fenced templates. Extraction failure of one file is
// annotated inline and does not abort the batch.
func (g *BudgetGate) AssembleFiles(ctx context.Context, paths []string, names []string) string {
	text := ""
	for i, path := range paths {
		name := path
		if len(names) == len(paths) && names[i] != "" {
			name = names[i]
		}

		fileText, err := g.extractor.Extract(ctx, path)
		if err != nil {
			text = fmt.Sprintf("%s\n\nError loading file %s: %v\n", text, name, err)
			continue
		}
		text = expandTemplate(templatePasteFile, text, map[string]string{
			"fileName": name,
			"fileText": fileText,
		})
	}
	return text
}

// WrapPaste applies the fenced paste template to dropped or pasted text.
func (g *BudgetGate) WrapPaste(draft, clipboard string) string {
	return expandTemplate(templatePasteMarkdown, draft, map[string]string{"clipboard": clipboard})
}

// AdmitPaste merges pasted text into the draft under the same budget rule as
// Admit, using the fenced paste template instead of plain concatenation.
func (g *BudgetGate) AdmitPaste(ctx context.Context, draft, clipboard, model string, budget Budget) (string, error) {
	newTokens := domain.EstimateText(clipboard, model)
	if newTokens <= budget.Remaining() {
		return g.WrapPaste(draft, clipboard), nil
	}

	if g.reducer == nil {
		return draft, fmt.Errorf("content of %d tokens exceeds remaining budget of %d and no reducer is configured", newTokens, budget.Remaining())
	}

	reduced, err := g.reducer.Reduce(ctx, clipboard, budget.Remaining())
	if err != nil {
		return draft, fmt.Errorf("reduce over-budget content: %w", err)
	}
	return g.WrapPaste(draft, reduced), nil
}

// Admit merges newText into the draft when its estimated cost fits the
// remaining budget; otherwise the text is routed through the reducer first
// and the reduced form is appended.
func (g *BudgetGate) Admit(ctx context.Context, draft, newText, model string, budget Budget) (string, error) {
	newTokens := domain.EstimateText(newText, model)
	if newTokens <= budget.Remaining() {
		return expandTemplate(templateConcatenate, draft, map[string]string{"text": newText}), nil
	}

	if g.reducer == nil {
		return draft, fmt.Errorf("content of %d tokens exceeds remaining budget of %d and no reducer is configured", newTokens, budget.Remaining())
	}

	reduced, err := g.reducer.Reduce(ctx, newText, budget.Remaining())
	if err != nil {
		return draft, fmt.Errorf("reduce over-budget content: %w", err)
	}
	return expandTemplate(templateConcatenate, draft, map[string]string{"text": reduced}), nil
}
