package convo

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/plebchat-cli/internal/domain"
)

const previewRunes = 60

// Entry pairs a conversation with its resolved purpose descriptor for
// rendering. Purpose may be the zero value when the id is unknown.
type Entry struct {
	Conversation domain.Conversation
	Purpose      domain.Purpose
	Active       bool
}

type RenderOptions struct {
	BarWidth int
}

func renderView(entries []Entry, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Conversations"),
		s.header.Render(fmt.Sprintf("conversations: %d", len(entries))),
	}

	if len(entries) == 0 {
		lines = append(lines, s.empty.Render("No conversations yet."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, entry := range entries {
		lines = append(lines, s.section.Render(renderEntry(entry, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderEntry(entry Entry, opts RenderOptions, s styles) string {
	parts := []string{renderTitle(entry, s)}

	if line := renderBudget(entry, opts, s); line != "" {
		parts = append(parts, line)
	}
	parts = append(parts, renderQuota(entry, s))
	if line := renderPreview(entry.Conversation, s); line != "" {
		parts = append(parts, line)
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderTitle(entry Entry, s styles) string {
	title := strings.TrimSpace(entry.Conversation.Title())
	if title == "" {
		title = "Untitled"
	}

	style := s.convo
	marker := " "
	if entry.Active {
		style = s.active
		marker = "*"
	}

	label := fmt.Sprintf("%s %s", marker, title)
	if entry.Purpose.Title != "" {
		label += fmt.Sprintf(" [%s]", entry.Purpose.Title)
	}
	return style.Render(label)
}

func renderBudget(entry Entry, opts RenderOptions, s styles) string {
	contextTokens := entry.Purpose.ContextTokens
	if contextTokens <= 0 {
		return s.detail.Render(fmt.Sprintf("  %d messages, %d tokens",
			len(entry.Conversation.Messages), entry.Conversation.TokenCount))
	}

	width := opts.BarWidth
	if width <= 0 {
		width = 24
	}

	usedPercent := float64(entry.Conversation.TokenCount) / float64(contextTokens) * 100
	bar := renderProgressBar(usedPercent, width, s)
	leftPercent := clampPercent(100 - usedPercent)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.detail.Render(fmt.Sprintf("  %d messages ", len(entry.Conversation.Messages))),
		bar,
		s.detail.Render(fmt.Sprintf(" %2.0f%% budget left (%d/%d tokens)",
			leftPercent, entry.Conversation.TokenCount, contextTokens)),
	)
}

func renderQuota(entry Entry, s styles) string {
	if entry.Purpose.ID == "" {
		return s.detail.Render("  quota: unknown purpose")
	}
	if entry.Purpose.Paid {
		return s.paid.Render(fmt.Sprintf("  paid agent: %d sats per message", entry.Purpose.SatsPay))
	}

	used := entry.Conversation.ConversationCount
	quota := entry.Purpose.ConvoCount
	if used >= quota {
		return s.paid.Render(fmt.Sprintf("  free quota exhausted (%d/%d), next message %d sats",
			used, quota, entry.Purpose.SatsPay))
	}
	return s.detail.Render(fmt.Sprintf("  free sends: %d/%d", used, quota))
}

func renderPreview(conv domain.Conversation, s styles) string {
	if len(conv.Messages) == 0 {
		return ""
	}

	last := conv.Messages[len(conv.Messages)-1]
	if last.Typing {
		return s.typing.Render(fmt.Sprintf("  %s is typing...", last.Sender))
	}
	return s.preview.Render(fmt.Sprintf("  %s: %s", last.Sender, last.Preview(previewRunes)))
}

func renderProgressBar(usedPercent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	used := clampPercent(usedPercent)
	leftFraction := (100.0 - used) / 100.0
	filled := int(math.Round(float64(width) * leftFraction))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}

	empty := width - filled
	fillSegment := s.barFill.Render(strings.Repeat("=", filled))
	emptySegment := s.barEmpty.Render(strings.Repeat("-", empty))

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		fillSegment,
		emptySegment,
		s.barBracket.Render("]"),
	)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
