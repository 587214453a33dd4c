// Package display provides terminal output formatting for duofeed.
package display

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/gauthierbraillon/duofeed/internal/feed"
	"github.com/gauthierbraillon/duofeed/internal/partition"
)

const (
	separator          = " • "
	defaultColumnWidth = 44
	maxPreviewLen      = 140
	columnGap          = "  "
)

var (
	cardStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Bold(true)
	metaStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "240", Dark: "244"})
	unreadStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
)

// TerminalFormatter formats feed items for terminal display.
type TerminalFormatter struct {
	columnWidth int
}

// FormatterOption configures a TerminalFormatter.
type FormatterOption func(*TerminalFormatter)

// WithColumnWidth sets the width of each card column.
func WithColumnWidth(width int) FormatterOption {
	return func(f *TerminalFormatter) {
		if width > 0 {
			f.columnWidth = width
		}
	}
}

// NewTerminalFormatter creates a new terminal formatter.
func NewTerminalFormatter(opts ...FormatterOption) *TerminalFormatter {
	f := &TerminalFormatter{columnWidth: defaultColumnWidth}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FormatCard renders a single feed item as a bordered card.
func (f *TerminalFormatter) FormatCard(item feed.Item) string {
	var lines []string

	switch item.Type {
	case feed.TypeEmail:
		lines = f.emailLines(item)
	case feed.TypePost:
		lines = f.postLines(item)
	case feed.TypeGroup:
		lines = f.groupLines(item)
	default:
		panic(fmt.Sprintf("display: unknown item type %q for item %q", item.Type, item.ID))
	}

	return cardStyle.Width(f.columnWidth).Render(strings.Join(lines, "\n"))
}

func (f *TerminalFormatter) emailLines(item feed.Item) []string {
	e := item.Email
	if e == nil {
		e = &feed.Email{}
	}

	title := titleStyle.Render(e.Subject)
	if e.IsRead != nil && !*e.IsRead {
		title = unreadStyle.Render("● ") + title
	}

	from := e.Sender
	if e.SenderEmail != "" {
		from = fmt.Sprintf("%s <%s>", e.Sender, e.SenderEmail)
	}

	lines := []string{title, metaStyle.Render("from " + from)}
	if e.Preview != "" {
		lines = append(lines, f.TruncateText(e.Preview, maxPreviewLen))
	}
	return append(lines, metaStyle.Render("[EMAIL]"+separator+item.Timestamp))
}

func (f *TerminalFormatter) postLines(item feed.Item) []string {
	p := item.Post
	if p == nil {
		p = &feed.Post{}
	}

	lines := []string{titleStyle.Render(p.PosterName)}
	if p.ImageURL != "" {
		lines = append(lines, metaStyle.Render("image: "+p.ImageURL))
	}
	if p.Description != "" {
		lines = append(lines, f.TruncateText(p.Description, maxPreviewLen))
	}
	return append(lines, metaStyle.Render("[POST]"+separator+item.Timestamp))
}

func (f *TerminalFormatter) groupLines(item feed.Item) []string {
	g := item.Group
	if g == nil {
		g = &feed.Group{}
	}

	title := titleStyle.Render(g.GroupName)
	if g.UnreadCount != nil && *g.UnreadCount > 0 {
		title += " " + unreadStyle.Render(fmt.Sprintf("(%d unread)", *g.UnreadCount))
	}

	lines := []string{title}
	if g.Preview != "" {
		preview := g.Preview
		if g.SenderName != "" {
			preview = g.SenderName + ": " + preview
		}
		lines = append(lines, f.TruncateText(preview, maxPreviewLen))
	}

	when := item.Timestamp
	if g.LastMessageTimestamp != nil {
		when = f.FormatTimestamp(time.Unix(*g.LastMessageTimestamp, 0))
	}
	return append(lines, metaStyle.Render("[GROUP]"+separator+when))
}

// FormatColumns renders a two-column layout side by side, followed by its balance score.
func (f *TerminalFormatter) FormatColumns(r partition.Result) string {
	if len(r.Column1) == 0 && len(r.Column2) == 0 {
		return "No items to display.\n"
	}

	left := f.formatColumn(r.Column1)
	right := f.formatColumn(r.Column2)
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, columnGap, right)

	footer := fmt.Sprintf("balance score: %d", r.BalanceScore)
	if r.Strategy != "" {
		footer += " (" + r.Strategy + ")"
	}
	return body + "\n" + metaStyle.Render(footer) + "\n"
}

func (f *TerminalFormatter) formatColumn(items []feed.Item) string {
	if len(items) == 0 {
		return lipgloss.NewStyle().Width(f.columnWidth).Render("")
	}
	cards := make([]string, 0, len(items))
	for _, item := range items {
		cards = append(cards, f.FormatCard(item))
	}
	return lipgloss.JoinVertical(lipgloss.Left, cards...)
}

// FormatList formats items one card per block, in order.
func (f *TerminalFormatter) FormatList(items []feed.Item) string {
	if len(items) == 0 {
		return "No items to display.\n"
	}

	formatted := make([]string, 0, len(items))
	for _, item := range items {
		formatted = append(formatted, f.FormatCard(item))
	}
	return strings.Join(formatted, "\n") + "\n"
}

// FormatTimestamp formats a timestamp as relative time.
func (f *TerminalFormatter) FormatTimestamp(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return pluralize(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return pluralize(int(diff.Hours()), "hour")
	case diff < 7*24*time.Hour:
		return pluralize(int(diff.Hours()/24), "day")
	default:
		return t.Format("January 2, 2006")
	}
}

// pluralize returns "N unit ago" or "N units ago" based on count.
func pluralize(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// TruncateText truncates text to maxLen runes, adding "..." if truncated.
func (f *TerminalFormatter) TruncateText(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return "..."
	}
	return string(runes[:maxLen-3]) + "..."
}
