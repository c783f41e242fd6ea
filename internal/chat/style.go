package chat

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

const (
	youLabel = "You >"
	botLabel = "Bot >"
)

// Styles renders the turn prefixes. Colors follow the capabilities of the
// output writer, so piped output carries the literal prefixes.
type Styles struct {
	you lipgloss.Style
	bot lipgloss.Style
}

// NewStyles builds styles for w. noColor forces plain prefixes.
func NewStyles(w io.Writer, noColor bool) Styles {
	r := lipgloss.NewRenderer(w)
	if noColor {
		r.SetColorProfile(termenv.Ascii)
	}
	return Styles{
		you: r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		bot: r.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
	}
}

// PlainStyles never emits escape codes.
func PlainStyles() Styles {
	return NewStyles(io.Discard, true)
}

// Prompt is the input prompt, "You > ".
func (s Styles) Prompt() string {
	return s.you.Render(youLabel) + " "
}

// BotLine formats a reply line, "Bot > text".
func (s Styles) BotLine(text string) string {
	return s.bot.Render(botLabel) + " " + text
}
