package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var boldStyle = lipgloss.NewStyle().Bold(true)

// RenderText prepares a message body for display. Only engine-generated
// markup is interpreted, and only in system messages: a **span** becomes a
// bold span. User-supplied text is shown literally, markers included, so
// nothing a user types can be re-interpreted as formatting.
func RenderText(m Message) string {
	if m.Sender != SenderSystem {
		return m.Text
	}
	return renderBold(m.Text)
}

// renderBold styles each paired **span**; unpaired markers stay literal.
func renderBold(text string) string {
	var sb strings.Builder
	for {
		start := strings.Index(text, "**")
		if start < 0 {
			break
		}
		rest := text[start+2:]
		end := strings.Index(rest, "**")
		if end < 0 {
			break
		}
		sb.WriteString(text[:start])
		sb.WriteString(boldStyle.Render(rest[:end]))
		text = rest[end+2:]
	}
	sb.WriteString(text)
	return sb.String()
}
