package tui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/equinology/waleed/pkg/events"
)

// historyLines is how many past choices are shown.
const historyLines = 5

// activityLines is how many recent events the activity pane keeps.
const activityLines = 6

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.header())
	b.WriteString("\n\n")

	if !m.state.Open() && m.state.Revealed == "" {
		b.WriteString(hintStyle.Render(fmt.Sprintf("Press enter to chat with %s.", m.assistant())))
		b.WriteString("\n")
		b.WriteString(m.help.View(m.keys))
		return b.String()
	}

	if h := m.history(); h != "" {
		b.WriteString(h)
		b.WriteString("\n\n")
	}

	b.WriteString(m.bubble())
	b.WriteString("\n\n")

	if o := m.options(); o != "" {
		b.WriteString(o)
		b.WriteString("\n")
	}

	if a := m.activityPane(); a != "" {
		b.WriteString(a)
		b.WriteString("\n")
	}

	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) assistant() string {
	if m.state.Assistant != "" {
		return m.state.Assistant
	}
	return "Waleed"
}

func (m Model) header() string {
	parts := []string{face(m.state.Mood), titleStyle.Render(m.assistant())}
	if m.title != "" {
		parts = append(parts, metaStyle.Render(m.title))
	}

	voice := "voice off"
	if m.state.VoiceEnabled {
		voice = "voice on"
	}
	if m.state.Speaking {
		voice = m.spinner.View() + " speaking"
	}
	parts = append(parts, metaStyle.Render(voice))

	if !m.state.Open() && m.state.Version > 0 {
		parts = append(parts, metaStyle.Render("chat ended"))
	}
	return strings.Join(parts, "  ")
}

func (m Model) bubble() string {
	text := m.state.Revealed
	if m.state.Revealing {
		text += cursorStyle.Render("▍")
	}
	style := bubbleStyle
	if m.width > 8 {
		style = style.Width(min(m.width-4, 72))
	}
	return style.Render(text)
}

func (m Model) options() string {
	if len(m.state.Options) == 0 {
		return ""
	}
	lines := make([]string, len(m.state.Options))
	for i, n := range m.state.Options {
		label := fmt.Sprintf("%d. %s", i+1, n.Prompt)
		if i == m.cursor {
			lines[i] = optionActiveStyle.Render("› " + label)
		} else {
			lines[i] = optionStyle.Render(label)
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) history() string {
	h := m.state.History
	if len(h) > historyLines {
		h = h[len(h)-historyLines:]
	}
	if len(h) == 0 {
		return ""
	}
	return historyStyle.Render(strings.Join(h, "\n"))
}

func (m Model) activityPane() string {
	if !m.showActivity {
		return ""
	}
	if len(m.activity) == 0 {
		return activityStyle.Render("no events yet")
	}
	return activityStyle.Render(strings.Join(m.activity, "\n"))
}

// activityLine formats an event as "15:04:05 option.selected Who created you?".
func activityLine(env events.Envelope) string {
	line := env.Timestamp.Local().Format("15:04:05") + " " + string(env.Type)

	var detail string
	switch env.Type {
	case events.OptionSelected:
		var d events.OptionSelectedData
		if json.Unmarshal(env.Data, &d) == nil {
			detail = d.Prompt
		}
	case events.ConversationStarted:
		var d events.ConversationStartedData
		if json.Unmarshal(env.Data, &d) == nil {
			detail = d.Script
		}
	case events.ConversationEnded:
		var d events.ConversationEndedData
		if json.Unmarshal(env.Data, &d) == nil {
			detail = fmt.Sprintf("%d turns", d.Turns)
		}
	}
	if detail != "" {
		line += " " + detail
	}
	return line
}
