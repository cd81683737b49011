package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/equinology/waleed/pkg/dialog"
	"github.com/equinology/waleed/pkg/events"
)

// Conversation is the part of dialog.Presenter the view drives.
type Conversation interface {
	Start()
	SelectIndex(i int)
	End()
	SetVoiceEnabled(enabled bool)
	Snapshot() dialog.State
}

// Model is the root bubbletea model.
type Model struct {
	conv    Conversation
	title   string
	keys    KeyMap
	help    help.Model
	spinner spinner.Model

	state  dialog.State
	cursor int
	width  int
	height int

	activity     []string
	showActivity bool
}

// NewModel creates a model over conv. title names the loaded dialog in
// the header.
func NewModel(conv Conversation, title string) Model {
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = metaStyle

	return Model{
		conv:    conv,
		title:   title,
		keys:    DefaultKeyMap,
		help:    help.New(),
		spinner: s,
		state:   conv.Snapshot(),
	}
}

// State returns the snapshot currently shown.
func (m Model) State() dialog.State {
	return m.state
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case stateMsg:
		m.apply(dialog.State(msg))
		return m, nil

	case activityMsg:
		m.activity = append(m.activity, activityLine(events.Envelope(msg)))
		if len(m.activity) > activityLines {
			m.activity = m.activity[len(m.activity)-activityLines:]
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Open):
		if !m.state.Open() {
			m.conv.Start()
		} else if len(m.state.Options) > 0 {
			m.conv.SelectIndex(m.cursor)
		}

	case key.Matches(msg, m.keys.Pick):
		if m.state.Open() {
			m.conv.SelectIndex(int(msg.Runes[0] - '1'))
		}

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.state.Options)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Voice):
		m.conv.SetVoiceEnabled(!m.state.VoiceEnabled)

	case key.Matches(msg, m.keys.End):
		m.conv.End()

	case key.Matches(msg, m.keys.Activity):
		m.showActivity = !m.showActivity
		return m, nil

	default:
		return m, nil
	}

	m.apply(m.conv.Snapshot())
	return m, nil
}

// apply shows s unless a newer snapshot is already on screen.
func (m *Model) apply(s dialog.State) {
	if s.Version < m.state.Version {
		return
	}
	if !sameOptions(s.Options, m.state.Options) {
		m.cursor = 0
	}
	m.state = s
}

func sameOptions(a, b []*dialog.Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
