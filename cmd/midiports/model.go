package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/leandrodaf/midimanager/sdk/contracts"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD75F")).Bold(true)
	onStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD75F"))
	offStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#767676"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#767676"))
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	activePanel   = panelStyle.BorderForeground(lipgloss.Color("#7D56F4"))
	inactivePanel = panelStyle.BorderForeground(lipgloss.Color("#3A3A3A"))
)

type stateMsg contracts.State

type eventMsg contracts.Event

type model struct {
	mgr    contracts.Manager
	states <-chan contracts.State
	events <-chan contracts.Event

	state  contracts.State
	dir    contracts.Direction
	cursor int
	last   string
	err    error
}

func newModel(mgr contracts.Manager, states <-chan contracts.State, events <-chan contracts.Event) model {
	return model{
		mgr:    mgr,
		states: states,
		events: events,
		state:  mgr.State(),
	}
}

func waitForState(ch <-chan contracts.State) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return stateMsg(s)
	}
}

func waitForEvent(ch <-chan contracts.Event) tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-ch)
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForState(m.states), waitForEvent(m.events))
}

func (m model) current() []contracts.Endpoint {
	if m.dir == contracts.Input {
		return m.state.Inputs
	}
	return m.state.Outputs
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		m.state = contracts.State(msg)
		m.clampCursor()
		return m, waitForState(m.states)

	case eventMsg:
		m.last = describe(contracts.Event(msg))
		return m, waitForEvent(m.events)

	case tea.KeyMsg:
		m.err = nil
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}

		case "down", "j":
			if m.cursor < len(m.current())-1 {
				m.cursor++
			}

		case "tab":
			if m.dir == contracts.Input {
				m.dir = contracts.Output
			} else {
				m.dir = contracts.Input
			}
			m.clampCursor()

		case " ", "enter":
			if ep, ok := m.selected(); ok {
				m.err = m.mgr.Toggle(ep.Direction, ep.ID)
				m.state = m.mgr.State()
			}

		case "f":
			if ep, ok := m.selected(); ok {
				m.err = m.mgr.Forget(ep.Direction, ep.ID)
			}

		case "r":
			m.mgr.Reconcile()
			m.state = m.mgr.State()
			m.clampCursor()

		case "+", "=":
			if ch := m.mgr.OutputChannel(); ch < 15 {
				m.mgr.SetOutputChannel(ch + 1)
			}
			m.state = m.mgr.State()

		case "-", "_":
			if ch := m.mgr.OutputChannel(); ch > 0 {
				m.mgr.SetOutputChannel(ch - 1)
			}
			m.state = m.mgr.State()

		case "n":
			m.err = m.mgr.SendNoteOn(60, 100)

		case "N":
			m.err = m.mgr.SendNoteOff(60, 0)
		}
	}
	return m, nil
}

func (m *model) clampCursor() {
	if n := len(m.current()); m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m model) selected() (contracts.Endpoint, bool) {
	list := m.current()
	if m.cursor < 0 || m.cursor >= len(list) {
		return contracts.Endpoint{}, false
	}
	return list[m.cursor], true
}

func (m model) renderList(dir contracts.Direction, list []contracts.Endpoint) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(dir.String() + "s"))
	b.WriteString("\n")
	if len(list) == 0 {
		b.WriteString(offStyle.Render("(none)"))
	}
	for i, ep := range list {
		prefix := "  "
		if dir == m.dir && i == m.cursor {
			prefix = cursorStyle.Render("> ")
		}
		mark := offStyle.Render("[ ]")
		if ep.Connected {
			mark = onStyle.Render("[x]")
		}
		b.WriteString(fmt.Sprintf("%s%s %s\n", prefix, mark, ep.Name))
	}

	style := inactivePanel
	if dir == m.dir {
		style = activePanel
	}
	return style.Width(40).Render(strings.TrimRight(b.String(), "\n"))
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("MIDI endpoints"))
	b.WriteString(fmt.Sprintf("   output channel %d\n\n", m.state.OutputChannel+1))

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderList(contracts.Input, m.state.Inputs),
		m.renderList(contracts.Output, m.state.Outputs),
	))
	b.WriteString("\n\n")

	if m.last != "" {
		b.WriteString("last event: " + m.last + "\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()) + "\n")
	}
	b.WriteString(helpStyle.Render("↑/↓ move · tab switch · space toggle · f forget · r rescan · +/- channel · n/N note on/off · q quit"))
	return b.String()
}

func describe(ev contracts.Event) string {
	switch ev.Command {
	case contracts.NoteOn:
		return fmt.Sprintf("note on  %3d vel %3d ch %2d", ev.Data1, ev.Data2, ev.Channel+1)
	case contracts.NoteOff:
		return fmt.Sprintf("note off %3d vel %3d ch %2d", ev.Data1, ev.Data2, ev.Channel+1)
	case contracts.ControlChange:
		return fmt.Sprintf("cc %3d = %3d ch %2d", ev.Data1, ev.Data2, ev.Channel+1)
	default:
		return fmt.Sprintf("0x%02X", uint8(ev.Command))
	}
}
