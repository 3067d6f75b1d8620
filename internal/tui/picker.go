package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"quorum-cli/internal/history"
)

// threadPicker is the modal list shown by /threads. It only navigates; the
// actual thread load happens back in the update loop once a row is chosen.
type threadPicker struct {
	threads []history.Summary
	cursor  int
}

func newThreadPicker(threads []history.Summary) *threadPicker {
	return &threadPicker{threads: threads}
}

func (m *MainModel) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.picker
	switch msg.String() {
	case "esc", "ctrl+c", "q":
		m.picker = nil
		return m, nil
	case "up", "k":
		if p.cursor > 0 {
			p.cursor--
		}
		return m, nil
	case "down", "j":
		if p.cursor < len(p.threads)-1 {
			p.cursor++
		}
		return m, nil
	case "enter":
		if len(p.threads) == 0 {
			m.picker = nil
			return m, nil
		}
		chosen := p.threads[p.cursor]
		m.picker = nil
		m.statusText = "Loading thread"
		return m, m.loadThreadCmd(chosen.ThreadID)
	}
	return m, nil
}

func (m *MainModel) renderPicker(base string) string {
	p := m.picker
	width := min(72, m.width-8)
	if width < 30 {
		width = 30
	}

	var b strings.Builder
	b.WriteString(m.theme.PaneTitle.Render("Resume a thread"))
	b.WriteString("\n\n")
	if len(p.threads) == 0 {
		b.WriteString(m.theme.AgentWaiting.Render("No saved conversations."))
	}
	for i, t := range p.threads {
		label := t.UserPrompt
		if label == "" {
			label = t.ThreadID
		}
		line := fmtThreadLine(i, oneLine(label), width-4)
		if i == p.cursor {
			b.WriteString(m.theme.RoleYou.Render("> " + line))
		} else {
			b.WriteString(m.theme.TopBarMeta.Render("  " + line))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.theme.Footer.Render("enter resume  ·  esc close"))

	box := m.theme.PaneFocused.Width(width).Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
