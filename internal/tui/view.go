package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"quorum-cli/internal/chat"
	"quorum-cli/internal/stream"
)

type layout struct {
	ChatW   int
	ChatH   int
	TraceW  int
	TraceH  int
	InputW  int
	Columns bool
}

// computeLayout splits the window into chat pane, optional trace pane, input
// row, top bar and footer. The trace pane takes a third of wide windows and
// collapses entirely on narrow ones.
func (m *MainModel) computeLayout() layout {
	w := max(40, m.width)
	h := max(12, m.height)

	const topBarH = 1
	const footerH = 1
	inputH := 3
	bodyH := h - topBarH - footerH - inputH

	l := layout{Columns: m.showTrace && w >= 90}
	if l.Columns {
		l.TraceW = w / 3
		l.ChatW = w - l.TraceW - 6
		l.TraceH = bodyH - 2
	} else {
		l.ChatW = w - 4
	}
	l.ChatH = bodyH - 2
	l.InputW = w - 6
	return l
}

func (m *MainModel) View() string {
	if !m.ready {
		return "Starting…"
	}
	l := m.computeLayout()

	top := m.renderTopBar()
	body := m.renderBody(l)
	input := m.renderInput(l)
	footer := m.renderFooter()

	view := lipgloss.JoinVertical(lipgloss.Left, top, body, input, footer)
	if m.picker != nil {
		return m.renderPicker(view)
	}
	return view
}

func (m *MainModel) renderTopBar() string {
	title := m.theme.TopBarTitle.Render("quorum")
	thread := m.theme.TopBarMeta.Render("thread " + truncateRunes(m.threadID, 8))

	var status string
	switch m.connStatus {
	case stream.StatusConnecting, stream.StatusStreaming:
		frame := m.theme.Spinner.Render(spinnerFrames[m.spinnerPos])
		status = frame + " " + m.theme.TopBarBadge.Render(m.statusText)
	case stream.StatusError:
		status = m.theme.RoleErr.Render("● " + m.statusText)
	default:
		if m.running {
			frame := m.theme.Spinner.Render(spinnerFrames[m.spinnerPos])
			status = frame + " " + m.theme.TopBarBadge.Render(m.statusText)
		} else {
			status = m.theme.TopBarMeta.Render("○ " + m.statusText)
		}
	}

	left := title + "  " + thread
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(status) - 2
	if gap < 1 {
		gap = 1
	}
	return " " + left + strings.Repeat(" ", gap) + status
}

func (m *MainModel) renderBody(l layout) string {
	chatStyle := m.theme.Pane
	if m.focus == focusChat {
		chatStyle = m.theme.PaneFocused
	}
	chatPane := chatStyle.Width(l.ChatW + 2).Height(l.ChatH).Render(m.chatVP.View())

	if !l.Columns {
		return chatPane
	}
	traceTitle := m.theme.PaneTitle.Render("Trace")
	traceRows := m.renderTraceRows(l.TraceW-2, l.TraceH-1)
	tracePane := m.theme.Pane.Width(l.TraceW).Height(l.TraceH).
		Render(traceTitle + "\n" + traceRows)
	return lipgloss.JoinHorizontal(lipgloss.Top, chatPane, tracePane)
}

func (m *MainModel) renderInput(l layout) string {
	box := m.theme.InputBox
	if m.focus == focusInput {
		box = m.theme.InputBoxF
	}
	return box.Width(l.InputW + 2).Render(m.input.View())
}

func (m *MainModel) renderFooter() string {
	parts := []string{
		"enter send",
		"ctrl+t trace",
		"ctrl+l new thread",
		"/threads resume",
		"ctrl+q quit",
	}
	return m.theme.Footer.Render(" " + strings.Join(parts, "  ·  "))
}

// refreshChat re-renders every timeline message into the viewport. Rendering
// is display-only; message content is never altered here.
func (m *MainModel) refreshChat() {
	if !m.ready {
		return
	}
	width := m.chatVP.Width
	if width <= 0 {
		width = 60
	}

	msgs := m.session.Messages()
	if len(msgs) == 0 {
		m.chatVP.SetContent(m.theme.AgentWaiting.Render(
			"No messages yet. Type a prompt to wake the agents."))
		return
	}

	var b strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.renderMessage(msg, width))
	}
	m.chatVP.SetContent(b.String())
}

func (m *MainModel) renderMessage(msg chat.Message, width int) string {
	header := m.renderMessageHeader(msg)
	body := m.renderMessageBody(msg, width)
	if body == "" {
		return header
	}
	return header + "\n" + body
}

func (m *MainModel) renderMessageHeader(msg chat.Message) string {
	var name string
	var style lipgloss.Style
	switch {
	case msg.State == chat.StateError:
		name = "error"
		style = m.theme.RoleErr
	case msg.Author == chat.UserAuthor:
		name = "you"
		style = m.theme.RoleYou
	case msg.Author == "":
		name = "agents"
		style = m.theme.RoleAgent
	default:
		name = msg.Author
		style = m.theme.RoleAgent
	}
	header := style.Render(name)
	if !msg.StartedAt.IsZero() {
		header += " " + m.theme.TopBarMeta.Render(msg.StartedAt.Format("15:04"))
	}
	return header
}

func (m *MainModel) renderMessageBody(msg chat.Message, width int) string {
	switch msg.State {
	case chat.StateWaiting:
		frame := spinnerFrames[m.spinnerPos]
		return m.theme.AgentWaiting.Render(frame + " working…")

	case chat.StateStreaming:
		cursor := m.theme.StreamCursor.Render("▌")
		text := msg.Content
		if text == "" {
			return cursor
		}
		return lipgloss.NewStyle().Width(width).Render(text) + cursor

	case chat.StateError:
		body := m.theme.RoleErr.Render(msg.Content)
		if msg.RetryPrompt != "" {
			body += "\n" + m.theme.AgentWaiting.Render("type /retry to re-send your prompt")
		}
		return body

	default:
		if msg.Author == chat.UserAuthor {
			return lipgloss.NewStyle().Width(width).Render(msg.Content)
		}
		return m.markdown.Render(msg.Content, width)
	}
}

func fmtThreadLine(idx int, s string, width int) string {
	return truncateRunes(fmt.Sprintf("%2d. %s", idx+1, s), width)
}
