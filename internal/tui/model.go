package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"quorum-cli/internal/app"
	"quorum-cli/internal/chat"
	"quorum-cli/internal/history"
	"quorum-cli/internal/stream"
	"quorum-cli/internal/wire"
)

type focusArea int

const (
	focusInput focusArea = iota
	focusChat
)

// sender is the slice of the stream client the model uses; narrowed so tests
// can substitute a stub.
type sender interface {
	Send(p wire.Prompt) error
	Status() stream.Status
	Gen() int
	Events() <-chan stream.Envelope
	Close() error
}

// historyAPI is the history collaborator as the model sees it.
type historyAPI interface {
	Conversations(ctx context.Context, userID string) ([]history.Summary, error)
	Conversation(ctx context.Context, threadID string) (history.Record, error)
}

// Messages flowing through the update loop. Everything that mutates the
// session arrives here, which is what serializes timeline writes.
type (
	streamMsg        struct{ env stream.Envelope }
	sendResultMsg    struct{ err error }
	revealTickMsg    struct{ gen int }
	spinMsg          struct{}
	threadsLoadedMsg struct {
		threads []history.Summary
		err     error
	}
	threadLoadedMsg struct {
		id  string
		rec history.Record
		err error
	}
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type MainModel struct {
	cfg     app.Config
	log     *app.Logger
	stream  sender
	history historyAPI

	session  *chat.Session
	threadID string

	theme    Theme
	keys     keyMap
	markdown *MarkdownRenderer

	width  int
	height int
	ready  bool
	focus  focusArea

	input  textarea.Model
	chatVP viewport.Model

	showTrace bool
	trace     []TraceItem

	running    bool
	waiting    bool // a stream-wait command is outstanding
	connStatus stream.Status
	statusText string
	spinnerPos int

	// revealGen invalidates reveal ticks from a superseded driver; only
	// the tick carrying the current generation may touch the queue.
	revealGen   int
	revealEvery time.Duration

	picker *threadPicker
}

func NewMainModel(application *app.Application) *MainModel {
	ta := textarea.New()
	ta.Placeholder = "Ask the agents. Enter sends, /threads resumes, /retry re-sends."
	ta.Focus()
	ta.CharLimit = 8000
	ta.SetHeight(1)
	ta.Prompt = " "
	ta.ShowLineNumbers = false
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.BlurredStyle.CursorLine = lipgloss.NewStyle()

	cfg := application.Config
	theme := NewTheme(cfg.Theme)
	m := &MainModel{
		cfg:         cfg,
		log:         application.Logger,
		stream:      application.Stream,
		history:     application.History,
		session:     chat.NewSession(),
		threadID:    cfg.ThreadID,
		theme:       theme,
		keys:        defaultKeyMap(),
		markdown:    NewMarkdownRenderer(theme),
		width:       100,
		height:      30,
		focus:       focusInput,
		showTrace:   true,
		input:       ta,
		connStatus:  stream.StatusIdle,
		statusText:  "Ready",
		revealEvery: time.Duration(cfg.RevealIntervalMs) * time.Millisecond,
	}
	if m.threadID == "" {
		m.threadID = uuid.NewString()
	}
	return m
}

func (m *MainModel) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink}
	if m.cfg.ThreadID != "" {
		// Resume the configured thread from persisted history.
		cmds = append(cmds, m.loadThreadCmd(m.cfg.ThreadID))
	}
	return tea.Batch(cmds...)
}

func (m *MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		layout := m.computeLayout()
		if !m.ready {
			m.chatVP = viewport.New(layout.ChatW, layout.ChatH)
			m.ready = true
		} else {
			m.chatVP.Width = layout.ChatW
			m.chatVP.Height = layout.ChatH
		}
		m.input.SetWidth(max(10, layout.InputW))
		m.refreshChat()
		return m, nil

	case tea.KeyMsg:
		if m.picker != nil {
			return m.updatePicker(msg)
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			_ = m.stream.Close()
			return m, tea.Quit

		case key.Matches(msg, m.keys.Cancel):
			// Drop the live channel; history stays on screen.
			_ = m.stream.Close()
			m.session.StopReveal()
			m.revealGen++
			m.running = false
			m.waiting = false
			m.connStatus = stream.StatusIdle
			m.statusText = "Disconnected"
			return m, nil

		case key.Matches(msg, m.keys.ToggleTrace):
			m.showTrace = !m.showTrace
			m.refreshChat()
			return m, nil

		case key.Matches(msg, m.keys.FocusNext):
			m.cycleFocus()
			return m, nil

		case key.Matches(msg, m.keys.Clear):
			return m, m.startNewThread()

		case key.Matches(msg, m.keys.Enter):
			return m, m.onEnter()

		case msg.Type == tea.KeyUp && m.focus == focusChat:
			m.chatVP.LineUp(1)
			return m, nil
		case msg.Type == tea.KeyDown && m.focus == focusChat:
			m.chatVP.LineDown(1)
			return m, nil
		case msg.Type == tea.KeyPgUp:
			m.chatVP.ViewUp()
			return m, nil
		case msg.Type == tea.KeyPgDown:
			m.chatVP.ViewDown()
			return m, nil
		}

	case streamMsg:
		return m.onStream(msg.env)

	case sendResultMsg:
		return m.onSendResult(msg.err)

	case revealTickMsg:
		if msg.gen != m.revealGen {
			// A finalize or thread switch retired this driver.
			return m, nil
		}
		more := m.session.RevealTick()
		m.refreshChat()
		m.chatVP.GotoBottom()
		if more {
			return m, m.revealTick()
		}
		return m, nil

	case spinMsg:
		m.spinnerPos = (m.spinnerPos + 1) % len(spinnerFrames)
		if m.running {
			return m, m.spinTick()
		}
		return m, nil

	case threadsLoadedMsg:
		if msg.err != nil {
			m.statusText = "History unavailable"
			m.log.Error("listing threads failed", map[string]interface{}{"error": msg.err.Error()})
			return m, nil
		}
		m.picker = newThreadPicker(msg.threads)
		return m, nil

	case threadLoadedMsg:
		if msg.err != nil {
			m.statusText = "Thread load failed"
			m.log.Error("loading thread failed", map[string]interface{}{
				"thread": msg.id, "error": msg.err.Error(),
			})
			return m, nil
		}
		return m.switchThread(msg.id, msg.rec)
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.chatVP, cmd = m.chatVP.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// onStream applies one envelope from the connection manager: either a
// decoded event for the interpreter plus the trace, or the channel's end.
func (m *MainModel) onStream(env stream.Envelope) (tea.Model, tea.Cmd) {
	if env.Gen != m.stream.Gen() {
		// Leftover from a connection that was closed under it, usually
		// events buffered right before a thread switch. The replacement
		// timeline must not absorb them; keep draining the channel.
		m.waiting = true
		return m, m.waitStream()
	}
	if env.Closed {
		m.waiting = false
		m.running = false
		m.connStatus = env.Status
		if env.Err != nil {
			m.statusText = "Connection lost"
			m.log.Error("stream ended", map[string]interface{}{"error": env.Err.Error()})
		} else {
			m.statusText = "Ready"
		}
		// No stale ticks against whatever comes next.
		m.session.StopReveal()
		m.revealGen++
		return m, nil
	}

	now := time.Now()
	// Forward verbatim to the observability pane before interpreting.
	m.appendTrace(env.Event, now)

	out := m.session.HandleEvent(env.Event, now)
	m.waiting = true
	cmds := []tea.Cmd{m.waitStream()}

	switch env.Event.Kind {
	case wire.KindError, wire.KindSystemAbort:
		// Server-reported failure: terminal for this turn and surfaced
		// as connection trouble in the top bar.
		m.connStatus = stream.StatusError
		m.running = false
		m.statusText = "Agent error"
	}
	if out.TurnDone {
		m.running = false
		if m.statusText == "Thinking" {
			m.statusText = "Ready"
		}
	}
	if out.StartReveal {
		m.revealGen++
		cmds = append(cmds, m.revealTickNow())
	}
	if out.Mutated {
		m.refreshChat()
		m.chatVP.GotoBottom()
	}
	return m, tea.Batch(cmds...)
}

func (m *MainModel) onSendResult(err error) (tea.Model, tea.Cmd) {
	m.connStatus = m.stream.Status()
	if err != nil {
		// Transport failure is status only; the timeline keeps prior
		// turns visible.
		m.running = false
		m.statusText = "Connection failed"
		m.log.Error("send failed", map[string]interface{}{"error": err.Error()})
		return m, nil
	}
	m.statusText = "Thinking"
	if !m.waiting {
		m.waiting = true
		return m, m.waitStream()
	}
	return m, nil
}

func (m *MainModel) onEnter() tea.Cmd {
	val := strings.TrimSpace(m.input.Value())
	if val == "" {
		return nil
	}

	switch {
	case val == "/threads":
		m.input.Reset()
		return m.loadThreadsCmd()
	case val == "/retry":
		m.input.Reset()
		prompt := m.session.RetryPrompt()
		if prompt == "" {
			m.statusText = "Nothing to retry"
			return nil
		}
		return m.submit(prompt)
	case val == "/new" || val == "/clear":
		m.input.Reset()
		return m.startNewThread()
	}

	m.input.Reset()
	return m.submit(val)
}

// submit begins a user turn and hands the prompt to the connection manager
// off the update loop.
func (m *MainModel) submit(prompt string) tea.Cmd {
	if m.running {
		m.statusText = "Still working (ctrl+c to disconnect)"
		return nil
	}
	m.session.BeginTurn(prompt, time.Now())
	m.refreshChat()
	m.chatVP.GotoBottom()

	m.running = true
	m.spinnerPos = 0
	m.statusText = "Connecting"

	p := wire.Prompt{Prompt: prompt, UserID: m.cfg.UserID, ThreadID: m.threadID}
	cl := m.stream
	send := func() tea.Msg { return sendResultMsg{err: cl.Send(p)} }
	return tea.Batch(send, m.spinTick())
}

func (m *MainModel) startNewThread() tea.Cmd {
	_ = m.stream.Close()
	m.session.Seed(nil)
	m.revealGen++
	m.threadID = uuid.NewString()
	m.trace = nil
	m.running = false
	m.waiting = false
	m.connStatus = stream.StatusIdle
	m.statusText = "New thread"
	m.refreshChat()
	return nil
}

// switchThread replaces the timeline wholesale from a persisted record.
func (m *MainModel) switchThread(id string, rec history.Record) (tea.Model, tea.Cmd) {
	_ = m.stream.Close()
	m.waiting = false
	m.running = false
	m.session.Seed(history.SeedMessages(rec))
	m.revealGen++
	m.threadID = id
	m.trace = nil
	m.connStatus = stream.StatusIdle
	m.statusText = "Resumed thread"
	m.refreshChat()
	m.chatVP.GotoBottom()
	return m, nil
}

func (m *MainModel) waitStream() tea.Cmd {
	ch := m.stream.Events()
	return func() tea.Msg { return streamMsg{env: <-ch} }
}

func (m *MainModel) revealTick() tea.Cmd {
	gen := m.revealGen
	return tea.Tick(m.revealEvery, func(time.Time) tea.Msg {
		return revealTickMsg{gen: gen}
	})
}

// revealTickNow is the first tick of a fresh driver; it starts on the same
// cadence as the rest.
func (m *MainModel) revealTickNow() tea.Cmd { return m.revealTick() }

func (m *MainModel) spinTick() tea.Cmd {
	return tea.Tick(90*time.Millisecond, func(time.Time) tea.Msg { return spinMsg{} })
}

func (m *MainModel) loadThreadsCmd() tea.Cmd {
	h := m.history
	userID := m.cfg.UserID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		threads, err := h.Conversations(ctx, userID)
		return threadsLoadedMsg{threads: threads, err: err}
	}
}

func (m *MainModel) loadThreadCmd(id string) tea.Cmd {
	h := m.history
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		rec, err := h.Conversation(ctx, id)
		return threadLoadedMsg{id: id, rec: rec, err: err}
	}
}

func (m *MainModel) cycleFocus() {
	if m.focus == focusInput {
		m.focus = focusChat
		m.input.Blur()
	} else {
		m.focus = focusInput
		m.input.Focus()
	}
}
