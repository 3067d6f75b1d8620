package tui

import (
	"strings"
	"time"

	"quorum-cli/internal/wire"
)

// TraceItem is one row of the trace pane: the observability sink that shows
// every decoded event verbatim, including the kinds the timeline suppresses.
type TraceItem struct {
	Time  time.Time
	Kind  wire.EventKind
	Tag   string
	Agent string
	Text  string
	Score int
}

func newTraceItem(ev wire.Event, at time.Time) TraceItem {
	return TraceItem{
		Time:  at,
		Kind:  ev.Kind,
		Tag:   ev.Tag,
		Agent: ev.DisplayName(),
		Text:  ev.Text(),
		Score: ev.Score,
	}
}

// label is the compact row form, e.g.
// "validation_score Isaac 9/10" or "agent_start Eleanor Starting…".
func (it TraceItem) label(width int) string {
	kind := string(it.Kind)
	if it.Kind == wire.KindRaw && it.Tag != "" {
		kind = it.Tag + "?"
	}
	parts := []string{kind}
	if it.Agent != "" {
		parts = append(parts, it.Agent)
	}
	if s := fmtScore(it.Score); s != "" {
		parts = append(parts, s)
	}
	if t := oneLine(it.Text); t != "" {
		parts = append(parts, t)
	}
	return truncateRunes(strings.Join(parts, " "), width)
}

func (m *MainModel) appendTrace(ev wire.Event, at time.Time) {
	m.trace = append(m.trace, newTraceItem(ev, at))
	if len(m.trace) > traceLimit {
		m.trace = m.trace[len(m.trace)-traceLimit:]
	}
}

// traceLimit bounds trace memory for long sessions; the pane only ever shows
// the tail anyway.
const traceLimit = 500

func (m *MainModel) renderTraceRows(width, height int) string {
	if len(m.trace) == 0 {
		return m.theme.TraceNeutral.Render("No events yet.")
	}
	start := 0
	if len(m.trace) > height {
		start = len(m.trace) - height
	}
	var b strings.Builder
	for i := start; i < len(m.trace); i++ {
		it := m.trace[i]
		style := m.theme.TraceNeutral
		switch it.Kind {
		case wire.KindError, wire.KindSystemAbort:
			style = m.theme.TraceErr
		case wire.KindAgentStart, wire.KindFinalAnswer:
			style = m.theme.TraceKind
		}
		stamp := it.Time.Format("15:04:05")
		b.WriteString(m.theme.TopBarMeta.Render(stamp))
		b.WriteString(" ")
		b.WriteString(style.Render(it.label(max(12, width-10))))
		if i != len(m.trace)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
