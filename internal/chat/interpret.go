package chat

import (
	"time"

	"quorum-cli/internal/wire"
)

// Agent display names the backend pipeline uses. Headline agents get their
// own timeline entry when they start; the rest are orchestration detail that
// only shows up in the trace.
const (
	ArchitectAgent   = "Eleanor"
	SimplifierAgent  = "Simplifier Agent"
	SynthesizerAgent = "Final Synthesizer"
)

var headlineAgents = map[string]struct{}{
	ArchitectAgent:   {},
	SimplifierAgent:  {},
	SynthesizerAgent: {},
}

// Outcome tells the caller what an event did to the session. Every event is
// forwarded to the trace regardless; Outcome only concerns the timeline and
// the reveal driver.
type Outcome struct {
	// Mutated is true when the timeline changed and the view must redraw.
	Mutated bool
	// StartReveal is true when a reveal tick driver must be started. At
	// most one driver runs at a time; this fires only when the queue went
	// from idle to busy.
	StartReveal bool
	// TurnDone is true when the event terminates the in-flight turn.
	TurnDone bool
}

// Session owns one conversation's timeline and reveal queue. It is the
// single writer: inbound events, user sends, reveal ticks, and thread
// switches are all serialized onto it by the UI's update loop, so none of
// its methods lock.
type Session struct {
	timeline Timeline
	reveal   Reveal

	// pendingPrompt is the user text of the in-flight turn, attached to
	// error messages as their retry prompt and cleared when the turn ends.
	pendingPrompt string
}

func NewSession() *Session { return &Session{} }

func (s *Session) Messages() []Message { return s.timeline.Messages() }

func (s *Session) Last() *Message { return s.timeline.Last() }

func (s *Session) RevealPending() int { return s.reveal.Len() }

func (s *Session) RevealActive() bool { return s.reveal.Active() }

// BeginTurn appends the user's message, scopes subsequent "latest message"
// lookups to this turn, and remembers the prompt for retry.
func (s *Session) BeginTurn(prompt string, now time.Time) Message {
	m := NewMessage(UserAuthor, prompt, StateFinal, now)
	s.timeline.append(m)
	s.timeline.beginTurn()
	s.pendingPrompt = prompt
	return m
}

// Seed replaces the whole timeline from persisted history (thread switch)
// and abandons any queued reveal characters so stale ticks cannot touch the
// new timeline.
func (s *Session) Seed(msgs []Message) {
	s.timeline.Replace(msgs)
	s.reveal.Clear()
	s.pendingPrompt = ""
}

// StopReveal abandons queued characters without touching the timeline.
// Called when the channel closes.
func (s *Session) StopReveal() {
	s.reveal.Clear()
}

// RetryPrompt returns the retry prompt of the most recent error message, or
// "" when there is nothing to retry.
func (s *Session) RetryPrompt() string {
	msgs := s.timeline.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].State == StateError {
			return msgs[i].RetryPrompt
		}
	}
	return ""
}

// HandleEvent applies one decoded wire event to the timeline. Events are
// applied strictly in arrival order; the rules below merge an event into an
// existing message or append a new one, never delete.
func (s *Session) HandleEvent(ev wire.Event, now time.Time) Outcome {
	switch ev.Kind {
	case wire.KindAgentStart:
		name := ev.DisplayName()
		if _, ok := headlineAgents[name]; !ok {
			// Orchestrator-only start ("Task Agents", "Validator
			// Agent"); trace is enough.
			return Outcome{}
		}
		if s.timeline.lastOpenBy(name) != nil {
			// One unterminated message per agent slot. A second
			// start before the first resolved is dropped.
			return Outcome{}
		}
		s.timeline.append(NewMessage(name, "", StateWaiting, now))
		return Outcome{Mutated: true}

	case wire.KindTaskDelegated:
		s.timeline.append(NewMessage(ev.DisplayName(), "", StateWaiting, now))
		return Outcome{Mutated: true}

	case wire.KindAgentOutput:
		m := s.timeline.lastWaitingBy(ev.DisplayName())
		if m == nil {
			// No matching waiting message: drop rather than
			// fabricate an orphan.
			return Outcome{}
		}
		m.finalize(ev.Content, StateFinal, now)
		return Outcome{Mutated: true}

	case wire.KindSimplificationComplete:
		if last := s.timeline.Last(); last != nil &&
			last.State == StateWaiting && last.Author == SimplifierAgent {
			last.finalize(ev.Content, StateFinal, now)
			return Outcome{Mutated: true}
		}
		// The simplifier's start was suppressed upstream or already
		// consumed by an earlier pass; append instead.
		s.timeline.append(NewMessage(SimplifierAgent, ev.Content, StateFinal, now))
		return Outcome{Mutated: true}

	case wire.KindFinalAnswer:
		// The authoritative answer supersedes any in-flight reveal.
		s.reveal.Clear()
		s.pendingPrompt = ""
		if last := s.timeline.Last(); last != nil &&
			(last.State == StateWaiting || last.State == StateStreaming) {
			last.finalize(ev.Content, StateFinal, now)
			return Outcome{Mutated: true}
		}
		s.timeline.append(NewMessage(SynthesizerAgent, ev.Content, StateFinal, now))
		return Outcome{Mutated: true}

	case wire.KindError, wire.KindSystemAbort:
		m := NewMessage("", ev.Text(), StateError, now)
		m.RetryPrompt = s.pendingPrompt
		s.timeline.append(m)
		done := ev.Kind == wire.KindSystemAbort
		if done {
			s.pendingPrompt = ""
		}
		return Outcome{Mutated: true, TurnDone: done}

	case wire.KindSystemEnd:
		s.pendingPrompt = ""
		return Outcome{TurnDone: true}

	case wire.KindRaw:
		if ev.Content == "" {
			return Outcome{}
		}
		last := s.timeline.Last()
		switch {
		case last != nil && last.State == StateWaiting:
			// The burst belongs to the agent we were waiting on;
			// its content builds up rune by rune from empty.
			last.State = StateStreaming
			last.Content = ""
		case last != nil && last.State == StateStreaming:
			// Same streaming tail, just more characters.
		default:
			s.timeline.append(NewMessage("", "", StateStreaming, now))
		}
		started := s.reveal.Enqueue(ev.Content)
		return Outcome{Mutated: true, StartReveal: started}

	default:
		// thoughts_and_tasks, validation_score, loop_retry, loop_end,
		// agent_end, model_output_raw: observability only.
		return Outcome{}
	}
}

// RevealTick pops one queued character into the timeline's streaming tail.
// It returns true while the driver should schedule another tick; an empty
// queue is a no-op that retires the driver.
func (s *Session) RevealTick() bool {
	ch, ok := s.reveal.Next()
	if !ok {
		return false
	}
	if last := s.timeline.Last(); last != nil && last.State == StateStreaming {
		last.Content += string(ch)
	}
	// A popped character lands only in a streaming tail; anything else
	// means the message was finalized under us and the character is stale.
	if s.reveal.Len() == 0 {
		s.reveal.Clear()
		return false
	}
	return true
}
