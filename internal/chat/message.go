package chat

import (
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle of one timeline message.
type State string

const (
	StateFinal     State = "final"
	StateWaiting   State = "waiting"
	StateStreaming State = "streaming"
	StateError     State = "error"
)

// UserAuthor labels messages typed by the user; agent messages carry the
// agent's display name and unlabeled streamed text carries "".
const UserAuthor = "user"

// Message is one entry in the timeline. Content is mutable while the message
// is waiting or streaming and frozen once it reaches final or error.
type Message struct {
	ID        string
	Author    string
	Content   string
	State     State
	StartedAt time.Time
	EndedAt   time.Time

	// RetryPrompt is set only on error messages: the user prompt that was
	// in flight when the failure arrived, kept so a manual retry can
	// re-send it.
	RetryPrompt string
}

// NewMessage mints a message with a process-unique ID. Exposed so the
// history seeder can build timeline entries with the same identity rules as
// live events.
func NewMessage(author, content string, state State, at time.Time) Message {
	m := Message{
		ID:        uuid.NewString(),
		Author:    author,
		Content:   content,
		State:     state,
		StartedAt: at,
	}
	if state == StateFinal || state == StateError {
		m.EndedAt = at
	}
	return m
}

func (m *Message) finalize(content string, state State, at time.Time) {
	m.Content = content
	m.State = state
	if m.EndedAt.IsZero() {
		m.EndedAt = at
	}
}

// Timeline is the ordered, append/merge-only message list. turnStart marks
// the index right after the latest user message; author searches never cross
// it, which is what scopes "latest message" lookups to the current turn.
type Timeline struct {
	msgs      []Message
	turnStart int
}

func (t *Timeline) Len() int { return len(t.msgs) }

// Messages returns the backing slice. Callers treat it as read-only; all
// mutation goes through Session.
func (t *Timeline) Messages() []Message { return t.msgs }

// Last returns the final element, or nil on an empty timeline.
func (t *Timeline) Last() *Message {
	if len(t.msgs) == 0 {
		return nil
	}
	return &t.msgs[len(t.msgs)-1]
}

func (t *Timeline) append(m Message) *Message {
	t.msgs = append(t.msgs, m)
	return &t.msgs[len(t.msgs)-1]
}

func (t *Timeline) beginTurn() {
	t.turnStart = len(t.msgs)
}

// lastWaitingBy walks backward through the current turn for the newest
// waiting message with the given author.
func (t *Timeline) lastWaitingBy(author string) *Message {
	for i := len(t.msgs) - 1; i >= t.turnStart; i-- {
		if t.msgs[i].Author == author && t.msgs[i].State == StateWaiting {
			return &t.msgs[i]
		}
	}
	return nil
}

// lastOpenBy is like lastWaitingBy but also matches streaming messages; used
// to enforce the one-unterminated-message-per-agent rule.
func (t *Timeline) lastOpenBy(author string) *Message {
	for i := len(t.msgs) - 1; i >= t.turnStart; i-- {
		if t.msgs[i].Author != author {
			continue
		}
		if s := t.msgs[i].State; s == StateWaiting || s == StateStreaming {
			return &t.msgs[i]
		}
	}
	return nil
}

// Replace swaps the whole timeline, the only operation that ever discards
// messages. Used when switching to a different conversation thread.
func (t *Timeline) Replace(msgs []Message) {
	t.msgs = msgs
	t.turnStart = len(msgs)
}
