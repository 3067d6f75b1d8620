package wire

import "encoding/json"

// EventKind is the discriminator tag carried in the "event" field of every
// inbound frame. The set mirrors what the backend pipeline emits; anything
// else is classified as KindRaw so unknown tags degrade to plain text instead
// of being lost.
type EventKind string

const (
	KindAgentStart             EventKind = "agent_start"
	KindAgentEnd               EventKind = "agent_end"
	KindModelOutputRaw         EventKind = "model_output_raw"
	KindThoughtsAndTasks       EventKind = "thoughts_and_tasks"
	KindTaskDelegated          EventKind = "task_delegated"
	KindAgentOutput            EventKind = "agent_output"
	KindSimplificationComplete EventKind = "simplification_complete"
	KindValidationScore        EventKind = "validation_score"
	KindLoopRetry              EventKind = "loop_retry"
	KindLoopEnd                EventKind = "loop_end"
	KindFinalAnswer            EventKind = "final_answer"
	KindError                  EventKind = "error"
	KindSystemAbort            EventKind = "system_abort"
	KindSystemEnd              EventKind = "system_end"

	// KindRaw is the fallback variant: a frame with a missing or
	// unrecognized tag, treated as an incremental text fragment.
	KindRaw EventKind = "raw"
)

var knownKinds = map[EventKind]struct{}{
	KindAgentStart:             {},
	KindAgentEnd:               {},
	KindModelOutputRaw:         {},
	KindThoughtsAndTasks:       {},
	KindTaskDelegated:          {},
	KindAgentOutput:            {},
	KindSimplificationComplete: {},
	KindValidationScore:        {},
	KindLoopRetry:              {},
	KindLoopEnd:                {},
	KindFinalAnswer:            {},
	KindError:                  {},
	KindSystemAbort:            {},
	KindSystemEnd:              {},
}

// Task is one delegated sub-task inside a thoughts_and_tasks or
// task_delegated event.
type Task struct {
	AgentName string `json:"agent_name"`
	Task      string `json:"task"`
}

// Event is one decoded inbound frame. It carries the union of fields the
// backend uses across event kinds; which fields are meaningful depends on
// Kind.
type Event struct {
	Kind      EventKind `json:"event"`
	Agent     string    `json:"agent,omitempty"`
	AgentName string    `json:"agent_name,omitempty"`
	Content   string    `json:"content,omitempty"`
	Message   string    `json:"message,omitempty"`
	Status    string    `json:"status,omitempty"`
	Score     int       `json:"score,omitempty"`
	Task      string    `json:"task,omitempty"`
	Tasks     []Task    `json:"tasks,omitempty"`

	// Tag preserves the original discriminator when Kind was folded into
	// KindRaw. Empty for recognized kinds.
	Tag string `json:"-"`
}

// Decode parses one wire frame. Malformed JSON returns an error; the caller
// logs and drops the frame. A valid object with an unknown or absent tag
// decodes to KindRaw.
func Decode(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, err
	}
	if _, ok := knownKinds[ev.Kind]; !ok {
		ev.Tag = string(ev.Kind)
		ev.Kind = KindRaw
	}
	return ev, nil
}

// DisplayName returns the agent label for the event. Per-task events use
// agent_name, pipeline-level events use agent; agent_name wins when both are
// present.
func (e Event) DisplayName() string {
	if e.AgentName != "" {
		return e.AgentName
	}
	return e.Agent
}

// Text returns the best human-readable payload for the event. The backend is
// inconsistent about which field carries it: content for outputs, message for
// errors, status for lifecycle notices.
func (e Event) Text() string {
	switch {
	case e.Content != "":
		return e.Content
	case e.Message != "":
		return e.Message
	default:
		return e.Status
	}
}

// Terminal reports whether the event ends the in-flight turn.
func (e Event) Terminal() bool {
	return e.Kind == KindSystemEnd || e.Kind == KindSystemAbort
}

// Prompt is the single outbound message of a user turn.
type Prompt struct {
	Prompt   string `json:"prompt"`
	UserID   string `json:"user_id"`
	ThreadID string `json:"thread_id,omitempty"`
}
