package wire

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestDecodeRecognizedKinds(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want Event
	}{
		{
			name: "agent start",
			in:   `{"event":"agent_start","agent":"Eleanor","status":"Starting reasoning and task delegation..."}`,
			want: Event{Kind: KindAgentStart, Agent: "Eleanor", Status: "Starting reasoning and task delegation..."},
		},
		{
			name: "agent output",
			in:   `{"event":"agent_output","agent_name":"Isaac","content":"facts"}`,
			want: Event{Kind: KindAgentOutput, AgentName: "Isaac", Content: "facts"},
		},
		{
			name: "validation score",
			in:   `{"event":"validation_score","agent_name":"Layla","score":9}`,
			want: Event{Kind: KindValidationScore, AgentName: "Layla", Score: 9},
		},
		{
			name: "final answer",
			in:   `{"event":"final_answer","content":"done"}`,
			want: Event{Kind: KindFinalAnswer, Content: "done"},
		},
		{
			name: "system abort",
			in:   `{"event":"system_abort","message":"Eleanor failed to generate tasks. Aborting."}`,
			want: Event{Kind: KindSystemAbort, Message: "Eleanor failed to generate tasks. Aborting."},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Decode([]byte(tc.in))
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestDecodeTasks(t *testing.T) {
	in := `{"event":"thoughts_and_tasks","content":"plan","tasks":[{"agent_name":"Isaac","task":"research"},{"agent_name":"Nova","task":"imagine"}]}`
	ev, err := Decode([]byte(in))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if ev.Kind != KindThoughtsAndTasks {
		t.Fatalf("kind = %q", ev.Kind)
	}
	if len(ev.Tasks) != 2 || ev.Tasks[0].AgentName != "Isaac" || ev.Tasks[1].Task != "imagine" {
		t.Fatalf("tasks = %+v", ev.Tasks)
	}
}

func TestDecodeUnknownTagFallsBackToRaw(t *testing.T) {
	ev, err := Decode([]byte(`{"event":"shiny_new_thing","content":"partial text"}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if ev.Kind != KindRaw {
		t.Fatalf("kind = %q, want raw", ev.Kind)
	}
	if ev.Tag != "shiny_new_thing" {
		t.Fatalf("tag = %q", ev.Tag)
	}
	if ev.Content != "partial text" {
		t.Fatalf("content = %q", ev.Content)
	}
}

func TestDecodeMissingTagIsRaw(t *testing.T) {
	ev, err := Decode([]byte(`{"content":"Hel"}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if ev.Kind != KindRaw || ev.Tag != "" || ev.Content != "Hel" {
		t.Fatalf("got %+v", ev)
	}
}

func TestDecodeMalformedFrame(t *testing.T) {
	if _, err := Decode([]byte(`{"event":`)); err == nil {
		t.Fatal("expected error for malformed frame")
	}
}

func TestDisplayNamePrefersAgentName(t *testing.T) {
	ev := Event{Agent: "Task Agents", AgentName: "Isaac"}
	if got := ev.DisplayName(); got != "Isaac" {
		t.Fatalf("got %q", got)
	}
	ev.AgentName = ""
	if got := ev.DisplayName(); got != "Task Agents" {
		t.Fatalf("got %q", got)
	}
}

func TestTextFieldPrecedence(t *testing.T) {
	ev := Event{Content: "c", Message: "m", Status: "s"}
	if ev.Text() != "c" {
		t.Fatalf("content should win, got %q", ev.Text())
	}
	ev.Content = ""
	if ev.Text() != "m" {
		t.Fatalf("message should win, got %q", ev.Text())
	}
	ev.Message = ""
	if ev.Text() != "s" {
		t.Fatalf("status should win, got %q", ev.Text())
	}
}

func TestPromptWireShape(t *testing.T) {
	b, err := json.Marshal(Prompt{Prompt: "hello", UserID: "u-1", ThreadID: "t-1"})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	want := `{"prompt":"hello","user_id":"u-1","thread_id":"t-1"}`
	if string(b) != want {
		t.Fatalf("got %s, want %s", b, want)
	}
}

func TestTerminalKinds(t *testing.T) {
	for _, kind := range []EventKind{KindSystemEnd, KindSystemAbort} {
		if !(Event{Kind: kind}).Terminal() {
			t.Fatalf("%s should be terminal", kind)
		}
	}
	for _, kind := range []EventKind{KindError, KindFinalAnswer, KindAgentEnd, KindRaw} {
		if (Event{Kind: kind}).Terminal() {
			t.Fatalf("%s should not be terminal", kind)
		}
	}
}
