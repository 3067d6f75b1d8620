// Package history talks to the backend's REST endpoints for persisted
// conversations. The backend stores the pipeline's graph state per thread,
// not a flat message list, so this package also rebuilds a timeline from a
// stored record when the user switches threads.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"quorum-cli/internal/chat"
	"quorum-cli/internal/wire"
)

// ErrNoIdentity is returned when a request would reach the backend without a
// user identity. Missing identity is a caller bug, never a silent empty
// result.
var ErrNoIdentity = errors.New("history: user id is required")

// ErrNoBaseURL guards the same way against an unconfigured endpoint.
var ErrNoBaseURL = errors.New("history: base url is required")

// Summary is one row of the conversation list: the thread handle and the
// prompt that opened it.
type Summary struct {
	ThreadID   string `json:"thread_id"`
	UserPrompt string `json:"user_prompt"`
}

// Record is the persisted graph state of one conversation thread.
type Record struct {
	UserPrompt        string            `json:"user_prompt"`
	ThreadID          string            `json:"thread_id"`
	InitialThoughts   string            `json:"initial_thoughts"`
	Tasks             []wire.Task       `json:"tasks"`
	AgentOutputs      map[string]string `json:"agent_outputs"`
	SimplifiedOutputs map[string]string `json:"simplified_outputs"`
	FinalAnswer       string            `json:"final_answer"`
	ValidationScores  map[string]int    `json:"validation_scores"`
}

type Client struct {
	base string
	http *http.Client
}

func NewClient(base string) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// Conversations lists the user's threads, newest first (server ordering).
func (c *Client) Conversations(ctx context.Context, userID string) ([]Summary, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrNoIdentity
	}
	var out struct {
		UserID        string    `json:"user_id"`
		Conversations []Summary `json:"conversations"`
	}
	if err := c.get(ctx, "/history/"+url.PathEscape(userID), &out); err != nil {
		return nil, err
	}
	return out.Conversations, nil
}

// Conversation fetches the full stored record for one thread.
func (c *Client) Conversation(ctx context.Context, threadID string) (Record, error) {
	if strings.TrimSpace(threadID) == "" {
		return Record{}, errors.New("history: thread id is required")
	}
	var rec Record
	if err := c.get(ctx, "/conversation/"+url.PathEscape(threadID), &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	if c.base == "" {
		return ErrNoBaseURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("history request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("history: reading response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("history: %s returned status %d", path, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("history: decoding response: %w", err)
	}
	return nil
}

// SeedMessages rebuilds an ordered timeline from a stored record, in the
// order the pipeline produced the pieces: user prompt, architect thoughts,
// task agent outputs, simplified rewrites, final answer. Entries carry zero
// timestamps; the renderer treats those as "from history".
func SeedMessages(rec Record) []chat.Message {
	var at time.Time
	msgs := make([]chat.Message, 0, 4+2*len(rec.Tasks))

	if rec.UserPrompt != "" {
		msgs = append(msgs, chat.NewMessage(chat.UserAuthor, rec.UserPrompt, chat.StateFinal, at))
	}
	if rec.InitialThoughts != "" {
		msgs = append(msgs, chat.NewMessage(chat.ArchitectAgent, rec.InitialThoughts, chat.StateFinal, at))
	}
	for _, task := range rec.Tasks {
		if out := rec.AgentOutputs[task.AgentName]; out != "" {
			msgs = append(msgs, chat.NewMessage(task.AgentName, out, chat.StateFinal, at))
		}
	}
	for _, task := range rec.Tasks {
		if out := rec.SimplifiedOutputs[task.AgentName]; out != "" {
			msgs = append(msgs, chat.NewMessage(chat.SimplifierAgent, out, chat.StateFinal, at))
		}
	}
	if rec.FinalAnswer != "" {
		msgs = append(msgs, chat.NewMessage(chat.SynthesizerAgent, rec.FinalAnswer, chat.StateFinal, at))
	}
	return msgs
}
