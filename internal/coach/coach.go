// Package coach turns learner utterances into in-character replies and
// detects when the scenario goal has been reached.
package coach

import (
	"context"
	"fmt"
	"strings"

	"github.com/mbeda/lingua/internal/conversation"
	"github.com/mbeda/lingua/internal/llm"
	"github.com/mbeda/lingua/internal/scenario"
)

// DialogueError wraps a failed text-generation call for a coach reply.
type DialogueError struct {
	Err error
}

func (e *DialogueError) Error() string {
	return fmt.Sprintf("dialogue generation failed: %v", e.Err)
}

func (e *DialogueError) Unwrap() error { return e.Err }

// Reply is a coach reply with the completion marker already stripped. The
// rest of the system never inspects reply text for control flow.
type Reply struct {
	Text        string
	GoalReached bool
}

// Coach is the dialogue engine. It is a pure request/response mapping with no
// knowledge of session identity and never mutates session state.
type Coach struct {
	llm llm.Client
}

// New creates a Coach backed by the given text-generation client.
func New(client llm.Client) *Coach {
	return &Coach{llm: client}
}

// Open produces the coach's opening line. For free mode pass the free
// definition (or nil).
func (c *Coach) Open(ctx context.Context, scen *scenario.Definition) (string, error) {
	var system, user string
	if scen == nil || scen.IsFree() {
		system = freeOpeningSystemPrompt
		user = "Please start a conversation with the learner."
	} else {
		system = scenarioOpeningSystemPrompt(scen)
		user = fmt.Sprintf("Start the %s scenario. You speak first.", scen.Title)
	}

	text, err := c.llm.Generate(ctx, system, user)
	if err != nil {
		return "", &DialogueError{Err: err}
	}
	// The opening never carries the completion marker, but a model may emit
	// it anyway; strip defensively so it can never reach the learner.
	reply := stripSentinel(text)
	return reply.Text, nil
}

// Respond produces the coach reply for userText given the prior turn history.
func (c *Coach) Respond(ctx context.Context, userText string, history []conversation.Turn, scen *scenario.Definition) (Reply, error) {
	var system string
	if scen == nil || scen.IsFree() {
		system = freeSystemPrompt
		scen = nil
	} else {
		system = scenarioSystemPrompt(scen)
	}

	user := buildUserPrompt(userText, history, scen)

	text, err := c.llm.Generate(ctx, system, user)
	if err != nil {
		return Reply{}, &DialogueError{Err: err}
	}
	return stripSentinel(text), nil
}

// buildUserPrompt serializes the turn history so the persona has continuity.
func buildUserPrompt(userText string, history []conversation.Turn, scen *scenario.Definition) string {
	if len(history) > 0 {
		var sb strings.Builder
		sb.WriteString("Previous conversation:\n")
		for _, t := range history {
			fmt.Fprintf(&sb, "User: %s\nYou: %s\n\n", t.User, t.Coach)
		}
		fmt.Fprintf(&sb, "User now says:\n'''\n%s\n'''\n\nPlease respond as their conversation partner.", userText)
		return sb.String()
	}

	if scen != nil {
		return fmt.Sprintf("The learner said:\n'''\n%s\n'''\n\nThis is the first message. Start the %s scenario naturally.", userText, scen.Title)
	}
	return fmt.Sprintf("The learner said:\n'''\n%s\n'''\n\nPlease respond as their conversation partner and start a natural conversation.", userText)
}

// stripSentinel removes every occurrence of the completion marker and reports
// whether it was present anywhere in the text.
func stripSentinel(text string) Reply {
	if !strings.Contains(text, CompletionSentinel) {
		return Reply{Text: strings.TrimSpace(text)}
	}
	stripped := strings.ReplaceAll(text, CompletionSentinel, "")
	return Reply{Text: strings.TrimSpace(stripped), GoalReached: true}
}
