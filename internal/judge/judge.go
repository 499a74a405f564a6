// Package judge produces the final IELTS-style evaluation of a completed
// conversation.
package judge

import (
	"context"
	"fmt"
	"strings"

	"github.com/mbeda/lingua/internal/conversation"
	"github.com/mbeda/lingua/internal/llm"
)

// EvaluationError wraps a failed text-generation call for the final scoring.
type EvaluationError struct {
	Err error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluation generation failed: %v", e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// systemPrompt asks for the four IELTS criteria plus an overall band. Only
// the learner's own speech is scored.
const systemPrompt = `You are an IELTS Speaking examiner. Provide a COMPREHENSIVE evaluation based on the ENTIRE conversation.

Evaluate these criteria (0-9 scale):
1. Pronunciation (0-9): Based on transcript patterns, complexity of words used, and natural language flow
2. Vocabulary (0-9): Range, accuracy, appropriateness across the entire conversation
3. Grammar (0-9): Accuracy, range, complexity throughout all responses
4. Fluency & Coherence (0-9): Overall smoothness, logical progression, ability to sustain conversation

Provide:
- Individual scores for each criterion
- Detailed justification for each score
- Overall band score (average of 4 criteria)
- Specific strengths and areas for improvement
- Example sentences that demonstrate strong/weak points`

// Judge is the evaluation engine. It is invoked once per completed session,
// never per-turn.
type Judge struct {
	llm llm.Client
}

// New creates a Judge backed by the given text-generation client.
func New(client llm.Client) *Judge {
	return &Judge{llm: client}
}

// Evaluate scores the full conversation. The input history is not mutated.
func (j *Judge) Evaluate(ctx context.Context, turns []conversation.Turn) (string, error) {
	user := fmt.Sprintf("%s\n\nPlease provide a COMPREHENSIVE IELTS evaluation based on this complete conversation.",
		BuildTranscript(turns))

	text, err := j.llm.Generate(ctx, systemPrompt, user)
	if err != nil {
		return "", &EvaluationError{Err: err}
	}
	return text, nil
}

// BuildTranscript concatenates the user-side utterance of every turn in
// chronological order. Coach replies are intentionally excluded: only the
// learner's own speech is assessed.
func BuildTranscript(turns []conversation.Turn) string {
	var sb strings.Builder
	sb.WriteString("Full Conversation Transcript:\n\n")
	for i, t := range turns {
		fmt.Fprintf(&sb, "Turn %d - User: %s\n", i+1, t.User)
	}
	return sb.String()
}
