package session

import (
	"context"
	"fmt"
	"log"

	"github.com/mbeda/lingua/internal/asr"
	"github.com/mbeda/lingua/internal/coach"
	"github.com/mbeda/lingua/internal/conversation"
	"github.com/mbeda/lingua/internal/eventlog"
	"github.com/mbeda/lingua/internal/judge"
	"github.com/mbeda/lingua/internal/scenario"
)

// Stage names reported to progress observers during a turn.
const (
	StageTranscribing = "transcribing"
	StageResponding   = "responding"
	StageEvaluating   = "evaluating"
)

// ProgressFunc observes the stages of a turn as they begin. Called while the
// session is locked, so it must not call back into the orchestrator.
type ProgressFunc func(stage string)

// TurnResult is the outcome of one submitted turn.
type TurnResult struct {
	Transcript string
	CoachReply string
	IsComplete bool
	// Evaluation is set when this turn completed the scenario and the final
	// evaluation succeeded.
	Evaluation string
}

// Orchestrator sequences transcription, dialogue and evaluation for a
// session. It owns the session mutation rules; storage of sessions between
// requests belongs to the Registry.
type Orchestrator struct {
	scenarios   *scenario.Catalog
	transcriber asr.Transcriber
	coach       *coach.Coach
	judge       *judge.Judge
	events      *eventlog.Logger
	logger      *log.Logger
}

// NewOrchestrator wires the orchestrator. events may be nil.
func NewOrchestrator(scenarios *scenario.Catalog, transcriber asr.Transcriber, c *coach.Coach, j *judge.Judge, events *eventlog.Logger, logger *log.Logger) *Orchestrator {
	return &Orchestrator{
		scenarios:   scenarios,
		transcriber: transcriber,
		coach:       c,
		judge:       j,
		events:      events,
		logger:      logger,
	}
}

// Start transitions the session from NotStarted to InProgress and produces
// the coach's opening line. The opening is stored on the session but is not a
// turn: it has no corresponding user utterance.
func (o *Orchestrator) Start(ctx context.Context, sess *Session) (string, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	defer sess.touch()

	if sess.state != StateNotStarted {
		return "", fmt.Errorf("%w: start called while %s", ErrInvalidState, sess.state)
	}

	def, err := o.scenarios.Get(sess.scenarioID)
	if err != nil {
		return "", err
	}

	opening, err := o.coach.Open(ctx, def)
	if err != nil {
		return "", err
	}

	sess.opening = opening
	sess.state = StateInProgress

	o.events.LogAsync(sess.id, eventlog.EventSessionStarted, map[string]any{
		"scenario_id": sess.scenarioID,
	})
	return opening, nil
}

// SubmitTurn processes one learner utterance: transcribe, respond, and on
// goal completion evaluate. Only valid while InProgress. A transcription or
// dialogue failure leaves the turn history unchanged. When the completing
// turn's evaluation fails, the returned TurnResult is still valid, the
// session stays Completed with no evaluation stored, and Evaluate can be
// retried; the error is a *judge.EvaluationError.
func (o *Orchestrator) SubmitTurn(ctx context.Context, sess *Session, audio []byte) (TurnResult, error) {
	return o.SubmitTurnWithProgress(ctx, sess, audio, nil)
}

// SubmitTurnWithProgress is SubmitTurn with a stage observer, used by the
// live websocket to report progress during slow provider calls.
func (o *Orchestrator) SubmitTurnWithProgress(ctx context.Context, sess *Session, audio []byte, progress ProgressFunc) (TurnResult, error) {
	if progress == nil {
		progress = func(string) {}
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	defer sess.touch()

	if sess.state != StateInProgress {
		return TurnResult{}, fmt.Errorf("%w: turn submitted while %s", ErrInvalidState, sess.state)
	}

	progress(StageTranscribing)
	transcript, err := o.transcriber.Transcribe(ctx, audio)
	if err != nil {
		return TurnResult{}, err
	}
	// Empty transcripts (silent audio) are forwarded as normal turns; any
	// "please say something" guidance belongs to the frontend.
	o.events.LogAsync(sess.id, eventlog.EventTurnTranscribed, map[string]any{
		"chars": len(transcript),
	})

	def, err := o.scenarios.Get(sess.scenarioID)
	if err != nil {
		return TurnResult{}, err
	}

	progress(StageResponding)
	reply, err := o.coach.Respond(ctx, transcript, sess.turns, def)
	if err != nil {
		return TurnResult{}, err
	}

	turn := conversation.Turn{User: transcript, Coach: reply.Text, Transcript: transcript}
	sess.turns = append(sess.turns, turn)

	res := TurnResult{Transcript: transcript, CoachReply: reply.Text}

	o.events.LogAsync(sess.id, eventlog.EventTurnCompleted, map[string]any{
		"turn": len(sess.turns),
	})

	if !reply.GoalReached {
		return res, nil
	}

	sess.complete = true
	sess.state = StateCompleted
	res.IsComplete = true

	o.events.LogAsync(sess.id, eventlog.EventGoalReached, map[string]any{
		"turns": len(sess.turns),
	})

	// The completing turn is already appended, so a failed evaluation can be
	// retried later without replaying the conversation.
	progress(StageEvaluating)
	evaluation, err := o.judge.Evaluate(ctx, sess.turns)
	if err != nil {
		o.logger.Printf("session %s: final evaluation failed: %v", sess.id, err)
		o.events.LogAsync(sess.id, eventlog.EventEvaluationFailed, map[string]any{
			"error": err.Error(),
		})
		return res, err
	}

	sess.finalEvaluation = evaluation
	res.Evaluation = evaluation

	o.events.LogAsync(sess.id, eventlog.EventEvaluationCompleted, nil)
	return res, nil
}

// Evaluate retries the final evaluation of a completed session whose earlier
// evaluation failed. If an evaluation is already stored it is returned as-is.
func (o *Orchestrator) Evaluate(ctx context.Context, sess *Session) (string, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	defer sess.touch()

	if sess.state != StateCompleted {
		return "", fmt.Errorf("%w: evaluate called while %s", ErrInvalidState, sess.state)
	}
	if sess.finalEvaluation != "" {
		return sess.finalEvaluation, nil
	}

	evaluation, err := o.judge.Evaluate(ctx, sess.turns)
	if err != nil {
		o.events.LogAsync(sess.id, eventlog.EventEvaluationFailed, map[string]any{
			"error": err.Error(),
		})
		return "", err
	}

	sess.finalEvaluation = evaluation
	o.events.LogAsync(sess.id, eventlog.EventEvaluationCompleted, nil)
	return evaluation, nil
}

// EvaluateTurns scores a literal turn history without touching any session.
// This is the stateless retry path exposed to the frontend.
func (o *Orchestrator) EvaluateTurns(ctx context.Context, turns []conversation.Turn) (string, error) {
	return o.judge.Evaluate(ctx, turns)
}
