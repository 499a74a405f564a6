package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/mbeda/lingua/internal/asr"
	"github.com/mbeda/lingua/internal/coach"
	"github.com/mbeda/lingua/internal/conversation"
	"github.com/mbeda/lingua/internal/history"
	"github.com/mbeda/lingua/internal/judge"
	"github.com/mbeda/lingua/internal/session"
)

// maxAudioUpload caps one recorded turn; browser recordings are a few MB.
const maxAudioUpload = 32 << 20

// handleStartConversation creates a session and returns the coach's opening
// line together with a signed session token.
func (r *Router) handleStartConversation(w http.ResponseWriter, req *http.Request) {
	var body struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	def, err := r.scenarios.Get(body.ScenarioID)
	if err != nil {
		// Unknown ids are rejected, not silently treated as free mode.
		writeError(w, http.StatusBadRequest, "unknown scenario: "+body.ScenarioID)
		return
	}

	sess := r.registry.Create(def.ID)
	opening, err := r.orch.Start(req.Context(), sess)
	if err != nil {
		r.registry.Delete(sess.ID())
		r.logger.Printf("start conversation: %v", err)
		captureError(req, err, "start conversation")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	token, err := r.mintSessionToken(sess)
	if err != nil {
		r.registry.Delete(sess.ID())
		r.logger.Printf("mint session token: %v", err)
		captureError(req, err, "mint session token")
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"opening_message": opening,
		"scenario_id":     def.ID,
		"session_token":   token,
	})
}

// turnResponse is the JSON shape of a processed turn, shared with the live
// websocket.
type turnResponse struct {
	Success    bool   `json:"success"`
	Transcript string `json:"transcript"`
	CoachReply string `json:"coach_response"`
	IsComplete bool   `json:"is_complete"`
	Evaluation string `json:"evaluation,omitempty"`
	// EvaluationError is set when the completing turn succeeded but the final
	// evaluation failed; the client can retry via /api/evaluation/final.
	EvaluationError string `json:"evaluation_error,omitempty"`
}

// handleSubmitTurn accepts a multipart audio upload for one turn.
func (r *Router) handleSubmitTurn(w http.ResponseWriter, req *http.Request) {
	req.Body = http.MaxBytesReader(w, req.Body, maxAudioUpload)

	sess, err := r.sessionFromRequest(req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	file, _, err := req.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing audio file")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read audio")
		return
	}

	res, err := r.orch.SubmitTurn(req.Context(), sess, audio)
	if err != nil && !res.IsComplete {
		r.respondTurnError(w, req, err)
		return
	}

	resp := turnResponse{
		Success:    true,
		Transcript: res.Transcript,
		CoachReply: res.CoachReply,
		IsComplete: res.IsComplete,
		Evaluation: res.Evaluation,
	}
	if err != nil {
		// Evaluation failed after the goal was reached; the turn itself stands.
		r.logger.Printf("session %s: %v", sess.ID(), err)
		captureError(req, err, "final evaluation")
		resp.EvaluationError = err.Error()
	}

	if res.IsComplete && res.Evaluation != "" {
		r.saveHistory(req, sess)
	}

	writeJSON(w, http.StatusOK, resp)
}

// respondTurnError maps orchestrator failures onto HTTP statuses.
func (r *Router) respondTurnError(w http.ResponseWriter, req *http.Request, err error) {
	var transcriptionErr *asr.TranscriptionError
	var dialogueErr *coach.DialogueError

	switch {
	case errors.Is(err, session.ErrInvalidState):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &transcriptionErr):
		r.logger.Printf("turn: %v", err)
		captureError(req, err, "transcription")
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.As(err, &dialogueErr):
		r.logger.Printf("turn: %v", err)
		captureError(req, err, "dialogue")
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		r.logger.Printf("turn: %v", err)
		captureError(req, err, "turn")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// handleFinalEvaluation re-runs the final evaluation. With a session token it
// retries on the live session; with a literal turn history it is stateless.
func (r *Router) handleFinalEvaluation(w http.ResponseWriter, req *http.Request) {
	var body struct {
		SessionToken        string              `json:"session_token,omitempty"`
		ConversationHistory []conversation.Turn `json:"conversation_history,omitempty"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.SessionToken == "" && len(body.ConversationHistory) == 0 {
		writeError(w, http.StatusBadRequest, "session_token or conversation_history is required")
		return
	}

	var evaluation string
	var err error
	var sess *session.Session

	if body.SessionToken != "" {
		id, perr := r.parseSessionToken(body.SessionToken)
		if perr != nil {
			writeError(w, http.StatusUnauthorized, perr.Error())
			return
		}
		var ok bool
		sess, ok = r.registry.Get(id)
		if !ok {
			writeError(w, http.StatusNotFound, "session not found or expired")
			return
		}
		evaluation, err = r.orch.Evaluate(req.Context(), sess)
	} else {
		evaluation, err = r.orch.EvaluateTurns(req.Context(), body.ConversationHistory)
	}

	if err != nil {
		if errors.Is(err, session.ErrInvalidState) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		var evalErr *judge.EvaluationError
		if errors.As(err, &evalErr) {
			r.logger.Printf("final evaluation: %v", err)
			captureError(req, err, "final evaluation")
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		r.logger.Printf("final evaluation: %v", err)
		captureError(req, err, "final evaluation")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if sess != nil {
		r.saveHistory(req, sess)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"evaluation": evaluation,
	})
}

// saveHistory persists a completed, evaluated session. Best effort: failures
// are logged but never fail the learner's request. The record is keyed by the
// session id, so reaching this from both the completing turn and a later
// evaluation retry writes one row.
func (r *Router) saveHistory(req *http.Request, sess *session.Session) {
	if r.history == nil || !sess.IsComplete() || sess.FinalEvaluation() == "" {
		return
	}

	rec := history.Record{
		ID:         sess.ID(),
		ScenarioID: sess.ScenarioID(),
		Opening:    sess.Opening(),
		Turns:      sess.Turns(),
		Evaluation: sess.FinalEvaluation(),
		CreatedAt:  time.Now().UTC(),
	}
	if err := r.history.Save(req.Context(), rec); err != nil {
		r.logger.Printf("session %s: failed to save history: %v", sess.ID(), err)
		captureError(req, err, "save history")
	}
}
