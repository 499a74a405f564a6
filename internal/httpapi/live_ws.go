package httpapi

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/mbeda/lingua/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// liveEvent is one server-to-client message on the live practice socket.
type liveEvent struct {
	Type       string `json:"type"` // status, transcript, coach, evaluation, error
	Stage      string `json:"stage,omitempty"`
	Text       string `json:"text,omitempty"`
	IsComplete bool   `json:"is_complete,omitempty"`
	Error      string `json:"error,omitempty"`
}

// handleLiveWS serves the live practice socket: the client sends one binary
// audio message per turn and receives staged progress events while the
// providers work, then the transcript, the coach reply and, on completion,
// the evaluation. Turn ordering is guaranteed by the single read loop plus
// the per-session lock inside the orchestrator.
func (r *Router) handleLiveWS(w http.ResponseWriter, req *http.Request) {
	sess, err := r.sessionFromRequest(req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Printf("live ws: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		msgType, audio, err := conn.ReadMessage()
		if err != nil {
			return // client closed
		}
		if msgType != websocket.BinaryMessage {
			_ = conn.WriteJSON(liveEvent{Type: "error", Error: "expected binary audio message"})
			continue
		}

		progress := func(stage string) {
			_ = conn.WriteJSON(liveEvent{Type: "status", Stage: stage})
		}

		res, turnErr := r.orch.SubmitTurnWithProgress(req.Context(), sess, audio, progress)
		if turnErr != nil && !res.IsComplete {
			if errors.Is(turnErr, session.ErrInvalidState) {
				_ = conn.WriteJSON(liveEvent{Type: "error", Error: turnErr.Error()})
				return
			}
			r.logger.Printf("live ws: turn failed: %v", turnErr)
			captureError(req, turnErr, "live turn")
			_ = conn.WriteJSON(liveEvent{Type: "error", Error: turnErr.Error()})
			continue
		}

		_ = conn.WriteJSON(liveEvent{Type: "transcript", Text: res.Transcript})
		_ = conn.WriteJSON(liveEvent{Type: "coach", Text: res.CoachReply, IsComplete: res.IsComplete})

		if turnErr != nil {
			// Goal reached but the evaluation call failed; the client can
			// retry via /api/evaluation/final.
			r.logger.Printf("live ws: %v", turnErr)
			captureError(req, turnErr, "live evaluation")
			_ = conn.WriteJSON(liveEvent{Type: "error", Error: turnErr.Error()})
			return
		}

		if res.IsComplete {
			r.saveHistory(req, sess)
			_ = conn.WriteJSON(liveEvent{Type: "evaluation", Text: res.Evaluation, IsComplete: true})
			return
		}
	}
}
