// Package conversation holds the turn types shared by the coach, judge and
// session packages.
package conversation

// Turn is one learner-utterance/coach-reply exchange. Turns are immutable
// once appended to a session.
type Turn struct {
	// User is the learner's utterance after transcription.
	User string `json:"user"`
	// Coach is the coach reply with any completion marker already stripped.
	Coach string `json:"coach"`
	// Transcript is the raw ASR output, kept for display. Currently identical
	// to User.
	Transcript string `json:"transcript,omitempty"`
}
