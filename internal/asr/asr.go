// Package asr provides speech-to-text clients and the primary/fallback
// transcription strategy.
package asr

import (
	"context"
	"fmt"
	"log"
)

// Transcriber converts raw audio bytes into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// TranscriptionError is returned when both the primary and fallback
// transcription attempts fail. It carries both underlying errors so callers
// can surface provider detail.
type TranscriptionError struct {
	PrimaryErr  error
	FallbackErr error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("both primary and fallback transcription failed: primary: %v; fallback: %v",
		e.PrimaryErr, e.FallbackErr)
}

// Fallback tries the primary transcriber first and falls back to the
// secondary on any primary failure. An empty transcript from the primary is a
// valid result (silent audio), not a reason to fall back.
type Fallback struct {
	primary   Transcriber
	secondary Transcriber
	logger    *log.Logger
}

// NewFallback creates a two-attempt transcription strategy.
func NewFallback(primary, secondary Transcriber, logger *log.Logger) *Fallback {
	return &Fallback{primary: primary, secondary: secondary, logger: logger}
}

// Transcribe runs the primary attempt, then the fallback. When both fail the
// returned error is a *TranscriptionError carrying both causes.
func (f *Fallback) Transcribe(ctx context.Context, audio []byte) (string, error) {
	text, primaryErr := f.primary.Transcribe(ctx, audio)
	if primaryErr == nil {
		return text, nil
	}

	if f.logger != nil {
		f.logger.Printf("asr: primary transcription failed, falling back: %v", primaryErr)
	}

	text, fallbackErr := f.secondary.Transcribe(ctx, audio)
	if fallbackErr == nil {
		return text, nil
	}

	return "", &TranscriptionError{PrimaryErr: primaryErr, FallbackErr: fallbackErr}
}
