package asr

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func TestGeminiTranscribe(t *testing.T) {
	t.Run("upload then generate", func(t *testing.T) {
		var uploadedAudio []byte
		var generateBody []byte

		mux := http.NewServeMux()
		mux.HandleFunc("POST /upload/v1beta/files", func(w http.ResponseWriter, r *http.Request) {
			uploadedAudio, _ = io.ReadAll(r.Body)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"file": {"name": "files/abc", "uri": "https://files.example/abc", "mimeType": "audio/wav"}}`))
		})
		mux.HandleFunc("POST /v1beta/models/gemini-2.5-flash:generateContent", func(w http.ResponseWriter, r *http.Request) {
			generateBody, _ = io.ReadAll(r.Body)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": " transcribed speech \n"}]}}]}`))
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		c := NewGeminiTranscriber(GeminiTranscriberConfig{APIKey: "k", BaseURL: srv.URL})
		text, err := c.Transcribe(context.Background(), []byte("wav-bytes"))
		if err != nil {
			t.Fatalf("Transcribe() error = %v", err)
		}
		if text != "transcribed speech" {
			t.Errorf("text = %q, want trimmed transcript", text)
		}
		if string(uploadedAudio) != "wav-bytes" {
			t.Errorf("uploaded = %q, want original audio", uploadedAudio)
		}

		var req generateAudioRequest
		if err := json.Unmarshal(generateBody, &req); err != nil {
			t.Fatalf("unmarshal generate request: %v", err)
		}
		if len(req.Contents) != 1 || len(req.Contents[0].Parts) != 2 {
			t.Fatalf("generate request parts = %+v, want instruction + file", req.Contents)
		}
		if req.Contents[0].Parts[0].Text != transcribeInstruction {
			t.Errorf("instruction = %q, want transcribe instruction", req.Contents[0].Parts[0].Text)
		}
		fd := req.Contents[0].Parts[1].FileData
		if fd == nil || fd.FileURI != "https://files.example/abc" {
			t.Errorf("file_data = %+v, want uploaded file URI", fd)
		}
	})

	t.Run("temp file removed on success and failure", func(t *testing.T) {
		tmpDir := t.TempDir()
		t.Setenv("TMPDIR", tmpDir)

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		c := NewGeminiTranscriber(GeminiTranscriberConfig{APIKey: "k", BaseURL: srv.URL})
		if _, err := c.Transcribe(context.Background(), []byte("audio")); err == nil {
			t.Fatal("Transcribe() expected upload error")
		}

		entries, err := os.ReadDir(tmpDir)
		if err != nil {
			t.Fatalf("read temp dir: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("temp dir has %d leftover files, want 0", len(entries))
		}
	})

	t.Run("upload error surfaces provider detail", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "quota exceeded", http.StatusForbidden)
		}))
		defer srv.Close()

		c := NewGeminiTranscriber(GeminiTranscriberConfig{APIKey: "k", BaseURL: srv.URL})
		_, err := c.Transcribe(context.Background(), []byte("audio"))
		if err == nil {
			t.Fatal("Transcribe() expected error")
		}
		if !strings.Contains(err.Error(), "quota exceeded") {
			t.Errorf("error = %v, want provider body in message", err)
		}
	})
}
