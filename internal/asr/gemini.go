package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultGeminiFileBaseURL = "https://generativelanguage.googleapis.com"

// transcribeInstruction asks for the verbatim transcript and nothing else, so
// the response body can be used directly as the transcript.
const transcribeInstruction = "Please transcribe this audio accurately. Only provide the transcription text, nothing else."

// GeminiTranscriber implements the Transcriber interface using Gemini's
// multimodal API: the audio is staged in a temp file, uploaded through the
// Files API and transcribed with a generateContent call.
type GeminiTranscriber struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// GeminiTranscriberConfig holds configuration for the Gemini fallback transcriber.
type GeminiTranscriberConfig struct {
	APIKey  string
	Model   string        // e.g., "gemini-2.5-flash"
	BaseURL string        // override for tests
	Timeout time.Duration // defaults to 90s, covers upload plus generation
}

// NewGeminiTranscriber creates a new Gemini fallback transcriber.
func NewGeminiTranscriber(cfg GeminiTranscriberConfig) *GeminiTranscriber {
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultGeminiFileBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 90 * time.Second
	}
	return &GeminiTranscriber{
		apiKey:     cfg.APIKey,
		model:      model,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// uploadResponse represents a Gemini Files API upload response.
type uploadResponse struct {
	File struct {
		Name     string `json:"name"`
		URI      string `json:"uri"`
		MimeType string `json:"mimeType"`
	} `json:"file"`
}

// generateAudioRequest represents a generateContent request with a file part.
type generateAudioRequest struct {
	Contents []audioContent `json:"contents"`
}

type audioContent struct {
	Role  string      `json:"role,omitempty"`
	Parts []audioPart `json:"parts"`
}

type audioPart struct {
	Text     string    `json:"text,omitempty"`
	FileData *fileData `json:"file_data,omitempty"`
}

type fileData struct {
	MimeType string `json:"mime_type"`
	FileURI  string `json:"file_uri"`
}

type generateAudioResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Transcribe stages the audio in a temp file, uploads it and asks the model
// for a verbatim transcript. The temp file is removed on every path.
func (c *GeminiTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	tmp, err := os.CreateTemp("", "lingua-audio-*.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(audio); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	fileURI, mimeType, err := c.uploadFile(ctx, tmpPath)
	if err != nil {
		return "", err
	}

	return c.generateTranscript(ctx, fileURI, mimeType)
}

// uploadFile sends the staged audio through the Files API media upload.
func (c *GeminiTranscriber) uploadFile(ctx context.Context, path string) (uri, mimeType string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to open temp file: %w", err)
	}
	defer f.Close()

	url := c.baseURL + "/upload/v1beta/files?uploadType=media"
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, f)
	if err != nil {
		return "", "", fmt.Errorf("failed to create upload request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "audio/wav")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", "", fmt.Errorf("failed to upload audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", "", fmt.Errorf("Gemini file upload error: %s - %s", resp.Status, string(respBody))
	}

	var ur uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&ur); err != nil {
		return "", "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	if ur.File.URI == "" {
		return "", "", fmt.Errorf("no file URI in upload response")
	}

	mimeType = ur.File.MimeType
	if mimeType == "" {
		mimeType = "audio/wav"
	}
	return ur.File.URI, mimeType, nil
}

// generateTranscript asks the model to transcribe the uploaded file.
func (c *GeminiTranscriber) generateTranscript(ctx context.Context, fileURI, mimeType string) (string, error) {
	req := generateAudioRequest{
		Contents: []audioContent{
			{
				Role: "user",
				Parts: []audioPart{
					{Text: transcribeInstruction},
					{FileData: &fileData{MimeType: mimeType, FileURI: fileURI}},
				},
			},
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Gemini API error: %s - %s", resp.Status, string(respBody))
	}

	var genResp generateAudioResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	return strings.TrimSpace(genResp.Candidates[0].Content.Parts[0].Text), nil
}
