package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const defaultTyphoonBaseURL = "https://api.opentyphoon.ai/v1"

// TyphoonClient implements the Transcriber interface using the Typhoon ASR
// HTTP API (OpenAI-compatible transcription endpoint).
type TyphoonClient struct {
	apiKey     string
	model      string
	language   string
	baseURL    string
	httpClient *http.Client
}

// TyphoonConfig holds configuration for the Typhoon ASR client.
type TyphoonConfig struct {
	APIKey   string
	Model    string        // e.g., "typhoon-asr-large-v1"
	Language string        // language hint, defaults to "auto"
	BaseURL  string        // override for tests
	Timeout  time.Duration // defaults to 90s, audio uploads are large
}

// NewTyphoonClient creates a new Typhoon ASR client.
func NewTyphoonClient(cfg TyphoonConfig) *TyphoonClient {
	model := cfg.Model
	if model == "" {
		model = "typhoon-asr-large-v1"
	}
	language := cfg.Language
	if language == "" {
		language = "auto"
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultTyphoonBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 90 * time.Second
	}
	return &TyphoonClient{
		apiKey:     cfg.APIKey,
		model:      model,
		language:   language,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// transcriptionResponse represents a Typhoon transcription response.
type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads the audio as multipart form data and returns the
// transcript text.
func (c *TyphoonClient) Transcribe(ctx context.Context, audio []byte) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fw, err := w.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return "", fmt.Errorf("failed to write audio: %w", err)
	}
	if err := w.WriteField("model", c.model); err != nil {
		return "", fmt.Errorf("failed to write model field: %w", err)
	}
	if err := w.WriteField("language_code", c.language); err != nil {
		return "", fmt.Errorf("failed to write language field: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	url := c.baseURL + "/audio/transcriptions"
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", w.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Typhoon ASR error: %s - %s", resp.Status, string(respBody))
	}

	var tr transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return strings.TrimSpace(tr.Text), nil
}
