// Package speech turns audio into text via a whisper-server inference
// endpoint.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultWhisperLanguage is the transcription language passed to the
	// model.
	DefaultWhisperLanguage = "en"

	// whisperTask selects transcription over translation.
	whisperTask = "transcribe"
)

// Transcriber produces a transcript from a local audio file.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// WhisperClient calls a whisper-server /inference endpoint with a wav
// file and returns the transcript. The server expects 16 kHz mono PCM
// input; conversion is the caller's job.
type WhisperClient struct {
	baseURL  string
	language string
	client   *http.Client
}

// Compile-time check that WhisperClient implements Transcriber.
var _ Transcriber = (*WhisperClient)(nil)

// NewWhisperClient creates a client for the given server base URL.
// If language is empty, uses DefaultWhisperLanguage.
func NewWhisperClient(baseURL, language string) *WhisperClient {
	if language == "" {
		language = DefaultWhisperLanguage
	}
	return &WhisperClient{
		baseURL:  baseURL,
		language: language,
		client:   &http.Client{Timeout: 30 * time.Minute},
	}
}

// whisperResponse is the response format from whisper-server.
type whisperResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Transcribe uploads the audio file and returns the transcript text.
func (c *WhisperClient) Transcribe(ctx context.Context, audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("copy audio data: %w", err)
	}
	for field, value := range map[string]string{
		"language":        c.language,
		"task":            whisperTask,
		"response_format": "json",
	} {
		if err := mw.WriteField(field, value); err != nil {
			return "", fmt.Errorf("write form field %s: %w", field, err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/inference", &body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("whisper-server error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var wr whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if wr.Error != "" {
		return "", fmt.Errorf("whisper-server error: %s", wr.Error)
	}

	return wr.Text, nil
}
