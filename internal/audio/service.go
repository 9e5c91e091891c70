package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"time"
)

const (
	groqTranscriptionURL   = "https://api.groq.com/openai/v1/audio/transcriptions"
	openaiTranscriptionURL = "https://api.openai.com/v1/audio/transcriptions"
)

// Service transcribes voice notes using a Whisper API.
// Groq is tried first (cheaper), OpenAI is the fallback.
type Service struct {
	httpClient   *http.Client
	groqAPIKey   string
	openaiAPIKey string
}

// NewService creates a transcription service. Either key may be empty;
// Configured reports whether at least one provider is usable.
func NewService(groqAPIKey, openaiAPIKey string) *Service {
	return &Service{
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // Whisper can take a while for long audio
		},
		groqAPIKey:   groqAPIKey,
		openaiAPIKey: openaiAPIKey,
	}
}

// Configured reports whether any transcription provider is available
func (s *Service) Configured() bool {
	return s.groqAPIKey != "" || s.openaiAPIKey != ""
}

// Transcribe converts voice audio to text. An empty transcript with a nil
// error is a valid outcome (silence, unintelligible audio); callers decide
// how to report it.
func (s *Service) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if s.groqAPIKey != "" {
		log.Printf("🎵 [AUDIO] Transcribing %d bytes with Groq Whisper (whisper-large-v3)", len(audio))
		text, err := s.transcribeWith(ctx, audio, filename, groqTranscriptionURL, "whisper-large-v3", s.groqAPIKey, "Groq")
		if err == nil {
			return text, nil
		}
		log.Printf("⚠️ [AUDIO] Groq transcription failed, trying OpenAI: %v", err)
	}

	if s.openaiAPIKey != "" {
		log.Printf("🎵 [AUDIO] Transcribing %d bytes with OpenAI Whisper (whisper-1)", len(audio))
		return s.transcribeWith(ctx, audio, filename, openaiTranscriptionURL, "whisper-1", s.openaiAPIKey, "OpenAI")
	}

	return "", fmt.Errorf("no transcription provider configured")
}

// transcribeWith is the common transcription logic for any
// Whisper-compatible API
func (s *Service) transcribeWith(ctx context.Context, audio []byte, filename, apiURL, model, apiKey, providerName string) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("failed to write audio data: %w", err)
	}
	if err := writer.WriteField("model", model); err != nil {
		return "", fmt.Errorf("failed to write model field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", apiURL, body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s Whisper request failed: %w", providerName, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(respBody, &errorResp); err == nil && errorResp.Error.Message != "" {
			return "", fmt.Errorf("%s Whisper API error: %s", providerName, errorResp.Error.Message)
		}
		return "", fmt.Errorf("%s Whisper API error: %d", providerName, resp.StatusCode)
	}

	var apiResp struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	log.Printf("✅ [AUDIO] %s transcription successful (%d chars)", providerName, len(apiResp.Text))
	return apiResp.Text, nil
}
