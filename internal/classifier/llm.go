package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"diane/internal/models"
)

const maxReasonLen = 200

// LLMClient classifies notes via an OpenAI-compatible chat completions API
type LLMClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewLLMClient creates an LLM classifier client. Returns nil when no API
// key is configured so callers can treat the model rule as absent.
func NewLLMClient(baseURL, apiKey, model string) *LLMClient {
	if apiKey == "" {
		return nil
	}
	return &LLMClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

const classifySystemPrompt = "You output only valid JSON. No markdown."

func classifyPrompt(cleaned string) string {
	kinds := make([]string, len(models.AllKinds))
	for i, k := range models.AllKinds {
		kinds[i] = string(k)
	}
	return fmt.Sprintf(`You are DIANE. Your job: classify a note into exactly one of these kinds:
%s

Rules:
- Choose exactly one kind.
- If uncertain, choose %s.
- Do NOT invent details.
- Keep content as-is (you may remove hashtags).
- Create a short title (<= 90 chars) based on the first meaningful line.

Return STRICT JSON with keys: kind, title, content, confidence, reason.

NOTE:
"""%s"""`, strings.Join(kinds, ", "), models.KindGenericNote, cleaned)
}

// Classify sends the cleaned note text to the model and parses its reply.
// The reply is parsed permissively: when the raw content is not a JSON
// object, the first embedded {...} fragment is tried before giving up.
func (c *LLMClient) Classify(ctx context.Context, cleaned, titleGuess string) (models.Decision, error) {
	payload := map[string]interface{}{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": classifySystemPrompt},
			{"role": "user", "content": classifyPrompt(cleaned)},
		},
		"temperature": 0.0,
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return models.Decision{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewBuffer(reqBody))
	if err != nil {
		return models.Decision{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Decision{}, fmt.Errorf("classification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return models.Decision{}, fmt.Errorf("classification API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return models.Decision{}, fmt.Errorf("failed to parse API response: %w", err)
	}
	if len(result.Choices) == 0 {
		return models.Decision{}, fmt.Errorf("failed to parse API response: no choices")
	}

	raw := strings.TrimSpace(result.Choices[0].Message.Content)
	decision, err := parseDecisionReply(raw, cleaned, titleGuess)
	if err != nil {
		return models.Decision{}, err
	}

	log.Printf("🤖 [CLASSIFIER] Model picked %s (%.0f%%) for note %q", decision.Kind, decision.Confidence*100, decision.Title)
	return decision, nil
}

// parseDecisionReply extracts a Decision from the model's reply text.
// Out-of-enum kinds coerce to GENERIC_NOTE, confidence is clamped to [0,1],
// title and reason are truncated.
func parseDecisionReply(raw, cleaned, titleGuess string) (models.Decision, error) {
	body := gjson.Parse(raw)
	if !body.IsObject() {
		// Model wrapped the JSON in prose or a code fence; dig out the
		// first embedded object.
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start < 0 || end <= start {
			return models.Decision{}, fmt.Errorf("failed to parse model reply: no JSON object found")
		}
		body = gjson.Parse(raw[start : end+1])
		if !body.IsObject() {
			return models.Decision{}, fmt.Errorf("failed to parse model reply: embedded fragment is not an object")
		}
	}

	kind := models.ParseKind(body.Get("kind").String())

	title := truncateRunes(strings.TrimSpace(body.Get("title").String()), maxTitleLen)
	if title == "" {
		title = titleGuess
	}

	content := strings.TrimSpace(body.Get("content").String())
	if content == "" {
		content = cleaned
	}

	// Falsy confidence (absent, null or explicit 0) defaults to 0.6
	confidence := body.Get("confidence").Float()
	if confidence == 0 {
		confidence = 0.6
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	reason := truncateRunes(strings.TrimSpace(body.Get("reason").String()), maxReasonLen)

	return models.Decision{
		Kind:       kind,
		Title:      title,
		Content:    content,
		Confidence: confidence,
		Reason:     reason,
	}, nil
}
