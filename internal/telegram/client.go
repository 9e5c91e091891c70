package telegram

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

	"github.com/leonid-shevtsov/telegold"
	"github.com/yuin/goldmark"
	"golang.org/x/time/rate"

	"diane/internal/models"
)

const apiBase = "https://api.telegram.org"

// Client talks to the Telegram Bot API. All methods carry a context and
// every underlying HTTP client has an explicit timeout so a stalled
// Telegram endpoint cannot hang a webhook handler.
type Client struct {
	botToken       string
	httpClient     *http.Client
	downloadClient *http.Client // File downloads can be slow
	limiter        *rate.Limiter
}

// NewClient creates a Telegram Bot API client
func NewClient(botToken string) *Client {
	return &Client{
		botToken: botToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		downloadClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		// Bot API tolerates short bursts but throttles sustained sends
		limiter: rate.NewLimiter(rate.Every(300*time.Millisecond), 3),
	}
}

// api posts a JSON payload to a Bot API method and returns the raw body
func (c *Client) api(ctx context.Context, method string, payload map[string]interface{}) ([]byte, error) {
	body, _ := json.Marshal(payload)

	url := fmt.Sprintf("%s/bot%s/%s", apiBase, c.botToken, method)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Telegram %s failed: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return respBody, fmt.Errorf("Telegram %s error: %s", method, string(respBody))
	}
	return respBody, nil
}

// Telegram Markdown converter using telegold (goldmark with Telegram HTML renderer)
var markdownConverter = goldmark.New(goldmark.WithRenderer(telegold.NewRenderer()))

// toTelegramHTML converts standard Markdown to Telegram-compatible HTML
func toTelegramHTML(text string) string {
	var buf bytes.Buffer
	if err := markdownConverter.Convert([]byte(text), &buf); err != nil {
		log.Printf("⚠️ [TELEGRAM] Markdown conversion failed: %v", err)
		return text
	}
	return buf.String()
}

// stripMarkdown removes Markdown formatting for the plain text fallback
func stripMarkdown(text string) string {
	text = strings.ReplaceAll(text, "**", "")
	text = strings.ReplaceAll(text, "*", "")
	text = strings.ReplaceAll(text, "__", "")
	text = strings.ReplaceAll(text, "_", "")
	text = strings.ReplaceAll(text, "`", "")
	return text
}

// SendMessage sends a message, optionally with an inline keyboard.
// HTML formatting is tried first; if Telegram rejects the entities the
// message is retried as plain text.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, markup *models.InlineKeyboardMarkup) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	payload := map[string]interface{}{
		"chat_id":    chatID,
		"text":       toTelegramHTML(text),
		"parse_mode": "HTML",
	}
	if markup != nil {
		payload["reply_markup"] = markup
	}

	body, err := c.api(ctx, "sendMessage", payload)
	if err == nil {
		return nil
	}
	if !strings.Contains(string(body), "can't parse entities") {
		return err
	}

	// Retry without parse_mode
	log.Printf("⚠️ [TELEGRAM] HTML parsing failed, retrying as plain text")
	payload = map[string]interface{}{
		"chat_id": chatID,
		"text":    stripMarkdown(text),
	}
	if markup != nil {
		payload["reply_markup"] = markup
	}
	_, err = c.api(ctx, "sendMessage", payload)
	return err
}

// EditMessageText replaces the text (and keyboard) of a sent message
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string, markup *models.InlineKeyboardMarkup) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	payload := map[string]interface{}{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       toTelegramHTML(text),
		"parse_mode": "HTML",
	}
	if markup != nil {
		payload["reply_markup"] = markup
	}

	body, err := c.api(ctx, "editMessageText", payload)
	if err == nil {
		return nil
	}
	if !strings.Contains(string(body), "can't parse entities") {
		return err
	}

	payload["text"] = stripMarkdown(text)
	delete(payload, "parse_mode")
	_, err = c.api(ctx, "editMessageText", payload)
	return err
}

// EditMessageReplyMarkup swaps the inline keyboard of a sent message
func (c *Client) EditMessageReplyMarkup(ctx context.Context, chatID, messageID int64, markup *models.InlineKeyboardMarkup) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := c.api(ctx, "editMessageReplyMarkup", map[string]interface{}{
		"chat_id":      chatID,
		"message_id":   messageID,
		"reply_markup": markup,
	})
	return err
}

// AnswerCallbackQuery clears the loading spinner on a pressed button
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID string) error {
	_, err := c.api(ctx, "answerCallbackQuery", map[string]interface{}{
		"callback_query_id": callbackID,
	})
	return err
}

// DownloadFile fetches a file's bytes via getFile + the file endpoint
func (c *Client) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	body, err := c.api(ctx, "getFile", map[string]interface{}{"file_id": fileID})
	if err != nil {
		return nil, err
	}

	var meta struct {
		OK     bool `json:"ok"`
		Result struct {
			FilePath string `json:"file_path"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &meta); err != nil || !meta.OK || meta.Result.FilePath == "" {
		return nil, fmt.Errorf("failed to resolve file path for %s", fileID)
	}

	url := fmt.Sprintf("%s/file/bot%s/%s", apiBase, c.botToken, meta.Result.FilePath)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := c.downloadClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("file download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file download error: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// SetWebhook registers the webhook URL with Telegram
func (c *Client) SetWebhook(ctx context.Context, webhookURL string) error {
	body, err := c.api(ctx, "setWebhook", map[string]interface{}{"url": webhookURL})
	if err != nil {
		return err
	}

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to parse setWebhook response: %w", err)
	}
	if !result.OK {
		return fmt.Errorf("setWebhook rejected: %s", result.Description)
	}

	log.Printf("✅ [TELEGRAM] Webhook registered: %s", webhookURL)
	return nil
}
