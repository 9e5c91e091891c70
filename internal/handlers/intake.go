package handlers

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"diane/internal/audio"
	"diane/internal/classifier"
	"diane/internal/confirm"
	"diane/internal/logging"
	"diane/internal/metrics"
	"diane/internal/models"
	"diane/internal/telegram"
)

const (
	intakeTimeout = 90 * time.Second

	// attachmentPreviewLimit bounds how much base64 payload is kept with a
	// pending note. The full bytes are never stored.
	attachmentPreviewLimit = 1000
)

// IntakeHandler handles the Telegram webhook: classifies incoming notes and
// drives the confirmation state machine from button presses.
type IntakeHandler struct {
	bot        *telegram.Client
	classifier *classifier.Classifier
	registry   *confirm.Registry
	audio      *audio.Service
	extract    DocumentExtractor
}

// DocumentExtractor pulls classifiable text out of an uploaded document
type DocumentExtractor func(data []byte, fileName string) (string, error)

// NewIntakeHandler creates a new Telegram intake handler
func NewIntakeHandler(bot *telegram.Client, cls *classifier.Classifier, registry *confirm.Registry, audioService *audio.Service, extract DocumentExtractor) *IntakeHandler {
	return &IntakeHandler{
		bot:        bot,
		classifier: cls,
		registry:   registry,
		audio:      audioService,
		extract:    extract,
	}
}

// HandleWebhook handles POST /api/telegram. It always answers 200: any
// other status makes Telegram redeliver the update indefinitely, so every
// failure is logged and reported to the chat instead of to Telegram.
func (h *IntakeHandler) HandleWebhook(c *fiber.Ctx) error {
	var update models.TelegramUpdate
	if err := c.BodyParser(&update); err != nil {
		log.Printf("⚠️ [INTAKE] Unparseable update: %v", err)
		return c.JSON(fiber.Map{"ok": true})
	}

	ctx, cancel := context.WithTimeout(context.Background(), intakeTimeout)
	defer cancel()

	switch {
	case update.CallbackQuery != nil:
		h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		h.handleMessage(ctx, update.Message)
	case update.EditedMessage != nil:
		h.handleMessage(ctx, update.EditedMessage)
	default:
		log.Printf("ℹ️ [INTAKE] Ignoring update %d (no message or callback)", update.UpdateID)
	}

	return c.JSON(fiber.Map{"ok": true})
}

// handleCallback runs one confirmation state-machine transition
func (h *IntakeHandler) handleCallback(ctx context.Context, cb *models.TelegramCallbackQuery) {
	// Clear the button spinner regardless of what happens next
	if err := h.bot.AnswerCallbackQuery(ctx, cb.ID); err != nil {
		log.Printf("⚠️ [INTAKE] answerCallbackQuery failed: %v", err)
	}

	if cb.Message == nil || cb.Message.Chat == nil {
		log.Printf("⚠️ [INTAKE] Callback %s has no message context", cb.ID)
		return
	}
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID

	cmd := confirm.ParseCommand(cb.Data)
	logger := logging.WithConfirmation(cmd.ConfirmationID, string(cmd.Action), chatID)

	outcome, err := h.registry.Apply(ctx, cmd)
	if err != nil {
		logger.Error("confirmation transition failed", "error", err)
		h.notifyError(ctx, chatID, err)
		return
	}

	m := metrics.Get()
	switch outcome.Kind {
	case confirm.OutcomeSaved:
		if m != nil {
			m.RecordConfirmation("saved")
		}
		h.editOrLog(ctx, chatID, messageID,
			telegram.SavedMessage(outcome.Entry.Decision.Kind, outcome.Entry.Decision.Title), nil)

	case confirm.OutcomeCancelled:
		if m != nil {
			m.RecordConfirmation("cancelled")
		}
		h.editOrLog(ctx, chatID, messageID, telegram.CancelledMessage(), nil)

	case confirm.OutcomeExpired:
		if m != nil {
			m.RecordConfirmation("expired")
		}
		h.editOrLog(ctx, chatID, messageID, telegram.ExpiredMessage(), nil)

	case confirm.OutcomeTypePrompt:
		if err := h.bot.EditMessageReplyMarkup(ctx, chatID, messageID, telegram.TypeSelectionKeyboard(cmd.ConfirmationID)); err != nil {
			logger.Error("failed to show type selector", "error", err)
		}

	case confirm.OutcomeReprompt:
		prompt := telegram.FormatConfirmationPrompt(outcome.Entry.Decision, outcome.Entry.Source.Label(), outcome.Entry.HasAttachment())
		h.editOrLog(ctx, chatID, messageID, prompt, telegram.ConfirmationKeyboard(cmd.ConfirmationID))

	case confirm.OutcomeKeyboardRestored:
		if err := h.bot.EditMessageReplyMarkup(ctx, chatID, messageID, telegram.ConfirmationKeyboard(cmd.ConfirmationID)); err != nil {
			logger.Error("failed to restore keyboard", "error", err)
		}

	case confirm.OutcomeIgnored:
		// Unknown action or a back press on a gone entry
	}
}

// handleMessage routes an inbound message to the right intake channel
func (h *IntakeHandler) handleMessage(ctx context.Context, msg *models.TelegramMessage) {
	if msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID

	var err error
	switch {
	case strings.TrimSpace(msg.Text) != "":
		err = h.intakeText(ctx, msg)
	case msg.Voice != nil:
		err = h.intakeVoice(ctx, msg)
	case msg.Document != nil:
		err = h.intakeDocument(ctx, msg)
	case len(msg.Photo) > 0:
		err = h.intakePhoto(ctx, msg)
	default:
		err = h.bot.SendMessage(ctx, chatID, telegram.UnsupportedMessage(), nil)
	}

	if err != nil {
		log.Printf("❌ [INTAKE] Message %d in chat %d failed: %v", msg.MessageID, chatID, err)
		h.notifyError(ctx, chatID, err)
	}
}

func (h *IntakeHandler) intakeText(ctx context.Context, msg *models.TelegramMessage) error {
	decision := h.classify(ctx, msg.Text)
	return h.registerAndPrompt(ctx, msg, decision, models.SourceTelegramText, "", "")
}

func (h *IntakeHandler) intakeVoice(ctx context.Context, msg *models.TelegramMessage) error {
	if h.audio == nil || !h.audio.Configured() {
		return h.bot.SendMessage(ctx, msg.Chat.ID, telegram.TranscriptionFailedMessage(), nil)
	}

	data, err := h.bot.DownloadFile(ctx, msg.Voice.FileID)
	if err != nil {
		return fmt.Errorf("failed to download voice note: %w", err)
	}

	transcript, err := h.audio.Transcribe(ctx, data, "voice.oga")
	if err != nil {
		return fmt.Errorf("transcription failed: %w", err)
	}
	if strings.TrimSpace(transcript) == "" {
		// Silence or unintelligible audio. No pending entry is created.
		return h.bot.SendMessage(ctx, msg.Chat.ID, telegram.TranscriptionFailedMessage(), nil)
	}

	decision := h.classify(ctx, transcript)
	return h.registerAndPrompt(ctx, msg, decision, models.SourceTelegramVoice, "", "")
}

func (h *IntakeHandler) intakeDocument(ctx context.Context, msg *models.TelegramMessage) error {
	doc := msg.Document
	fileName := doc.FileName
	if fileName == "" {
		fileName = "document"
	}

	data, err := h.bot.DownloadFile(ctx, doc.FileID)
	if err != nil {
		return fmt.Errorf("failed to download document: %w", err)
	}

	var extracted string
	if h.extract != nil {
		extracted, err = h.extract(data, fileName)
		if err != nil {
			// Extraction failure degrades to caption-only classification
			log.Printf("⚠️ [INTAKE] Text extraction for %s failed: %v", fileName, err)
			extracted = ""
		}
	}

	classifyText := strings.TrimSpace(msg.Caption)
	if classifyText == "" && extracted != "" {
		classifyText = excerpt(extracted, 500)
	}
	if classifyText == "" {
		classifyText = "Document: " + fileName
	}
	decision := h.classify(ctx, classifyText)

	content := "📎 Document: " + fileName
	if msg.Caption != "" {
		content += "\n\n" + msg.Caption
	}
	content += fmt.Sprintf("\n\n(%d bytes, %s)", len(data), doc.MimeType)
	decision.Content = content

	return h.registerAndPrompt(ctx, msg, decision, models.SourceTelegramDocument, fileName, attachmentPreview(data))
}

func (h *IntakeHandler) intakePhoto(ctx context.Context, msg *models.TelegramMessage) error {
	photo := largestPhoto(msg.Photo)

	data, err := h.bot.DownloadFile(ctx, photo.FileID)
	if err != nil {
		return fmt.Errorf("failed to download photo: %w", err)
	}

	classifyText := strings.TrimSpace(msg.Caption)
	if classifyText == "" {
		classifyText = "Image"
	}
	decision := h.classify(ctx, classifyText)

	content := "🖼 Image"
	if msg.Caption != "" {
		content += "\n\n" + msg.Caption
	}
	content += fmt.Sprintf("\n\n(%dx%d, %d bytes)", photo.Width, photo.Height, len(data))
	decision.Content = content

	return h.registerAndPrompt(ctx, msg, decision, models.SourceTelegramImage, "photo.jpg", attachmentPreview(data))
}

// registerAndPrompt stores the pending note and sends the confirmation
// prompt with the confirm/cancel/edit keyboard
func (h *IntakeHandler) registerAndPrompt(ctx context.Context, msg *models.TelegramMessage, decision models.Decision, source models.NoteSource, fileName, preview string) error {
	if m := metrics.Get(); m != nil {
		m.RecordNoteReceived(string(source))
	}

	id := confirm.ConfirmationID(msg.Chat.ID, msg.MessageID)
	note := &confirm.PendingNote{
		ID:                id,
		Decision:          decision,
		Source:            source,
		ChatID:            msg.Chat.ID,
		FileName:          fileName,
		AttachmentPreview: preview,
	}
	if err := h.registry.Register(ctx, note); err != nil {
		return err
	}

	prompt := telegram.FormatConfirmationPrompt(decision, source.Label(), note.HasAttachment())
	return h.bot.SendMessage(ctx, msg.Chat.ID, prompt, telegram.ConfirmationKeyboard(id))
}

// classify wraps the classifier with latency and outcome metrics
func (h *IntakeHandler) classify(ctx context.Context, text string) models.Decision {
	start := time.Now()
	decision := h.classifier.Classify(ctx, text)
	if m := metrics.Get(); m != nil {
		m.RecordClassifyLatency(time.Since(start).Seconds())
		m.RecordClassification(string(decision.Kind), ruleFromReason(decision.Reason))
	}
	return decision
}

// editOrLog edits a sent message, logging instead of failing the webhook
func (h *IntakeHandler) editOrLog(ctx context.Context, chatID, messageID int64, text string, markup *models.InlineKeyboardMarkup) {
	if err := h.bot.EditMessageText(ctx, chatID, messageID, text, markup); err != nil {
		log.Printf("⚠️ [INTAKE] editMessageText failed for chat %d: %v", chatID, err)
	}
}

// notifyError sends a best-effort failure notice to the chat
func (h *IntakeHandler) notifyError(ctx context.Context, chatID int64, err error) {
	if sendErr := h.bot.SendMessage(ctx, chatID, telegram.ErrorMessage(err), nil); sendErr != nil {
		log.Printf("⚠️ [INTAKE] Could not report error to chat %d: %v", chatID, sendErr)
	}
}

// largestPhoto picks the biggest size Telegram offered
func largestPhoto(sizes []models.TelegramPhotoSize) models.TelegramPhotoSize {
	best := sizes[0]
	for _, s := range sizes[1:] {
		if s.Width*s.Height > best.Width*best.Height {
			best = s
		}
	}
	return best
}

// attachmentPreview keeps a bounded base64 sample of the payload
func attachmentPreview(data []byte) string {
	encoded := base64.StdEncoding.EncodeToString(data)
	if len(encoded) > attachmentPreviewLimit {
		encoded = encoded[:attachmentPreviewLimit]
	}
	return encoded
}

// excerpt cuts text to at most limit characters on a rune boundary
func excerpt(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

// ruleFromReason maps a decision reason back to the classifier rule that
// produced it, for metrics labels
func ruleFromReason(reason string) string {
	switch {
	case strings.HasPrefix(reason, "tag:"):
		return "tag"
	case strings.HasPrefix(reason, "heuristic"), reason == "empty":
		return "heuristic"
	default:
		return "llm"
	}
}
