package telegram

import (
	"fmt"

	"diane/internal/models"
)

const previewLimit = 200

// kindEmojis decorate the category line of the confirmation prompt
var kindEmojis = map[models.Kind]string{
	models.KindBugOrDevTask:       "🐛",
	models.KindRelationshipAction: "👤",
	models.KindPresentationPrep:   "🎯",
	models.KindOperationsTask:     "💼",
	models.KindGenericNote:        "📝",
}

// FormatConfirmationPrompt renders the confirmation message for a decision:
// category with icon, title, bounded content preview, confidence as a
// percentage and the classifier's reason when present.
func FormatConfirmationPrompt(decision models.Decision, sourceLabel string, hasAttachment bool) string {
	emoji, ok := kindEmojis[decision.Kind]
	if !ok {
		emoji = "📝"
	}

	msg := fmt.Sprintf("*New %s received!*\n\n", sourceLabel)
	msg += fmt.Sprintf("%s *Type:* %s\n", emoji, decision.Kind)
	msg += fmt.Sprintf("📌 *Title:* %s\n\n", decision.Title)

	if hasAttachment {
		msg += "📎 *File attached*\n\n"
	}

	preview := decision.Content
	if runes := []rune(preview); len(runes) > previewLimit {
		preview = string(runes[:previewLimit]) + "..."
	}
	msg += fmt.Sprintf("*Content:*\n%s\n\n", preview)
	msg += fmt.Sprintf("_Confidence: %.0f%%_", decision.Confidence*100)

	if decision.Reason != "" {
		msg += fmt.Sprintf("\n_Reason: %s_", decision.Reason)
	}

	msg += "\n\n*Confirm to save to DIANE dashboard?*"
	return msg
}

// SavedMessage confirms a persisted note
func SavedMessage(kind models.Kind, title string) string {
	return fmt.Sprintf("✅ *Saved to DIANE!*\n\n%s: %s", kind, title)
}

// CancelledMessage reports a discarded note
func CancelledMessage() string {
	return "❌ Cancelled. Nothing was saved."
}

// ExpiredMessage reports a button press whose pending entry is gone
func ExpiredMessage() string {
	return "⚠️ Confirmation expired. Please send again."
}

// TranscriptionFailedMessage reports an empty voice transcription
func TranscriptionFailedMessage() string {
	return "⚠️ Could not transcribe voice message. Please try again."
}

// UnsupportedMessage lists the supported intake channels
func UnsupportedMessage() string {
	return "ℹ️ Supported: text, voice notes, documents, and images."
}

// ErrorMessage is the best-effort failure notice sent back to the chat
func ErrorMessage(err error) string {
	return fmt.Sprintf("❌ Error: %v", err)
}
