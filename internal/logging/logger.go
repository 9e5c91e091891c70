package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger.
// In production (ENVIRONMENT=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text handler.
func Init() {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	slog.SetDefault(slog.New(handler))
}

// WithConfirmation returns a logger with confirmation context fields attached.
// Use this when logging transitions so failures can be traced without stack dumps.
func WithConfirmation(confirmationID, action string, chatID int64) *slog.Logger {
	return slog.With(
		"confirmation_id", confirmationID,
		"action", action,
		"chat_id", chatID,
	)
}
