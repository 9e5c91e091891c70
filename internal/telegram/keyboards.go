package telegram

import (
	"diane/internal/confirm"
	"diane/internal/models"
)

// kindButtonLabels are the labels on the type-selection keyboard, in
// presentation order
var kindButtonLabels = map[models.Kind]string{
	models.KindBugOrDevTask:       "🐛 Dev/Bug",
	models.KindRelationshipAction: "👤 Relationship",
	models.KindPresentationPrep:   "🎯 Presentation",
	models.KindOperationsTask:     "💼 Operations",
	models.KindGenericNote:        "📝 Note",
}

// ConfirmationKeyboard builds the confirm/cancel/edit keyboard for a
// pending confirmation
func ConfirmationKeyboard(confirmationID string) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "✅ Confirm", CallbackData: confirm.Command{Action: confirm.ActionConfirm, ConfirmationID: confirmationID}.CallbackData()},
				{Text: "❌ Cancel", CallbackData: confirm.Command{Action: confirm.ActionCancel, ConfirmationID: confirmationID}.CallbackData()},
			},
			{
				{Text: "✏️ Edit Type", CallbackData: confirm.Command{Action: confirm.ActionEdit, ConfirmationID: confirmationID}.CallbackData()},
			},
		},
	}
}

// TypeSelectionKeyboard builds the five-category selector with a back row
func TypeSelectionKeyboard(confirmationID string) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(models.AllKinds)+1)
	for _, kind := range models.AllKinds {
		rows = append(rows, []models.InlineKeyboardButton{{
			Text:         kindButtonLabels[kind],
			CallbackData: confirm.Command{Action: confirm.ActionSelectType, ConfirmationID: confirmationID, Kind: kind}.CallbackData(),
		}})
	}
	rows = append(rows, []models.InlineKeyboardButton{{
		Text:         "« Back",
		CallbackData: confirm.Command{Action: confirm.ActionBack, ConfirmationID: confirmationID}.CallbackData(),
	}})
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}
