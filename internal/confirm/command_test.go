package confirm

import (
	"testing"

	"diane/internal/models"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		data   string
		action Action
		id     string
		kind   models.Kind
	}{
		{"confirm:123_456", ActionConfirm, "123_456", ""},
		{"cancel:123_456", ActionCancel, "123_456", ""},
		{"edit:123_456", ActionEdit, "123_456", ""},
		{"back:123_456", ActionBack, "123_456", ""},
		{"type:123_456:OPERATIONS_TASK", ActionSelectType, "123_456", models.KindOperationsTask},
		{"type:123_456:bogus", ActionSelectType, "123_456", models.KindGenericNote},
		{"delete:123_456", ActionUnknown, "123_456", ""},
		{"confirm:", ActionUnknown, "", ""},
		{"confirm", ActionUnknown, "", ""},
		{"", ActionUnknown, "", ""},
	}
	for _, tt := range tests {
		cmd := ParseCommand(tt.data)
		if cmd.Action != tt.action {
			t.Errorf("ParseCommand(%q).Action = %s, want %s", tt.data, cmd.Action, tt.action)
		}
		if cmd.ConfirmationID != tt.id {
			t.Errorf("ParseCommand(%q).ConfirmationID = %q, want %q", tt.data, cmd.ConfirmationID, tt.id)
		}
		if cmd.Kind != tt.kind {
			t.Errorf("ParseCommand(%q).Kind = %q, want %q", tt.data, cmd.Kind, tt.kind)
		}
	}
}

func TestCallbackDataRoundTrip(t *testing.T) {
	commands := []Command{
		{Action: ActionConfirm, ConfirmationID: "10_20"},
		{Action: ActionCancel, ConfirmationID: "10_20"},
		{Action: ActionEdit, ConfirmationID: "10_20"},
		{Action: ActionBack, ConfirmationID: "10_20"},
		{Action: ActionSelectType, ConfirmationID: "10_20", Kind: models.KindBugOrDevTask},
	}
	for _, cmd := range commands {
		decoded := ParseCommand(cmd.CallbackData())
		if decoded != cmd {
			t.Errorf("Round trip of %+v gave %+v", cmd, decoded)
		}
	}
}

func TestConfirmationID(t *testing.T) {
	if got := ConfirmationID(12345, 678); got != "12345_678" {
		t.Errorf("ConfirmationID(12345, 678) = %q, want 12345_678", got)
	}
	// Negative chat ids (groups) must survive
	if got := ConfirmationID(-100200, 1); got != "-100200_1" {
		t.Errorf("ConfirmationID(-100200, 1) = %q, want -100200_1", got)
	}
}
