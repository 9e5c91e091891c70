package confirm

import (
	"fmt"
	"strings"

	"diane/internal/models"
)

// Action is the closed set of confirmation transitions a button press can
// request
type Action string

const (
	ActionConfirm    Action = "confirm"
	ActionCancel     Action = "cancel"
	ActionEdit       Action = "edit"
	ActionSelectType Action = "type"
	ActionBack       Action = "back"
	ActionUnknown    Action = "unknown"
)

// Command is a decoded button press: one action aimed at one pending
// confirmation. Kind is only set for ActionSelectType.
type Command struct {
	Action         Action
	ConfirmationID string
	Kind           models.Kind
}

// ParseCommand decodes callback data of the form "action:id" or
// "type:id:KIND". Unrecognized actions decode to ActionUnknown instead of
// failing, so a stale or foreign button press becomes an explicit no-op
// rather than an error.
func ParseCommand(data string) Command {
	parts := strings.SplitN(data, ":", 3)
	action := Action(parts[0])

	cmd := Command{Action: ActionUnknown}
	if len(parts) > 1 {
		cmd.ConfirmationID = parts[1]
	}

	switch action {
	case ActionConfirm, ActionCancel, ActionEdit, ActionBack:
		cmd.Action = action
	case ActionSelectType:
		cmd.Action = ActionSelectType
		kind := ""
		if len(parts) > 2 {
			kind = parts[2]
		}
		cmd.Kind = models.ParseKind(kind)
	}

	if cmd.ConfirmationID == "" {
		cmd.Action = ActionUnknown
	}
	return cmd
}

// CallbackData encodes a command back into Telegram callback data
func (c Command) CallbackData() string {
	if c.Action == ActionSelectType {
		return fmt.Sprintf("%s:%s:%s", c.Action, c.ConfirmationID, c.Kind)
	}
	return fmt.Sprintf("%s:%s", c.Action, c.ConfirmationID)
}

// ConfirmationID derives the deterministic pending-confirmation key for an
// inbound message. Re-delivery of the same webhook yields the same id, so
// reprocessing is idempotent.
func ConfirmationID(chatID, messageID int64) string {
	return fmt.Sprintf("%d_%d", chatID, messageID)
}
