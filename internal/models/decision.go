package models

import "strings"

// Kind represents the category assigned to an intake note
type Kind string

const (
	KindBugOrDevTask       Kind = "BUG_OR_DEV_TASK"
	KindRelationshipAction Kind = "RELATIONSHIP_ACTION"
	KindPresentationPrep   Kind = "PRESENTATION_PREP"
	KindOperationsTask     Kind = "OPERATIONS_TASK"
	KindGenericNote        Kind = "GENERIC_NOTE"
)

// AllKinds lists every valid kind in presentation order
var AllKinds = []Kind{
	KindBugOrDevTask,
	KindRelationshipAction,
	KindPresentationPrep,
	KindOperationsTask,
	KindGenericNote,
}

// ParseKind normalizes a raw kind string. Anything outside the closed set
// coerces to GENERIC_NOTE so a garbage classifier reply can never leak an
// arbitrary category into storage.
func ParseKind(raw string) Kind {
	k := Kind(strings.ToUpper(strings.TrimSpace(raw)))
	for _, valid := range AllKinds {
		if k == valid {
			return k
		}
	}
	return KindGenericNote
}

// IsValidKind reports whether raw is a member of the closed kind set
func IsValidKind(raw string) bool {
	k := Kind(strings.ToUpper(strings.TrimSpace(raw)))
	for _, valid := range AllKinds {
		if k == valid {
			return true
		}
	}
	return false
}

// Decision is the classifier's verdict for one inbound note
type Decision struct {
	Kind       Kind    `json:"kind"`
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// NoteSource identifies which intake channel produced a note
type NoteSource string

const (
	SourceTelegramText     NoteSource = "telegram_text"
	SourceTelegramVoice    NoteSource = "telegram_voice"
	SourceTelegramDocument NoteSource = "telegram_document"
	SourceTelegramImage    NoteSource = "telegram_image"
	SourceAPI              NoteSource = "api"
)

// Label returns a human-readable label for confirmation prompts
// ("text message", "voice note", ...)
func (s NoteSource) Label() string {
	switch s {
	case SourceTelegramText:
		return "text message"
	case SourceTelegramVoice:
		return "voice note"
	case SourceTelegramDocument:
		return "document"
	case SourceTelegramImage:
		return "image"
	default:
		return string(s)
	}
}
