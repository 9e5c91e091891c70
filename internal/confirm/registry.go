package confirm

import (
	"context"
	"fmt"
	"log"
	"time"

	"diane/internal/models"
	"diane/internal/store"
)

// PendingNote is a classified note awaiting a human confirm/cancel/edit
// action. Entries are owned exclusively by the Registry; nothing else
// mutates them.
type PendingNote struct {
	ID       string            `json:"id"`
	Decision models.Decision   `json:"decision"`
	Source   models.NoteSource `json:"source"`
	ChatID   int64             `json:"chat_id"`

	// Attachment metadata. Preview holds at most previewLimit characters
	// of base64 payload for the audit trail; the full bytes are discarded.
	FileName          string `json:"file_name,omitempty"`
	AttachmentPreview string `json:"attachment_preview,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// HasAttachment reports whether the note arrived with a file or image
func (p *PendingNote) HasAttachment() bool {
	return p.FileName != "" || p.AttachmentPreview != ""
}

// Store is the keyed backend holding pending notes. Take must be atomic
// (lookup and delete as one step) so two concurrent confirms for the same
// id can never both observe the entry.
type Store interface {
	Put(ctx context.Context, note *PendingNote) error
	Get(ctx context.Context, id string) (*PendingNote, bool, error)
	Take(ctx context.Context, id string) (*PendingNote, bool, error)
	Delete(ctx context.Context, id string) error
}

// OutcomeKind describes how a transition resolved, which drives rendering
type OutcomeKind int

const (
	// OutcomeSaved means the note was persisted and the entry removed
	OutcomeSaved OutcomeKind = iota
	// OutcomeCancelled means the entry was discarded (or already gone)
	OutcomeCancelled
	// OutcomeExpired means the id had no matching entry
	OutcomeExpired
	// OutcomeTypePrompt means the type-selection keyboard should be shown
	OutcomeTypePrompt
	// OutcomeReprompt means the confirmation prompt should be re-rendered
	OutcomeReprompt
	// OutcomeKeyboardRestored means the confirm keyboard should replace the
	// type selector
	OutcomeKeyboardRestored
	// OutcomeIgnored means nothing should happen (unknown action, or back
	// on a missing entry)
	OutcomeIgnored
)

// Outcome is the result of applying a command
type Outcome struct {
	Kind  OutcomeKind
	Entry *PendingNote // set for Saved, TypePrompt, Reprompt
	Item  *models.Item // set for Saved
}

// Registry owns all pending confirmations and their state machine. Every
// mutation goes through Register or Apply; callers never touch the backing
// store directly.
type Registry struct {
	store Store
	items store.ItemStore
}

// NewRegistry creates a registry over the given pending-note backend and
// item store
func NewRegistry(s Store, items store.ItemStore) *Registry {
	return &Registry{store: s, items: items}
}

// Register records a freshly classified note as awaiting confirmation.
// The deterministic id means a redelivered webhook simply overwrites the
// identical entry.
func (r *Registry) Register(ctx context.Context, note *PendingNote) error {
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now()
	}
	if err := r.store.Put(ctx, note); err != nil {
		return fmt.Errorf("failed to register pending note: %w", err)
	}
	log.Printf("📝 [CONFIRM] Pending %s (%s, %q)", note.ID, note.Decision.Kind, note.Decision.Title)
	return nil
}

// Apply runs one state-machine transition and reports what happened.
// A missing entry is never an error: late or duplicate button presses
// resolve as Expired (or Ignored for back), which is the idempotency guard
// against double-taps and post-restart presses.
func (r *Registry) Apply(ctx context.Context, cmd Command) (Outcome, error) {
	switch cmd.Action {
	case ActionConfirm:
		return r.confirm(ctx, cmd.ConfirmationID)
	case ActionCancel:
		if err := r.store.Delete(ctx, cmd.ConfirmationID); err != nil {
			return Outcome{}, fmt.Errorf("failed to discard pending note: %w", err)
		}
		log.Printf("🗑️ [CONFIRM] Cancelled %s", cmd.ConfirmationID)
		return Outcome{Kind: OutcomeCancelled}, nil
	case ActionEdit:
		entry, found, err := r.store.Get(ctx, cmd.ConfirmationID)
		if err != nil {
			return Outcome{}, err
		}
		if !found {
			return Outcome{Kind: OutcomeExpired}, nil
		}
		return Outcome{Kind: OutcomeTypePrompt, Entry: entry}, nil
	case ActionSelectType:
		return r.selectType(ctx, cmd.ConfirmationID, cmd.Kind)
	case ActionBack:
		_, found, err := r.store.Get(ctx, cmd.ConfirmationID)
		if err != nil {
			return Outcome{}, err
		}
		if !found {
			return Outcome{Kind: OutcomeIgnored}, nil
		}
		return Outcome{Kind: OutcomeKeyboardRestored}, nil
	default:
		return Outcome{Kind: OutcomeIgnored}, nil
	}
}

// confirm atomically takes the entry and persists it. Take-then-create
// keeps resolution at-most-once: a second press finds nothing and resolves
// as Expired without touching the item store.
func (r *Registry) confirm(ctx context.Context, id string) (Outcome, error) {
	entry, found, err := r.store.Take(ctx, id)
	if err != nil {
		return Outcome{}, err
	}
	if !found {
		return Outcome{Kind: OutcomeExpired}, nil
	}

	item, err := r.items.Create(ctx, string(entry.Decision.Kind), entry.Decision.Content, string(entry.Source))
	if err != nil {
		// Put the entry back so the user can press confirm again once the
		// store recovers.
		if putErr := r.store.Put(ctx, entry); putErr != nil {
			log.Printf("❌ [CONFIRM] Could not restore %s after store failure: %v", id, putErr)
		}
		return Outcome{}, fmt.Errorf("failed to save item: %w", err)
	}

	log.Printf("✅ [CONFIRM] Saved %s as item %s (%s)", id, item.ID, item.Kind)
	return Outcome{Kind: OutcomeSaved, Entry: entry, Item: item}, nil
}

// selectType mutates the pending decision's kind in place; title, content,
// confidence and reason are untouched.
func (r *Registry) selectType(ctx context.Context, id string, kind models.Kind) (Outcome, error) {
	entry, found, err := r.store.Get(ctx, id)
	if err != nil {
		return Outcome{}, err
	}
	if !found {
		return Outcome{Kind: OutcomeExpired}, nil
	}

	entry.Decision.Kind = kind
	if err := r.store.Put(ctx, entry); err != nil {
		return Outcome{}, fmt.Errorf("failed to update pending note: %w", err)
	}

	log.Printf("✏️ [CONFIRM] %s re-typed to %s", id, kind)
	return Outcome{Kind: OutcomeReprompt, Entry: entry}, nil
}
