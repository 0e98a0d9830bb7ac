package domain

import (
	"time"

	"github.com/google/uuid"
)

// JournalEntry is the encrypted-at-rest journaling aggregate.
// Title and Body hold plaintext only while a request is being served; the
// persistence layer ever sees their envelope-encrypted form.
type JournalEntry struct {
	EntryID   uuid.UUID
	UserID    uuid.UUID
	Title     string
	Body      string
	Mood      int
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (e JournalEntry) EventEntity() string { return "journal_entry" }

func (e JournalEntry) EventEntityID() string { return e.EntryID.String() }

func (e JournalEntry) EventOwner() uuid.UUID { return e.UserID }

// EventBody deliberately excludes title and body: encrypted field content
// never leaves the primary store through the outbox.
func (e JournalEntry) EventBody(kind ChangeKind) map[string]any {
	body := map[string]any{
		"mood": e.Mood,
	}
	if kind == ChangeDeleted {
		return map[string]any{}
	}
	return body
}
