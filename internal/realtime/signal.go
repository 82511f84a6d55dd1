package realtime

import (
	"time"

	"github.com/google/uuid"
)

type SignalType string

const (
	// SignalPublished fires when a node is bound to a book for the first time.
	SignalPublished SignalType = "published"
	// SignalMerged fires when a duplicate node is folded into its survivor.
	SignalMerged SignalType = "merged"
)

type Signal struct {
	Type        SignalType `json:"type"`
	KnowledgeID uuid.UUID  `json:"knowledge_id"`
	UserID      uuid.UUID  `json:"user_id"`
	BookID      *uuid.UUID `json:"book_id,omitempty"`
	MergedInto  *uuid.UUID `json:"merged_into,omitempty"`
	At          time.Time  `json:"at"`
}
