package model

import (
	"context"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// TurnRecord is what gets persisted after a turn.
type TurnRecord struct {
	SessionID     string
	Slots         Slots
	Stage         Stage
	Qualification Qualification
	// Messages holds the last user and assistant turns.
	Messages []Message
}

// LeadRepository stores leads and their conversation turns.
type LeadRepository interface {
	// LoadSlots returns the persisted slots for a session, or nil if the session is unknown.
	LoadSlots(ctx context.Context, sessionID string) (*Slots, error)

	// SaveTurn merges the record into the stored lead and appends its messages.
	SaveTurn(ctx context.Context, rec TurnRecord) error
}

// HistoryLoader is implemented by stores that keep the message log.
type HistoryLoader interface {
	// LoadHistory returns up to limit most recent messages, oldest first.
	LoadHistory(ctx context.Context, sessionID string, limit int) ([]Message, error)
}

// KnowledgeBase supplies reference text for the response prompt.
type KnowledgeBase interface {
	RelevantKnowledge(message string) string
}

// Generator is the language-model oracle. *gemini.ChatModel satisfies it.
type Generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error)
}
