package conversations

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/autoimport-pro/server/internal/agent/model"
)

const DefaultMaxTurns = 10

type MessagesManager struct {
	history  model.HistoryLoader
	maxTurns int
}

// NewMessagesManager builds a manager. history may be nil when the store keeps no message log.
func NewMessagesManager(history model.HistoryLoader, config model.ConversationConfig) *MessagesManager {
	maxTurns := config.History.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &MessagesManager{
		history:  history,
		maxTurns: maxTurns,
	}
}

func (cm *MessagesManager) MaxTurns() int { return cm.maxTurns }

// LoadHistory returns the recent stored turns of a session, oldest first.
func (cm *MessagesManager) LoadHistory(ctx context.Context, sessionID string) ([]model.Message, error) {
	if cm.history == nil || sessionID == "" {
		return nil, nil
	}
	msgs, err := cm.history.LoadHistory(ctx, sessionID, cm.maxTurns)
	if err != nil {
		return nil, err
	}
	return trimTail(msgs, cm.maxTurns), nil
}

// BuildResponseContext prepends the system prompt to the recent turns.
func (cm *MessagesManager) BuildResponseContext(systemPrompt string, messages []model.Message) []*schema.Message {
	recent := trimTail(messages, cm.maxTurns)
	out := make([]*schema.Message, 0, len(recent)+1)
	out = append(out, schema.SystemMessage(systemPrompt))
	return append(out, ToSchema(recent)...)
}

// ToSchema converts stored turns to eino messages, skipping blank ones.
func ToSchema(messages []model.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(messages))
	for _, msg := range messages {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		switch msg.Role {
		case model.RoleUser:
			out = append(out, schema.UserMessage(msg.Content))
		case model.RoleAssistant:
			out = append(out, schema.AssistantMessage(msg.Content, nil))
		}
	}
	return out
}

// ====================== Helper function ======================
func trimTail[T any](messages []T, maxTurns int) []T {
	if maxTurns <= 0 || len(messages) <= maxTurns {
		result := make([]T, len(messages))
		copy(result, messages)
		return result
	}
	source := messages[len(messages)-maxTurns:]
	result := make([]T, len(source))
	copy(result, source)
	return result
}
