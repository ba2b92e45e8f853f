package nodes

import (
	"context"
	"time"

	"github.com/cloudwego/eino/compose"

	"github.com/autoimport-pro/server/internal/agent/model"
	logx "github.com/autoimport-pro/server/pkg/logger"
)

const DefaultPersistTimeout = 5 * time.Second

// PersistTurn saves the turn. Store failures are logged and swallowed; the
// save runs detached from the caller's cancellation with its own deadline.
func PersistTurn(ctx context.Context, repo model.LeadRepository, timeout time.Duration, cs *model.ConversationState) {
	if repo == nil || cs == nil {
		return
	}
	if timeout <= 0 {
		timeout = DefaultPersistTimeout
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	msgs := cs.Messages
	if len(msgs) > 2 {
		msgs = msgs[len(msgs)-2:]
	}
	rec := model.TurnRecord{
		SessionID:     cs.SessionID,
		Slots:         cs.ExtractedData,
		Stage:         cs.CurrentStage,
		Qualification: cs.LeadQualification,
		Messages:      append([]model.Message(nil), msgs...),
	}

	if err := repo.SaveTurn(ctx, rec); err != nil {
		logx.Error().
			Str("session_id", cs.SessionID).
			Err(err).
			Msg("Error saving turn; response is unaffected")
		return
	}
	logx.Debug().
		Str("session_id", cs.SessionID).
		Str("stage", string(cs.CurrentStage)).
		Msg("Turn saved")
}

// NewPersistNode creates the Persist node.
func NewPersistNode(repo model.LeadRepository, timeout time.Duration) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, cs *model.ConversationState) (*model.ConversationState, error) {
		PersistTurn(ctx, repo, timeout, cs)
		return cs, nil
	})
}
