package nodes

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/autoimport-pro/server/internal/agent/graph/parsers"
	"github.com/autoimport-pro/server/internal/agent/graph/prompts"
	"github.com/autoimport-pro/server/internal/agent/model"
	"github.com/autoimport-pro/server/internal/agent/resilience"
	logx "github.com/autoimport-pro/server/pkg/logger"
)

// SlotExtractor pulls slot values out of the latest user message with one oracle call.
type SlotExtractor struct {
	Generator   model.Generator
	ModelName   string
	Retrier     *resilience.Retrier
	Prompt      model.ResponsePromptConfig
	PhoneRegion string
}

// Extract merges newly extracted slots into cs and recomputes the missing slots.
// Oracle failures set cs.Error; malformed replies are only logged.
func (e *SlotExtractor) Extract(ctx context.Context, cs *model.ConversationState) {
	defer func() {
		cs.MissingSlots = cs.ExtractedData.Missing()
	}()

	message := cs.LastUserMessage()
	if strings.TrimSpace(message) == "" {
		return
	}

	input, err := prompts.RenderExtraction(ctx, e.Prompt, message, cs.ExtractedData)
	if err != nil {
		logx.Error().Err(err).Str("session_id", cs.SessionID).Msg("Error rendering extraction prompt")
		return
	}

	out, err := resilience.Do(ctx, e.Retrier, "extract_slots", func(ctx context.Context) (*schema.Message, error) {
		return e.Generator.Generate(ctx, input)
	})
	if err != nil {
		xe := resilience.Classify(err)
		logx.Warn().
			Str("session_id", cs.SessionID).
			Str("kind", string(xe.Kind)).
			Err(xe.Err).
			Msg("Slot extraction failed")
		cs.SetError(string(xe.Kind), xe.UserMessage, xe.Recoverable)
		return
	}
	if out == nil {
		return
	}
	addUsage(cs, NodeSlotExtractor, e.ModelName, out)

	res, err := parsers.ParseSlots(out.Content, e.PhoneRegion)
	if err != nil {
		logx.Warn().Err(err).Str("session_id", cs.SessionID).Msg("Extraction reply is not valid JSON, skipping")
		return
	}
	for _, w := range res.Warnings {
		logx.Debug().Str("session_id", cs.SessionID).Str("warning", w).Msg("Extraction warning")
	}

	cs.ExtractedData = cs.ExtractedData.Merge(res.Slots)
	logx.Debug().
		Str("session_id", cs.SessionID).
		Interface("extracted_data", cs.ExtractedData.Map()).
		Msg("Slots extracted")
}

// NewSlotExtractorPreHandler binds the turn state to the graph state.
func NewSlotExtractorPreHandler() func(context.Context, *model.ConversationState, *model.AppState) (*model.ConversationState, error) {
	return func(ctx context.Context, in *model.ConversationState, s *model.AppState) (*model.ConversationState, error) {
		s.Conversation = in
		s.History = nil
		s.Dropped = nil
		s.ToolCallIDSeq = 0
		return in, nil
	}
}

// NewSlotExtractorNode creates the SlotExtractor node.
func NewSlotExtractorNode(extractor *SlotExtractor) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, cs *model.ConversationState) (*model.ConversationState, error) {
		extractor.Extract(ctx, cs)
		return cs, nil
	})
}
