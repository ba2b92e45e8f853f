package nodes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/autoimport-pro/server/internal/agent/graph/conversations"
	"github.com/autoimport-pro/server/internal/agent/graph/prompts"
	"github.com/autoimport-pro/server/internal/agent/graph/tools"
	"github.com/autoimport-pro/server/internal/agent/model"
	"github.com/autoimport-pro/server/internal/agent/resilience"
	errx "github.com/autoimport-pro/server/internal/core/error"
	logx "github.com/autoimport-pro/server/pkg/logger"
)

// Responder issues response generation calls and keeps the failure trackers current.
type Responder struct {
	Generator model.Generator
	ModelName string
	Retrier   *resilience.Retrier
	Trackers  *resilience.TrackerSet
}

// Reply generates one answer. It never fails: an exhausted or fatal oracle
// error yields the user-safe message as the answer and marks cs.
// A reply requesting tools only counts as a success once final is set.
func (r *Responder) Reply(ctx context.Context, cs *model.ConversationState, op string, input []*schema.Message, final bool, opts ...einomodel.Option) *schema.Message {
	out, err := resilience.Do(ctx, r.Retrier, op, func(ctx context.Context) (*schema.Message, error) {
		return r.Generator.Generate(ctx, input, opts...)
	})
	if err == nil && out == nil {
		err = errx.New(errx.KindUpstream, errors.New("empty reply"))
	}

	tracker := r.tracker(cs.SessionID)
	if err != nil {
		xe := resilience.Classify(err)
		if tracker != nil {
			tracker.RecordFailure()
		}
		logx.Error().
			Str("session_id", cs.SessionID).
			Str("op", op).
			Str("kind", string(xe.Kind)).
			Bool("recoverable", xe.Recoverable).
			Err(xe.Err).
			Msg("Response generation failed")
		cs.SetError(string(xe.Kind), xe.UserMessage, xe.Recoverable)

		reply := xe.UserMessage
		if xe.Kind == errx.KindRateLimited {
			reply = errx.Fallback(errx.FallbackRateLimit)
		}
		msg := schema.AssistantMessage(reply, nil)
		msg.Extra = map[string]any{"degraded": true}
		return msg
	}

	if final && len(out.ToolCalls) > 0 {
		logx.Warn().Str("session_id", cs.SessionID).Int("tool_count", len(out.ToolCalls)).
			Msg("Follow-up requested more tools; ignoring them")
		out.ToolCalls = nil
	}
	if len(out.ToolCalls) == 0 && tracker != nil {
		tracker.RecordSuccess()
	}
	return out
}

func (r *Responder) tracker(sessionID string) *resilience.FailureTracker {
	if r.Trackers == nil {
		return nil
	}
	return r.Trackers.For(sessionID)
}

func conversationFrom(ctx context.Context) (*model.ConversationState, error) {
	var cs *model.ConversationState
	err := compose.ProcessState(ctx, func(_ context.Context, s *model.AppState) error {
		cs = s.Conversation
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access state: %w", err)
	}
	if cs == nil {
		return nil, fmt.Errorf("missing conversation in state")
	}
	return cs, nil
}

// NewFallbackCondition routes to the canned reply while the session's tracker is in fallback mode.
func NewFallbackCondition(trackers *resilience.TrackerSet) func(context.Context, *model.ConversationState) (string, error) {
	return func(ctx context.Context, cs *model.ConversationState) (string, error) {
		if trackers != nil && trackers.For(cs.SessionID).ShouldUseFallback() {
			stats := trackers.For(cs.SessionID).Stats()
			logx.Warn().
				Str("session_id", cs.SessionID).
				Int("consecutive_errors", stats.ConsecutiveErrors).
				Str("scope", trackers.Scope()).
				Msg("Using fallback response due to consecutive errors")
			return NodeFallback, nil
		}
		return NodeResponseAssembler, nil
	}
}

// NewFallbackNode answers without calling the oracle.
func NewFallbackNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, cs *model.ConversationState) (*schema.Message, error) {
		return fallbackReply(cs), nil
	})
}

// fallbackReply is the canned answer; a customer's first message gets the greeting.
func fallbackReply(cs *model.ConversationState) *schema.Message {
	key := errx.FallbackGeneral
	if len(cs.Messages) <= 1 {
		key = errx.FallbackGreeting
	}
	msg := schema.AssistantMessage(errx.Fallback(key), nil)
	msg.Extra = map[string]any{"fallback": true}
	return msg
}

// NewResponseAssemblerNode builds the response context: system prompt plus recent turns.
func NewResponseAssemblerNode(
	mm *conversations.MessagesManager,
	kb model.KnowledgeBase,
	responsePromptConfig model.ResponsePromptConfig,
) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, cs *model.ConversationState) ([]*schema.Message, error) {
		var knowledge string
		if kb != nil {
			knowledge = kb.RelevantKnowledge(cs.LastUserMessage())
		}

		systemPrompt, err := prompts.RenderResponseSystem(ctx, responsePromptConfig, prompts.ResponseContext{
			Stage:     cs.CurrentStage,
			Slots:     cs.ExtractedData,
			Missing:   cs.MissingSlots,
			Knowledge: knowledge,
		})
		if err != nil {
			return nil, fmt.Errorf("generate response prompt: %w", err)
		}

		return mm.BuildResponseContext(systemPrompt, cs.Messages), nil
	})
}

// NewResponseGeneratorPreHandler starts the oracle context for this turn.
func NewResponseGeneratorPreHandler() func(context.Context, []*schema.Message, *model.AppState) ([]*schema.Message, error) {
	return func(ctx context.Context, in []*schema.Message, state *model.AppState) ([]*schema.Message, error) {
		state.History = append([]*schema.Message(nil), in...)
		logx.Debug().Msg("AI thinking...")
		return in, nil
	}
}

// NewResponseGeneratorNode issues the primary generation call with the catalog tools on offer.
func NewResponseGeneratorNode(r *Responder, registry *tools.Registry) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in []*schema.Message) (*schema.Message, error) {
		cs, err := conversationFrom(ctx)
		if err != nil {
			return nil, err
		}
		infos, err := registry.Infos(ctx)
		if err != nil {
			return nil, err
		}
		return r.Reply(ctx, cs, "generate_response", in, false, einomodel.WithTools(infos)), nil
	})
}

// NewResponseGeneratorPostHandler prices the call, fixes tool call ids and records the reply.
func NewResponseGeneratorPostHandler(modelName string) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.AppState) (*schema.Message, error) {
		addUsage(state.Conversation, NodeResponseGenerator, modelName, out)
		normalizeToolCallIDs(state, out)
		state.History = append(state.History, out)

		if len(out.ToolCalls) > 0 {
			logx.Debug().Int("tool_count", len(out.ToolCalls)).Msg("Calling tools")
		} else {
			logx.Debug().Msg("AI response ready")
		}
		return out, nil
	}
}

// NewToolExecutorCondition routes tool requests to the executor and everything else to the finalizer.
func NewToolExecutorCondition() func(context.Context, *schema.Message) (string, error) {
	return func(ctx context.Context, input *schema.Message) (string, error) {
		if input != nil && len(input.ToolCalls) > 0 {
			logx.Debug().Int("tool_count", len(input.ToolCalls)).Msg("Routing to ToolExecutor")
			return NodeToolExecutor, nil
		}
		return NodeFinalizer, nil
	}
}

// NewToolExecutorNode wraps the registry in a sequential eino ToolsNode.
func NewToolExecutorNode(ctx context.Context, registry *tools.Registry) (*compose.ToolsNode, error) {
	node, err := compose.NewToolNode(ctx, &compose.ToolsNodeConfig{
		Tools:                registry.Tools(),
		ExecuteSequentially:  true,
		UnknownToolsHandler:  registry.UnknownTool,
		ToolArgumentsHandler: tools.SanitizeArguments,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Failed to create tools node")
		return nil, fmt.Errorf("failed to create tools node: %w", err)
	}
	return node, nil
}

// NewToolExecutorPreHandler executes at most maxToolCalls calls; the rest are
// parked in state and answered with a limit notice.
func NewToolExecutorPreHandler(maxToolCalls int) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	max := normalizeMaxToolCalls(maxToolCalls)
	return func(ctx context.Context, in *schema.Message, state *model.AppState) (*schema.Message, error) {
		state.Dropped = nil
		if len(in.ToolCalls) <= max {
			return in, nil
		}

		capped := *in
		capped.ToolCalls = in.ToolCalls[:max:max]
		state.Dropped = append(state.Dropped, in.ToolCalls[max:]...)

		sessionID := ""
		if state.Conversation != nil {
			sessionID = state.Conversation.SessionID
		}
		logx.Warn().
			Str("session_id", sessionID).
			Int("requested", len(in.ToolCalls)).
			Int("max_tool_calls", max).
			Msg("Tool call limit exceeded; extra calls skipped")
		return &capped, nil
	}
}

// NewFollowUpGeneratorPreHandler feeds tool results (and limit notices) back into the context.
func NewFollowUpGeneratorPreHandler(maxToolCalls int) func(context.Context, []*schema.Message, *model.AppState) ([]*schema.Message, error) {
	max := normalizeMaxToolCalls(maxToolCalls)
	return func(ctx context.Context, in []*schema.Message, state *model.AppState) ([]*schema.Message, error) {
		state.History = append(state.History, in...)
		for _, call := range state.Dropped {
			state.History = append(state.History, limitReachedMessage(call, max))
		}
		state.Dropped = nil
		return state.History, nil
	}
}

// NewFollowUpGeneratorNode issues the second generation call that turns tool results into an answer.
func NewFollowUpGeneratorNode(r *Responder, registry *tools.Registry) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in []*schema.Message) (*schema.Message, error) {
		cs, err := conversationFrom(ctx)
		if err != nil {
			return nil, err
		}
		infos, err := registry.Infos(ctx)
		if err != nil {
			return nil, err
		}
		return r.Reply(ctx, cs, "generate_follow_up", in, true, einomodel.WithTools(infos)), nil
	})
}

// NewFollowUpGeneratorPostHandler prices the follow-up call.
func NewFollowUpGeneratorPostHandler(modelName string) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.AppState) (*schema.Message, error) {
		addUsage(state.Conversation, NodeFollowUpGenerator, modelName, out)
		state.History = append(state.History, out)
		return out, nil
	}
}

// NewFinalizerNode appends the answer to the conversation.
func NewFinalizerNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, out *schema.Message) (*model.ConversationState, error) {
		cs, err := conversationFrom(ctx)
		if err != nil {
			return nil, err
		}

		content := ""
		if out != nil {
			content = strings.TrimSpace(out.Content)
		}
		if content == "" {
			logx.Warn().Str("session_id", cs.SessionID).Msg("Oracle returned an empty answer; using fallback text")
			content = errx.Fallback(errx.FallbackGeneral)
		}

		cs.Messages = append(cs.Messages, model.Message{Role: model.RoleAssistant, Content: content})
		return cs, nil
	})
}
