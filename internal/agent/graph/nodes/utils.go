package nodes

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/autoimport-pro/server/internal/agent/model"
	logx "github.com/autoimport-pro/server/pkg/logger"
)

const (
	NodeSlotExtractor     = "SlotExtractor"
	NodeStageClassifier   = "StageClassifier"
	NodeFallback          = "Fallback"
	NodeResponseAssembler = "ResponseAssembler"
	NodeResponseGenerator = "ResponseGenerator"
	NodeToolExecutor      = "ToolExecutor"
	NodeFollowUpGenerator = "FollowUpGenerator"
	NodeFinalizer         = "Finalizer"
	NodePersist           = "Persist"
)

const DefaultMaxToolCalls = 5

// normalizeMaxToolCalls returns a sane default when the provided value is invalid.
func normalizeMaxToolCalls(n int) int {
	if n <= 0 {
		return DefaultMaxToolCalls
	}
	return n
}

// normalizeToolCallIDs fills ids the provider left empty with call_N.
func normalizeToolCallIDs(state *model.AppState, out *schema.Message) {
	if out == nil {
		return
	}
	for i := range out.ToolCalls {
		if strings.TrimSpace(out.ToolCalls[i].ID) == "" {
			state.ToolCallIDSeq++
			out.ToolCalls[i].ID = fmt.Sprintf("call_%d", state.ToolCallIDSeq)
		}
	}
}

// addUsage prices the usage on out, logs it and adds it to the turn total.
func addUsage(cs *model.ConversationState, node, modelName string, out *schema.Message) {
	cost, ok := model.ComputeCost(out, modelName)
	if !ok || cs == nil {
		return
	}
	cs.CostUSD += cost.TotalUSD
	if out.Extra == nil {
		out.Extra = map[string]any{}
	}
	out.Extra["usage_cost"] = cost
	out.Extra["usage_cost_total_usd"] = cs.CostUSD

	logx.Debug().
		Str("session_id", cs.SessionID).
		Str("node", node).
		Str("model", modelName).
		Int("prompt_tokens", cost.PromptTokens).
		Int("completion_tokens", cost.CompletionTokens).
		Int("total_tokens", cost.TotalTokens).
		Float64("input_cost_usd", cost.InputUSD).
		Float64("output_cost_usd", cost.OutputUSD).
		Float64("total_cost_usd", cost.TotalUSD).
		Msg("LLM usage")
}

// limitReachedMessage answers a tool call that was not executed.
func limitReachedMessage(call schema.ToolCall, max int) *schema.Message {
	return &schema.Message{
		Role: schema.Tool,
		Content: fmt.Sprintf(
			"Tool %s was not executed: the limit of %d tool calls per answer was reached. "+
				"Answer with the information already gathered.",
			call.Function.Name, max),
		ToolCallID: call.ID,
	}
}
