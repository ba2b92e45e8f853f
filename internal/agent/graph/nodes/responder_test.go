package nodes

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoimport-pro/server/internal/agent/model"
	"github.com/autoimport-pro/server/internal/agent/oracletest"
	"github.com/autoimport-pro/server/internal/agent/resilience"
	errx "github.com/autoimport-pro/server/internal/core/error"
)

func newResponder(gen model.Generator) *Responder {
	return &Responder{
		Generator: gen,
		ModelName: "gemini-2.5-flash",
		Retrier:   testRetrier(),
		Trackers:  resilience.NewTrackerSet(model.ScopeSession, 3),
	}
}

func TestReplySuccessResetsStreak(t *testing.T) {
	r := newResponder(oracletest.New(oracletest.Text("Hello!")))
	tracker := r.Trackers.For("s1")
	tracker.RecordFailure()
	tracker.RecordFailure()

	cs := &model.ConversationState{SessionID: "s1"}
	out := r.Reply(context.Background(), cs, "generate_response", nil, false)

	assert.Equal(t, "Hello!", out.Content)
	assert.Zero(t, tracker.Stats().ConsecutiveErrors)
	assert.Empty(t, cs.Error)
}

func TestReplyToolRequestIsNotYetSuccess(t *testing.T) {
	r := newResponder(oracletest.New(oracletest.ToolCalls(oracletest.Call("", "search_cars", "{}"))))
	tracker := r.Trackers.For("s1")
	tracker.RecordFailure()

	out := r.Reply(context.Background(), &model.ConversationState{SessionID: "s1"}, "generate_response", nil, false)

	require.Len(t, out.ToolCalls, 1)
	assert.Equal(t, 1, tracker.Stats().ConsecutiveErrors)
}

func TestReplyFinalDropsToolCalls(t *testing.T) {
	r := newResponder(oracletest.New(oracletest.ToolCalls(oracletest.Call("c1", "search_cars", "{}"))))
	tracker := r.Trackers.For("s1")
	tracker.RecordFailure()

	out := r.Reply(context.Background(), &model.ConversationState{SessionID: "s1"}, "generate_follow_up", nil, true)

	assert.Empty(t, out.ToolCalls)
	assert.Zero(t, tracker.Stats().ConsecutiveErrors)
}

func TestReplyFailureDegrades(t *testing.T) {
	gen := oracletest.New(
		oracletest.Fail(resilience.ErrRateLimited),
		oracletest.Fail(resilience.ErrRateLimited),
		oracletest.Fail(resilience.ErrRateLimited),
	)
	r := newResponder(gen)
	cs := &model.ConversationState{SessionID: "s1"}

	out := r.Reply(context.Background(), cs, "generate_response", nil, false)

	assert.Equal(t, errx.Fallback(errx.FallbackRateLimit), out.Content)
	assert.Equal(t, true, out.Extra["degraded"])
	assert.Equal(t, errx.New(errx.KindRateLimited, nil).UserMessage, cs.Error)
	assert.True(t, cs.Recoverable)
	assert.Equal(t, 1, r.Trackers.For("s1").Stats().ConsecutiveErrors)
	assert.Len(t, gen.Requests(), 3)
}

func TestReplyUnknownErrorIsNotRetried(t *testing.T) {
	gen := oracletest.New(oracletest.Fail(errors.New("weird")))
	r := newResponder(gen)
	cs := &model.ConversationState{SessionID: "s1"}

	out := r.Reply(context.Background(), cs, "generate_response", nil, false)

	assert.Len(t, gen.Requests(), 1)
	assert.Equal(t, string(errx.KindUnknown), cs.ErrorKind)
	assert.Equal(t, errx.SystemErrorMessage, out.Content)
}

func TestFallbackReplyGreetsFirstMessage(t *testing.T) {
	first := &model.ConversationState{SessionID: "s1", Messages: []model.Message{{Role: model.RoleUser, Content: "hi"}}}
	out := fallbackReply(first)
	assert.Equal(t, errx.Fallback(errx.FallbackGreeting), out.Content)
	assert.Equal(t, true, out.Extra["fallback"])

	later := &model.ConversationState{SessionID: "s1", Messages: []model.Message{
		{Role: model.RoleUser, Content: "hi"},
		{Role: model.RoleAssistant, Content: "hello"},
		{Role: model.RoleUser, Content: "any BMW?"},
	}}
	out = fallbackReply(later)
	assert.Equal(t, errx.Fallback(errx.FallbackGeneral), out.Content)
}

func TestThreeFailuresTripFallback(t *testing.T) {
	gen := oracletest.New(
		oracletest.Fail(resilience.ErrAuth),
		oracletest.Fail(resilience.ErrAuth),
		oracletest.Fail(resilience.ErrAuth),
	)
	r := newResponder(gen)
	cond := NewFallbackCondition(r.Trackers)
	cs := &model.ConversationState{SessionID: "s1"}

	for i := 0; i < 3; i++ {
		route, err := cond(context.Background(), cs)
		require.NoError(t, err)
		assert.Equal(t, NodeResponseAssembler, route)
		r.Reply(context.Background(), cs, "generate_response", nil, false)
	}

	route, err := cond(context.Background(), cs)
	require.NoError(t, err)
	assert.Equal(t, NodeFallback, route)

	other, err := cond(context.Background(), &model.ConversationState{SessionID: "s2"})
	require.NoError(t, err)
	assert.Equal(t, NodeResponseAssembler, other)
}

func TestToolExecutorPreHandlerCapsCalls(t *testing.T) {
	state := &model.AppState{Conversation: &model.ConversationState{SessionID: "s1"}}
	in := schema.AssistantMessage("", []schema.ToolCall{
		oracletest.Call("c1", "search_cars", "{}"),
		oracletest.Call("c2", "get_available_brands", "{}"),
		oracletest.Call("c3", "get_price_range", "{}"),
	})

	out, err := NewToolExecutorPreHandler(2)(context.Background(), in, state)
	require.NoError(t, err)
	assert.Len(t, out.ToolCalls, 2)
	assert.Len(t, in.ToolCalls, 3)
	require.Len(t, state.Dropped, 1)
	assert.Equal(t, "c3", state.Dropped[0].ID)

	msgs, err := NewFollowUpGeneratorPreHandler(2)(context.Background(), []*schema.Message{
		{Role: schema.Tool, Content: "r1", ToolCallID: "c1"},
		{Role: schema.Tool, Content: "r2", ToolCallID: "c2"},
	}, state)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "c3", msgs[2].ToolCallID)
	assert.Contains(t, msgs[2].Content, "limit of 2")
	assert.Empty(t, state.Dropped)
}

func TestResponseGeneratorPostHandler(t *testing.T) {
	state := &model.AppState{Conversation: &model.ConversationState{SessionID: "s1"}}
	out := oracletest.ToolCalls(
		oracletest.Call("", "search_cars", "{}"),
		oracletest.Call("keep", "get_price_range", "{}"),
	).Message
	out.ResponseMeta = &schema.ResponseMeta{Usage: &schema.TokenUsage{PromptTokens: 1000, CompletionTokens: 100, TotalTokens: 1100}}

	got, err := NewResponseGeneratorPostHandler("gemini-2.5-flash")(context.Background(), out, state)
	require.NoError(t, err)
	assert.Equal(t, "call_1", got.ToolCalls[0].ID)
	assert.Equal(t, "keep", got.ToolCalls[1].ID)
	assert.Greater(t, state.Conversation.CostUSD, 0.0)
	assert.Len(t, state.History, 1)
}

func TestToolExecutorCondition(t *testing.T) {
	cond := NewToolExecutorCondition()
	route, err := cond(context.Background(), schema.AssistantMessage("hi", nil))
	require.NoError(t, err)
	assert.Equal(t, NodeFinalizer, route)

	route, err = cond(context.Background(), schema.AssistantMessage("", []schema.ToolCall{oracletest.Call("c1", "x", "{}")}))
	require.NoError(t, err)
	assert.Equal(t, NodeToolExecutor, route)
}
