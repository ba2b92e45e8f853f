// Package oracletest provides a deterministic language-model stub.
package oracletest

import (
	"context"
	"errors"
	"sync"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ErrScriptExhausted is returned once every scripted reply has been used.
var ErrScriptExhausted = errors.New("oracletest: script exhausted")

// Reply is one scripted answer: a message or an error.
type Reply struct {
	Message *schema.Message
	Err     error
}

// Text scripts a plain assistant answer.
func Text(content string) Reply {
	return Reply{Message: schema.AssistantMessage(content, nil)}
}

// WithUsage scripts a plain answer that reports token usage.
func WithUsage(content string, prompt, completion int) Reply {
	msg := schema.AssistantMessage(content, nil)
	msg.ResponseMeta = &schema.ResponseMeta{Usage: &schema.TokenUsage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
	}}
	return Reply{Message: msg}
}

// ToolCalls scripts an answer that requests tools.
func ToolCalls(calls ...schema.ToolCall) Reply {
	return Reply{Message: schema.AssistantMessage("", calls)}
}

// Fail scripts a failed call.
func Fail(err error) Reply {
	return Reply{Err: err}
}

// Call builds a tool call.
func Call(id, name, args string) schema.ToolCall {
	return schema.ToolCall{ID: id, Function: schema.FunctionCall{Name: name, Arguments: args}}
}

// Request is a recorded Generate call.
type Request struct {
	Input []*schema.Message
	Tools []*schema.ToolInfo
}

// ScriptedGenerator replays scripted replies in order and records every request.
// It is safe for concurrent use.
type ScriptedGenerator struct {
	mu       sync.Mutex
	replies  []Reply
	requests []Request
}

func New(replies ...Reply) *ScriptedGenerator {
	return &ScriptedGenerator{replies: replies}
}

// Push appends replies to the script.
func (g *ScriptedGenerator) Push(replies ...Reply) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.replies = append(g.replies, replies...)
}

func (g *ScriptedGenerator) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	options := einomodel.GetCommonOptions(nil, opts...)
	in := make([]*schema.Message, len(input))
	copy(in, input)
	g.requests = append(g.requests, Request{Input: in, Tools: options.Tools})

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(g.replies) == 0 {
		return nil, ErrScriptExhausted
	}
	r := g.replies[0]
	g.replies = g.replies[1:]
	if r.Err != nil {
		return nil, r.Err
	}
	out := *r.Message
	return &out, nil
}

// Requests returns the recorded calls.
func (g *ScriptedGenerator) Requests() []Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Request, len(g.requests))
	copy(out, g.requests)
	return out
}

// Remaining is the number of unused replies.
func (g *ScriptedGenerator) Remaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.replies)
}
