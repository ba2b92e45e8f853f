package observers

import (
	"context"
	"strings"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	logx "github.com/autoimport-pro/server/pkg/logger"
)

// newNodeHandler logs lambda node lifecycle. Oracle calls made inside a node
// surface here as model callback payloads.
func newNodeHandler() einocb.Handler {
	return einocb.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, info *einocb.RunInfo, input einocb.CallbackInput) context.Context {
			ev := logx.Debug().Str("node", info.Name)
			if in, ok := input.(*model.CallbackInput); ok && in != nil {
				ev = ev.Int("messages", len(in.Messages)).Int("tools", len(in.Tools))
				if um := lastUserContent(in.Messages); um != "" {
					ev = ev.Str("user", um)
				}
			}
			ev.Msg("Node start")
			return ctx
		}).
		OnEndFn(func(ctx context.Context, info *einocb.RunInfo, output einocb.CallbackOutput) context.Context {
			ev := logx.Debug().Str("node", info.Name)
			if out, ok := output.(*model.CallbackOutput); ok && out != nil && out.Message != nil {
				ev = ev.Int("tool_calls", len(out.Message.ToolCalls))
				if content := strings.TrimSpace(out.Message.Content); content != "" {
					ev = ev.Str("assistant", content)
				}
			}
			ev.Msg("Node end")
			return ctx
		}).
		OnErrorFn(func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Error().Str("node", info.Name).Err(err).Msg("Node failed")
			return ctx
		}).
		Build()
}

func lastUserContent(msgs []*schema.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m == nil {
			continue
		}
		if m.Role == schema.User {
			return strings.TrimSpace(m.Content)
		}
	}
	return ""
}
