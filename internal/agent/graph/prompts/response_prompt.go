package prompts

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/autoimport-pro/server/internal/agent/graph/tools"
	"github.com/autoimport-pro/server/internal/agent/model"
)

//go:embed template/response_prompt.txt
var coreSystemPrompt string

// maxMissingHints is how many missing slots the prompt asks about at once.
const maxMissingHints = 3

// ResponseContext is the per-turn data the response prompt embeds.
type ResponseContext struct {
	Stage     model.Stage
	Slots     model.Slots
	Missing   []string
	Knowledge string
}

// RenderResponseSystem renders the response system prompt and triggers prompt callbacks.
func RenderResponseSystem(ctx context.Context, cfg model.ResponsePromptConfig, rc ResponseContext) (string, error) {
	known, err := json.MarshalIndent(rc.Slots.Map(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal known slots: %w", err)
	}

	missing := "everything is known"
	if len(rc.Missing) > 0 {
		hints := rc.Missing
		if len(hints) > maxMissingHints {
			hints = hints[:maxMissingHints]
		}
		missing = strings.Join(hints, ", ")
	}

	knowledge := strings.TrimSpace(rc.Knowledge)
	if knowledge == "" {
		knowledge = "-"
	}

	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(coreSystemPrompt),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"BusinessName":   cfg.BusinessName,
		"BusinessType":   cfg.BusinessType,
		"Stage":          string(rc.Stage),
		"Known":          string(known),
		"Missing":        missing,
		"Knowledge":      knowledge,
		"SearchTool":     tools.ToolSearchCars,
		"BrandsTool":     tools.ToolAvailableBrands,
		"PriceRangeTool": tools.ToolPriceRange,
	})
	if err != nil {
		return "", fmt.Errorf("response prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("response prompt render: empty result")
	}
	return msgs[0].Content, nil
}
