package prompts

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/autoimport-pro/server/internal/agent/model"
)

//go:embed template/extraction_prompt.txt
var extractionSystemPrompt string

//go:embed template/extraction_input.txt
var extractionInput string

// RenderExtraction builds the system and user messages for one slot extraction call.
func RenderExtraction(ctx context.Context, cfg model.ResponsePromptConfig, message string, known model.Slots) ([]*schema.Message, error) {
	knownJSON, err := json.Marshal(known.Map())
	if err != nil {
		return nil, fmt.Errorf("marshal known slots: %w", err)
	}

	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(extractionSystemPrompt),
		schema.UserMessage(extractionInput),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"BusinessName": cfg.BusinessName,
		"BusinessType": cfg.BusinessType,
		"Message":      message,
		"Known":        string(knownJSON),
	})
	if err != nil {
		return nil, fmt.Errorf("extraction prompt render: %w", err)
	}
	if len(msgs) != 2 {
		return nil, fmt.Errorf("extraction prompt render: got %d messages", len(msgs))
	}
	return msgs, nil
}
