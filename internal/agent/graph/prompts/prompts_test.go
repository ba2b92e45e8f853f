package prompts

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoimport-pro/server/internal/agent/model"
)

var testPromptConfig = model.ResponsePromptConfig{BusinessName: "AutoImport Pro", BusinessType: "car import company"}

func TestRenderExtraction(t *testing.T) {
	msgs, err := RenderExtraction(context.Background(), testPromptConfig, "Хочу Camry до 3 млн", model.Slots{Brand: model.String("Toyota")})
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "AutoImport Pro")
	assert.Contains(t, msgs[0].Content, "budget_max")

	assert.Equal(t, schema.User, msgs[1].Role)
	assert.Contains(t, msgs[1].Content, "Хочу Camry до 3 млн")
	assert.Contains(t, msgs[1].Content, `{"brand":"Toyota"}`)
}

func TestRenderResponseSystem(t *testing.T) {
	slots := model.Slots{Brand: model.String("Kia")}
	out, err := RenderResponseSystem(context.Background(), testPromptConfig, ResponseContext{
		Stage:     model.StageQualification,
		Slots:     slots,
		Missing:   slots.Missing(),
		Knowledge: "Delivery from Korea takes 30-45 days.",
	})
	require.NoError(t, err)

	assert.Contains(t, out, "CURRENT STAGE: qualification")
	assert.Contains(t, out, `"brand": "Kia"`)
	assert.Contains(t, out, "MISSING INFORMATION: model, budget_min, budget_max\n")
	assert.Contains(t, out, "Delivery from Korea")
	assert.Contains(t, out, "search_cars")
	assert.Contains(t, out, "get_price_range")
}

func TestRenderResponseSystemAllKnown(t *testing.T) {
	out, err := RenderResponseSystem(context.Background(), testPromptConfig, ResponseContext{Stage: model.StageCompleted})
	require.NoError(t, err)
	assert.Contains(t, out, "MISSING INFORMATION: everything is known")
	assert.Contains(t, out, "KNOWLEDGE BASE:\n-")
}
