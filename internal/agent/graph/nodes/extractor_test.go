package nodes

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoimport-pro/server/internal/agent/model"
	"github.com/autoimport-pro/server/internal/agent/oracletest"
	"github.com/autoimport-pro/server/internal/agent/resilience"
	errx "github.com/autoimport-pro/server/internal/core/error"
)

func testRetrier() *resilience.Retrier {
	return &resilience.Retrier{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func newExtractor(gen model.Generator) *SlotExtractor {
	return &SlotExtractor{
		Generator:   gen,
		ModelName:   "gemini-2.5-flash-lite",
		Retrier:     testRetrier(),
		Prompt:      model.ResponsePromptConfig{BusinessName: "AutoImport Pro", BusinessType: "car import company"},
		PhoneRegion: "RU",
	}
}

func userTurn(text string) []model.Message {
	return []model.Message{{Role: model.RoleUser, Content: text}}
}

func TestExtractMergesSlots(t *testing.T) {
	gen := oracletest.New(oracletest.WithUsage("```json\n{\"brand\": \"Toyota\", \"budget_max\": \"2.5 млн\", \"phone\": null}\n```", 100, 20))
	cs := &model.ConversationState{
		SessionID:     "s1",
		Messages:      userTurn("Хочу Тойоту до 2.5 млн"),
		ExtractedData: model.Slots{CustomerName: model.String("Ivan")},
	}

	newExtractor(gen).Extract(context.Background(), cs)

	require.NotNil(t, cs.ExtractedData.Brand)
	assert.Equal(t, "Toyota", *cs.ExtractedData.Brand)
	require.NotNil(t, cs.ExtractedData.BudgetMax)
	assert.Equal(t, int64(2_500_000), *cs.ExtractedData.BudgetMax)
	assert.Equal(t, "Ivan", *cs.ExtractedData.CustomerName)
	assert.NotContains(t, cs.MissingSlots, model.SlotBrand)
	assert.Contains(t, cs.MissingSlots, model.SlotPhone)
	assert.Empty(t, cs.Error)
	assert.Greater(t, cs.CostUSD, 0.0)
	assert.Len(t, gen.Requests(), 1)
}

func TestExtractNullsNeverClearKnownSlots(t *testing.T) {
	gen := oracletest.New(
		oracletest.Text(`{"brand": "BMW"}`),
		oracletest.Text(`{"brand": null, "model": "unknown"}`),
	)
	ex := newExtractor(gen)
	cs := &model.ConversationState{SessionID: "s1", Messages: userTurn("BMW please")}

	ex.Extract(context.Background(), cs)
	first := cs.ExtractedData.Map()

	cs.Messages = append(cs.Messages, model.Message{Role: model.RoleUser, Content: "hmm"})
	ex.Extract(context.Background(), cs)
	assert.Equal(t, first, cs.ExtractedData.Map())
}

func TestExtractMalformedReplyIsNotAnError(t *testing.T) {
	gen := oracletest.New(oracletest.Text("I could not find anything"))
	cs := &model.ConversationState{
		SessionID:     "s1",
		Messages:      userTurn("hello"),
		ExtractedData: model.Slots{Brand: model.String("Kia")},
	}

	newExtractor(gen).Extract(context.Background(), cs)

	assert.Empty(t, cs.Error)
	assert.Equal(t, "Kia", *cs.ExtractedData.Brand)
	assert.Len(t, cs.MissingSlots, len(model.SlotNames)-1)
}

func TestExtractOracleFailureSetsError(t *testing.T) {
	gen := oracletest.New(
		oracletest.Fail(resilience.ErrTimeout),
		oracletest.Fail(resilience.ErrTimeout),
		oracletest.Fail(resilience.ErrTimeout),
	)
	cs := &model.ConversationState{
		SessionID:     "s1",
		Messages:      userTurn("hello"),
		ExtractedData: model.Slots{Brand: model.String("Kia")},
	}

	newExtractor(gen).Extract(context.Background(), cs)

	assert.Equal(t, string(errx.KindTimeout), cs.ErrorKind)
	assert.Equal(t, errx.UserMessage(errx.New(errx.KindTimeout, nil)), cs.Error)
	assert.True(t, cs.Recoverable)
	assert.Len(t, gen.Requests(), 3)
	assert.Equal(t, "Kia", *cs.ExtractedData.Brand)
	assert.NotEmpty(t, cs.MissingSlots)
}

func TestExtractAuthFailureIsNotRetried(t *testing.T) {
	gen := oracletest.New(oracletest.Fail(resilience.ErrAuth))
	cs := &model.ConversationState{SessionID: "s1", Messages: userTurn("hello")}

	newExtractor(gen).Extract(context.Background(), cs)

	assert.Equal(t, string(errx.KindAuthentication), cs.ErrorKind)
	assert.False(t, cs.Recoverable)
	assert.Len(t, gen.Requests(), 1)
}
