package conversations

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoimport-pro/server/internal/agent/model"
)

type stubHistory struct {
	msgs  []model.Message
	err   error
	limit int
}

func (s *stubHistory) LoadHistory(_ context.Context, _ string, limit int) ([]model.Message, error) {
	s.limit = limit
	return s.msgs, s.err
}

func config(maxTurns int) model.ConversationConfig {
	var cfg model.ConversationConfig
	cfg.History.MaxTurns = maxTurns
	return cfg
}

func TestBuildResponseContextTrimsAndConverts(t *testing.T) {
	mm := NewMessagesManager(nil, config(2))
	msgs := []model.Message{
		{Role: model.RoleUser, Content: "old"},
		{Role: model.RoleAssistant, Content: "answer"},
		{Role: model.RoleUser, Content: "new"},
	}

	out := mm.BuildResponseContext("system", msgs)
	require.Len(t, out, 3)
	assert.Equal(t, schema.System, out[0].Role)
	assert.Equal(t, schema.Assistant, out[1].Role)
	assert.Equal(t, "answer", out[1].Content)
	assert.Equal(t, schema.User, out[2].Role)
	assert.Equal(t, "new", out[2].Content)
}

func TestToSchemaSkipsBlank(t *testing.T) {
	out := ToSchema([]model.Message{
		{Role: model.RoleUser, Content: "  "},
		{Role: model.RoleUser, Content: "hi"},
	})
	require.Len(t, out, 1)
	assert.Equal(t, "hi", out[0].Content)
}

func TestLoadHistory(t *testing.T) {
	ctx := context.Background()

	none, err := NewMessagesManager(nil, config(4)).LoadHistory(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, none)

	h := &stubHistory{msgs: []model.Message{{Role: model.RoleUser, Content: "a"}}}
	mm := NewMessagesManager(h, config(0))
	got, err := mm.LoadHistory(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, DefaultMaxTurns, h.limit)

	h.err = errors.New("down")
	_, err = mm.LoadHistory(ctx, "s1")
	assert.Error(t, err)
}
