package observers

import (
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
)

func TestNewAllCallbacks(t *testing.T) {
	assert.NotNil(t, NewAllCallbacks())
}

func TestLastUserContent(t *testing.T) {
	msgs := []*schema.Message{
		schema.SystemMessage("sys"),
		schema.UserMessage(" first "),
		nil,
		schema.AssistantMessage("reply", nil),
		schema.UserMessage(" second "),
		schema.AssistantMessage("again", nil),
	}
	assert.Equal(t, "second", lastUserContent(msgs))
	assert.Empty(t, lastUserContent(nil))
}
