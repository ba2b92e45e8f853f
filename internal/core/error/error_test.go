package errx

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFillsTaxonomy(t *testing.T) {
	cases := []struct {
		kind        Kind
		recoverable bool
	}{
		{KindRateLimited, true},
		{KindConnection, true},
		{KindTimeout, true},
		{KindAuthentication, false},
		{KindUpstream, true},
		{KindUnknown, true},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			e := New(tc.kind, errors.New("boom"))
			assert.Equal(t, tc.kind, e.Kind)
			assert.Equal(t, tc.recoverable, e.Recoverable)
			assert.NotEmpty(t, e.UserMessage)
			assert.Contains(t, e.Error(), "boom")
		})
	}
}

func TestNewUnknownKindFallsBack(t *testing.T) {
	e := New(Kind("nope"), nil)
	assert.Equal(t, KindUnknown, e.Kind)
	assert.Equal(t, "unexpected error", e.Error())
	assert.Equal(t, SystemErrorMessage, e.UserMessage)
}

func TestHelpersSeeThroughWrapping(t *testing.T) {
	base := New(KindAuthentication, errors.New("bad key"))
	wrapped := fmt.Errorf("generate: %w", base)

	assert.Equal(t, KindAuthentication, KindOf(wrapped))
	assert.False(t, IsRecoverable(wrapped))
	assert.Equal(t, base.UserMessage, UserMessage(wrapped))

	plain := errors.New("plain")
	assert.Equal(t, KindUnknown, KindOf(plain))
	assert.True(t, IsRecoverable(plain))
	assert.Equal(t, SystemErrorMessage, UserMessage(plain))
}

func TestWrapStores(t *testing.T) {
	require.NoError(t, WrapRedis(nil))
	require.NoError(t, WrapDB(nil))

	cause := errors.New("conn reset")
	err := WrapRedis(cause)
	assert.Equal(t, KindPersistence, KindOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), RedisErrorMessage)

	err = WrapDB(cause)
	assert.Contains(t, err.Error(), DBErrorMessage)
}

func TestFallback(t *testing.T) {
	assert.Equal(t, Fallback(FallbackGeneral), Fallback("missing"))
	assert.NotEqual(t, Fallback(FallbackGeneral), Fallback(FallbackRateLimit))
}
