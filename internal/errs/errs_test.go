package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapMatchesSentinelByKind(t *testing.T) {
	cause := errors.New("connection refused")
	err := Fetch("get feed", cause)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFetch))
	assert.False(t, errors.Is(err, ErrPublish))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "FetchError: get feed: connection refused", err.Error())
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, Publish("set status", nil))
}

func TestKindOfThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("run: %w", Publish("set status", errors.New("invalid_auth")))
	assert.Equal(t, KindPublish, KindOf(err))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}
