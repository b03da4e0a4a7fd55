package syncx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletionResolvesOnce(t *testing.T) {
	c := NewCompletion[string]()

	_, ok := c.TryValue()
	assert.False(t, ok)

	assert.True(t, c.Resolve("first"))
	assert.False(t, c.Resolve("second"))

	v, ok := c.TryValue()
	assert.True(t, ok)
	assert.Equal(t, "first", v)
}

func TestCompletionAwait(t *testing.T) {
	c := NewCompletion[int]()
	go func() {
		time.Sleep(10 * time.Millisecond)
		c.Resolve(42)
	}()

	v, err := c.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestCompletionAwaitCancelled(t *testing.T) {
	c := NewCompletion[int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Await(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAwaitAllJoinsErrors(t *testing.T) {
	first := NewCompletion[error]()
	second := NewCompletion[error]()
	first.Resolve(errors.New("loop faulted"))
	second.Resolve(errors.New("app faulted"))

	err := AwaitAll(context.Background(), first, second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loop faulted")
	assert.Contains(t, err.Error(), "app faulted")
}

func TestAwaitAllNilResults(t *testing.T) {
	first := NewCompletion[error]()
	second := NewCompletion[error]()
	first.Resolve(nil)
	second.Resolve(nil)

	assert.NoError(t, AwaitAll(context.Background(), first, second, nil))
}

func TestAwaitAllContextCancelled(t *testing.T) {
	resolved := NewCompletion[error]()
	resolved.Resolve(errors.New("already broken"))
	pending := NewCompletion[error]()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := AwaitAll(ctx, pending, resolved)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "already broken")
}

func TestDrainErrors(t *testing.T) {
	resolved := NewCompletion[error]()
	resolved.Resolve(errors.New("boom"))
	pending := NewCompletion[error]()

	err := DrainErrors(resolved, pending)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	assert.NoError(t, DrainErrors(pending))
}
