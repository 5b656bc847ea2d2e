package parallel

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/mlsim/pkg/errors"
)

func TestParallelizeCoversEveryItemOnce(t *testing.T) {
	const n = 1013
	hits := make([]int32, n)

	err := Parallelize(context.Background(), n, func(start, end int) error {
		for i := start; i < end; i++ {
			atomic.AddInt32(&hits[i], 1)
		}
		return nil
	})
	require.NoError(t, err)

	for i, h := range hits {
		assert.Equal(t, int32(1), h, "item %d", i)
	}
}

func TestParallelizeZeroItems(t *testing.T) {
	called := false
	err := Parallelize(context.Background(), 0, func(start, end int) error {
		called = true
		return nil
	})
	assert.NoError(t, err)
	assert.False(t, called)
}

func TestParallelizeReturnsError(t *testing.T) {
	boom := errors.New("boom")
	err := Parallelize(context.Background(), 100, func(start, end int) error {
		if start == 0 {
			return boom
		}
		return nil
	})
	assert.True(t, errors.Is(err, boom))
}

func TestParallelizeWithThreshold(t *testing.T) {
	var calls int32
	err := ParallelizeWithThreshold(context.Background(), 10, 100, func(start, end int) error {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, 0, start)
		assert.Equal(t, 10, end)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls)
}

func TestParallelizeWithThresholdCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ParallelizeWithThreshold(ctx, 10, 100, func(start, end int) error {
		t.Fatal("fn must not run on a cancelled context")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
