package batch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunProcessesAllItems(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	var seen []int

	processed, failed, err := Run(context.Background(), Config{BatchSize: 2, Pause: time.Millisecond}, items, func(ctx context.Context, item int) error {
		seen = append(seen, item)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 5, processed)
	assert.Equal(t, 0, failed)
	assert.Equal(t, items, seen)
}

func TestRunCountsItemFailures(t *testing.T) {
	items := []int{1, 2, 3}

	processed, failed, err := Run(context.Background(), Config{BatchSize: 10, Pause: time.Millisecond}, items, func(ctx context.Context, item int) error {
		if item == 2 {
			return errors.New("boom")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, processed)
	assert.Equal(t, 1, failed)
}

func TestRunPausesBetweenBatches(t *testing.T) {
	items := []int{1, 2, 3, 4}
	pause := 20 * time.Millisecond

	startedAt := time.Now()
	_, _, err := Run(context.Background(), Config{BatchSize: 2, Pause: pause}, items, func(ctx context.Context, item int) error {
		return nil
	})
	require.NoError(t, err)

	// Two batches means one pause.
	assert.GreaterOrEqual(t, time.Since(startedAt), pause)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	items := []int{1, 2, 3, 4}

	processed, _, err := Run(ctx, Config{BatchSize: 1, Pause: time.Hour}, items, func(ctx context.Context, item int) error {
		cancel()
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, processed)
}

func TestRunEmptyInput(t *testing.T) {
	processed, failed, err := Run(context.Background(), Config{}, nil, func(ctx context.Context, item struct{}) error {
		t.Fatal("should not be called")
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, processed)
	assert.Zero(t, failed)
}
