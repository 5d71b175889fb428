package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var processed atomic.Int32
	done := make(chan struct{})

	q := NewQueue("test", func(ctx context.Context, job Job) error {
		if processed.Add(1) == 2 {
			close(done)
		}
		return nil
	}, QueueConfig{Workers: 2})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "j1", Type: "noop"}))
	require.NoError(t, q.Enqueue(Job{ID: "j2", Type: "noop"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("jobs were not processed in time")
	}
	assert.Equal(t, int32(2), processed.Load())
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})

	err := q.Enqueue(Job{ID: "j1"})
	require.Error(t, err)
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var attempts atomic.Int32
	done := make(chan struct{})

	q := NewQueue("test", func(ctx context.Context, job Job) error {
		if attempts.Add(1) < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}, QueueConfig{Workers: 1, MaxRetries: 5, RetryDelay: 10 * time.Millisecond})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "j1", Type: "flaky"}))

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("job was not retried to success in time")
	}
	assert.Equal(t, int32(3), attempts.Load())
}
