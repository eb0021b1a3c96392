package broadcast

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, ch <-chan int, n int) []int {
	t.Helper()
	got := make([]int, 0, n)
	timeout := time.After(2 * time.Second)
	for len(got) < n {
		select {
		case v, ok := <-ch:
			if !ok {
				return got
			}
			got = append(got, v)
		case <-timeout:
			t.Fatalf("timed out after %d of %d values", len(got), n)
		}
	}
	return got
}

func TestSlowSubscriberMissesNothing(t *testing.T) {
	h := New[int]()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fast := h.Subscribe(ctx)
	slow := h.Subscribe(ctx)

	const n = 1000
	for i := range n {
		h.Publish(i)
	}

	got := collect(t, fast, n)
	require.Len(t, got, n)

	// the slow reader starts only now
	got = collect(t, slow, n)
	require.Len(t, got, n)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestSubscribeCancelRemovesSubscriber(t *testing.T) {
	h := New[int]()
	ctx, cancel := context.WithCancel(context.Background())

	ch := h.Subscribe(ctx)
	assert.Equal(t, 1, h.Subscribers())

	cancel()
	for range ch {
	}
	assert.Eventually(t, func() bool { return h.Subscribers() == 0 }, time.Second, 5*time.Millisecond)

	// publishing after cancel is a no-op for the gone subscriber
	h.Publish(1)
}

func TestCloseFlushesQueued(t *testing.T) {
	h := New[string]()
	ch := h.Subscribe(context.Background())

	h.Publish("a")
	h.Publish("b")
	h.Close()

	var got []string
	for v := range ch {
		got = append(got, v)
	}
	assert.Equal(t, []string{"a", "b"}, got)

	_, ok := <-h.Subscribe(context.Background())
	assert.False(t, ok)
}
