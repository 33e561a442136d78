package identity

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChannel records requests and optionally answers through deliver.
type fakeChannel struct {
	mu       sync.Mutex
	requests int
	err      error
	deliver  func()
}

func (f *fakeChannel) RequestInstanceName(ctx context.Context) error {
	f.mu.Lock()
	f.requests++
	f.mu.Unlock()
	if f.deliver != nil {
		f.deliver()
	}
	return f.err
}

func (f *fakeChannel) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

func TestResolve_FallbackOrder(t *testing.T) {
	assert.Equal(t, DefaultName, New("", nil).Resolve())
	assert.Equal(t, DefaultName, New("   ", nil).Resolve())
	assert.Equal(t, "lobby-1", New("lobby-1", nil).Resolve())
}

func TestLearn_PrefersLearnedNameAndKeepsFirst(t *testing.T) {
	id := New("lobby-1", nil)

	_, ok := id.Learned()
	assert.False(t, ok)

	assert.False(t, id.Learn(""))
	assert.True(t, id.Learn("survival-3"))
	assert.False(t, id.Learn("creative-9"))

	assert.Equal(t, "survival-3", id.Resolve())
	name, ok := id.Learned()
	assert.True(t, ok)
	assert.Equal(t, "survival-3", name)
}

func TestLearn_Concurrent(t *testing.T) {
	id := New("lobby-1", nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		wg.Add(1)
		go func(n string) {
			defer wg.Done()
			if id.Learn(n) {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}(name)
	}
	wg.Wait()
	assert.Equal(t, 1, accepted)
}

func TestRequestAsync_DeliversAfterDelay(t *testing.T) {
	id := New("lobby-1", nil)
	ch := &fakeChannel{}
	ch.deliver = func() { id.Learn("survival-3") }

	id.RequestAsync(context.Background(), ch, 10*time.Millisecond)

	// Resolution never blocks while the request is pending.
	assert.Equal(t, "lobby-1", id.Resolve())

	require.Eventually(t, func() bool { return id.Resolve() == "survival-3" }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, ch.count())
}

func TestRequestAsync_FailureKeepsFallback(t *testing.T) {
	id := New("lobby-1", nil)
	ch := &fakeChannel{err: errors.New("no players online")}

	id.RequestAsync(context.Background(), ch, time.Millisecond)
	require.Eventually(t, func() bool { return ch.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "lobby-1", id.Resolve())
}

func TestRequestAsync_CanceledBeforeDelay(t *testing.T) {
	id := New("lobby-1", nil)
	ch := &fakeChannel{}

	ctx, cancel := context.WithCancel(context.Background())
	id.RequestAsync(ctx, ch, time.Hour)
	cancel()

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, ch.count())

	id.RequestAsync(context.Background(), nil, 0)
}

func TestRequestAsync_AsksAtMostOnce(t *testing.T) {
	id := New("lobby-1", nil)
	ch := &fakeChannel{err: errors.New("no players online")}

	assert.True(t, id.RequestAsync(context.Background(), ch, time.Millisecond))
	require.Eventually(t, func() bool { return ch.count() == 1 }, time.Second, 5*time.Millisecond)

	assert.False(t, id.RequestAsync(context.Background(), ch, time.Millisecond))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, ch.count())
}

func TestRequestAsync_SkippedOnceLearned(t *testing.T) {
	id := New("lobby-1", nil)
	require.True(t, id.Learn("survival-3"))

	ch := &fakeChannel{}
	assert.False(t, id.RequestAsync(context.Background(), ch, 0))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, ch.count())
}

func TestRequestAsync_RetryAfterCancel(t *testing.T) {
	id := New("lobby-1", nil)
	ch := &fakeChannel{}

	ctx, cancel := context.WithCancel(context.Background())
	require.True(t, id.RequestAsync(ctx, ch, time.Hour))
	cancel()
	time.Sleep(20 * time.Millisecond)

	require.True(t, id.RequestAsync(context.Background(), ch, time.Millisecond))
	require.Eventually(t, func() bool { return ch.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestSetFallback(t *testing.T) {
	id := New("lobby-1", nil)

	id.SetFallback("lobby-2")
	assert.Equal(t, "lobby-2", id.Resolve())

	id.SetFallback("  ")
	assert.Equal(t, DefaultName, id.Resolve())

	require.True(t, id.Learn("survival-3"))
	id.SetFallback("lobby-4")
	assert.Equal(t, "survival-3", id.Resolve())
}

func TestHostnameChannel(t *testing.T) {
	host, err := os.Hostname()
	require.NoError(t, err)

	id := New("lobby-1", nil)
	require.NoError(t, HostnameChannel{Deliver: id.Learn}.RequestInstanceName(context.Background()))
	assert.Equal(t, host, id.Resolve())
}
