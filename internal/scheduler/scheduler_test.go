package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingPass counts passes and blocks each until release is closed.
type blockingPass struct {
	started chan Trigger
	release chan struct{}
	count   atomic.Int32
}

func newBlockingPass() *blockingPass {
	return &blockingPass{
		started: make(chan Trigger, 16),
		release: make(chan struct{}),
	}
}

func (b *blockingPass) run(ctx context.Context, trigger Trigger) {
	b.count.Add(1)
	b.started <- trigger
	<-b.release
}

func TestTriggerNow_DropsWhileRunning(t *testing.T) {
	bp := newBlockingPass()
	s := New(bp.run, nil)

	require.True(t, s.TriggerNow())
	<-bp.started
	assert.Equal(t, Running, s.State())

	assert.False(t, s.TriggerNow())
	assert.False(t, s.fire(TriggerTimer))

	close(bp.release)
	require.NoError(t, s.Stop(context.Background()))

	assert.Equal(t, int32(1), bp.count.Load())
	assert.Equal(t, Idle, s.State())
}

func TestTriggerNow_AcceptedAgainAfterPass(t *testing.T) {
	var count atomic.Int32
	done := make(chan struct{}, 4)
	s := New(func(ctx context.Context, trigger Trigger) {
		count.Add(1)
		done <- struct{}{}
	}, nil)

	require.True(t, s.TriggerNow())
	<-done
	require.Eventually(t, func() bool { return s.State() == Idle }, time.Second, time.Millisecond)

	require.True(t, s.TriggerNow())
	<-done
	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, int32(2), count.Load())
}

func TestConcurrentTriggers_ExactlyOnePass(t *testing.T) {
	bp := newBlockingPass()
	s := New(bp.run, nil)

	var accepted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.TriggerNow() {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), accepted.Load())
	close(bp.release)
	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, int32(1), bp.count.Load())
}

func TestTimer_FiresPasses(t *testing.T) {
	passes := make(chan Trigger, 8)
	s := New(func(ctx context.Context, trigger Trigger) {
		select {
		case passes <- trigger:
		default:
		}
	}, nil)

	require.NoError(t, s.Start(10*time.Millisecond))
	defer s.Stop(context.Background())

	select {
	case trig := <-passes:
		assert.Equal(t, TriggerTimer, trig)
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestTimer_TickDroppedWhileRunning(t *testing.T) {
	bp := newBlockingPass()
	s := New(bp.run, nil)

	require.NoError(t, s.Start(5*time.Millisecond))
	<-bp.started

	// Several ticks elapse while the pass is blocked.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), bp.count.Load())

	close(bp.release)
	require.NoError(t, s.Stop(context.Background()))
}

func TestReschedule_CancelsPreviousTimer(t *testing.T) {
	var count atomic.Int32
	s := New(func(ctx context.Context, trigger Trigger) {
		count.Add(1)
	}, nil)

	require.NoError(t, s.Start(10*time.Millisecond))
	require.NoError(t, s.Reschedule(time.Hour))
	assert.Equal(t, time.Hour, s.Interval())

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), count.Load())

	require.NoError(t, s.Stop(context.Background()))
}

func TestStop_WaitsForInflightPass(t *testing.T) {
	bp := newBlockingPass()
	s := New(bp.run, nil)

	require.True(t, s.TriggerNow())
	<-bp.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Stop(ctx), context.DeadlineExceeded)

	close(bp.release)
	require.NoError(t, s.Stop(context.Background()))

	assert.False(t, s.TriggerNow())
	assert.ErrorIs(t, s.Reschedule(time.Second), ErrStopped)
}

func TestReschedule_RejectsNonPositive(t *testing.T) {
	s := New(func(ctx context.Context, trigger Trigger) {}, nil)
	assert.Error(t, s.Reschedule(0))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "running", Running.String())
}

func TestStart_ReopensAfterStop(t *testing.T) {
	done := make(chan struct{}, 4)
	s := New(func(ctx context.Context, trigger Trigger) {
		done <- struct{}{}
	}, nil)

	require.NoError(t, s.Start(time.Hour))
	require.NoError(t, s.Stop(context.Background()))
	assert.False(t, s.TriggerNow())

	require.NoError(t, s.Start(time.Hour))
	assert.Equal(t, time.Hour, s.Interval())
	require.True(t, s.TriggerNow())
	<-done

	require.NoError(t, s.Stop(context.Background()))
}
