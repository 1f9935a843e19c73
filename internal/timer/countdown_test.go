package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testInterval = 2 * time.Millisecond

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	require.Fail(t, "condition not met within timeout")
}

func TestCountdownExpiresExactlyOnce(t *testing.T) {
	c := New(testInterval)

	var expiries int32
	c.OnExpire(func() { atomic.AddInt32(&expiries, 1) })

	c.Start(5)

	waitFor(t, time.Second, func() bool { return c.Expired() })
	// Give any stray extra fire a chance to show up.
	time.Sleep(10 * testInterval)

	assert.Equal(t, int32(1), atomic.LoadInt32(&expiries))
	assert.Equal(t, 0, c.Remaining())
	assert.Equal(t, 5, c.Elapsed())
}

func TestCountdownTickCallback(t *testing.T) {
	c := New(testInterval)

	var last int32 = -1
	c.OnTick(func(remaining int) { atomic.StoreInt32(&last, int32(remaining)) })

	c.Start(3)
	waitFor(t, time.Second, func() bool { return c.Expired() })

	assert.Equal(t, int32(0), atomic.LoadInt32(&last))
}

func TestCountdownStopPreventsFurtherTicks(t *testing.T) {
	c := New(testInterval)

	var ticks, expiries int32
	c.OnTick(func(int) { atomic.AddInt32(&ticks, 1) })
	c.OnExpire(func() { atomic.AddInt32(&expiries, 1) })

	c.Start(1000)
	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&ticks) >= 3 })

	c.Stop()
	seen := atomic.LoadInt32(&ticks)
	time.Sleep(20 * testInterval)

	// At most one in-flight tick may land after Stop; never a stream of them.
	assert.LessOrEqual(t, atomic.LoadInt32(&ticks), seen+1)
	assert.Equal(t, int32(0), atomic.LoadInt32(&expiries))
	assert.False(t, c.Expired())
}

func TestCountdownPauseResume(t *testing.T) {
	c := New(testInterval)
	c.Start(1000)

	waitFor(t, time.Second, func() bool { return c.Elapsed() >= 2 })
	c.Pause()
	frozen := c.Remaining()
	time.Sleep(20 * testInterval)
	assert.Equal(t, frozen, c.Remaining())

	c.Resume()
	waitFor(t, time.Second, func() bool { return c.Remaining() < frozen })
	c.Stop()
}

func TestCountdownRemainingNeverNegative(t *testing.T) {
	c := New(testInterval)
	c.Start(1)
	waitFor(t, time.Second, func() bool { return c.Expired() })
	time.Sleep(10 * testInterval)
	assert.Equal(t, 0, c.Remaining())
}

func TestCountdownStopBeforeStart(t *testing.T) {
	c := New(testInterval)
	c.Stop()
	c.Start(5)
	time.Sleep(10 * testInterval)
	assert.Equal(t, 0, c.Elapsed())
}
