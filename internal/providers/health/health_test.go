package health

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestCacheReportAndGet(t *testing.T) {
	t.Parallel()

	c := NewCache()

	_, ok := c.Get("elevenlabs")
	require.False(t, ok, "unchecked providers must read as unknown")

	c.Report("elevenlabs", nil)
	st, ok := c.Get("elevenlabs")
	require.True(t, ok)
	require.True(t, st.Available)
	require.Empty(t, st.LastError)
	require.False(t, st.LastChecked.IsZero())

	c.Report("elevenlabs", errors.New("401 unauthorized"))
	st, _ = c.Get("elevenlabs")
	require.False(t, st.Available)
	require.Equal(t, "401 unauthorized", st.LastError)
}

func TestCacheSnapshotIsACopy(t *testing.T) {
	t.Parallel()

	c := NewCache()
	c.Report("a", nil)
	c.Report("b", errors.New("down"))

	snap := c.Snapshot()
	require.Len(t, snap, 2)

	delete(snap, "a")
	_, ok := c.Get("a")
	require.True(t, ok)
}

func TestStartProbeRunsImmediatelyAndRepeats(t *testing.T) {
	t.Parallel()

	c := NewCache()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var failing atomic.Bool
	failing.Store(true)
	probes := map[string]Probe{
		"flaky": func(context.Context) error {
			if failing.Load() {
				return errors.New("cold start")
			}
			return nil
		},
	}

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	c.StartProbe(ctx, 10*time.Millisecond, probes, log)

	// first run happens before the first tick and records the failure
	require.Eventually(t, func() bool {
		st, ok := c.Get("flaky")
		return ok && !st.Available
	}, time.Second, time.Millisecond)

	// once the probe recovers, a later tick flips it back to available
	failing.Store(false)
	require.Eventually(t, func() bool {
		st, _ := c.Get("flaky")
		return st.Available
	}, time.Second, time.Millisecond)
}

func TestCacheConcurrentReporters(t *testing.T) {
	t.Parallel()

	c := NewCache()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				c.Report("p", nil)
			} else {
				c.Report("p", errors.New("down"))
			}
			c.Snapshot()
		}(i)
	}
	wg.Wait()

	_, ok := c.Get("p")
	require.True(t, ok)
}
