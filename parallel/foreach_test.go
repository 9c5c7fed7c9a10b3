package parallel

import "sync/atomic"
import "testing"

func TestForEachVisitsEveryIndexOnce(t *testing.T) {
	for _, limit := range []int{-1, 0, 1, 3, 64} {
		var seen [100]atomic.Int32
		ForEach(len(seen), limit, func(i int) {
			seen[i].Add(1)
		})
		for i := range seen {
			if seen[i].Load() != 1 {
				t.Errorf("limit %d: index %d visited %d times", limit, i, seen[i].Load())
			}
		}
	}
}

func TestForEachRespectsLimit(t *testing.T) {
	const limit = 4
	var running, peak atomic.Int32
	ForEach(200, limit, func(i int) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		running.Add(-1)
	})
	if peak.Load() > limit {
		t.Errorf("peak concurrency %d above limit %d", peak.Load(), limit)
	}
}

func TestThreads(t *testing.T) {
	defer SetThreads(0)
	SetThreads(3)
	if Threads() != 3 {
		t.Errorf("Threads() = %d, want 3", Threads())
	}
	SetThreads(-5)
	if Threads() < 1 {
		t.Errorf("Threads() = %d, want at least 1", Threads())
	}
}
