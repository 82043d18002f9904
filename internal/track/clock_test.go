package track

import (
	"sync"
	"testing"
	"time"
)

func TestElapsedClockCountsMonotonically(t *testing.T) {
	var mu sync.Mutex
	var ticks []int
	done := make(chan struct{})

	clock := NewElapsedClock(5*time.Millisecond, func(elapsed int) {
		mu.Lock()
		ticks = append(ticks, elapsed)
		if len(ticks) == 4 {
			close(done)
		}
		mu.Unlock()
	})
	clock.Start()
	defer clock.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("clock did not tick 4 times in time")
	}

	mu.Lock()
	defer mu.Unlock()
	for i := 0; i < 4; i++ {
		if ticks[i] != i+1 {
			t.Fatalf("ticks = %v, want 1,2,3,4", ticks)
		}
	}
}

func TestElapsedClockStopIsIdempotent(t *testing.T) {
	var mu sync.Mutex
	count := 0
	clock := NewElapsedClock(5*time.Millisecond, func(int) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	clock.Start()
	time.Sleep(20 * time.Millisecond)
	clock.Stop()
	clock.Stop()

	mu.Lock()
	n := count
	mu.Unlock()
	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if count != n {
		t.Fatalf("clock kept ticking after Stop: %d -> %d", n, count)
	}
}
