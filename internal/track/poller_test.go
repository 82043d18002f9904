package track

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestPollerImmediateFetchThenInterval(t *testing.T) {
	var mu sync.Mutex
	var got []*Snapshot
	done := make(chan struct{})

	count := 0
	fetch := func(ctx context.Context) (*Snapshot, error) {
		mu.Lock()
		count++
		n := count
		mu.Unlock()
		return &Snapshot{JobID: "job-1", Status: StatusProcessing, Progress: &Progress{ProcessedUnits: n, TotalUnits: 10}}, nil
	}

	poller := NewPoller(5*time.Millisecond, fetch, func(s *Snapshot) {
		mu.Lock()
		got = append(got, s)
		if len(got) == 3 {
			close(done)
		}
		mu.Unlock()
	}, nil)

	poller.Start()
	defer poller.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not deliver 3 snapshots in time")
	}

	mu.Lock()
	defer mu.Unlock()
	if got[0].Progress.ProcessedUnits != 1 {
		t.Fatalf("first delivery should come from the immediate fetch: %+v", got[0])
	}
}

func TestPollerStopsOnRequestError(t *testing.T) {
	var mu sync.Mutex
	fetches := 0
	errCh := make(chan error, 1)

	poller := NewPoller(5*time.Millisecond,
		func(ctx context.Context) (*Snapshot, error) {
			mu.Lock()
			fetches++
			mu.Unlock()
			return nil, errors.New("boom")
		},
		func(*Snapshot) { t.Error("onSnapshot must not fire on error") },
		func(err error) { errCh <- err },
	)

	poller.Start()

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected an error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("onError was not called")
	}

	// エラー後はポーリングが止まっていること
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if fetches != 1 {
		t.Fatalf("fetches = %d, want exactly 1 after request failure", fetches)
	}
}

func TestPollerStopBeforeFirstTick(t *testing.T) {
	delivered := make(chan struct{}, 1)
	poller := NewPoller(time.Hour,
		func(ctx context.Context) (*Snapshot, error) {
			return &Snapshot{JobID: "job-1", Status: StatusProcessing}, nil
		},
		func(*Snapshot) { delivered <- struct{}{} },
		nil,
	)

	poller.Stop()
	poller.Start()
	// Stop は何度呼んでも安全
	poller.Stop()
	poller.Stop()

	select {
	case <-delivered:
		t.Fatal("stopped poller must not deliver snapshots")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPollerNoFurtherRequestsAfterStop(t *testing.T) {
	var mu sync.Mutex
	fetches := 0
	first := make(chan struct{})

	poller := NewPoller(5*time.Millisecond,
		func(ctx context.Context) (*Snapshot, error) {
			mu.Lock()
			fetches++
			if fetches == 1 {
				close(first)
			}
			mu.Unlock()
			return &Snapshot{JobID: "job-1", Status: StatusProcessing}, nil
		},
		nil, nil,
	)

	poller.Start()
	<-first
	poller.Stop()

	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	n := fetches
	mu.Unlock()
	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if fetches != n {
		t.Fatalf("fetches kept increasing after Stop: %d -> %d", n, fetches)
	}
}
