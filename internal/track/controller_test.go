package track

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// clientFuncs は StatusClient のテスト用実装です。
type clientFuncs struct {
	fetchStatus func(ctx context.Context, jobID string) (*Snapshot, error)
	fetchResult func(ctx context.Context, jobID string) (json.RawMessage, error)
	cancelJob   func(ctx context.Context, jobID string) error
}

func (c *clientFuncs) FetchStatus(ctx context.Context, jobID string) (*Snapshot, error) {
	if c.fetchStatus == nil {
		return &Snapshot{JobID: jobID, Status: StatusProcessing}, nil
	}
	return c.fetchStatus(ctx, jobID)
}

func (c *clientFuncs) FetchResult(ctx context.Context, jobID string) (json.RawMessage, error) {
	if c.fetchResult == nil {
		return json.RawMessage(`{}`), nil
	}
	return c.fetchResult(ctx, jobID)
}

func (c *clientFuncs) CancelJob(ctx context.Context, jobID string) error {
	if c.cancelJob == nil {
		return nil
	}
	return c.cancelJob(ctx, jobID)
}

// sequenceClient は FetchStatus の応答列を順に返し、以後は最後の応答を繰り返します。
func sequenceClient(snapshots ...*Snapshot) (*clientFuncs, *int32) {
	var calls int32
	return &clientFuncs{
		fetchStatus: func(ctx context.Context, jobID string) (*Snapshot, error) {
			n := atomic.AddInt32(&calls, 1)
			idx := int(n) - 1
			if idx >= len(snapshots) {
				idx = len(snapshots) - 1
			}
			return snapshots[idx], nil
		},
	}, &calls
}

func testOptions() []Option {
	return []Option{
		WithPollInterval(5 * time.Millisecond),
		WithClockInterval(2 * time.Millisecond),
	}
}

func TestControllerStartRequiresJobID(t *testing.T) {
	c := NewController(GenerationFamily, &clientFuncs{}, Callbacks{}, testOptions()...)
	if err := c.Start(""); !errors.Is(err, ErrEmptyJobID) {
		t.Fatalf("err = %v, want ErrEmptyJobID", err)
	}
	if err := c.Start("   "); !errors.Is(err, ErrEmptyJobID) {
		t.Fatalf("err = %v, want ErrEmptyJobID", err)
	}
}

func TestControllerGenerationCompletes(t *testing.T) {
	client, calls := sequenceClient(
		&Snapshot{JobID: "job-1", Status: StatusProcessing, Progress: &Progress{ProcessedUnits: 2, TotalUnits: 10}},
		&Snapshot{JobID: "job-1", Status: StatusCompleted, ResultID: "quiz-9"},
	)
	client.fetchResult = func(ctx context.Context, jobID string) (json.RawMessage, error) {
		return json.RawMessage(`{"id":"quiz-9"}`), nil
	}

	var completed, failed, cancelled int32
	completedID := make(chan string, 1)
	resultCh := make(chan []byte, 1)

	c := NewController(GenerationFamily, client, Callbacks{
		OnCompleted: func(resultID string) {
			atomic.AddInt32(&completed, 1)
			completedID <- resultID
		},
		OnFailed:    func(string) { atomic.AddInt32(&failed, 1) },
		OnCancelled: func() { atomic.AddInt32(&cancelled, 1) },
		OnResult:    func(result []byte) { resultCh <- result },
	}, testOptions()...)

	var mu sync.Mutex
	var percentages []int
	c.Subscribe(func(s DerivedState) {
		mu.Lock()
		percentages = append(percentages, s.Percentage)
		mu.Unlock()
	})

	if err := c.Start("job-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case id := <-completedID:
		if id != "quiz-9" {
			t.Fatalf("resultID = %q, want quiz-9", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnCompleted was not called")
	}

	select {
	case result := <-resultCh:
		if string(result) != `{"id":"quiz-9"}` {
			t.Fatalf("unexpected result payload: %s", result)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnResult was not called")
	}

	// 終端後はポーリングが止まり、経過時間も凍結される
	n := atomic.LoadInt32(calls)
	frozen := c.State().ElapsedSeconds
	time.Sleep(40 * time.Millisecond)
	if got := atomic.LoadInt32(calls); got != n {
		t.Fatalf("poller kept polling after terminal: %d -> %d", n, got)
	}
	if got := c.State().ElapsedSeconds; got != frozen {
		t.Fatalf("elapsed advanced after terminal: %d -> %d", frozen, got)
	}

	if atomic.LoadInt32(&completed) != 1 || atomic.LoadInt32(&failed) != 0 || atomic.LoadInt32(&cancelled) != 0 {
		t.Fatalf("callback counts = %d/%d/%d, want 1/0/0", completed, failed, cancelled)
	}

	mu.Lock()
	defer mu.Unlock()
	saw20 := false
	for i, p := range percentages {
		if p == 20 {
			saw20 = true
		}
		if i > 0 && p < percentages[i-1] {
			t.Fatalf("percentage regressed: %v", percentages)
		}
	}
	if !saw20 {
		t.Fatalf("never observed 20%%: %v", percentages)
	}
	if last := percentages[len(percentages)-1]; last != 100 {
		t.Fatalf("final percentage = %d, want 100", last)
	}
}

func TestControllerDocumentLifecycle(t *testing.T) {
	client, _ := sequenceClient(
		&Snapshot{JobID: "doc-1", Status: StatusUploaded},
		&Snapshot{JobID: "doc-1", Status: StatusProcessing, Progress: &Progress{ProcessedUnits: 3, TotalUnits: 6}},
		&Snapshot{JobID: "doc-1", Status: StatusProcessed},
	)
	client.fetchResult = func(ctx context.Context, jobID string) (json.RawMessage, error) {
		t.Error("document family must not fetch a result artifact")
		return nil, nil
	}

	completedID := make(chan string, 1)
	c := NewController(DocumentFamily, client, Callbacks{
		OnCompleted: func(resultID string) { completedID <- resultID },
	}, testOptions()...)

	if err := c.Cancel(); !errors.Is(err, ErrCancelNotSupported) {
		t.Fatalf("Cancel err = %v, want ErrCancelNotSupported", err)
	}

	if err := c.Start("doc-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case id := <-completedID:
		if id != "" {
			t.Fatalf("document completion should carry no resultID, got %q", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnCompleted was not called")
	}

	// 成果物取得が走らないことを確認するための猶予
	time.Sleep(30 * time.Millisecond)
}

func TestControllerTransportFailureAndRetry(t *testing.T) {
	var calls int32
	var failAll int32 = 1
	client := &clientFuncs{
		fetchStatus: func(ctx context.Context, jobID string) (*Snapshot, error) {
			atomic.AddInt32(&calls, 1)
			if atomic.LoadInt32(&failAll) == 1 {
				return nil, errors.New("connection refused")
			}
			return &Snapshot{JobID: jobID, Status: StatusProcessing}, nil
		},
	}

	var failed int32
	failedMsg := make(chan string, 1)
	c := NewController(GenerationFamily, client, Callbacks{
		OnFailed: func(message string) {
			atomic.AddInt32(&failed, 1)
			failedMsg <- message
		},
	}, testOptions()...)

	if err := c.Start("job-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case msg := <-failedMsg:
		if msg != transportFailureMessage {
			t.Fatalf("message = %q, want generic transport message", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnFailed was not called")
	}

	// 失敗後はリクエストが出ない
	n := atomic.LoadInt32(&calls)
	time.Sleep(30 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got != n {
		t.Fatalf("polling continued after transport failure: %d -> %d", n, got)
	}
	if n != 1 {
		t.Fatalf("calls = %d, want exactly 1", n)
	}

	// Retry は追跡を最初からやり直し、経過時間も0に戻る
	atomic.StoreInt32(&failAll, 0)
	if err := c.Retry(); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	state := c.State()
	if state.IsTerminal {
		t.Fatalf("state still terminal after retry: %+v", state)
	}
	if state.ElapsedSeconds != 0 {
		t.Fatalf("elapsed = %d, want reset to 0", state.ElapsedSeconds)
	}

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&calls) < 2 {
		select {
		case <-deadline:
			t.Fatal("retry did not resume polling")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestControllerRetryUnavailableAfterBackendFailure(t *testing.T) {
	client, _ := sequenceClient(
		&Snapshot{JobID: "job-1", Status: StatusFailed, ErrorDetail: "model error"},
	)

	failedMsg := make(chan string, 1)
	c := NewController(GenerationFamily, client, Callbacks{
		OnFailed: func(message string) { failedMsg <- message },
	}, testOptions()...)

	if err := c.Start("job-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case msg := <-failedMsg:
		if msg != "model error" {
			t.Fatalf("message = %q, want backend-reported detail", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnFailed was not called")
	}

	if err := c.Retry(); !errors.Is(err, ErrRetryNotAvailable) {
		t.Fatalf("Retry err = %v, want ErrRetryNotAvailable", err)
	}
}

func TestControllerCancelWinsOverPendingCompletion(t *testing.T) {
	release := make(chan struct{})
	firstDelivered := make(chan struct{})
	var fetches int32
	client := &clientFuncs{
		fetchStatus: func(ctx context.Context, jobID string) (*Snapshot, error) {
			if atomic.AddInt32(&fetches, 1) == 1 {
				return &Snapshot{JobID: jobID, Status: StatusProcessing}, nil
			}
			// 2回目の応答はキャンセル操作が済むまで保留する
			select {
			case <-release:
			case <-ctx.Done():
			}
			return &Snapshot{JobID: jobID, Status: StatusCompleted, ResultID: "quiz-9"}, nil
		},
	}

	var completed, cancelled int32
	cancelledCh := make(chan struct{}, 1)
	cancelRequested := make(chan string, 1)
	client.cancelJob = func(ctx context.Context, jobID string) error {
		cancelRequested <- jobID
		return nil
	}

	c := NewController(GenerationFamily, client, Callbacks{
		OnCompleted: func(string) { atomic.AddInt32(&completed, 1) },
		OnCancelled: func() {
			atomic.AddInt32(&cancelled, 1)
			cancelledCh <- struct{}{}
		},
	}, testOptions()...)

	unsubscribe := c.Subscribe(func(s DerivedState) {
		if s.LastSnapshot != nil && atomic.LoadInt32(&fetches) >= 1 {
			select {
			case firstDelivered <- struct{}{}:
			default:
			}
		}
	})
	defer unsubscribe()

	if err := c.Start("job-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-firstDelivered

	// 2回目のポーリングが飛行中の状態でキャンセルする
	time.Sleep(10 * time.Millisecond)
	if err := c.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	close(release)

	select {
	case <-cancelledCh:
	case <-time.After(2 * time.Second):
		t.Fatal("OnCancelled was not called")
	}

	select {
	case jobID := <-cancelRequested:
		if jobID != "job-1" {
			t.Fatalf("cancel requested for %q", jobID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("backend cancel request was not sent")
	}

	// 遅れて届いた完了スナップショットが状態を覆さないこと
	time.Sleep(30 * time.Millisecond)
	state := c.State()
	if state.Outcome != OutcomeCancelled {
		t.Fatalf("outcome = %v, want cancelled", state.Outcome)
	}
	if atomic.LoadInt32(&completed) != 0 {
		t.Fatal("OnCompleted fired despite cancellation")
	}
	if atomic.LoadInt32(&cancelled) != 1 {
		t.Fatalf("OnCancelled fired %d times", cancelled)
	}
}

func TestControllerCancelIgnoresBackendFailure(t *testing.T) {
	client, _ := sequenceClient(&Snapshot{JobID: "job-1", Status: StatusProcessing})
	cancelTried := make(chan struct{}, 1)
	client.cancelJob = func(ctx context.Context, jobID string) error {
		cancelTried <- struct{}{}
		return errors.New("cancel endpoint down")
	}

	cancelledCh := make(chan struct{}, 1)
	c := NewController(GenerationFamily, client, Callbacks{
		OnCancelled: func() { cancelledCh <- struct{}{} },
	}, testOptions()...)

	if err := c.Start("job-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := c.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	select {
	case <-cancelledCh:
	case <-time.After(2 * time.Second):
		t.Fatal("OnCancelled was not called")
	}
	select {
	case <-cancelTried:
	case <-time.After(2 * time.Second):
		t.Fatal("backend cancel was not attempted")
	}

	// ベストエフォート失敗でもローカル状態は CANCELLED のまま
	if got := c.State().Outcome; got != OutcomeCancelled {
		t.Fatalf("outcome = %v, want cancelled", got)
	}

	// 既に終端なので二度目の Cancel はエラー
	if err := c.Cancel(); !errors.Is(err, ErrNotTracking) {
		t.Fatalf("second Cancel err = %v, want ErrNotTracking", err)
	}
}

func TestControllerMissingResultID(t *testing.T) {
	client, _ := sequenceClient(&Snapshot{JobID: "job-1", Status: StatusCompleted})

	completedCh := make(chan string, 1)
	resultErrCh := make(chan error, 1)
	c := NewController(GenerationFamily, client, Callbacks{
		OnCompleted:   func(resultID string) { completedCh <- resultID },
		OnResultError: func(err error) { resultErrCh <- err },
	}, testOptions()...)

	if err := c.Start("job-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// ジョブ自体は完了扱いのまま、成果物取得だけがエラーになる
	select {
	case <-completedCh:
	case <-time.After(2 * time.Second):
		t.Fatal("OnCompleted was not called")
	}
	select {
	case err := <-resultErrCh:
		if !errors.Is(err, ErrMissingResultID) {
			t.Fatalf("err = %v, want ErrMissingResultID", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnResultError was not called")
	}
	if got := c.State().Outcome; got != OutcomeSuccess {
		t.Fatalf("outcome = %v, want success despite result fetch failure", got)
	}
}

func TestControllerResultFetchFailureKeepsCompleted(t *testing.T) {
	client, _ := sequenceClient(&Snapshot{JobID: "job-1", Status: StatusCompleted, ResultID: "quiz-9"})
	client.fetchResult = func(ctx context.Context, jobID string) (json.RawMessage, error) {
		return nil, errors.New("result endpoint down")
	}

	resultErrCh := make(chan error, 1)
	c := NewController(GenerationFamily, client, Callbacks{
		OnResultError: func(err error) { resultErrCh <- err },
	}, testOptions()...)

	if err := c.Start("job-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case err := <-resultErrCh:
		if err == nil {
			t.Fatal("expected result fetch error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnResultError was not called")
	}
	if got := c.State().Outcome; got != OutcomeSuccess {
		t.Fatalf("outcome = %v, want success", got)
	}
}

func TestControllerElapsedMonotonic(t *testing.T) {
	client, _ := sequenceClient(&Snapshot{JobID: "job-1", Status: StatusProcessing})

	var mu sync.Mutex
	var elapsed []int
	c := NewController(GenerationFamily, client, Callbacks{}, testOptions()...)
	c.Subscribe(func(s DerivedState) {
		mu.Lock()
		elapsed = append(elapsed, s.ElapsedSeconds)
		mu.Unlock()
	})

	if err := c.Start("job-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if err := c.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(elapsed) < 2 {
		t.Fatalf("too few observations: %v", elapsed)
	}
	for i := 1; i < len(elapsed); i++ {
		if elapsed[i] < elapsed[i-1] {
			t.Fatalf("elapsed regressed: %v", elapsed)
		}
	}
}

func TestControllerUnsubscribeStopsDelivery(t *testing.T) {
	client, _ := sequenceClient(&Snapshot{JobID: "job-1", Status: StatusProcessing})

	var mu sync.Mutex
	count := 0
	c := NewController(GenerationFamily, client, Callbacks{}, testOptions()...)
	unsubscribe := c.Subscribe(func(DerivedState) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	if err := c.Start("job-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	unsubscribe()

	mu.Lock()
	n := count
	mu.Unlock()
	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if count != n {
		t.Fatalf("listener still invoked after unsubscribe: %d -> %d", n, count)
	}
}

func TestControllerStopHaltsPollingWithoutCallbacks(t *testing.T) {
	client, calls := sequenceClient(
		&Snapshot{JobID: "job-stop", Status: StatusProcessing},
	)

	var fired int32
	c := NewController(GenerationFamily, client, Callbacks{
		OnCompleted: func(string) { atomic.AddInt32(&fired, 1) },
		OnFailed:    func(string) { atomic.AddInt32(&fired, 1) },
		OnCancelled: func() { atomic.AddInt32(&fired, 1) },
	}, testOptions()...)

	if err := c.Start("job-stop"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	c.Stop()
	c.Stop() // 冪等

	seen := atomic.LoadInt32(calls)
	time.Sleep(30 * time.Millisecond)
	if got := atomic.LoadInt32(calls); got > seen+1 {
		t.Fatalf("fetch calls after Stop: %d -> %d", seen, got)
	}
	if atomic.LoadInt32(&fired) != 0 {
		t.Fatalf("terminal callbacks fired after Stop")
	}
	if state := c.State(); state.IsTerminal {
		t.Fatalf("Stop must not mark the state terminal: %+v", state)
	}
}
