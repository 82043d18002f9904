package track

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"
)

var (
	// ErrEmptyJobID は空のジョブIDで追跡を開始しようとしたときのエラーです。
	ErrEmptyJobID = errors.New("track: jobID is required")
	// ErrAlreadyTracking は追跡中に Start を重ねて呼んだときのエラーです。
	ErrAlreadyTracking = errors.New("track: already tracking")
	// ErrNotTracking は追跡していない状態で Cancel を呼んだときのエラーです。
	ErrNotTracking = errors.New("track: not tracking")
	// ErrCancelNotSupported はキャンセル非対応ファミリーで Cancel を呼んだときのエラーです。
	ErrCancelNotSupported = errors.New("track: cancel is not supported for this job family")
	// ErrRetryNotAvailable は通信エラー以外の終端後に Retry を呼んだときのエラーです。
	ErrRetryNotAvailable = errors.New("track: retry is only available after a request failure")
	// ErrMissingResultID は成功終端なのに resultId が無いときのエラーです。
	ErrMissingResultID = errors.New("track: completed snapshot has no resultId")
)

// transportFailureMessage は通信エラー終端時にUIへ渡すメッセージです。
const transportFailureMessage = "ステータスの取得に失敗しました。通信環境を確認して再試行してください。"

// Callbacks は終端通知と成果物取得の通知先です。
// OnCompleted / OnFailed / OnCancelled は1つの追跡につき合計で
// ちょうど1回だけ呼ばれます。OnResult / OnResultError は成功終端後の
// 成果物取得（生成ファミリーのみ）の結果通知で、終端通知とは別系統です。
type Callbacks struct {
	OnCompleted   func(resultID string)
	OnFailed      func(message string)
	OnCancelled   func()
	OnResult      func(result []byte)
	OnResultError func(err error)
}

// Listener は派生状態の変化を受け取る購読者です。
type Listener func(DerivedState)

// Controller は1つのジョブを追跡する合成ルートです。
// Poller と ElapsedClock を1つずつ所有し、派生状態と購読者を管理します。
type Controller struct {
	family    Family
	client    StatusClient
	callbacks Callbacks

	pollInterval   time.Duration
	clockInterval  time.Duration
	requestTimeout time.Duration
	logger         *log.Logger

	// notifyMu は状態のコミット順と購読者への配送順を一致させます。
	// タイマーごとのゴルーチンから同時に届いた更新が追い越し配送され、
	// 終端状態の後に古い状態が見えることを防ぎます。
	notifyMu sync.Mutex

	mu              sync.Mutex
	jobID           string
	state           DerivedState
	running         bool
	transportFailed bool
	// epoch は Start / Cancel のたびに進む世代番号です。古い世代の
	// ティックやスナップショットは破棄されるため、キャンセル直後に
	// 完了スナップショットが届いてもキャンセルが勝ちます。
	epoch  int
	poller *Poller
	clock  *ElapsedClock

	subs      map[int]Listener
	nextSubID int
}

// Option は Controller の挙動を調整します。
type Option func(*Controller)

// WithPollInterval はポーリング間隔を変更します（テスト用途）。
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) { c.pollInterval = d }
}

// WithClockInterval は経過時間カウンターの刻み幅を変更します（テスト用途）。
func WithClockInterval(d time.Duration) Option {
	return func(c *Controller) { c.clockInterval = d }
}

// WithRequestTimeout はステータス取得1回あたりのタイムアウトを設定します。
// ポーリング間隔より短い値は間隔まで引き上げます。通常の遅延で誤って
// 失敗扱いにしないためです。
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Controller) { c.requestTimeout = d }
}

// WithLogger はベストエフォート操作の失敗を記録するロガーを設定します。
func WithLogger(logger *log.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// NewController は Controller を作成します。
func NewController(family Family, client StatusClient, callbacks Callbacks, opts ...Option) *Controller {
	c := &Controller{
		family:        family,
		client:        client,
		callbacks:     callbacks,
		pollInterval:  DefaultPollInterval,
		clockInterval: DefaultClockInterval,
		subs:          make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.requestTimeout > 0 && c.requestTimeout < c.pollInterval {
		c.requestTimeout = c.pollInterval
	}
	return c
}

// Start は指定ジョブの追跡を開始します。ジョブIDが空の場合は
// タイマーを一切起動せずにエラーを返します。
func (c *Controller) Start(jobID string) error {
	if strings.TrimSpace(jobID) == "" {
		return ErrEmptyJobID
	}

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyTracking
	}

	c.jobID = jobID
	c.epoch++
	epoch := c.epoch
	c.running = true
	c.transportFailed = false
	c.state = DerivedState{StageLabel: c.family.Label(c.family.initialStatus)}

	poller := NewPoller(
		c.pollInterval,
		func(ctx context.Context) (*Snapshot, error) { return c.fetchStatus(ctx, jobID) },
		func(snapshot *Snapshot) { c.onSnapshot(epoch, snapshot) },
		func(err error) { c.onRequestError(epoch, err) },
	)
	clock := NewElapsedClock(c.clockInterval, func(elapsed int) { c.onClockTick(epoch, elapsed) })
	c.poller = poller
	c.clock = clock
	state := c.state
	c.mu.Unlock()

	c.notify(state)
	poller.Start()
	clock.Start()
	return nil
}

// Cancel は生成ファミリーのジョブをキャンセルします。ローカルの状態は
// 即座に CANCELLED へ遷移し、バックエンドへのキャンセル要求は
// ベストエフォートで送ります。要求が失敗してもローカル状態は戻しません。
func (c *Controller) Cancel() error {
	if !c.family.Cancellable() {
		return ErrCancelNotSupported
	}

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if !c.running || c.state.IsTerminal {
		c.mu.Unlock()
		return ErrNotTracking
	}

	// 世代を進め、飛行中のポーリング応答を無効化する
	c.epoch++
	c.running = false
	prev := c.state
	c.state = DerivedState{
		LastSnapshot:   prev.LastSnapshot,
		ElapsedSeconds: prev.ElapsedSeconds,
		Percentage:     prev.Percentage,
		StageLabel:     c.family.Label(StatusCancelled),
		IsTerminal:     true,
		Outcome:        OutcomeCancelled,
		CallbackFired:  true,
	}
	state := c.state
	jobID := c.jobID
	poller, clock := c.poller, c.clock
	c.mu.Unlock()

	if poller != nil {
		poller.Stop()
	}
	if clock != nil {
		clock.Stop()
	}
	c.notify(state)
	if c.callbacks.OnCancelled != nil {
		c.callbacks.OnCancelled()
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), DefaultPollInterval)
		defer cancel()
		if err := c.client.CancelJob(ctx, jobID); err != nil {
			c.logf("best-effort cancel request failed job=%s: %v", jobID, err)
		}
	}()
	return nil
}

// Stop は追跡を打ち切ります。ジョブ自体には影響せず、終端コールバックも
// 発火しません。UIを閉じるときなど、結果が不要になった場合に使います。
func (c *Controller) Stop() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.epoch++
	c.running = false
	poller, clock := c.poller, c.clock
	c.mu.Unlock()

	if poller != nil {
		poller.Stop()
	}
	if clock != nil {
		clock.Stop()
	}
}

// Retry は通信エラーで終端した追跡を最初からやり直します。
// バックエンドが FAILED を報告して終端した場合には使えません。
func (c *Controller) Retry() error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyTracking
	}
	if !c.transportFailed {
		c.mu.Unlock()
		return ErrRetryNotAvailable
	}
	jobID := c.jobID
	c.mu.Unlock()

	return c.Start(jobID)
}

// Subscribe は派生状態の変化を購読します。登録時点の状態を即座に1回
// 配送し、以後は変化のたびにコミット順で配送します。戻り値は購読解除
// 関数です。リスナーの中から Controller のメソッドを呼ばないでください。
func (c *Controller) Subscribe(listener Listener) func() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subs[id] = listener
	state := c.state
	c.mu.Unlock()

	listener(state)
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// State は現在の派生状態を返します。
func (c *Controller) State() DerivedState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Family は追跡対象のジョブファミリーを返します。
func (c *Controller) Family() Family {
	return c.family
}

func (c *Controller) fetchStatus(ctx context.Context, jobID string) (*Snapshot, error) {
	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}
	return c.client.FetchStatus(ctx, jobID)
}

func (c *Controller) onSnapshot(epoch int, snapshot *Snapshot) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		return
	}

	next, intent := Reconcile(c.family, c.state, snapshot)
	c.state = next
	var poller *Poller
	var clock *ElapsedClock
	if next.IsTerminal && c.running {
		c.running = false
		poller, clock = c.poller, c.clock
	}
	jobID := c.jobID
	c.mu.Unlock()

	if poller != nil {
		poller.Stop()
	}
	if clock != nil {
		clock.Stop()
	}
	c.notify(next)

	if intent == nil {
		return
	}
	switch intent.Kind {
	case IntentCompleted:
		if c.callbacks.OnCompleted != nil {
			c.callbacks.OnCompleted(intent.ResultID)
		}
		if c.family.FetchesResult() {
			go c.fetchResult(jobID, intent.ResultID)
		}
	case IntentFailed:
		if c.callbacks.OnFailed != nil {
			c.callbacks.OnFailed(intent.Message)
		}
	case IntentCancelled:
		if c.callbacks.OnCancelled != nil {
			c.callbacks.OnCancelled()
		}
	}
}

// fetchResult は成功終端後に成果物を1回だけ取得します。取得に失敗しても
// ジョブ自体は COMPLETED のままで、失敗は成果物取得のエラーとして
// 別系統で通知します。
func (c *Controller) fetchResult(jobID, resultID string) {
	if resultID == "" {
		c.reportResultError(ErrMissingResultID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*DefaultPollInterval)
	defer cancel()
	result, err := c.client.FetchResult(ctx, jobID)
	if err != nil {
		c.reportResultError(err)
		return
	}
	if c.callbacks.OnResult != nil {
		c.callbacks.OnResult(result)
	}
}

func (c *Controller) reportResultError(err error) {
	c.logf("result fetch failed: %v", err)
	if c.callbacks.OnResultError != nil {
		c.callbacks.OnResultError(err)
	}
}

func (c *Controller) onRequestError(epoch int, err error) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if epoch != c.epoch || c.state.IsTerminal {
		c.mu.Unlock()
		return
	}

	prev := c.state
	c.state = DerivedState{
		LastSnapshot:   prev.LastSnapshot,
		ElapsedSeconds: prev.ElapsedSeconds,
		Percentage:     prev.Percentage,
		StageLabel:     c.family.Label(StatusFailed),
		IsTerminal:     true,
		Outcome:        OutcomeFailure,
		CallbackFired:  true,
	}
	c.running = false
	c.transportFailed = true
	state := c.state
	jobID := c.jobID
	clock := c.clock
	c.mu.Unlock()

	c.logf("status request failed job=%s: %v", jobID, err)
	if clock != nil {
		clock.Stop()
	}
	c.notify(state)
	if c.callbacks.OnFailed != nil {
		c.callbacks.OnFailed(transportFailureMessage)
	}
}

func (c *Controller) onClockTick(epoch int, elapsed int) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if epoch != c.epoch || c.state.IsTerminal {
		// 終端の再計算が済んだ時点で経過時間は凍結する
		c.mu.Unlock()
		return
	}
	if elapsed < c.state.ElapsedSeconds {
		elapsed = c.state.ElapsedSeconds
	}
	next := c.state
	next.ElapsedSeconds = elapsed
	c.state = next
	c.mu.Unlock()

	c.notify(next)
}

func (c *Controller) notify(state DerivedState) {
	c.mu.Lock()
	listeners := make([]Listener, 0, len(c.subs))
	for _, listener := range c.subs {
		listeners = append(listeners, listener)
	}
	c.mu.Unlock()

	for _, listener := range listeners {
		listener(state)
	}
}

func (c *Controller) logf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}
