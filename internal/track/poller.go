package track

import (
	"context"
	"sync"
	"time"
)

// DefaultPollInterval はステータスAPIのポーリング間隔です。
const DefaultPollInterval = 2 * time.Second

// Poller は固定間隔でステータスを取得し、結果をコールバックへ渡します。
// 起動直後に1回即時取得し、その後は間隔ごとに取得します。取得がエラーに
// なった場合はコールバック通知の後、自らポーリングを停止します（再試行
// はしません）。前回の取得が完了するまで次の取得は開始しないため、
// リクエストが多重に飛ぶことはありません。
type Poller struct {
	interval   time.Duration
	fetch      func(ctx context.Context) (*Snapshot, error)
	onSnapshot func(*Snapshot)
	onError    func(error)

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// NewPoller は Poller を作成します。interval が0以下の場合は既定値を使います。
func NewPoller(interval time.Duration, fetch func(ctx context.Context) (*Snapshot, error), onSnapshot func(*Snapshot), onError func(error)) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		interval:   interval,
		fetch:      fetch,
		onSnapshot: onSnapshot,
		onError:    onError,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start はポーリングループをバックグラウンドで開始します。
func (p *Poller) Start() {
	go p.run()
}

// Stop はポーリングを恒久的に停止します。複数回呼んでも安全で、
// 最初のティックが発火する前に呼んでも構いません。
func (p *Poller) Stop() {
	p.stopOnce.Do(p.cancel)
}

func (p *Poller) run() {
	if !p.tick() {
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			if !p.tick() {
				return
			}
		}
	}
}

// tick は1回分の取得を行い、ループを継続するかを返します。
func (p *Poller) tick() bool {
	if p.ctx.Err() != nil {
		return false
	}

	snapshot, err := p.fetch(p.ctx)

	// 取得中に Stop された場合は結果を配送しない
	if p.ctx.Err() != nil {
		return false
	}
	if err != nil {
		p.Stop()
		if p.onError != nil {
			p.onError(err)
		}
		return false
	}
	if p.onSnapshot != nil {
		p.onSnapshot(snapshot)
	}
	return true
}
