package track

import (
	"sync"
	"time"
)

// DefaultClockInterval は経過時間カウンターの刻み幅です。
const DefaultClockInterval = time.Second

// ElapsedClock は追跡開始からの経過秒数を数える独立したカウンターです。
// ポーリングの2秒間隔とは切り離されており、ポーリングの合間も表示上の
// 経過時間が滑らかに進みます。
type ElapsedClock struct {
	interval time.Duration
	onTick   func(elapsedSeconds int)

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewElapsedClock は ElapsedClock を作成します。
func NewElapsedClock(interval time.Duration, onTick func(elapsedSeconds int)) *ElapsedClock {
	if interval <= 0 {
		interval = DefaultClockInterval
	}
	return &ElapsedClock{
		interval: interval,
		onTick:   onTick,
		stopCh:   make(chan struct{}),
	}
}

// Start はカウンターをバックグラウンドで開始します。
func (c *ElapsedClock) Start() {
	go c.run()
}

// Stop はカウンターを停止します。複数回呼んでも安全です。
func (c *ElapsedClock) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}

func (c *ElapsedClock) run() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	elapsed := 0
	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			elapsed++
			if c.onTick != nil {
				c.onTick(elapsed)
			}
		}
	}
}
