package aggregate

import (
	"sync"
	"time"
)

// DefaultDebounceDelay：视口变化触发的固定去抖延迟
const DefaultDebounceDelay = 600 * time.Millisecond

// Debouncer：尾沿去抖
// 背景：快速平移会产生密集的视口变化事件，只让最后一次待定触发真正发起查询；
// 中间触发被合并而非排队。已在途的查询不被取消，共享结果集后写覆盖。
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
}

func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounceDelay
	}
	return &Debouncer{delay: delay}
}

// Trigger：重置计时并在延迟后执行 fn；仅最后一次 Trigger 的 fn 被执行
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

// Stop：丢弃未触发的待定执行
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
