package busy

import (
	"sync"
	"time"
)

// DefaultDelay is how long the busy state must hold before the indicator shows.
const DefaultDelay = 250 * time.Millisecond

// Indicator is the process-wide busy signal. Producers acquire it while they work;
// it is visible when at least one producer is busy and the count has stayed above
// zero for the show delay. It hides as soon as the count drops to zero.
type Indicator struct {
	mu       sync.Mutex
	delay    time.Duration
	count    int
	visible  bool
	epoch    uint64
	timer    *time.Timer
	stopped  bool
	onChange func(visible bool)
}

// NewIndicator creates an indicator. onChange, if set, is called on every
// visibility flip, outside the lock.
func NewIndicator(delay time.Duration, onChange func(visible bool)) *Indicator {
	if delay < 0 {
		delay = 0
	}
	return &Indicator{delay: delay, onChange: onChange}
}

// Acquire marks one producer busy. The returned release is idempotent.
func (i *Indicator) Acquire() (release func()) {
	i.mu.Lock()
	i.count++
	if i.count == 1 && !i.stopped {
		i.epoch++
		epoch := i.epoch
		if i.delay == 0 {
			i.mu.Unlock()
			i.show(epoch)
			return i.releaser()
		}
		i.timer = time.AfterFunc(i.delay, func() { i.show(epoch) })
	}
	i.mu.Unlock()
	return i.releaser()
}

func (i *Indicator) releaser() func() {
	var once sync.Once
	return func() {
		once.Do(i.release)
	}
}

func (i *Indicator) release() {
	i.mu.Lock()
	if i.count == 0 {
		i.mu.Unlock()
		return
	}
	i.count--
	if i.count > 0 {
		i.mu.Unlock()
		return
	}

	// Last producer done: invalidate any pending show and hide immediately
	i.epoch++
	if i.timer != nil {
		i.timer.Stop()
		i.timer = nil
	}
	changed := i.visible
	i.visible = false
	cb := i.onChange
	i.mu.Unlock()

	if changed && cb != nil {
		cb(false)
	}
}

func (i *Indicator) show(epoch uint64) {
	i.mu.Lock()
	if epoch != i.epoch || i.count == 0 || i.visible || i.stopped {
		i.mu.Unlock()
		return
	}
	i.visible = true
	cb := i.onChange
	i.mu.Unlock()

	if cb != nil {
		cb(true)
	}
}

// Busy reports whether any producer currently holds the indicator.
func (i *Indicator) Busy() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.count > 0
}

// Visible reports whether the indicator is shown.
func (i *Indicator) Visible() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.visible
}

// Count returns the number of busy producers.
func (i *Indicator) Count() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.count
}

// Stop cancels any pending show. Outstanding releases stay safe to call.
func (i *Indicator) Stop() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.stopped = true
	i.epoch++
	if i.timer != nil {
		i.timer.Stop()
		i.timer = nil
	}
}
