package widget

import (
	"sync"
	"time"

	"github.com/koki-develop/asciimage/internal/resize"
)

// throttle coalesces container updates into at most one call of fire per
// interval, always with the latest size.
type throttle struct {
	interval time.Duration
	fire     func(resize.Size)

	mu      sync.Mutex
	timer   *time.Timer
	latest  resize.Size
	stopped bool
	wg      sync.WaitGroup
}

func newThrottle(interval time.Duration, fire func(resize.Size)) *throttle {
	return &throttle{interval: interval, fire: fire}
}

func (t *throttle) trigger(s resize.Size) {
	if t.interval <= 0 {
		t.fire(s)
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}
	t.latest = s
	if t.timer == nil {
		t.wg.Add(1)
		t.timer = time.AfterFunc(t.interval, t.tick)
	}
}

func (t *throttle) tick() {
	defer t.wg.Done()

	t.mu.Lock()
	t.timer = nil
	s, stopped := t.latest, t.stopped
	t.mu.Unlock()

	if !stopped {
		t.fire(s)
	}
}

// flush fires a pending update immediately and waits for any tick in
// progress.
func (t *throttle) flush() {
	t.mu.Lock()
	if t.timer != nil && t.timer.Stop() {
		t.timer = nil
		s := t.latest
		t.mu.Unlock()

		t.fire(s)
		t.wg.Done()
	} else {
		t.mu.Unlock()
	}
	t.wg.Wait()
}

func (t *throttle) stop() {
	t.mu.Lock()
	t.stopped = true
	if t.timer != nil && t.timer.Stop() {
		t.timer = nil
		t.wg.Done()
	}
	t.mu.Unlock()
	t.wg.Wait()
}
