package browse

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// ScrollThreshold fraction of the scrollable height that must be passed
	ScrollThreshold = 0.6
	// ScrollThrottle minimum spacing between two fires
	ScrollThrottle = 100 * time.Millisecond
)

// ScrollTrigger turns raw scroll positions into load-more calls. After a
// fire it stays suppressed until Rearm, which the coordinator calls through
// Options.LoadMoreDone once the page request finishes.
type ScrollTrigger struct {
	mu         sync.Mutex
	limiter    *rate.Limiter
	fire       func() bool
	suppressed bool
	now        func() time.Time
}

// NewScrollTrigger wraps fire, usually Coordinator.OnScrollNearBottom
func NewScrollTrigger(fire func() bool) *ScrollTrigger {
	return &ScrollTrigger{
		limiter: rate.NewLimiter(rate.Every(ScrollThrottle), 1),
		fire:    fire,
		now:     time.Now,
	}
}

// OnScroll reports a scroll position in any consistent unit (pixels, lines)
// and whether it produced a load-more request.
func (t *ScrollTrigger) OnScroll(offset, viewport, content int) bool {
	if content <= 0 {
		return false
	}
	ratio := float64(offset+viewport) / float64(content)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.suppressed || ratio <= ScrollThreshold {
		return false
	}
	if !t.limiter.AllowN(t.now(), 1) {
		return false
	}
	if !t.fire() {
		return false
	}
	t.suppressed = true
	return true
}

// Rearm lifts the suppression set by the last fire
func (t *ScrollTrigger) Rearm() {
	t.mu.Lock()
	t.suppressed = false
	t.mu.Unlock()
}

// Suppressed reports whether a fired load is still awaiting Rearm
func (t *ScrollTrigger) Suppressed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.suppressed
}
