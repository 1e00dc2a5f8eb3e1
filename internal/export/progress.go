package export

import (
	"sync"
	"time"
)

// ProgressFunc receives coalesced job progress. Progress is monotonic
// non-decreasing in [0,1] and reaches exactly 1 only alongside Completed.
type ProgressFunc func(progress float64, state State)

// reporter enforces the progress contract: monotonicity, bounded callback
// frequency, and silence after a terminal state. State transitions always
// pass through regardless of the rate limit.
type reporter struct {
	fn          ProgressFunc
	minInterval time.Duration

	mu        sync.Mutex
	last      float64
	lastState State
	lastEmit  time.Time
	terminal  bool
}

func newReporter(fn ProgressFunc, minInterval time.Duration) *reporter {
	return &reporter{fn: fn, minInterval: minInterval, lastState: StateQueued}
}

func (r *reporter) report(progress float64, state State) {
	r.mu.Lock()
	if r.terminal {
		r.mu.Unlock()
		return
	}
	if progress < r.last {
		progress = r.last
	}
	// Only completion may announce exactly 1.
	if progress >= 1 && state != StateCompleted {
		progress = 0.999
	}
	stateChanged := state != r.lastState
	now := time.Now()
	if !stateChanged && r.minInterval > 0 && now.Sub(r.lastEmit) < r.minInterval {
		r.mu.Unlock()
		return
	}
	r.last = progress
	r.lastState = state
	r.lastEmit = now
	if state.Terminal() {
		r.terminal = true
	}
	fn := r.fn
	r.mu.Unlock()

	if fn != nil {
		fn(progress, state)
	}
}

// finish emits the terminal notification exactly once and seals the
// reporter against any late callbacks.
func (r *reporter) finish(state State) {
	progress := 0.0
	r.mu.Lock()
	progress = r.last
	r.mu.Unlock()
	if state == StateCompleted {
		progress = 1
	}
	r.report(progress, state)
}
