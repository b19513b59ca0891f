package listsync

import (
	"sync"
	"time"
)

// DefaultDebounceWindow is the quiescence window applied to search-term
// input: a request fires only after this long without another keystroke.
const DefaultDebounceWindow = 300 * time.Millisecond

// Debouncer coalesces rapid triggers into a single call after a fixed
// quiescence window. Each Trigger restarts the window; only the function
// passed to the final Trigger runs.
type Debouncer struct {
	mu     sync.Mutex
	window time.Duration
	timer  *time.Timer
}

// NewDebouncer creates a Debouncer with the given window. A window of
// zero or less uses DefaultDebounceWindow.
func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Debouncer{window: window}
}

// Trigger schedules fn to run after the quiescence window, cancelling
// any previously scheduled call.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, fn)
}

// Stop cancels any pending call. Safe to call multiple times.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
