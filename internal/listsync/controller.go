package listsync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/simp-lee/dinesync/internal/domain"
)

// Phase is the controller's lifecycle state.
type Phase int

const (
	// PhaseIdle is the initial state before the first fetch.
	PhaseIdle Phase = iota
	// PhaseLoading means a fetch is in flight.
	PhaseLoading
	// PhaseLoaded means the last fetch succeeded and Items are current.
	PhaseLoaded
	// PhaseFailed means the last fetch failed; Retry re-enters PhaseLoading
	// with the same query state.
	PhaseFailed
)

// String returns the phase name for logging.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseLoaded:
		return "loaded"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ListResult is the materialized response to a query: one page of items
// plus the total matching count server-side.
type ListResult[T any] struct {
	Items      []T
	TotalCount int
}

// Fetcher loads one page of a resource for the given request parameters.
type Fetcher[T any] func(ctx context.Context, params map[string]string) (ListResult[T], error)

// Snapshot is an immutable view of the controller's state for rendering.
type Snapshot[T any] struct {
	Phase      Phase
	Items      []T
	TotalCount int
	Pagination Pagination
	ErrMessage string
}

// Controller is the single owner of what a list view displays. It issues
// one fetch per query-state change; only the response to the most
// recently issued request may update the displayed result, so a slow
// response for a superseded query is discarded silently. Search-term
// changes are debounced; page, sort, and filter changes fetch
// immediately.
type Controller[T any] struct {
	mu       sync.Mutex
	query    *QueryState
	fetch    Fetcher[T]
	log      *slog.Logger
	debounce *Debouncer
	onChange func(Snapshot[T])

	phase  Phase
	result ListResult[T]
	errMsg string

	// gen numbers issued requests; a response applies only while its
	// generation is still the latest. resultGen records which request
	// produced the displayed result, so a revert of a local patch can
	// tell whether a newer authoritative fetch has replaced it.
	gen       uint64
	resultGen uint64
	cancel    context.CancelFunc
	closed    bool
}

// ControllerOption customizes a Controller.
type ControllerOption[T any] func(*Controller[T])

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger[T any](log *slog.Logger) ControllerOption[T] {
	return func(c *Controller[T]) {
		if log != nil {
			c.log = log
		}
	}
}

// WithDebounceWindow overrides the search debounce window.
func WithDebounceWindow[T any](window time.Duration) ControllerOption[T] {
	return func(c *Controller[T]) {
		c.debounce = NewDebouncer(window)
	}
}

// WithOnChange registers a callback invoked after every state
// transition with a fresh snapshot. Used by views to re-render.
func WithOnChange[T any](fn func(Snapshot[T])) ControllerOption[T] {
	return func(c *Controller[T]) {
		c.onChange = fn
	}
}

// NewController creates a Controller over the given fetcher and query
// state. The controller stays in PhaseIdle until Start.
func NewController[T any](fetch Fetcher[T], query *QueryState, opts ...ControllerOption[T]) *Controller[T] {
	if query == nil {
		query = NewQueryState()
	}
	c := &Controller[T]{
		query:    query,
		fetch:    fetch,
		log:      slog.Default(),
		debounce: NewDebouncer(DefaultDebounceWindow),
		phase:    PhaseIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start issues the initial fetch.
func (c *Controller[T]) Start() {
	c.refetch()
}

// Search updates the search term. The fetch is debounced: it fires only
// after the quiescence window passes without another Search call, so a
// fast typist issues one request, not one per keystroke.
func (c *Controller[T]) Search(term string) {
	c.mu.Lock()
	changed := c.query.SetSearch(term)
	c.mu.Unlock()
	if changed {
		c.debounce.Trigger(c.refetch)
	}
}

// Sort updates the sort key and order and fetches immediately.
func (c *Controller[T]) Sort(key, order string) error {
	c.mu.Lock()
	changed, err := c.query.SetSort(key, order)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	if changed {
		c.refetch()
	}
	return nil
}

// Filter updates a named filter and fetches immediately. An empty value
// clears the filter.
func (c *Controller[T]) Filter(name, value string) error {
	c.mu.Lock()
	changed, err := c.query.SetFilter(name, value)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	if changed {
		c.refetch()
	}
	return nil
}

// GoToPage moves to the given page and fetches immediately. Unlike every
// other change it does not reset the page to 1.
func (c *Controller[T]) GoToPage(page int) {
	c.mu.Lock()
	changed := c.query.SetPage(page)
	c.mu.Unlock()
	if changed {
		c.refetch()
	}
}

// NextPage advances one page if the current result allows it.
func (c *Controller[T]) NextPage() {
	c.mu.Lock()
	p := ComputePagination(c.result.TotalCount, c.query.PageSize(), c.query.Page())
	c.mu.Unlock()
	if p.CanGoNext {
		c.GoToPage(p.ClampedPage + 1)
	}
}

// PrevPage steps back one page if the current result allows it.
func (c *Controller[T]) PrevPage() {
	c.mu.Lock()
	p := ComputePagination(c.result.TotalCount, c.query.PageSize(), c.query.Page())
	c.mu.Unlock()
	if p.CanGoPrev {
		c.GoToPage(p.ClampedPage - 1)
	}
}

// Retry re-fetches with the unchanged query state after a failure.
func (c *Controller[T]) Retry() {
	c.refetch()
}

// Refresh issues an authoritative refetch with the unchanged query
// state, overwriting any local patches.
func (c *Controller[T]) Refresh() {
	c.refetch()
}

// Snapshot returns an immutable view of the current state.
func (c *Controller[T]) Snapshot() Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Query returns the serialized request parameters for the current state.
func (c *Controller[T]) Query() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query.Params()
}

// Patch applies an in-place update to the displayed items without a
// refetch, e.g. an optimistic like-count bump. It returns a revert
// function restoring the items exactly as they were. A fetch completing
// after the patch is authoritative: it overwrites the patch, and a
// later revert becomes a no-op rather than resurrecting the snapshot of
// a superseded query.
func (c *Controller[T]) Patch(update func(items []T)) (revert func()) {
	c.mu.Lock()
	pinned := c.resultGen
	before := make([]T, len(c.result.Items))
	copy(before, c.result.Items)
	update(c.result.Items)
	c.mu.Unlock()
	c.emit()

	return func() {
		c.mu.Lock()
		if c.closed || c.resultGen != pinned {
			c.mu.Unlock()
			return
		}
		c.result.Items = before
		c.mu.Unlock()
		c.emit()
	}
}

// Remove prunes matching items locally and decrements the total count,
// returning a revert function. The next refetch is authoritative; once
// it lands, the revert is a no-op.
func (c *Controller[T]) Remove(match func(T) bool) (revert func()) {
	c.mu.Lock()
	pinned := c.resultGen
	before := make([]T, len(c.result.Items))
	copy(before, c.result.Items)
	beforeTotal := c.result.TotalCount

	kept := c.result.Items[:0:0]
	for _, item := range c.result.Items {
		if !match(item) {
			kept = append(kept, item)
		}
	}
	removed := len(c.result.Items) - len(kept)
	c.result.Items = kept
	c.result.TotalCount = beforeTotal - removed
	c.mu.Unlock()
	c.emit()

	return func() {
		c.mu.Lock()
		if c.closed || c.resultGen != pinned {
			c.mu.Unlock()
			return
		}
		c.result.Items = before
		c.result.TotalCount = beforeTotal
		c.mu.Unlock()
		c.emit()
	}
}

// Close tears the controller down: the in-flight request is cancelled,
// any late response is discarded, and no further state changes occur.
func (c *Controller[T]) Close() {
	c.debounce.Stop()
	c.mu.Lock()
	c.closed = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()
}

// refetch issues a new fetch for the current query state, superseding
// any request still in flight.
func (c *Controller[T]) refetch() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.gen++
	gen := c.gen
	c.phase = PhaseLoading
	params := c.query.Params()
	fetch := c.fetch
	c.mu.Unlock()
	c.emit()

	go func() {
		result, err := fetch(ctx, params)

		c.mu.Lock()
		if c.closed || gen != c.gen {
			// A newer request superseded this one, or the view is gone.
			c.mu.Unlock()
			c.log.Debug("discarding stale list response", slog.Uint64("generation", gen))
			return
		}
		if err != nil {
			c.phase = PhaseFailed
			c.errMsg = domain.UserMessage(err, "failed to load list")
			c.mu.Unlock()
			c.log.Warn("list fetch failed", slog.Any("error", err))
			c.emit()
			return
		}
		c.phase = PhaseLoaded
		c.result = result
		c.resultGen = gen
		c.errMsg = ""
		c.mu.Unlock()
		c.emit()
	}()
}

func (c *Controller[T]) snapshotLocked() Snapshot[T] {
	items := make([]T, len(c.result.Items))
	copy(items, c.result.Items)
	return Snapshot[T]{
		Phase:      c.phase,
		Items:      items,
		TotalCount: c.result.TotalCount,
		Pagination: ComputePagination(c.result.TotalCount, c.query.PageSize(), c.query.Page()),
		ErrMessage: c.errMsg,
	}
}

// emit delivers a fresh snapshot to the registered onChange callback.
func (c *Controller[T]) emit() {
	if c.onChange == nil {
		return
	}
	c.mu.Lock()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.onChange(snap)
}
