// Package dispatch debounces course queries: only the last filter of a burst is fetched.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/uninotes/core/academic"
)

// DefaultQuietPeriod is the time without filter changes before a query is sent.
const DefaultQuietPeriod = 300 * time.Millisecond

type (
	Timer interface {
		Stop() bool
	}

	// AfterFunc calls f in its own goroutine after d. Mockable.
	AfterFunc func(d time.Duration, f func()) Timer

	FetchFunc func(ctx context.Context, f academic.FilterState) ([]academic.Course, error)

	// Result is the outcome of the latest query. Results of superseded queries are dropped.
	Result struct {
		Seq     uint64
		Filter  academic.FilterState
		Courses []academic.Course
		Err     error
	}

	Options struct {
		QuietPeriod time.Duration
		AfterFunc   AfterFunc
		OnResult    func(Result)
		OnLoading   func(loading bool)
	}

	Dispatcher struct {
		ctx       context.Context
		fetch     FetchFunc
		quiet     time.Duration
		afterFunc AfterFunc
		onResult  func(Result)
		onLoading func(bool)

		mu      sync.Mutex
		seq     uint64 // sequence of the latest scheduled filter
		filter  academic.FilterState
		timer   Timer
		cancel  context.CancelFunc // cancels the in-flight fetch
		active  bool
		loading bool
		closed  bool

		deliverMu sync.Mutex
	}
)

func stdAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// New returns an inactive Dispatcher. Fetches run under ctx.
func New(ctx context.Context, fetch FetchFunc, opts Options) *Dispatcher {
	d := &Dispatcher{
		ctx:       ctx,
		fetch:     fetch,
		quiet:     opts.QuietPeriod,
		afterFunc: opts.AfterFunc,
		onResult:  opts.OnResult,
		onLoading: opts.OnLoading,
	}
	if d.quiet <= 0 {
		d.quiet = DefaultQuietPeriod
	}
	if d.afterFunc == nil {
		d.afterFunc = stdAfterFunc
	}
	if d.onResult == nil {
		d.onResult = func(Result) {}
	}
	if d.onLoading == nil {
		d.onLoading = func(bool) {}
	}
	return d
}

// Schedule records f as the latest filter. It is fetched once no other filter is
// scheduled for the quiet period, and only while the dispatcher is active.
func (d *Dispatcher) Schedule(f academic.FilterState) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.filter = f
	stoppedLoading := d.supersedeLocked()
	if d.active {
		d.armLocked()
	}
	d.mu.Unlock()

	if stoppedLoading {
		d.onLoading(false)
	}
}

// SetActive turns fetching on or off. Activating fetches the latest filter after the quiet period.
func (d *Dispatcher) SetActive(active bool) {
	d.mu.Lock()
	if d.closed || d.active == active {
		d.mu.Unlock()
		return
	}
	d.active = active
	stoppedLoading := d.supersedeLocked()
	if active {
		d.armLocked()
	}
	d.mu.Unlock()

	if stoppedLoading {
		d.onLoading(false)
	}
}

func (d *Dispatcher) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// Loading is true while a fetch is in flight.
func (d *Dispatcher) Loading() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loading
}

// Close stops the pending timer and cancels the in-flight fetch.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	stoppedLoading := d.supersedeLocked()
	d.mu.Unlock()

	if stoppedLoading {
		d.onLoading(false)
	}
}

// supersedeLocked bumps the sequence, stops the timer and cancels the in-flight fetch.
// It returns true when loading was switched off.
func (d *Dispatcher) supersedeLocked() bool {
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.loading {
		d.loading = false
		return true
	}
	return false
}

func (d *Dispatcher) armLocked() {
	seq := d.seq
	d.timer = d.afterFunc(d.quiet, func() { d.run(seq) })
}

func (d *Dispatcher) run(seq uint64) {
	d.mu.Lock()
	if d.closed || !d.active || seq != d.seq {
		d.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(d.ctx)
	d.timer = nil
	d.cancel = cancel
	d.loading = true
	f := d.filter
	d.mu.Unlock()

	d.onLoading(true)
	courses, err := d.fetch(ctx, f)
	cancel()

	d.deliverMu.Lock()
	defer d.deliverMu.Unlock()

	d.mu.Lock()
	if seq != d.seq {
		d.mu.Unlock()
		return // superseded: drop
	}
	d.cancel = nil
	d.loading = false
	d.mu.Unlock()

	d.onLoading(false)
	d.onResult(Result{Seq: seq, Filter: f, Courses: courses, Err: err})
}
