package dispatch_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/uninotes/core/academic"
	"github.com/trezcool/uninotes/core/dispatch"
	"github.com/trezcool/uninotes/tests"
)

type fetcher struct {
	mu      sync.Mutex
	filters []academic.FilterState
	fetch   func(ctx context.Context, f academic.FilterState) ([]academic.Course, error)
}

func (fr *fetcher) Fetch(ctx context.Context, f academic.FilterState) ([]academic.Course, error) {
	fr.mu.Lock()
	fr.filters = append(fr.filters, f)
	fetch := fr.fetch
	fr.mu.Unlock()
	if fetch != nil {
		return fetch(ctx, f)
	}
	return []academic.Course{{ID: f.Search}}, nil
}

func (fr *fetcher) Filters() []academic.FilterState {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	return append([]academic.FilterState{}, fr.filters...)
}

type results struct {
	mu   sync.Mutex
	list []dispatch.Result
}

func (r *results) add(res dispatch.Result) {
	r.mu.Lock()
	r.list = append(r.list, res)
	r.mu.Unlock()
}

func (r *results) all() []dispatch.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]dispatch.Result{}, r.list...)
}

func setup(fr *fetcher) (*dispatch.Dispatcher, *testutil.Timers, *results) {
	timers := testutil.NewTimers()
	res := new(results)
	d := dispatch.New(context.Background(), fr.Fetch, dispatch.Options{
		QuietPeriod: 300 * time.Millisecond,
		AfterFunc:   timers.AfterFunc,
		OnResult:    res.add,
	})
	return d, timers, res
}

func search(s string) academic.FilterState {
	return academic.FilterState{}.WithSearch(s)
}

func TestDispatcher_onlyLastFilterOfBurstIsFetched(t *testing.T) {
	fr := new(fetcher)
	d, timers, res := setup(fr)
	d.SetActive(true)
	timers.Advance(300 * time.Millisecond) // initial fetch on activation
	require.Len(t, fr.Filters(), 1)

	// changes at t=0, t=100ms and t=150ms
	d.Schedule(search("a"))
	timers.Advance(100 * time.Millisecond)
	d.Schedule(search("ab"))
	timers.Advance(50 * time.Millisecond)
	d.Schedule(search("abc"))

	timers.Advance(299 * time.Millisecond)
	assert.Len(t, fr.Filters(), 1, "no fetch before the quiet period elapsed")

	timers.Advance(1 * time.Millisecond)
	filters := fr.Filters()
	require.Len(t, filters, 2)
	assert.Equal(t, search("abc"), filters[1])

	all := res.all()
	require.Len(t, all, 2)
	assert.Equal(t, search("abc"), all[1].Filter)
	assert.Equal(t, []academic.Course{{ID: "abc"}}, all[1].Courses)
	assert.Empty(t, timers.Pending())
}

func TestDispatcher_inactiveDoesNotFetch(t *testing.T) {
	fr := new(fetcher)
	d, timers, res := setup(fr)
	assert.False(t, d.Active())

	d.Schedule(search("a"))
	d.Schedule(search("b"))
	timers.Advance(time.Second)
	assert.Empty(t, fr.Filters())
	assert.Empty(t, timers.Pending())

	// activation fetches the latest filter
	d.SetActive(true)
	assert.Equal(t, []time.Duration{300 * time.Millisecond}, timers.Pending())
	timers.Advance(300 * time.Millisecond)
	assert.Equal(t, []academic.FilterState{search("b")}, fr.Filters())
	assert.Len(t, res.all(), 1)

	// deactivation cancels the pending fetch
	d.Schedule(search("c"))
	d.SetActive(false)
	timers.Advance(time.Second)
	assert.Len(t, fr.Filters(), 1)
}

func TestDispatcher_staleResultIsDropped(t *testing.T) {
	started := make(chan struct{})
	fr := &fetcher{}
	fr.fetch = func(ctx context.Context, f academic.FilterState) ([]academic.Course, error) {
		if f.Search == "slow" {
			close(started)
			<-ctx.Done()
			return []academic.Course{{ID: "slow"}}, ctx.Err()
		}
		return []academic.Course{{ID: f.Search}}, nil
	}
	d, timers, res := setup(fr)
	d.SetActive(true)
	d.Schedule(search("slow"))

	done := make(chan struct{})
	go func() {
		timers.Advance(300 * time.Millisecond)
		close(done)
	}()
	<-started
	assert.True(t, d.Loading())

	d.Schedule(search("fast")) // supersedes and cancels the in-flight fetch
	assert.False(t, d.Loading())
	<-done
	assert.Empty(t, res.all(), "superseded result must be dropped")

	timers.Advance(300 * time.Millisecond)
	all := res.all()
	require.Len(t, all, 1)
	assert.Equal(t, search("fast"), all[0].Filter)
	assert.NoError(t, all[0].Err)
}

func TestDispatcher_Close(t *testing.T) {
	fr := new(fetcher)
	d, timers, _ := setup(fr)
	d.SetActive(true)
	d.Schedule(search("a"))
	d.Close()

	timers.Advance(time.Second)
	d.Schedule(search("b"))
	d.SetActive(true)
	timers.Advance(time.Second)
	assert.Empty(t, fr.Filters())
	assert.Empty(t, timers.Pending())
}
