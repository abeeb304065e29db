package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woozymasta/brewmap/internal/cluster"
	"github.com/woozymasta/brewmap/internal/geo"
	"github.com/woozymasta/brewmap/internal/store"
	"github.com/woozymasta/brewmap/internal/timeutil"
)

var home = geo.Viewport{
	Center: geo.Coordinate{Lat: 34.052235, Lon: -118.243683},
	Span:   geo.Span{LatDelta: 0.1, LonDelta: 0.1},
}

func pan(lat float64) geo.Viewport {
	vp := home
	vp.Center.Lat += lat
	return vp
}

type recorder struct {
	mu        sync.Mutex
	viewports []geo.Viewport
}

func (r *recorder) compute(points []store.Point, vp geo.Viewport) []cluster.Cluster {
	r.mu.Lock()
	r.viewports = append(r.viewports, vp)
	r.mu.Unlock()
	return cluster.ComputeClusters(points, vp)
}

func (r *recorder) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.viewports)
}

func newTestScheduler(t *testing.T, compute ComputeFunc) (*Scheduler, *timeutil.ManualClock) {
	t.Helper()
	clock := timeutil.NewManualClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s := New(compute, home, Options{Clock: clock})
	t.Cleanup(s.Close)
	return s, clock
}

func receive(t *testing.T, ch <-chan Result) Result {
	t.Helper()
	select {
	case res, ok := <-ch:
		require.True(t, ok, "subscription closed")
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("no result delivered")
		return Result{}
	}
}

func snapshot(points ...store.Point) *store.Snapshot {
	return store.New().Replace(points)
}

func TestDebounceCoalescesBurst(t *testing.T) {
	rec := &recorder{}
	s, clock := newTestScheduler(t, rec.compute)
	results, cancel := s.Subscribe()
	defer cancel()

	for i := 1; i <= 10; i++ {
		s.SetViewport(pan(float64(i) * 0.001))
		clock.Advance(20 * time.Millisecond)
	}
	assert.Equal(t, 0, rec.calls(), "no pass while events keep coming")

	clock.Advance(DefaultDebounce)
	res := receive(t, results)

	assert.Equal(t, 1, rec.calls())
	assert.Equal(t, pan(0.01), res.Viewport, "last viewport of the burst is used")
	assert.Equal(t, uint64(1), res.Seq)
}

func TestDebounceRestartsQuietPeriod(t *testing.T) {
	rec := &recorder{}
	s, clock := newTestScheduler(t, rec.compute)
	results, cancel := s.Subscribe()
	defer cancel()

	s.SetViewport(pan(0.01))
	clock.Advance(DefaultDebounce - time.Millisecond)
	s.SetViewport(pan(0.02))
	clock.Advance(DefaultDebounce - time.Millisecond)
	assert.Equal(t, 0, rec.calls())
	assert.Equal(t, 1, clock.Pending())

	clock.Advance(time.Millisecond)
	res := receive(t, results)
	assert.Equal(t, pan(0.02), res.Viewport)
	assert.Equal(t, 1, rec.calls())
}

func TestViewportWithinEpsilonIsIgnored(t *testing.T) {
	rec := &recorder{}
	s, clock := newTestScheduler(t, rec.compute)

	vp := home
	vp.Center.Lon += 1e-12
	s.SetViewport(vp)
	assert.Equal(t, 0, clock.Pending(), "sub-epsilon change must not start a timer")

	s.SetViewport(pan(0.5))
	assert.Equal(t, 1, clock.Pending())
}

func TestSettledViewportUnchangedSkipsPass(t *testing.T) {
	rec := &recorder{}
	s, clock := newTestScheduler(t, rec.compute)
	results, cancel := s.Subscribe()
	defer cancel()

	s.Refresh()
	receive(t, results)
	require.Equal(t, 1, rec.calls())

	// pan away and back before the quiet period ends
	s.SetViewport(pan(0.3))
	s.SetViewport(home)
	clock.Advance(time.Second)

	s.Close()
	assert.Equal(t, 1, rec.calls())
	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, uint64(1), cur.Seq)
}

func TestSetPointsRecomputesImmediately(t *testing.T) {
	rec := &recorder{}
	s, clock := newTestScheduler(t, rec.compute)
	results, cancel := s.Subscribe()
	defer cancel()

	c := home.Center
	snap := snapshot(store.Point{ID: "a", Name: "Wurstküche", Coordinate: &c})

	s.SetViewport(pan(0.001))
	s.SetPoints(snap)
	assert.Equal(t, 0, clock.Pending(), "pending debounce is folded into the points pass")

	res := receive(t, results)
	assert.Equal(t, snap.Version, res.Version)
	assert.Equal(t, pan(0.001), res.Viewport)
	require.Len(t, res.Clusters, 1)
	assert.Equal(t, "Wurstküche", res.Clusters[0].Label())

	// same snapshot again is not a change
	s.SetPoints(snap)
	s.Close()
	assert.Equal(t, 1, rec.calls())
}

func TestStaleResultIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	var order []int

	compute := func(points []store.Point, vp geo.Viewport) []cluster.Cluster {
		if len(points) == 0 {
			<-release // first pass is slow
		}
		mu.Lock()
		order = append(order, len(points))
		mu.Unlock()
		return cluster.ComputeClusters(points, vp)
	}

	s, _ := newTestScheduler(t, compute)
	results, cancel := s.Subscribe()
	defer cancel()

	s.Refresh() // seq 1, blocks
	c := home.Center
	s.SetPoints(snapshot(store.Point{ID: "a", Coordinate: &c})) // seq 2

	res := receive(t, results)
	assert.Equal(t, uint64(2), res.Seq)

	close(release)
	s.Close()

	mu.Lock()
	assert.Equal(t, []int{1, 0}, order, "slow pass finished last")
	mu.Unlock()

	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, uint64(2), cur.Seq, "older pass must not overwrite a newer one")

	for res := range results {
		assert.NotEqual(t, uint64(1), res.Seq)
	}
}

func TestSlowSubscriberSeesLatest(t *testing.T) {
	rec := &recorder{}
	s, _ := newTestScheduler(t, rec.compute)
	results, _ := s.Subscribe()

	s.Refresh()
	s.Refresh()
	s.Refresh()
	s.Close()

	var got []uint64
	for res := range results {
		got = append(got, res.Seq)
	}
	require.NotEmpty(t, got)
	assert.Equal(t, uint64(3), got[len(got)-1])
	assert.LessOrEqual(t, len(got), 1, "channel holds a single pending result")
}

func TestSubscribeReplaysCurrent(t *testing.T) {
	rec := &recorder{}
	s, _ := newTestScheduler(t, rec.compute)
	first, cancelFirst := s.Subscribe()

	s.Refresh()
	receive(t, first)
	cancelFirst()

	_, open := <-first
	assert.False(t, open, "cancel closes the channel")

	second, cancel := s.Subscribe()
	defer cancel()
	res := receive(t, second)
	assert.Equal(t, uint64(1), res.Seq)
}

func TestFlush(t *testing.T) {
	rec := &recorder{}
	s, clock := newTestScheduler(t, rec.compute)
	results, cancel := s.Subscribe()
	defer cancel()

	assert.False(t, s.Flush(), "nothing pending")

	s.SetViewport(pan(0.2))
	assert.True(t, s.Flush())
	assert.Equal(t, 0, clock.Pending())

	res := receive(t, results)
	assert.Equal(t, pan(0.2), res.Viewport)
	assert.Equal(t, pan(0.2), s.Viewport())
}

func TestClosedSchedulerIgnoresEvents(t *testing.T) {
	rec := &recorder{}
	s, clock := newTestScheduler(t, rec.compute)
	s.SetViewport(pan(0.1))
	s.Close()

	assert.Equal(t, 0, clock.Pending())
	s.SetViewport(pan(0.2))
	s.Refresh()
	s.SetPoints(snapshot())
	clock.Advance(time.Second)
	assert.Equal(t, 0, rec.calls())

	ch, _ := s.Subscribe()
	_, open := <-ch
	assert.False(t, open)
}

func TestRealClockDebounce(t *testing.T) {
	rec := &recorder{}
	s := New(rec.compute, home, Options{Debounce: 50 * time.Millisecond})
	defer s.Close()
	results, cancel := s.Subscribe()
	defer cancel()

	for i := 1; i <= 5; i++ {
		s.SetViewport(pan(float64(i) * 0.01))
	}

	res := receive(t, results)
	assert.Equal(t, pan(0.05), res.Viewport)
	assert.Equal(t, 1, rec.calls())
}
