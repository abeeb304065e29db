// Package scheduler decides when clusters are recomputed and delivers results.
//
// Viewport changes are debounced: only the viewport that stays put for the
// debounce period triggers a pass. A new point set triggers a pass at once.
// Passes run on their own goroutine and are numbered; a result is applied only
// if no later pass has been applied already.
package scheduler

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/woozymasta/brewmap/internal/cluster"
	"github.com/woozymasta/brewmap/internal/geo"
	"github.com/woozymasta/brewmap/internal/store"
	"github.com/woozymasta/brewmap/internal/timeutil"
)

// Defaults for Options.
const (
	DefaultDebounce = 300 * time.Millisecond
	DefaultEpsilon  = 1e-9
)

// ComputeFunc produces clusters for a point set and viewport.
type ComputeFunc func(points []store.Point, vp geo.Viewport) []cluster.Cluster

// Options configure a Scheduler. Zero values take defaults.
type Options struct {
	Clock    timeutil.Clock
	Debounce time.Duration
	Epsilon  float64 // viewport components closer than this count as unchanged, negative for exact
}

// Result is one applied clustering pass. It is shared between subscribers
// and must be treated as read-only.
type Result struct {
	Started  time.Time
	Clusters []cluster.Cluster
	Viewport geo.Viewport
	Elapsed  time.Duration
	Seq      uint64
	Version  uint64 // point snapshot version
}

// Scheduler serializes change events and runs clustering passes.
type Scheduler struct {
	clock    timeutil.Clock
	compute  ComputeFunc
	timer    timeutil.Timer
	current  *Result
	points   *store.Snapshot
	subs     map[uint64]chan Result
	inflight sync.WaitGroup
	mu       sync.Mutex

	viewport     geo.Viewport
	lastViewport geo.Viewport
	lastPoints   *store.Snapshot

	debounce time.Duration
	epsilon  float64
	timerGen uint64
	seq      uint64
	nextSub  uint64

	dispatched bool
	closed     bool
}

// New creates a scheduler starting at the initial viewport with no points.
// Nothing is computed until SetPoints or Refresh is called.
func New(compute ComputeFunc, initial geo.Viewport, opts Options) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	switch {
	case opts.Epsilon == 0:
		opts.Epsilon = DefaultEpsilon
	case opts.Epsilon < 0:
		opts.Epsilon = 0
	}

	return &Scheduler{
		clock:    opts.Clock,
		compute:  compute,
		debounce: opts.Debounce,
		epsilon:  opts.Epsilon,
		viewport: initial,
		subs:     make(map[uint64]chan Result),
	}
}

// SetViewport records a viewport change and restarts the debounce timer.
// A viewport equal to the latest one within epsilon is ignored.
func (s *Scheduler) SetViewport(vp geo.Viewport) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || vp.ApproxEqual(s.viewport, s.epsilon) {
		return
	}

	s.viewport = vp
	s.stopTimerLocked()
	gen := s.timerGen
	s.timer = s.clock.AfterFunc(s.debounce, func() { s.settle(gen) })
}

// SetPoints replaces the point set and recomputes immediately with the
// latest viewport. Passing the snapshot already in use does nothing.
func (s *Scheduler) SetPoints(snap *store.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || snap == nil || snap == s.points {
		return
	}

	s.points = snap
	s.stopTimerLocked()
	s.dispatchLocked("points")
}

// Refresh recomputes immediately, whether or not anything changed.
func (s *Scheduler) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.stopTimerLocked()
	s.dispatchLocked("refresh")
}

// Flush settles a pending debounce without waiting for the quiet period.
// It reports whether a pass was started.
func (s *Scheduler) Flush() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.timer == nil {
		return false
	}

	s.stopTimerLocked()
	return s.settleLocked()
}

// Viewport returns the latest requested viewport.
func (s *Scheduler) Viewport() geo.Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewport
}

// Current returns the most recently applied result.
func (s *Scheduler) Current() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return Result{}, false
	}
	return *s.current, true
}

// Subscribe returns a channel receiving applied results and a func to cancel
// the subscription. The channel holds one result; a slow reader sees only the
// newest. The current result, if any, is delivered right away.
func (s *Scheduler) Subscribe() (<-chan Result, func()) {
	ch := make(chan Result, 1)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	if s.current != nil {
		ch <- *s.current
	}

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// Close stops pending timers, waits for running passes and closes all
// subscriber channels. Later events are ignored.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stopTimerLocked()
	s.mu.Unlock()

	s.inflight.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

func (s *Scheduler) settle(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// superseded by a newer timer or already handled
	if s.closed || gen != s.timerGen || s.timer == nil {
		return
	}

	s.timer = nil
	s.settleLocked()
}

func (s *Scheduler) settleLocked() bool {
	if s.dispatched && s.points == s.lastPoints && s.viewport.ApproxEqual(s.lastViewport, s.epsilon) {
		log.Trace().Msg("Viewport settled without change, skipping recompute")
		return false
	}

	s.dispatchLocked("viewport")
	return true
}

func (s *Scheduler) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerGen++
}

func (s *Scheduler) dispatchLocked(reason string) {
	s.seq++
	seq := s.seq
	vp := s.viewport
	snap := s.points

	s.dispatched = true
	s.lastViewport = vp
	s.lastPoints = snap

	log.Trace().
		Uint64("seq", seq).
		Str("reason", reason).
		Float64("lat", vp.Center.Lat).
		Float64("lon", vp.Center.Lon).
		Float64("zoom", vp.ZoomLevel()).
		Msg("Recompute dispatched")

	s.inflight.Add(1)
	go s.run(seq, snap, vp)
}

func (s *Scheduler) run(seq uint64, snap *store.Snapshot, vp geo.Viewport) {
	defer s.inflight.Done()

	var (
		points  []store.Point
		version uint64
	)
	if snap != nil {
		points = snap.Points
		version = snap.Version
	}

	started := s.clock.Now()
	clusters := s.compute(points, vp)

	s.deliver(Result{
		Seq:      seq,
		Version:  version,
		Viewport: vp,
		Clusters: clusters,
		Started:  started,
		Elapsed:  s.clock.Now().Sub(started),
	})
}

func (s *Scheduler) deliver(res Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && res.Seq <= s.current.Seq {
		log.Debug().
			Uint64("seq", res.Seq).
			Uint64("applied", s.current.Seq).
			Msg("Discarding stale cluster result")
		return
	}

	s.current = &res

	log.Debug().
		Uint64("seq", res.Seq).
		Int("clusters", len(res.Clusters)).
		Dur("elapsed", res.Elapsed).
		Msg("Clusters updated")

	for _, ch := range s.subs {
		offer(ch, res)
	}
}

// offer puts res into a 1-buffered channel, replacing an unread older value.
// Only deliver sends, under s.mu, so the second send cannot block.
func offer(ch chan Result, res Result) {
	select {
	case ch <- res:
		return
	default:
	}

	select {
	case <-ch:
	default:
	}

	select {
	case ch <- res:
	default:
	}
}
