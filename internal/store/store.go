package store

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot is an immutable view of the point set.
// Callers must not modify Points.
type Snapshot struct {
	LoadedAt time.Time
	Points   []Point
	Version  uint64
}

// Len returns the number of points in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Points)
}

// Store holds the current point set. Readers get whole snapshots, so a
// replace is atomic from their point of view and never observed half-done.
type Store struct {
	current atomic.Pointer[Snapshot]
	mu      sync.Mutex // serializes writers
	version uint64
}

// New returns a store holding an empty snapshot with version 0.
func New() *Store {
	s := &Store{}
	s.current.Store(&Snapshot{LoadedAt: time.Now()})
	return s
}

// Snapshot returns the current point set.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Replace swaps in a copy of points as the new point set. Coordinates are
// copied too, so the caller may keep modifying its slice.
func (s *Store) Replace(points []Point) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.publish(clonePoints(nil, points))
}

// Append publishes a new point set made of the current one plus points.
// Existing snapshots are left untouched.
func (s *Store) Append(points ...Point) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current.Load().Points
	next := make([]Point, 0, len(cur)+len(points))
	next = append(next, cur...)

	return s.publish(clonePoints(next, points))
}

// clonePoints appends copies of points to dst, giving each its own Coordinate.
func clonePoints(dst, points []Point) []Point {
	if dst == nil {
		dst = make([]Point, 0, len(points))
	}
	for _, p := range points {
		if p.Coordinate != nil {
			c := *p.Coordinate
			p.Coordinate = &c
		}
		dst = append(dst, p)
	}
	return dst
}

func (s *Store) publish(points []Point) *Snapshot {
	s.version++
	snap := &Snapshot{
		Points:   points,
		Version:  s.version,
		LoadedAt: time.Now(),
	}
	s.current.Store(snap)
	return snap
}
