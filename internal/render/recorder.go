// Package render holds surfaces that are not tied to a window.
package render

import (
	"sync"

	"PeerBoard/internal/state"
)

// Segment is one painted line as seen by a Recorder.
type Segment struct {
	From  state.Point
	To    state.Point
	Color string
	Width float64
}

// Recorder is an in-memory surface: it keeps the segments currently visible.
// Headless hosts use it so the board can still be exported.
type Recorder struct {
	mu       sync.Mutex
	segments []Segment
	clears   int
	width    float64
	height   float64
}

func NewRecorder(width, height float64) *Recorder {
	return &Recorder{width: width, height: height}
}

func (r *Recorder) DrawSegment(from, to state.Point, color string, width float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.segments = append(r.segments, Segment{From: from, To: to, Color: color, Width: width})
}

func (r *Recorder) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.segments = nil
	r.clears++
}

func (r *Recorder) ViewportSize() (float64, float64) {
	return r.width, r.height
}

// Segments returns what is currently on the surface.
func (r *Recorder) Segments() []Segment {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Segment, len(r.segments))
	copy(out, r.segments)
	return out
}

func (r *Recorder) Clears() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clears
}

var _ state.Surface = (*Recorder)(nil)
