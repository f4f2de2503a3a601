package ui

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"PeerBoard/internal/render"
	"PeerBoard/internal/state"
)

const (
	cursorRadius   = 5
	cursorInterval = 50 * time.Millisecond
)

type remoteCursor struct {
	pos   state.Point
	color string
}

// Board is the drawing area. It is the session's surface: strokes reach the
// screen only after the session has logged them, local or remote alike.
type Board struct {
	widget.BaseWidget

	mu       sync.Mutex
	segments []render.Segment
	clears   int
	cursors  map[string]remoteCursor
	size     fyne.Size

	ink   string
	width float64

	dragging   bool
	last       fyne.Position
	lastCursor time.Time

	// OnSegment is called with each piece of a stroke the user draws.
	OnSegment func(from, to state.Point, color string, width float64)
	// OnCursor reports the pointer position, at most every cursorInterval.
	OnCursor func(p state.Point)
}

var (
	_ fyne.Widget       = (*Board)(nil)
	_ fyne.Draggable    = (*Board)(nil)
	_ desktop.Hoverable = (*Board)(nil)
	_ state.Surface     = (*Board)(nil)
)

func NewBoard() *Board {
	b := &Board{
		cursors: make(map[string]remoteCursor),
		ink:     state.DefaultInk,
		width:   2,
	}
	b.ExtendBaseWidget(b)
	return b
}

func (b *Board) SetInk(hex string) {
	b.mu.Lock()
	b.ink = hex
	b.mu.Unlock()
}

func (b *Board) Ink() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ink
}

func (b *Board) SetStrokeWidth(w float64) {
	b.mu.Lock()
	b.width = w
	b.mu.Unlock()
}

func (b *Board) StrokeWidth() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.width
}

// DrawSegment may be called from any goroutine.
func (b *Board) DrawSegment(from, to state.Point, color string, width float64) {
	b.mu.Lock()
	b.segments = append(b.segments, render.Segment{From: from, To: to, Color: color, Width: width})
	b.mu.Unlock()
	fyne.Do(b.Refresh)
}

func (b *Board) ClearAll() {
	b.mu.Lock()
	b.segments = nil
	b.clears++
	b.mu.Unlock()
	fyne.Do(b.Refresh)
}

func (b *Board) ViewportSize() (float64, float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return float64(b.size.Width), float64(b.size.Height)
}

func (b *Board) Resize(s fyne.Size) {
	b.mu.Lock()
	b.size = s
	b.mu.Unlock()
	b.BaseWidget.Resize(s)
}

func (b *Board) Segments() []render.Segment {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]render.Segment, len(b.segments))
	copy(out, b.segments)
	return out
}

// ShowCursor moves the marker of a remote participant.
func (b *Board) ShowCursor(id string, p state.Point, color string) {
	b.mu.Lock()
	b.cursors[id] = remoteCursor{pos: p, color: color}
	b.mu.Unlock()
	fyne.Do(b.Refresh)
}

// PruneCursors drops markers of participants not in keep.
func (b *Board) PruneCursors(keep map[string]bool) {
	b.mu.Lock()
	for id := range b.cursors {
		if !keep[id] {
			delete(b.cursors, id)
		}
	}
	b.mu.Unlock()
	fyne.Do(b.Refresh)
}

func (b *Board) Dragged(e *fyne.DragEvent) {
	if !b.dragging {
		b.dragging = true
		b.last = e.Position.Subtract(e.Dragged)
	}
	from, to := b.last, e.Position
	b.last = e.Position
	if b.OnSegment != nil {
		b.OnSegment(point(from), point(to), b.Ink(), b.StrokeWidth())
	}
}

func (b *Board) DragEnd() {
	b.dragging = false
}

func (b *Board) MouseIn(*desktop.MouseEvent) {}

func (b *Board) MouseMoved(e *desktop.MouseEvent) {
	if b.OnCursor == nil || time.Since(b.lastCursor) < cursorInterval {
		return
	}
	b.lastCursor = time.Now()
	b.OnCursor(point(e.Position))
}

func (b *Board) MouseOut() {}

func (b *Board) CreateRenderer() fyne.WidgetRenderer {
	return &boardRenderer{board: b, background: canvas.NewRectangle(color.White)}
}

func point(p fyne.Position) state.Point {
	return state.Point{X: float64(p.X), Y: float64(p.Y)}
}

func position(p state.Point) fyne.Position {
	return fyne.NewPos(float32(p.X), float32(p.Y))
}

// boardRenderer keeps one canvas.Line per logged segment and only builds
// lines for segments it has not seen yet.
type boardRenderer struct {
	board      *Board
	background *canvas.Rectangle
	lines      []fyne.CanvasObject
	cursors    []fyne.CanvasObject
	clears     int
}

func (r *boardRenderer) Objects() []fyne.CanvasObject {
	objects := make([]fyne.CanvasObject, 0, 1+len(r.lines)+len(r.cursors))
	objects = append(objects, r.background)
	objects = append(objects, r.lines...)
	return append(objects, r.cursors...)
}

func (r *boardRenderer) Refresh() {
	r.board.mu.Lock()
	segments := r.board.segments
	if r.clears != r.board.clears {
		r.clears = r.board.clears
		r.lines = nil
	}
	for _, s := range segments[len(r.lines):] {
		line := canvas.NewLine(state.MustColor(s.Color))
		line.StrokeWidth = float32(s.Width)
		line.Position1 = position(s.From)
		line.Position2 = position(s.To)
		r.lines = append(r.lines, line)
	}
	r.cursors = nil
	for _, c := range r.board.cursors {
		dot := canvas.NewCircle(state.MustColor(c.color))
		dot.Move(position(c.pos).SubtractXY(cursorRadius, cursorRadius))
		dot.Resize(fyne.NewSquareSize(2 * cursorRadius))
		r.cursors = append(r.cursors, dot)
	}
	r.board.mu.Unlock()
	canvas.Refresh(r.board)
}

func (r *boardRenderer) Layout(size fyne.Size) {
	r.background.Resize(size)
}

func (r *boardRenderer) MinSize() fyne.Size {
	return fyne.NewSize(300, 300)
}

func (r *boardRenderer) Destroy() {}
