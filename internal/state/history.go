package state

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// History is the ordered log of drawing operations for one board.
// A clear compacts the log to a single clear marker, so replaying the
// log onto an empty surface always reproduces what is on screen.
type History struct {
	ops     []Operation
	surface Surface
	clock   *Clock
	log     zerolog.Logger
}

func NewHistory(surface Surface, clock *Clock) *History {
	return &History{
		surface: surface,
		clock:   clock,
		log:     log.With().Str("component", "history").Logger(),
	}
}

// Append records an operation produced on this node and paints it.
func (h *History) Append(op Operation) error {
	if err := op.Validate(); err != nil {
		return err
	}
	h.clock.Observe(op.Timestamp)
	h.apply(op)
	return nil
}

// AppendRemote records an operation received from a peer. It reports false
// when the operation predates the current clear marker and was dropped.
func (h *History) AppendRemote(op Operation) (bool, error) {
	if err := op.Validate(); err != nil {
		return false, err
	}
	h.clock.Observe(op.Timestamp)
	if mark, ok := h.clearMark(); ok && op.Timestamp < mark {
		h.log.Debug().Str("kind", string(op.Kind)).Int64("ts", op.Timestamp).Int64("clear", mark).
			Msg("dropping operation older than clear")
		return false, nil
	}
	h.apply(op)
	return true, nil
}

// Clear wipes the board and truncates the log to the returned marker.
func (h *History) Clear(ts int64) Operation {
	op := NewClear(ts)
	h.ops = []Operation{op}
	h.surface.ClearAll()
	return op
}

// Replay repaints the whole log onto the surface from scratch.
func (h *History) Replay() {
	h.ops = h.compact(h.ops)
	Render(h.ops, h.surface)
}

// Load replaces the log with a snapshot transferred from the host and repaints.
func (h *History) Load(ops []Operation) error {
	loaded := make([]Operation, 0, len(ops))
	for i, op := range ops {
		if err := op.Validate(); err != nil {
			return fmt.Errorf("history entry %d: %w", i, err)
		}
		h.clock.Observe(op.Timestamp)
		loaded = append(loaded, op)
	}
	h.ops = loaded
	h.Replay()
	return nil
}

// Snapshot returns a copy of the log suitable for sending to a new participant.
func (h *History) Snapshot() []Operation {
	out := make([]Operation, len(h.ops))
	copy(out, h.ops)
	return out
}

func (h *History) Len() int {
	return len(h.ops)
}

func (h *History) apply(op Operation) {
	if op.Kind == OpClear {
		h.Clear(op.Timestamp)
		return
	}
	h.ops = append(h.ops, op)
	h.surface.DrawSegment(op.From, op.To, op.Color, op.Width)
}

func (h *History) clearMark() (int64, bool) {
	if len(h.ops) > 0 && h.ops[0].Kind == OpClear {
		return h.ops[0].Timestamp, true
	}
	return 0, false
}

// compact drops everything before the last clear marker and any stroke
// older than it. Clear already truncates on write, so this only does work
// on a log that was loaded in an inconsistent state.
func (h *History) compact(ops []Operation) []Operation {
	last := -1
	for i, op := range ops {
		if op.Kind == OpClear {
			last = i
		}
	}
	if last < 0 {
		return ops
	}
	mark := ops[last].Timestamp
	out := make([]Operation, 0, len(ops)-last)
	out = append(out, ops[last])
	for _, op := range ops[last+1:] {
		if op.Timestamp < mark {
			continue
		}
		out = append(out, op)
	}
	if dropped := len(ops) - len(out); dropped > 0 {
		h.log.Warn().Int("dropped", dropped).Msg("truncated entries preceding an embedded clear")
	}
	return out
}

// Render paints ops onto s in order, starting from a blank surface.
func Render(ops []Operation, s Surface) {
	s.ClearAll()
	for _, op := range ops {
		switch op.Kind {
		case OpClear:
			s.ClearAll()
		case OpStroke:
			s.DrawSegment(op.From, op.To, op.Color, op.Width)
		}
	}
}
