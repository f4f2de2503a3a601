package state

import (
	"errors"
	"fmt"
	"strings"
)

// MaxNameLen bounds display names in bytes, so that every announcement
// naming a participant fits in a notice.
const MaxNameLen = 64

// CleanName trims a display name and rejects empty or overlong ones.
func CleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("display name is empty")
	}
	if len(name) > MaxNameLen {
		return "", fmt.Errorf("display name longer than %d bytes", MaxNameLen)
	}
	return name, nil
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type OpKind string

const (
	OpStroke OpKind = "stroke"
	OpClear  OpKind = "clear"
)

// Operation is one entry of the history log. Stroke fields are zero for a clear.
type Operation struct {
	Kind      OpKind  `json:"kind"`
	From      Point   `json:"from"`
	To        Point   `json:"to"`
	Color     string  `json:"color,omitempty"`
	Width     float64 `json:"width,omitempty"`
	Timestamp int64   `json:"timestamp"`
}

func NewStroke(from, to Point, color string, width float64, ts int64) Operation {
	return Operation{Kind: OpStroke, From: from, To: to, Color: color, Width: width, Timestamp: ts}
}

func NewClear(ts int64) Operation {
	return Operation{Kind: OpClear, Timestamp: ts}
}

// Validate checks the fields a stroke or clear needs before it may enter a log.
func (op Operation) Validate() error {
	if op.Timestamp <= 0 {
		return fmt.Errorf("%s needs a positive timestamp, got %d", op.Kind, op.Timestamp)
	}
	switch op.Kind {
	case OpStroke:
		if op.Width <= 0 {
			return fmt.Errorf("stroke width must be positive, got %v", op.Width)
		}
		if _, err := ParseColor(op.Color); err != nil {
			return err
		}
	case OpClear:
	default:
		return fmt.Errorf("unknown operation kind %q", op.Kind)
	}
	return nil
}

type Role string

const (
	RoleHost   Role = "host"
	RoleAdmin  Role = "admin"
	RoleViewer Role = "viewer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleHost, RoleAdmin, RoleViewer:
		return true
	}
	return false
}

// CanClear reports whether the role may wipe the shared board.
func (r Role) CanClear() bool {
	return r == RoleHost || r == RoleAdmin
}

type Participant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Role  Role   `json:"role"`
}

// Surface is anything strokes can be painted onto.
type Surface interface {
	DrawSegment(from, to Point, color string, width float64)
	ClearAll()
	ViewportSize() (w, h float64)
}
