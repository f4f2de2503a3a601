package session

import (
	"errors"

	"PeerBoard/internal/state"
)

var (
	ErrNotHost      = errors.New("only the host can do that")
	ErrHostRole     = errors.New("the host's role cannot be changed")
	ErrNotPermitted = errors.New("your role does not allow that")
	ErrSessionEnded = errors.New("session has ended")
)

type UpdateKind int

const (
	UpdateRoster UpdateKind = iota
	UpdateNotice
	UpdateCursor
	UpdateRole
	UpdateEnded
)

// Update tells the UI something changed. Only the fields relevant to Kind are set.
type Update struct {
	Kind     UpdateKind
	From     string
	Text     string
	Roster   []state.Participant
	Position state.Point
	Role     state.Role
}
