package net

import (
	"errors"
	"fmt"

	"PeerBoard/internal/protocol"
	"PeerBoard/internal/state"
)

var (
	ErrChannelClosed  = errors.New("channel closed")
	ErrUnknownSession = errors.New("unknown session")
	ErrIDInUse        = errors.New("participant id already in use")
)

// ConnectError reports that no channel to Target could be established.
type ConnectError struct {
	Target string
	Err    error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect to %s: %v", e.Target, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// Metadata is what a peer tells us about itself when the link is set up.
type Metadata struct {
	ID    string
	Name  string
	Color string
	Role  state.Role
}

func (m Metadata) Participant() state.Participant {
	return state.Participant{ID: m.ID, Name: m.Name, Color: m.Color, Role: m.Role}
}

// Channel is one ordered, bidirectional link to a single remote participant.
type Channel interface {
	PeerID() string
	Metadata() Metadata
	IsOpen() bool
	Send(env protocol.Envelope) error
	Close() error
}

type EventKind int

const (
	EventOpen EventKind = iota
	EventData
	EventClose
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventOpen:
		return "open"
	case EventData:
		return "data"
	case EventClose:
		return "close"
	case EventError:
		return "error"
	}
	return "unknown"
}

// Event is a lifecycle or data notification for one channel.
type Event struct {
	Kind     EventKind
	Channel  Channel
	Envelope protocol.Envelope
	Err      error
}
