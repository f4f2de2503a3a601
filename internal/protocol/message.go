// Package protocol defines the messages peers exchange over a board channel.
//
// Every frame is a JSON envelope {"type": kind, "origin": sender, "data": {...}}.
// Decode only ever yields one of the concrete message types below; anything
// else is reported as ErrUnknownKind or ErrMalformed so the caller can drop it.
package protocol

import "PeerBoard/internal/state"

type Kind string

const (
	KindDraw         Kind = "draw"
	KindClear        Kind = "clear"
	KindCursor       Kind = "cursor"
	KindJoin         Kind = "join"
	KindRequestState Kind = "requestState"
	KindState        Kind = "state"
	KindRoster       Kind = "roster"
	KindPromote      Kind = "promote"
	KindDemote       Kind = "demote"
	KindKick         Kind = "kick"
	KindNotice       Kind = "notice"
)

// Message is the closed set of payloads. The unexported method keeps
// other packages from adding variants.
type Message interface {
	Kind() Kind
	validate() error
}

// Envelope is a message plus the id of the participant that produced it.
// Relayed messages keep their original origin.
type Envelope struct {
	Origin  string
	Message Message
}

type Draw struct {
	From      state.Point `json:"from"`
	To        state.Point `json:"to"`
	Color     string      `json:"color"`
	Width     float64     `json:"width"`
	Timestamp int64       `json:"timestamp"`
}

func (Draw) Kind() Kind { return KindDraw }

func (m Draw) Operation() state.Operation {
	return state.NewStroke(m.From, m.To, m.Color, m.Width, m.Timestamp)
}

func DrawFrom(op state.Operation) Draw {
	return Draw{From: op.From, To: op.To, Color: op.Color, Width: op.Width, Timestamp: op.Timestamp}
}

type Clear struct {
	Timestamp int64 `json:"timestamp"`
}

func (Clear) Kind() Kind { return KindClear }

func (m Clear) Operation() state.Operation {
	return state.NewClear(m.Timestamp)
}

// Cursor is a live pointer position. It is never logged.
type Cursor struct {
	Position state.Point `json:"position"`
}

func (Cursor) Kind() Kind { return KindCursor }

type Join struct {
	Name  string     `json:"name"`
	Color string     `json:"color"`
	Role  state.Role `json:"role"`
}

func (Join) Kind() Kind { return KindJoin }

type RequestState struct{}

func (RequestState) Kind() Kind { return KindRequestState }

type State struct {
	History []state.Operation `json:"history"`
}

func (State) Kind() Kind { return KindState }

type Roster struct {
	Participants []state.Participant `json:"participants"`
}

func (Roster) Kind() Kind { return KindRoster }

type Promote struct {
	TargetID string `json:"targetId"`
}

func (Promote) Kind() Kind { return KindPromote }

type Demote struct {
	TargetID string `json:"targetId"`
}

func (Demote) Kind() Kind { return KindDemote }

type Kick struct {
	TargetID string `json:"targetId"`
}

func (Kick) Kind() Kind { return KindKick }

type Notice struct {
	Text string `json:"text"`
}

func (Notice) Kind() Kind { return KindNotice }
