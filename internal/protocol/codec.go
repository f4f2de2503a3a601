package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"PeerBoard/internal/state"
)

var (
	ErrUnknownKind = errors.New("unknown message kind")
	ErrMalformed   = errors.New("malformed message")
)

// MaxNoticeLen bounds notice text in bytes.
const MaxNoticeLen = 512

type wire struct {
	Type   Kind            `json:"type"`
	Origin string          `json:"origin,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Validate applies the checks Decode makes on the receiving side.
func Validate(m Message) error {
	if m == nil {
		return fmt.Errorf("%w: empty message", ErrMalformed)
	}
	if err := m.validate(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, m.Kind(), err)
	}
	return nil
}

// Encode serialises an envelope into one frame. It refuses anything Decode
// would reject, so the sender learns about it rather than every receiver.
func Encode(env Envelope) ([]byte, error) {
	if err := Validate(env.Message); err != nil {
		return nil, err
	}
	data, err := json.Marshal(env.Message)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", env.Message.Kind(), err)
	}
	return json.Marshal(wire{Type: env.Message.Kind(), Origin: env.Origin, Data: data})
}

// Decode parses and validates one frame.
func Decode(frame []byte) (Envelope, error) {
	var w wire
	if err := json.Unmarshal(frame, &w); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	msg, err := newMessage(w.Type)
	if err != nil {
		return Envelope{}, err
	}
	if len(w.Data) > 0 && string(w.Data) != "null" {
		if err := json.Unmarshal(w.Data, msg); err != nil {
			return Envelope{}, fmt.Errorf("%w: %s: %v", ErrMalformed, w.Type, err)
		}
	}
	m := deref(msg)
	if err := Validate(m); err != nil {
		return Envelope{}, err
	}
	return Envelope{Origin: w.Origin, Message: m}, nil
}

func newMessage(kind Kind) (any, error) {
	switch kind {
	case KindDraw:
		return &Draw{}, nil
	case KindClear:
		return &Clear{}, nil
	case KindCursor:
		return &Cursor{}, nil
	case KindJoin:
		return &Join{}, nil
	case KindRequestState:
		return &RequestState{}, nil
	case KindState:
		return &State{}, nil
	case KindRoster:
		return &Roster{}, nil
	case KindPromote:
		return &Promote{}, nil
	case KindDemote:
		return &Demote{}, nil
	case KindKick:
		return &Kick{}, nil
	case KindNotice:
		return &Notice{}, nil
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

func deref(v any) Message {
	switch m := v.(type) {
	case *Draw:
		return *m
	case *Clear:
		return *m
	case *Cursor:
		return *m
	case *Join:
		return *m
	case *RequestState:
		return *m
	case *State:
		return *m
	case *Roster:
		return *m
	case *Promote:
		return *m
	case *Demote:
		return *m
	case *Kick:
		return *m
	case *Notice:
		return *m
	}
	panic(fmt.Sprintf("protocol: unhandled message type %T", v))
}

func (m Draw) validate() error { return m.Operation().Validate() }

func (m Clear) validate() error { return m.Operation().Validate() }

func (Cursor) validate() error { return nil }

func (m Join) validate() error {
	if _, err := state.CleanName(m.Name); err != nil {
		return err
	}
	if _, err := state.ParseColor(m.Color); err != nil {
		return err
	}
	if !m.Role.Valid() {
		return fmt.Errorf("invalid role %q", m.Role)
	}
	return nil
}

func (RequestState) validate() error { return nil }

func (m State) validate() error {
	for i, op := range m.History {
		if err := op.Validate(); err != nil {
			return fmt.Errorf("history entry %d: %w", i, err)
		}
	}
	return nil
}

func (m Roster) validate() error {
	for _, p := range m.Participants {
		if p.ID == "" {
			return errors.New("participant without id")
		}
		if !p.Role.Valid() {
			return fmt.Errorf("participant %s: invalid role %q", p.ID, p.Role)
		}
	}
	return nil
}

func (m Promote) validate() error { return requireTarget(m.TargetID) }
func (m Demote) validate() error  { return requireTarget(m.TargetID) }
func (m Kick) validate() error    { return requireTarget(m.TargetID) }

func (m Notice) validate() error {
	if len(m.Text) > MaxNoticeLen {
		return fmt.Errorf("notice longer than %d bytes", MaxNoticeLen)
	}
	return nil
}

func requireTarget(id string) error {
	if id == "" {
		return errors.New("missing targetId")
	}
	return nil
}
