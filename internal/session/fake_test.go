package session

import (
	"errors"
	"sync"

	boardnet "PeerBoard/internal/net"
	"PeerBoard/internal/protocol"
	"PeerBoard/internal/render"
	"PeerBoard/internal/state"
)

type fakeChannel struct {
	mu      sync.Mutex
	meta    boardnet.Metadata
	open    bool
	sendErr error
	sent    []protocol.Envelope
}

func newFake(id, name string, role state.Role) *fakeChannel {
	return &fakeChannel{
		meta: boardnet.Metadata{ID: id, Name: name, Color: "#336699", Role: role},
		open: true,
	}
}

func (f *fakeChannel) PeerID() string { return f.meta.ID }

func (f *fakeChannel) Metadata() boardnet.Metadata { return f.meta }

func (f *fakeChannel) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeChannel) Send(env protocol.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return boardnet.ErrChannelClosed
	}
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, env)
	return nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
	return nil
}

// received returns what was sent on f with the given kind.
func (f *fakeChannel) received(kind protocol.Kind) []protocol.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []protocol.Envelope
	for _, env := range f.sent {
		if env.Message.Kind() == kind {
			out = append(out, env)
		}
	}
	return out
}

func (f *fakeChannel) reset() {
	f.mu.Lock()
	f.sent = nil
	f.mu.Unlock()
}

var errBroken = errors.New("broken pipe")

type updateLog struct {
	updates []Update
}

func (l *updateLog) add(u Update) { l.updates = append(l.updates, u) }

func (l *updateLog) of(kind UpdateKind) []Update {
	var out []Update
	for _, u := range l.updates {
		if u.Kind == kind {
			out = append(out, u)
		}
	}
	return out
}

const hostID = "500500"

func newHostRouter() (*Router, *render.Recorder, *updateLog) {
	rec := render.NewRecorder(800, 600)
	self := state.Participant{ID: hostID, Name: "Hana", Color: "#ff0000", Role: state.RoleHost}
	ups := &updateLog{}
	r := NewRouter(newState(hostID, true, state.NewRoster(self), NewDirectory(), rec), ups.add)
	return r, rec, ups
}

// newParticipantRouter wires a participant to a fake host channel.
func newParticipantRouter(id string) (*Router, *fakeChannel, *render.Recorder, *updateLog) {
	rec := render.NewRecorder(800, 600)
	host := newFake(hostID, "Hana", state.RoleHost)
	self := state.Participant{ID: id, Name: "Pat", Color: "#00ff00", Role: state.RoleViewer}
	roster := state.NewRoster(self)
	roster.AddOrUpdate(host.Metadata().Participant())
	dir := NewDirectory()
	dir.Register(host)
	ups := &updateLog{}
	r := NewRouter(newState(hostID, false, roster, dir, rec), ups.add)
	return r, host, rec, ups
}

func openAll(r *Router, chans ...*fakeChannel) {
	for _, ch := range chans {
		r.HandleEvent(boardnet.Event{Kind: boardnet.EventOpen, Channel: ch})
	}
}
