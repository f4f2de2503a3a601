package session

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	boardnet "PeerBoard/internal/net"
	"PeerBoard/internal/protocol"
	"PeerBoard/internal/state"
)

// SessionState is everything one node knows about the session it is in.
type SessionState struct {
	SessionID string
	IsHost    bool
	Roster    *state.Roster
	History   *state.History
	Clock     *state.Clock
	Directory *Directory
}

func (st *SessionState) SelfID() string { return st.Roster.SelfID() }

// Router applies inbound messages and local actions to a SessionState.
// It is not safe for concurrent use; the session loop is its only caller.
type Router struct {
	st        *SessionState
	mod       *Moderator
	notify    func(Update)
	ended     bool
	endReason string
	log       zerolog.Logger
}

func NewRouter(st *SessionState, notify func(Update)) *Router {
	if notify == nil {
		notify = func(Update) {}
	}
	r := &Router{
		st:     st,
		notify: notify,
		log:    log.With().Str("component", "router").Str("self", st.SelfID()).Bool("host", st.IsHost).Logger(),
	}
	r.mod = &Moderator{r: r}
	return r
}

func (r *Router) State() *SessionState { return r.st }

func (r *Router) Moderator() *Moderator { return r.mod }

func (r *Router) Ended() (bool, string) { return r.ended, r.endReason }

// HandleEvent is the entry point for everything the transport reports.
func (r *Router) HandleEvent(ev boardnet.Event) {
	switch ev.Kind {
	case boardnet.EventOpen:
		r.onOpen(ev.Channel)
	case boardnet.EventData:
		r.Dispatch(ev.Channel, ev.Envelope)
	case boardnet.EventClose:
		r.onClose(ev.Channel)
	case boardnet.EventError:
		r.log.Warn().Err(ev.Err).Str("peer", ev.Channel.PeerID()).Msg("channel error")
		r.notify(Update{Kind: UpdateNotice, Text: fmt.Sprintf("connection problem with %s: %v", r.nameOf(ev.Channel.PeerID()), ev.Err)})
	}
}

// Dispatch routes one decoded message by kind.
func (r *Router) Dispatch(from boardnet.Channel, env protocol.Envelope) {
	if cur, ok := r.st.Directory.Channel(from.PeerID()); !ok || cur != from {
		r.log.Debug().Str("peer", from.PeerID()).Msg("message from unregistered channel")
		return
	}
	origin := env.Origin
	// The host only has direct neighbours, so the channel is the sender.
	if r.st.IsHost || origin == "" {
		origin = from.PeerID()
	}
	switch m := env.Message.(type) {
	case protocol.Draw:
		r.appendRemote(m.Operation(), origin, from, env)
	case protocol.Clear:
		r.appendRemote(m.Operation(), origin, from, env)
	case protocol.Cursor:
		r.notify(Update{Kind: UpdateCursor, From: origin, Position: m.Position})
		r.relay(env, origin, from)
	case protocol.Join:
		r.onJoin(origin, m)
	case protocol.RequestState:
		r.onRequestState(origin)
	case protocol.State:
		r.onState(origin, m)
	case protocol.Roster:
		r.onRoster(origin, m)
	case protocol.Promote:
		r.mod.applyRole(origin, m.TargetID, state.RoleAdmin)
	case protocol.Demote:
		r.mod.applyRole(origin, m.TargetID, state.RoleViewer)
	case protocol.Kick:
		r.mod.applyKick(origin, m.TargetID)
	case protocol.Notice:
		r.notify(Update{Kind: UpdateNotice, From: origin, Text: m.Text})
	default:
		r.log.Debug().Str("origin", origin).Msgf("ignoring %T", env.Message)
	}
}

// Draw records a segment drawn locally and sends it out.
func (r *Router) Draw(from, to state.Point, color string, width float64) (state.Operation, error) {
	op := state.NewStroke(from, to, color, width, r.st.Clock.Tick())
	if err := r.st.History.Append(op); err != nil {
		return state.Operation{}, err
	}
	r.st.Directory.Broadcast(r.envelope(protocol.DrawFrom(op)))
	return op, nil
}

// Clear wipes the board for everyone. Viewers may not clear.
func (r *Router) Clear() error {
	if !r.st.Roster.Self().Role.CanClear() {
		return ErrNotPermitted
	}
	op := r.st.History.Clear(r.st.Clock.Tick())
	r.st.Directory.Broadcast(r.envelope(protocol.Clear{Timestamp: op.Timestamp}))
	return nil
}

func (r *Router) Cursor(p state.Point) {
	r.st.Directory.Broadcast(r.envelope(protocol.Cursor{Position: p}))
}

// Notice broadcasts an announcement. Only the host speaks for the session.
func (r *Router) Notice(text string) error {
	if !r.st.IsHost {
		return ErrNotHost
	}
	if err := protocol.Validate(protocol.Notice{Text: text}); err != nil {
		return err
	}
	r.announce(text)
	return nil
}

// AnnounceJoin introduces a freshly connected participant to the host and
// asks for the board so far.
func (r *Router) AnnounceJoin() {
	self := r.st.Roster.Self()
	r.st.Directory.Broadcast(r.envelope(protocol.Join{Name: self.Name, Color: self.Color, Role: self.Role}))
	r.st.Directory.Broadcast(r.envelope(protocol.RequestState{}))
}

func (r *Router) onOpen(ch boardnet.Channel) {
	if !r.st.IsHost {
		r.log.Warn().Str("peer", ch.PeerID()).Msg("participants do not accept channels")
		_ = ch.Close()
		return
	}
	p := ch.Metadata().Participant()
	if existing, ok := r.st.Roster.Get(p.ID); p.ID == r.st.SelfID() || (ok && existing.Role == state.RoleHost) {
		r.log.Warn().Str("peer", p.ID).Str("name", p.Name).Msg("refusing channel that claims the host id")
		_ = ch.Close()
		return
	}
	r.st.Directory.Register(ch)
	p.Role = r.admitRole(p.ID, p.Role)
	r.st.Roster.AddOrUpdate(p)
	r.log.Info().Str("peer", p.ID).Str("name", p.Name).Msg("participant connected")
	r.broadcastRoster()
	r.announce(fmt.Sprintf("%s joined", p.Name))
}

func (r *Router) onClose(ch boardnet.Channel) {
	if !r.st.Directory.Unregister(ch) {
		return
	}
	id := ch.PeerID()
	if !r.st.IsHost {
		if id == r.st.SessionID {
			r.end("the host left the session")
		}
		return
	}
	name := r.nameOf(id)
	if r.st.Roster.Remove(id) {
		r.log.Info().Str("peer", id).Msg("participant left")
		r.broadcastRoster()
		r.announce(fmt.Sprintf("%s left", name))
	}
}

// appendRemote records an operation from a peer. On the host it is then
// relayed to everyone but the channel it came from.
func (r *Router) appendRemote(op state.Operation, origin string, from boardnet.Channel, env protocol.Envelope) {
	applied, err := r.st.History.AppendRemote(op)
	if err != nil {
		r.log.Warn().Err(err).Str("origin", origin).Msg("rejected operation")
		return
	}
	if !applied {
		return
	}
	r.relay(env, origin, from)
}

func (r *Router) relay(env protocol.Envelope, origin string, from boardnet.Channel) {
	if !r.st.IsHost || origin == r.st.SelfID() {
		return
	}
	env.Origin = origin
	r.st.Directory.Broadcast(env, from.PeerID())
}

func (r *Router) onJoin(origin string, m protocol.Join) {
	color, err := state.NormalizeColor(m.Color)
	if err != nil {
		color = state.DefaultInk
	}
	p := state.Participant{ID: origin, Name: m.Name, Color: color, Role: m.Role}
	if !r.st.IsHost {
		r.st.Roster.AddOrUpdate(p)
		r.notify(Update{Kind: UpdateRoster, Roster: r.st.Roster.Snapshot()})
		return
	}
	p.Role = r.admitRole(origin, m.Role)
	r.st.Roster.AddOrUpdate(p)
	r.broadcastRoster()
}

func (r *Router) onRequestState(origin string) {
	if !r.st.IsHost {
		r.log.Debug().Str("origin", origin).Msg("state requested from a non-host, ignoring")
		return
	}
	history := r.st.History.Snapshot()
	r.log.Debug().Str("peer", origin).Int("ops", len(history)).Msg("sending state")
	r.st.Directory.SendTo(origin, r.envelope(protocol.State{History: history}))
}

func (r *Router) onState(origin string, m protocol.State) {
	if r.st.IsHost {
		r.log.Warn().Str("origin", origin).Msg("host ignores state snapshots")
		return
	}
	if err := r.st.History.Load(m.History); err != nil {
		r.log.Warn().Err(err).Msg("discarding state snapshot")
		return
	}
	r.log.Info().Int("ops", len(m.History)).Msg("board state loaded")
}

func (r *Router) onRoster(origin string, m protocol.Roster) {
	if r.st.IsHost {
		r.log.Warn().Str("origin", origin).Msg("host ignores roster snapshots")
		return
	}
	before := r.st.Roster.Self().Role
	r.st.Roster.Reconcile(m.Participants)
	r.notify(Update{Kind: UpdateRoster, Roster: r.st.Roster.Snapshot()})
	if after := r.st.Roster.Self().Role; after != before {
		r.notify(Update{Kind: UpdateRole, Role: after})
	}
}

// admitRole keeps a known participant's role; newcomers start as viewers
// whatever they claim, so the host stays the only source of promotions.
func (r *Router) admitRole(id string, claimed state.Role) state.Role {
	if p, ok := r.st.Roster.Get(id); ok && p.Role != state.RoleHost {
		return p.Role
	}
	if claimed != state.RoleViewer {
		r.log.Debug().Str("peer", id).Str("claimed", string(claimed)).Msg("admitting as viewer")
	}
	return state.RoleViewer
}

func (r *Router) broadcastRoster() {
	snapshot := r.st.Roster.Snapshot()
	r.st.Directory.Broadcast(r.envelope(protocol.Roster{Participants: snapshot}))
	r.notify(Update{Kind: UpdateRoster, Roster: snapshot})
}

func (r *Router) announce(text string) {
	r.st.Directory.Broadcast(r.envelope(protocol.Notice{Text: text}))
	r.notify(Update{Kind: UpdateNotice, From: r.st.SelfID(), Text: text})
}

func (r *Router) end(reason string) {
	if r.ended {
		return
	}
	r.ended = true
	r.endReason = reason
	r.log.Info().Str("reason", reason).Msg("session ended")
	r.notify(Update{Kind: UpdateEnded, Text: reason})
}

func (r *Router) envelope(m protocol.Message) protocol.Envelope {
	return protocol.Envelope{Origin: r.st.SelfID(), Message: m}
}

func (r *Router) nameOf(id string) string {
	if p, ok := r.st.Roster.Get(id); ok && p.Name != "" {
		return p.Name
	}
	return id
}
