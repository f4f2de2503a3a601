package session

import (
	"fmt"

	"PeerBoard/internal/protocol"
	"PeerBoard/internal/state"
)

// Moderator handles promote, demote and kick. Originating a directive is a
// host capability; applying one is done at face value, since nothing in the
// protocol proves who sent it.
type Moderator struct {
	r *Router
}

func (m *Moderator) Promote(id string) error {
	return m.setRole(id, state.RoleAdmin, protocol.Promote{TargetID: id})
}

func (m *Moderator) Demote(id string) error {
	return m.setRole(id, state.RoleViewer, protocol.Demote{TargetID: id})
}

// Kick removes a participant and closes its channel.
func (m *Moderator) Kick(id string) error {
	st := m.r.st
	p, err := m.target(id)
	if err != nil || p == nil {
		return err
	}
	st.Directory.SendTo(id, m.r.envelope(protocol.Kick{TargetID: id}))
	if ch, ok := st.Directory.Channel(id); ok {
		st.Directory.Unregister(ch)
		_ = ch.Close()
	}
	st.Roster.Remove(id)
	m.r.broadcastRoster()
	m.r.announce(fmt.Sprintf("%s was removed by the host", p.Name))
	return nil
}

func (m *Moderator) setRole(id string, role state.Role, directive protocol.Message) error {
	st := m.r.st
	p, err := m.target(id)
	if err != nil || p == nil {
		return err
	}
	if p.Role == role {
		return nil
	}
	st.Roster.SetRole(id, role)
	st.Directory.SendTo(id, m.r.envelope(directive))
	m.r.broadcastRoster()
	m.r.announce(fmt.Sprintf("%s is now %s", p.Name, role))
	return nil
}

// target checks the capability and looks the participant up. A nil
// participant with a nil error means it already left: nothing to do.
func (m *Moderator) target(id string) (*state.Participant, error) {
	if !m.r.st.IsHost {
		return nil, ErrNotHost
	}
	p, ok := m.r.st.Roster.Get(id)
	if !ok {
		m.r.log.Info().Str("peer", id).Msg("moderation target already gone")
		return nil, nil
	}
	if p.Role == state.RoleHost {
		return nil, ErrHostRole
	}
	return &p, nil
}

func (m *Moderator) applyRole(origin, id string, role state.Role) {
	st := m.r.st
	if st.IsHost {
		m.r.log.Warn().Str("origin", origin).Msg("host ignores role directives")
		return
	}
	if !st.Roster.SetRole(id, role) {
		return
	}
	if id == st.SelfID() {
		m.r.notify(Update{Kind: UpdateRole, From: origin, Role: role})
	}
	m.r.notify(Update{Kind: UpdateRoster, Roster: st.Roster.Snapshot()})
}

func (m *Moderator) applyKick(origin, id string) {
	st := m.r.st
	if st.IsHost {
		m.r.log.Warn().Str("origin", origin).Msg("host ignores kick directives")
		return
	}
	if id == st.SelfID() {
		m.r.end("you were removed from the session by the host")
		return
	}
	if st.Roster.Remove(id) {
		m.r.notify(Update{Kind: UpdateRoster, Roster: st.Roster.Snapshot()})
	}
}
