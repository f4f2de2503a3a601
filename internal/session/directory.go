package session

import (
	"errors"
	"slices"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	boardnet "PeerBoard/internal/net"
	"PeerBoard/internal/protocol"
)

// Directory maps participant ids to their channels for one session.
// On a participant node it holds a single entry: the host.
type Directory struct {
	order    []string
	channels map[string]boardnet.Channel
	log      zerolog.Logger
}

func NewDirectory() *Directory {
	return &Directory{
		channels: make(map[string]boardnet.Channel),
		log:      log.With().Str("component", "directory").Logger(),
	}
}

// Register adds ch, replacing any earlier channel of the same peer.
func (d *Directory) Register(ch boardnet.Channel) {
	id := ch.PeerID()
	if old, ok := d.channels[id]; ok && old != ch {
		d.log.Info().Str("peer", id).Msg("replacing stale channel")
		_ = old.Close()
	} else if !ok {
		d.order = append(d.order, id)
	}
	d.channels[id] = ch
	d.log.Debug().Str("peer", id).Int("channels", len(d.channels)).Msg("registered")
}

// Unregister removes ch. It reports false when ch is not the registered
// channel for its peer, e.g. after a kick already removed it.
func (d *Directory) Unregister(ch boardnet.Channel) bool {
	id := ch.PeerID()
	if cur, ok := d.channels[id]; !ok || cur != ch {
		return false
	}
	delete(d.channels, id)
	for i, v := range d.order {
		if v == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	d.log.Debug().Str("peer", id).Int("channels", len(d.channels)).Msg("unregistered")
	return true
}

// Broadcast sends env to every open channel not listed in exclude.
// Delivery is best effort: failures are logged and skipped.
func (d *Directory) Broadcast(env protocol.Envelope, exclude ...string) {
	for _, id := range d.order {
		if slices.Contains(exclude, id) {
			continue
		}
		ch := d.channels[id]
		if !ch.IsOpen() {
			continue
		}
		if err := ch.Send(env); err != nil {
			d.logSendError(id, env, err)
		}
	}
}

// SendTo delivers env to one peer, logging instead of failing when the peer
// is gone.
func (d *Directory) SendTo(id string, env protocol.Envelope) {
	ch, ok := d.channels[id]
	if !ok || !ch.IsOpen() {
		d.log.Info().Str("peer", id).Str("kind", string(env.Message.Kind())).Msg("no open channel, message dropped")
		return
	}
	if err := ch.Send(env); err != nil {
		d.logSendError(id, env, err)
	}
}

func (d *Directory) Channel(id string) (boardnet.Channel, bool) {
	ch, ok := d.channels[id]
	return ch, ok
}

// IDs lists the peers with an open channel, in registration order.
func (d *Directory) IDs() []string {
	ids := make([]string, 0, len(d.order))
	for _, id := range d.order {
		if d.channels[id].IsOpen() {
			ids = append(ids, id)
		}
	}
	return ids
}

func (d *Directory) Len() int {
	return len(d.channels)
}

// CloseAll closes and forgets every channel.
func (d *Directory) CloseAll() {
	for _, id := range d.order {
		if err := d.channels[id].Close(); err != nil {
			d.log.Debug().Err(err).Str("peer", id).Msg("close")
		}
	}
	d.order = nil
	d.channels = make(map[string]boardnet.Channel)
}

func (d *Directory) logSendError(id string, env protocol.Envelope, err error) {
	ev := d.log.Warn()
	if errors.Is(err, boardnet.ErrChannelClosed) {
		ev = d.log.Debug()
	}
	ev.Err(err).Str("peer", id).Str("kind", string(env.Message.Kind())).Msg("send failed")
}
