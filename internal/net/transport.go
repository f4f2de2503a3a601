package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"PeerBoard/internal/protocol"
	"PeerBoard/internal/state"
)

const (
	boardPath   = "/board/"
	writeWait   = 5 * time.Second
	maxFrame    = 8 << 20
	eventBuffer = 256

	headerID    = "X-Peerboard-Id"
	headerName  = "X-Peerboard-Name"
	headerColor = "X-Peerboard-Color"
	headerRole  = "X-Peerboard-Role"
)

// Transport owns every websocket channel of one node. The host listens for
// channels addressed to its id; participants dial the host.
type Transport struct {
	local    Metadata
	upgrader websocket.Upgrader
	dialer   *websocket.Dialer
	events   chan Event
	done     chan struct{}
	once     sync.Once

	mu       sync.Mutex
	server   *http.Server
	channels map[*wsChannel]struct{}

	log zerolog.Logger
}

func NewTransport(local Metadata) *Transport {
	return &Transport{
		local: local,
		upgrader: websocket.Upgrader{
			// Peers are native clients, there is no browser origin to check.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		dialer:   &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		events:   make(chan Event, eventBuffer),
		done:     make(chan struct{}),
		channels: make(map[*wsChannel]struct{}),
		log:      log.With().Str("component", "transport").Str("local", local.ID).Logger(),
	}
}

func (t *Transport) LocalID() string { return t.local.ID }

// Events delivers lifecycle and data events for every channel. Events of a
// single channel arrive in order; EventOpen is only raised for inbound channels.
func (t *Transport) Events() <-chan Event { return t.events }

// Listen starts accepting channels on addr and returns the bound address.
func (t *Transport) Listen(addr string) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+boardPath+"{session}", t.handleUpgrade)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	t.mu.Lock()
	t.server = srv
	t.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.log.Error().Err(err).Msg("board server stopped")
		}
	}()
	t.log.Info().Str("addr", ln.Addr().String()).Msg("listening for participants")
	return ln.Addr(), nil
}

func (t *Transport) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("session") != t.local.ID {
		http.Error(w, ErrUnknownSession.Error(), http.StatusNotFound)
		return
	}
	meta, err := parseMetadata(func(k string) string { return r.URL.Query().Get(k) })
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if meta.ID == t.local.ID {
		t.log.Warn().Str("remote", r.RemoteAddr).Msg("peer claimed the local id")
		http.Error(w, ErrIDInUse.Error(), http.StatusConflict)
		return
	}
	conn, err := t.upgrader.Upgrade(w, r, t.local.header())
	if err != nil {
		t.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("upgrade failed")
		return
	}
	ch := t.track(conn, meta)
	t.log.Info().Str("peer", meta.ID).Str("name", meta.Name).Msg("channel opened")
	t.emit(Event{Kind: EventOpen, Channel: ch})
	go ch.readLoop()
}

// Connect dials the host of sessionID at addr and returns an open channel.
func (t *Transport) Connect(ctx context.Context, addr, sessionID string) (Channel, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: boardPath + sessionID, RawQuery: t.local.query().Encode()}
	conn, resp, err := t.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			switch resp.StatusCode {
			case http.StatusNotFound:
				err = ErrUnknownSession
			case http.StatusConflict:
				err = ErrIDInUse
			}
		}
		return nil, &ConnectError{Target: sessionID, Err: err}
	}
	remote, err := parseMetadata(resp.Header.Get)
	if err == nil && remote.ID != sessionID {
		err = fmt.Errorf("%w: host answered as %s", ErrUnknownSession, remote.ID)
	}
	if err != nil {
		_ = conn.Close()
		return nil, &ConnectError{Target: sessionID, Err: err}
	}
	ch := t.track(conn, remote)
	go ch.readLoop()
	t.log.Info().Str("host", sessionID).Str("addr", addr).Msg("connected to host")
	return ch, nil
}

// Close stops the listener and closes every channel.
func (t *Transport) Close() error {
	var err error
	t.once.Do(func() {
		t.mu.Lock()
		srv := t.server
		chans := make([]*wsChannel, 0, len(t.channels))
		for ch := range t.channels {
			chans = append(chans, ch)
		}
		t.mu.Unlock()

		for _, ch := range chans {
			_ = ch.Close()
		}
		if srv != nil {
			err = srv.Close()
		}
		close(t.done)
	})
	return err
}

func (t *Transport) track(conn *websocket.Conn, meta Metadata) *wsChannel {
	conn.SetReadLimit(maxFrame)
	ch := &wsChannel{conn: conn, meta: meta, t: t}
	ch.open.Store(true)
	t.mu.Lock()
	t.channels[ch] = struct{}{}
	t.mu.Unlock()
	return ch
}

func (t *Transport) untrack(ch *wsChannel) {
	t.mu.Lock()
	delete(t.channels, ch)
	t.mu.Unlock()
}

func (t *Transport) emit(ev Event) {
	select {
	case t.events <- ev:
	case <-t.done:
	}
}

type wsChannel struct {
	conn    *websocket.Conn
	meta    Metadata
	t       *Transport
	writeMu sync.Mutex
	open    atomic.Bool
	local   atomic.Bool // closed from this side
}

func (c *wsChannel) PeerID() string     { return c.meta.ID }
func (c *wsChannel) Metadata() Metadata { return c.meta }
func (c *wsChannel) IsOpen() bool       { return c.open.Load() }

func (c *wsChannel) Send(env protocol.Envelope) error {
	if !c.open.Load() {
		return ErrChannelClosed
	}
	frame, err := protocol.Encode(env)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("send %s to %s: %w", env.Message.Kind(), c.meta.ID, err)
	}
	return nil
}

func (c *wsChannel) Close() error {
	if !c.open.CompareAndSwap(true, false) {
		return nil
	}
	c.local.Store(true)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	c.t.untrack(c)
	return c.conn.Close()
}

func (c *wsChannel) readLoop() {
	defer func() {
		if c.open.Swap(false) {
			_ = c.conn.Close()
			c.t.untrack(c)
		}
		c.t.emit(Event{Kind: EventClose, Channel: c})
	}()
	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if !c.local.Load() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.t.emit(Event{Kind: EventError, Channel: c, Err: err})
			}
			return
		}
		env, err := protocol.Decode(frame)
		if err != nil {
			c.t.log.Warn().Err(err).Str("peer", c.meta.ID).Msg("dropping frame")
			continue
		}
		c.t.emit(Event{Kind: EventData, Channel: c, Envelope: env})
	}
}

func (m Metadata) query() url.Values {
	return url.Values{
		"id":    {m.ID},
		"name":  {m.Name},
		"color": {m.Color},
		"role":  {string(m.Role)},
	}
}

func (m Metadata) header() http.Header {
	h := http.Header{}
	h.Set(headerID, m.ID)
	h.Set(headerName, m.Name)
	h.Set(headerColor, m.Color)
	h.Set(headerRole, string(m.Role))
	return h
}

var metadataKeys = map[string]string{"id": headerID, "name": headerName, "color": headerColor, "role": headerRole}

// parseMetadata reads either query keys or handshake headers through get.
func parseMetadata(get func(string) string) (Metadata, error) {
	lookup := func(key string) string {
		if v := get(key); v != "" {
			return v
		}
		return get(metadataKeys[key])
	}
	m := Metadata{
		ID:   strings.TrimSpace(lookup("id")),
		Name: strings.TrimSpace(lookup("name")),
		Role: state.Role(lookup("role")),
	}
	if m.ID == "" {
		return Metadata{}, errors.New("metadata: missing id")
	}
	name, err := state.CleanName(m.Name)
	if err != nil {
		return Metadata{}, fmt.Errorf("metadata: %w", err)
	}
	m.Name = name
	color, err := state.NormalizeColor(lookup("color"))
	if err != nil {
		return Metadata{}, fmt.Errorf("metadata: %w", err)
	}
	m.Color = color
	if !m.Role.Valid() {
		return Metadata{}, fmt.Errorf("metadata: invalid role %q", m.Role)
	}
	return m, nil
}
