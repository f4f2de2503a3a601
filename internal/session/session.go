package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	boardnet "PeerBoard/internal/net"
	"PeerBoard/internal/share"
	"PeerBoard/internal/state"
)

const updateBuffer = 256

type Config struct {
	Name           string
	Color          string
	ListenAddr     string
	Advertise      bool
	ResolveTimeout time.Duration
}

// Session is one node's membership in a shared board. A single goroutine
// owns all session state; every exported method hands work to it.
type Session struct {
	id     string
	isHost bool
	link   share.Link

	router    *Router
	transport *boardnet.Transport
	stopAd    func() error

	calls     chan func()
	updates   chan Update
	leave     chan struct{}
	leaveOnce sync.Once
	done      chan struct{}
	final     []state.Operation

	log zerolog.Logger
}

// Host starts a new session on this node.
func Host(ctx context.Context, cfg Config, surface state.Surface) (*Session, error) {
	code := share.NewCode()
	self, err := cfg.participant(code, state.RoleHost)
	if err != nil {
		return nil, err
	}
	tr := boardnet.NewTransport(metadataOf(self))

	addr, err := tr.Listen(cfg.ListenAddr)
	if err != nil {
		return nil, err
	}
	tcp := addr.(*net.TCPAddr)
	ip, port := tcp.IP, tcp.Port
	if ip == nil || ip.IsUnspecified() {
		ip = boardnet.OutgoingIP()
	}
	link := share.Link{Addr: net.JoinHostPort(ip.String(), strconv.Itoa(port)), SessionID: code}

	var stopAd func() error
	if cfg.Advertise {
		server, err := boardnet.Advertise(code, ip, port)
		if err != nil {
			log.Warn().Err(err).Msg("joining by code alone will not work on this network")
		} else {
			stopAd = server.Shutdown
		}
	}

	s := newSession(code, true, link, tr, stopAd)
	s.router = NewRouter(newState(code, true, state.NewRoster(self), NewDirectory(), surface), s.publish)
	s.log.Info().Str("link", link.String()).Msg("hosting session")
	go s.run(ctx)
	return s, nil
}

// Join connects to an existing session. target is a share link or a bare
// session code, which is looked up over mDNS.
func Join(ctx context.Context, cfg Config, target string, surface state.Surface) (*Session, error) {
	t, err := share.ParseTarget(target)
	if err != nil {
		return nil, &boardnet.ConnectError{Target: target, Err: err}
	}
	if t.Addr == "" {
		t.Addr, err = boardnet.Resolve(ctx, t.SessionID, cfg.ResolveTimeout)
		if err != nil {
			return nil, err
		}
	}

	self, err := cfg.participant(uuid.NewString(), state.RoleViewer)
	if err != nil {
		return nil, err
	}
	tr := boardnet.NewTransport(metadataOf(self))
	ch, err := tr.Connect(ctx, t.Addr, t.SessionID)
	if err != nil {
		_ = tr.Close()
		return nil, err
	}

	s := newSession(t.SessionID, false, t, tr, nil)
	roster := state.NewRoster(self)
	roster.AddOrUpdate(ch.Metadata().Participant())
	dir := NewDirectory()
	dir.Register(ch)
	s.router = NewRouter(newState(t.SessionID, false, roster, dir, surface), s.publish)
	s.router.AnnounceJoin()
	s.log.Info().Str("host", t.SessionID).Str("addr", t.Addr).Msg("joined session")
	go s.run(ctx)
	return s, nil
}

func (c Config) participant(id string, role state.Role) (state.Participant, error) {
	name, err := state.CleanName(c.Name)
	if err != nil {
		return state.Participant{}, err
	}
	color := c.Color
	if color == "" {
		color = state.RandomColor()
	}
	color, err = state.NormalizeColor(color)
	if err != nil {
		return state.Participant{}, err
	}
	return state.Participant{ID: id, Name: name, Color: color, Role: role}, nil
}

func newSession(id string, isHost bool, link share.Link, tr *boardnet.Transport, stopAd func() error) *Session {
	return &Session{
		id:        id,
		isHost:    isHost,
		link:      link,
		transport: tr,
		stopAd:    stopAd,
		calls:     make(chan func()),
		updates:   make(chan Update, updateBuffer),
		leave:     make(chan struct{}),
		done:      make(chan struct{}),
		log:       log.With().Str("component", "session").Str("session", id).Logger(),
	}
}

func newState(id string, isHost bool, roster *state.Roster, dir *Directory, surface state.Surface) *SessionState {
	clock := state.NewClock()
	return &SessionState{
		SessionID: id,
		IsHost:    isHost,
		Roster:    roster,
		History:   state.NewHistory(surface, clock),
		Clock:     clock,
		Directory: dir,
	}
}

func (s *Session) run(ctx context.Context) {
	defer s.shutdown()
	events := s.transport.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.leave:
			return
		case fn := <-s.calls:
			fn()
		case ev := <-events:
			s.router.HandleEvent(ev)
		}
		if ended, _ := s.router.Ended(); ended {
			return
		}
	}
}

func (s *Session) shutdown() {
	s.router.st.Directory.CloseAll()
	if err := s.transport.Close(); err != nil {
		s.log.Debug().Err(err).Msg("transport close")
	}
	if s.stopAd != nil {
		if err := s.stopAd(); err != nil {
			s.log.Debug().Err(err).Msg("mdns shutdown")
		}
	}
	if ended, _ := s.router.Ended(); !ended {
		s.router.end("you left the session")
	}
	s.final = s.router.st.History.Snapshot()
	close(s.done)
	close(s.updates)
}

// publish runs on the session loop. A UI that falls behind loses updates
// rather than stalling the board.
func (s *Session) publish(u Update) {
	select {
	case s.updates <- u:
	default:
		if u.Kind != UpdateCursor {
			s.log.Warn().Int("kind", int(u.Kind)).Msg("update dropped, consumer is not keeping up")
		}
	}
}

func (s *Session) call(fn func() error) error {
	errc := make(chan error, 1)
	select {
	case s.calls <- func() { errc <- fn() }:
	case <-s.done:
		return ErrSessionEnded
	}
	select {
	case err := <-errc:
		return err
	case <-s.done:
		select {
		case err := <-errc:
			return err
		default:
			return ErrSessionEnded
		}
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) IsHost() bool { return s.isHost }

// Link is what other participants use to join: the host's address and the code.
func (s *Session) Link() share.Link { return s.link }

func (s *Session) Done() <-chan struct{} { return s.done }

// Updates streams roster, notice, cursor, role and end notifications. It is
// closed once the session is over.
func (s *Session) Updates() <-chan Update { return s.updates }

// EndReason is empty while the session is live.
func (s *Session) EndReason() string {
	select {
	case <-s.done:
		_, reason := s.router.Ended()
		return reason
	default:
		return ""
	}
}

func (s *Session) Draw(from, to state.Point, color string, width float64) error {
	return s.call(func() error {
		_, err := s.router.Draw(from, to, color, width)
		return err
	})
}

func (s *Session) Clear() error {
	return s.call(s.router.Clear)
}

// Cursor never blocks the caller. A pointer position is dropped when the
// session loop is busy; the next one supersedes it anyway.
func (s *Session) Cursor(p state.Point) {
	select {
	case s.calls <- func() { s.router.Cursor(p) }:
	default:
	}
}

func (s *Session) Notice(text string) error {
	return s.call(func() error { return s.router.Notice(text) })
}

func (s *Session) Promote(id string) error {
	return s.call(func() error { return s.router.Moderator().Promote(id) })
}

func (s *Session) Demote(id string) error {
	return s.call(func() error { return s.router.Moderator().Demote(id) })
}

func (s *Session) Kick(id string) error {
	return s.call(func() error { return s.router.Moderator().Kick(id) })
}

func (s *Session) Roster() ([]state.Participant, error) {
	var out []state.Participant
	err := s.call(func() error {
		out = s.router.st.Roster.Snapshot()
		return nil
	})
	return out, err
}

func (s *Session) Self() (state.Participant, error) {
	var out state.Participant
	err := s.call(func() error {
		out = s.router.st.Roster.Self()
		return nil
	})
	return out, err
}

// History is still available once the session is over: it then returns
// the board as it was when the session ended.
func (s *Session) History() ([]state.Operation, error) {
	var out []state.Operation
	err := s.call(func() error {
		out = s.router.st.History.Snapshot()
		return nil
	})
	if errors.Is(err, ErrSessionEnded) {
		return slices.Clone(s.final), nil
	}
	return out, err
}

// Leave closes every channel and waits for the session loop to stop.
func (s *Session) Leave() {
	s.leaveOnce.Do(func() { close(s.leave) })
	<-s.done
}

func (s *Session) String() string {
	role := "participant"
	if s.isHost {
		role = "host"
	}
	return fmt.Sprintf("session %s (%s)", s.id, role)
}

func metadataOf(p state.Participant) boardnet.Metadata {
	return boardnet.Metadata{ID: p.ID, Name: p.Name, Color: p.Color, Role: p.Role}
}
