package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	boardnet "PeerBoard/internal/net"
	"PeerBoard/internal/render"
	"PeerBoard/internal/state"
)

const (
	waitFor = 5 * time.Second
	tick    = 20 * time.Millisecond
)

func testConfig(name string) Config {
	return Config{Name: name, ListenAddr: "127.0.0.1:0", ResolveTimeout: time.Second}
}

// drain keeps the update stream moving the way a UI would.
func drain(s *Session) {
	go func() {
		for range s.Updates() {
		}
	}()
}

func rosterLen(s *Session) int {
	r, err := s.Roster()
	if err != nil {
		return -1
	}
	return len(r)
}

func TestSessionEndToEnd(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hostRec := render.NewRecorder(800, 600)
	host, err := Host(ctx, testConfig("Hana"), hostRec)
	require.NoError(t, err)
	defer host.Leave()
	drain(host)
	assert.True(t, host.IsHost())
	assert.Len(t, host.ID(), 6)

	pRec := render.NewRecorder(800, 600)
	p, err := Join(ctx, testConfig("Pat"), host.Link().String(), pRec)
	require.NoError(t, err)
	defer p.Leave()
	drain(p)

	require.NoError(t, host.Draw(state.Point{X: 0, Y: 0}, state.Point{X: 10, Y: 10}, "#ff0000", 2))
	require.Eventually(t, func() bool { return len(pRec.Segments()) == 1 }, waitFor, tick)

	qRec := render.NewRecorder(800, 600)
	q, err := Join(ctx, testConfig("Quinn"), host.Link().String(), qRec)
	require.NoError(t, err)
	defer q.Leave()
	drain(q)

	// Q catches up on what was drawn before it joined.
	require.Eventually(t, func() bool { return len(qRec.Segments()) == 1 }, waitFor, tick)
	for _, s := range []*Session{host, p, q} {
		require.Eventually(t, func() bool { return rosterLen(s) == 3 }, waitFor, tick, s.String())
	}

	require.NoError(t, p.Draw(state.Point{X: 10, Y: 10}, state.Point{X: 20, Y: 5}, "#00ff00", 3))
	require.Eventually(t, func() bool { return len(qRec.Segments()) == 2 }, waitFor, tick)
	require.Eventually(t, func() bool { return len(hostRec.Segments()) == 2 }, waitFor, tick)
	assert.Len(t, pRec.Segments(), 2)

	assert.ErrorIs(t, q.Clear(), ErrNotPermitted)
	assert.ErrorIs(t, q.Kick(selfOf(t, p).ID), ErrNotHost)

	require.NoError(t, host.Promote(selfOf(t, q).ID))
	require.Eventually(t, func() bool {
		self, err := q.Self()
		return err == nil && self.Role == state.RoleAdmin
	}, waitFor, tick)
	require.NoError(t, q.Clear())
	for _, rec := range []*render.Recorder{hostRec, pRec, qRec} {
		require.Eventually(t, func() bool { return len(rec.Segments()) == 0 }, waitFor, tick)
	}
	hist, err := host.History()
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, state.OpClear, hist[0].Kind)

	require.NoError(t, host.Kick(selfOf(t, p).ID))
	select {
	case <-p.Done():
	case <-time.After(waitFor):
		t.Fatal("kicked participant is still in the session")
	}
	assert.Contains(t, p.EndReason(), "removed")
	require.Eventually(t, func() bool { return rosterLen(q) == 2 }, waitFor, tick)
	assert.ErrorIs(t, p.Draw(state.Point{}, state.Point{X: 1, Y: 1}, "#000000", 1), ErrSessionEnded)

	host.Leave()
	select {
	case <-q.Done():
	case <-time.After(waitFor):
		t.Fatal("participant outlived its host")
	}
	assert.Equal(t, "the host left the session", q.EndReason())
	assert.Equal(t, "you left the session", host.EndReason())
}

func TestJoinUnknownCode(t *testing.T) {
	ctx := context.Background()
	host, err := Host(ctx, testConfig("Hana"), render.NewRecorder(10, 10))
	require.NoError(t, err)
	defer host.Leave()

	wrong := host.Link()
	wrong.SessionID = "100000"
	if wrong.SessionID == host.ID() {
		wrong.SessionID = "100001"
	}
	_, err = Join(ctx, testConfig("Pat"), wrong.String(), render.NewRecorder(10, 10))

	var cerr *boardnet.ConnectError
	require.True(t, errors.As(err, &cerr))
	assert.ErrorIs(t, err, boardnet.ErrUnknownSession)
}

func TestJoinRejectsGarbageTarget(t *testing.T) {
	_, err := Join(context.Background(), testConfig("Pat"), "http://example.com", render.NewRecorder(10, 10))
	var cerr *boardnet.ConnectError
	assert.True(t, errors.As(err, &cerr))
}

func TestHostRequiresName(t *testing.T) {
	_, err := Host(context.Background(), testConfig("  "), render.NewRecorder(10, 10))
	assert.Error(t, err)
	_, err = Host(context.Background(), testConfig(strings.Repeat("n", state.MaxNameLen+1)), render.NewRecorder(10, 10))
	assert.Error(t, err)
}

func TestPeerCannotTakeTheHostID(t *testing.T) {
	ctx := context.Background()
	host, err := Host(ctx, testConfig("Hana"), render.NewRecorder(10, 10))
	require.NoError(t, err)
	defer host.Leave()
	drain(host)

	impostor := boardnet.NewTransport(boardnet.Metadata{ID: host.ID(), Name: "Mallory", Color: "#000000", Role: state.RoleViewer})
	defer func() { _ = impostor.Close() }()
	_, err = impostor.Connect(ctx, host.Link().Addr, host.ID())

	var cerr *boardnet.ConnectError
	require.True(t, errors.As(err, &cerr))
	assert.ErrorIs(t, err, boardnet.ErrIDInUse)

	self := selfOf(t, host)
	assert.Equal(t, "Hana", self.Name)
	assert.Equal(t, state.RoleHost, self.Role)
	assert.Equal(t, 1, rosterLen(host))
	assert.NoError(t, host.Clear())
}

func TestCursorDoesNotWaitForABusyLoop(t *testing.T) {
	host, err := Host(context.Background(), testConfig("Hana"), render.NewRecorder(10, 10))
	require.NoError(t, err)
	defer host.Leave()
	drain(host)

	release := make(chan struct{})
	busy := make(chan struct{})
	go func() {
		_ = host.call(func() error {
			close(busy)
			<-release
			return nil
		})
	}()
	<-busy

	returned := make(chan struct{})
	go func() {
		host.Cursor(state.Point{X: 1, Y: 1})
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(waitFor):
		t.Fatal("Cursor blocked while the session loop was busy")
	}
	close(release)
}

func TestCallsAfterLeave(t *testing.T) {
	host, err := Host(context.Background(), testConfig("Hana"), render.NewRecorder(10, 10))
	require.NoError(t, err)
	drain(host)
	require.NoError(t, host.Draw(state.Point{}, state.Point{X: 3, Y: 4}, "#000000", 1))
	host.Leave()
	host.Leave()

	hist, err := host.History()
	require.NoError(t, err)
	assert.Len(t, hist, 1)

	assert.ErrorIs(t, host.Notice("anyone?"), ErrSessionEnded)
	_, err = host.Roster()
	assert.ErrorIs(t, err, ErrSessionEnded)
	assert.ErrorIs(t, host.Draw(state.Point{}, state.Point{X: 1, Y: 1}, "#000000", 1), ErrSessionEnded)
	host.Cursor(state.Point{X: 1, Y: 1})
}

func selfOf(t *testing.T, s *Session) state.Participant {
	t.Helper()
	p, err := s.Self()
	require.NoError(t, err)
	return p
}
