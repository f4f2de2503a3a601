package net

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PeerBoard/internal/protocol"
	"PeerBoard/internal/state"
)

func nextEvent(t *testing.T, tr *Transport, kind EventKind) Event {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-tr.Events():
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", kind)
		}
	}
}

func startHost(t *testing.T) (*Transport, string) {
	t.Helper()
	host := NewTransport(Metadata{ID: "424242", Name: "host", Color: "#112233", Role: state.RoleHost})
	addr, err := host.Listen("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = host.Close() })
	return host, addr.String()
}

func TestConnectCarriesMetadataBothWays(t *testing.T) {
	host, addr := startHost(t)
	guest := NewTransport(Metadata{ID: "guest-1", Name: "pat", Color: "#ABCDEF", Role: state.RoleViewer})
	t.Cleanup(func() { _ = guest.Close() })

	ch, err := guest.Connect(context.Background(), addr, "424242")
	require.NoError(t, err)
	assert.Equal(t, "424242", ch.PeerID())
	assert.Equal(t, "host", ch.Metadata().Name)
	assert.Equal(t, state.RoleHost, ch.Metadata().Role)

	open := nextEvent(t, host, EventOpen)
	assert.Equal(t, "guest-1", open.Channel.PeerID())
	assert.Equal(t, "#abcdef", open.Channel.Metadata().Color)

	require.NoError(t, ch.Send(protocol.Envelope{Origin: "guest-1", Message: protocol.Notice{Text: "hi"}}))
	data := nextEvent(t, host, EventData)
	assert.Equal(t, protocol.Notice{Text: "hi"}, data.Envelope.Message)
	assert.Equal(t, "guest-1", data.Channel.PeerID())
}

func TestConnectToWrongSessionFails(t *testing.T) {
	_, addr := startHost(t)
	guest := NewTransport(Metadata{ID: "guest-1", Name: "pat", Color: "#000000", Role: state.RoleViewer})
	t.Cleanup(func() { _ = guest.Close() })

	_, err := guest.Connect(context.Background(), addr, "000000")

	var cerr *ConnectError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "000000", cerr.Target)
	assert.True(t, errors.Is(err, ErrUnknownSession))
}

func TestSendOnClosedChannel(t *testing.T) {
	host, addr := startHost(t)
	guest := NewTransport(Metadata{ID: "guest-1", Name: "pat", Color: "#000000", Role: state.RoleViewer})
	t.Cleanup(func() { _ = guest.Close() })

	ch, err := guest.Connect(context.Background(), addr, "424242")
	require.NoError(t, err)
	nextEvent(t, host, EventOpen)

	require.NoError(t, ch.Close())
	assert.False(t, ch.IsOpen())
	err = ch.Send(protocol.Envelope{Message: protocol.RequestState{}})
	assert.True(t, errors.Is(err, ErrChannelClosed))

	closed := nextEvent(t, host, EventClose)
	assert.Equal(t, "guest-1", closed.Channel.PeerID())
}

func TestParseMetadataRejectsBadRole(t *testing.T) {
	q := Metadata{ID: "x", Name: "n", Color: "#000000", Role: "owner"}.query()
	_, err := parseMetadata(q.Get)
	assert.Error(t, err)
}

func TestConnectWithHostIDIsRefused(t *testing.T) {
	host, addr := startHost(t)
	impostor := NewTransport(Metadata{ID: "424242", Name: "mallory", Color: "#000000", Role: state.RoleViewer})
	t.Cleanup(func() { _ = impostor.Close() })

	_, err := impostor.Connect(context.Background(), addr, "424242")

	var cerr *ConnectError
	require.True(t, errors.As(err, &cerr))
	assert.True(t, errors.Is(err, ErrIDInUse))
	select {
	case ev := <-host.Events():
		t.Fatalf("unexpected %s event for %s", ev.Kind, ev.Channel.PeerID())
	case <-time.After(100 * time.Millisecond):
	}
}

func TestParseMetadataRejectsLongName(t *testing.T) {
	q := Metadata{ID: "x", Name: strings.Repeat("n", state.MaxNameLen+1), Color: "#000000", Role: state.RoleViewer}.query()
	_, err := parseMetadata(q.Get)
	assert.Error(t, err)

	q = Metadata{ID: "x", Name: strings.Repeat("n", state.MaxNameLen), Color: "#000000", Role: state.RoleViewer}.query()
	m, err := parseMetadata(q.Get)
	require.NoError(t, err)
	assert.Len(t, m.Name, state.MaxNameLen)
}
