package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"PeerBoard/internal/protocol"
	"PeerBoard/internal/state"
)

func notice(text string) protocol.Envelope {
	return protocol.Envelope{Origin: hostID, Message: protocol.Notice{Text: text}}
}

func TestBroadcastSkipsClosedChannels(t *testing.T) {
	d := NewDirectory()
	a := newFake("a", "A", state.RoleViewer)
	b := newFake("b", "B", state.RoleViewer)
	c := newFake("c", "C", state.RoleViewer)
	d.Register(a)
	d.Register(b)
	d.Register(c)
	_ = b.Close()

	d.Broadcast(notice("hello"))

	assert.Len(t, a.received(protocol.KindNotice), 1)
	assert.Empty(t, b.received(protocol.KindNotice))
	assert.Len(t, c.received(protocol.KindNotice), 1)
	assert.Equal(t, []string{"a", "c"}, d.IDs())
}

func TestBroadcastContinuesPastSendErrors(t *testing.T) {
	d := NewDirectory()
	a := newFake("a", "A", state.RoleViewer)
	b := newFake("b", "B", state.RoleViewer)
	a.sendErr = errBroken
	d.Register(a)
	d.Register(b)

	d.Broadcast(notice("hello"))

	assert.Len(t, b.received(protocol.KindNotice), 1)
}

func TestBroadcastExcludes(t *testing.T) {
	d := NewDirectory()
	a := newFake("a", "A", state.RoleViewer)
	b := newFake("b", "B", state.RoleViewer)
	d.Register(a)
	d.Register(b)

	d.Broadcast(notice("hello"), "a")

	assert.Empty(t, a.received(protocol.KindNotice))
	assert.Len(t, b.received(protocol.KindNotice), 1)
}

func TestRegisterReplacesStaleChannel(t *testing.T) {
	d := NewDirectory()
	old := newFake("a", "A", state.RoleViewer)
	fresh := newFake("a", "A", state.RoleViewer)
	d.Register(old)
	d.Register(fresh)

	assert.False(t, old.IsOpen())
	assert.Equal(t, 1, d.Len())
	assert.False(t, d.Unregister(old))
	assert.True(t, d.Unregister(fresh))
	assert.Equal(t, 0, d.Len())
}

func TestSendToMissingPeerIsNoop(t *testing.T) {
	d := NewDirectory()
	a := newFake("a", "A", state.RoleViewer)
	d.Register(a)

	d.SendTo("nobody", notice("hi"))
	d.SendTo("a", notice("hi"))

	assert.Len(t, a.received(protocol.KindNotice), 1)
}

func TestCloseAll(t *testing.T) {
	d := NewDirectory()
	a := newFake("a", "A", state.RoleViewer)
	b := newFake("b", "B", state.RoleViewer)
	d.Register(a)
	d.Register(b)

	d.CloseAll()

	assert.False(t, a.IsOpen())
	assert.False(t, b.IsOpen())
	assert.Equal(t, 0, d.Len())
	assert.Empty(t, d.IDs())
}
