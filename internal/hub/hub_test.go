package hub_test

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/floatchat/floatchat/internal/hub"
)

type mockConn struct {
	written []any
	err     error
	closed  bool
}

func (m *mockConn) WriteJSON(v any) error {
	if m.err != nil {
		return m.err
	}
	m.written = append(m.written, v)
	return nil
}

func (m *mockConn) Close() error {
	m.closed = true
	return nil
}

func newTestHub() *hub.Hub {
	return hub.New(slog.Default())
}

func TestBroadcastUser(t *testing.T) {
	h := newTestHub()

	a1, a2 := &mockConn{}, &mockConn{}
	b := &mockConn{}
	h.AddUser("alice", a1)
	h.AddUser("alice", a2)
	h.AddUser("bob", b)

	h.BroadcastUser("alice", "payload")

	for i, conn := range []*mockConn{a1, a2} {
		if len(conn.written) != 1 {
			t.Errorf("alice conn %d received %d payloads, want 1", i, len(conn.written))
		}
	}
	if len(b.written) != 0 {
		t.Errorf("bob received %d payloads, want 0", len(b.written))
	}
}

func TestBroadcastUserDropsFailedConns(t *testing.T) {
	h := newTestHub()

	ok := &mockConn{}
	bad := &mockConn{err: errors.New("write failed")}
	h.AddUser("alice", ok)
	h.AddUser("alice", bad)

	h.BroadcastUser("alice", "payload")

	if !bad.closed {
		t.Error("failed connection was not closed")
	}
	if got := h.UserConns("alice"); got != 1 {
		t.Errorf("UserConns() = %d after drop, want 1", got)
	}
}

func TestRemoveUser(t *testing.T) {
	h := newTestHub()

	conn := &mockConn{}
	h.AddUser("alice", conn)
	h.RemoveUser("alice", conn)

	if got := h.UserConns("alice"); got != 0 {
		t.Errorf("UserConns() = %d after remove, want 0", got)
	}

	h.BroadcastUser("alice", "payload")
	if len(conn.written) != 0 {
		t.Errorf("removed conn received %d payloads, want 0", len(conn.written))
	}
}

func TestBroadcastRoomSkipsSender(t *testing.T) {
	h := newTestHub()

	sender, peer := &mockConn{}, &mockConn{}
	other := &mockConn{}
	h.AddRoom("room42", sender)
	h.AddRoom("room42", peer)
	h.AddRoom("room7", other)

	h.BroadcastRoom("room42", "offer", sender)

	if len(sender.written) != 0 {
		t.Errorf("sender received %d payloads, want 0", len(sender.written))
	}
	if len(peer.written) != 1 {
		t.Errorf("peer received %d payloads, want 1", len(peer.written))
	}
	if len(other.written) != 0 {
		t.Errorf("other room received %d payloads, want 0", len(other.written))
	}
}

func TestRemoveRoom(t *testing.T) {
	h := newTestHub()

	conn := &mockConn{}
	h.AddRoom("room42", conn)
	h.RemoveRoom("room42", conn)

	h.BroadcastRoom("room42", "offer", nil)
	if len(conn.written) != 0 {
		t.Errorf("removed conn received %d payloads, want 0", len(conn.written))
	}
}
