package hub

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/agentsolvr/relay/src/types"
	"github.com/rs/zerolog"
)

// mockConn implements types.Conn for testing without a real WebSocket.
type mockConn struct {
	mu       sync.Mutex
	written  [][]byte
	readCh   chan []byte
	closed   bool
	closedCh chan struct{}
}

func newMockConn() *mockConn {
	return &mockConn{
		readCh:   make(chan []byte, 16),
		closedCh: make(chan struct{}),
	}
}

func (m *mockConn) ReadMessage() ([]byte, error) {
	select {
	case data := <-m.readCh:
		return data, nil
	case <-m.closedCh:
		return nil, errors.New("connection closed")
	}
}

func (m *mockConn) WriteMessage(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.written = append(m.written, cp)
	return nil
}

func (m *mockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.closedCh)
	}
	return nil
}

func (m *mockConn) getWritten() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([][]byte, len(m.written))
	copy(cp, m.written)
	return cp
}

// newTestHub creates a hub and starts its event loop in a goroutine.
func newTestHub(t *testing.T) *Hub {
	t.Helper()
	h := New(zerolog.Nop())
	go h.Run()
	t.Cleanup(func() { h.Stop() })
	return h
}

// registerClient creates, registers, and starts a mock client.
func registerClient(t *testing.T, h *Hub, id string) (*Client, *mockConn) {
	t.Helper()
	conn := newMockConn()
	client := NewClient(id, conn, h)
	h.Register(client)
	go client.WritePump()
	go client.ReadPump()
	// Allow registration to process.
	time.Sleep(20 * time.Millisecond)
	return client, conn
}

func TestHubRegisterAndUnregister(t *testing.T) {
	h := newTestHub(t)

	_, _ = registerClient(t, h, "client-1")
	_, _ = registerClient(t, h, "client-2")

	if got := h.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	c3, _ := registerClient(t, h, "client-3")
	h.Unregister(c3)
	time.Sleep(20 * time.Millisecond)

	if h.ClientInfo("client-3") != nil {
		t.Error("expected client-3 to be unregistered")
	}
	if h.ClientInfo("client-1") == nil {
		t.Error("expected client-1 to remain")
	}
}

func TestHubSubscribeAndUnsubscribe(t *testing.T) {
	h := newTestHub(t)
	_, _ = registerClient(t, h, "c1")

	if ok := h.Subscribe("agent-status", "c1"); !ok {
		t.Fatal("subscribe should succeed for registered client")
	}

	topics := h.Topics()
	if topics["agent-status"] != 1 {
		t.Errorf("expected 1 subscriber on agent-status, got %d", topics["agent-status"])
	}

	if ok := h.Subscribe("agent-status", "nonexistent"); ok {
		t.Error("subscribe should fail for unregistered client")
	}

	h.Unsubscribe("agent-status", "c1")
	topics = h.Topics()
	if _, ok := topics["agent-status"]; ok {
		t.Error("expected topic to be removed after last unsubscribe")
	}
}

func TestPublishToTopic(t *testing.T) {
	h := newTestHub(t)
	_, conn1 := registerClient(t, h, "c1")
	_, conn2 := registerClient(t, h, "c2")

	h.Subscribe("updates", "c1")
	h.Subscribe("updates", "c2")

	h.Publish("updates", types.NewEnvelope("refresh", map[string]any{"key": "value"}))

	// Allow broadcast to process.
	time.Sleep(50 * time.Millisecond)

	if len(conn1.getWritten()) != 1 {
		t.Errorf("expected 1 frame for c1, got %d", len(conn1.getWritten()))
	}
	if len(conn2.getWritten()) != 1 {
		t.Errorf("expected 1 frame for c2, got %d", len(conn2.getWritten()))
	}
}

func TestPublishDoesNotReachUnsubscribed(t *testing.T) {
	h := newTestHub(t)
	_, conn1 := registerClient(t, h, "c1")
	_, conn2 := registerClient(t, h, "c2")

	// Only c1 subscribes.
	h.Subscribe("private", "c1")

	h.Publish("private", types.NewEnvelope("secret", nil))
	time.Sleep(50 * time.Millisecond)

	if len(conn1.getWritten()) != 1 {
		t.Error("c1 should receive the envelope")
	}
	if len(conn2.getWritten()) != 0 {
		t.Error("c2 should not receive the envelope")
	}
}

func TestSendToClient(t *testing.T) {
	h := newTestHub(t)
	_, conn := registerClient(t, h, "target")

	env := types.NewEnvelope("direct", map[string]any{"hello": "world"})
	if ok := h.SendToClient("target", env); !ok {
		t.Fatal("send to existing client should succeed")
	}
	time.Sleep(20 * time.Millisecond)

	if len(conn.getWritten()) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(conn.getWritten()))
	}

	if ok := h.SendToClient("nonexistent", env); ok {
		t.Error("send to nonexistent client should fail")
	}
}

func TestPingAnsweredWithPong(t *testing.T) {
	h := newTestHub(t)
	_, conn := registerClient(t, h, "prober")

	ping, _ := types.NewEnvelope(types.TypePing, nil).Encode()
	conn.readCh <- ping
	time.Sleep(50 * time.Millisecond)

	written := conn.getWritten()
	if len(written) != 1 {
		t.Fatalf("expected 1 pong frame, got %d", len(written))
	}
	env := types.ParseEnvelope(written[0])
	if env.Type != types.TypePong {
		t.Errorf("expected pong reply, got %s", env.Type)
	}
}

func TestSubscribeEnvelope(t *testing.T) {
	h := newTestHub(t)
	_, conn := registerClient(t, h, "dash")

	sub, _ := types.NewEnvelope(types.TypeSubscribe, map[string]any{"topic": "costs"}).Encode()
	conn.readCh <- sub
	time.Sleep(50 * time.Millisecond)

	if h.Topics()["costs"] != 1 {
		t.Fatalf("expected subscription via envelope, topics: %v", h.Topics())
	}

	unsub, _ := types.NewEnvelope(types.TypeUnsubscribe, map[string]any{"topic": "costs"}).Encode()
	conn.readCh <- unsub
	time.Sleep(50 * time.Millisecond)

	if _, ok := h.Topics()["costs"]; ok {
		t.Error("expected unsubscribe via envelope to remove the topic")
	}
}

func TestHandlerDispatchByType(t *testing.T) {
	h := newTestHub(t)

	var mu sync.Mutex
	var fromClient string
	var got types.Envelope
	h.RegisterHandler("command", func(clientID string, env types.Envelope) error {
		mu.Lock()
		defer mu.Unlock()
		fromClient = clientID
		got = env
		return nil
	})

	_, conn := registerClient(t, h, "sender")

	frame, _ := types.NewEnvelope("command", map[string]any{"cmd": "run"}).Encode()
	conn.readCh <- frame
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if fromClient != "sender" {
		t.Errorf("expected handler invocation from sender, got %q", fromClient)
	}
	if got.Type != "command" {
		t.Errorf("expected command envelope, got %s", got.Type)
	}
}

func TestUnparseableFrameArrivesAsRaw(t *testing.T) {
	h := newTestHub(t)

	var mu sync.Mutex
	var got types.Envelope
	h.RegisterHandler(types.TypeRaw, func(clientID string, env types.Envelope) error {
		mu.Lock()
		defer mu.Unlock()
		got = env
		return nil
	})

	_, conn := registerClient(t, h, "noisy")
	conn.readCh <- []byte("garbage frame")
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if got.Type != types.TypeRaw {
		t.Fatalf("expected raw envelope, got %q", got.Type)
	}
	if got.Data != "garbage frame" {
		t.Errorf("expected original text preserved, got %#v", got.Data)
	}
}

func TestConnectionCallbacks(t *testing.T) {
	h := newTestHub(t)

	var mu sync.Mutex
	var connectedID, disconnectedID string
	h.OnConnection(func(id string) {
		mu.Lock()
		connectedID = id
		mu.Unlock()
	})
	h.OnDisconnection(func(id string) {
		mu.Lock()
		disconnectedID = id
		mu.Unlock()
	})

	client, _ := registerClient(t, h, "cb-client")
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	if connectedID != "cb-client" {
		t.Errorf("expected connected callback with cb-client, got %s", connectedID)
	}
	mu.Unlock()

	h.Unregister(client)
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	if disconnectedID != "cb-client" {
		t.Errorf("expected disconnected callback with cb-client, got %s", disconnectedID)
	}
	mu.Unlock()
}

func TestClientInfo(t *testing.T) {
	h := newTestHub(t)

	_, _ = registerClient(t, h, "info-client")
	h.Subscribe("topic-a", "info-client")
	h.Subscribe("topic-b", "info-client")

	info := h.ClientInfo("info-client")
	if info == nil {
		t.Fatal("expected client info")
	}
	if info.ID != "info-client" {
		t.Errorf("expected ID info-client, got %s", info.ID)
	}
	if len(info.Topics) != 2 {
		t.Errorf("expected 2 topics, got %d", len(info.Topics))
	}
}
