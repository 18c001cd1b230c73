package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/agentsolvr/relay/src/hub"
	"github.com/rs/zerolog"
)

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

func (m *mockConn) writtenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.written)
}

func newTestService(t *testing.T) (*Service, *hub.Hub) {
	t.Helper()
	h := hub.New(zerolog.Nop())
	go h.Run()
	t.Cleanup(func() { h.Stop() })
	return New(h, zerolog.Nop()), h
}

func registerClient(t *testing.T, h *hub.Hub, id string) *mockConn {
	t.Helper()
	conn := newMockConn()
	client := hub.NewClient(id, conn, h)
	h.Register(client)
	go client.WritePump()
	time.Sleep(20 * time.Millisecond)
	return conn
}

func TestServicePublish(t *testing.T) {
	svc, h := newTestService(t)
	conn := registerClient(t, h, "svc-c1")

	if err := svc.Subscribe("news", "svc-c1"); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if err := svc.Publish("news", "headline", map[string]any{"title": "test"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	if conn.writtenCount() != 1 {
		t.Errorf("expected 1 envelope, got %d", conn.writtenCount())
	}
}

func TestServiceSubscribeUnknownClient(t *testing.T) {
	svc, _ := newTestService(t)

	if err := svc.Subscribe("topic", "unknown"); err == nil {
		t.Error("subscribe for unknown client should return error")
	}
}

func TestServiceSendToClient(t *testing.T) {
	svc, h := newTestService(t)
	conn := registerClient(t, h, "dm-target")

	if err := svc.SendToClient("dm-target", "direct", map[string]any{"msg": "hi"}); err != nil {
		t.Fatalf("send to client failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if conn.writtenCount() != 1 {
		t.Error("expected 1 direct envelope")
	}

	if err := svc.SendToClient("ghost", "direct", "hi"); err == nil {
		t.Error("send to nonexistent client should error")
	}
}

func TestServiceGetTopics(t *testing.T) {
	svc, h := newTestService(t)

	registerClient(t, h, "t-c1")
	registerClient(t, h, "t-c2")

	_ = svc.Subscribe("alpha", "t-c1")
	_ = svc.Subscribe("alpha", "t-c2")
	_ = svc.Subscribe("beta", "t-c1")

	topics := svc.GetTopics()
	if topics["alpha"] != 2 {
		t.Errorf("expected 2 subscribers on alpha, got %d", topics["alpha"])
	}
	if topics["beta"] != 1 {
		t.Errorf("expected 1 subscriber on beta, got %d", topics["beta"])
	}
}

func TestServiceGetConnectedClients(t *testing.T) {
	svc, h := newTestService(t)

	registerClient(t, h, "gc-1")
	registerClient(t, h, "gc-2")

	if got := len(svc.GetConnectedClients()); got != 2 {
		t.Errorf("expected 2 connected clients, got %d", got)
	}
}

func TestServiceGetClientInfoUnknown(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.GetClientInfo("missing"); err == nil {
		t.Error("expected error for unknown client")
	}
}
