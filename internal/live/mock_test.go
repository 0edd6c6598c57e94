package live

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type mockConn struct {
	id      string
	groupID string
	userID  string

	mu         sync.Mutex
	sent       [][]byte
	sendErr    error
	alive      bool
	pings      int
	pingErr    error
	terminated bool
}

func newMockConn(id, groupID, userID string) *mockConn {
	return &mockConn{id: id, groupID: groupID, userID: userID, alive: true}
}

func (m *mockConn) ID() string      { return m.id }
func (m *mockConn) GroupID() string { return m.groupID }
func (m *mockConn) UserID() string  { return m.userID }

func (m *mockConn) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, data)
	return nil
}

func (m *mockConn) Ping() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pings++
	return m.pingErr
}

func (m *mockConn) Alive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alive
}

func (m *mockConn) SetAlive(alive bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alive = alive
}

func (m *mockConn) Terminate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.terminated = true
}

func (m *mockConn) pingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pings
}

func (m *mockConn) wasTerminated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.terminated
}

// sentEvents decodes everything delivered to this connection.
func (m *mockConn) sentEvents(t *testing.T) []map[string]any {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()

	events := make([]map[string]any, 0, len(m.sent))
	for _, data := range m.sent {
		var event map[string]any
		require.NoError(t, json.Unmarshal(data, &event))
		events = append(events, event)
	}
	return events
}

// eventTypes returns just the type field of every delivered event.
func (m *mockConn) eventTypes(t *testing.T) []string {
	t.Helper()
	events := m.sentEvents(t)
	types := make([]string, 0, len(events))
	for _, event := range events {
		types = append(types, event["type"].(string))
	}
	return types
}
