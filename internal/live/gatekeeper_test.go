package live

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGatekeeperFixture(t *testing.T) (*Registry, string) {
	t.Helper()
	registry := NewRegistry()
	broadcaster := NewBroadcaster(registry)
	gk := NewGatekeeper(registry, broadcaster, NewTokenVerifier([]byte(testSecret)), DefaultConnectionConfig())

	mux := http.NewServeMux()
	gk.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return registry, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/live"
}

func validToken(t *testing.T, userID string) string {
	t.Helper()
	return signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var event map[string]any
	require.NoError(t, json.Unmarshal(data, &event))
	return event
}

func expectClose(t *testing.T, conn *websocket.Conn, code int) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, code), "expected close code %d, got %v", code, err)
}

func TestGatekeeper_RejectsMissingGroupID(t *testing.T) {
	registry, url := newGatekeeperFixture(t)

	conn := dial(t, url+"?token="+validToken(t, "u1"))
	expectClose(t, conn, closeCodeAdmissionDenied)

	rooms, conns := registry.Stats()
	assert.Equal(t, 0, rooms)
	assert.Equal(t, 0, conns)
}

func TestGatekeeper_RejectsInvalidToken(t *testing.T) {
	registry, url := newGatekeeperFixture(t)

	conn := dial(t, url+"?groupId=g1&token=bogus")

	event := readEvent(t, conn)
	assert.Equal(t, "error", event["type"])
	expectClose(t, conn, closeCodeAdmissionDenied)

	rooms, _ := registry.Stats()
	assert.Equal(t, 0, rooms)
}

func TestGatekeeper_RejectsExpiredToken(t *testing.T) {
	registry, url := newGatekeeperFixture(t)
	expired := signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{
		"user_id": "u1",
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})

	conn := dial(t, url+"?groupId=g1&token="+expired)

	event := readEvent(t, conn)
	assert.Equal(t, "error", event["type"])
	expectClose(t, conn, closeCodeAdmissionDenied)

	assert.False(t, registry.HasUser("u1"))
}

func TestGatekeeper_RejectsMissingToken(t *testing.T) {
	_, url := newGatekeeperFixture(t)

	conn := dial(t, url+"?groupId=g1")

	event := readEvent(t, conn)
	assert.Equal(t, "error", event["type"])
	expectClose(t, conn, closeCodeAdmissionDenied)
}

func TestGatekeeper_AdmitsValidConnection(t *testing.T) {
	registry, url := newGatekeeperFixture(t)

	conn := dial(t, url+"?groupId=g1&token="+validToken(t, "u1"))

	welcome := readEvent(t, conn)
	assert.Equal(t, "connected", welcome["type"])
	assert.Equal(t, "g1", welcome["groupId"])
	assert.Equal(t, float64(1), welcome["roomSize"])

	update := readEvent(t, conn)
	assert.Equal(t, "room_update", update["type"])
	assert.Equal(t, float64(1), update["roomSize"])

	assert.Equal(t, 1, registry.RoomSize("g1"))
	assert.True(t, registry.HasUser("u1"))
}

func TestGatekeeper_RoomUpdatesOnJoinAndLeave(t *testing.T) {
	registry, url := newGatekeeperFixture(t)

	first := dial(t, url+"?groupId=g1&token="+validToken(t, "u1"))
	readEvent(t, first) // connected
	readEvent(t, first) // room_update 1

	second := dial(t, url+"?groupId=g1&token="+validToken(t, "u2"))
	readEvent(t, second) // connected
	readEvent(t, second) // room_update 2

	update := readEvent(t, first)
	assert.Equal(t, "room_update", update["type"])
	assert.Equal(t, float64(2), update["roomSize"])

	second.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	second.Close()

	update = readEvent(t, first)
	assert.Equal(t, "room_update", update["type"])
	assert.Equal(t, float64(1), update["roomSize"])

	require.Eventually(t, func() bool {
		return !registry.HasUser("u2")
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, registry.RoomSize("g1"))
}

func TestGatekeeper_PingPong(t *testing.T) {
	_, url := newGatekeeperFixture(t)

	conn := dial(t, url+"?groupId=g1&token="+validToken(t, "u1"))
	readEvent(t, conn) // connected
	readEvent(t, conn) // room_update

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	pong := readEvent(t, conn)
	assert.Equal(t, "pong", pong["type"])
}

func TestGatekeeper_IgnoresUnknownAndMalformedMessages(t *testing.T) {
	_, url := newGatekeeperFixture(t)

	conn := dial(t, url+"?groupId=g1&token="+validToken(t, "u1"))
	readEvent(t, conn) // connected
	readEvent(t, conn) // room_update

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json at all`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"join_room"}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"mystery"}`)))

	// The connection survives all three and still answers pings.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	pong := readEvent(t, conn)
	assert.Equal(t, "pong", pong["type"])
}

func TestGatekeeper_UserIdentityComesFromToken(t *testing.T) {
	registry, url := newGatekeeperFixture(t)

	// A client-supplied userId query parameter must be ignored.
	conn := dial(t, url+"?groupId=g1&userId=impostor&token="+validToken(t, "real-user"))
	readEvent(t, conn)

	assert.True(t, registry.HasUser("real-user"))
	assert.False(t, registry.HasUser("impostor"))
}
