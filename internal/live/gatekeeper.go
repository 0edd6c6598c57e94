package live

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// closeCodeAdmissionDenied is used for every admission failure. Missing
// group and bad credential close identically so a probing client cannot
// tell which check failed.
const closeCodeAdmissionDenied = 4001

// Gatekeeper validates inbound connection attempts and admits the
// survivors into the registry. The user identity always comes from the
// verified credential, never from client input.
type Gatekeeper struct {
	registry    *Registry
	broadcaster *Broadcaster
	verifier    *TokenVerifier
	upgrader    websocket.Upgrader
	cfg         ConnectionConfig
}

func NewGatekeeper(registry *Registry, broadcaster *Broadcaster, verifier *TokenVerifier, cfg ConnectionConfig) *Gatekeeper {
	return &Gatekeeper{
		registry:    registry,
		broadcaster: broadcaster,
		verifier:    verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     cfg.CheckOrigin,
		},
		cfg: cfg,
	}
}

// HandleLiveConnection upgrades the request and runs the admission
// checks: a groupId query parameter must be present and the token must
// verify. Rejections are expected client-side conditions, not server
// faults, so they are not logged as errors.
func (g *Gatekeeper) HandleLiveConnection(w http.ResponseWriter, r *http.Request) {
	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade websocket connection")
		return
	}

	groupID := r.URL.Query().Get("groupId")
	if groupID == "" {
		g.reject(ws, "")
		return
	}

	userID, err := g.verifier.Verify(r.URL.Query().Get("token"))
	if err != nil {
		log.Debug().Err(err).Str("group_id", groupID).Msg("rejecting connection with invalid credential")
		g.reject(ws, "Token inválido o expirado")
		return
	}

	c := newWSConn(uuid.New().String(), groupID, userID, ws, g.cfg)
	c.onMessage = g.handleInbound
	c.onClose = g.handleClose

	g.registry.Admit(c)
	c.start()

	roomSize := g.registry.RoomSize(groupID)
	g.sendEvent(c, newConnectedEvent(groupID, roomSize))
	g.broadcaster.BroadcastToGroup(groupID, newRoomUpdateEvent(roomSize))

	log.Info().
		Str("connection_id", c.ID()).
		Str("group_id", groupID).
		Str("user_id", userID).
		Int("room_size", roomSize).
		Msg("websocket connection established")
}

// RegisterRoutes mounts the live channel on the mux.
func (g *Gatekeeper) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/live", g.HandleLiveConnection)
}

// reject closes an unadmitted socket with the admission close code,
// preceded by a best-effort error message for credential failures.
func (g *Gatekeeper) reject(ws *websocket.Conn, message string) {
	deadline := time.Now().Add(g.cfg.WriteTimeout)
	if message != "" {
		if data, err := json.Marshal(newErrorEvent(message)); err == nil {
			ws.SetWriteDeadline(deadline)
			ws.WriteMessage(websocket.TextMessage, data)
		}
	}
	ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(closeCodeAdmissionDenied, ""), deadline)
	ws.Close()
}

// handleInbound processes client messages: ping gets a pong, join_room
// is implicit in the handshake, anything else (including malformed
// JSON) is dropped without penalizing the connection.
func (g *Gatekeeper) handleInbound(c *wsConn, data []byte) {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Debug().Str("connection_id", c.ID()).Msg("dropping malformed client message")
		return
	}

	switch msg.Type {
	case clientMessagePing:
		g.sendEvent(c, newPongEvent())
	case clientMessageJoinRoom:
		// Room membership is implicit in the connection handshake.
	default:
	}
}

// handleClose is the single cleanup path shared by graceful closes,
// transport errors and stale-probe terminations.
func (g *Gatekeeper) handleClose(c *wsConn) {
	g.registry.Remove(c)
	g.broadcaster.BroadcastToGroup(c.GroupID(), newRoomUpdateEvent(g.registry.RoomSize(c.GroupID())))

	log.Info().
		Str("connection_id", c.ID()).
		Str("group_id", c.GroupID()).
		Str("user_id", c.UserID()).
		Msg("websocket connection closed")
}

func (g *Gatekeeper) sendEvent(c Conn, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.ID()).Msg("failed to marshal event")
		return
	}
	if err := c.Send(data); err != nil {
		log.Debug().Err(err).Str("connection_id", c.ID()).Msg("failed to send event")
	}
}
