package live

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Conn is a live bidirectional channel to one client. The registry,
// broadcaster and liveness monitor only see this interface; the gorilla
// backed implementation is wsConn.
type Conn interface {
	ID() string
	GroupID() string
	UserID() string

	// Send enqueues a text frame for delivery. It returns an error when
	// the connection is closed or its send buffer is full.
	Send(data []byte) error

	// Ping sends a transport-level liveness probe.
	Ping() error

	Alive() bool
	SetAlive(alive bool)

	// Terminate force-closes the underlying transport. Cleanup runs
	// through the same path as a graceful close.
	Terminate()
}

// wsConn wraps a gorilla connection with a buffered send channel and the
// read/write pump pair. The liveness flag is reset by the monitor and
// flipped back by the pong handler.
type wsConn struct {
	id      string
	groupID string
	userID  string

	ws    *websocket.Conn
	send  chan []byte
	alive atomic.Bool

	closed    atomic.Bool
	done      chan struct{}
	closeOnce sync.Once

	onMessage func(c *wsConn, data []byte)
	onClose   func(c *wsConn)

	cfg ConnectionConfig
}

func newWSConn(id, groupID, userID string, ws *websocket.Conn, cfg ConnectionConfig) *wsConn {
	c := &wsConn{
		id:      id,
		groupID: groupID,
		userID:  userID,
		ws:      ws,
		send:    make(chan []byte, cfg.SendBufferSize),
		done:    make(chan struct{}),
		cfg:     cfg,
	}
	c.alive.Store(true)
	return c
}

func (c *wsConn) ID() string      { return c.id }
func (c *wsConn) GroupID() string { return c.groupID }
func (c *wsConn) UserID() string  { return c.userID }

func (c *wsConn) Alive() bool         { return c.alive.Load() }
func (c *wsConn) SetAlive(alive bool) { c.alive.Store(alive) }

func (c *wsConn) Send(data []byte) error {
	if c.closed.Load() {
		return websocket.ErrCloseSent
	}
	select {
	case c.send <- data:
		return nil
	default:
		return websocket.ErrCloseSent
	}
}

func (c *wsConn) Ping() error {
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.cfg.WriteTimeout))
}

func (c *wsConn) Terminate() {
	c.cleanup()
}

// start launches the pump goroutines. The caller must have admitted the
// connection to the registry first.
func (c *wsConn) start() {
	go c.writePump()
	go c.readPump()
}

// cleanup tears the connection down exactly once: stale probe
// termination, transport errors and graceful closes all land here.
func (c *wsConn) cleanup() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
		c.ws.Close()
		if c.onClose != nil {
			c.onClose(c)
		}
	})
}

func (c *wsConn) readPump() {
	defer c.cleanup()

	c.ws.SetReadLimit(c.cfg.MaxMessageSize)
	c.ws.SetPongHandler(func(string) error {
		c.alive.Store(true)
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Debug().
					Err(err).
					Str("connection_id", c.id).
					Msg("websocket read error")
			}
			return
		}
		if c.onMessage != nil {
			c.onMessage(c, data)
		}
	}
}

func (c *wsConn) writePump() {
	defer c.ws.Close()

	for {
		select {
		case data := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.id).
					Msg("failed to write message to websocket")
				return
			}
		case <-c.done:
			c.ws.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(c.cfg.WriteTimeout))
			return
		}
	}
}
