package gamefeed

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/flipwatch/flipwatch/internal/events"
	"github.com/flipwatch/flipwatch/internal/telemetry"
)

const (
	writeDeadline = 5 * time.Second
	readWait      = 60 * time.Second
	pingInterval  = 20 * time.Second
	maxFrameBytes = 64 << 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

type bridgeConn struct {
	conn *websocket.Conn
	done chan struct{}
}

// Server accepts the game-client bridge's WebSocket connection and turns
// its frames into bus events. Only one bridge is expected at a time; a
// new connection replaces the previous one.
type Server struct {
	bus *events.Bus

	mu     sync.Mutex
	bridge *bridgeConn
}

func NewServer(bus *events.Bus) *Server {
	return &Server{bus: bus}
}

// HandleWS is the HTTP handler for the bridge's upgrade request.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		telemetry.Warnf("gamefeed: upgrade failed: %v", err)
		return
	}

	c := &bridgeConn{
		conn: conn,
		done: make(chan struct{}),
	}

	s.mu.Lock()
	prev := s.bridge
	s.bridge = c
	s.mu.Unlock()
	if prev != nil {
		telemetry.Warnf("gamefeed: replacing existing bridge connection")
		prev.conn.Close()
	}

	telemetry.Infof("gamefeed: bridge connected from %s", r.RemoteAddr)

	go s.writePump(c)
	go s.readPump(c)
}

// readPump decodes bridge frames and publishes them. Malformed frames
// are counted and skipped; the connection survives them.
func (s *Server) readPump(c *bridgeConn) {
	defer func() {
		close(c.done)
		s.removeBridge(c)
	}()

	c.conn.SetReadLimit(maxFrameBytes)
	c.conn.SetReadDeadline(time.Now().Add(readWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(readWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				telemetry.Warnf("gamefeed: read error: %v", err)
			}
			return
		}
		// any frame counts as liveness
		c.conn.SetReadDeadline(time.Now().Add(readWait))

		evt, err := ParseMessage(data)
		if err != nil {
			telemetry.Metrics.FeedParseErrors.Inc()
			telemetry.Warnf("gamefeed: %v", err)
			continue
		}
		s.bus.Publish(evt)
	}
}

// writePump keeps the connection alive with pings until readPump exits.
func (s *Server) writePump(c *bridgeConn) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) removeBridge(c *bridgeConn) {
	s.mu.Lock()
	if s.bridge == c {
		s.bridge = nil
	}
	s.mu.Unlock()
	telemetry.Infof("gamefeed: bridge disconnected")
}
