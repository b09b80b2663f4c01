package websocket

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"lockstep/internal/registry"
)

// MessageRouter is what the gateway needs from the routing layer: one call
// per inbound frame and one call per closed transport.
type MessageRouter interface {
	HandleMessage(client *registry.Client, data []byte)
	HandleDisconnect(client *registry.Client)
}

// Options control per-connection transport behavior.
type Options struct {
	PingInterval time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	BufferSize   int
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The outer auth layer fronts this service; origin policy belongs
		// there, not in the sync transport.
		return true
	},
	HandshakeTimeout: 10 * time.Second,
}

// Gateway accepts WebSocket connections and bridges them to the message
// router. It is deliberately thin: connections are admitted unauthenticated
// and every protocol decision happens in the router.
type Gateway struct {
	registry *registry.Registry
	router   MessageRouter
	opts     Options
}

// NewGateway creates a transport gateway.
func NewGateway(reg *registry.Registry, router MessageRouter, opts Options) *Gateway {
	return &Gateway{
		registry: reg,
		router:   router,
		opts:     opts,
	}
}

// HandleWebSocket upgrades an HTTP request and runs the connection until the
// transport closes.
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	conn := NewConnection(wsConn, g.opts.BufferSize, g.opts.WriteTimeout)
	client := g.registry.Admit(conn)
	log.Printf("Connection admitted: conn=%s remote=%s", client.ID(), r.RemoteAddr)

	go g.handleConnection(client, conn, wsConn)
}

// handleConnection owns the read side of one connection. All inbound frames
// for a connection are processed sequentially here, so disconnect cleanup can
// never interleave with a handler for the same connection.
func (g *Gateway) handleConnection(client *registry.Client, conn *Connection, wsConn *websocket.Conn) {
	defer func() {
		// Runs exactly once per connection: the read loop is the only
		// exit path no matter how many messages were in flight.
		g.router.HandleDisconnect(client)
		g.registry.Remove(client)
		_ = conn.Close()
		log.Printf("Connection closed: conn=%s user=%s", client.ID(), client.UserID())
	}()

	if err := wsConn.SetReadDeadline(time.Now().Add(g.opts.ReadTimeout)); err != nil {
		log.Printf("Failed to set read deadline: %v", err)
		return
	}
	wsConn.SetPongHandler(func(string) error {
		return wsConn.SetReadDeadline(time.Now().Add(g.opts.ReadTimeout))
	})

	ticker := time.NewTicker(g.opts.PingInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := wsConn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(g.opts.WriteTimeout)); err != nil {
					return
				}
			case <-conn.ctx.Done():
				return
			}
		}
	}()

	for {
		messageType, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: conn=%s err=%v", client.ID(), err)
			}
			return
		}

		if messageType == websocket.TextMessage {
			g.router.HandleMessage(client, data)
		}
	}
}
