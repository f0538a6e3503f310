package command

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second

	sendBuf      = 32
	broadcastBuf = 128
)

// envelope is the outbound frame format
type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Hub fans outbound frames out to every connected client. A client whose
// send queue is full is disconnected.
type Hub struct {
	logger zerolog.Logger

	broadcast  chan []byte
	register   chan *client
	unregister chan *client

	mu      sync.Mutex
	clients map[*client]struct{}
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		logger:     logger,
		broadcast:  make(chan []byte, broadcastBuf),
		register:   make(chan *client, 64),
		unregister: make(chan *client, 64),
		clients:    make(map[*client]struct{}),
	}
}

// Run processes hub events until ctx is cancelled, then drops every client
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info().Str("remote_addr", c.remoteAddr).Int("clients", n).Msg("Client connected")

		case c := <-h.unregister:
			h.remove(c, "unregister")

		case msg := <-h.broadcast:
			var slow []*client
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.Unlock()

			for _, c := range slow {
				h.remove(c, "slow_client")
			}
		}
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast serializes a typed frame and queues it without blocking
func (h *Hub) Broadcast(msgType string, data any) {
	raw, err := json.Marshal(envelope{Type: msgType, Data: data})
	if err != nil {
		h.logger.Warn().Err(err).Str("type", msgType).Msg("Failed to encode broadcast")
		return
	}
	select {
	case h.broadcast <- raw:
	default:
		h.logger.Warn().Int("bytes", len(raw)).Msg("Broadcast queue full, dropping message")
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.conn.Close()
		c.closeSend()
		delete(h.clients, c)
	}
}

func (h *Hub) remove(c *client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	_ = c.conn.Close()
	c.closeSend()
	h.logger.Info().
		Str("remote_addr", c.remoteAddr).
		Str("reason", reason).
		Int("clients", n).
		Msg("Client disconnected")
}

// client is one websocket peer
type client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	closeOnce  sync.Once
	remoteAddr string
	logger     zerolog.Logger
}

func (c *client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

// enqueue queues a reply to this client only; a full queue drops it
func (c *client) enqueue(msg []byte) {
	defer func() {
		// send may already be closed by the hub
		_ = recover()
	}()
	select {
	case c.send <- msg:
	default:
		c.logger.Warn().Str("remote_addr", c.remoteAddr).Msg("Reply dropped, client queue full")
	}
}

// writePump writes queued frames and keepalive pings. It exits on write
// error or when the hub closes send.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logClose("write", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logClose("ping", err)
				return
			}
		}
	}
}

// readPump reads commands until the connection fails, then unregisters
func (c *client) readPump(handle func(raw []byte) []byte) {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logClose("read", err)
			c.hub.unregister <- c
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		if reply := handle(raw); reply != nil {
			c.enqueue(reply)
		}
	}
}

func (c *client) logClose(op string, err error) {
	if errors.Is(err, websocket.ErrCloseSent) {
		return
	}
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		c.logger.Debug().Str("remote_addr", c.remoteAddr).Int("code", ce.Code).Str("op", op).Msg("Connection closed")
		return
	}
	c.logger.Debug().Err(err).Str("remote_addr", c.remoteAddr).Str("op", op).Msg("Connection ended")
}
