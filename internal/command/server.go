package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/normanking/mirrorcore/internal/bus"
)

// Request is an inbound command frame
type Request struct {
	Command string `json:"command"`
	Content string `json:"content"`
}

// Reply answers one Request
type Reply struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Server accepts websocket clients, routes their commands and broadcasts
// output frames back to all of them.
type Server struct {
	addr     string
	router   *Router
	hub      *Hub
	logger   zerolog.Logger
	upgrader websocket.Upgrader

	listener net.Listener
}

func NewServer(addr string, router *Router, logger zerolog.Logger) *Server {
	logger = logger.With().Str("component", "command").Logger()
	return &Server{
		addr:   addr,
		router: router,
		hub:    NewHub(logger),
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Hub() *Hub {
	return s.hub
}

// Addr returns the bound address once Run is listening
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Listen binds the listen address. Run calls it when it has not been called.
func (s *Server) Listen() error {
	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.listener = ln
	return nil
}

// Run serves until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go s.hub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.listener.Addr().String()).Msg("Command server listening")
		errCh <- srv.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}

	c := &client{
		hub:        s.hub,
		conn:       conn,
		send:       make(chan []byte, sendBuf),
		remoteAddr: r.RemoteAddr,
		logger:     s.logger,
	}
	s.hub.register <- c

	// pump lifetime is owned by the hub, not the request context
	go c.writePump()
	go c.readPump(s.handleRaw)
}

// handleRaw decodes and dispatches one command frame, returning the reply
func (s *Server) handleRaw(raw []byte) []byte {
	var req Request
	var reply Reply
	if err := json.Unmarshal(raw, &req); err != nil || req.Command == "" {
		reply = Reply{Status: "error", Error: "malformed command frame"}
		s.logger.Warn().Err(err).Msg("Malformed command frame")
	} else if err := s.router.Dispatch(req.Command, req.Content); err != nil {
		reply = Reply{Status: "error", Error: err.Error()}
		s.logger.Warn().Err(err).Str("command", req.Command).Msg("Command failed")
	} else {
		reply = Reply{Status: "ok"}
		s.logger.Debug().Str("command", req.Command).Msg("Command applied")
	}

	out, err := json.Marshal(reply)
	if err != nil {
		return nil
	}
	return out
}

// BroadcastBlendShapes sends the non-zero weights of one output frame
func (s *Server) BroadcastBlendShapes(weights map[string]float32) {
	s.hub.Broadcast("blendshapes", weights)
}

// EyeFrame is the eye bone rotation of one output frame
type EyeFrame struct {
	X        float32 `json:"x"`
	Y        float32 `json:"y"`
	Z        float32 `json:"z"`
	W        float32 `json:"w"`
	External bool    `json:"external"`
}

// BroadcastEye sends the eye rotation chosen for this frame
func (s *Server) BroadcastEye(q mgl32.Quat, external bool) {
	s.hub.Broadcast("eye", EyeFrame{X: q.V[0], Y: q.V[1], Z: q.V[2], W: q.W, External: external})
}

// ForwardInput subscribes to drained input events and relays them to clients
func (s *Server) ForwardInput(eventBus *bus.EventBus) {
	eventBus.Subscribe(bus.EventTypeMouseButton, func(e bus.Event) {
		s.hub.Broadcast("input", e.Data)
	})
}
