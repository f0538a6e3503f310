// Package tracker receives face tracking frames over a WebSocket.
package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// FaceMessage is one tracking frame from a tracker
type FaceMessage struct {
	Type       string     `json:"type"`
	Source     SourceKind `json:"source"`
	Tracked    bool       `json:"tracked"`
	BlinkLeft  float32    `json:"blink_l"`
	BlinkRight float32    `json:"blink_r"`
	EyeYaw     float32    `json:"eye_yaw"`   // degrees, positive looks right
	EyePitch   float32    `json:"eye_pitch"` // degrees, positive looks up
}

// ErrorMessage reports a tracker-side error
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Client connects to a tracker WebSocket and feeds the external and webcam
// sources. It reconnects with exponential backoff until its context ends.
type Client struct {
	url    string
	logger zerolog.Logger

	External *Source
	WebCam   *Source

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool

	onConnection func(connected bool)
}

// NewClient creates a tracker client
func NewClient(rawURL string, trackingTimeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		url:      rawURL,
		logger:   logger.With().Str("component", "tracker").Logger(),
		External: NewSource(SourceExternal, trackingTimeout),
		WebCam:   NewSource(SourceWebCam, trackingTimeout),
	}
}

// SetConnectionCallback sets the callback for connection state changes
func (c *Client) SetConnectionCallback(cb func(connected bool)) {
	c.onConnection = cb
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Run maintains the connection until ctx is cancelled
func (c *Client) Run(ctx context.Context) error {
	backoff := 3 * time.Second
	maxBackoff := 60 * time.Second
	consecutiveFailures := 0

	for {
		err := c.connectWS(ctx)
		c.setConnected(false)

		if ctx.Err() != nil {
			return nil
		}

		if err == nil {
			backoff = 3 * time.Second
			consecutiveFailures = 0
			continue
		}

		consecutiveFailures++
		if consecutiveFailures == 3 {
			c.logger.Warn().
				Err(err).
				Int("failures", consecutiveFailures).
				Msg("Tracker not available, will retry less frequently")
			backoff = maxBackoff
		} else if consecutiveFailures > 3 {
			c.logger.Debug().Int("failures", consecutiveFailures).Msg("Tracker still unavailable")
		} else {
			c.logger.Warn().Err(err).Msg("Tracker connection failed, reconnecting...")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}

		if backoff < maxBackoff {
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
}

func (c *Client) setConnected(connected bool) {
	c.mu.Lock()
	changed := c.connected != connected
	c.connected = connected
	if !connected && c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()

	if changed && c.onConnection != nil {
		c.onConnection(connected)
	}
}

// connectWS dials the tracker and reads frames until the connection drops
func (c *Client) connectWS(ctx context.Context) error {
	u, err := url.Parse(c.url)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}

	c.logger.Info().Str("url", u.String()).Msg("Connecting to tracker")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.setConnected(true)

	c.logger.Info().Msg("Connected to tracker")

	// unblock ReadMessage on shutdown
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		c.handleMessage(raw)
	}
}

// handleMessage dispatches one frame by its type field
func (c *Client) handleMessage(raw []byte) {
	var typeMsg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &typeMsg); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to parse message type")
		return
	}

	switch typeMsg.Type {
	case "face":
		var msg FaceMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to parse face message")
			return
		}
		switch msg.Source {
		case SourceExternal, "":
			c.External.update(msg)
		case SourceWebCam:
			c.WebCam.update(msg)
		default:
			c.logger.Debug().Str("source", string(msg.Source)).Msg("Unknown face source")
		}

	case "error":
		var msg ErrorMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to parse error message")
			return
		}
		c.logger.Warn().Str("message", msg.Message).Msg("Tracker error")

	default:
		c.logger.Debug().Str("type", typeMsg.Type).Msg("Unknown message type")
	}
}
