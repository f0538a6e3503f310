package command

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/mirrorcore/internal/bus"
)

func startServer(t *testing.T, router *Router) (*Server, *websocket.Conn) {
	t.Helper()

	s := NewServer("127.0.0.1:0", router, zerolog.Nop())
	require.NoError(t, s.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+s.Addr().String()+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return s.Hub().Clients() == 1 }, 2*time.Second, 5*time.Millisecond)
	return s, conn
}

func readFrame(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, v))
}

func TestServer_CommandReply(t *testing.T) {
	router := NewRouter()
	applied := make(chan string, 1)
	router.AssignCommandHandler("FaceDefaultFun", func(content string) error {
		applied <- content
		return nil
	})
	_, conn := startServer(t, router)

	require.NoError(t, conn.WriteJSON(Request{Command: "FaceDefaultFun", Content: "30"}))

	var reply Reply
	readFrame(t, conn, &reply)
	assert.Equal(t, "ok", reply.Status)
	assert.Equal(t, "30", <-applied)
}

func TestServer_ErrorReplies(t *testing.T) {
	_, conn := startServer(t, NewRouter())

	require.NoError(t, conn.WriteJSON(Request{Command: "Missing"}))
	var reply Reply
	readFrame(t, conn, &reply)
	assert.Equal(t, "error", reply.Status)
	assert.Contains(t, reply.Error, "unknown command")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
	readFrame(t, conn, &reply)
	assert.Equal(t, "error", reply.Status)
	assert.Equal(t, "malformed command frame", reply.Error)
}

func TestServer_BroadcastsOutput(t *testing.T) {
	s, conn := startServer(t, NewRouter())

	eventBus := bus.NewEventBus()
	s.ForwardInput(eventBus)

	s.BroadcastBlendShapes(map[string]float32{"Blink_L": 0.5})
	var frame struct {
		Type string             `json:"type"`
		Data map[string]float32 `json:"data"`
	}
	readFrame(t, conn, &frame)
	assert.Equal(t, "blendshapes", frame.Type)
	assert.Equal(t, float32(0.5), frame.Data["Blink_L"])

	eventBus.PublishSync(bus.Event{Type: bus.EventTypeMouseButton, Data: map[string]any{"event": "LDown"}})
	var input struct {
		Type string            `json:"type"`
		Data map[string]string `json:"data"`
	}
	readFrame(t, conn, &input)
	assert.Equal(t, "input", input.Type)
	assert.Equal(t, "LDown", input.Data["event"])
}

func TestServer_BroadcastsEye(t *testing.T) {
	s, conn := startServer(t, NewRouter())

	s.BroadcastEye(mgl32.QuatIdent(), true)

	var frame struct {
		Type string   `json:"type"`
		Data EyeFrame `json:"data"`
	}
	readFrame(t, conn, &frame)
	assert.Equal(t, "eye", frame.Type)
	assert.Equal(t, EyeFrame{W: 1, External: true}, frame.Data)
}
