package tracker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient() *Client {
	return NewClient("ws://127.0.0.1:0", 500*time.Millisecond, zerolog.Nop())
}

func TestHandleMessage_RoutesBySource(t *testing.T) {
	c := newTestClient()

	c.handleMessage([]byte(`{"type":"face","source":"external","tracked":true,"blink_l":0.2,"blink_r":0.4}`))
	c.handleMessage([]byte(`{"type":"face","source":"webcam","tracked":true,"blink_l":0.9,"blink_r":0.7}`))

	assert.InDelta(t, 0.2, c.External.Blink().Left, 1e-6)
	assert.InDelta(t, 0.4, c.External.Blink().Right, 1e-6)
	assert.InDelta(t, 0.9, c.WebCam.Blink().Left, 1e-6)
	assert.InDelta(t, 0.7, c.WebCam.Blink().Right, 1e-6)
	assert.True(t, c.External.IsTracked())
	assert.True(t, c.WebCam.IsTracked())
}

func TestHandleMessage_ClampsBlink(t *testing.T) {
	c := newTestClient()
	c.handleMessage([]byte(`{"type":"face","source":"external","tracked":true,"blink_l":-1,"blink_r":3}`))

	assert.Equal(t, float32(0), c.External.Blink().Left)
	assert.Equal(t, float32(1), c.External.Blink().Right)
}

func TestHandleMessage_IgnoresGarbage(t *testing.T) {
	c := newTestClient()

	c.handleMessage([]byte(`not json`))
	c.handleMessage([]byte(`{"type":"face","source":"kinect","tracked":true,"blink_l":1}`))
	c.handleMessage([]byte(`{"type":"error","message":"camera busy"}`))
	c.handleMessage([]byte(`{"type":"pose"}`))

	assert.False(t, c.External.IsTracked())
	assert.False(t, c.WebCam.IsTracked())
}

func TestSource_LostFaceKeepsLastBlink(t *testing.T) {
	s := NewSource(SourceExternal, time.Second)
	s.update(FaceMessage{Tracked: true, BlinkLeft: 0.5, BlinkRight: 0.5})
	s.update(FaceMessage{Tracked: false, BlinkLeft: 1, BlinkRight: 1})

	assert.False(t, s.IsTracked())
	assert.InDelta(t, 0.5, s.Blink().Left, 1e-6)
}

func TestSource_TrackingTimesOut(t *testing.T) {
	now := time.Unix(1000, 0)
	s := NewSource(SourceExternal, 500*time.Millisecond)
	s.now = func() time.Time { return now }

	s.update(FaceMessage{Tracked: true})
	assert.True(t, s.IsTracked())

	now = now.Add(400 * time.Millisecond)
	assert.True(t, s.IsTracked())

	now = now.Add(200 * time.Millisecond)
	assert.False(t, s.IsTracked())
}

func TestSource_RotationOnlyWhileActive(t *testing.T) {
	s := NewSource(SourceExternal, time.Second)
	s.update(FaceMessage{Tracked: true, EyeYaw: 10, EyePitch: 5})

	assert.Equal(t, mgl32.QuatIdent(), s.Rotation())

	s.SetActive(true)
	assert.True(t, s.Active())
	assert.NotEqual(t, mgl32.QuatIdent(), s.Rotation())
}

func TestClient_RunReceivesFrames(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"type":"face","source":"external","tracked":true,"blink_l":0.3,"blink_r":0.6}`))
		// hold the connection until the client leaves
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	c := NewClient(strings.Replace(srv.URL, "http", "ws", 1), time.Minute, zerolog.Nop())
	var connected atomic.Int32
	c.SetConnectionCallback(func(ok bool) {
		if ok {
			connected.Add(1)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool {
		return c.External.IsTracked()
	}, 2*time.Second, 10*time.Millisecond)
	assert.InDelta(t, 0.6, c.External.Blink().Right, 1e-6)
	assert.True(t, c.IsConnected())
	assert.Equal(t, int32(1), connected.Load())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, c.IsConnected())
}
