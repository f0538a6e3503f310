package tracker

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/normanking/mirrorcore/internal/avatar3d"
)

// SourceKind tells which tracker produced a frame
type SourceKind string

const (
	SourceExternal SourceKind = "external"
	SourceWebCam   SourceKind = "webcam"
)

// Source holds the latest frame of one tracker. Frames are written by the
// websocket reader and read by the frame loop.
type Source struct {
	kind    SourceKind
	timeout time.Duration
	now     func() time.Time

	mu         sync.RWMutex
	blink      avatar3d.BlinkValues
	rotation   mgl32.Quat
	tracked    bool
	receivedAt time.Time

	active atomic.Bool
}

func NewSource(kind SourceKind, timeout time.Duration) *Source {
	return &Source{
		kind:     kind,
		timeout:  timeout,
		now:      time.Now,
		rotation: mgl32.QuatIdent(),
	}
}

func (s *Source) Kind() SourceKind {
	return s.kind
}

func (s *Source) update(msg FaceMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tracked = msg.Tracked
	s.receivedAt = s.now()
	if !msg.Tracked {
		return
	}
	s.blink = avatar3d.BlinkValues{
		Left:  clamp01(msg.BlinkLeft),
		Right: clamp01(msg.BlinkRight),
	}
	s.rotation = avatar3d.EyeRotation(msg.EyeYaw, msg.EyePitch)
}

// Blink returns the last reported blink. A lost face keeps its last value.
func (s *Source) Blink() avatar3d.BlinkValues {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.blink
}

// IsTracked reports whether a face was seen within the tracking timeout
func (s *Source) IsTracked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tracked && s.now().Sub(s.receivedAt) <= s.timeout
}

func (s *Source) SetActive(active bool) {
	s.active.Store(active)
}

func (s *Source) Active() bool {
	return s.active.Load()
}

// Rotation is the tracked eye rotation, or identity while inactive
func (s *Source) Rotation() mgl32.Quat {
	if !s.Active() {
		return mgl32.QuatIdent()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rotation
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
