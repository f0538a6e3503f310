// Package face resolves which signal drives the avatar's face each frame
// and accumulates the result into a blend shape surface.
package face

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// ControlMode identifies the active tracking modality
type ControlMode int32

const (
	ModeAuto ControlMode = iota
	ModeWebCam
	ModeExternalTracker
)

func (m ControlMode) String() string {
	switch m {
	case ModeWebCam:
		return "WebCam"
	case ModeExternalTracker:
		return "ExternalTracker"
	default:
		return "Auto"
	}
}

// ParseControlMode accepts the names produced by String, case-insensitively.
func ParseControlMode(s string) (ControlMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto", "none", "":
		return ModeAuto, nil
	case "webcam":
		return ModeWebCam, nil
	case "externaltracker", "external_tracker", "extracker":
		return ModeExternalTracker, nil
	}
	return ModeAuto, fmt.Errorf("unknown control mode %q", s)
}

// ControlModeState is written by the configuration channel and read by the
// frame loop. Each field is stored atomically and read independently.
type ControlModeState struct {
	mode            atomic.Int32
	preferAutoBlink atomic.Bool
}

// NewControlModeState returns the startup state: Auto mode, auto blink
// preferred during webcam tracking.
func NewControlModeState() *ControlModeState {
	s := &ControlModeState{}
	s.mode.Store(int32(ModeAuto))
	s.preferAutoBlink.Store(true)
	return s
}

func (s *ControlModeState) Mode() ControlMode {
	return ControlMode(s.mode.Load())
}

func (s *ControlModeState) SetMode(m ControlMode) {
	s.mode.Store(int32(m))
}

func (s *ControlModeState) PreferAutoBlinkOnWebcam() bool {
	return s.preferAutoBlink.Load()
}

func (s *ControlModeState) SetPreferAutoBlinkOnWebcam(v bool) {
	s.preferAutoBlink.Store(v)
}
