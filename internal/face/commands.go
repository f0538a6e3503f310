package face

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Command names understood by ConfigurationReceiver
const (
	CmdEnableFaceTracking          = "EnableFaceTracking"
	CmdExTrackerEnable             = "ExTrackerEnable"
	CmdFaceControlMode             = "FaceControlMode"
	CmdAutoBlinkDuringFaceTracking = "AutoBlinkDuringFaceTracking"
	CmdFaceDefaultFun              = "FaceDefaultFun"
	CmdFaceNeutralClip             = "FaceNeutralClip"
	CmdFaceOffsetClip              = "FaceOffsetClip"
	CmdEyeBoneRotationScale        = "EyeBoneRotationScale"
)

// ErrUnknownCommand is returned by Handle for names it does not own
var ErrUnknownCommand = errors.New("unknown command")

// PayloadError reports a command whose content could not be parsed
type PayloadError struct {
	Command string
	Content string
	Err     error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("command %s: invalid content %q: %v", e.Command, e.Content, e.Err)
}

func (e *PayloadError) Unwrap() error {
	return e.Err
}

// CommandReceiver dispatches named commands to handlers
type CommandReceiver interface {
	AssignCommandHandler(command string, handler func(content string) error)
}

// ConfigurationReceiver applies face configuration commands to shared state.
// Changes take effect on the next frame tick.
type ConfigurationReceiver struct {
	state    *ControlModeState
	clips    *ClipSettings
	modifier *DefaultBlendShapeModifier
	logger   zerolog.Logger

	// OnEyeRotationScale, when set, receives EyeBoneRotationScale as a factor
	OnEyeRotationScale func(scale float32)

	mu            sync.Mutex
	faceTracking  bool
	externalTrack bool
}

func NewConfigurationReceiver(
	state *ControlModeState,
	clips *ClipSettings,
	modifier *DefaultBlendShapeModifier,
	logger zerolog.Logger,
) *ConfigurationReceiver {
	r := &ConfigurationReceiver{
		state:    state,
		clips:    clips,
		modifier: modifier,
		logger:   logger.With().Str("component", "face-config").Logger(),
	}
	switch state.Mode() {
	case ModeWebCam:
		r.faceTracking = true
	case ModeExternalTracker:
		r.externalTrack = true
	}
	return r
}

// Register assigns every face command to receiver
func (r *ConfigurationReceiver) Register(receiver CommandReceiver) {
	for _, name := range []string{
		CmdEnableFaceTracking,
		CmdExTrackerEnable,
		CmdFaceControlMode,
		CmdAutoBlinkDuringFaceTracking,
		CmdFaceDefaultFun,
		CmdFaceNeutralClip,
		CmdFaceOffsetClip,
		CmdEyeBoneRotationScale,
	} {
		name := name
		receiver.AssignCommandHandler(name, func(content string) error {
			return r.Handle(name, content)
		})
	}
}

// Handle applies a single command. Malformed content leaves state unchanged,
// except for clip bindings which are cleared when the name is not usable.
func (r *ConfigurationReceiver) Handle(command, content string) error {
	switch command {
	case CmdEnableFaceTracking:
		v, err := parseBool(command, content)
		if err != nil {
			return err
		}
		r.mu.Lock()
		r.faceTracking = v
		r.updateModeLocked()
		r.mu.Unlock()

	case CmdExTrackerEnable:
		v, err := parseBool(command, content)
		if err != nil {
			return err
		}
		r.mu.Lock()
		r.externalTrack = v
		r.updateModeLocked()
		r.mu.Unlock()

	case CmdFaceControlMode:
		mode, err := ParseControlMode(content)
		if err != nil {
			return &PayloadError{Command: command, Content: content, Err: err}
		}
		r.mu.Lock()
		r.faceTracking = mode == ModeWebCam
		r.externalTrack = mode == ModeExternalTracker
		r.updateModeLocked()
		r.mu.Unlock()

	case CmdAutoBlinkDuringFaceTracking:
		v, err := parseBool(command, content)
		if err != nil {
			return err
		}
		r.state.SetPreferAutoBlinkOnWebcam(v)

	case CmdFaceDefaultFun:
		pct, err := parseInt(command, content)
		if err != nil {
			return err
		}
		r.modifier.SetFunPercentage(pct)

	case CmdFaceNeutralClip:
		if err := r.clips.BindNeutral(content); err != nil {
			r.logger.Warn().Err(err).Msg("Neutral clip left unset")
			return err
		}

	case CmdFaceOffsetClip:
		if err := r.clips.BindOffset(content); err != nil {
			r.logger.Warn().Err(err).Msg("Offset clip left unset")
			return err
		}

	case CmdEyeBoneRotationScale:
		pct, err := parseInt(command, content)
		if err != nil {
			return err
		}
		if r.OnEyeRotationScale != nil {
			r.OnEyeRotationScale(float32(pct) * 0.01)
		}

	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}

	r.logger.Debug().Str("command", command).Str("content", content).Msg("Face command applied")
	return nil
}

// updateModeLocked derives the control mode. The external tracker wins over
// webcam tracking when both are enabled.
func (r *ConfigurationReceiver) updateModeLocked() {
	mode := ModeAuto
	if r.externalTrack {
		mode = ModeExternalTracker
	} else if r.faceTracking {
		mode = ModeWebCam
	}
	if prev := r.state.Mode(); prev != mode {
		r.logger.Info().Str("from", prev.String()).Str("to", mode.String()).Msg("Face control mode changed")
	}
	r.state.SetMode(mode)
}

func parseBool(command, content string) (bool, error) {
	v, err := strconv.ParseBool(strings.TrimSpace(content))
	if err != nil {
		return false, &PayloadError{Command: command, Content: content, Err: err}
	}
	return v, nil
}

func parseInt(command, content string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(content))
	if err != nil {
		return 0, &PayloadError{Command: command, Content: content, Err: err}
	}
	return v, nil
}
