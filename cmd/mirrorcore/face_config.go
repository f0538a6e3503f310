package main

import (
	"errors"
	"strconv"
	"sync"

	"github.com/normanking/mirrorcore/internal/config"
	"github.com/normanking/mirrorcore/internal/face"
)

// faceHandler is the part of face.ConfigurationReceiver used for file settings
type faceHandler interface {
	Handle(command, content string) error
}

// faceConfigApplier pushes file settings through the same handlers the
// command channel uses. After the first Apply only changed fields are sent,
// so a reload does not undo what clients set since.
type faceConfigApplier struct {
	handler faceHandler

	mu   sync.Mutex
	last map[string]string
}

func newFaceConfigApplier(h faceHandler) *faceConfigApplier {
	return &faceConfigApplier{handler: h}
}

func faceSettings(fc config.FaceConfig) [][2]string {
	return [][2]string{
		{face.CmdFaceControlMode, fc.ControlMode},
		{face.CmdAutoBlinkDuringFaceTracking, strconv.FormatBool(fc.PreferAutoBlinkOnWebcam)},
		{face.CmdFaceNeutralClip, fc.NeutralClip},
		{face.CmdFaceOffsetClip, fc.OffsetClip},
		{face.CmdFaceDefaultFun, strconv.Itoa(fc.DefaultFun)},
		{face.CmdEyeBoneRotationScale, strconv.Itoa(fc.EyeBoneRotationScale)},
	}
}

func (a *faceConfigApplier) Apply(fc config.FaceConfig) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	first := a.last == nil
	if first {
		a.last = make(map[string]string)
	}

	var errs []error
	for _, s := range faceSettings(fc) {
		command, content := s[0], s[1]
		if prev, ok := a.last[command]; !first && ok && prev == content {
			continue
		}
		// a rejected value is retried on the next change only
		a.last[command] = content
		if err := a.handler.Handle(command, content); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
