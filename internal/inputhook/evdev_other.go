//go:build !linux

package inputhook

import (
	"errors"

	"github.com/rs/zerolog"
)

// ErrUnsupported is returned when no native hook exists for this platform
var ErrUnsupported = errors.New("global input hook not supported on this platform")

type EvdevHook struct{}

func NewEvdevHook(patterns []string, logger zerolog.Logger) *EvdevHook {
	return &EvdevHook{}
}

func (h *EvdevHook) Register(emit func(NativeCode)) (MessageLoop, error) {
	return nil, ErrUnsupported
}

func (h *EvdevHook) Unregister() error {
	return nil
}
