package face

import (
	"sync"

	"github.com/normanking/mirrorcore/internal/avatar3d"
)

// BlinkValues is the left/right eyelid closure of a blink source
type BlinkValues = avatar3d.BlinkValues

// BlinkSource exposes the current blink value of its provider
type BlinkSource interface {
	Blink() BlinkValues
}

// BlinkSourceKind names the provider selected by the arbiter
type BlinkSourceKind int

const (
	BlinkFromAuto BlinkSourceKind = iota
	BlinkFromImage
	BlinkFromExternalTracker
)

func (k BlinkSourceKind) String() string {
	switch k {
	case BlinkFromImage:
		return "image"
	case BlinkFromExternalTracker:
		return "external_tracker"
	default:
		return "auto"
	}
}

// RecordBlinkSource is a BlinkSource holding a fixed value. It is safe for
// one writer and any number of readers.
type RecordBlinkSource struct {
	mu    sync.RWMutex
	value BlinkValues
}

func (r *RecordBlinkSource) Set(left, right float32) {
	r.mu.Lock()
	r.value = BlinkValues{Left: left, Right: right}
	r.mu.Unlock()
}

func (r *RecordBlinkSource) Blink() BlinkValues {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.value
}
