package avatar3d

import (
	"sync"
	"time"
)

type OverrideKind int

const (
	OverrideNone OverrideKind = iota
	OverrideFaceSwitch
	OverrideWordToMotion
)

func (k OverrideKind) String() string {
	switch k {
	case OverrideFaceSwitch:
		return "face_switch"
	case OverrideWordToMotion:
		return "word_to_motion"
	default:
		return "none"
	}
}

// OverrideController holds an expression clip that replaces the regular face
// output while active. Weight fades between 0 and 1 so that callers can
// cross-fade the override against their own contribution. Switching clips
// fades the outgoing clip down while the new one fades up.
type OverrideController struct {
	mu sync.RWMutex

	kind   OverrideKind
	clip   BlendshapeIndex
	weight float32
	target float32
	fade   float32

	prevClip   BlendshapeIndex
	prevWeight float32
}

func NewOverrideController(fade time.Duration) *OverrideController {
	return &OverrideController{
		clip:     -1,
		prevClip: -1,
		fade:     float32(fade.Seconds()),
	}
}

func (oc *OverrideController) Begin(kind OverrideKind, clip BlendshapeIndex) {
	oc.mu.Lock()
	defer oc.mu.Unlock()

	if !clip.Valid() || kind == OverrideNone {
		return
	}
	if oc.clip != clip && oc.weight > 0 {
		// the outgoing clip fades down while the new one fades up
		if oc.weight >= oc.prevWeight {
			oc.prevClip, oc.prevWeight = oc.clip, oc.weight
		}
		oc.weight = 0
	}
	oc.kind = kind
	oc.clip = clip
	oc.target = 1
}

func (oc *OverrideController) End(kind OverrideKind) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	if oc.kind == kind {
		oc.target = 0
	}
}

func (oc *OverrideController) Update(dt float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()

	if oc.fade <= 0 {
		oc.weight = oc.target
		oc.prevWeight = 0
	} else {
		if oc.weight < oc.target {
			oc.weight = clamp(oc.weight+dt/oc.fade, 0, oc.target)
		} else if oc.weight > oc.target {
			oc.weight = clamp(oc.weight-dt/oc.fade, oc.target, 1)
		}
		if oc.prevWeight > 0 {
			oc.prevWeight = clamp(oc.prevWeight-dt/oc.fade, 0, 1)
		}
	}
	if oc.prevWeight == 0 {
		oc.prevClip = -1
	}

	if oc.weight == 0 && oc.target == 0 && oc.prevWeight == 0 {
		oc.kind = OverrideNone
		oc.clip = -1
	}
}

// Reset drops any override immediately, without fading
func (oc *OverrideController) Reset() {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.kind = OverrideNone
	oc.clip, oc.prevClip = -1, -1
	oc.weight, oc.target, oc.prevWeight = 0, 0, 0
}

// Weight is the combined share of the incoming and outgoing clips
func (oc *OverrideController) Weight() float32 {
	oc.mu.RLock()
	defer oc.mu.RUnlock()
	return clamp(oc.weight+oc.prevWeight, 0, 1)
}

func (oc *OverrideController) Kind() OverrideKind {
	oc.mu.RLock()
	defer oc.mu.RUnlock()
	return oc.kind
}

func (oc *OverrideController) Apply(target *BlendshapeWeights) {
	oc.mu.RLock()
	defer oc.mu.RUnlock()
	if oc.weight > 0 && oc.clip.Valid() {
		target.AccumulateValue(oc.clip, oc.weight)
	}
	if oc.prevWeight > 0 && oc.prevClip.Valid() {
		target.AccumulateValue(oc.prevClip, oc.prevWeight)
	}
}
