package face

import "github.com/normanking/mirrorcore/internal/avatar3d"

// Accumulator is the write side of the avatar's blend shape surface.
// AccumulateValue adds weight to key; it must tolerate any number of calls
// per frame.
type Accumulator interface {
	AccumulateValue(key avatar3d.BlendshapeIndex, weight float32)
}

// BlinkSources groups the three blink providers the arbiter chooses from
type BlinkSources struct {
	External BlinkSource
	Image    BlinkSource
	Auto     BlinkSource
}

// FaceBlendArbiter picks one blink source per call and writes it, together
// with the default expression, into an Accumulator.
type FaceBlendArbiter struct {
	state    *ControlModeState
	presence *ModelPresence
	sources  BlinkSources
	modifier *DefaultBlendShapeModifier
}

func NewFaceBlendArbiter(
	state *ControlModeState,
	presence *ModelPresence,
	sources BlinkSources,
	modifier *DefaultBlendShapeModifier,
) *FaceBlendArbiter {
	if modifier == nil {
		modifier = &DefaultBlendShapeModifier{}
	}
	return &FaceBlendArbiter{
		state:    state,
		presence: presence,
		sources:  sources,
		modifier: modifier,
	}
}

// DefaultBlendShape returns the modifier applied on every accumulation
func (a *FaceBlendArbiter) DefaultBlendShape() *DefaultBlendShapeModifier {
	return a.modifier
}

// ActiveBlinkSource reports which provider Accumulate would read now.
//
// ExternalTracker mode always uses the external tracker. WebCam mode uses
// the image tracker unless auto blink is preferred. Everything else falls
// back to the procedural auto blink.
func (a *FaceBlendArbiter) ActiveBlinkSource() BlinkSourceKind {
	switch a.state.Mode() {
	case ModeExternalTracker:
		return BlinkFromExternalTracker
	case ModeWebCam:
		if !a.state.PreferAutoBlinkOnWebcam() {
			return BlinkFromImage
		}
	}
	return BlinkFromAuto
}

// Accumulate adds the default expression and the selected blink, scaled by
// weight, to target. It is a no-op while no model is loaded.
//
// The default expression is applied on every call. Callers driving the face
// through perfect sync, a face switch or word-to-motion must not call
// Accumulate at all for the duration of that mode; cross-fading callers pass
// the complementary weight instead.
func (a *FaceBlendArbiter) Accumulate(target Accumulator, weight float32) {
	if !a.presence.HasModel() {
		return
	}

	a.modifier.Apply(target)

	src := a.source(a.ActiveBlinkSource())
	if src == nil {
		return
	}
	blink := src.Blink()
	target.AccumulateValue(avatar3d.BlinkL, blink.Left*weight)
	target.AccumulateValue(avatar3d.BlinkR, blink.Right*weight)
}

func (a *FaceBlendArbiter) source(kind BlinkSourceKind) BlinkSource {
	var src BlinkSource
	switch kind {
	case BlinkFromExternalTracker:
		src = a.sources.External
	case BlinkFromImage:
		src = a.sources.Image
	}
	if src == nil {
		src = a.sources.Auto
	}
	return src
}
