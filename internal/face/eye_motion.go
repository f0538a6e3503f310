package face

// JitterSource is an eye-rotation provider that can be switched on and off
type JitterSource interface {
	SetActive(active bool)
	Active() bool
}

// TrackedJitterSource is a JitterSource backed by a live tracker
type TrackedJitterSource interface {
	JitterSource
	IsTracked() bool
}

// EyeMotionModeSelector keeps exactly one of the two eye jitter providers
// active. Both write the same eye bone, so they must never run together.
type EyeMotionModeSelector struct {
	state      *ControlModeState
	procedural JitterSource
	external   TrackedJitterSource
}

func NewEyeMotionModeSelector(state *ControlModeState, procedural JitterSource, external TrackedJitterSource) *EyeMotionModeSelector {
	return &EyeMotionModeSelector{
		state:      state,
		procedural: procedural,
		external:   external,
	}
}

// Update runs once per frame tick. The external provider is used only in
// external tracker mode while the tracker reports a face.
func (s *EyeMotionModeSelector) Update() {
	useExternal := s.state.Mode() == ModeExternalTracker && s.external.IsTracked()
	s.procedural.SetActive(!useExternal)
	s.external.SetActive(useExternal)
}

// UsingExternal reports the decision of the last Update
func (s *EyeMotionModeSelector) UsingExternal() bool {
	return s.external.Active()
}
