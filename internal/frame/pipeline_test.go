package frame

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/mirrorcore/internal/avatar3d"
	"github.com/normanking/mirrorcore/internal/face"
)

type trace struct {
	steps []string
}

func (tr *trace) add(step string) {
	if n := len(tr.steps); n > 0 && tr.steps[n-1] == step {
		return
	}
	tr.steps = append(tr.steps, step)
}

type tracedJitter struct {
	tr       *trace
	active   bool
	tracked  bool
	rotation mgl32.Quat
}

func (j *tracedJitter) SetActive(active bool) { j.tr.add("select"); j.active = active }
func (j *tracedJitter) Active() bool          { return j.active }
func (j *tracedJitter) IsTracked() bool       { return j.tracked }

func (j *tracedJitter) Rotation() mgl32.Quat {
	if !j.active {
		return mgl32.QuatIdent()
	}
	return j.rotation
}

type tracedProvider struct{ tr *trace }

func (p tracedProvider) Update(float32) { p.tr.add("provider") }

type tracedBlink struct {
	tr    *trace
	value avatar3d.BlinkValues
}

func (b tracedBlink) Blink() avatar3d.BlinkValues {
	b.tr.add("arbiter")
	return b.value
}

type tracedDrainer struct{ tr *trace }

func (d tracedDrainer) Drain() int { d.tr.add("drain"); return 0 }

type fixture struct {
	tr       *trace
	state    *face.ControlModeState
	presence *face.ModelPresence
	clips    *face.ClipSettings
	modifier *face.DefaultBlendShapeModifier
	override *avatar3d.OverrideController
	saccade  *tracedJitter
	tracked  *tracedJitter
	pipeline *Pipeline
	out      []avatar3d.BlendshapeWeights
	eyes     []Output
}

func newFixture(blink avatar3d.BlinkValues) *fixture {
	f := &fixture{
		tr:       &trace{},
		state:    face.NewControlModeState(),
		presence: &face.ModelPresence{},
		clips:    &face.ClipSettings{},
		modifier: &face.DefaultBlendShapeModifier{},
		override: avatar3d.NewOverrideController(0),
	}
	f.saccade = &tracedJitter{tr: f.tr, rotation: avatar3d.EyeRotation(4, 0)}
	f.tracked = &tracedJitter{tr: f.tr, rotation: avatar3d.EyeRotation(-10, 6)}
	selector := face.NewEyeMotionModeSelector(f.state, f.saccade, f.tracked)
	arbiter := face.NewFaceBlendArbiter(f.state, f.presence,
		face.BlinkSources{Auto: tracedBlink{tr: f.tr, value: blink}}, f.modifier)

	f.pipeline = NewPipeline(Components{
		Selector:  selector,
		Arbiter:   arbiter,
		Clips:     f.clips,
		Presence:  f.presence,
		Override:  f.override,
		Providers: []Updater{tracedProvider{tr: f.tr}, f.override},
		Drainer:   tracedDrainer{tr: f.tr},
		Sink: SinkFunc(func(o Output) {
			f.tr.add("sink")
			f.out = append(f.out, o.Weights)
			f.eyes = append(f.eyes, o)
		}),
		ProceduralEye: f.saccade,
		ExternalEye:   f.tracked,
	}, zerolog.Nop())
	return f
}

func (f *fixture) last() *avatar3d.BlendshapeWeights {
	return &f.out[len(f.out)-1]
}

func TestPipeline_TickOrder(t *testing.T) {
	f := newFixture(avatar3d.BlinkValues{Left: 0.5, Right: 0.5})
	f.presence.OnModelLoaded()

	f.pipeline.Tick(1.0 / 60)

	assert.Equal(t, []string{"select", "provider", "arbiter", "drain", "sink"}, f.tr.steps)
	assert.Equal(t, uint64(1), f.pipeline.Frames())
}

func TestPipeline_NoModelStillDrains(t *testing.T) {
	f := newFixture(avatar3d.BlinkValues{Left: 1, Right: 1})

	f.pipeline.Tick(1.0 / 60)

	assert.Equal(t, []string{"select", "provider", "drain", "sink"}, f.tr.steps)
	assert.Empty(t, f.last().NonZero())
}

func TestPipeline_OutputIsClampedAndFresh(t *testing.T) {
	f := newFixture(avatar3d.BlinkValues{Left: 0.75, Right: 0.25})
	f.presence.OnModelLoaded()
	f.modifier.SetFunPercentage(100)
	require.NoError(t, f.clips.BindOffset("Fun"))

	f.pipeline.Tick(1.0 / 60)
	f.pipeline.Tick(1.0 / 60)

	w := f.last()
	// default fun and offset both add 1, clamped to 1
	assert.Equal(t, float32(1), w.Get(avatar3d.Fun))
	assert.InDelta(t, 0.75, w.Get(avatar3d.BlinkL), 1e-6)
	assert.InDelta(t, 0.25, w.Get(avatar3d.BlinkR), 1e-6)
}

func TestPipeline_NeutralClipFollowsFaceWeight(t *testing.T) {
	f := newFixture(avatar3d.BlinkValues{})
	f.presence.OnModelLoaded()
	require.NoError(t, f.clips.BindNeutral("Joy"))

	f.pipeline.Tick(1.0 / 60)
	assert.InDelta(t, 1, f.last().Get(avatar3d.Joy), 1e-6)

	f.override.Begin(avatar3d.OverrideFaceSwitch, avatar3d.Angry)
	f.pipeline.Tick(1.0 / 60)
	assert.Equal(t, float32(0), f.last().Get(avatar3d.Joy))
	assert.Equal(t, float32(1), f.last().Get(avatar3d.Angry))
}

func TestPipeline_OverrideSkipsAccumulate(t *testing.T) {
	f := newFixture(avatar3d.BlinkValues{Left: 1, Right: 1})
	f.presence.OnModelLoaded()
	require.NoError(t, f.clips.BindOffset("Sorrow"))

	f.override.Begin(avatar3d.OverrideWordToMotion, avatar3d.Joy)
	f.pipeline.Tick(1.0 / 60)

	assert.NotContains(t, f.tr.steps, "arbiter")
	w := f.last()
	assert.Equal(t, float32(0), w.Get(avatar3d.BlinkL))
	assert.Equal(t, float32(1), w.Get(avatar3d.Joy))
	assert.Equal(t, float32(1), w.Get(avatar3d.Sorrow), "offset clip stays on during overrides")

	f.override.End(avatar3d.OverrideWordToMotion)
	f.pipeline.Tick(1.0 / 60)
	assert.Equal(t, float32(1), f.last().Get(avatar3d.BlinkL))
	assert.Equal(t, float32(0), f.last().Get(avatar3d.Joy))
}

func TestPipeline_OverrideCrossFade(t *testing.T) {
	f := newFixture(avatar3d.BlinkValues{Left: 1, Right: 1})
	f.presence.OnModelLoaded()
	f.override = avatar3d.NewOverrideController(1_000_000_000) // 1s fade
	f.pipeline.c.Override = f.override
	f.pipeline.c.Providers = []Updater{f.override}

	f.override.Begin(avatar3d.OverrideFaceSwitch, avatar3d.Joy)
	f.pipeline.Tick(0.25)

	w := f.last()
	assert.InDelta(t, 0.25, w.Get(avatar3d.Joy), 1e-5)
	assert.InDelta(t, 0.75, w.Get(avatar3d.BlinkL), 1e-5)
}

func TestPipeline_PerfectSyncSkipsArbiter(t *testing.T) {
	f := newFixture(avatar3d.BlinkValues{Left: 1, Right: 1})
	f.presence.OnModelLoaded()
	require.NoError(t, f.clips.BindNeutral("Joy"))
	require.NoError(t, f.clips.BindOffset("Fun"))

	f.pipeline.SetPerfectSync(true)
	f.pipeline.Tick(1.0 / 60)

	assert.NotContains(t, f.tr.steps, "arbiter")
	w := f.last()
	assert.Equal(t, float32(0), w.Get(avatar3d.BlinkL))
	assert.Equal(t, float32(0), w.Get(avatar3d.Joy))
	assert.Equal(t, float32(1), w.Get(avatar3d.Fun))
}

func TestPipeline_NoOverrideOutputAfterUnload(t *testing.T) {
	f := newFixture(avatar3d.BlinkValues{})
	f.presence.OnModelLoaded()
	require.NoError(t, f.clips.BindOffset("Fun"))

	f.override.Begin(avatar3d.OverrideFaceSwitch, avatar3d.Joy)
	f.pipeline.Tick(1.0 / 60)
	require.Equal(t, float32(1), f.last().Get(avatar3d.Joy))

	f.presence.OnModelUnloading()
	f.pipeline.Tick(1.0 / 60)

	assert.Empty(t, f.last().NonZero())
}

func TestPipeline_EyeRotationFollowsSelector(t *testing.T) {
	f := newFixture(avatar3d.BlinkValues{})
	f.presence.OnModelLoaded()
	lastEye := func() Output { return f.eyes[len(f.eyes)-1] }

	f.pipeline.Tick(1.0 / 60)
	assert.False(t, lastEye().EyeExternal)
	assert.Equal(t, f.saccade.rotation, lastEye().EyeRotation)

	// external mode without a face keeps the procedural jitter
	f.state.SetMode(face.ModeExternalTracker)
	f.pipeline.Tick(1.0 / 60)
	assert.False(t, lastEye().EyeExternal)
	assert.Equal(t, f.saccade.rotation, lastEye().EyeRotation)

	f.tracked.tracked = true
	f.pipeline.Tick(1.0 / 60)
	assert.True(t, lastEye().EyeExternal)
	assert.Equal(t, f.tracked.rotation, lastEye().EyeRotation)

	f.tracked.tracked = false
	f.pipeline.Tick(1.0 / 60)
	assert.False(t, lastEye().EyeExternal)
	assert.Equal(t, f.saccade.rotation, lastEye().EyeRotation)
}
