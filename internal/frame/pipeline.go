// Package frame runs the per-frame face update in a fixed order.
package frame

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"

	"github.com/normanking/mirrorcore/internal/avatar3d"
	"github.com/normanking/mirrorcore/internal/face"
)

// Output is one produced frame
type Output struct {
	Weights     avatar3d.BlendshapeWeights // clamped to [0,1]
	EyeRotation mgl32.Quat
	EyeExternal bool // rotation came from the external tracker
}

// Sink consumes each frame
type Sink interface {
	Frame(out Output)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(out Output)

func (f SinkFunc) Frame(out Output) { f(out) }

// EyeSource is a jitter provider that yields an eye rotation while active
type EyeSource interface {
	Active() bool
	Rotation() mgl32.Quat
}

// Updater is a per-frame provider such as the auto blinker
type Updater interface {
	Update(dt float32)
}

// Drainer hands queued input events to subscribers
type Drainer interface {
	Drain() int
}

// Components are the collaborators a Pipeline ticks
type Components struct {
	Selector  *face.EyeMotionModeSelector
	Arbiter   *face.FaceBlendArbiter
	Clips     *face.ClipSettings
	Presence  *face.ModelPresence
	Override  *avatar3d.OverrideController
	Providers []Updater
	Drainer   Drainer
	Sink      Sink

	// the two jitter providers the selector switches between
	ProceduralEye EyeSource
	ExternalEye   EyeSource
}

// Pipeline owns the output weights and produces one frame per Tick
type Pipeline struct {
	c           Components
	logger      zerolog.Logger
	weights     avatar3d.BlendshapeWeights
	perfectSync atomic.Bool
	frames      atomic.Uint64
}

func NewPipeline(c Components, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		c:      c,
		logger: logger.With().Str("component", "frame").Logger(),
	}
}

// SetPerfectSync marks the face as driven by perfect-sync tracking, which
// replaces arbiter output and the neutral clip.
func (p *Pipeline) SetPerfectSync(enabled bool) {
	p.perfectSync.Store(enabled)
}

func (p *Pipeline) PerfectSync() bool {
	return p.perfectSync.Load()
}

// Frames returns the number of completed ticks
func (p *Pipeline) Frames() uint64 {
	return p.frames.Load()
}

// Tick advances every provider by dt seconds and emits one frame
func (p *Pipeline) Tick(dt float32) {
	if p.c.Selector != nil {
		p.c.Selector.Update()
	}

	for _, u := range p.c.Providers {
		u.Update(dt)
	}

	p.weights.Reset()

	var overrideWeight float32
	if p.c.Override != nil {
		overrideWeight = p.c.Override.Weight()
	}
	faceWeight := 1 - overrideWeight
	perfectSync := p.perfectSync.Load()

	if !perfectSync && faceWeight > 0 {
		p.c.Arbiter.Accumulate(&p.weights, faceWeight)
	}

	// override and clips write only into a loaded model
	if p.c.Presence.HasModel() {
		if p.c.Override != nil {
			p.c.Override.Apply(&p.weights)
		}
		if p.c.Clips != nil {
			if !perfectSync && faceWeight > 0 {
				p.c.Clips.ApplyNeutralClip(&p.weights, faceWeight)
			}
			p.c.Clips.ApplyOffsetClip(&p.weights, 1)
		}
	}

	if p.c.Drainer != nil {
		p.c.Drainer.Drain()
	}

	if p.c.Sink != nil {
		rotation, external := p.eyeRotation()
		p.c.Sink.Frame(Output{
			Weights:     p.weights.Clamped(),
			EyeRotation: rotation,
			EyeExternal: external,
		})
	}
	p.frames.Add(1)
}

// eyeRotation reads the provider the selector left active
func (p *Pipeline) eyeRotation() (mgl32.Quat, bool) {
	if e := p.c.ExternalEye; e != nil && e.Active() {
		return e.Rotation(), true
	}
	if e := p.c.ProceduralEye; e != nil && e.Active() {
		return e.Rotation(), false
	}
	return mgl32.QuatIdent(), false
}

// Run ticks at rate frames per second until ctx is cancelled
func (p *Pipeline) Run(ctx context.Context, rate int) error {
	if rate <= 0 {
		rate = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	p.logger.Info().Int("rate", rate).Msg("Frame loop started")
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Uint64("frames", p.Frames()).Msg("Frame loop stopped")
			return nil
		case now := <-ticker.C:
			dt := float32(now.Sub(last).Seconds())
			last = now
			p.Tick(dt)
		}
	}
}
