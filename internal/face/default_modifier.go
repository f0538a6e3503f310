package face

import (
	"math"
	"sync/atomic"

	"github.com/normanking/mirrorcore/internal/avatar3d"
)

// DefaultBlendShapeModifier adds a constant "Fun" baseline to the face.
type DefaultBlendShapeModifier struct {
	funBits atomic.Uint32
}

// SetFunPercentage sets the baseline from a 0..100 percentage
func (m *DefaultBlendShapeModifier) SetFunPercentage(pct int) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	m.funBits.Store(math.Float32bits(float32(pct) * 0.01))
}

func (m *DefaultBlendShapeModifier) FunValue() float32 {
	return math.Float32frombits(m.funBits.Load())
}

func (m *DefaultBlendShapeModifier) Apply(target Accumulator) {
	target.AccumulateValue(avatar3d.Fun, m.FunValue())
}
