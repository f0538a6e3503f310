package face

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/normanking/mirrorcore/internal/avatar3d"
)

// ErrUnknownBlendshape is returned when a clip name matches no blend shape key
var ErrUnknownBlendshape = errors.New("unknown blend shape")

// ClipSettings holds the optional neutral and offset clip bindings. A nil
// binding means unset; applying an unset clip writes nothing.
type ClipSettings struct {
	neutral atomic.Pointer[avatar3d.BlendshapeIndex]
	offset  atomic.Pointer[avatar3d.BlendshapeIndex]
}

// BindNeutral binds the neutral clip to name. A blank name unbinds it.
func (c *ClipSettings) BindNeutral(name string) error {
	return bind(&c.neutral, name)
}

// BindOffset binds the offset clip to name. A blank name unbinds it.
func (c *ClipSettings) BindOffset(name string) error {
	return bind(&c.offset, name)
}

func (c *ClipSettings) NeutralKey() (avatar3d.BlendshapeIndex, bool) {
	return load(&c.neutral)
}

func (c *ClipSettings) OffsetKey() (avatar3d.BlendshapeIndex, bool) {
	return load(&c.offset)
}

func (c *ClipSettings) ApplyNeutralClip(target Accumulator, weight float32) {
	if key, ok := c.NeutralKey(); ok {
		target.AccumulateValue(key, weight)
	}
}

func (c *ClipSettings) ApplyOffsetClip(target Accumulator, weight float32) {
	if key, ok := c.OffsetKey(); ok {
		target.AccumulateValue(key, weight)
	}
}

// bind clears the binding before resolving name, so a rejected name leaves
// the clip unset rather than bound to its previous key.
func bind(slot *atomic.Pointer[avatar3d.BlendshapeIndex], name string) error {
	slot.Store(nil)
	if strings.TrimSpace(name) == "" {
		return nil
	}

	key := avatar3d.BlendshapeIndexFromName(name)
	if !key.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownBlendshape, name)
	}
	slot.Store(&key)
	return nil
}

func load(slot *atomic.Pointer[avatar3d.BlendshapeIndex]) (avatar3d.BlendshapeIndex, bool) {
	p := slot.Load()
	if p == nil {
		return -1, false
	}
	return *p, true
}
