package face

import "sync/atomic"

// ModelPresence tracks whether an avatar model is currently loaded. It is
// flipped by model lifecycle notifications.
type ModelPresence struct {
	loaded atomic.Bool
}

func (p *ModelPresence) OnModelLoaded() {
	p.loaded.Store(true)
}

func (p *ModelPresence) OnModelUnloading() {
	p.loaded.Store(false)
}

func (p *ModelPresence) HasModel() bool {
	return p.loaded.Load()
}
