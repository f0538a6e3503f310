// Package command carries the control channel: named commands in, blend
// frames and input events out.
package command

import (
	"fmt"
	"sort"
	"sync"

	"github.com/normanking/mirrorcore/internal/face"
)

// Handler applies the string content of one command
type Handler func(content string) error

// Router maps command names to handlers
type Router struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRouter() *Router {
	return &Router{handlers: make(map[string]Handler)}
}

// AssignCommandHandler registers handler for name, replacing any earlier one
func (r *Router) AssignCommandHandler(name string, handler func(content string) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = handler
}

// Dispatch runs the handler registered for name
func (r *Router) Dispatch(name, content string) error {
	r.mu.RLock()
	h, ok := r.handlers[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", face.ErrUnknownCommand, name)
	}
	return h(content)
}

// Names lists registered commands in sorted order
func (r *Router) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
