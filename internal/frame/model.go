package frame

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/normanking/mirrorcore/internal/avatar3d"
	"github.com/normanking/mirrorcore/internal/bus"
	"github.com/normanking/mirrorcore/internal/face"
)

// Model commands
const (
	CmdOpenVrm  = "OpenVrm"
	CmdCloseVrm = "CloseVrm"
)

// ModelHost loads and unloads the avatar model and keeps ModelPresence and
// the bus in step with it. Unloading drops any active override.
type ModelHost struct {
	presence *face.ModelPresence
	override *avatar3d.OverrideController
	events   *bus.EventBus
	logger   zerolog.Logger
	load     func(path string) (*avatar3d.Model, error)

	mu    sync.RWMutex
	model *avatar3d.Model
}

func NewModelHost(
	presence *face.ModelPresence,
	override *avatar3d.OverrideController,
	events *bus.EventBus,
	logger zerolog.Logger,
) *ModelHost {
	return &ModelHost{
		presence: presence,
		override: override,
		events:   events,
		logger:   logger.With().Str("component", "model").Logger(),
		load:     avatar3d.LoadModel,
	}
}

// Model returns the loaded model or nil
func (h *ModelHost) Model() *avatar3d.Model {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.model
}

// Open loads path, replacing any loaded model. On failure the previous
// model stays loaded.
func (h *ModelHost) Open(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return &face.PayloadError{Command: CmdOpenVrm, Content: path, Err: fmt.Errorf("empty path")}
	}

	m, err := h.load(path)
	if err != nil {
		h.logger.Error().Err(err).Str("path", path).Msg("Failed to load model")
		return fmt.Errorf("open model: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.unloadLocked()

	h.model = m
	h.presence.OnModelLoaded()
	h.publish(bus.EventTypeModelLoaded, m)
	h.logger.Info().
		Str("path", m.Path).
		Str("name", m.Name).
		Int("clips", len(m.Clips)).
		Msg("Model loaded")
	return nil
}

// Close unloads the current model. Closing with nothing loaded is a no-op.
func (h *ModelHost) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unloadLocked()
}

func (h *ModelHost) unloadLocked() {
	if h.model == nil {
		return
	}
	h.presence.OnModelUnloading()
	if h.override != nil {
		h.override.Reset()
	}
	h.publish(bus.EventTypeModelUnloading, h.model)
	h.logger.Info().Str("path", h.model.Path).Msg("Model unloaded")
	h.model = nil
}

func (h *ModelHost) publish(t bus.EventType, m *avatar3d.Model) {
	if h.events == nil {
		return
	}
	h.events.PublishSync(bus.Event{
		Type: t,
		Data: map[string]any{"path": m.Path, "name": m.Name},
	})
}

// Register assigns OpenVrm and CloseVrm to receiver
func (h *ModelHost) Register(receiver face.CommandReceiver) {
	receiver.AssignCommandHandler(CmdOpenVrm, h.Open)
	receiver.AssignCommandHandler(CmdCloseVrm, func(string) error {
		h.Close()
		return nil
	})
}
