package inputhook

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/mirrorcore/internal/bus"
)

// State is the lifecycle state of a HookThread
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "stopped"
	}
}

var (
	// ErrAlreadyRunning is returned by Start when the thread is not stopped
	ErrAlreadyRunning = errors.New("input hook already started")
	// ErrNotRunning is returned by Stop when the thread is not running
	ErrNotRunning = errors.New("input hook not running")
)

// StartError reports a native hook that could not be registered
type StartError struct {
	Err error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("register input hook: %v", e.Err)
}

func (e *StartError) Unwrap() error {
	return e.Err
}

// MessageLoop services a registered hook for at most timeout. Returning an
// error marks the hook as dead; the thread then idles until Stop.
type MessageLoop func(timeout time.Duration) error

// RegisterFunc installs a native hook that reports raw codes through emit.
// It runs on the hook thread. Hooks whose callbacks need no pumping return
// a nil MessageLoop. emit may be called from any thread; calls are
// serialized and those made after Stop begins are dropped.
type RegisterFunc func(emit func(NativeCode)) (MessageLoop, error)

// UnregisterFunc removes the hook installed by RegisterFunc. It runs on the
// hook thread.
type UnregisterFunc func() error

// Publisher receives drained events on the frame thread
type Publisher interface {
	PublishSync(event bus.Event)
}

const pumpTimeout = 50 * time.Millisecond

// HookThread owns one dedicated OS thread running a native input hook.
// Events flow from the hook callback into a lock-free queue and are handed
// to the Publisher by Drain.
type HookThread struct {
	logger    zerolog.Logger
	publisher Publisher

	lifecycle sync.Mutex
	state     atomic.Int32

	// emitMu makes every emit the single queue producer and orders the
	// last push before accepting is cleared
	emitMu    sync.Mutex
	accepting bool
	queue     *spscQueue[Event]

	stop    chan struct{}
	done    chan struct{}
	exitErr error
}

// NewHookThread creates a stopped hook thread publishing to publisher
func NewHookThread(publisher Publisher, logger zerolog.Logger) *HookThread {
	return &HookThread{
		logger:    logger.With().Str("component", "input-hook").Logger(),
		publisher: publisher,
		queue:     newSPSCQueue[Event](),
	}
}

// State returns the current lifecycle state
func (t *HookThread) State() State {
	return State(t.state.Load())
}

// Start spawns the hook thread and blocks until registration has finished.
// A failed registration returns a *StartError and leaves the thread stopped.
func (t *HookThread) Start(register RegisterFunc, unregister UnregisterFunc) error {
	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()

	if !t.state.CompareAndSwap(int32(StateStopped), int32(StateStarting)) {
		t.logger.Warn().Str("state", t.State().String()).Msg("Start called while hook is not stopped")
		return ErrAlreadyRunning
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	ready := make(chan error, 1)

	go t.run(register, unregister, stop, ready, done)

	if err := <-ready; err != nil {
		<-done
		t.setAccepting(false)
		t.state.Store(int32(StateStopped))
		t.logger.Error().Err(err).Msg("Native input hook registration failed")
		return &StartError{Err: err}
	}

	t.stop = stop
	t.done = done
	t.state.Store(int32(StateRunning))
	t.logger.Info().Msg("Input hook running")
	return nil
}

// Stop asks the hook thread to unregister and waits until it has exited.
// No emit call enqueues anything once Stop has returned.
func (t *HookThread) Stop() error {
	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()

	if !t.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		t.logger.Warn().Str("state", t.State().String()).Msg("Stop called while hook is not running")
		return ErrNotRunning
	}

	close(t.stop)
	<-t.done

	err := t.exitErr
	t.exitErr = nil
	t.stop = nil
	t.done = nil
	t.state.Store(int32(StateStopped))

	if err != nil {
		t.logger.Warn().Err(err).Msg("Input hook stopped with error")
		return fmt.Errorf("unregister input hook: %w", err)
	}
	t.logger.Info().Msg("Input hook stopped")
	return nil
}

// Drain publishes every queued event in arrival order and returns how many
// were published. It must be called from a single goroutine.
func (t *HookThread) Drain() int {
	n := 0
	for {
		ev, ok := t.queue.Pop()
		if !ok {
			return n
		}
		n++
		if t.publisher != nil {
			t.publisher.PublishSync(bus.Event{
				Type: bus.EventTypeMouseButton,
				Data: map[string]any{"event": string(ev)},
			})
		}
	}
}

func (t *HookThread) emit(code NativeCode) {
	ev, ok := Translate(code)
	if !ok {
		return
	}
	t.emitMu.Lock()
	defer t.emitMu.Unlock()
	if t.accepting {
		t.queue.Push(ev)
	}
}

func (t *HookThread) setAccepting(v bool) {
	t.emitMu.Lock()
	t.accepting = v
	t.emitMu.Unlock()
}

// run is the body of the hook thread. The goroutine never unlocks its OS
// thread, so the thread is discarded together with any hook state on exit.
func (t *HookThread) run(register RegisterFunc, unregister UnregisterFunc, stop <-chan struct{}, ready chan<- error, done chan<- struct{}) {
	runtime.LockOSThread()
	defer close(done)

	loop, err := register(t.emit)
	if err != nil {
		ready <- err
		return
	}
	t.setAccepting(true)
	ready <- nil

	t.pump(loop, stop)

	t.setAccepting(false)
	if unregister != nil {
		t.exitErr = unregister()
	}
}

func (t *HookThread) pump(loop MessageLoop, stop <-chan struct{}) {
	for {
		if loop == nil {
			<-stop
			return
		}

		select {
		case <-stop:
			return
		default:
		}

		if err := loop(pumpTimeout); err != nil {
			t.logger.Error().Err(err).Msg("Input hook message loop failed, no further input will arrive")
			loop = nil
		}
	}
}
