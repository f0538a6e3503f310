//go:build linux

package inputhook

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// EvdevHook is a global mouse hook reading Linux input devices through
// epoll. Reading /dev/input usually requires membership of the input group.
type EvdevHook struct {
	patterns []string
	logger   zerolog.Logger

	epfd   int
	fds    map[int]string
	events []unix.EpollEvent
	buf    []byte
	emit   func(NativeCode)
}

func NewEvdevHook(patterns []string, logger zerolog.Logger) *EvdevHook {
	if len(patterns) == 0 {
		patterns = DefaultEvdevDevices
	}
	return &EvdevHook{
		patterns: patterns,
		logger:   logger.With().Str("component", "evdev-hook").Logger(),
		epfd:     -1,
	}
}

// Register opens every matching device and adds it to a fresh epoll set
func (h *EvdevHook) Register(emit func(NativeCode)) (MessageLoop, error) {
	var paths []string
	for _, pattern := range h.patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		paths = append(paths, matches...)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no input devices match %v", h.patterns)
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}
	h.epfd = epfd
	h.fds = make(map[int]string)

	var openErr error
	for _, path := range paths {
		fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
		if err != nil {
			openErr = errors.Join(openErr, fmt.Errorf("open %s: %w", path, err))
			continue
		}

		event := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
		if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &event); err != nil {
			unix.Close(fd)
			openErr = errors.Join(openErr, fmt.Errorf("epoll_ctl_add %s: %w", path, err))
			continue
		}
		h.fds[fd] = path
		h.logger.Debug().Str("device", path).Msg("Watching input device")
	}

	if len(h.fds) == 0 {
		h.closeAll()
		return nil, fmt.Errorf("no input device could be opened: %w", openErr)
	}
	if openErr != nil {
		h.logger.Warn().Err(openErr).Msg("Some input devices were skipped")
	}

	h.emit = emit
	h.events = make([]unix.EpollEvent, 16)
	h.buf = make([]byte, inputEventSize*64)
	return h.poll, nil
}

func (h *EvdevHook) poll(timeout time.Duration) error {
	n, err := unix.EpollWait(h.epfd, h.events, int(timeout.Milliseconds()))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil
		}
		return fmt.Errorf("epoll_wait: %w", err)
	}

	for i := 0; i < n; i++ {
		fd := int(h.events[i].Fd)
		if h.events[i].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
			h.logger.Warn().Str("device", h.fds[fd]).Msg("Input device went away")
			h.remove(fd)
			continue
		}
		h.readAll(fd)
	}

	if len(h.fds) == 0 {
		return errors.New("all input devices closed")
	}
	return nil
}

func (h *EvdevHook) readAll(fd int) {
	for {
		n, err := unix.Read(fd, h.buf)
		if n > 0 {
			decodeEvdev(h.buf[:n], h.emit)
		}
		if err != nil || n < len(h.buf) {
			if err != nil && !errors.Is(err, unix.EAGAIN) {
				h.logger.Warn().Err(err).Str("device", h.fds[fd]).Msg("Read from input device failed")
				h.remove(fd)
			}
			return
		}
	}
}

func (h *EvdevHook) remove(fd int) {
	_ = unix.EpollCtl(h.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	unix.Close(fd)
	delete(h.fds, fd)
}

// Unregister closes all devices and the epoll set
func (h *EvdevHook) Unregister() error {
	return h.closeAll()
}

func (h *EvdevHook) closeAll() error {
	var err error
	for fd := range h.fds {
		if cerr := unix.Close(fd); cerr != nil {
			err = errors.Join(err, cerr)
		}
		delete(h.fds, fd)
	}
	if h.epfd >= 0 {
		if cerr := unix.Close(h.epfd); cerr != nil {
			err = errors.Join(err, cerr)
		}
		h.epfd = -1
	}
	return err
}
