package app

import (
	"os"
	"path/filepath"
	"syscall"
	"time"

	"geosketch/internal/logging"
)

// HotReloader polls the running binary and reports when it has been
// rebuilt. The shell uses it during development to offer a restart, and its
// tick to flush preferences.
type HotReloader struct {
	execPath      string
	startupTime   time.Time
	checkInterval time.Duration
	stopCh        chan struct{}
	onNewBinary   func()
	onTick        func()
}

// NewHotReloader watches the current executable. It returns nil when the
// executable cannot be located.
func NewHotReloader(checkInterval time.Duration) *HotReloader {
	log := logging.Component("reload")
	execPath, err := os.Executable()
	if err != nil {
		log.Debug().Err(err).Msg("executable path unknown")
		return nil
	}
	if real, err := filepath.EvalSymlinks(execPath); err == nil {
		execPath = real
	}
	info, err := os.Stat(execPath)
	if err != nil {
		log.Debug().Err(err).Str("path", execPath).Msg("stat executable")
		return nil
	}
	return &HotReloader{
		execPath:      execPath,
		startupTime:   info.ModTime(),
		checkInterval: checkInterval,
		stopCh:        make(chan struct{}),
	}
}

// OnNewBinary sets the callback run, from the watcher goroutine, when the
// binary is newer than at startup.
func (h *HotReloader) OnNewBinary(callback func()) {
	h.onNewBinary = callback
}

// OnTick sets a callback run on every poll.
func (h *HotReloader) OnTick(callback func()) {
	h.onTick = callback
}

// Start begins polling in a background goroutine.
func (h *HotReloader) Start() {
	h.stopCh = make(chan struct{})
	go h.watchLoop()
}

// Stop ends polling.
func (h *HotReloader) Stop() {
	close(h.stopCh)
}

func (h *HotReloader) watchLoop() {
	ticker := time.NewTicker(h.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
			if h.onTick != nil {
				h.onTick()
			}
			if h.checkForUpdate() && h.onNewBinary != nil {
				h.onNewBinary()
				return
			}
		}
	}
}

func (h *HotReloader) checkForUpdate() bool {
	info, err := os.Stat(h.execPath)
	if err != nil {
		return false
	}
	return info.ModTime().After(h.startupTime)
}

// ExecPath returns the watched binary.
func (h *HotReloader) ExecPath() string { return h.execPath }

// StartupTime returns the binary's modification time at startup.
func (h *HotReloader) StartupTime() time.Time { return h.startupTime }

// ResetBaseline accepts the current binary so it is not reported again.
func (h *HotReloader) ResetBaseline() {
	if info, err := os.Stat(h.execPath); err == nil {
		h.startupTime = info.ModTime()
	}
}

// Restart replaces the process with the rebuilt binary. It does not return
// on success.
func (h *HotReloader) Restart() error {
	return syscall.Exec(h.execPath, os.Args, os.Environ())
}
