package player

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/shared"
)

const DefaultCommand = "mpv"

var DefaultArgs = []string{"--no-video", "--really-quiet"}

// Player plays one entry at a time.
type Player interface {
	Play(entry Entry) error
	Stop() error
}

// CommandPlayer plays entries by running an external program with the file path as its last argument.
//
// Starting a new entry stops the previous process. When a process exits on its own, the end callback runs.
type CommandPlayer struct {
	command string
	args    []string
	logger  *log.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	entry   Entry
	gen     int
	onEnd   func()
	stopped chan struct{}
}

// NewCommandPlayer creates a player for command (default mpv) with args placed before the path.
func NewCommandPlayer(command string, args []string, logger *log.Logger) *CommandPlayer {
	if command == "" {
		command = DefaultCommand
		if args == nil {
			args = DefaultArgs
		}
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &CommandPlayer{command: command, args: args, logger: logger}
}

// OnEnd sets the callback run after an entry finishes without being stopped or replaced.
func (p *CommandPlayer) OnEnd(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onEnd = fn
}

// Attach plays the model's current entry whenever it changes and advances the model when playback ends.
//
// The returned func detaches the player and stops playback.
func (p *CommandPlayer) Attach(m *Model) func() {
	p.OnEnd(func() {
		if !m.Next() {
			p.logger.Debug("reached end of playlist")
		}
	})
	unsubscribe := m.Subscribe(func(e Entry) {
		if e.Path == "" {
			p.Stop()
			return
		}
		if err := p.Play(e); err != nil {
			p.logger.Error("failed to start player", "path", e.Path, "error", err)
		}
	})

	return func() {
		unsubscribe()
		p.OnEnd(nil)
		p.Stop()
	}
}

// Play stops any running entry and starts entry.
func (p *CommandPlayer) Play(entry Entry) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	args := append(append([]string(nil), p.args...), entry.Path)
	cmd := exec.Command(p.command, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %s: %v", shared.ErrServiceUnavailable, p.command, err)
	}

	p.gen++
	p.cmd = cmd
	p.entry = entry
	done := make(chan struct{})
	p.stopped = done
	p.logger.Info("playing", "entry", entry.DisplayName)

	go p.wait(cmd, p.gen, done)
	return nil
}

// Stop terminates the running entry, if any, and waits for it to exit.
func (p *CommandPlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopLocked()
}

// Current returns the entry being played.
func (p *CommandPlayer) Current() (Entry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.entry, p.cmd != nil
}

func (p *CommandPlayer) stopLocked() error {
	if p.cmd == nil {
		return nil
	}

	p.gen++
	cmd, done := p.cmd, p.stopped
	p.cmd, p.entry = nil, Entry{}

	err := cmd.Process.Kill()
	<-done
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

func (p *CommandPlayer) wait(cmd *exec.Cmd, gen int, done chan struct{}) {
	err := cmd.Wait()
	close(done)

	p.mu.Lock()
	if p.gen != gen {
		p.mu.Unlock()
		return
	}
	p.cmd, p.entry = nil, Entry{}
	onEnd := p.onEnd
	p.mu.Unlock()

	if err != nil {
		p.logger.Warn("player exited with error", "error", err)
	}
	if onEnd != nil {
		onEnd()
	}
}
