package tui

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// Monitor runs the dashboard as a full-screen program.
type Monitor struct {
	opts Options

	mu      sync.Mutex
	program *tea.Program
	stopped bool
}

func NewMonitor(opts Options) *Monitor {
	return &Monitor{opts: opts}
}

// Run blocks until the user quits. Commands still in flight are cancelled.
// Run returns immediately if Stop was called first.
func (mon *Monitor) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := mon.start(ctx)
	if program == nil {
		return nil
	}
	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func (mon *Monitor) start(ctx context.Context, opts ...tea.ProgramOption) *tea.Program {
	mon.mu.Lock()
	defer mon.mu.Unlock()

	if mon.stopped {
		return nil
	}
	if len(opts) == 0 {
		opts = []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	}
	mon.program = tea.NewProgram(NewModel(ctx, mon.opts), opts...)
	return mon.program
}

// Stop quits a running program. It is safe to call from any goroutine, before
// or during Run.
func (mon *Monitor) Stop() {
	mon.mu.Lock()
	mon.stopped = true
	program := mon.program
	mon.mu.Unlock()

	if program != nil {
		program.Quit()
	}
}
