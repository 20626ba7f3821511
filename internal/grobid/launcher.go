package grobid

import (
	"fmt"
	"log/slog"
	"os/exec"
)

// Process is a service subprocess started by a Launcher.
type Process interface {
	Pid() int
	// Done is closed once the process has exited and been reaped.
	Done() <-chan struct{}
	// Terminate asks the process (group) to stop.
	Terminate() error
	// Kill stops the process (group) without waiting for cooperation.
	Kill() error
}

// Launcher lets us stub the service subprocess in tests.
type Launcher interface {
	Launch(command string) (Process, error)
}

type execLauncher struct {
	logger *slog.Logger
}

// Launch runs command through bash, detached from the caller: own process
// group where supported, no stdio. The process is reaped by a background Wait.
func (l execLauncher) Launch(command string) (Process, error) {
	cmd := exec.Command("bash", "-c", command)
	detach(cmd)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %q: %w", command, err)
	}
	p := &execProcess{cmd: cmd, done: make(chan struct{})}
	go func() {
		err := cmd.Wait()
		l.logger.Debug("grobid.process.exited", "pid", cmd.Process.Pid, "error", err)
		close(p.done)
	}()
	return p, nil
}

type execProcess struct {
	cmd  *exec.Cmd
	done chan struct{}
}

func (p *execProcess) Pid() int              { return p.cmd.Process.Pid }
func (p *execProcess) Done() <-chan struct{} { return p.done }
func (p *execProcess) Terminate() error      { return terminate(p.cmd) }
func (p *execProcess) Kill() error           { return kill(p.cmd) }
