package grobid

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/papercast-grobid/internal/common"
)

// HealthChecker reports whether the service answers its health probe.
type HealthChecker interface {
	IsAlive(ctx context.Context) bool
}

// ManagerConfig for the service lifecycle manager.
type ManagerConfig struct {
	StartCommand    string        // run with bash -c; empty means the service is managed elsewhere
	PollInterval    time.Duration // first wait between health probes, default 1s
	MaxPollInterval time.Duration // backoff cap, default 10s
	StartTimeout    time.Duration // budget for a started service to become healthy, default 3m
	ProbeAttempts   int           // extra probes when there is no start command, default 3
	StopGrace       time.Duration // wait after SIGTERM before killing, default 10s
}

// Manager makes sure the parsing service is reachable, starting it when a
// start command is configured. A Manager that started the service owns the
// subprocess until Close.
type Manager struct {
	cfg      ManagerConfig
	health   HealthChecker
	launcher Launcher
	logger   *slog.Logger

	mu   sync.Mutex
	proc Process
}

type ManagerOption func(*Manager)

// WithLauncher replaces the exec-based launcher.
func WithLauncher(l Launcher) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.launcher = l
		}
	}
}

func NewManager(cfg ManagerConfig, health HealthChecker, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.MaxPollInterval < cfg.PollInterval {
		cfg.MaxPollInterval = 10 * cfg.PollInterval
	}
	if cfg.StartTimeout <= 0 {
		cfg.StartTimeout = 3 * time.Minute
	}
	if cfg.ProbeAttempts <= 0 {
		cfg.ProbeAttempts = 3
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = 10 * time.Second
	}
	m := &Manager{
		cfg:      cfg,
		health:   health,
		launcher: execLauncher{logger: logger},
		logger:   logger,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// EnsureOnline returns once the service answers its health probe. It never
// spawns anything when the service is already healthy. Failures wrap
// common.ErrServiceUnavailable.
func (m *Manager) EnsureOnline(ctx context.Context) error {
	if m.health.IsAlive(ctx) {
		return nil
	}

	// Serialize the start decision so concurrent callers never launch twice.
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.health.IsAlive(ctx) {
		return nil
	}

	if m.cfg.StartCommand == "" {
		m.logger.Warn("grobid.offline", "hint", "no start command configured; probing")
		return m.poll(ctx, m.cfg.ProbeAttempts, nil)
	}

	if m.proc == nil {
		m.logger.Info("grobid.starting", "cmd", m.cfg.StartCommand)
		proc, err := m.launcher.Launch(m.cfg.StartCommand)
		if err != nil {
			m.logger.Error("grobid.start.failed", "error", err)
			return common.ServiceUnavailable("start parsing service", err)
		}
		m.proc = proc
		m.logger.Info("grobid.started", "pid", proc.Pid())
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.StartTimeout)
	defer cancel()
	start := time.Now()
	if err := m.poll(ctx, 0, m.proc.Done()); err != nil {
		return err
	}
	m.logger.Info("grobid.online", "elapsed_ms", time.Since(start).Milliseconds())
	return nil
}

// poll probes with exponential backoff. maxAttempts <= 0 probes until ctx
// ends; exited, when non-nil, aborts the wait once the subprocess is gone.
// Must be called with m.mu held.
func (m *Manager) poll(ctx context.Context, maxAttempts int, exited <-chan struct{}) error {
	wait := m.cfg.PollInterval
	for attempt := 1; maxAttempts <= 0 || attempt <= maxAttempts; attempt++ {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return common.ServiceUnavailable("parsing service not healthy before deadline", ctx.Err())
		case <-exited:
			timer.Stop()
			m.proc = nil
			m.logger.Error("grobid.process.exited_early")
			return common.ServiceUnavailable("parsing service exited before becoming healthy", nil)
		case <-timer.C:
		}

		if m.health.IsAlive(ctx) {
			return nil
		}
		m.logger.Debug("grobid.poll", "attempt", attempt, "wait_ms", wait.Milliseconds())

		wait *= 2
		if wait > m.cfg.MaxPollInterval {
			wait = m.cfg.MaxPollInterval
		}
	}
	return common.ServiceUnavailable(fmt.Sprintf("parsing service offline after %d probes", maxAttempts), nil)
}

// Started reports whether this manager currently owns a running subprocess.
func (m *Manager) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.proc != nil
}

// Close stops a subprocess this manager started: SIGTERM, up to StopGrace
// for it to exit, then kill. It waits for the process to be reaped. Safe to
// call more than once and when nothing was started.
func (m *Manager) Close() error {
	m.mu.Lock()
	proc := m.proc
	m.proc = nil
	m.mu.Unlock()

	if proc == nil {
		return nil
	}
	select {
	case <-proc.Done():
		return nil
	default:
	}

	m.logger.Info("grobid.stopping", "pid", proc.Pid())
	if err := proc.Terminate(); err != nil {
		m.logger.Warn("grobid.terminate.failed", "pid", proc.Pid(), "error", err)
	}
	if waitDone(proc, m.cfg.StopGrace) {
		m.logger.Info("grobid.stopped", "pid", proc.Pid())
		return nil
	}

	m.logger.Warn("grobid.kill", "pid", proc.Pid(), "grace_ms", m.cfg.StopGrace.Milliseconds())
	if err := proc.Kill(); err != nil {
		return fmt.Errorf("kill grobid pid %d: %w", proc.Pid(), err)
	}
	if !waitDone(proc, m.cfg.StopGrace) {
		return fmt.Errorf("grobid pid %d did not exit after kill", proc.Pid())
	}
	m.logger.Info("grobid.stopped", "pid", proc.Pid(), "killed", true)
	return nil
}

func waitDone(proc Process, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-proc.Done():
		return true
	case <-t.C:
		return false
	}
}
