package grobid

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joseph-ayodele/papercast-grobid/internal/common"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeHealth turns healthy after aliveAfter probes; negative never does.
type fakeHealth struct {
	calls      atomic.Int32
	aliveAfter int32
}

func (h *fakeHealth) IsAlive(context.Context) bool {
	n := h.calls.Add(1)
	return h.aliveAfter >= 0 && n > h.aliveAfter
}

type fakeProcess struct {
	done       chan struct{}
	once       sync.Once
	terminated atomic.Bool
	killed     atomic.Bool
	ignoreTerm bool
}

func newFakeProcess() *fakeProcess { return &fakeProcess{done: make(chan struct{})} }

func (p *fakeProcess) Pid() int              { return 4242 }
func (p *fakeProcess) Done() <-chan struct{} { return p.done }
func (p *fakeProcess) exit()                 { p.once.Do(func() { close(p.done) }) }
func (p *fakeProcess) Kill() error           { p.killed.Store(true); p.exit(); return nil }
func (p *fakeProcess) Terminate() error {
	p.terminated.Store(true)
	if !p.ignoreTerm {
		p.exit()
	}
	return nil
}

type fakeLauncher struct {
	mu       sync.Mutex
	launches int
	proc     *fakeProcess
	err      error
}

func (l *fakeLauncher) Launch(string) (Process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launches++
	if l.err != nil {
		return nil, l.err
	}
	return l.proc, nil
}

func (l *fakeLauncher) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launches
}

func fastConfig(cmd string) ManagerConfig {
	return ManagerConfig{
		StartCommand:    cmd,
		PollInterval:    time.Millisecond,
		MaxPollInterval: 4 * time.Millisecond,
		StartTimeout:    200 * time.Millisecond,
		ProbeAttempts:   3,
		StopGrace:       50 * time.Millisecond,
	}
}

func TestEnsureOnline_AlreadyHealthyNeverSpawns(t *testing.T) {
	health := &fakeHealth{aliveAfter: 0}
	launcher := &fakeLauncher{proc: newFakeProcess()}
	m := NewManager(fastConfig("run-grobid.sh"), health, quietLogger(), WithLauncher(launcher))

	for i := 0; i < 3; i++ {
		if err := m.EnsureOnline(context.Background()); err != nil {
			t.Fatalf("EnsureOnline: %v", err)
		}
	}
	if launcher.count() != 0 {
		t.Fatalf("launches = %d, want 0", launcher.count())
	}
	if m.Started() {
		t.Fatal("Started() = true, want false")
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestEnsureOnline_StartsAndWaits(t *testing.T) {
	// Offline for the fast path, the locked recheck and two polls.
	health := &fakeHealth{aliveAfter: 4}
	proc := newFakeProcess()
	launcher := &fakeLauncher{proc: proc}
	m := NewManager(fastConfig("run-grobid.sh"), health, quietLogger(), WithLauncher(launcher))

	if err := m.EnsureOnline(context.Background()); err != nil {
		t.Fatalf("EnsureOnline: %v", err)
	}
	if launcher.count() != 1 {
		t.Fatalf("launches = %d, want 1", launcher.count())
	}
	if !m.Started() {
		t.Fatal("Started() = false, want true")
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !proc.terminated.Load() {
		t.Fatal("process was not terminated")
	}
	if proc.killed.Load() {
		t.Fatal("process was killed although it honoured SIGTERM")
	}
	if m.Started() {
		t.Fatal("Started() = true after Close")
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestEnsureOnline_ConcurrentCallersSpawnOnce(t *testing.T) {
	health := &fakeHealth{aliveAfter: 20}
	launcher := &fakeLauncher{proc: newFakeProcess()}
	m := NewManager(fastConfig("run-grobid.sh"), health, quietLogger(), WithLauncher(launcher))
	defer m.Close()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- m.EnsureOnline(context.Background())
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("EnsureOnline: %v", err)
		}
	}
	if launcher.count() != 1 {
		t.Fatalf("launches = %d, want 1", launcher.count())
	}
}

func TestEnsureOnline_NoCommandFailsAfterProbes(t *testing.T) {
	health := &fakeHealth{aliveAfter: -1}
	m := NewManager(fastConfig(""), health, quietLogger())

	err := m.EnsureOnline(context.Background())
	if !errors.Is(err, common.ErrServiceUnavailable) {
		t.Fatalf("err = %v, want ErrServiceUnavailable", err)
	}
	// fast path + recheck + ProbeAttempts
	if got := health.calls.Load(); got != 5 {
		t.Fatalf("health probes = %d, want 5", got)
	}
}

func TestEnsureOnline_StartTimeout(t *testing.T) {
	health := &fakeHealth{aliveAfter: -1}
	proc := newFakeProcess()
	m := NewManager(fastConfig("run-grobid.sh"), health, quietLogger(), WithLauncher(&fakeLauncher{proc: proc}))

	start := time.Now()
	err := m.EnsureOnline(context.Background())
	if !errors.Is(err, common.ErrServiceUnavailable) {
		t.Fatalf("err = %v, want ErrServiceUnavailable", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("EnsureOnline took %v, want it bounded by StartTimeout", elapsed)
	}
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != common.CodeServiceUnavailable {
		t.Fatalf("err = %#v, want AppError %s", err, common.CodeServiceUnavailable)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestEnsureOnline_CancelledContext(t *testing.T) {
	health := &fakeHealth{aliveAfter: -1}
	cfg := fastConfig("run-grobid.sh")
	cfg.StartTimeout = time.Minute
	m := NewManager(cfg, health, quietLogger(), WithLauncher(&fakeLauncher{proc: newFakeProcess()}))
	defer m.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := m.EnsureOnline(ctx); !errors.Is(err, common.ErrServiceUnavailable) {
		t.Fatalf("err = %v, want ErrServiceUnavailable", err)
	}
}

func TestEnsureOnline_ProcessExitsEarly(t *testing.T) {
	health := &fakeHealth{aliveAfter: -1}
	proc := newFakeProcess()
	proc.exit()
	cfg := fastConfig("run-grobid.sh")
	cfg.StartTimeout = time.Minute
	m := NewManager(cfg, health, quietLogger(), WithLauncher(&fakeLauncher{proc: proc}))

	if err := m.EnsureOnline(context.Background()); !errors.Is(err, common.ErrServiceUnavailable) {
		t.Fatalf("err = %v, want ErrServiceUnavailable", err)
	}
	if m.Started() {
		t.Fatal("Started() = true after the process exited")
	}
}

func TestEnsureOnline_LaunchError(t *testing.T) {
	health := &fakeHealth{aliveAfter: -1}
	boom := errors.New("bash not found")
	m := NewManager(fastConfig("run-grobid.sh"), health, quietLogger(), WithLauncher(&fakeLauncher{err: boom}))

	err := m.EnsureOnline(context.Background())
	if !errors.Is(err, common.ErrServiceUnavailable) || !errors.Is(err, boom) {
		t.Fatalf("err = %v, want ErrServiceUnavailable wrapping %v", err, boom)
	}
}

func TestClose_EscalatesToKill(t *testing.T) {
	health := &fakeHealth{aliveAfter: 2}
	proc := newFakeProcess()
	proc.ignoreTerm = true
	m := NewManager(fastConfig("run-grobid.sh"), health, quietLogger(), WithLauncher(&fakeLauncher{proc: proc}))

	if err := m.EnsureOnline(context.Background()); err != nil {
		t.Fatalf("EnsureOnline: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !proc.terminated.Load() || !proc.killed.Load() {
		t.Fatalf("terminated=%v killed=%v, want both", proc.terminated.Load(), proc.killed.Load())
	}
}
