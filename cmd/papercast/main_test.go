package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/joseph-ayodele/papercast-grobid/internal/grobid"
	"github.com/joseph-ayodele/papercast-grobid/internal/server"
)

type fakeProcess struct {
	done       chan struct{}
	once       sync.Once
	terminated atomic.Bool
}

func (p *fakeProcess) Pid() int              { return 4242 }
func (p *fakeProcess) Done() <-chan struct{} { return p.done }
func (p *fakeProcess) Kill() error           { p.once.Do(func() { close(p.done) }); return nil }
func (p *fakeProcess) Terminate() error {
	p.terminated.Store(true)
	p.once.Do(func() { close(p.done) })
	return nil
}

type fakeLauncher struct {
	launches atomic.Int32
	proc     *fakeProcess
}

func (l *fakeLauncher) Launch(string) (grobid.Process, error) {
	l.launches.Add(1)
	return l.proc, nil
}

// unhealthyGrobid never answers its health probe with success.
func unhealthyGrobid(t *testing.T) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	t.Setenv("GROBID_URL", srv.URL+"/")
	t.Setenv("GROBID_HEALTH_URL", srv.URL+"/api/isalive")
	t.Setenv("GROBID_START_CMD", "grobid-service")
	t.Setenv("GROBID_POLL_INTERVAL", "1ms")
	t.Setenv("GROBID_MAX_POLL_INTERVAL", "2ms")
	t.Setenv("GROBID_START_TIMEOUT", "50ms")
	t.Setenv("GROBID_STOP_GRACE", "50ms")
	t.Setenv("ARTIFACT_CACHE_DIR", t.TempDir())
}

func TestRun_StopsStartedServiceOnFailure(t *testing.T) {
	unhealthyGrobid(t)
	pdf := filepath.Join(t.TempDir(), "paper.pdf")
	if err := os.WriteFile(pdf, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}

	launcher := &fakeLauncher{proc: &fakeProcess{done: make(chan struct{})}}
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-no-store", pdf}, &stdout, &stderr, server.WithLauncher(launcher))

	if code != 3 {
		t.Fatalf("exit code = %d, want 3\n%s", code, stderr.String())
	}
	if launcher.launches.Load() != 1 {
		t.Fatalf("launches = %d, want 1", launcher.launches.Load())
	}
	if !launcher.proc.terminated.Load() {
		t.Fatal("started service was not terminated before run returned")
	}
	if stdout.Len() != 0 {
		t.Fatalf("stdout = %q, want empty on failure", stdout.String())
	}
}

func TestRun_Usage(t *testing.T) {
	unhealthyGrobid(t)
	launcher := &fakeLauncher{proc: &fakeProcess{done: make(chan struct{})}}

	for name, args := range map[string][]string{
		"no pdf":       {"-no-store"},
		"unknown flag": {"-bogus", "a.pdf"},
		"bad mode":     {"-no-store", "-mode", "fancy", "a.pdf"},
	} {
		t.Run(name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(context.Background(), args, &stdout, &stderr, server.WithLauncher(launcher)); code != 2 {
				t.Fatalf("exit code = %d, want 2\n%s", code, stderr.String())
			}
		})
	}
	if launcher.launches.Load() != 0 {
		t.Fatalf("launches = %d, want 0", launcher.launches.Load())
	}
}
