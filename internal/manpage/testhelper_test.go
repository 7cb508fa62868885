package manpage

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRunner returns a canned process and records every argv it was given.
type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string
	proc  Process
	err   error
}

func (f *fakeRunner) Run(_ context.Context, argv []string) (Process, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string(nil), argv...))
	return f.proc, f.err
}

func (f *fakeRunner) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.calls...)
}

// blockingRunner waits for the context to end, like a hung process.
func blockingRunner(ctx context.Context, _ []string) (Process, error) {
	<-ctx.Done()
	return Process{}, ctx.Err()
}

type observation struct {
	state   State
	elapsed time.Duration
}

type recordingObserver struct {
	mu  sync.Mutex
	obs []observation
}

func (o *recordingObserver) ObserveProcess(state State, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.obs = append(o.obs, observation{state: state, elapsed: elapsed})
}

func (o *recordingObserver) States() []State {
	o.mu.Lock()
	defer o.mu.Unlock()
	states := make([]State, 0, len(o.obs))
	for _, ob := range o.obs {
		states = append(states, ob.state)
	}
	return states
}

func newTestService(r Runner) *Service {
	exec := NewExecutor(ExecutorConfig{Runner: r, Logger: testLogger()})
	return NewService(exec, "", testLogger())
}
