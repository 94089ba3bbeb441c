package job

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/comprehend-desk/comprehend-host/internal/environ"
	"github.com/comprehend-desk/comprehend-host/internal/hub"
	"github.com/comprehend-desk/comprehend-host/pkg/executor"
)

// generation is one spawned extractor process. Its drained channel is
// closed only after both output pipes hit EOF, the process has been
// waited, and the terminal event has been published — the next Run
// blocks on it so events from two generations can never interleave.
type generation struct {
	id        string
	proc      *executor.Process
	pid       int
	startedAt time.Time
	drained   chan struct{}
}

func (r *implRunner) Run(ctx context.Context, spec Spec) (int, error) {
	if spec.URL == "" {
		return 0, fmt.Errorf("spec: url is required")
	}

	r.cmdMu.Lock()
	defer r.cmdMu.Unlock()

	r.stateMu.Lock()
	old := r.current
	r.stateMu.Unlock()
	if old != nil {
		r.log.Info(ctx, "replacing active job pid=%d", old.pid)
		if err := old.proc.Kill(); err != nil {
			r.log.Warn(ctx, "kill prior job: %v", err)
		}
		<-old.drained
	}

	cfg := r.store.Config()
	args := buildArgs(spec, defaults{
		model:  cfg.Extractor.Model,
		device: cfg.Extractor.Device,
		prompt: cfg.Extractor.Prompt,
	})

	proc, err := r.exec.Start(ctx, executor.StartSpec{
		Dir:  cfg.Paths.ProjectRoot,
		Env:  r.env.ResolveList(environ.Options{}),
		Name: cfg.Extractor.BinaryPath,
		Args: args,
	})
	if err != nil {
		gen := uuid.NewString()
		r.hub.Publish(hub.Event{Type: EventError, Payload: ErrorPayload{
			Generation: gen,
			Message:    err.Error(),
		}})
		return 0, fmt.Errorf("run job: %w", err)
	}

	g := &generation{
		id:        uuid.NewString(),
		proc:      proc,
		pid:       proc.PID(),
		startedAt: time.Now(),
		drained:   make(chan struct{}),
	}

	r.stateMu.Lock()
	r.current = g
	r.stateMu.Unlock()

	r.log.Info(ctx, "started pid=%d url=%s", g.pid, spec.URL)
	go r.drain(ctx, g)

	return g.pid, nil
}

func (r *implRunner) Kill() error {
	r.cmdMu.Lock()
	defer r.cmdMu.Unlock()

	r.stateMu.Lock()
	g := r.current
	r.stateMu.Unlock()
	if g == nil {
		return ErrNoJob
	}

	// The drain loop observes stream closure and publishes the terminal
	// event on its own; Kill does not wait for it.
	return g.proc.Kill()
}

func (r *implRunner) Running() bool {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	return r.current != nil
}

// drain reads both output pipes to EOF, then waits the process and
// publishes the terminal event exactly once.
func (r *implRunner) drain(ctx context.Context, g *generation) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		r.drainStdout(g)
	}()
	go func() {
		defer wg.Done()
		r.drainStderr(g)
	}()
	wg.Wait()

	code, err := g.proc.Wait()
	if err != nil {
		r.log.Warn(ctx, "wait pid=%d: %v", g.pid, err)
	}

	r.stateMu.Lock()
	if r.current == g {
		r.current = nil
	}
	r.stateMu.Unlock()

	r.hub.Publish(hub.Event{Type: EventDone, Payload: DonePayload{
		Generation: g.id,
		Success:    code == 0,
		ExitCode:   code,
	}})
	r.log.Info(ctx, "job pid=%d exited code=%d", g.pid, code)

	close(g.drained)
}

func (r *implRunner) drainStdout(g *generation) {
	var parser lineParser
	emit := func(line string) {
		if ev, ok := parseProgress(line); ok {
			r.hub.Publish(hub.Event{Type: EventProgress, Payload: ProgressPayload{
				Generation:    g.id,
				ProgressEvent: ev,
			}})
			return
		}
		// Unparseable lines are never dropped; downgrade to raw output.
		r.hub.Publish(hub.Event{Type: EventStdout, Payload: LinePayload{
			Generation: g.id,
			Line:       line,
		}})
	}

	buf := make([]byte, 4096)
	for {
		n, err := g.proc.Stdout.Read(buf)
		if n > 0 {
			parser.Feed(buf[:n], emit)
		}
		if err != nil {
			parser.Flush(emit)
			return
		}
	}
}

func (r *implRunner) drainStderr(g *generation) {
	var parser lineParser
	emit := func(line string) {
		r.hub.Publish(hub.Event{Type: EventStderr, Payload: LinePayload{
			Generation: g.id,
			Line:       line,
		}})
	}

	buf := make([]byte, 4096)
	for {
		n, err := g.proc.Stderr.Read(buf)
		if n > 0 {
			parser.Feed(buf[:n], emit)
		}
		if err != nil {
			parser.Flush(emit)
			return
		}
	}
}

type defaults struct {
	model  string
	device string
	prompt string
}

// buildArgs translates a Spec into the extractor's argument vector,
// filling unset mode flags from the persisted settings.
func buildArgs(spec Spec, d defaults) []string {
	args := []string{spec.URL}

	if spec.Tier > 0 {
		args = append(args, "--tier", strconv.Itoa(spec.Tier))
	}
	if spec.NoEscalate {
		args = append(args, "--no-escalate")
	}

	model := spec.Model
	if model == "" {
		model = d.model
	}
	if model != "" {
		args = append(args, "--model", model)
	}

	device := spec.Device
	if device == "" {
		device = d.device
	}
	if device != "" {
		args = append(args, "--device", device)
	}

	prompt := spec.Prompt
	if prompt == "" {
		prompt = d.prompt
	}
	if prompt != "" {
		args = append(args, "--prompt", prompt)
	}

	if spec.Format != "" {
		args = append(args, "--format", spec.Format)
	}
	if spec.Output != "" {
		args = append(args, "--output", spec.Output)
	}
	if spec.Quiet {
		args = append(args, "--quiet")
	}
	if spec.JSONProgress {
		args = append(args, "--json-progress")
	}
	if spec.Summarize {
		args = append(args, "--summarize")
	}

	return args
}
