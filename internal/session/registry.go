package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sort"
	"time"

	"github.com/creack/pty"

	"github.com/comprehend-desk/comprehend-host/internal/environ"
	"github.com/comprehend-desk/comprehend-host/internal/hub"
)

// Default pty geometry until the first resize arrives from the UI.
const (
	defaultCols = 80
	defaultRows = 24
)

// session is one live pseudo-terminal. The ptmx file is owned by the
// drain goroutine, which closes it after the read loop ends.
type session struct {
	id        string
	cmd       *exec.Cmd
	ptmx      *os.File
	shell     string
	cwd       string
	createdAt time.Time
}

func (r *implRegistry) Create(ctx context.Context, id string, opts Options) (int, error) {
	if id == "" {
		return 0, fmt.Errorf("session id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; ok {
		return 0, fmt.Errorf("session %q: %w", id, ErrExists)
	}

	env := r.env.Resolve(environ.Options{Overrides: opts.Env})
	shell := r.resolveShell(opts, env)
	cwd := opts.Cwd
	if cwd == "" {
		cwd = r.store.Config().Paths.ProjectRoot
	}

	cmd := exec.Command(shell)
	cmd.Dir = cwd
	cmd.Env = flatten(env)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: defaultRows, Cols: defaultCols})
	if err != nil {
		return 0, fmt.Errorf("start session %q: %w", id, err)
	}

	s := &session{
		id:        id,
		cmd:       cmd,
		ptmx:      ptmx,
		shell:     shell,
		cwd:       cwd,
		createdAt: time.Now(),
	}
	r.sessions[id] = s

	r.log.Info(ctx, "created id=%s shell=%s pid=%d", id, shell, cmd.Process.Pid)
	go r.drain(ctx, s)

	return cmd.Process.Pid, nil
}

func (r *implRegistry) Write(id string, data []byte) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return
	}

	// Fire-and-forget; a write race with session teardown is not an error.
	s.ptmx.Write(data)
}

func (r *implRegistry) Resize(id string, cols, rows uint16) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return
	}

	if err := r.setPTYSize(s.ptmx, &pty.Winsize{Rows: rows, Cols: cols}); err != nil {
		r.log.Warn(context.Background(), "resize id=%s: %v", id, err)
	}
}

func (r *implRegistry) Kill(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("session %q: %w", id, ErrNotFound)
	}

	if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill session %q: %w", id, err)
	}
	return nil
}

func (r *implRegistry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}

func (r *implRegistry) CloseAll(ctx context.Context) {
	r.mu.Lock()
	all := make([]*session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.sessions = make(map[string]*session)
	r.mu.Unlock()

	for _, s := range all {
		if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			r.log.Warn(ctx, "shutdown kill id=%s: %v", s.id, err)
		}
	}
}

// drain forwards pty output byte-for-byte until the process exits, then
// publishes the exit event and deregisters the session.
func (r *implRegistry) drain(ctx context.Context, s *session) {
	buf := make([]byte, 4096)
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			r.hub.Publish(hub.Event{Type: EventData, Payload: DataPayload{
				ID:   s.id,
				Data: data,
			}})
		}
		if err != nil {
			// The pty read fails with EIO once the child exits; this is
			// the normal end of stream, not a failure.
			break
		}
	}

	s.ptmx.Close()

	code := 0
	if err := s.cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		} else {
			code = -1
		}
	}

	r.mu.Lock()
	if cur, ok := r.sessions[s.id]; ok && cur == s {
		delete(r.sessions, s.id)
	}
	r.mu.Unlock()

	r.hub.Publish(hub.Event{Type: EventExit, Payload: ExitPayload{
		ID:       s.id,
		ExitCode: code,
	}})
	r.log.Info(ctx, "exited id=%s code=%d", s.id, code)
}

// resolveShell picks the shell program: explicit option, then the
// persisted setting, then $SHELL from the resolved environment, then a
// platform fallback.
func (r *implRegistry) resolveShell(opts Options, env map[string]string) string {
	if opts.Shell != "" {
		return opts.Shell
	}
	if shell := r.store.Config().Terminal.Shell; shell != "" {
		return shell
	}
	if shell := env["SHELL"]; shell != "" {
		return shell
	}
	if runtime.GOOS == "windows" {
		return "cmd.exe"
	}
	return "/bin/sh"
}

func flatten(env map[string]string) []string {
	list := make([]string, 0, len(env))
	for k, v := range env {
		list = append(list, k+"="+v)
	}
	sort.Strings(list)
	return list
}
