package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comprehend-desk/comprehend-host/internal/config"
	"github.com/comprehend-desk/comprehend-host/internal/files"
	"github.com/comprehend-desk/comprehend-host/internal/hub"
	"github.com/comprehend-desk/comprehend-host/internal/job"
	"github.com/comprehend-desk/comprehend-host/internal/logger"
	"github.com/comprehend-desk/comprehend-host/internal/session"
)

type fakeRunner struct {
	mu      sync.Mutex
	running bool
	lastRun job.Spec
	killErr error
	runErr  error
}

func (f *fakeRunner) Run(ctx context.Context, spec job.Spec) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.runErr != nil {
		return 0, f.runErr
	}
	f.lastRun = spec
	f.running = true
	return 4242, nil
}

func (f *fakeRunner) Kill() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.killErr != nil {
		return f.killErr
	}
	f.running = false
	return nil
}

func (f *fakeRunner) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

type fakeRegistry struct {
	mu      sync.Mutex
	ids     []string
	writes  map[string][]byte
	resizes map[string][2]uint16
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{writes: make(map[string][]byte), resizes: make(map[string][2]uint16)}
}

func (f *fakeRegistry) Create(ctx context.Context, id string, opts session.Options) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.ids {
		if existing == id {
			return 0, session.ErrExists
		}
	}
	f.ids = append(f.ids, id)
	return 100 + len(f.ids), nil
}

func (f *fakeRegistry) Write(id string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes[id] = append(f.writes[id], data...)
}

func (f *fakeRegistry) Resize(id string, cols, rows uint16) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resizes[id] = [2]uint16{cols, rows}
}

func (f *fakeRegistry) Kill(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, existing := range f.ids {
		if existing == id {
			f.ids = append(f.ids[:i], f.ids[i+1:]...)
			return nil
		}
	}
	return session.ErrNotFound
}

func (f *fakeRegistry) List() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.ids...)
}

func (f *fakeRegistry) CloseAll(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = nil
}

func newTestServer(t *testing.T) (*httptest.Server, *hub.Hub, *fakeRunner, *fakeRegistry, *config.Store) {
	t.Helper()

	store, err := config.Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	h := hub.New()
	runner := &fakeRunner{}
	registry := newFakeRegistry()
	log := logger.NewWithWriter("error", io.Discard)
	fs := files.New(h, store, log)

	srv := New(context.Background(), h, runner, registry, fs, store, log)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return ts, h, runner, registry, store
}

func postJSON(t *testing.T, url string, body interface{}) result {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	resp, err := http.Post(url, "application/json", &buf)
	require.NoError(t, err)
	defer resp.Body.Close()

	var res result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	return res
}

func TestJobRunEndpoint(t *testing.T) {
	ts, _, runner, _, _ := newTestServer(t)

	res := postJSON(t, ts.URL+"/api/job/run", job.Spec{URL: "vid", JSONProgress: true})
	assert.True(t, res.Success)
	assert.Equal(t, 4242, res.PID)
	assert.Equal(t, "vid", runner.lastRun.URL)
	assert.True(t, runner.lastRun.JSONProgress)
}

func TestJobRunFailure(t *testing.T) {
	ts, _, runner, _, _ := newTestServer(t)
	runner.runErr = errors.New("spawn failed")

	res := postJSON(t, ts.URL+"/api/job/run", job.Spec{URL: "vid"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "spawn failed")
}

func TestJobKillAndStatus(t *testing.T) {
	ts, _, runner, _, _ := newTestServer(t)
	runner.running = true

	resp, err := http.Get(ts.URL + "/api/job/status")
	require.NoError(t, err)
	var status result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	resp.Body.Close()
	require.NotNil(t, status.Running)
	assert.True(t, *status.Running)

	res := postJSON(t, ts.URL+"/api/job/kill", nil)
	assert.True(t, res.Success)

	runner.killErr = job.ErrNoJob
	res = postJSON(t, ts.URL+"/api/job/kill", nil)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "no active job")
}

func TestSessionEndpoints(t *testing.T) {
	ts, _, _, registry, _ := newTestServer(t)

	res := postJSON(t, ts.URL+"/api/sessions/term-1", session.Options{Shell: "/bin/sh"})
	assert.True(t, res.Success)
	assert.NotZero(t, res.PID)

	res = postJSON(t, ts.URL+"/api/sessions/term-1", nil)
	assert.False(t, res.Success, "duplicate id must fail")

	resp, err := http.Get(ts.URL + "/api/sessions")
	require.NoError(t, err)
	var list result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	resp.Body.Close()
	assert.Equal(t, []string{"term-1"}, list.Sessions)

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/sessions/term-1", nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, _ = http.NewRequest(http.MethodDelete, ts.URL+"/api/sessions/missing", nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	var res2 result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res2))
	resp.Body.Close()
	assert.False(t, res2.Success)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = registry
}

func TestFilesTreeEndpoint(t *testing.T) {
	ts, _, _, _, store := newTestServer(t)
	require.NoError(t, store.Set("paths.output", filepath.Join(t.TempDir(), "never-created")))

	resp, err := http.Get(ts.URL + "/api/files/tree")
	require.NoError(t, err)
	defer resp.Body.Close()

	var res struct {
		Success bool          `json:"success"`
		Tree    []*files.Node `json:"tree"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.True(t, res.Success, "missing dir yields success with empty tree")
	assert.Empty(t, res.Tree)
}

func TestSettingsEndpoints(t *testing.T) {
	ts, _, _, _, store := newTestServer(t)

	body := map[string]interface{}{"key": "extractor.model", "value": "large-v3-turbo"}
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/settings", &buf)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "large-v3-turbo", store.Config().Extractor.Model)

	resp, err = http.Get(ts.URL + "/api/settings?key=extractor.model")
	require.NoError(t, err)
	var res result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	resp.Body.Close()
	assert.Equal(t, "large-v3-turbo", res.Value)
}

func TestWebsocketDeliversHubEvents(t *testing.T) {
	ts, h, _, _, _ := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// The subscription races the publish; give the handler a moment.
	require.Eventually(t, func() bool { return h.Observers() == 1 },
		2*time.Second, 10*time.Millisecond)

	h.Publish(hub.Event{Type: job.EventStdout, Payload: job.LinePayload{Generation: "g", Line: "hello"}})

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var evt struct {
		Type    string `json:"type"`
		Payload struct {
			Line string `json:"line"`
		} `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&evt))
	assert.Equal(t, job.EventStdout, evt.Type)
	assert.Equal(t, "hello", evt.Payload.Line)
}

func TestWebsocketInboundSessionFrames(t *testing.T) {
	ts, _, _, registry, _ := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(inboundFrame{Type: "session.write", ID: "t", Data: []byte("ls\n")}))
	require.NoError(t, conn.WriteJSON(inboundFrame{Type: "session.resize", ID: "t", Cols: 120, Rows: 40}))

	require.Eventually(t, func() bool {
		registry.mu.Lock()
		defer registry.mu.Unlock()
		return string(registry.writes["t"]) == "ls\n" && registry.resizes["t"] == [2]uint16{120, 40}
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWebsocketDetachLeavesJobRunning(t *testing.T) {
	ts, h, runner, _, _ := newTestServer(t)
	runner.running = true

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return h.Observers() == 1 },
		2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return h.Observers() == 0 },
		5*time.Second, 10*time.Millisecond)

	// Detaching every observer must not disturb the producer side.
	assert.True(t, runner.Running())

	// A fresh observer sees only what is published after it attached.
	h.Publish(hub.Event{Type: job.EventStdout, Payload: job.LinePayload{Line: "missed"}})
	conn2, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn2.Close()
	require.Eventually(t, func() bool { return h.Observers() == 1 },
		2*time.Second, 10*time.Millisecond)

	h.Publish(hub.Event{Type: job.EventStdout, Payload: job.LinePayload{Line: "seen"}})

	conn2.SetReadDeadline(time.Now().Add(5 * time.Second))
	var evt struct {
		Payload struct {
			Line string `json:"line"`
		} `json:"payload"`
	}
	require.NoError(t, conn2.ReadJSON(&evt))
	assert.Equal(t, "seen", evt.Payload.Line)
}

func TestSessionWriteAndResizeHTTP(t *testing.T) {
	ts, _, _, registry, _ := newTestServer(t)

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(map[string]interface{}{"data": []byte("pwd\n")}))
	resp, err := http.Post(ts.URL+"/api/sessions/t/write", "application/json", &buf)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	buf.Reset()
	require.NoError(t, json.NewEncoder(&buf).Encode(map[string]int{"cols": 100, "rows": 30}))
	resp, err = http.Post(ts.URL+"/api/sessions/t/resize", "application/json", &buf)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	registry.mu.Lock()
	defer registry.mu.Unlock()
	assert.Equal(t, "pwd\n", string(registry.writes["t"]))
	assert.Equal(t, [2]uint16{100, 30}, registry.resizes["t"])
}
