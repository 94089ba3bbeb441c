package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/comprehend-desk/comprehend-host/internal/job"
	"github.com/comprehend-desk/comprehend-host/internal/session"
)

type result struct {
	Success  bool        `json:"success"`
	Error    string      `json:"error,omitempty"`
	PID      int         `json:"pid,omitempty"`
	Running  *bool       `json:"running,omitempty"`
	Sessions []string    `json:"sessions,omitempty"`
	Tree     interface{} `json:"tree,omitempty"`
	Value    interface{} `json:"value,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeFailure(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, result{Success: false, Error: err.Error()})
}

func (s *Server) handleJobRun(w http.ResponseWriter, r *http.Request) {
	var spec job.Spec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeFailure(w, http.StatusBadRequest, err)
		return
	}

	pid, err := s.jobs.Run(s.baseCtx, spec)
	if err != nil {
		writeFailure(w, http.StatusUnprocessableEntity, err)
		return
	}

	writeJSON(w, http.StatusOK, result{Success: true, PID: pid})
}

func (s *Server) handleJobKill(w http.ResponseWriter, r *http.Request) {
	if err := s.jobs.Kill(); err != nil {
		writeFailure(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, result{Success: true})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	running := s.jobs.Running()
	writeJSON(w, http.StatusOK, result{Success: true, Running: &running})
}

func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var opts session.Options
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
			writeFailure(w, http.StatusBadRequest, err)
			return
		}
	}

	pid, err := s.sessions.Create(s.baseCtx, id, opts)
	if err != nil {
		writeFailure(w, http.StatusConflict, err)
		return
	}

	writeJSON(w, http.StatusOK, result{Success: true, PID: pid})
}

// handleSessionWrite and handleSessionResize are the HTTP form of the
// fire-and-forget session commands; interactive traffic normally rides
// the websocket instead.
func (s *Server) handleSessionWrite(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Data []byte `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeFailure(w, http.StatusBadRequest, err)
		return
	}

	s.sessions.Write(chi.URLParam(r, "id"), body.Data)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessionResize(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Cols uint16 `json:"cols"`
		Rows uint16 `json:"rows"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeFailure(w, http.StatusBadRequest, err)
		return
	}

	s.sessions.Resize(chi.URLParam(r, "id"), body.Cols, body.Rows)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessionKill(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Kill(chi.URLParam(r, "id")); err != nil {
		writeFailure(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, result{Success: true})
}

func (s *Server) handleSessionList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, result{Success: true, Sessions: s.sessions.List()})
}

func (s *Server) handleFilesTree(w http.ResponseWriter, r *http.Request) {
	tree, err := s.files.Snapshot(r.URL.Query().Get("dir"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, result{
			Success: false,
			Error:   err.Error(),
			Tree:    []interface{}{},
		})
		return
	}
	writeJSON(w, http.StatusOK, result{Success: true, Tree: tree})
}

func (s *Server) handleFilesWatch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Dir string `json:"dir"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeFailure(w, http.StatusBadRequest, err)
			return
		}
	}

	if err := s.files.Watch(body.Dir); err != nil {
		writeFailure(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, result{Success: true})
}

func (s *Server) handleFilesUnwatch(w http.ResponseWriter, r *http.Request) {
	s.files.Unwatch()
	writeJSON(w, http.StatusOK, result{Success: true})
}

func (s *Server) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	value, err := s.store.Get(key)
	if err != nil {
		writeFailure(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, result{Success: true, Value: value})
}

func (s *Server) handleSettingsPut(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Key   string      `json:"key"`
		Value interface{} `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeFailure(w, http.StatusBadRequest, err)
		return
	}

	if err := s.store.Set(body.Key, body.Value); err != nil {
		writeFailure(w, http.StatusUnprocessableEntity, err)
		return
	}
	if err := s.store.Save(); err != nil {
		writeFailure(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, result{Success: true})
}
