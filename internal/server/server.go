// Package server exposes the host's command surface over HTTP and its
// event surface over a websocket. Commands are synchronous
// request/response; everything asynchronous flows through the hub to
// attached websocket observers.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/comprehend-desk/comprehend-host/internal/config"
	"github.com/comprehend-desk/comprehend-host/internal/files"
	"github.com/comprehend-desk/comprehend-host/internal/hub"
	"github.com/comprehend-desk/comprehend-host/internal/job"
	"github.com/comprehend-desk/comprehend-host/internal/logger"
	"github.com/comprehend-desk/comprehend-host/internal/session"
)

type Server struct {
	// baseCtx outlives any single request; spawned processes must not
	// die when the request that started them completes.
	baseCtx context.Context

	hub      *hub.Hub
	jobs     job.Runner
	sessions session.Registry
	files    files.Service
	store    *config.Store
	log      logger.Logger
}

// New wires the command and event surfaces over the given components.
func New(baseCtx context.Context, h *hub.Hub, jobs job.Runner, sessions session.Registry, fs files.Service, store *config.Store, log logger.Logger) *Server {
	return &Server{
		baseCtx:  baseCtx,
		hub:      h,
		jobs:     jobs,
		sessions: sessions,
		files:    fs,
		store:    store,
		log:      log.WithPrefix("server"),
	}
}

// Router builds the chi route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Post("/job/run", s.handleJobRun)
		r.Post("/job/kill", s.handleJobKill)
		r.Get("/job/status", s.handleJobStatus)

		r.Post("/sessions/{id}", s.handleSessionCreate)
		r.Post("/sessions/{id}/write", s.handleSessionWrite)
		r.Post("/sessions/{id}/resize", s.handleSessionResize)
		r.Delete("/sessions/{id}", s.handleSessionKill)
		r.Get("/sessions", s.handleSessionList)

		r.Get("/files/tree", s.handleFilesTree)
		r.Post("/files/watch", s.handleFilesWatch)
		r.Post("/files/unwatch", s.handleFilesUnwatch)

		r.Get("/settings", s.handleSettingsGet)
		r.Put("/settings", s.handleSettingsPut)
	})
	r.Get("/ws", s.handleWS)

	return r
}
