// Package api exposes the playback session over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/satindergrewal/chromavinyl/internal/analysis"
	"github.com/satindergrewal/chromavinyl/internal/mood"
	"github.com/satindergrewal/chromavinyl/internal/realtime"
	"github.com/satindergrewal/chromavinyl/internal/session"
	"github.com/satindergrewal/chromavinyl/internal/style"
)

// Options configures the optional parts of the server.
type Options struct {
	AcquireTimeout time.Duration
	Stream         http.Handler // MP3 stream, mounted at /stream
	Offer          http.Handler // WebRTC signaling, mounted at /offer
	Listeners      func() int   // audio listener count for /api/status
}

// Server routes HTTP requests to a session.
type Server struct {
	session *session.Session
	hub     *realtime.Hub
	opts    Options
	router  *chi.Mux

	mu            sync.Mutex
	performanceID string
}

// New creates a server for s. hub may be nil.
func New(s *session.Session, hub *realtime.Hub, opts Options) *Server {
	if opts.AcquireTimeout <= 0 {
		opts.AcquireTimeout = 5 * time.Second
	}
	srv := &Server{session: s, hub: hub, opts: opts, router: chi.NewRouter()}
	srv.setupRoutes()
	return srv
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRoutes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/play", s.handlePlay)
		r.Post("/stop", s.handleStop)
		r.Post("/volume", s.handleVolume)
		r.Get("/status", s.handleStatus)
		r.Get("/styles", s.handleStyles)
		r.Post("/classify", s.handleClassify)
	})

	if s.opts.Stream != nil {
		r.Handle("/stream", s.opts.Stream)
	}
	if s.opts.Offer != nil {
		r.Handle("/offer", s.opts.Offer)
	}
	if s.hub != nil {
		r.Get("/ws", s.hub.ServeHTTP)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	a, err := decodeAnalysis(r)
	if err != nil {
		http.Error(w, "invalid analysis", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.AcquireTimeout)
	defer cancel()
	sum, err := s.session.Start(ctx, a)
	s.publishStatus()
	if err != nil {
		var ase *session.AudioStartError
		if errors.As(err, &ase) {
			http.Error(w, ase.Error(), http.StatusServiceUnavailable)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.performanceID = id
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"performance_id": id,
		"category":       sum.Category,
		"style_name":     sum.StyleName,
		"tempo":          sum.Tempo,
	})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	err := s.session.Stop()
	s.mu.Lock()
	s.performanceID = ""
	s.mu.Unlock()
	s.publishStatus()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "playing": false})
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Level *float64 `json:"level"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Level == nil {
		http.Error(w, "level required", http.StatusBadRequest)
		return
	}
	if *req.Level < 0 || *req.Level > 1 {
		http.Error(w, "level must be 0-1", http.StatusBadRequest)
		return
	}
	s.session.SetVolume(*req.Level)
	s.publishStatus()
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"level":     *req.Level,
		"volume_db": s.session.Volume(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.session.Status()
	s.mu.Lock()
	id := s.performanceID
	s.mu.Unlock()

	resp := map[string]any{
		"playing":        st.Playing,
		"performance_id": id,
		"category":       st.Summary.Category,
		"style_name":     st.Summary.StyleName,
		"tempo":          st.Summary.Tempo,
		"volume_db":      st.VolumeDB,
		"position":       st.Position,
		"resources":      s.session.Resources(),
	}
	if s.opts.Listeners != nil {
		resp["listeners"] = s.opts.Listeners()
	}
	if s.hub != nil {
		resp["ws_clients"] = s.hub.Clients()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStyles(w http.ResponseWriter, r *http.Request) {
	brightness := analysis.DefaultBrightness
	if v := r.URL.Query().Get("brightness"); v != "" {
		b, err := strconv.ParseFloat(v, 64)
		if err != nil {
			http.Error(w, "invalid brightness", http.StatusBadRequest)
			return
		}
		brightness = b
	}
	writeJSON(w, http.StatusOK, style.Catalog(brightness))
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	a, err := decodeAnalysis(r)
	if err != nil {
		http.Error(w, "invalid analysis", http.StatusBadRequest)
		return
	}
	category := mood.Classify(a)
	writeJSON(w, http.StatusOK, map[string]any{
		"category": category,
		"style":    style.For(category, a.AverageBrightness()),
	})
}

func (s *Server) publishStatus() {
	if s.hub != nil {
		s.hub.PublishStatus(s.session.Status())
	}
}

// decodeAnalysis reads an optional analysis body. An empty body or a JSON
// null is a nil analysis, which plays the balanced style.
func decodeAnalysis(r *http.Request) (*analysis.Result, error) {
	var a *analysis.Result
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return a, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
