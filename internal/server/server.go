// Package server exposes the localhost HTTP API the browser front-end
// drives the experiment through.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkoster/pairchoice/internal/models"
	"github.com/pkoster/pairchoice/internal/presentation"
)

// Experiment is the running session the server feeds input into. Start is
// triggered by the front-end once the subject is present; until then the
// session sits on the instructions view.
type Experiment interface {
	Start() error
	HandleSelection(side models.Side)
	HandleInput(batch models.InputBatch) int
}

// ViewSource supplies the current view snapshot for the front-end.
type ViewSource interface {
	Snapshot() presentation.Snapshot
}

// Server routes front-end traffic to the experiment session.
type Server struct {
	experiment Experiment
	views      ViewSource
	address    string
	log        *slog.Logger
	server     *http.Server
}

// NewServer builds a server bound to the given address.
func NewServer(experiment Experiment, views ViewSource, address string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		experiment: experiment,
		views:      views,
		address:    address,
		log:        log,
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Write([]byte("ok"))
}

func (s *Server) handleView(w http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.views.Snapshot()); err != nil {
		s.log.Error("failed to encode view snapshot", "error", err)
	}
}

func (s *Server) handleStart(w http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	if err := s.experiment.Start(); err != nil {
		s.log.Warn("start rejected", "error", err)
		http.Error(w, "Session already started", http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type selectRequest struct {
	Side string `json:"side"`
}

func (s *Server) handleSelect(w http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var sel selectRequest
	if err := json.NewDecoder(request.Body).Decode(&sel); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	// Out-of-sequence or malformed selections are dropped by the
	// sequencer, never surfaced to the subject.
	s.experiment.HandleSelection(models.Side(sel.Side))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleInput(w http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var batch models.InputBatch
	if err := json.NewDecoder(request.Body).Decode(&batch); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	if len(batch.Events) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	accepted := s.experiment.HandleInput(batch)
	if dropped := len(batch.Events) - accepted; dropped > 0 {
		s.log.Debug("dropped malformed input events", "dropped", dropped)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/start", s.handleStart)
	mux.HandleFunc("/view", s.handleView)
	mux.HandleFunc("/select", s.handleSelect)
	mux.HandleFunc("/input", s.handleInput)
	return mux
}

// Start serves until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	mux := s.setupRoutes()
	s.server = &http.Server{
		Addr:         s.address,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	shutdownChannel := make(chan os.Signal, 1)
	signal.Notify(shutdownChannel, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		s.log.Info("pairchoice agent listening", "address", s.address)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed to start: %w", err)
	case <-shutdownChannel:
	}

	s.log.Info("shutting down server")
	shutdownContext, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownContext); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	s.log.Info("server exited")
	return nil
}
