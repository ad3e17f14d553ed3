// Package simserver exposes the factory engine over HTTP: a decision-point
// request/response API for an external controller plus a websocket feed
// for passive observers. The engine itself is single-threaded and
// non-reentrant, so every handler serializes through Server's mutex before
// touching it.
package simserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"factorysim/sim"
)

// Server wraps a Simulator with the bookkeeping needed to serve it over
// HTTP: a mutex guarding every engine call, and a hub broadcasting each new
// snapshot to connected websocket clients.
type Server struct {
	mu  sync.Mutex
	sim *sim.Simulator
	cfg sim.Config
	hub *hub
}

// NewServer validates cfg, constructs a Server around a fresh Simulator, and
// resets that Simulator with seed/jobs/recordHistory so the scenario the
// caller loaded actually takes effect before the first request is served
// rather than sitting idle with zero queued jobs until some caller happens
// to POST /reset with the right body.
func NewServer(cfg sim.Config, seed *uint64, jobs int, recordHistory bool) (*Server, error) {
	s, err := sim.NewSimulator(cfg)
	if err != nil {
		return nil, err
	}
	s.RecordHistory = recordHistory
	s.Reset(seed, jobs)
	return &Server{
		sim: s,
		cfg: cfg,
		hub: newHub(),
	}, nil
}

// Router builds the HTTP route table. Uses gorilla/mux because this API
// needs per-path HTTP methods (GET vs POST on related routes), which a bare
// net/http.ServeMux doesn't distinguish.
func (srv *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/snapshot", srv.handleSnapshot).Methods(http.MethodGet)
	r.HandleFunc("/summary", srv.handleSummary).Methods(http.MethodGet)
	r.HandleFunc("/reset", srv.handleReset).Methods(http.MethodPost)
	r.HandleFunc("/action", srv.handleAction).Methods(http.MethodPost)
	r.HandleFunc("/ws", srv.handleWS).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}

type resetRequest struct {
	Seed *uint64 `json:"seed"`
	Jobs int     `json:"jobs"`
}

type actionRequest struct {
	SpeedMult *float64 `json:"speed_mult"`
}

func (srv *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	srv.mu.Lock()
	snap := srv.sim.Snapshot()
	srv.mu.Unlock()
	writeJSON(w, snap)
}

func (srv *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	srv.mu.Lock()
	summary := srv.sim.Summary()
	srv.mu.Unlock()
	writeJSON(w, summary)
}

func (srv *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if r.Body != nil {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	srv.mu.Lock()
	snap := srv.sim.Reset(req.Seed, req.Jobs)
	srv.mu.Unlock()

	recordReset()
	srv.hub.broadcast(snap)
	writeJSON(w, snap)
}

func (srv *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if r.Body != nil {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	srv.mu.Lock()
	srv.sim.ApplyAction(req.SpeedMult)
	snap := srv.sim.RunUntilNextDecision()
	srv.mu.Unlock()

	recordDecision(snap)
	srv.hub.broadcast(snap)
	writeJSON(w, snap)
}

func (srv *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sub := srv.hub.subscribe()
	defer srv.hub.unsubscribe(sub)

	pub, err := newPublisher[sim.Snapshot](sub, w, r)
	if err != nil {
		return
	}
	if err := pub.Sync(); err != nil {
		log.Printf("simserver: websocket client disconnected: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("simserver: failed to write response: %v", err)
	}
}

// Serve starts the HTTP server and blocks until ctx is canceled or
// ListenAndServe returns an error other than http.ErrServerClosed.
func (srv *Server) Serve(ctx context.Context, addr string) error {
	httpServer := &http.Server{Addr: addr, Handler: srv.Router()}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return httpServer.Shutdown(context.Background())
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
