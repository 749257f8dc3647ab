package apiserver

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ti-mo/bandix/internal/pipeline"
	"github.com/ti-mo/bandix/internal/sinks/types"
	"github.com/ti-mo/bandix/internal/store"
)

// HandleFlush flushes all stores on request of an operator. Returns success
// without flushing if a flush is already running.
func (s *Server) HandleFlush(w http.ResponseWriter, r *http.Request) {

	ran, err := s.cfg.Pipeline.FlushManual(context.WithoutCancel(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, response{Status: statusError, Message: err.Error()})
		return
	}

	if !ran {
		writeJSON(w, http.StatusOK, response{
			Status:  statusSuccess,
			Message: "Flush already in progress",
			Data:    map[string]bool{"skipped": true},
		})
		return
	}

	writeJSON(w, http.StatusOK, response{Status: statusSuccess, Message: "Flush completed"})
}

// HandleShutdown runs the final flush and exits the process once the
// response was written. Exits non-zero if the final flush failed.
func (s *Server) HandleShutdown(w http.ResponseWriter, r *http.Request) {

	log.Info("Shutdown requested through API")

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.cfg.Pipeline.FlushFinal(ctx); err != nil {
		writeJSON(w, http.StatusInternalServerError, response{Status: statusError, Message: err.Error()})
		s.cfg.Exit(1)
		return
	}

	writeJSON(w, http.StatusOK, response{Status: statusSuccess, Message: "Data flushed, shutting down"})
	s.cfg.Exit(0)
}

// HandleHealth reports the liveness of the process.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type storeStats struct {
	Entries int    `json:"entries"`
	Dropped uint64 `json:"dropped"`
	Evicted uint64 `json:"evicted"`
}

type stats struct {
	Pipeline pipeline.Stats                 `json:"pipeline"`
	Stores   map[string]storeStats          `json:"stores"`
	Sinks    map[string]types.SinkStatsData `json:"sinks"`
}

// HandleStats returns statistics about the application.
func (s *Server) HandleStats(w http.ResponseWriter, r *http.Request) {

	p := s.cfg.Pipeline
	out := stats{
		Pipeline: p.Stats(),
		Stores:   make(map[string]storeStats),
		Sinks:    make(map[string]types.SinkStatsData),
	}

	for _, st := range p.Stores() {
		ss := storeStats{Entries: st.Len()}
		if d, ok := st.(store.Dropper); ok {
			ss.Dropped = d.Dropped()
		}
		if e, ok := st.(store.Evicter); ok {
			ss.Evicted = e.Evicted()
		}
		out.Stores[st.Name()] = ss
	}
	for _, sk := range p.Sinks() {
		out.Sinks[sk.Name()] = sk.Stats()
	}

	writeJSON(w, http.StatusOK, response{Status: statusSuccess, Data: out})
}

// HandleTraffic returns the in-memory counters of all devices.
func (s *Server) HandleTraffic(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Traffic == nil {
		s.router.NotFoundHandler.ServeHTTP(w, r)
		return
	}
	writeJSON(w, http.StatusOK, response{Status: statusSuccess, Data: s.cfg.Traffic.Devices()})
}

// HandleConnections returns the in-memory counters of all flows.
func (s *Server) HandleConnections(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Connection == nil {
		s.router.NotFoundHandler.ServeHTTP(w, r)
		return
	}
	writeJSON(w, http.StatusOK, response{Status: statusSuccess, Data: s.cfg.Connection.Flows()})
}

// HandleDNS returns the in-memory DNS query activity.
func (s *Server) HandleDNS(w http.ResponseWriter, r *http.Request) {
	if s.cfg.DNS == nil {
		s.router.NotFoundHandler.ServeHTTP(w, r)
		return
	}
	writeJSON(w, http.StatusOK, response{Status: statusSuccess, Data: s.cfg.DNS.Queries()})
}
