// Package apiserver implements the management HTTP API of bandix.
package apiserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/ti-mo/bandix/internal/pipeline"
	"github.com/ti-mo/bandix/internal/store/connection"
	"github.com/ti-mo/bandix/internal/store/dns"
	"github.com/ti-mo/bandix/internal/store/traffic"
)

const defaultShutdownTimeout = 30 * time.Second

// Config holds the handles and parameters of a Server.
type Config struct {
	// Listen address of the HTTP server.
	Addr string

	// Processing pipeline handle, required.
	Pipeline *pipeline.Pipeline

	// Stores served by the data endpoints. Endpoints of nil stores return 404.
	Traffic    *traffic.Store
	Connection *connection.Store
	DNS        *dns.Store

	// Metrics served on /metrics. The endpoint is disabled if nil.
	Gatherer prometheus.Gatherer

	// Called with the process exit code once a shutdown request was answered.
	Exit func(code int)

	// Deadline of the final flush requested through the API.
	ShutdownTimeout time.Duration
}

// Server is the management API's HTTP server.
type Server struct {
	cfg    Config
	router *mux.Router
}

// New returns a Server serving the given Config.
func New(cfg Config) (*Server, error) {

	if cfg.Pipeline == nil {
		return nil, errNoPipe
	}
	if cfg.Exit == nil {
		return nil, errNoExit
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	s := &Server{cfg: cfg}

	r := mux.NewRouter()
	r.HandleFunc("/api/flush", s.HandleFlush).Methods(http.MethodPost, http.MethodGet)
	r.HandleFunc("/api/shutdown", s.HandleShutdown).Methods(http.MethodPost)
	r.HandleFunc("/api/health", s.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/stats", s.HandleStats).Methods(http.MethodGet)
	r.HandleFunc("/api/traffic/stats", s.HandleTraffic).Methods(http.MethodGet)
	r.HandleFunc("/api/traffic/connections", s.HandleConnections).Methods(http.MethodGet)
	r.HandleFunc("/api/dns/logs", s.HandleDNS).Methods(http.MethodGet)

	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, response{Status: statusError, Message: "not found"})
	})

	s.router = r

	return s, nil
}

// Handler returns the Server's request router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run the HTTP listener until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	log.Infof("API server listening on address '%s'", s.cfg.Addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return srv.Shutdown(sctx)
}
