// Package pprof serves the runtime profiling endpoints on a dedicated listener.
package pprof

import (
	"context"
	"net/http"
	"net/http/pprof"
	"time"

	log "github.com/sirupsen/logrus"
)

// Handler returns a ServeMux holding the pprof endpoints under /debug/pprof/.
// Profiles are kept off the API listener and http.DefaultServeMux.
func Handler() *http.ServeMux {

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	return mux
}

// ListenAndServe starts a pprof endpoint on addr until ctx is cancelled.
func ListenAndServe(ctx context.Context, addr string) error {

	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	log.Infof("pprof listening on address '%s'", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	return srv.Shutdown(context.Background())
}
