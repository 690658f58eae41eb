// Package profiling exposes net/http/pprof on a loopback port.
package profiling

import (
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"time"

	"github.com/jonesrussell/site-builder/infrastructure/logger"
)

const (
	defaultPort       = "6060"
	readHeaderTimeout = 5 * time.Second
)

// Enabled reports whether ENABLE_PROFILING=true.
func Enabled() bool {
	return os.Getenv("ENABLE_PROFILING") == "true"
}

// Addr is the loopback listen address, port from PPROF_PORT.
func Addr() string {
	port := os.Getenv("PPROF_PORT")
	if port == "" {
		port = defaultPort
	}
	return net.JoinHostPort("localhost", port)
}

// Handler serves the pprof index and profiles under /debug/pprof/.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

// StartPprofServer serves Handler in the background when Enabled.
func StartPprofServer(log logger.Logger) {
	if !Enabled() {
		return
	}

	srv := &http.Server{Addr: Addr(), Handler: Handler(), ReadHeaderTimeout: readHeaderTimeout}
	go func() {
		log.Info("Starting pprof server", logger.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("pprof server error", logger.Error(err))
		}
	}()
}
