package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/keyscan/internal/api"
	"github.com/banshee-data/keyscan/internal/db"
	"github.com/banshee-data/keyscan/internal/monitoring"
)

// newServeMux mounts the key API under /api/, Prometheus metrics at
// /metrics and the database debug pages under /debug/.
func (a *app) newServeMux(database *db.DB) (*http.ServeMux, error) {
	mux := http.NewServeMux()
	if err := database.AttachAdminRoutes(mux); err != nil {
		return nil, err
	}
	mux.Handle("/api/", http.StripPrefix("/api", api.NewServer(a.mgr).ServeMux()))
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	return mux, nil
}

// serve runs the HTTP server until ctx is cancelled.
func (a *app) serve(ctx context.Context, database *db.DB, args []string) error {
	fs := newFlagSet("serve")
	listen := fs.String("listen", "localhost:8081", "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	mux, err := a.newServeMux(database)
	if err != nil {
		return err
	}
	server := &http.Server{
		Addr:              *listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		monitoring.Logf("serving key API on %s", *listen)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		monitoring.Logf("shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}
