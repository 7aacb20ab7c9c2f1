package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/atasun/UltraDialer-sub011/internal/kv"
	"github.com/atasun/UltraDialer-sub011/internal/window"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CampaignWindow is the window state of one campaign.
type CampaignWindow struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Status   string     `json:"status"`
	InWindow bool       `json:"in_window"`
	NextOpen *time.Time `json:"next_open,omitempty"`
}

// NewRouter serves health, metrics and read-only campaign window state.
// registry may be nil, in which case /metrics is not served.
func NewRouter(store kv.CampaignStore, registry *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})
	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}
	r.Get("/campaigns/{id}/window", func(w http.ResponseWriter, r *http.Request) {
		c, err := store.GetCampaign(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, kv.ErrNotFound) {
			http.Error(w, "campaign not found", http.StatusNotFound)
			return
		}
		if err != nil {
			slog.Error("failed to get campaign", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		now := time.Now()
		state := CampaignWindow{
			ID:       c.ID,
			Name:     c.Name,
			Status:   string(c.Status),
			InWindow: window.IsWithin(c, now),
		}
		if next, ok := window.NextOpen(c, now); ok {
			state.NextOpen = &next
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(state)
	})

	return r
}

// Serve runs the server on the given port until ctx is cancelled.
func Serve(ctx context.Context, port int, handler http.Handler) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		slog.Info("starting http server", "addr", srv.Addr)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
