package httpx

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type RouterOptions struct {
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Timeout  time.Duration
}

func NewRouter(o RouterOptions) *chi.Mux {
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	if o.Metrics != nil {
		r.Use(o.Metrics.Middleware)
	}
	r.Use(middleware.Timeout(o.Timeout))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if o.Metrics != nil {
		r.Handle("/metrics", metrics.Handler(o.Gatherer))
	}
	return r
}

// Serve runs srv in the background. The channel receives the listener error,
// if any, and is closed once ListenAndServe returns.
func Serve(srv *http.Server) <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()
	return errc
}
