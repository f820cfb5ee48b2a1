package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	AccessDecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "access_decisions_total",
		Help: "Entitlement decisions by outcome and reason",
	}, []string{"outcome", "reason"})

	GenerationAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "generation_attempts_total",
		Help: "Briefing generation attempts by kind",
	}, []string{"kind"})

	GenerationFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "generation_failures_total",
		Help: "Briefing generation failures by kind and pipeline stage",
	}, []string{"kind", "stage"})

	GenerationStageSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "generation_stage_seconds",
		Help:    "Duration of generation pipeline stages",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind", "stage"})

	QuotaRejectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quota_rejections_total",
		Help: "Generation requests rejected by the usage ledger",
	}, []string{"kind"})
)

// MustRegister registers all service metrics.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		AccessDecisionsTotal,
		GenerationAttemptsTotal,
		GenerationFailuresTotal,
		GenerationStageSeconds,
		QuotaRejectionsTotal,
	)
}

// Handler returns the /metrics HTTP handler for embedding in the API mux.
func Handler() http.Handler {
	return promhttp.Handler()
}

// StartServer runs a standalone /metrics server until ctx is cancelled. The
// orchestrators use this since they have no API mux of their own.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("Metrics server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()
}
