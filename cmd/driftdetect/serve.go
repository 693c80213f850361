package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/driftlab/driftdetect/drift"
	"github.com/driftlab/driftdetect/internal/cache"
	"github.com/driftlab/driftdetect/internal/metrics"
	"github.com/driftlab/driftdetect/internal/store"
	"github.com/driftlab/driftdetect/pkg/otel"
)

var (
	listenAddr string
	interval   time.Duration
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a drift exporter: recompute on an interval, publish metrics and the latest report",
		Long: `serve reloads the two snapshot CSVs on an interval, recomputes the drift
report (skipping unchanged inputs via a content-hash cache), publishes
per-column distances as Prometheus gauges, persists the latest report, and
serves it as JSON.

Environment: REPORT_BACKEND (memory|redis|postgres), REDIS_ADDR,
POSTGRES_CONN, REPORT_TTL_MIN, TOKEN_RATE, OTEL_ENDPOINT.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", ":8080", "HTTP listen address")
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Minute, "Recompute interval")
	return cmd
}

type server struct {
	metrics     *metrics.Metrics
	reportCache *cache.LRUWithTTL[string, *drift.Report]
	reports     store.Store
	limiter     *rate.Limiter
}

func runServe() error {
	ctx := context.Background()

	// Tracing is optional: without an endpoint the global no-op tracer stays
	// in place.
	if endpoint := getEnv("OTEL_ENDPOINT", ""); endpoint != "" {
		otelCfg := otel.DefaultConfig("driftdetect")
		otelCfg.CollectorEndpoint = endpoint
		tp, err := otel.InitTracer(ctx, otelCfg)
		if err != nil {
			log.Fatalf("Failed to init tracing: %v", err)
		}
		defer otel.Shutdown(ctx, tp)
	}

	ttl := time.Duration(getEnvInt("REPORT_TTL_MIN", 60)) * time.Minute
	reports, err := store.Open(
		getEnv("REPORT_BACKEND", "memory"),
		getEnv("REDIS_ADDR", "localhost:6379"),
		getEnv("POSTGRES_CONN", ""),
		ttl,
	)
	if err != nil {
		log.Fatalf("Failed to open report store: %v", err)
	}
	defer reports.Close()

	reportCache, err := cache.NewLRUWithTTL[string, *drift.Report](64, ttl)
	if err != nil {
		log.Fatalf("Failed to create report cache: %v", err)
	}

	tokenRate := getEnvInt("TOKEN_RATE", 100)
	srv := &server{
		metrics:     metrics.New(),
		reportCache: reportCache,
		reports:     reports,
		limiter:     rate.NewLimiter(rate.Limit(tokenRate), tokenRate*2),
	}

	// First cycle up front so /report has data before the first tick.
	srv.recompute(ctx)

	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				srv.recompute(ctx)
			case <-stop:
				return
			}
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/report", srv.handleReport)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", handleHealth)

	httpServer := &http.Server{
		Addr:         listenAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Starting drift exporter on %s (interval %s)", listenAddr, interval)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-shutdown
	log.Println("Shutting down...")
	close(stop)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Exporter stopped")
	return nil
}

// recompute runs one drift cycle: reload the snapshots, skip the computation
// when the content hash pair is cached, publish gauges, persist the report.
func (s *server) recompute(ctx context.Context) {
	ctx, span := otel.StartSpan(ctx, "driftdetect", "recompute")
	defer span.End()

	start := time.Now()
	s.metrics.RecomputeTotal.Inc()

	det, err := newDetector()
	if err != nil {
		log.Printf("Recompute failed to load snapshots: %v", err)
		s.metrics.RecomputeErrors.Inc()
		otel.RecordError(span, err)
		return
	}

	key := det.Prior().Hash() + ":" + det.Post().Hash()
	report, cached := s.reportCache.Get(key)
	if cached {
		s.metrics.CacheHits.Inc()
	} else {
		report, err = det.ComputeDrift()
		if err != nil {
			log.Printf("Recompute failed: %v", err)
			s.metrics.RecomputeErrors.Inc()
			otel.RecordError(span, err)
			return
		}
		s.reportCache.Set(key, report)
	}

	maxDist := publishDistances(s.metrics, report)
	s.metrics.RecomputeDuration.Observe(time.Since(start).Seconds())
	s.metrics.LastRecompute.SetToCurrentTime()

	columns := len(report.Categorical) + len(report.Numeric)
	span.SetAttributes(otel.ReportAttributes(key, columns, maxDist, cached)...)

	rec := &store.Record{Key: key, GeneratedAt: time.Now().UTC(), Drift: report}
	if err := s.reports.Save(ctx, rec); err != nil {
		// Gauges are already published; persistence failure is not fatal.
		log.Printf("Failed to persist report: %v", err)
	}
}

func publishDistances(m *metrics.Metrics, report *drift.Report) float64 {
	maxDist := 0.0
	for _, score := range report.Categorical {
		m.ColumnDistance.WithLabelValues(score.Column, "categorical").Set(score.Distance)
		if score.Distance > maxDist {
			maxDist = score.Distance
		}
	}
	for _, score := range report.Numeric {
		m.ColumnDistance.WithLabelValues(score.Column, "numeric").Set(score.Distance)
		if score.Distance > maxDist {
			maxDist = score.Distance
		}
	}
	m.MaxDistance.Set(maxDist)
	return maxDist
}

func (s *server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.limiter.Allow() {
		w.Header().Set("Retry-After", "10")
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
		return
	}

	rec, err := s.reports.Latest(r.Context())
	if err != nil {
		log.Printf("Report store error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if rec == nil {
		http.Error(w, "No report computed yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
