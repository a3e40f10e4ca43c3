package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	marksRecorded   *prometheus.CounterVec
	scanRejections  *prometheus.CounterVec
	tokensIssued    *prometheus.CounterVec
	strategyDecided *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
}

// NewMetricsService registers the engine's Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	marksRecorded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_marks_recorded_total",
		Help: "Participation marks recorded, by layer and method",
	}, []string{"layer", "method"})

	scanRejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_scan_rejections_total",
		Help: "Rejected verification attempts, by reason code",
	}, []string{"reason"})

	tokensIssued := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_tokens_issued_total",
		Help: "Verification tokens issued, by scope",
	}, []string{"scope"})

	strategyDecided := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_strategy_decisions_total",
		Help: "Strategy classifier decisions, by winning strategy",
	}, []string{"strategy"})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "completion_cache_hits_total",
		Help: "Completion result cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "completion_cache_misses_total",
		Help: "Completion result cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, marksRecorded, scanRejections, tokensIssued, strategyDecided, cacheHits, cacheMisses, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		marksRecorded:   marksRecorded,
		scanRejections:  scanRejections,
		tokensIssued:    tokensIssued,
		strategyDecided: strategyDecided,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	if s == nil {
		return promhttp.Handler()
	}
	return s.handler
}

// ObserveHTTPRequest records one HTTP request observation.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if s == nil {
		return
	}
	labels := []string{method, path, strconv.Itoa(status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// RecordMark counts a recorded participation mark.
func (s *MetricsService) RecordMark(layer, method string) {
	if s == nil {
		return
	}
	s.marksRecorded.WithLabelValues(layer, method).Inc()
}

// RecordScanRejection counts a rejected verification attempt.
func (s *MetricsService) RecordScanRejection(reason string) {
	if s == nil {
		return
	}
	s.scanRejections.WithLabelValues(reason).Inc()
}

// RecordTokenIssued counts an issued verification token.
func (s *MetricsService) RecordTokenIssued(scope string) {
	if s == nil {
		return
	}
	s.tokensIssued.WithLabelValues(scope).Inc()
}

// RecordStrategyDecision counts a classifier decision.
func (s *MetricsService) RecordStrategyDecision(strategy string) {
	if s == nil {
		return
	}
	s.strategyDecided.WithLabelValues(strategy).Inc()
}

// RecordCacheLookup counts a completion-cache lookup.
func (s *MetricsService) RecordCacheLookup(hit bool) {
	if s == nil {
		return
	}
	if hit {
		s.cacheHits.Inc()
	} else {
		s.cacheMisses.Inc()
	}
}
