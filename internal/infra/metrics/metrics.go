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
	ScheduleJobsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "schedule_jobs_active",
		Help: "Количество зарегистрированных cron-задач",
	})
	ScheduleReloadErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedule_reload_errors_total",
		Help: "Ошибки перезагрузки расписаний",
	})
	ScheduleSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedule_skipped_total",
		Help: "Пропущенные при трансляции расписания",
	})

	PublishAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "publish_attempts_total",
		Help: "Попытки публикации по площадкам и статусам",
	}, []string{"platform", "status"})

	PublishDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "publish_duration_seconds",
		Help:    "Длительность одной попытки публикации",
		Buckets: prometheus.DefBuckets,
	}, []string{"platform"})

	TokensChargedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tokens_charged_total",
		Help: "Суммарно списанные токены",
	})
	TokensRefundedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tokens_refunded_total",
		Help: "Суммарно возвращённые токены",
	})

	ReportSendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "report_send_errors_total",
		Help: "Ошибки доставки отчётов пользователю",
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		ScheduleJobsActive,
		ScheduleReloadErrors,
		ScheduleSkipped,
		PublishAttemptsTotal,
		PublishDurationSeconds,
		TokensChargedTotal,
		TokensRefundedTotal,
		ReportSendErrors,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
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
		shutdownTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// ObservePublishAttempt записывает итог и длительность попытки публикации.
func ObservePublishAttempt(platform string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	PublishAttemptsTotal.WithLabelValues(platform, status).Inc()
	PublishDurationSeconds.WithLabelValues(platform).Observe(time.Since(start).Seconds())
}
