// metrics.go — Prometheus HTTP метрики DRS-сервера.
// Регистрирует метрики: drs_http_requests_total, drs_http_request_duration_seconds.
// Нормализация путей предотвращает взрывной рост кардинальности.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики DRS-сервера
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drs_http_requests_total",
			Help: "Общее количество HTTP-запросов к DRS-серверу",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "drs_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к DRS-серверу в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Нормализуем путь для лейблов метрик
			// (заменяем object_id/access_id на плейсхолдеры)
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// pathUnknown — лейбл для путей вне маршрутов DRS API.
// Сканирование несуществующих путей не должно плодить новые серии метрик.
const pathUnknown = "/unknown"

// normalizePath заменяет идентификаторы в пути на плейсхолдеры для
// предотвращения взрывного роста кардинальности метрик.
// /objects/HPA.csv → /objects/{object_id}
// /objects/HPA.csv/access/signed-http → /objects/{object_id}/access/{access_id}
// /files/HPA.csv → /files/{object_id}
// Пути вне известных маршрутов схлопываются в /unknown.
func normalizePath(path string) string {
	// Статические пути — возвращаем как есть
	switch path {
	case "/health/live", "/health/ready", "/metrics",
		"/service-info", "/openapi.json":
		return path
	}

	segments := strings.Split(strings.Trim(path, "/"), "/")

	switch {
	case len(segments) >= 1 && segments[0] == "objects":
		if len(segments) >= 3 && segments[2] == "access" {
			return "/objects/{object_id}/access/{access_id}"
		}
		if len(segments) == 2 {
			return "/objects/{object_id}"
		}
	case len(segments) == 2 && segments[0] == "files":
		return "/files/{object_id}"
	}

	return pathUnknown
}
