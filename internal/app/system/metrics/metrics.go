// Package metrics owns the Prometheus collectors for HTTP traffic and
// repository outcomes.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var histogramBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

var (
	requestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "teamhub",
		Name:      "http_requests_total",
		Help:      "Count of processed HTTP requests",
	}, []string{"method", "route", "status"})

	requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "teamhub",
		Name:      "http_request_duration_seconds",
		Help:      "Latency distribution of HTTP handlers",
		Buckets:   histogramBuckets,
	}, []string{"method", "route", "status"})

	repoOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "teamhub",
		Name:      "repository_operations_total",
		Help:      "Repository operation outcomes",
	}, []string{"op", "outcome"})

	activeSubscriptions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "teamhub",
		Name:      "team_subscriptions_active",
		Help:      "Open live team-list subscriptions",
	})

	activeBoards = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "teamhub",
		Name:      "boards_active",
		Help:      "Team boards held in memory",
	})
)

func init() {
	for _, c := range []prometheus.Collector{requestTotal, requestDuration, repoOps, activeSubscriptions, activeBoards} {
		if err := prometheus.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				panic(err)
			}
		}
	}
}

// Repo records the outcome of one repository operation.
func Repo(op string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	repoOps.With(prometheus.Labels{"op": op, "outcome": outcome}).Inc()
}

// SubscriptionOpened and SubscriptionClosed track live team feeds.
func SubscriptionOpened() { activeSubscriptions.Inc() }
func SubscriptionClosed() { activeSubscriptions.Dec() }

// SetBoards reports how many boards the registry holds.
func SetBoards(n int) { activeBoards.Set(float64(n)) }

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware counts and times requests by chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &responseRecorder{ResponseWriter: w}
		start := time.Now()
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		labels := prometheus.Labels{
			"method": r.Method,
			"route":  route,
			"status": strconv.Itoa(status),
		}
		requestTotal.With(labels).Inc()
		requestDuration.With(labels).Observe(time.Since(start).Seconds())
	})
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (rr *responseRecorder) WriteHeader(code int) {
	rr.status = code
	rr.ResponseWriter.WriteHeader(code)
}

func (rr *responseRecorder) Write(b []byte) (int, error) {
	if rr.status == 0 {
		rr.status = http.StatusOK
	}
	return rr.ResponseWriter.Write(b)
}

// Hijack lets websocket upgrades pass through the recorder.
func (rr *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rr.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rr.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
