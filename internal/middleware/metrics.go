package middleware

import (
	"context"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the RPC layer and split commits.
type Metrics struct {
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	splitCommits *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "receiptsplit",
			Name:      "rpc_requests_total",
			Help:      "RPC calls by procedure and result code.",
		}, []string{"procedure", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "receiptsplit",
			Name:      "rpc_duration_seconds",
			Help:      "RPC latency by procedure.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
		splitCommits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "receiptsplit",
			Name:      "split_commits_total",
			Help:      "Custom item split commits by outcome (saved, invalid, failed).",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.requests, m.duration, m.splitCommits)
	return m
}

// Interceptor returns a Connect interceptor that counts and times every call.
func (m *Metrics) Interceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure

			resp, err := next(ctx, req)

			code := "ok"
			if err != nil {
				code = connect.CodeOf(err).String()
			}
			m.requests.WithLabelValues(procedure, code).Inc()
			m.duration.WithLabelValues(procedure).Observe(time.Since(start).Seconds())
			return resp, err
		}
	}
}

// RecordSplitCommit counts one split commit attempt. A nil *Metrics is a no-op.
func (m *Metrics) RecordSplitCommit(outcome string) {
	if m == nil {
		return
	}
	m.splitCommits.WithLabelValues(outcome).Inc()
}
