package toxicity

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts analyses. A nil *Metrics is valid and records nothing.
type Metrics struct {
	analyses *prometheus.CounterVec
	toxic    prometheus.Counter
	rewrites *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		analyses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "safechat_analyses_total",
			Help: "Toxicity analyses by detection status",
		}, []string{"status"}),
		toxic: f.NewCounter(prometheus.CounterOpts{
			Name: "safechat_toxic_total",
			Help: "Analyses whose verdict was toxic",
		}),
		rewrites: f.NewCounterVec(prometheus.CounterOpts{
			Name: "safechat_rewrites_total",
			Help: "Rewrite requests by outcome",
		}, []string{"outcome"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "safechat_model_latency_seconds",
			Help:    "Model call latency",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"engine", "op"}),
	}
}

func (m *Metrics) observeOutcome(o Outcome) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(string(o.Status)).Inc()
	if o.Result.IsToxic {
		m.toxic.Inc()
	}
}

func (m *Metrics) observeRewrite(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	m.rewrites.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeLatency(engine, op string, d time.Duration) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(engine, op).Observe(d.Seconds())
}
