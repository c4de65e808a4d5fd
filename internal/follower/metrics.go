package follower

import (
	"net/http"

	"github.com/nao1215/follower/pkg/subscription"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics はフォロワーサービスのPrometheusメトリクス。
// サーバーごとにレジストリを持つため、テストで複数生成しても衝突しない。
type Metrics struct {
	registry *prometheus.Registry

	resolveTotal     *prometheus.CounterVec
	plannedRows      *prometheus.CounterVec
	deliveries       *prometheus.CounterVec
	deliveryDuration prometheus.Histogram
	cascadeRemoved   prometheus.Counter
	projectorSkipped prometheus.Counter
}

// NewMetrics はメトリクスを生成してレジストリに登録する。
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		resolveTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "follower",
				Name:      "resolve_total",
				Help:      "Total follower merge resolutions by policy and outcome.",
			},
			[]string{"policy", "outcome"},
		),
		plannedRows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "follower",
				Name:      "planned_rows_total",
				Help:      "Follower rows written by resolved plans, by operation.",
			},
			[]string{"op"},
		),
		deliveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "follower",
				Name:      "notification_deliveries_total",
				Help:      "Notification deliveries to recipients by status.",
			},
			[]string{"status"},
		),
		deliveryDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "follower",
				Name:      "notification_delivery_duration_seconds",
				Help:      "Duration of a single notification delivery request.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
		),
		cascadeRemoved: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "follower",
				Name:      "cascade_removed_total",
				Help:      "Followers removed because their document was deleted.",
			},
		),
		projectorSkipped: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "follower",
				Name:      "projector_skipped_total",
				Help:      "DocumentDeleted events skipped because their payload could not be interpreted.",
			},
		),
	}
}

// Handler は/metrics用のHTTPハンドラを返す。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// observeOutcome はSubscribeの結果を記録する。
// 不正なポリシーはラベル値が増え続けないように"invalid"にまとめる。
func (m *Metrics) observeOutcome(policy subscription.Policy, out *Outcome, err error) {
	label := string(policy)
	if policy.Validate() != nil {
		label = "invalid"
	}
	if err != nil {
		m.resolveTotal.WithLabelValues(label, "error").Inc()
		return
	}
	m.resolveTotal.WithLabelValues(label, "ok").Inc()
	m.plannedRows.WithLabelValues("insert").Add(float64(len(out.Created)))
	m.plannedRows.WithLabelValues("update").Add(float64(len(out.Changed)))
	m.plannedRows.WithLabelValues("delete").Add(float64(len(out.Replaced)))
}
