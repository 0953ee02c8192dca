package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики сервиса. Регистрируются в переданном реестре, чтобы тесты
// могли использовать собственный prometheus.Registry.

type Metrics struct {
	CyclesTotal       *prometheus.CounterVec
	CycleDuration     prometheus.Histogram
	SlotEventsTotal   *prometheus.CounterVec
	NotificationsSent *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "checker_cycles_total",
			Help: "Poll cycles by outcome.",
		}, []string{"status"}), // ok | fetch_failed | store_failed
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "checker_cycle_duration_seconds",
			Help:    "Duration of one full poll cycle.",
			Buckets: prometheus.DefBuckets,
		}),
		SlotEventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "slot_events_total",
			Help: "Committed slot transitions by kind.",
		}, []string{"kind"}), // CREATED | DELETED
		NotificationsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Delivery attempts by platform and result.",
		}, []string{"platform", "status"}), // ok | failed
	}
}
