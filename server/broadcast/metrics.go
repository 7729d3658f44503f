package broadcast

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeSent   = "sent"
	outcomeFailed = "failed"
)

// Metrics exposes Prometheus collectors for broadcasts. A nil *Metrics records nothing.
type Metrics struct {
	Deliveries *prometheus.CounterVec
	Duration   prometheus.Histogram
}

// NewMetrics constructs the broadcast collectors & registers them with 'reg',
// reusing collectors which are already registered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "safecircle",
		Subsystem: "broadcast",
		Name:      "deliveries_total",
		Help:      "Number of per-recipient delivery attempts partitioned by outcome.",
	}, []string{"outcome"})

	if err := reg.Register(deliveries); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, fmt.Errorf("register deliveries collector: %w", err)
		}

		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, fmt.Errorf("existing deliveries collector has unexpected type %T", already.ExistingCollector)
		}
		deliveries = existing
	}

	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "safecircle",
		Subsystem: "broadcast",
		Name:      "duration_seconds",
		Help:      "Time taken for every delivery attempt of a broadcast to settle.",
		Buckets:   prometheus.DefBuckets,
	})

	if err := reg.Register(duration); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, fmt.Errorf("register duration collector: %w", err)
		}

		existing, ok := already.ExistingCollector.(prometheus.Histogram)
		if !ok {
			return nil, fmt.Errorf("existing duration collector has unexpected type %T", already.ExistingCollector)
		}
		duration = existing
	}

	return &Metrics{Deliveries: deliveries, Duration: duration}, nil
}

func (m *Metrics) observeDelivery(err error) {
	if m == nil {
		return
	}

	outcome := outcomeSent
	if err != nil {
		outcome = outcomeFailed
	}
	m.Deliveries.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeBroadcast(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Duration.Observe(elapsed.Seconds())
}
