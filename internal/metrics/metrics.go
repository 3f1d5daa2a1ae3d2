package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds the counters of one archiver process. It owns its own
// prometheus registry so runs never collide with global collectors.
type Registry struct {
	reg *prometheus.Registry

	Slots          *prometheus.CounterVec
	SlotDuration   *prometheus.HistogramVec
	Rows           *prometheus.CounterVec
	DiscardedBytes *prometheus.CounterVec
	FailureRecords prometheus.Counter
}

func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		Slots: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dukascopy_archiver_slots_total",
				Help: "Slots processed by instrument and outcome",
			},
			[]string{"instrument", "outcome"},
		),

		SlotDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dukascopy_archiver_slot_duration_seconds",
				Help:    "Wall time spent on one slot including the file write",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"outcome"},
		),

		Rows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dukascopy_archiver_rows_written_total",
				Help: "Decoded rows persisted to disk",
			},
			[]string{"instrument"},
		),

		DiscardedBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dukascopy_archiver_discarded_bytes_total",
				Help: "Trailing bytes dropped because they did not form a full record",
			},
			[]string{"instrument"},
		),

		FailureRecords: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dukascopy_archiver_failure_records_total",
				Help: "Lines appended to failure logs",
			},
		),
	}

	r.reg.MustRegister(r.Slots, r.SlotDuration, r.Rows, r.DiscardedBytes, r.FailureRecords)

	return r
}

// ObserveSlot records the outcome of one slot.
func (r *Registry) ObserveSlot(instrument, outcome string, rows, discarded int, took time.Duration) {
	if r == nil {
		return
	}

	r.Slots.WithLabelValues(instrument, outcome).Inc()
	r.SlotDuration.WithLabelValues(outcome).Observe(took.Seconds())
	if rows > 0 {
		r.Rows.WithLabelValues(instrument).Add(float64(rows))
	}
	if discarded > 0 {
		r.DiscardedBytes.WithLabelValues(instrument).Add(float64(discarded))
	}
}

func (r *Registry) ObserveFailureRecord() {
	if r == nil {
		return
	}
	r.FailureRecords.Inc()
}

func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// WriteTextfile dumps the registry in the node exporter textfile format.
func (r *Registry) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
