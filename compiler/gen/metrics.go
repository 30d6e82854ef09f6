package gen

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects generation counters and run durations.
type Metrics struct {
	files    *prometheus.CounterVec
	bytes    prometheus.Counter
	entities *prometheus.CounterVec
	duration prometheus.Histogram
	errors   *prometheus.CounterVec
}

// NewMetrics creates the generation collectors and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "entgen",
			Name:      "files_written_total",
			Help:      "Number of generated files written, by artifact.",
		}, []string{"artifact"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "entgen",
			Name:      "bytes_written_total",
			Help:      "Number of bytes of generated code written.",
		}),
		entities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "entgen",
			Name:      "entities_total",
			Help:      "Number of entities processed, by result (generated, cached).",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "entgen",
			Name:      "run_duration_seconds",
			Help:      "Duration of generation runs.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "entgen",
			Name:      "errors_total",
			Help:      "Number of failed generation runs, by phase.",
		}, []string{"phase"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.files, m.bytes, m.entities, m.duration, m.errors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) fileWritten(artifact string, n int) {
	if m == nil {
		return
	}
	m.files.WithLabelValues(artifact).Inc()
	m.bytes.Add(float64(n))
}

func (m *Metrics) entity(result string) {
	if m == nil {
		return
	}
	m.entities.WithLabelValues(result).Inc()
}

func (m *Metrics) run(start time.Time, err error) {
	if m == nil {
		return
	}
	m.duration.Observe(time.Since(start).Seconds())
	if err != nil {
		phase := "unknown"
		var ge *GenerationError
		switch {
		case errors.As(err, &ge):
			phase = ge.Phase
		case IsSchemaError(err), IsValidationError(err):
			phase = "model"
		}
		m.errors.WithLabelValues(phase).Inc()
	}
}
