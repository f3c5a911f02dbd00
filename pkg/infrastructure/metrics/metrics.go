package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const namespace = "planrecon"

// Recorder holds the run metrics of one process on a private registry
type Recorder struct {
	registry *prometheus.Registry

	recordsProcessed *prometheus.CounterVec
	rowsRejected     *prometheus.CounterVec
	fallbackRecords  prometheus.Counter
	anomalies        prometheus.Counter
	joinedPairs      prometheus.Gauge
	weightedFactor   prometheus.Gauge
	maxAbsDifference prometheus.Gauge
	verificationPass prometheus.Gauge
	stageDuration    *prometheus.HistogramVec
}

// NewRecorder registers the pipeline metrics on a fresh registry
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		recordsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_processed_total",
			Help:      "Records accepted per dataset",
		}, []string{"dataset"}),
		rowsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_rejected_total",
			Help:      "Input rows rejected per dataset",
		}, []string{"dataset"}),
		fallbackRecords: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_records_total",
			Help:      "Forecast records that kept factor 1.0 for lack of a plan target",
		}),
		anomalies: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "anomalies_total",
			Help:      "Points flagged by the smoother",
		}),
		joinedPairs: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "joined_pairs",
			Help:      "Group-month pairs present in both forecast and plan",
		}),
		weightedFactor: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "weighted_factor",
			Help:      "Volume-weighted reconciliation factor of the last run",
		}),
		maxAbsDifference: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "max_absolute_difference",
			Help:      "Largest absolute difference between reconciled sum and plan target",
		}),
		verificationPass: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "verification_pass",
			Help:      "1 when the last verification passed, 0 otherwise",
		}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time per pipeline stage",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"stage"}),
	}
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) RecordLoaded(dataset string, accepted, rejected int) {
	r.recordsProcessed.WithLabelValues(dataset).Add(float64(accepted))
	r.rowsRejected.WithLabelValues(dataset).Add(float64(rejected))
}

func (r *Recorder) RecordReconciliation(joinedPairs, fallbackRecords int, weightedFactor float64) {
	r.joinedPairs.Set(float64(joinedPairs))
	r.fallbackRecords.Add(float64(fallbackRecords))
	r.weightedFactor.Set(weightedFactor)
}

func (r *Recorder) RecordVerification(passed bool, maxAbsDifference float64) {
	r.maxAbsDifference.Set(maxAbsDifference)
	if passed {
		r.verificationPass.Set(1)
	} else {
		r.verificationPass.Set(0)
	}
}

func (r *Recorder) RecordAnomalies(n int) {
	r.anomalies.Add(float64(n))
}

func (r *Recorder) ObserveStage(stage string, seconds float64) {
	r.stageDuration.WithLabelValues(stage).Observe(seconds)
}

// Value returns the current value of a single-series counter or gauge by short name.
// It is meant for summaries and tests.
func (r *Recorder) Value(name string) (float64, error) {
	switch name {
	case "fallback_records_total":
		return testutil.ToFloat64(r.fallbackRecords), nil
	case "anomalies_total":
		return testutil.ToFloat64(r.anomalies), nil
	case "joined_pairs":
		return testutil.ToFloat64(r.joinedPairs), nil
	case "weighted_factor":
		return testutil.ToFloat64(r.weightedFactor), nil
	case "max_absolute_difference":
		return testutil.ToFloat64(r.maxAbsDifference), nil
	case "verification_pass":
		return testutil.ToFloat64(r.verificationPass), nil
	default:
		return 0, fmt.Errorf("unknown metric: %s", name)
	}
}

// WriteTextfile writes the registry in the Prometheus text exposition format,
// suitable for the node exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
