package smoothing

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/vsinha/planrecon/pkg/application/dto"
	"github.com/vsinha/planrecon/pkg/application/services/aggregation"
	"github.com/vsinha/planrecon/pkg/domain/entities"
)

// Config holds the anomaly detection thresholds
type Config struct {
	// Window is the odd number of points the moving average spans
	Window int
	// DropoutAbsThreshold: values at or below it count as effectively zero
	DropoutAbsThreshold float64
	// DropoutMaterialThreshold: the moving average must exceed it for a dropout
	DropoutMaterialThreshold float64
	// StatLowThreshold is the negative relative deviation below which a point is flagged
	StatLowThreshold float64
	// IncludeCenter folds the point itself into its baseline. When false the
	// baseline is the mean of the neighbors inside the window only.
	IncludeCenter bool
	// FillGaps inserts missing months as zero before smoothing
	FillGaps bool
	// Workers bounds the per-group fan-out (0 = GOMAXPROCS)
	Workers int
}

// DefaultConfig returns the default thresholds
func DefaultConfig() Config {
	return Config{
		Window:                   3,
		DropoutAbsThreshold:      0.1,
		DropoutMaterialThreshold: 100,
		StatLowThreshold:         -0.70,
		IncludeCenter:            true,
	}
}

// Validate checks the window and threshold invariants
func (c Config) Validate() error {
	if c.Window < 1 || c.Window%2 == 0 {
		return fmt.Errorf("window must be an odd integer >= 1, got %d", c.Window)
	}
	if c.StatLowThreshold >= 0 {
		return fmt.Errorf("stat low threshold must be negative, got %v", c.StatLowThreshold)
	}
	if c.DropoutMaterialThreshold < c.DropoutAbsThreshold {
		return fmt.Errorf("dropout material threshold %v must not be below the absolute threshold %v",
			c.DropoutMaterialThreshold, c.DropoutAbsThreshold)
	}
	return nil
}

// Smoother flags downward anomalies in monthly series and replaces them with
// their moving average. Spikes above trend are never flagged.
type Smoother struct {
	config Config
}

// NewSmoother creates a smoother with the default thresholds
func NewSmoother() *Smoother {
	return &Smoother{config: DefaultConfig()}
}

// NewSmootherWithConfig creates a smoother with custom thresholds
func NewSmootherWithConfig(config Config) (*Smoother, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Smoother{config: config}, nil
}

// Config returns the smoother thresholds
func (s *Smoother) Config() Config {
	return s.config
}

// Smooth processes one series. The original values are kept next to the
// moving average, the deviation, the anomaly flag and the smoothed value.
func (s *Smoother) Smooth(series entities.AggregatedSeries) entities.SmoothedSeries {
	if s.config.FillGaps {
		series = aggregation.FillGaps(series)
	}

	values := series.Values()
	var averages []float64
	if s.config.IncludeCenter {
		averages = CenteredMovingAverage(values, s.config.Window)
	} else {
		averages = leaveOneOutAverage(values, s.config.Window)
	}

	out := entities.SmoothedSeries{
		Key:    series.Key,
		Points: make([]entities.SmoothedPoint, len(values)),
	}
	for i, p := range series.Points {
		ma := averages[i]
		dev := relativeDeviation(p.Value, ma)
		rule := s.classify(p.Value, ma, dev)

		smoothed := p.Value
		if rule != entities.NoAnomaly {
			smoothed = ma
		}

		out.Points[i] = entities.SmoothedPoint{
			Month:             p.Month,
			Value:             p.Value,
			MovingAverage:     ma,
			RelativeDeviation: dev,
			Smoothed:          smoothed,
			Anomaly:           rule != entities.NoAnomaly,
			Rule:              rule,
		}
	}
	return out
}

func (s *Smoother) classify(value, ma, dev float64) entities.AnomalyRule {
	if value <= s.config.DropoutAbsThreshold && ma > s.config.DropoutMaterialThreshold {
		return entities.DropoutRule
	}
	if dev < s.config.StatLowThreshold {
		return entities.StatisticalLowRule
	}
	return entities.NoAnomaly
}

// relativeDeviation is (value - ma) / ma, with zero for a zero or undefined average
func relativeDeviation(value, ma float64) float64 {
	if ma == 0 || math.IsNaN(ma) || math.IsInf(ma, 0) {
		return 0
	}
	dev := (value - ma) / ma
	if math.IsNaN(dev) || math.IsInf(dev, 0) {
		return 0
	}
	return dev
}

// SmoothAll smooths every series independently, fanning the groups out over
// a bounded worker pool. Output order follows input order.
func (s *Smoother) SmoothAll(ctx context.Context, series []entities.AggregatedSeries) (*dto.SmoothingResult, error) {
	result := &dto.SmoothingResult{
		Series: make([]entities.SmoothedSeries, len(series)),
		Window: s.config.Window,
	}

	workers := s.config.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range series {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			result.Series[i] = s.Smooth(series[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("smoothing interrupted: %w", err)
	}

	for _, smoothed := range result.Series {
		anomalies := smoothed.AnomalyCount()
		result.TotalPoints += len(smoothed.Points)
		result.TotalAnomalies += anomalies
		if anomalies > 0 {
			log.Debug().Str("group", smoothed.Key).Int("anomalies", anomalies).Msg("Anomalies detected")
		}
	}

	log.Info().
		Int("series", len(result.Series)).
		Int("points", result.TotalPoints).
		Int("anomalies", result.TotalAnomalies).
		Int("window", s.config.Window).
		Msg("Smoothing completed")

	return result, nil
}
