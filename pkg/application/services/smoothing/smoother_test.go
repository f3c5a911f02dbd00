package smoothing

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/planrecon/pkg/domain/entities"
)

func seriesOf(key string, start entities.MonthCode, values ...float64) entities.AggregatedSeries {
	points := make([]entities.SeriesPoint, len(values))
	month := start
	for i, v := range values {
		points[i] = entities.SeriesPoint{Month: month, Value: v}
		month = month.Next()
	}
	return entities.AggregatedSeries{Key: key, Points: points}
}

func TestCenteredMovingAverage(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		window   int
		expected []float64
	}{
		{"window one is identity", []float64{1, 5, 9}, 1, []float64{1, 5, 9}},
		{"window three truncates at edges", []float64{3, 6, 9, 12}, 3, []float64{4.5, 6, 9, 10.5}},
		{"even window leans backwards", []float64{1, 2, 3, 4, 5, 6, 7, 8}, 6, []float64{2, 2.5, 3, 3.5, 4.5, 5.5, 6, 6.5}},
		{"empty input", nil, 3, []float64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDeltaSlice(t, tt.expected, CenteredMovingAverage(tt.values, tt.window), 1e-9)
		})
	}
}

func TestSmooth_FlagsIsolatedDip(t *testing.T) {
	s := NewSmoother()
	out := s.Smooth(seriesOf("K1", 202601, 100, 102, 98, 5, 101, 99))

	require.Len(t, out.Points, 6)
	assert.Equal(t, []bool{false, false, false, true, false, false}, out.Mask())

	dip := out.Points[3]
	assert.Equal(t, entities.StatisticalLowRule, dip.Rule)
	assert.InDelta(t, 68.0, dip.MovingAverage, 1e-9)
	assert.InDelta(t, -63.0/68.0, dip.RelativeDeviation, 1e-9)
	assert.InDelta(t, 68.0, dip.Smoothed, 1e-9)
	assert.Equal(t, 5.0, dip.Value)

	for i, p := range out.Points {
		if i != 3 {
			assert.Equal(t, p.Value, p.Smoothed)
		}
	}
}

func TestSmooth_BaselineIncludesPointByDefault(t *testing.T) {
	out := NewSmoother().Smooth(seriesOf("K1", 202601, 10, 2.5, 10))

	mid := out.Points[1]
	assert.InDelta(t, 7.5, mid.MovingAverage, 1e-9)
	assert.InDelta(t, -5.0/7.5, mid.RelativeDeviation, 1e-9)
	assert.False(t, mid.Anomaly)
	assert.Equal(t, 2.5, mid.Smoothed)
}

func TestSmooth_NeighborOnlyBaseline(t *testing.T) {
	config := DefaultConfig()
	config.IncludeCenter = false
	s, err := NewSmootherWithConfig(config)
	require.NoError(t, err)

	out := s.Smooth(seriesOf("K1", 202601, 10, 2.5, 10))
	mid := out.Points[1]
	assert.InDelta(t, 10.0, mid.MovingAverage, 1e-9)
	assert.InDelta(t, -0.75, mid.RelativeDeviation, 1e-9)
	assert.True(t, mid.Anomaly)
	assert.InDelta(t, 10.0, mid.Smoothed, 1e-9)

	dip := s.Smooth(seriesOf("K2", 202601, 100, 102, 98, 5, 101, 99)).Points[3]
	assert.InDelta(t, 99.5, dip.MovingAverage, 1e-9)
	assert.InDelta(t, 99.5, dip.Smoothed, 1e-9)
}

func TestSmooth_WindowOneIsNoOp(t *testing.T) {
	config := DefaultConfig()
	config.Window = 1
	s, err := NewSmootherWithConfig(config)
	require.NoError(t, err)

	series := seriesOf("K1", 202601, 100, 0, 5000, 0.05, 3)
	out := s.Smooth(series)

	assert.Zero(t, out.AnomalyCount())
	assert.Equal(t, series.Values(), out.SmoothedValues().Values())
	for _, p := range out.Points {
		assert.Equal(t, p.Value, p.MovingAverage)
		assert.Zero(t, p.RelativeDeviation)
	}
}

func TestSmooth_DropoutNeedsMaterialVolume(t *testing.T) {
	config := DefaultConfig()
	config.StatLowThreshold = -1.5
	s, err := NewSmootherWithConfig(config)
	require.NoError(t, err)

	material := s.Smooth(seriesOf("K1", 202601, 300, 300, 0, 300, 300))
	assert.Equal(t, entities.DropoutRule, material.Points[2].Rule)
	assert.InDelta(t, 200.0, material.Points[2].Smoothed, 1e-9)

	small := s.Smooth(seriesOf("K2", 202601, 50, 50, 0, 50, 50))
	assert.Zero(t, small.AnomalyCount())
}

func TestSmooth_DropoutTakesPrecedence(t *testing.T) {
	out := NewSmoother().Smooth(seriesOf("K1", 202601, 300, 300, 0, 300, 300))

	assert.Equal(t, entities.DropoutRule, out.Points[2].Rule)
	assert.Equal(t, 1, out.AnomalyCount())
}

func TestSmooth_ZeroAverageHasZeroDeviation(t *testing.T) {
	out := NewSmoother().Smooth(seriesOf("K1", 202601, 0, 0, 0))

	for _, p := range out.Points {
		assert.Zero(t, p.RelativeDeviation)
		assert.False(t, p.Anomaly)
	}
}

func TestSmooth_SpikeIsNotFlagged(t *testing.T) {
	out := NewSmoother().Smooth(seriesOf("K1", 202601, 100, 10000, 100, 100))

	spike := out.Points[1]
	assert.False(t, spike.Anomaly)
	assert.Equal(t, 10000.0, spike.Smoothed)
	assert.Greater(t, spike.RelativeDeviation, 0.0)
}

func TestSmooth_NeverFlagsAboveAverage(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s := NewSmoother()

	for run := 0; run < 200; run++ {
		values := make([]float64, 3+rng.Intn(20))
		for i := range values {
			switch rng.Intn(4) {
			case 0:
				values[i] = 0
			case 1:
				values[i] = rng.Float64() * 10
			default:
				values[i] = rng.Float64() * 5000
			}
		}

		out := s.Smooth(seriesOf("R", 202401, values...))
		for _, p := range out.Points {
			if p.Anomaly {
				assert.Less(t, p.Value, p.MovingAverage)
				assert.Equal(t, p.MovingAverage, p.Smoothed)
			} else {
				assert.Equal(t, p.Value, p.Smoothed)
			}
		}
	}
}

func TestSmooth_FillGaps(t *testing.T) {
	config := DefaultConfig()
	config.FillGaps = true
	s, err := NewSmootherWithConfig(config)
	require.NoError(t, err)

	series := entities.AggregatedSeries{
		Key: "K1",
		Points: []entities.SeriesPoint{
			{Month: 202601, Value: 400},
			{Month: 202603, Value: 400},
		},
	}
	out := s.Smooth(series)

	require.Len(t, out.Points, 3)
	assert.Equal(t, entities.MonthCode(202602), out.Points[1].Month)
	assert.Equal(t, entities.DropoutRule, out.Points[1].Rule)
}

func TestNewSmootherWithConfig_Validation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"even window", func(c *Config) { c.Window = 4 }},
		{"zero window", func(c *Config) { c.Window = 0 }},
		{"positive stat threshold", func(c *Config) { c.StatLowThreshold = 0.5 }},
		{"material below absolute", func(c *Config) { c.DropoutMaterialThreshold = 0.01 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(&config)
			_, err := NewSmootherWithConfig(config)
			assert.Error(t, err)
		})
	}
}

func TestSmoothAll(t *testing.T) {
	s := NewSmoother()
	input := []entities.AggregatedSeries{
		seriesOf("A", 202601, 100, 102, 98, 5, 101, 99),
		seriesOf("B", 202601, 10, 10, 10),
		seriesOf("C", 202601, 300, 300, 0, 300, 300),
	}

	result, err := s.SmoothAll(context.Background(), input)
	require.NoError(t, err)

	require.Len(t, result.Series, 3)
	assert.Equal(t, "A", result.Series[0].Key)
	assert.Equal(t, "B", result.Series[1].Key)
	assert.Equal(t, "C", result.Series[2].Key)
	assert.Equal(t, 14, result.TotalPoints)
	assert.Equal(t, 2, result.TotalAnomalies)
	assert.Equal(t, 3, result.Window)
}

func TestSmoothAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSmoother().SmoothAll(ctx, []entities.AggregatedSeries{seriesOf("A", 202601, 1, 2, 3)})
	assert.ErrorIs(t, err, context.Canceled)
}
