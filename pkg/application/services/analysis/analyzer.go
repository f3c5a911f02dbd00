package analysis

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/vsinha/planrecon/pkg/application/dto"
	"github.com/vsinha/planrecon/pkg/application/services/aggregation"
	"github.com/vsinha/planrecon/pkg/application/services/smoothing"
	"github.com/vsinha/planrecon/pkg/domain/entities"
)

// Config holds the analysis parameters
type Config struct {
	KeyFields         aggregation.KeyFields
	TrendWindow       int
	VolatilityMinMean float64
	VolatilityTopN    int
	TopGroups         int
	Workers           int
}

// DefaultConfig returns the default analysis parameters
func DefaultConfig() Config {
	return Config{
		KeyFields:         aggregation.ByGroup,
		TrendWindow:       6,
		VolatilityMinMean: 100,
		VolatilityTopN:    5,
		TopGroups:         10,
	}
}

// Validate checks the parameters
func (c Config) Validate() error {
	if c.TrendWindow < 1 {
		return fmt.Errorf("trend window must be >= 1, got %d", c.TrendWindow)
	}
	if c.VolatilityTopN < 0 || c.TopGroups < 0 {
		return fmt.Errorf("top-N values must not be negative")
	}
	return nil
}

// Analyzer computes market trend, volatility and volume rankings of a demand history
type Analyzer struct {
	config Config
}

// NewAnalyzer creates an analyzer with default parameters
func NewAnalyzer() *Analyzer {
	return &Analyzer{config: DefaultConfig()}
}

// NewAnalyzerWithConfig creates an analyzer with custom parameters
func NewAnalyzerWithConfig(config Config) (*Analyzer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{config: config}, nil
}

// Analyze builds the full report over the given records
func (a *Analyzer) Analyze(ctx context.Context, records []entities.ForecastRecord) (*dto.AnalysisReport, error) {
	agg := aggregation.Aggregate(records, a.config.KeyFields)

	series, err := agg.BuildSeries(ctx, a.config.Workers)
	if err != nil {
		return nil, err
	}

	report := &dto.AnalysisReport{
		Trend:       Trend(agg.MonthlyTotals("total"), a.config.TrendWindow),
		TrendWindow: a.config.TrendWindow,
		Volatility:  Volatility(series, a.config.VolatilityMinMean, a.config.VolatilityTopN),
		TopGroups:   TopGroups(series, a.config.TopGroups),
		TotalVolume: agg.Total(),
		Excluded:    agg.Excluded,
	}

	log.Info().
		Int("series", len(series)).
		Int("months", len(report.Trend)).
		Float64("total_volume", report.TotalVolume).
		Msg("Analysis completed")

	return report, nil
}

// Trend attaches a centered rolling mean to the monthly totals
func Trend(totals entities.AggregatedSeries, window int) []dto.TrendPoint {
	rolling := smoothing.CenteredMovingAverage(totals.Values(), window)
	points := make([]dto.TrendPoint, len(totals.Points))
	for i, p := range totals.Points {
		points[i] = dto.TrendPoint{Month: p.Month, Total: p.Value, RollingMean: rolling[i]}
	}
	return points
}

// Volatility ranks series by coefficient of variation (sample standard
// deviation over mean), descending. Series whose mean does not exceed minMean
// are skipped. topN <= 0 returns every qualifying series.
func Volatility(series []entities.AggregatedSeries, minMean float64, topN int) []dto.VolatilityEntry {
	entries := make([]dto.VolatilityEntry, 0, len(series))
	for _, s := range series {
		mean, std, ok := meanAndSampleStd(s.Values())
		if !ok || mean <= minMean {
			continue
		}
		entries = append(entries, dto.VolatilityEntry{
			Key:                    s.Key,
			Mean:                   mean,
			StdDev:                 std,
			CoefficientOfVariation: std / mean,
			Months:                 len(s.Points),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CoefficientOfVariation != entries[j].CoefficientOfVariation {
			return entries[i].CoefficientOfVariation > entries[j].CoefficientOfVariation
		}
		return entries[i].Key < entries[j].Key
	})

	if topN > 0 && len(entries) > topN {
		entries = entries[:topN]
	}
	return entries
}

func meanAndSampleStd(values []float64) (mean, std float64, ok bool) {
	if len(values) < 2 {
		return 0, 0, false
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var ss float64
	for _, v := range values {
		ss += (v - mean) * (v - mean)
	}
	std = math.Sqrt(ss / float64(len(values)-1))
	return mean, std, true
}

// TopGroups returns the n series with the largest total volume, with their share of the overall volume
func TopGroups(series []entities.AggregatedSeries, n int) []dto.GroupVolume {
	var grand float64
	volumes := make([]dto.GroupVolume, len(series))
	for i, s := range series {
		volumes[i] = dto.GroupVolume{Key: s.Key, Total: s.Total()}
		grand += volumes[i].Total
	}

	sort.SliceStable(volumes, func(i, j int) bool {
		if volumes[i].Total != volumes[j].Total {
			return volumes[i].Total > volumes[j].Total
		}
		return volumes[i].Key < volumes[j].Key
	})

	if n > 0 && len(volumes) > n {
		volumes = volumes[:n]
	}
	if grand > 0 {
		for i := range volumes {
			volumes[i].Share = volumes[i].Total / grand
		}
	}
	return volumes
}

// VolumeByMonth compares the original and reconciled monthly totals
func VolumeByMonth(records []entities.ReconciledRecord) []dto.VolumePoint {
	byMonth := make(map[entities.MonthCode]*dto.VolumePoint)
	for _, r := range records {
		if !r.MonthCode.Valid() {
			continue
		}
		p, ok := byMonth[r.MonthCode]
		if !ok {
			p = &dto.VolumePoint{Month: r.MonthCode}
			byMonth[r.MonthCode] = p
		}
		p.Original += float64(r.Quantity)
		p.Reconciled += float64(r.ScaledQuantity)
	}

	points := make([]dto.VolumePoint, 0, len(byMonth))
	for _, p := range byMonth {
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Month < points[j].Month })
	return points
}

// BuildFactorHeatmap lays the factors out as a group × month matrix. When
// groups is non-empty only those rows are kept, in the given order.
func BuildFactorHeatmap(factors []entities.ReconciliationFactor, groups []entities.GroupKey) *dto.FactorHeatmap {
	type cell struct {
		sum float64
		n   int
	}
	cells := make(map[entities.Key]*cell)
	monthSet := make(map[entities.MonthCode]struct{})
	groupSet := make(map[entities.GroupKey]struct{})

	for _, f := range factors {
		c, ok := cells[f.Key()]
		if !ok {
			c = &cell{}
			cells[f.Key()] = c
		}
		c.sum += f.Factor
		c.n++
		monthSet[f.MonthCode] = struct{}{}
		groupSet[f.GroupKey] = struct{}{}
	}

	if len(groups) == 0 {
		for g := range groupSet {
			groups = append(groups, g)
		}
		sort.Slice(groups, func(i, j int) bool { return groups[i] < groups[j] })
	}
	months := make([]entities.MonthCode, 0, len(monthSet))
	for m := range monthSet {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i] < months[j] })

	heatmap := &dto.FactorHeatmap{
		Groups:  groups,
		Months:  months,
		Values:  make([][]float64, len(groups)),
		Present: make([][]bool, len(groups)),
	}
	for i, g := range groups {
		heatmap.Values[i] = make([]float64, len(months))
		heatmap.Present[i] = make([]bool, len(months))
		for j, m := range months {
			if c, ok := cells[entities.Key{Group: g, Month: m}]; ok {
				heatmap.Values[i][j] = c.sum / float64(c.n)
				heatmap.Present[i][j] = true
			}
		}
	}
	return heatmap
}
