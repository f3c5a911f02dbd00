package entities

import (
	"fmt"
	"sort"
)

// SeriesPoint is a single monthly value
type SeriesPoint struct {
	Month MonthCode `json:"month_code"`
	Value float64   `json:"value"`
}

// AggregatedSeries is the monthly time series of one group, ordered by month
type AggregatedSeries struct {
	Key    string        `json:"key"`
	Points []SeriesPoint `json:"points"`
}

// NewAggregatedSeries sorts the points ascending and rejects duplicate months
func NewAggregatedSeries(key string, points []SeriesPoint) (*AggregatedSeries, error) {
	sorted := make([]SeriesPoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Month < sorted[j].Month })

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Month == sorted[i-1].Month {
			return nil, fmt.Errorf("series %s: duplicate month %s", key, sorted[i].Month)
		}
	}

	return &AggregatedSeries{Key: key, Points: sorted}, nil
}

// Values returns the point values in month order
func (s AggregatedSeries) Values() []float64 {
	values := make([]float64, len(s.Points))
	for i, p := range s.Points {
		values[i] = p.Value
	}
	return values
}

// Total returns the sum of all point values
func (s AggregatedSeries) Total() float64 {
	var total float64
	for _, p := range s.Points {
		total += p.Value
	}
	return total
}

// AnomalyRule names the rule that flagged a smoothed point
type AnomalyRule int

const (
	NoAnomaly AnomalyRule = iota
	DropoutRule
	StatisticalLowRule
)

// String method for AnomalyRule enum
func (r AnomalyRule) String() string {
	switch r {
	case NoAnomaly:
		return "none"
	case DropoutRule:
		return "dropout"
	case StatisticalLowRule:
		return "statistical_low"
	default:
		return "unknown"
	}
}

// MarshalText renders the rule name in JSON and CSV output
func (r AnomalyRule) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// SmoothedPoint keeps the original value next to its baseline and replacement
type SmoothedPoint struct {
	Month             MonthCode   `json:"month_code"`
	Value             float64     `json:"value"`
	MovingAverage     float64     `json:"moving_average"`
	RelativeDeviation float64     `json:"relative_deviation"`
	Smoothed          float64     `json:"smoothed"`
	Anomaly           bool        `json:"anomaly"`
	Rule              AnomalyRule `json:"rule"`
}

// SmoothedSeries is the smoother output for one group
type SmoothedSeries struct {
	Key    string          `json:"key"`
	Points []SmoothedPoint `json:"points"`
}

// AnomalyCount returns the number of flagged points
func (s SmoothedSeries) AnomalyCount() int {
	count := 0
	for _, p := range s.Points {
		if p.Anomaly {
			count++
		}
	}
	return count
}

// Mask returns the anomaly flags in month order
func (s SmoothedSeries) Mask() []bool {
	mask := make([]bool, len(s.Points))
	for i, p := range s.Points {
		mask[i] = p.Anomaly
	}
	return mask
}

// AnomalyMonths returns the months of the flagged points
func (s SmoothedSeries) AnomalyMonths() []MonthCode {
	var months []MonthCode
	for _, p := range s.Points {
		if p.Anomaly {
			months = append(months, p.Month)
		}
	}
	return months
}

// SmoothedValues returns the cleaned series as an AggregatedSeries
func (s SmoothedSeries) SmoothedValues() AggregatedSeries {
	points := make([]SeriesPoint, len(s.Points))
	for i, p := range s.Points {
		points[i] = SeriesPoint{Month: p.Month, Value: p.Smoothed}
	}
	return AggregatedSeries{Key: s.Key, Points: points}
}
