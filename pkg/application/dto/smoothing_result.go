package dto

import "github.com/vsinha/planrecon/pkg/domain/entities"

// SmoothingResult contains the smoothed series of every group
type SmoothingResult struct {
	Series         []entities.SmoothedSeries `json:"series"`
	KeyFields      string                    `json:"key_fields"`
	Window         int                       `json:"window"`
	TotalPoints    int                       `json:"total_points"`
	TotalAnomalies int                       `json:"total_anomalies"`
}

// MostAnomalous returns the series with the most flagged points, or false if none was flagged
func (r *SmoothingResult) MostAnomalous() (entities.SmoothedSeries, bool) {
	best := -1
	for i, s := range r.Series {
		if s.AnomalyCount() == 0 {
			continue
		}
		if best < 0 || s.AnomalyCount() > r.Series[best].AnomalyCount() {
			best = i
		}
	}
	if best < 0 {
		return entities.SmoothedSeries{}, false
	}
	return r.Series[best], true
}
