package repositories

import "github.com/vsinha/planrecon/pkg/domain/entities"

// ForecastRepository provides access to granular forecast records
type ForecastRepository interface {
	GetForecast() ([]entities.ForecastRecord, error)
	LoadForecast(records []entities.ForecastRecord) error
}
