package memory

import (
	"sync"

	"github.com/vsinha/planrecon/pkg/domain/entities"
	"github.com/vsinha/planrecon/pkg/domain/repositories"
)

// ForecastRepository provides in-memory forecast storage
type ForecastRepository struct {
	records []entities.ForecastRecord
	mutex   sync.RWMutex
}

// NewForecastRepository creates a new in-memory forecast repository
func NewForecastRepository() *ForecastRepository {
	return &ForecastRepository{
		records: []entities.ForecastRecord{},
	}
}

// Verify interface compliance
var _ repositories.ForecastRepository = (*ForecastRepository)(nil)

// LoadForecast appends records to the repository
func (r *ForecastRepository) LoadForecast(records []entities.ForecastRecord) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.records = append(r.records, records...)
	return nil
}

// GetForecast returns a copy of all stored records
func (r *ForecastRepository) GetForecast() ([]entities.ForecastRecord, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	records := make([]entities.ForecastRecord, len(r.records))
	copy(records, r.records)
	return records, nil
}
