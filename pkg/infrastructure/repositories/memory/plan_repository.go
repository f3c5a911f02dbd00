package memory

import (
	"sort"
	"sync"

	"github.com/vsinha/planrecon/pkg/domain/entities"
	"github.com/vsinha/planrecon/pkg/domain/repositories"
)

// PlanRepository provides in-memory plan storage with one target per (group, month)
type PlanRepository struct {
	targets map[entities.Key]entities.Quantity
	merged  int
	mutex   sync.RWMutex
}

// NewPlanRepository creates a new in-memory plan repository
func NewPlanRepository() *PlanRepository {
	return &PlanRepository{
		targets: make(map[entities.Key]entities.Quantity),
	}
}

// Verify interface compliance
var _ repositories.PlanRepository = (*PlanRepository)(nil)

// LoadTargets adds targets. A target whose key is already present is summed
// into the existing one, never dropped.
func (r *PlanRepository) LoadTargets(targets []entities.PlanTarget) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, t := range targets {
		key := t.Key()
		if _, exists := r.targets[key]; exists {
			r.merged++
		}
		r.targets[key] += t.TargetQuantity
	}
	return nil
}

// GetTarget returns the target for a (group, month) key
func (r *PlanRepository) GetTarget(key entities.Key) (entities.Quantity, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	q, ok := r.targets[key]
	return q, ok
}

// GetTargets returns all targets ordered by group and month
func (r *PlanRepository) GetTargets() ([]entities.PlanTarget, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	targets := make([]entities.PlanTarget, 0, len(r.targets))
	for key, q := range r.targets {
		targets = append(targets, entities.PlanTarget{GroupKey: key.Group, MonthCode: key.Month, TargetQuantity: q})
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].Key().Less(targets[j].Key()) })
	return targets, nil
}

// Merged returns how many loaded targets were folded into an existing key
func (r *PlanRepository) Merged() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.merged
}
