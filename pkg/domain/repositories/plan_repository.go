package repositories

import "github.com/vsinha/planrecon/pkg/domain/entities"

// PlanRepository provides access to top-down plan targets.
// Implementations hold at most one target per (group, month).
type PlanRepository interface {
	GetTargets() ([]entities.PlanTarget, error)
	GetTarget(key entities.Key) (entities.Quantity, bool)
	LoadTargets(targets []entities.PlanTarget) error
}
