package entities

import "sort"

// PlanTarget is an authoritative top-down quantity for one (group, month) pair
type PlanTarget struct {
	GroupKey       GroupKey  `json:"group_key"`
	MonthCode      MonthCode `json:"month_code"`
	TargetQuantity Quantity  `json:"target_quantity"`
}

// NewPlanTarget creates a validated PlanTarget from raw field values
func NewPlanTarget(groupKey string, month any, target float64) (*PlanTarget, error) {
	group, err := NormalizeGroupKey(groupKey)
	if err != nil {
		return nil, err
	}
	monthCode, err := ParseMonthCode(month)
	if err != nil {
		return nil, err
	}
	if err := ValidateQuantity(target); err != nil {
		return nil, err
	}

	return &PlanTarget{
		GroupKey:       group,
		MonthCode:      monthCode,
		TargetQuantity: Quantity(target),
	}, nil
}

// Key returns the (group, month) join key of the target
func (p PlanTarget) Key() Key {
	return Key{Group: p.GroupKey, Month: p.MonthCode}
}

// CollapsePlanTargets sums targets that share a (group, month) key so that at
// most one target per key remains. The result is ordered by group, then month.
// merged is the number of input targets folded into an existing key.
func CollapsePlanTargets(targets []PlanTarget) (collapsed []PlanTarget, merged int) {
	sums := make(map[Key]Quantity, len(targets))
	for _, t := range targets {
		if _, exists := sums[t.Key()]; exists {
			merged++
		}
		sums[t.Key()] += t.TargetQuantity
	}

	collapsed = make([]PlanTarget, 0, len(sums))
	for key, total := range sums {
		collapsed = append(collapsed, PlanTarget{
			GroupKey:       key.Group,
			MonthCode:      key.Month,
			TargetQuantity: total,
		})
	}
	sort.Slice(collapsed, func(i, j int) bool {
		return collapsed[i].Key().Less(collapsed[j].Key())
	})

	return collapsed, merged
}

// PlanIndex maps each (group, month) key to its target
func PlanIndex(targets []PlanTarget) map[Key]Quantity {
	index := make(map[Key]Quantity, len(targets))
	for _, t := range targets {
		index[t.Key()] += t.TargetQuantity
	}
	return index
}
