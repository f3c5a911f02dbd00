package entities

// ReconciliationFactor is the scaling factor computed for one (group, month) pair
type ReconciliationFactor struct {
	GroupKey       GroupKey  `json:"group_key"`
	MonthCode      MonthCode `json:"month_code"`
	BottomUpSum    Quantity  `json:"bottom_up_sum"`
	TargetQuantity Quantity  `json:"target_quantity"`
	Factor         float64   `json:"factor"`
}

// Key returns the (group, month) join key of the factor
func (f ReconciliationFactor) Key() Key {
	return Key{Group: f.GroupKey, Month: f.MonthCode}
}
