package entities

// Discrepancy compares a reconciled aggregate with its plan target
type Discrepancy struct {
	GroupKey           GroupKey  `json:"group_key"`
	MonthCode          MonthCode `json:"month_code"`
	ReconciledSum      float64   `json:"reconciled_sum"`
	TargetQuantity     Quantity  `json:"target_quantity"`
	AbsoluteDifference float64   `json:"absolute_difference"`
	RecordCount        int       `json:"record_count"`
	WithinTolerance    bool      `json:"within_tolerance"`
}

// Key returns the (group, month) join key of the discrepancy
func (d Discrepancy) Key() Key {
	return Key{Group: d.GroupKey, Month: d.MonthCode}
}

// Unexplained reports a plan target that no reconciled record contributed to
func (d Discrepancy) Unexplained() bool {
	return d.RecordCount == 0 && d.TargetQuantity != 0
}
