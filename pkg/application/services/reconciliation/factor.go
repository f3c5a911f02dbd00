package reconciliation

// ComputeFactor returns the scaling factor for one joined (group, month) pair.
// The rules are evaluated in order:
//   - no bottom-up basis: 0.0
//   - explicit zero target: 1.0, the forecast is kept unconstrained
//   - otherwise: target / bottomUp
func ComputeFactor(bottomUp, target float64) float64 {
	if bottomUp == 0 {
		return 0.0
	}
	if target == 0 {
		return 1.0
	}
	return target / bottomUp
}

// WeightedFactor is the volume-weighted correction across all joined pairs:
// total target over total bottom-up. Zero when there is no bottom-up volume.
func WeightedFactor(totalTarget, totalBottomUp float64) float64 {
	if totalBottomUp <= 0 {
		return 0
	}
	return totalTarget / totalBottomUp
}
