package dto

import (
	"sort"

	"github.com/vsinha/planrecon/pkg/domain/entities"
)

// Verdict is the overall outcome of a consistency check
type Verdict string

const (
	VerdictPass Verdict = "PASS"
	VerdictFail Verdict = "FAIL"
)

// VerificationReport contains the discrepancy table and verdict of a consistency check
type VerificationReport struct {
	Discrepancies []entities.Discrepancy `json:"discrepancies"`
	Verdict       Verdict                `json:"verdict"`
	Summary       VerificationSummary    `json:"summary"`
}

// VerificationSummary aggregates the discrepancy table
type VerificationSummary struct {
	PairsChecked            int     `json:"pairs_checked"`
	UnexplainedTargets      int     `json:"unexplained_targets"`
	PairsOutsideTolerance   int     `json:"pairs_outside_tolerance"`
	TotalAbsoluteDifference float64 `json:"total_absolute_difference"`
	MaxAbsoluteDifference   float64 `json:"max_absolute_difference"`
	MaxGroupSize            int     `json:"max_group_size"`
	Tolerance               float64 `json:"tolerance"`
	ToleranceMode           string  `json:"tolerance_mode"`
}

// Passed reports whether the verdict is PASS
func (r *VerificationReport) Passed() bool {
	return r.Verdict == VerdictPass
}

// Worst returns up to n discrepancies with the largest absolute difference
func (r *VerificationReport) Worst(n int) []entities.Discrepancy {
	worst := make([]entities.Discrepancy, 0, n)
	for _, d := range r.Discrepancies {
		if d.WithinTolerance {
			continue
		}
		worst = append(worst, d)
	}
	sort.SliceStable(worst, func(i, j int) bool {
		return worst[i].AbsoluteDifference > worst[j].AbsoluteDifference
	})
	if len(worst) > n {
		worst = worst[:n]
	}
	return worst
}
