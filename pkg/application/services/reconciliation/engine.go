package reconciliation

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/vsinha/planrecon/pkg/application/dto"
	"github.com/vsinha/planrecon/pkg/application/services/aggregation"
	"github.com/vsinha/planrecon/pkg/domain/entities"
	domainerrors "github.com/vsinha/planrecon/pkg/domain/errors"
)

// Config holds the reconciliation policy
type Config struct {
	RoundingMode RoundingMode
	// PlausibilityMin and PlausibilityMax bound the weighted factor; outside is a warning only
	PlausibilityMin float64
	PlausibilityMax float64
}

// DefaultConfig returns the default reconciliation policy
func DefaultConfig() Config {
	return Config{
		RoundingMode:    HalfEven,
		PlausibilityMin: 0.1,
		PlausibilityMax: 10,
	}
}

// Engine scales granular forecast records so that their (group, month)
// aggregates match the plan while keeping the granular distribution.
type Engine struct {
	config Config
}

// NewEngine creates a reconciliation engine with the default policy
func NewEngine() *Engine {
	return NewEngineWithConfig(DefaultConfig())
}

// NewEngineWithConfig creates a reconciliation engine with a custom policy
func NewEngineWithConfig(config Config) *Engine {
	return &Engine{config: config}
}

// Config returns the engine policy
func (e *Engine) Config() Config {
	return e.config
}

// Reconcile computes one factor per (group, month) pair present in both the
// forecast and the plan and applies it to every forecast record.
//
// When the join is empty the returned result carries the pair counts and no
// records, together with an EmptyJoin error.
func (e *Engine) Reconcile(
	ctx context.Context,
	forecast []entities.ForecastRecord,
	plan []entities.PlanTarget,
) (*dto.ReconciliationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &dto.ReconciliationResult{
		Records: make([]entities.ReconciledRecord, 0, len(forecast)),
		Factors: make([]entities.ReconciliationFactor, 0),
		Stats: dto.ReconciliationStats{
			ForecastRecords:   len(forecast),
			PlausibilityRange: [2]float64{e.config.PlausibilityMin, e.config.PlausibilityMax},
			RoundingMode:      e.config.RoundingMode.String(),
		},
	}
	stats := &result.Stats

	// Step 1: bottom-up sums per (group, month)
	bottomUp, _, excluded := aggregation.AggregateByGroupMonth(forecast)
	stats.ExcludedRecords = excluded

	// Step 2: inner join with the plan
	targets := entities.PlanIndex(plan)
	stats.ForecastPairs = len(bottomUp)
	stats.PlanPairs = len(targets)

	joined := make([]entities.Key, 0, len(bottomUp))
	for key := range bottomUp {
		if _, ok := targets[key]; ok {
			joined = append(joined, key)
		} else {
			stats.ForecastOnlyPairs++
		}
	}
	stats.JoinedPairs = len(joined)
	stats.PlanOnlyPairs = stats.PlanPairs - stats.JoinedPairs

	if len(joined) == 0 {
		log.Error().
			Int("forecast_pairs", stats.ForecastPairs).
			Int("plan_pairs", stats.PlanPairs).
			Msg("No overlapping (group, month) pairs between forecast and plan")
		return result, domainerrors.NewEmptyJoinError(stats.ForecastPairs, stats.PlanPairs)
	}

	sort.Slice(joined, func(i, j int) bool { return joined[i].Less(joined[j]) })

	// Step 3: factor per joined pair
	factorIndex := make(map[entities.Key]float64, len(joined))
	var factorSum float64
	for _, key := range joined {
		sum := bottomUp[key]
		target := float64(targets[key])
		factor := ComputeFactor(sum, target)

		factorIndex[key] = factor
		factorSum += factor
		stats.TotalBottomUp += sum
		stats.TotalTarget += target

		result.Factors = append(result.Factors, entities.ReconciliationFactor{
			GroupKey:       key.Group,
			MonthCode:      key.Month,
			BottomUpSum:    entities.Quantity(sum),
			TargetQuantity: entities.Quantity(target),
			Factor:         factor,
		})
	}

	// Step 4: diagnostic mean and volume-weighted factor
	stats.ArithmeticMeanFactor = factorSum / float64(len(joined))
	stats.WeightedFactor = WeightedFactor(stats.TotalTarget, stats.TotalBottomUp)
	stats.PlausibilityWarning = !e.plausible(stats.WeightedFactor)

	if stats.PlausibilityWarning {
		log.Warn().
			Float64("weighted_factor", stats.WeightedFactor).
			Float64("min", e.config.PlausibilityMin).
			Float64("max", e.config.PlausibilityMax).
			Msg("Weighted factor outside plausibility range, review input data")
	}

	// Step 5 and 6: left join every record to its factor and scale
	for _, r := range forecast {
		if !r.MonthCode.Valid() || r.GroupKey == "" {
			continue
		}

		factor, ok := factorIndex[r.Key()]
		source := entities.FactorJoined
		if !ok {
			factor = 1.0
			source = entities.FactorFallback
			stats.FallbackRecords++
		}

		scaled := e.config.RoundingMode.Scale(float64(r.Quantity), factor)
		stats.TotalOriginal += float64(r.Quantity)
		stats.TotalScaled += scaled

		result.Records = append(result.Records, entities.ReconciledRecord{
			ForecastRecord: r,
			Factor:         factor,
			ScaledQuantity: scaled,
			FactorSource:   source,
		})
	}

	if stats.FallbackRecords > 0 {
		log.Info().
			Int("fallback_records", stats.FallbackRecords).
			Int("forecast_only_pairs", stats.ForecastOnlyPairs).
			Msg("Records without plan kept with factor 1.0")
	}

	log.Info().
		Int("joined_pairs", stats.JoinedPairs).
		Float64("mean_factor", stats.ArithmeticMeanFactor).
		Float64("weighted_factor", stats.WeightedFactor).
		Int("records", len(result.Records)).
		Msg("Reconciliation completed")

	return result, nil
}

func (e *Engine) plausible(weighted float64) bool {
	return weighted >= e.config.PlausibilityMin && weighted <= e.config.PlausibilityMax
}

// Validate checks the policy bounds
func (c Config) Validate() error {
	if c.PlausibilityMin < 0 || c.PlausibilityMax <= c.PlausibilityMin {
		return fmt.Errorf("invalid plausibility range [%v, %v]", c.PlausibilityMin, c.PlausibilityMax)
	}
	return nil
}
