package config

import (
	"unicode/utf8"

	"github.com/vsinha/planrecon/pkg/application/services/aggregation"
	"github.com/vsinha/planrecon/pkg/application/services/analysis"
	"github.com/vsinha/planrecon/pkg/application/services/reconciliation"
	"github.com/vsinha/planrecon/pkg/application/services/smoothing"
	"github.com/vsinha/planrecon/pkg/application/services/verification"
	domainerrors "github.com/vsinha/planrecon/pkg/domain/errors"
	"github.com/vsinha/planrecon/pkg/domain/services"
	"github.com/vsinha/planrecon/pkg/infrastructure/repositories/dataset"
	"github.com/vsinha/planrecon/pkg/infrastructure/repositories/tabular"
)

// ReconcilerConfig converts the reconciliation section into engine settings
func (c *Config) ReconcilerConfig() (reconciliation.Config, error) {
	mode, err := reconciliation.ParseRoundingMode(c.Reconciliation.RoundingMode)
	if err != nil {
		return reconciliation.Config{}, domainerrors.NewConfigError("reconciliation.rounding_mode", err)
	}
	return reconciliation.Config{
		RoundingMode:    mode,
		PlausibilityMin: c.Reconciliation.PlausibilityMin,
		PlausibilityMax: c.Reconciliation.PlausibilityMax,
	}, nil
}

// VerifierConfig converts the verification section into verifier settings
func (c *Config) VerifierConfig() (verification.Config, error) {
	mode, err := verification.ParseToleranceMode(c.Verification.ToleranceMode)
	if err != nil {
		return verification.Config{}, domainerrors.NewConfigError("verification.tolerance_mode", err)
	}
	return verification.Config{
		ToleranceMode:          mode,
		MaxAllowedAbsoluteDiff: c.Verification.MaxAllowedAbsoluteDiff,
		ReportUnmatchedTargets: c.Verification.ReportUnmatchedTargets,
	}, nil
}

// SmootherConfig converts the smoothing section into smoother settings
func (c *Config) SmootherConfig() smoothing.Config {
	return smoothing.Config{
		Window:                   c.Smoothing.Window,
		DropoutAbsThreshold:      c.Smoothing.DropoutAbsThreshold,
		DropoutMaterialThreshold: c.Smoothing.DropoutMaterialThreshold,
		StatLowThreshold:         c.Smoothing.StatLowThreshold,
		IncludeCenter:            c.Smoothing.IncludeCenter,
		FillGaps:                 c.Smoothing.FillGaps,
		Workers:                  c.Smoothing.Workers,
	}
}

// KeyFields returns the series grouping used by smoothing and analysis
func (c *Config) KeyFields() (aggregation.KeyFields, error) {
	fields, err := aggregation.ParseKeyFields(c.Smoothing.KeyFields)
	if err != nil {
		return aggregation.ByGroup, domainerrors.NewConfigError("smoothing.key_fields", err)
	}
	return fields, nil
}

// AnalyzerConfig converts the analysis section into analyzer settings
func (c *Config) AnalyzerConfig() (analysis.Config, error) {
	fields, err := c.KeyFields()
	if err != nil {
		return analysis.Config{}, err
	}
	return analysis.Config{
		KeyFields:         fields,
		TrendWindow:       c.Analysis.TrendWindow,
		VolatilityMinMean: c.Analysis.VolatilityMinMean,
		VolatilityTopN:    c.Analysis.VolatilityTopN,
		TopGroups:         c.Analysis.TopGroups,
		Workers:           c.Smoothing.Workers,
	}, nil
}

// StoreConfig converts the input section into dataset layouts
func (c *Config) StoreConfig() dataset.Config {
	comma, _ := utf8.DecodeRuneInString(c.Input.CSVSeparator)
	return dataset.Config{
		Forecast: tabular.ForecastLayout{
			Columns:  services.ColumnMapping(c.Input.ForecastColumns),
			Horizons: c.Input.ForecastHorizons,
		},
		Plan: tabular.PlanLayout{
			Columns:        services.ColumnMapping(c.Input.PlanColumns),
			UnitMultiplier: c.Input.PlanUnitMultiplier,
		},
		WidePlan: tabular.WidePlanLayout{
			GroupColumn:    c.Input.WidePlan.GroupColumn,
			YearBlocks:     c.Input.WidePlan.YearBlocks,
			SkipLabels:     c.Input.WidePlan.SkipLabels,
			UnitMultiplier: c.Input.WidePlan.UnitMultiplier,
		},
		Reconciled: services.ColumnMapping(c.Input.ReconciledColumns),
		CSVComma:   comma,
		Sheet:      c.Input.Sheet,
	}
}
