package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	domainerrors "github.com/vsinha/planrecon/pkg/domain/errors"
	"github.com/vsinha/planrecon/pkg/infrastructure/repositories/tabular"
)

// EnvPrefix prefixes every environment override, e.g. PLANRECON_SMOOTHING_WINDOW
const EnvPrefix = "PLANRECON"

// Config represents the complete application configuration
type Config struct {
	Input          InputConfig          `yaml:"input" envconfig:"INPUT"`
	Reconciliation ReconciliationConfig `yaml:"reconciliation" envconfig:"RECONCILIATION"`
	Verification   VerificationConfig   `yaml:"verification" envconfig:"VERIFICATION"`
	Smoothing      SmoothingConfig      `yaml:"smoothing" envconfig:"SMOOTHING"`
	Analysis       AnalysisConfig       `yaml:"analysis" envconfig:"ANALYSIS"`
	Output         OutputConfig         `yaml:"output" envconfig:"OUTPUT"`
	Logging        LoggingConfig        `yaml:"logging" envconfig:"LOGGING"`
}

// InputConfig maps source datasets onto the canonical fields
type InputConfig struct {
	ForecastColumns    map[string]string `yaml:"forecast_columns" envconfig:"FORECAST_COLUMNS"`
	ForecastHorizons   []tabular.Horizon `yaml:"forecast_horizons" ignored:"true" validate:"dive"`
	PlanColumns        map[string]string `yaml:"plan_columns" envconfig:"PLAN_COLUMNS"`
	ReconciledColumns  map[string]string `yaml:"reconciled_columns" envconfig:"RECONCILED_COLUMNS"`
	PlanUnitMultiplier float64           `yaml:"plan_unit_multiplier" envconfig:"PLAN_UNIT_MULTIPLIER" validate:"gt=0"`
	CSVSeparator       string            `yaml:"csv_separator" envconfig:"CSV_SEPARATOR" validate:"len=1"`
	Sheet              string            `yaml:"sheet" envconfig:"SHEET"`
	WidePlan           WidePlanConfig    `yaml:"wide_plan" envconfig:"WIDE_PLAN"`
}

// WidePlanConfig describes the wide plan workbook layout
type WidePlanConfig struct {
	GroupColumn    int         `yaml:"group_column" envconfig:"GROUP_COLUMN" validate:"gte=0"`
	YearBlocks     map[int]int `yaml:"year_blocks" envconfig:"YEAR_BLOCKS" validate:"required,min=1,dive,keys,gte=1900,lte=9999,endkeys,gte=0"`
	SkipLabels     []string    `yaml:"skip_labels" envconfig:"SKIP_LABELS"`
	UnitMultiplier float64     `yaml:"unit_multiplier" envconfig:"UNIT_MULTIPLIER" validate:"gt=0"`
}

// ReconciliationConfig contains the factor application settings
type ReconciliationConfig struct {
	JoinMode        string  `yaml:"join_mode" envconfig:"JOIN_MODE" validate:"oneof=inner"`
	RoundingMode    string  `yaml:"rounding_mode" envconfig:"ROUNDING_MODE" validate:"oneof=half_even half_away_from_zero"`
	PlausibilityMin float64 `yaml:"plausibility_min" envconfig:"PLAUSIBILITY_MIN" validate:"gt=0"`
	PlausibilityMax float64 `yaml:"plausibility_max" envconfig:"PLAUSIBILITY_MAX" validate:"gtfield=PlausibilityMin"`
}

// VerificationConfig contains the consistency check settings
type VerificationConfig struct {
	ToleranceMode          string  `yaml:"tolerance_mode" envconfig:"TOLERANCE_MODE" validate:"oneof=fixed auto"`
	MaxAllowedAbsoluteDiff float64 `yaml:"max_allowed_absolute_diff" envconfig:"MAX_ALLOWED_ABSOLUTE_DIFF" validate:"gt=0"`
	ReportUnmatchedTargets bool    `yaml:"report_unmatched_targets" envconfig:"REPORT_UNMATCHED_TARGETS"`
}

// SmoothingConfig contains the anomaly detection thresholds
type SmoothingConfig struct {
	KeyFields                string  `yaml:"key_fields" envconfig:"KEY_FIELDS" validate:"oneof=group customer category article-group group+category both article"`
	Window                   int     `yaml:"window" envconfig:"WINDOW" validate:"gte=1,odd"`
	DropoutAbsThreshold      float64 `yaml:"dropout_abs_threshold" envconfig:"DROPOUT_ABS_THRESHOLD" validate:"gte=0"`
	DropoutMaterialThreshold float64 `yaml:"dropout_material_threshold" envconfig:"DROPOUT_MATERIAL_THRESHOLD" validate:"gtefield=DropoutAbsThreshold"`
	StatLowThreshold         float64 `yaml:"stat_low_threshold" envconfig:"STAT_LOW_THRESHOLD" validate:"lt=0"`
	IncludeCenter            bool    `yaml:"include_center" envconfig:"INCLUDE_CENTER"`
	FillGaps                 bool    `yaml:"fill_gaps" envconfig:"FILL_GAPS"`
	Workers                  int     `yaml:"workers" envconfig:"WORKERS" validate:"gte=0"`
}

// AnalysisConfig contains the descriptive statistics parameters
type AnalysisConfig struct {
	TrendWindow       int     `yaml:"trend_window" envconfig:"TREND_WINDOW" validate:"gte=1"`
	VolatilityMinMean float64 `yaml:"volatility_min_mean" envconfig:"VOLATILITY_MIN_MEAN" validate:"gte=0"`
	VolatilityTopN    int     `yaml:"volatility_top_n" envconfig:"VOLATILITY_TOP_N" validate:"gte=0"`
	TopGroups         int     `yaml:"top_groups" envconfig:"TOP_GROUPS" validate:"gte=0"`
	HeatmapGroups     int     `yaml:"heatmap_groups" envconfig:"HEATMAP_GROUPS" validate:"gte=0"`
}

// OutputConfig contains output locations and formats
type OutputConfig struct {
	Dir         string `yaml:"dir" envconfig:"DIR" validate:"required"`
	Format      string `yaml:"format" envconfig:"FORMAT" validate:"oneof=text json csv xlsx"`
	Charts      bool   `yaml:"charts" envconfig:"CHARTS"`
	MetricsFile string `yaml:"metrics_file" envconfig:"METRICS_FILE"`
	EventsFile  string `yaml:"events_file" envconfig:"EVENTS_FILE"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" envconfig:"FORMAT" validate:"oneof=console json"`
}

// Default returns the built-in configuration
func Default() *Config {
	wide := tabular.DefaultWidePlanLayout()
	return &Config{
		Input: InputConfig{
			PlanUnitMultiplier: 1,
			CSVSeparator:       ",",
			WidePlan: WidePlanConfig{
				GroupColumn:    wide.GroupColumn,
				YearBlocks:     wide.YearBlocks,
				SkipLabels:     wide.SkipLabels,
				UnitMultiplier: 1000,
			},
		},
		Reconciliation: ReconciliationConfig{
			JoinMode:        "inner",
			RoundingMode:    "half_even",
			PlausibilityMin: 0.1,
			PlausibilityMax: 10,
		},
		Verification: VerificationConfig{
			ToleranceMode:          "fixed",
			MaxAllowedAbsoluteDiff: 1000,
			ReportUnmatchedTargets: true,
		},
		Smoothing: SmoothingConfig{
			KeyFields:                "group",
			Window:                   3,
			DropoutAbsThreshold:      0.1,
			DropoutMaterialThreshold: 100,
			StatLowThreshold:         -0.70,
			IncludeCenter:            true,
			Workers:                  runtime.GOMAXPROCS(0),
		},
		Analysis: AnalysisConfig{
			TrendWindow:       6,
			VolatilityMinMean: 100,
			VolatilityTopN:    5,
			TopGroups:         10,
			HeatmapGroups:     10,
		},
		Output: OutputConfig{
			Dir:    "output",
			Format: "text",
			Charts: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load resolves the configuration: defaults, then the optional YAML file,
// then PLANRECON_* environment variables. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, domainerrors.NewConfigError("failed to load config from env", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return domainerrors.NewMissingInputError("config", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return domainerrors.NewConfigError(fmt.Sprintf("failed to parse config file %s", path), err)
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("odd", func(fl validator.FieldLevel) bool {
		return fl.Field().Int()%2 == 1
	})
	return v
}

// Validate checks every section against its constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return domainerrors.NewConfigError(
				fmt.Sprintf("invalid value for %s (rule %s %s)", first.Namespace(), first.Tag(), first.Param()), err).
				WithContext("violations", len(verrs))
		}
		return domainerrors.NewConfigError("config validation failed", err)
	}
	return nil
}
