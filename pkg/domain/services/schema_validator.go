package services

import (
	"sort"
	"strings"

	domainerrors "github.com/vsinha/planrecon/pkg/domain/errors"
)

// Canonical field names the core requires on input and produces on output
const (
	FieldArticleID          = "article_id"
	FieldGroupKey           = "group_key"
	FieldCategoryTag        = "category_tag"
	FieldMonthCode          = "month_code"
	FieldQuantity           = "quantity"
	FieldTargetQuantity     = "target_quantity"
	FieldFactor             = "factor"
	FieldScaledQuantity     = "scaled_quantity"
	FieldReconciledSum      = "reconciled_sum"
	FieldAbsoluteDifference = "absolute_difference"
)

// ForecastFields are the canonical forecast input fields
var ForecastFields = []string{FieldArticleID, FieldGroupKey, FieldCategoryTag, FieldMonthCode, FieldQuantity}

// PlanFields are the canonical plan input fields
var PlanFields = []string{FieldGroupKey, FieldMonthCode, FieldTargetQuantity}

// ReconciledFields are the canonical reconciled output fields
var ReconciledFields = append(append([]string{}, ForecastFields...), FieldFactor, FieldScaledQuantity)

// DiscrepancyFields are the canonical discrepancy report fields
var DiscrepancyFields = []string{FieldGroupKey, FieldMonthCode, FieldReconciledSum, FieldTargetQuantity, FieldAbsoluteDifference}

// ColumnMapping maps a canonical field name to the source column header.
// Fields without an entry are looked up under their canonical name.
type ColumnMapping map[string]string

// SchemaValidationResult contains the resolved column positions of a header
type SchemaValidationResult struct {
	Columns    map[string]int
	Missing    []string
	Duplicates []string
}

// SchemaValidator resolves canonical fields against dataset headers
type SchemaValidator struct{}

// NewSchemaValidator creates a new schema validator
func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{}
}

// Validate resolves every required field in the header. Header matching ignores
// case and surrounding whitespace.
func (v *SchemaValidator) Validate(header []string, required []string, mapping ColumnMapping) *SchemaValidationResult {
	result := &SchemaValidationResult{
		Columns:    make(map[string]int, len(required)),
		Missing:    make([]string, 0),
		Duplicates: make([]string, 0),
	}

	positions := make(map[string]int, len(header))
	for i, name := range header {
		normalized := normalizeHeader(name)
		if normalized == "" {
			continue
		}
		if _, exists := positions[normalized]; exists {
			result.Duplicates = append(result.Duplicates, name)
			continue
		}
		positions[normalized] = i
	}

	for _, field := range required {
		source := field
		if mapped, ok := mapping[field]; ok && mapped != "" {
			source = mapped
		}
		idx, ok := positions[normalizeHeader(source)]
		if !ok {
			result.Missing = append(result.Missing, source)
			continue
		}
		result.Columns[field] = idx
	}

	sort.Strings(result.Missing)
	return result
}

// ResolveColumns validates the header and returns a SchemaMismatch error when a required field is absent
func (v *SchemaValidator) ResolveColumns(dataset string, header []string, required []string, mapping ColumnMapping) (map[string]int, error) {
	result := v.Validate(header, required, mapping)
	if len(result.Missing) > 0 {
		return nil, domainerrors.NewSchemaMismatchError(dataset, result.Missing)
	}
	return result.Columns, nil
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
