package entities

import (
	"fmt"
	"math"
	"strings"
)

// ArticleID identifies a granular forecast article
type ArticleID string

// Quantity is a non-negative forecast or plan volume
type Quantity float64

// ForecastRecord is one granular forecast line (article, group, month)
type ForecastRecord struct {
	ArticleID   ArticleID `json:"article_id"`
	GroupKey    GroupKey  `json:"group_key"`
	CategoryTag string    `json:"category_tag"`
	MonthCode   MonthCode `json:"month_code"`
	Quantity    Quantity  `json:"quantity"`
}

// NewForecastRecord creates a validated ForecastRecord from raw field values
func NewForecastRecord(
	articleID string,
	groupKey string,
	categoryTag string,
	month any,
	quantity float64,
) (*ForecastRecord, error) {
	group, err := NormalizeGroupKey(groupKey)
	if err != nil {
		return nil, err
	}
	monthCode, err := ParseMonthCode(month)
	if err != nil {
		return nil, err
	}
	if err := ValidateQuantity(quantity); err != nil {
		return nil, err
	}

	return &ForecastRecord{
		ArticleID:   ArticleID(strings.TrimSpace(articleID)),
		GroupKey:    group,
		CategoryTag: strings.TrimSpace(categoryTag),
		MonthCode:   monthCode,
		Quantity:    Quantity(quantity),
	}, nil
}

// Key returns the (group, month) join key of the record
func (r ForecastRecord) Key() Key {
	return Key{Group: r.GroupKey, Month: r.MonthCode}
}

// FactorSource tells where a reconciled record's factor came from
type FactorSource int

const (
	// FactorJoined means the factor was computed for the record's (group, month) pair
	FactorJoined FactorSource = iota
	// FactorFallback means no factor existed and the record passed through with 1.0
	FactorFallback
)

// String method for FactorSource enum
func (s FactorSource) String() string {
	switch s {
	case FactorJoined:
		return "joined"
	case FactorFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// ReconciledRecord is a ForecastRecord with its applied factor and scaled quantity
type ReconciledRecord struct {
	ForecastRecord
	Factor         float64      `json:"factor"`
	ScaledQuantity int64        `json:"scaled_quantity"`
	FactorSource   FactorSource `json:"-"`
}

// ValidateQuantity rejects NaN, infinite and negative quantities
func ValidateQuantity(q float64) error {
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return fmt.Errorf("quantity must be a finite number")
	}
	if q < 0 {
		return fmt.Errorf("quantity must be non-negative, got %v", q)
	}
	return nil
}
