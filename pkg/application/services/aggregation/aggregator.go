package aggregation

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vsinha/planrecon/pkg/domain/entities"
)

// KeyFields selects the record dimension(s) a series is grouped by
type KeyFields int

const (
	ByGroup KeyFields = iota
	ByCategory
	ByGroupAndCategory
	ByArticle
)

// String method for KeyFields enum
func (k KeyFields) String() string {
	switch k {
	case ByGroup:
		return "group"
	case ByCategory:
		return "category"
	case ByGroupAndCategory:
		return "group+category"
	case ByArticle:
		return "article"
	default:
		return "unknown"
	}
}

// ParseKeyFields parses the textual form used in configuration and flags
func ParseKeyFields(s string) (KeyFields, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "group", "customer", "":
		return ByGroup, nil
	case "category", "article-group":
		return ByCategory, nil
	case "group+category", "both":
		return ByGroupAndCategory, nil
	case "article":
		return ByArticle, nil
	default:
		return ByGroup, fmt.Errorf("invalid key fields: %s (expected group, category, group+category or article)", s)
	}
}

// SeriesKey identifies one aggregate bucket for a given KeyFields choice
type SeriesKey string

// KeyOf returns the bucket key of a record
func KeyOf(r entities.ForecastRecord, fields KeyFields) SeriesKey {
	switch fields {
	case ByCategory:
		return SeriesKey(r.CategoryTag)
	case ByGroupAndCategory:
		return SeriesKey(string(r.GroupKey) + "|" + r.CategoryTag)
	case ByArticle:
		return SeriesKey(r.ArticleID)
	default:
		return SeriesKey(r.GroupKey)
	}
}

// BucketKey is a (series key, month) aggregate bucket
type BucketKey struct {
	Series SeriesKey
	Month  entities.MonthCode
}

// Result holds aggregated sums and the records that were excluded
type Result struct {
	Sums     map[BucketKey]float64
	Counts   map[BucketKey]int
	Excluded int
}

// Aggregate sums quantity per (key, month). Records without a valid month are
// excluded and counted, never mapped to a sentinel month.
func Aggregate(records []entities.ForecastRecord, fields KeyFields) *Result {
	result := &Result{
		Sums:   make(map[BucketKey]float64),
		Counts: make(map[BucketKey]int),
	}
	for _, r := range records {
		if !r.MonthCode.Valid() {
			result.Excluded++
			continue
		}
		bucket := BucketKey{Series: KeyOf(r, fields), Month: r.MonthCode}
		result.Sums[bucket] += float64(r.Quantity)
		result.Counts[bucket]++
	}
	return result
}

// AggregateByGroupMonth sums quantity per (group, month), the reconciliation join key
func AggregateByGroupMonth(records []entities.ForecastRecord) (sums map[entities.Key]float64, counts map[entities.Key]int, excluded int) {
	sums = make(map[entities.Key]float64)
	counts = make(map[entities.Key]int)
	for _, r := range records {
		if !r.MonthCode.Valid() || r.GroupKey == "" {
			excluded++
			continue
		}
		sums[r.Key()] += float64(r.Quantity)
		counts[r.Key()]++
	}
	return sums, counts, excluded
}

// AggregateScaled sums scaled quantities of reconciled records per (group, month)
func AggregateScaled(records []entities.ReconciledRecord) (sums map[entities.Key]float64, counts map[entities.Key]int, excluded int) {
	sums = make(map[entities.Key]float64)
	counts = make(map[entities.Key]int)
	for _, r := range records {
		if !r.MonthCode.Valid() || r.GroupKey == "" {
			excluded++
			continue
		}
		sums[r.Key()] += float64(r.ScaledQuantity)
		counts[r.Key()]++
	}
	return sums, counts, excluded
}

// Total returns the sum over every bucket
func (r *Result) Total() float64 {
	var total float64
	for _, v := range r.Sums {
		total += v
	}
	return total
}

// Keys returns the distinct series keys in sorted order
func (r *Result) Keys() []SeriesKey {
	seen := make(map[SeriesKey]struct{})
	for b := range r.Sums {
		seen[b.Series] = struct{}{}
	}
	keys := make([]SeriesKey, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// MonthlyTotals sums every series per month and returns a single ordered series
func (r *Result) MonthlyTotals(name string) entities.AggregatedSeries {
	totals := make(map[entities.MonthCode]float64)
	for b, v := range r.Sums {
		totals[b.Month] += v
	}
	points := make([]entities.SeriesPoint, 0, len(totals))
	for m, v := range totals {
		points = append(points, entities.SeriesPoint{Month: m, Value: v})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Month < points[j].Month })
	return entities.AggregatedSeries{Key: name, Points: points}
}

// BuildSeries turns aggregated buckets into one month-ordered series per key.
// Series are built concurrently; the returned slice is ordered by key.
func (r *Result) BuildSeries(ctx context.Context, workers int) ([]entities.AggregatedSeries, error) {
	byKey := make(map[SeriesKey][]entities.SeriesPoint)
	for b, v := range r.Sums {
		byKey[b.Series] = append(byKey[b.Series], entities.SeriesPoint{Month: b.Month, Value: v})
	}

	keys := r.Keys()
	series := make([]entities.AggregatedSeries, len(keys))

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := entities.NewAggregatedSeries(string(key), byKey[key])
			if err != nil {
				return err
			}
			series[i] = *s
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build series: %w", err)
	}
	return series, nil
}

// FillGaps inserts zero-valued points for months missing between the first and
// last month of the series.
func FillGaps(s entities.AggregatedSeries) entities.AggregatedSeries {
	if len(s.Points) < 2 {
		return s
	}

	first := s.Points[0].Month
	last := s.Points[len(s.Points)-1].Month
	filled := make([]entities.SeriesPoint, 0, entities.MonthsBetween(first, last)+1)

	idx := 0
	for m := first; m <= last; m = m.Next() {
		if idx < len(s.Points) && s.Points[idx].Month == m {
			filled = append(filled, s.Points[idx])
			idx++
			continue
		}
		filled = append(filled, entities.SeriesPoint{Month: m, Value: 0})
	}

	return entities.AggregatedSeries{Key: s.Key, Points: filled}
}
