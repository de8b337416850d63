// Package analytics runs exploratory aggregations over the loaded
// procurement collection.
package analytics

import (
	"context"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"procurement-query-pipeline/internal/observability/logging"
)

// keyFields are checked for missing values in the data quality pass.
var keyFields = []string{
	"creation_date", "purchase_date", "department_name",
	"supplier_name", "item_name", "total_price", "unit_price",
}

// categoricalFields get a top-10 value breakdown.
var categoricalFields = []string{
	"department_name", "supplier_name", "acquisition_type", "item_name",
}

// BasicStats counts records and distinct values in the key dimensions.
type BasicStats struct {
	TotalRecords           int64 `json:"total_records"`
	UniqueDepartments      int   `json:"unique_departments"`
	UniqueSuppliers        int   `json:"unique_suppliers"`
	UniqueItems            int   `json:"unique_items"`
	UniqueAcquisitionTypes int   `json:"unique_acquisition_types"`
}

// DataQuality reports missing values and arithmetic inconsistencies.
type DataQuality struct {
	NullCounts                 map[string]int64 `json:"null_counts"`
	PriceCalculationMismatches int64            `json:"price_calculation_mismatches"`
}

// DateRange is an inclusive min/max over one date field.
type DateRange struct {
	Start any `json:"start"`
	End   any `json:"end"`
}

// TemporalPatterns covers the dataset's date coverage.
type TemporalPatterns struct {
	DateRanges  map[string]DateRange `json:"date_ranges"`
	FiscalYears []string             `json:"fiscal_years"`
}

// FinancialMetrics aggregates the money columns.
type FinancialMetrics struct {
	TotalSpend        float64 `json:"total_spend"`
	AverageUnitPrice  float64 `json:"average_unit_price"`
	MinUnitPrice      float64 `json:"min_unit_price"`
	MaxUnitPrice      float64 `json:"max_unit_price"`
	TotalTransactions int64   `json:"total_transactions"`
}

// ValueCount is one categorical value with its frequency.
type ValueCount struct {
	Value any   `json:"value"`
	Count int64 `json:"count"`
}

// Analysis is the full exploration result.
type Analysis struct {
	BasicStats              BasicStats              `json:"basic_stats"`
	DataQuality             DataQuality             `json:"data_quality"`
	TemporalPatterns        TemporalPatterns        `json:"temporal_patterns"`
	FinancialMetrics        FinancialMetrics        `json:"financial_metrics"`
	CategoricalDistribution map[string][]ValueCount `json:"categorical_distribution"`
}

// Explorer runs the analysis against one collection.
type Explorer struct {
	coll *mongo.Collection
}

// NewExplorer creates an explorer over the given collection.
func NewExplorer(coll *mongo.Collection) *Explorer {
	return &Explorer{coll: coll}
}

// Explore runs every analysis pass and returns the combined result.
func (e *Explorer) Explore(ctx context.Context) (*Analysis, error) {
	logger := logging.WithComponent("analytics")

	basic, err := e.basicStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("basic stats: %w", err)
	}
	quality, err := e.dataQuality(ctx)
	if err != nil {
		return nil, fmt.Errorf("data quality: %w", err)
	}
	temporal, err := e.temporalPatterns(ctx)
	if err != nil {
		return nil, fmt.Errorf("temporal patterns: %w", err)
	}
	financial, err := e.financialMetrics(ctx)
	if err != nil {
		return nil, fmt.Errorf("financial metrics: %w", err)
	}
	categorical, err := e.categoricalDistribution(ctx)
	if err != nil {
		return nil, fmt.Errorf("categorical distribution: %w", err)
	}

	logger.Info().Int64("records", basic.TotalRecords).Msg("Dataset exploration complete")
	return &Analysis{
		BasicStats:              basic,
		DataQuality:             quality,
		TemporalPatterns:        temporal,
		FinancialMetrics:        financial,
		CategoricalDistribution: categorical,
	}, nil
}

func (e *Explorer) basicStats(ctx context.Context) (BasicStats, error) {
	total, err := e.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return BasicStats{}, err
	}

	stats := BasicStats{TotalRecords: total}
	distincts := []struct {
		field string
		dst   *int
	}{
		{"department_name", &stats.UniqueDepartments},
		{"supplier_name", &stats.UniqueSuppliers},
		{"item_name", &stats.UniqueItems},
		{"acquisition_type", &stats.UniqueAcquisitionTypes},
	}
	for _, d := range distincts {
		values, err := e.coll.Distinct(ctx, d.field, bson.M{})
		if err != nil {
			return BasicStats{}, err
		}
		*d.dst = len(values)
	}
	return stats, nil
}

func (e *Explorer) dataQuality(ctx context.Context) (DataQuality, error) {
	quality := DataQuality{NullCounts: make(map[string]int64, len(keyFields))}
	for _, field := range keyFields {
		count, err := e.coll.CountDocuments(ctx, bson.M{field: nil})
		if err != nil {
			return DataQuality{}, err
		}
		quality.NullCounts[field] = count
	}

	mismatches, err := e.coll.CountDocuments(ctx, PriceMismatchFilter())
	if err != nil {
		return DataQuality{}, err
	}
	quality.PriceCalculationMismatches = mismatches
	return quality, nil
}

func (e *Explorer) temporalPatterns(ctx context.Context) (TemporalPatterns, error) {
	cursor, err := e.coll.Aggregate(ctx, TemporalPipeline())
	if err != nil {
		return TemporalPatterns{}, err
	}
	defer cursor.Close(ctx)

	var results []bson.M
	if err := cursor.All(ctx, &results); err != nil {
		return TemporalPatterns{}, err
	}
	if len(results) == 0 {
		return TemporalPatterns{DateRanges: map[string]DateRange{}}, nil
	}
	row := results[0]

	years := make([]string, 0)
	if raw, ok := row["fiscal_years"].(bson.A); ok {
		for _, y := range raw {
			if s, ok := y.(string); ok && s != "" {
				years = append(years, s)
			}
		}
	}
	sort.Strings(years)

	return TemporalPatterns{
		DateRanges: map[string]DateRange{
			"creation_date": {Start: row["min_creation_date"], End: row["max_creation_date"]},
			"purchase_date": {Start: row["min_purchase_date"], End: row["max_purchase_date"]},
		},
		FiscalYears: years,
	}, nil
}

func (e *Explorer) financialMetrics(ctx context.Context) (FinancialMetrics, error) {
	cursor, err := e.coll.Aggregate(ctx, FinancialPipeline())
	if err != nil {
		return FinancialMetrics{}, err
	}
	defer cursor.Close(ctx)

	var results []struct {
		TotalSpend        float64 `bson:"total_spend"`
		AvgUnitPrice      float64 `bson:"avg_unit_price"`
		MinUnitPrice      float64 `bson:"min_unit_price"`
		MaxUnitPrice      float64 `bson:"max_unit_price"`
		TotalTransactions int64   `bson:"total_transactions"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return FinancialMetrics{}, err
	}
	if len(results) == 0 {
		return FinancialMetrics{}, nil
	}
	r := results[0]
	return FinancialMetrics{
		TotalSpend:        r.TotalSpend,
		AverageUnitPrice:  r.AvgUnitPrice,
		MinUnitPrice:      r.MinUnitPrice,
		MaxUnitPrice:      r.MaxUnitPrice,
		TotalTransactions: r.TotalTransactions,
	}, nil
}

func (e *Explorer) categoricalDistribution(ctx context.Context) (map[string][]ValueCount, error) {
	results := make(map[string][]ValueCount, len(categoricalFields))
	for _, field := range categoricalFields {
		cursor, err := e.coll.Aggregate(ctx, TopValuesPipeline(field, 10))
		if err != nil {
			return nil, err
		}

		var rows []struct {
			ID    any   `bson:"_id"`
			Count int64 `bson:"count"`
		}
		if err := cursor.All(ctx, &rows); err != nil {
			cursor.Close(ctx)
			return nil, err
		}
		cursor.Close(ctx)

		values := make([]ValueCount, 0, len(rows))
		for _, row := range rows {
			if row.ID == nil {
				continue
			}
			values = append(values, ValueCount{Value: row.ID, Count: row.Count})
		}
		results[field] = values
	}
	return results, nil
}

// PriceMismatchFilter matches documents whose total_price disagrees with
// unit_price * quantity.
func PriceMismatchFilter() bson.M {
	return bson.M{
		"$expr": bson.M{
			"$and": bson.A{
				bson.M{"$ne": bson.A{bson.M{"$multiply": bson.A{"$unit_price", "$quantity"}}, "$total_price"}},
				bson.M{"$ne": bson.A{"$unit_price", nil}},
				bson.M{"$ne": bson.A{"$quantity", nil}},
				bson.M{"$ne": bson.A{"$total_price", nil}},
			},
		},
	}
}

// TemporalPipeline computes date extents and the fiscal year set.
func TemporalPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":               nil,
			"min_creation_date": bson.M{"$min": "$creation_date"},
			"max_creation_date": bson.M{"$max": "$creation_date"},
			"min_purchase_date": bson.M{"$min": "$purchase_date"},
			"max_purchase_date": bson.M{"$max": "$purchase_date"},
			"fiscal_years":      bson.M{"$addToSet": "$fiscal_year"},
		}}},
	}
}

// FinancialPipeline computes spend totals and unit price extremes.
func FinancialPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":                nil,
			"total_spend":        bson.M{"$sum": "$total_price"},
			"avg_unit_price":     bson.M{"$avg": "$unit_price"},
			"min_unit_price":     bson.M{"$min": "$unit_price"},
			"max_unit_price":     bson.M{"$max": "$unit_price"},
			"total_transactions": bson.M{"$sum": 1},
		}}},
	}
}

// TopValuesPipeline counts the most frequent values of one field.
func TopValuesPipeline(field string, limit int) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$" + field, "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.M{"count": -1}}},
		{{Key: "$limit", Value: limit}},
	}
}
