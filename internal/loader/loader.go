// Package loader imports the procurement CSV into MongoDB, cleaning and
// renaming columns to the snake_case schema the rest of the pipeline expects.
package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"procurement-query-pipeline/internal/observability/logging"
)

// Config bounds a load run.
type Config struct {
	CSVPath   string
	MaxRows   int // rows read from the CSV, 0 means DefaultMaxRows
	BatchSize int // documents per InsertMany, 0 means DefaultBatchSize
}

// DefaultMaxRows keeps a full load inside the free Atlas tier.
const DefaultMaxRows = 200000

// DefaultBatchSize bounds InsertMany payload size.
const DefaultBatchSize = 10000

// sizeWarnMB warns before the collection approaches the storage quota.
const sizeWarnMB = 450

// indexedFields get single-field indexes after the load.
var indexedFields = []string{"creation_date", "department_name", "supplier_name", "acquisition_type"}

// Loader drops and reloads the procurement collection from a CSV file.
type Loader struct {
	coll *mongo.Collection
	db   *mongo.Database
	cfg  Config
}

// New creates a loader over the given database and collection.
func New(db *mongo.Database, collection string, cfg Config) *Loader {
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = DefaultMaxRows
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Loader{
		coll: db.Collection(collection),
		db:   db,
		cfg:  cfg,
	}
}

// Load drops the existing collection, streams the CSV in, inserts documents
// in batches, and creates the standard indexes. Returns the number of
// documents inserted.
func (l *Loader) Load(ctx context.Context) (int, error) {
	logger := logging.WithComponent("loader")

	if err := l.coll.Drop(ctx); err != nil {
		return 0, fmt.Errorf("drop collection: %w", err)
	}
	logger.Info().Msg("Dropped existing collection")

	f, err := os.Open(l.cfg.CSVPath)
	if err != nil {
		return 0, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return 0, fmt.Errorf("read csv header: %w", err)
	}
	columns := indexColumns(header)
	logger.Info().Str("path", l.cfg.CSVPath).Int("maxRows", l.cfg.MaxRows).Msg("Reading CSV")

	inserted := 0
	batch := make([]any, 0, l.cfg.BatchSize)
	for inserted+len(batch) < l.cfg.MaxRows {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return inserted, fmt.Errorf("read csv row: %w", err)
		}

		batch = append(batch, TransformRow(rowMap(columns, record)))
		if len(batch) == l.cfg.BatchSize {
			if err := l.insert(ctx, batch); err != nil {
				return inserted, err
			}
			inserted += len(batch)
			logger.Info().Int("batch", len(batch)).Int("total", inserted).Msg("Inserted batch")
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := l.insert(ctx, batch); err != nil {
			return inserted, err
		}
		inserted += len(batch)
		logger.Info().Int("batch", len(batch)).Int("total", inserted).Msg("Inserted batch")
	}

	l.logCollectionSize(ctx, logger)

	logger.Info().Msg("Creating indexes")
	for _, field := range indexedFields {
		model := mongo.IndexModel{Keys: bson.D{{Key: field, Value: 1}}}
		if _, err := l.coll.Indexes().CreateOne(ctx, model); err != nil {
			return inserted, fmt.Errorf("create index on %s: %w", field, err)
		}
	}

	logger.Info().Int("documents", inserted).Msg("Data loading complete")
	return inserted, nil
}

func (l *Loader) insert(ctx context.Context, batch []any) error {
	if _, err := l.coll.InsertMany(ctx, batch); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

// logCollectionSize reports storage usage so quota pressure is visible
// before index creation.
func (l *Loader) logCollectionSize(ctx context.Context, logger zerolog.Logger) {
	var stats bson.M
	cmd := bson.D{{Key: "collStats", Value: l.coll.Name()}}
	if err := l.db.RunCommand(ctx, cmd).Decode(&stats); err != nil {
		logger.Warn().Err(err).Msg("Could not read collection stats")
		return
	}

	sizeMB := 0.0
	if size, ok := stats["size"].(int32); ok {
		sizeMB = float64(size) / (1024 * 1024)
	} else if size, ok := stats["size"].(int64); ok {
		sizeMB = float64(size) / (1024 * 1024)
	} else if size, ok := stats["size"].(float64); ok {
		sizeMB = size / (1024 * 1024)
	}

	logger.Info().Float64("sizeMB", sizeMB).Msg("Current collection size")
	if sizeMB > sizeWarnMB {
		logger.Warn().Float64("sizeMB", sizeMB).Msg("Collection size approaching storage quota")
	}
}

// indexColumns maps header names to their positions.
func indexColumns(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	return columns
}

// rowMap pairs a record with its column names.
func rowMap(columns map[string]int, record []string) map[string]string {
	row := make(map[string]string, len(columns))
	for name, i := range columns {
		if i < len(record) {
			row[name] = record[i]
		}
	}
	return row
}

// TransformRow converts one CSV row into the document shape stored in the
// collection: snake_case names, cleaned prices, parsed dates.
func TransformRow(row map[string]string) bson.M {
	return bson.M{
		"creation_date": ParseDate(row["Creation Date"]),
		"purchase_date": ParseDate(row["Purchase Date"]),
		"fiscal_year":   row["Fiscal Year"],

		"lpa_number":            row["LPA Number"],
		"purchase_order_number": row["Purchase Order Number"],
		"requisition_number":    row["Requisition Number"],

		"acquisition_type":       row["Acquisition Type"],
		"sub_acquisition_type":   row["Sub-Acquisition Type"],
		"acquisition_method":     row["Acquisition Method"],
		"sub_acquisition_method": row["Sub-Acquisition Method"],

		"department_name": row["Department Name"],
		"location":        row["Location"],

		"supplier_code":           SafeInt(row["Supplier Code"]),
		"supplier_name":           row["Supplier Name"],
		"supplier_qualifications": row["Supplier Qualifications"],
		"supplier_zip_code":       row["Supplier Zip Code"],
		"calcard":                 row["CalCard"],

		"item_name":        row["Item Name"],
		"item_description": row["Item Description"],
		"quantity":         parseQuantity(row["Quantity"]),
		"unit_price":       CleanPrice(row["Unit Price"]),
		"total_price":      CleanPrice(row["Total Price"]),

		"classification_codes": splitCodes(row["Classification Codes"]),
		"normalized_unspsc":    row["Normalized UNSPSC"],
		"class":                row["Class"],
		"class_title":          row["Class Title"],
		"family":               row["Family"],
		"family_title":         row["Family Title"],
		"segment":              row["Segment"],
		"segment_title":        row["Segment Title"],
		"commodity_title":      row["Commodity Title"],
	}
}

// CleanPrice strips currency formatting and converts to a float. Anything
// unparseable becomes zero.
func CleanPrice(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(s, "$", ""), ",", ""))
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// dateFormats are tried in order when parsing CSV date columns.
var dateFormats = []string{
	"01/02/2006",
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate parses a CSV date string, returning nil for blank or
// unparseable values so the document stores an explicit null.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return &t
		}
	}
	return nil
}

// SafeInt converts to int, treating blanks and junk as zero. Values such as
// "1234.0" survive the float detour the source data takes.
func SafeInt(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(v)
}

func parseQuantity(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// splitCodes splits the newline-separated classification codes column.
func splitCodes(s string) []string {
	parts := strings.Split(s, "\n")
	codes := make([]string, 0, len(parts))
	for _, p := range parts {
		if code := strings.TrimSpace(p); code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}
