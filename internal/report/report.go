// Package report writes exploration results as timestamped JSON and text
// artifacts under per-format subdirectories.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"procurement-query-pipeline/internal/analytics"
	"procurement-query-pipeline/internal/observability/logging"
)

// Handler saves analysis output in one or more formats.
type Handler struct {
	dir string
}

// New creates the output directory structure.
func New(dir string) (*Handler, error) {
	for _, sub := range []string{"json", "text"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create report dir: %w", err)
		}
	}
	return &Handler{dir: dir}, nil
}

// Save writes the analysis in every requested format ("json", "txt").
// Unknown formats are skipped with a warning.
func (h *Handler) Save(analysis *analytics.Analysis, formats []string) error {
	timestamp := time.Now().Format("20060102_150405")
	logger := logging.WithComponent("report")

	for _, format := range formats {
		switch format {
		case "json":
			path := filepath.Join(h.dir, "json", fmt.Sprintf("dataset_exploration_%s.json", timestamp))
			if err := h.saveJSON(analysis, path); err != nil {
				return err
			}
			logger.Info().Str("path", path).Msg("Saved JSON output")
		case "txt":
			path := filepath.Join(h.dir, "text", fmt.Sprintf("exploration_report_%s.txt", timestamp))
			if err := h.saveText(analysis, path); err != nil {
				return err
			}
			logger.Info().Str("path", path).Msg("Saved text report")
		default:
			logger.Warn().Str("format", format).Msg("Unknown report format, skipping")
		}
	}
	return nil
}

func (h *Handler) saveJSON(analysis *analytics.Analysis, path string) error {
	data, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json report: %w", err)
	}
	return nil
}

func (h *Handler) saveText(analysis *analytics.Analysis, path string) error {
	var b strings.Builder

	b.WriteString("PROCUREMENT DATA ANALYSIS REPORT\n")
	b.WriteString(strings.Repeat("=", 30) + "\n\n")

	b.WriteString("BASIC STATISTICS\n")
	b.WriteString(strings.Repeat("-", 20) + "\n")
	stats := analysis.BasicStats
	fmt.Fprintf(&b, "Total Records: %d\n", stats.TotalRecords)
	fmt.Fprintf(&b, "Unique Departments: %d\n", stats.UniqueDepartments)
	fmt.Fprintf(&b, "Unique Suppliers: %d\n", stats.UniqueSuppliers)
	fmt.Fprintf(&b, "Unique Items: %d\n", stats.UniqueItems)
	fmt.Fprintf(&b, "Unique Acquisition Types: %d\n", stats.UniqueAcquisitionTypes)
	b.WriteString("\n")

	b.WriteString("DATA QUALITY ASSESSMENT\n")
	b.WriteString(strings.Repeat("-", 20) + "\n")
	if len(analysis.DataQuality.NullCounts) > 0 {
		b.WriteString("Missing Values:\n")
		fields := make([]string, 0, len(analysis.DataQuality.NullCounts))
		for field := range analysis.DataQuality.NullCounts {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			fmt.Fprintf(&b, "  - %s: %d\n", field, analysis.DataQuality.NullCounts[field])
		}
	}
	fmt.Fprintf(&b, "\nPrice Calculation Mismatches: %d\n\n", analysis.DataQuality.PriceCalculationMismatches)

	b.WriteString("FINANCIAL ANALYSIS\n")
	b.WriteString(strings.Repeat("-", 20) + "\n")
	financial := analysis.FinancialMetrics
	fmt.Fprintf(&b, "Total Spend: $%.2f\n", financial.TotalSpend)
	fmt.Fprintf(&b, "Average Unit Price: $%.2f\n", financial.AverageUnitPrice)
	fmt.Fprintf(&b, "Price Range: $%.2f - $%.2f\n", financial.MinUnitPrice, financial.MaxUnitPrice)
	b.WriteString("\n")

	b.WriteString("TOP CATEGORIES\n")
	b.WriteString(strings.Repeat("-", 20) + "\n")
	fields := make([]string, 0, len(analysis.CategoricalDistribution))
	for field := range analysis.CategoricalDistribution {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		fmt.Fprintf(&b, "\n%s:\n", field)
		values := analysis.CategoricalDistribution[field]
		if len(values) > 5 {
			values = values[:5]
		}
		for _, v := range values {
			fmt.Fprintf(&b, "  - %v: %d records\n", v.Value, v.Count)
		}
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write text report: %w", err)
	}
	return nil
}
