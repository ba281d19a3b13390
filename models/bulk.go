package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// BulkImportRow is one parsed row of a bulk import. Rows are transient: they
// exist only for the duration of a single reconciliation pass.
type BulkImportRow struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Threshold   int     `json:"threshold"`
	Unit        string  `json:"unit"`
	Category    string  `json:"category"`
}

// RowError records a skipped row and why.
type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// BulkReconcileResult is the outcome of one reconciliation pass.
type BulkReconcileResult struct {
	ProcessedCount int             `json:"processed_count"`
	SkippedCount   int             `json:"skipped_count"`
	Errors         []RowError      `json:"errors,omitempty"`
	Inventory      []InventoryItem `json:"inventory"`
}

// CoerceFloat maps any JSON-decoded value to a float64; non-numeric and
// absent values map to 0. Negative handling is left to the caller.
func CoerceFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// CoerceInt maps any JSON-decoded value to an int with the same total rules
// as CoerceFloat; fractional values truncate.
func CoerceInt(v interface{}) int {
	return int(CoerceFloat(v))
}

// header aliases accepted for the threshold column. Import sheets exported
// from the legacy tracker call it "min stock level".
var thresholdAliases = []string{"threshold", "min stock level", "min_stock_level", "minstocklevel"}

// RowFromMap builds a BulkImportRow from a loosely-typed row object with
// case-insensitive field matching. Every input maps to a defined output.
func RowFromMap(raw map[string]interface{}) BulkImportRow {
	fields := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		fields[strings.ToLower(strings.TrimSpace(k))] = v
	}

	get := func(key string) interface{} { return fields[key] }
	getString := func(key string) string {
		if s, ok := get(key).(string); ok {
			return strings.TrimSpace(s)
		}
		return ""
	}

	row := BulkImportRow{
		Name:        getString("name"),
		Description: getString("description"),
		Price:       CoerceFloat(get("price")),
		Quantity:    CoerceInt(get("quantity")),
		Unit:        getString("unit"),
		Category:    getString("category"),
	}
	for _, alias := range thresholdAliases {
		if v, ok := fields[alias]; ok {
			row.Threshold = CoerceInt(v)
			break
		}
	}
	return row
}
