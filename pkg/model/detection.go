// pkg/model/detection.go
package model

import "strings"

// Detection verdict values used in the model's reply and in output JSON.
const (
	VerdictError   = "error"
	VerdictNoError = "no error"
)

// Well-known error types produced by the pipeline itself.
const (
	ErrorTypeParse      = "parse_error"
	ErrorTypeProcessing = "processing_error"
	ErrorTypeLength     = "length_violation"
	ErrorTypeDate       = "invalid_date"
	ErrorTypeDateFormat = "invalid_date_format"
)

// ErrorEntry describes one detected problem in a row. Field names the row
// column; the type is normalized (lowercase, spaces to underscores).
type ErrorEntry struct {
	Field       string `json:"field"`
	ErrorType   string `json:"error_type"`
	Description string `json:"description"`
}

// DetectionResult is the per-row verdict after merging model findings with
// deterministic checks. Invariant: ErrorDetection == "error" exactly when
// Errors is non-empty.
type DetectionResult struct {
	RowNumber      int          `json:"row_number"`
	ErrorDetection string       `json:"error_detection"`
	Errors         []ErrorEntry `json:"errors"`
	Reasoning      string       `json:"reasoning"`
}

// HasErrors reports whether the result carries any error entries.
func (d *DetectionResult) HasErrors() bool {
	return len(d.Errors) > 0
}

// NormalizeErrorType canonicalizes an error type string: lowercase with
// spaces replaced by underscores. Unknown types pass through unchanged
// otherwise.
func NormalizeErrorType(errorType string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(errorType)), " ", "_")
}

// ErrorPatterns maps normalized error types to their catalog descriptions.
// Types outside the catalog are retained verbatim with a generic description.
var ErrorPatterns = map[string]string{
	"missing_value":         "Field is empty or contains nan",
	"length_violation":      "Value length does not meet requirements",
	"nan_value":             "Contains nan instead of valid data",
	"typo":                  "Contains spelling errors or typos",
	"invalid_value":         "Value does not meet field requirements",
	"invalid_format":        "Format does not match requirements",
	"numeric_value_in_text": "Contains numbers where text is expected",
	"invalid_date_format":   "Date format does not match MM/DD/YYYY",
	"invalid_characters":    "Contains invalid or special characters",
}

// PatternDescription returns the catalog description for a normalized error
// type, or a generic fallback for types outside the catalog.
func PatternDescription(errorType string) string {
	if desc, ok := ErrorPatterns[errorType]; ok {
		return desc
	}
	return "Unspecified error type"
}

// DetectionSummary aggregates detection results across a run.
type DetectionSummary struct {
	TotalRowsAnalyzed   int            `json:"total_rows_analyzed"`
	RowsWithErrors      int            `json:"rows_with_errors"`
	ErrorRate           float64        `json:"error_rate"`
	ErrorTypesFrequency map[string]int `json:"error_types_frequency"`
	ErrorsByField       map[string]int `json:"errors_by_field"`
}

// DetectionReport is the persisted detection artifact.
type DetectionReport struct {
	Summary         DetectionSummary  `json:"summary"`
	DetailedResults []DetectionResult `json:"detailed_results"`
}

// Summarize computes a DetectionSummary over a set of results.
func Summarize(results []DetectionResult) DetectionSummary {
	summary := DetectionSummary{
		TotalRowsAnalyzed:   len(results),
		ErrorTypesFrequency: make(map[string]int),
		ErrorsByField:       make(map[string]int),
	}

	for _, result := range results {
		if result.ErrorDetection != VerdictError {
			continue
		}
		summary.RowsWithErrors++
		for _, entry := range result.Errors {
			summary.ErrorTypesFrequency[entry.ErrorType]++
			summary.ErrorsByField[entry.Field]++
		}
	}

	if summary.TotalRowsAnalyzed > 0 {
		summary.ErrorRate = float64(summary.RowsWithErrors) / float64(summary.TotalRowsAnalyzed) * 100
	}

	return summary
}
