// pkg/model/correction.go
package model

import "time"

// FacilityReference is the verified "truth" record for a facility
// identifier, resolved from prior rows sharing the same Facility ID.
type FacilityReference struct {
	FacilityName string `json:"facility_name"`
	Address      string `json:"address"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZIP          string `json:"zip"`
	County       string `json:"county"`
	Phone        string `json:"phone"`
}

// Value returns the reference value for a dataset column name, or "" if the
// column is not a facility-descriptive field.
func (f *FacilityReference) Value(field string) string {
	switch field {
	case FieldFacilityName:
		return f.FacilityName
	case FieldAddress:
		return f.Address
	case FieldCity:
		return f.City
	case FieldState:
		return f.State
	case FieldZIP:
		return f.ZIP
	case FieldCounty:
		return f.County
	case FieldPhone:
		return f.Phone
	}
	return ""
}

// CorrectionRecord is the audit entry for one accepted field-level
// correction. Records are append-only and never mutated after creation.
type CorrectionRecord struct {
	RowNumber        int    `json:"row_number"`
	Field            string `json:"field"`
	OriginalValue    string `json:"original_value"`
	CorrectedValue   string `json:"corrected_value"`
	ErrorType        string `json:"error_type"`
	ErrorPattern     string `json:"error_pattern"`
	ErrorDescription string `json:"error_description"`
	CorrectionReason string `json:"correction_reason"`
}

// CorrectionMetadata describes one correction run.
type CorrectionMetadata struct {
	OriginalFile     string    `json:"original_file"`
	CorrectionDate   time.Time `json:"correction_date"`
	TotalRows        int       `json:"total_rows"`
	RowsCorrected    int       `json:"rows_corrected"`
	TotalCorrections int       `json:"total_corrections"`
	SkippedFields    int       `json:"skipped_fields"`
}

// CorrectionSummary is the persisted correction artifact: aggregate counts
// plus the full audit log.
type CorrectionSummary struct {
	Metadata           CorrectionMetadata `json:"metadata"`
	ErrorTypes         map[string]int     `json:"error_types"`
	CorrectionsByField map[string]int     `json:"corrections_by_field"`
	Corrections        []CorrectionRecord `json:"corrections"`
}

// FieldRule is the static per-field constraint record embedded in
// correction prompts. Zero-valued fields are omitted from the JSON the
// model sees.
type FieldRule struct {
	Type         string   `json:"type"`
	Required     bool     `json:"required"`
	Format       string   `json:"format,omitempty"`
	MinLength    int      `json:"min_length,omitempty"`
	MaxLength    int      `json:"max_length,omitempty"`
	Length       int      `json:"length,omitempty"`
	ValidLengths []int    `json:"valid_lengths,omitempty"`
	ValidFormats []string `json:"valid_formats,omitempty"`
	Pattern      string   `json:"pattern,omitempty"`
	NoNumbers    bool     `json:"no_numbers,omitempty"`
}
