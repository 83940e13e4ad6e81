// pkg/model/row.go
package model

// Canonical field names for the healthcare facility dataset.
const (
	FieldFacilityID   = "Facility ID"
	FieldFacilityName = "Facility Name"
	FieldAddress      = "Address"
	FieldCity         = "City/Town"
	FieldState        = "State"
	FieldZIP          = "ZIP Code"
	FieldCounty       = "County/Parish"
	FieldPhone        = "Telephone Number"
	FieldCondition    = "Condition"
	FieldMeasureID    = "Measure ID"
	FieldMeasureName  = "Measure Name"
	FieldScore        = "Score"
	FieldSample       = "Sample"
	FieldFootnote     = "Footnote"
	FieldStartDate    = "Start Date"
	FieldEndDate      = "End Date"
)

// Header returns the dataset column order. Callers must not mutate the
// returned slice.
func Header() []string {
	return header
}

var header = []string{
	FieldFacilityID,
	FieldFacilityName,
	FieldAddress,
	FieldCity,
	FieldState,
	FieldZIP,
	FieldCounty,
	FieldPhone,
	FieldCondition,
	FieldMeasureID,
	FieldMeasureName,
	FieldScore,
	FieldSample,
	FieldFootnote,
	FieldStartDate,
	FieldEndDate,
}

// FacilityFields lists the facility-descriptive columns that must agree for
// rows sharing a Facility ID. Order matters: it is the dedup tuple used by
// the reference resolver.
func FacilityFields() []string {
	return facilityFields
}

var facilityFields = []string{
	FieldFacilityName,
	FieldAddress,
	FieldCity,
	FieldState,
	FieldZIP,
	FieldCounty,
	FieldPhone,
}

// Row is one dataset record: field name -> raw string value. Rows are
// identified by their 1-based position in the dataset and are only mutated
// through the correction pipeline.
type Row map[string]string

// Get returns the raw value for a field, or "" if the field is absent.
func (r Row) Get(field string) string {
	return r[field]
}

// Clone returns an independent copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// IsMissing reports whether a raw cell value represents missing data.
// "Not Available" is a valid value in this dataset, not a gap.
func IsMissing(value string) bool {
	switch value {
	case "", "nan", "NaN", "null", "NULL":
		return true
	}
	return false
}
