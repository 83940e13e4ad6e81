// pkg/rules/rules.go
package rules

import (
	"fmt"
	"time"

	"github.com/care-data/facility-audit/pkg/model"
)

// maxFieldLengths holds the maximum permitted character count per column.
// Values beyond these lengths cannot come from the upstream registry and
// are flagged without consulting the model.
var maxFieldLengths = map[string]int{
	model.FieldFacilityID:   6,
	model.FieldFacilityName: 72,
	model.FieldAddress:      51,
	model.FieldCity:         20,
	model.FieldState:        2,
	model.FieldCounty:       25,
	model.FieldPhone:        14,
	model.FieldCondition:    35,
	model.FieldMeasureID:    19,
	model.FieldMeasureName:  168,
	model.FieldScore:        13,
	model.FieldSample:       13,
	model.FieldFootnote:     9,
}

// MaxFieldLength returns the length limit for a column and whether one is
// defined.
func MaxFieldLength(field string) (int, bool) {
	limit, ok := maxFieldLengths[field]
	return limit, ok
}

// CheckRow runs the deterministic validations over a row and returns one
// entry per violated rule. Missing values are never length-checked; a
// blank cell is a completeness problem, not a length problem.
func CheckRow(row model.Row) []model.ErrorEntry {
	var entries []model.ErrorEntry

	for field, limit := range maxFieldLengths {
		value, ok := row[field]
		if !ok || model.IsMissing(value) {
			continue
		}
		if len(value) > limit {
			entries = append(entries, model.ErrorEntry{
				Field:     field,
				ErrorType: model.ErrorTypeLength,
				Description: fmt.Sprintf("Value exceeds maximum length of %d characters (got %d)",
					limit, len(value)),
			})
		}
	}

	for _, field := range []string{model.FieldStartDate, model.FieldEndDate} {
		value, ok := row[field]
		if !ok || model.IsMissing(value) {
			continue
		}
		if entry := checkDate(field, value); entry != nil {
			entries = append(entries, *entry)
		}
	}

	return entries
}

// checkDate validates a date value. A value no known layout can parse is
// an invalid_date_format error; a parseable date outside the plausible
// reporting window (before 1900 or past next calendar year) is an
// invalid_date error. Layout alone is never flagged here, so an ISO date
// in range passes the deterministic pass.
func checkDate(field, value string) *model.ErrorEntry {
	parsed, ok := ParseDate(value)
	if !ok {
		return &model.ErrorEntry{
			Field:       field,
			ErrorType:   model.ErrorTypeDateFormat,
			Description: fmt.Sprintf("Value %q cannot be parsed as a calendar date", value),
		}
	}

	year := parsed.Year()
	if year < 1900 || year > time.Now().Year()+1 {
		return &model.ErrorEntry{
			Field:       field,
			ErrorType:   model.ErrorTypeDate,
			Description: fmt.Sprintf("Date year %d is outside the plausible range", year),
		}
	}

	return nil
}
