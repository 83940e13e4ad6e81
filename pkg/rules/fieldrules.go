// pkg/rules/fieldrules.go
package rules

import "github.com/care-data/facility-audit/pkg/model"

// FieldRules returns the per-column constraints serialized into the
// correction prompt. The table is static; callers must not mutate it.
func FieldRules() map[string]model.FieldRule {
	return fieldRules
}

var fieldRules = map[string]model.FieldRule{
	model.FieldFacilityID: {
		Type:      "string",
		MinLength: 6,
		MaxLength: 6,
		Required:  true,
		Format:    "alphanumeric",
	},
	model.FieldFacilityName: {
		Type:     "string",
		Required: true,
		Format:   "text",
	},
	model.FieldAddress: {
		Type:     "string",
		Required: true,
		Format:   "address",
	},
	model.FieldCity: {
		Type:      "string",
		Required:  true,
		Format:    "text",
		NoNumbers: true,
	},
	model.FieldState: {
		Type:     "string",
		Length:   2,
		Required: true,
		Format:   "state_code",
	},
	model.FieldZIP: {
		Type:         "string",
		Required:     true,
		Format:       "zip",
		ValidLengths: []int{5, 9},
	},
	model.FieldCounty: {
		Type:     "string",
		Required: true,
		Format:   "text",
	},
	model.FieldPhone: {
		Type:     "string",
		Required: true,
		Format:   "phone",
		Pattern:  `\(\d{3}\) \d{3}-\d{4}`,
	},
	model.FieldCondition: {
		Type:     "string",
		Required: true,
		Format:   "medical_term",
	},
	model.FieldMeasureID: {
		Type:     "string",
		Required: true,
		Format:   "measure_id",
	},
	model.FieldMeasureName: {
		Type:     "string",
		Required: true,
		Format:   "text",
	},
	model.FieldScore: {
		Type:         "string",
		Required:     true,
		Format:       "score",
		ValidFormats: []string{"numeric", "Not Available"},
	},
	model.FieldSample: {
		Type:         "string",
		Required:     true,
		Format:       "sample",
		ValidFormats: []string{"numeric", "Not Available"},
	},
	model.FieldFootnote: {
		Type:     "numeric",
		Required: false,
		Format:   "numeric",
	},
	model.FieldStartDate: {
		Type:     "string",
		Required: true,
		Format:   "date",
		Pattern:  `\d{2}/\d{2}/\d{4}`,
	},
	model.FieldEndDate: {
		Type:     "string",
		Required: true,
		Format:   "date",
		Pattern:  `\d{2}/\d{2}/\d{4}`,
	},
}
