package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/care-data/facility-audit/pkg/model"
	"github.com/care-data/facility-audit/pkg/rules"
)

func sampleRow() model.Row {
	return model.Row{
		model.FieldFacilityID:   "100022",
		model.FieldFacilityName: "Mercy General Hospital",
		model.FieldAddress:      "1200 Main Street",
		model.FieldCity:         "Springfield",
		model.FieldState:        "IL",
		model.FieldZIP:          "62704",
		model.FieldCounty:       "Sangamon",
		model.FieldPhone:        "(217) 555-0143",
		model.FieldCondition:    "Heart Attack",
		model.FieldMeasureID:    "OP_1",
		model.FieldMeasureName:  "Median time to fibrinolysis",
		model.FieldScore:        "25",
		model.FieldSample:       "120",
		model.FieldFootnote:     "1",
		model.FieldStartDate:    "01/01/2023",
		model.FieldEndDate:      "12/31/2023",
	}
}

func TestDetectionPrompt(t *testing.T) {
	text := Detection(sampleRow(), 17)

	assert.Contains(t, text, "Facility ID: 100022 (6 chars)")
	assert.Contains(t, text, "Phone: (217) 555-0143 ((XXX) XXX-XXXX)")
	assert.Contains(t, text, "ZIP: 62704 (5 or 9 digits)")
	assert.Contains(t, text, `"row_number": 17,`)
	assert.Contains(t, text, `"error_detection": "no error"`)
	assert.Contains(t, text, `"error_detection": "error"`)
	assert.Contains(t, text, "'Not Available' is valid")
}

func TestDetectionPromptEmbedsAllColumns(t *testing.T) {
	row := sampleRow()
	text := Detection(row, 1)
	for _, field := range model.Header() {
		assert.Contains(t, text, row[field], "prompt should include the %s value", field)
	}
}

func TestCorrectionPrompt(t *testing.T) {
	errs := []model.ErrorEntry{{
		Field:       model.FieldPhone,
		ErrorType:   "invalid_format",
		Description: "Format does not match requirements",
	}}

	text := Correction(sampleRow(), errs, rules.FieldRules(), nil)

	assert.Contains(t, text, "CURRENT ERRORS FOUND:")
	assert.Contains(t, text, `"field": "Telephone Number"`)
	assert.Contains(t, text, "CURRENT ROW DATA:")
	assert.Contains(t, text, "FIELD RULES:")
	assert.Contains(t, text, "NEVER change the actual digits")
	assert.Contains(t, text, `"corrected_fields"`)
	assert.NotContains(t, text, "VERIFIED FACILITY INFORMATION")
}

func TestCorrectionPromptWithReference(t *testing.T) {
	ref := &model.FacilityReference{
		FacilityName: "Mercy General Hospital",
		City:         "Springfield",
		State:        "IL",
		ZIP:          "62704",
	}

	text := Correction(sampleRow(), nil, rules.FieldRules(), ref)

	idx := strings.Index(text, "VERIFIED FACILITY INFORMATION (USE THESE EXACT VALUES):")
	assert.Greater(t, idx, 0)
	assert.Contains(t, text[idx:], `"facility_name": "Mercy General Hospital"`)
	assert.Contains(t, text[idx:], `"state": "IL"`)
}
