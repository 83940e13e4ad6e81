// pkg/prompt/prompt.go
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/care-data/facility-audit/pkg/model"
)

// Detection builds the per-row validation prompt. Each field carries a
// short hint describing its expected shape; the two response templates pin
// the JSON layout the reply parser expects.
func Detection(row model.Row, rowNumber int) string {
	var b strings.Builder

	b.WriteString("You are validating healthcare data. Check this row for ALL possible errors including:\n")
	b.WriteString("- Wrong formats (phone: (XXX) XXX-XXXX, ZIP: 5 or 9 digits)\n")
	b.WriteString("- Invalid values (state must be 2-letter code, dates must be MM/DD/YYYY)\n")
	b.WriteString("- Missing or 'nan' values (Note: 'Not Available' is valid)\n")
	b.WriteString("- Typos and misspellings\n")
	b.WriteString("- Invalid characters\n")
	b.WriteString("- Inconsistent formatting\n")
	b.WriteString("- Numbers in text fields\n")
	b.WriteString("- Text in numeric fields\n\n")

	b.WriteString("ROW DATA:\n")
	fmt.Fprintf(&b, "Facility ID: %s (6 chars)\n", row[model.FieldFacilityID])
	fmt.Fprintf(&b, "Facility Name: %s (check spelling)\n", row[model.FieldFacilityName])
	fmt.Fprintf(&b, "Address: %s (valid street address)\n", row[model.FieldAddress])
	fmt.Fprintf(&b, "City/Town: %s (no numbers)\n", row[model.FieldCity])
	fmt.Fprintf(&b, "State: %s (2-letter code)\n", row[model.FieldState])
	fmt.Fprintf(&b, "ZIP: %s (5 or 9 digits)\n", row[model.FieldZIP])
	fmt.Fprintf(&b, "County: %s (spelling)\n", row[model.FieldCounty])
	fmt.Fprintf(&b, "Phone: %s ((XXX) XXX-XXXX)\n", row[model.FieldPhone])
	fmt.Fprintf(&b, "Condition: %s (medical term)\n", row[model.FieldCondition])
	fmt.Fprintf(&b, "Measure ID: %s\n", row[model.FieldMeasureID])
	fmt.Fprintf(&b, "Measure Name: %s\n", row[model.FieldMeasureName])
	fmt.Fprintf(&b, "Score: %s ('Not Available' or numeric)\n", row[model.FieldScore])
	fmt.Fprintf(&b, "Sample: %s ('Not Available' or numeric)\n", row[model.FieldSample])
	fmt.Fprintf(&b, "Footnote: %s (numeric)\n", row[model.FieldFootnote])
	fmt.Fprintf(&b, "Start Date: %s (MM/DD/YYYY)\n", row[model.FieldStartDate])
	fmt.Fprintf(&b, "End Date: %s (MM/DD/YYYY)\n\n", row[model.FieldEndDate])

	fmt.Fprintf(&b, "If NO errors found, respond with: {\n")
	fmt.Fprintf(&b, "\"row_number\": %d,\n", rowNumber)
	b.WriteString("\"error_detection\": \"no error\",\n")
	b.WriteString("\"errors\": [],\n")
	b.WriteString("\"reasoning\": \"No errors found\"\n")
	b.WriteString("}\n\n")

	fmt.Fprintf(&b, "If errors found, respond with: {\n")
	fmt.Fprintf(&b, "\"row_number\": %d,\n", rowNumber)
	b.WriteString("\"error_detection\": \"error\",\n")
	b.WriteString(`"errors": [{"field": "field name", "error_type": "the type of the error", "description": "detailed description"}],` + "\n")
	b.WriteString("\"reasoning\": \"brief explanation\"\n")
	b.WriteString("}")

	return b.String()
}

const correctionRequirements = `
1. DATES - CRITICAL:
   - ONLY reformat dates to MM/DD/YYYY, NEVER change the actual date
   - Examples of correct formatting:
     * "2023/01/15" → "01/15/2023"
     * "15-01-2023" → "01/15/2023"
     * "2023-01-15" → "01/15/2023"
   - For missing/invalid dates: use "Not Available"

2. PHONE NUMBERS - CRITICAL:
   - ONLY add formatting (XXX) XXX-XXXX to existing digits
   - NEVER change the actual digits
   - Example: "6405587230" → "(640) 558-7230"
   - WRONG: Do not change "6405587230" to a different number

3. MISSING VALUES:
   For Facility-related fields (Name, Address, City/Town, State, ZIP, County/Parish, Phone):
   - IF verified facility info exists: Use those EXACT values
   - IF NO verified info: Use "Not Available"

   For other fields:
   - Score and Sample: Use "Not Available"
   - Footnote: Use "1"
   - Other fields: Use "Not Available"

4. Other Rules:
   - Fix obvious typos in text (e.g., "Helth" → "Health")
   - Format ZIP codes: Ensure 5-digit format
   - State codes: Use correct 2-letter format, preserve same state
   - City/Town and County: Remove only numbers, preserve names
   - Clean up invalid characters from all the column values
   - Medical terms: Fix only clear spelling errors`

const correctionResponseFormat = `
{
    "corrected_fields": {
        "field_name": "corrected_value"
    },
    "correction_details": {
        "field_name": {
            "original": "original_value",
            "corrected": "corrected_value",
            "reason": "explanation",
            "error_pattern": "pattern_name"
        }
    }
}`

// Correction builds the repair prompt for a row that detection flagged.
// errors must already be normalized (lowercase error types with pattern
// descriptions filled in). When a verified facility reference exists it is
// appended last so its values override anything else in the prompt.
func Correction(row model.Row, errors []model.ErrorEntry, rules map[string]model.FieldRule, ref *model.FacilityReference) string {
	errorsJSON, _ := json.MarshalIndent(errors, "", "  ")
	rowJSON, _ := json.MarshalIndent(row, "", "  ")
	rulesJSON, _ := json.MarshalIndent(rules, "", "  ")

	parts := []string{
		"You are a healthcare data correction expert. Fix the following data according to these rules:",
		fmt.Sprintf("\nCURRENT ERRORS FOUND:\n%s", errorsJSON),
		fmt.Sprintf("\nCURRENT ROW DATA:\n%s", rowJSON),
		fmt.Sprintf("\nFIELD RULES:\n%s", rulesJSON),
		fmt.Sprintf("\nCORRECTION REQUIREMENTS:%s", correctionRequirements),
		"\nFor each correction, provide:",
		"1. The field being corrected",
		"2. The original value",
		"3. The corrected value",
		"4. The reason for the correction based on the error pattern identified",
		fmt.Sprintf("\nRespond ONLY with a JSON object in this exact format:%s", correctionResponseFormat),
	}

	text := strings.Join(parts, "\n")

	if ref != nil {
		refJSON, _ := json.MarshalIndent(ref, "", "  ")
		text += fmt.Sprintf("\n\nVERIFIED FACILITY INFORMATION (USE THESE EXACT VALUES):\n%s", refJSON)
	}

	return text
}
