// pkg/llm/parse.go
package llm

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/care-data/facility-audit/pkg/model"
)

// rawDetection mirrors the JSON object the detection prompt asks for. The
// model frequently omits fields or misnumbers rows, so every field is
// optional and the caller's row number always wins.
type rawDetection struct {
	ErrorDetection *string           `json:"error_detection"`
	Errors         []model.ErrorEntry `json:"errors"`
	Reasoning      *string           `json:"reasoning"`
}

// ParseDetection turns the assembled model reply into a DetectionResult.
//
// A parseable reply is normalized: a missing error_detection defaults to
// "error", missing errors to an empty list, missing reasoning to a stock
// string. An unparseable reply becomes a parse_error result that keeps the
// raw text in the reasoning field so nothing the model said is lost.
func ParseDetection(rowNumber int, raw string) model.DetectionResult {
	var parsed rawDetection
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return model.DetectionResult{
			RowNumber:      rowNumber,
			ErrorDetection: model.VerdictError,
			Errors: []model.ErrorEntry{{
				Field:       "general",
				ErrorType:   model.ErrorTypeParse,
				Description: "Failed to parse model response",
			}},
			Reasoning: strings.TrimSpace(raw),
		}
	}

	verdict := model.VerdictError
	if parsed.ErrorDetection != nil {
		verdict = *parsed.ErrorDetection
	}

	errors := parsed.Errors
	if errors == nil {
		errors = []model.ErrorEntry{}
	}

	reasoning := "No specific reasoning provided"
	if parsed.Reasoning != nil {
		reasoning = *parsed.Reasoning
	}

	return model.DetectionResult{
		RowNumber:      rowNumber,
		ErrorDetection: verdict,
		Errors:         errors,
		Reasoning:      reasoning,
	}
}

// ProcessingFailure builds the DetectionResult recorded when the request
// itself failed, so a transport error never aborts a run.
func ProcessingFailure(rowNumber int, err error) model.DetectionResult {
	return model.DetectionResult{
		RowNumber:      rowNumber,
		ErrorDetection: model.VerdictError,
		Errors: []model.ErrorEntry{{
			Field:       "general",
			ErrorType:   model.ErrorTypeProcessing,
			Description: err.Error(),
		}},
		Reasoning: "Error processing row: " + err.Error(),
	}
}

// CorrectionDetail is the model's account of one corrected field.
type CorrectionDetail struct {
	Original     string `json:"original"`
	Corrected    string `json:"corrected"`
	Reason       string `json:"reason"`
	ErrorPattern string `json:"error_pattern"`
}

// CorrectionPayload is the parsed reply of a correction prompt.
type CorrectionPayload struct {
	CorrectedFields   map[string]string
	CorrectionDetails map[string]CorrectionDetail
}

// rawCorrection tolerates non-string corrected values (the model
// occasionally emits bare numbers for Footnote or Score).
type rawCorrection struct {
	CorrectedFields   map[string]any              `json:"corrected_fields"`
	CorrectionDetails map[string]CorrectionDetail `json:"correction_details"`
}

// ParseCorrection decodes a correction reply. Corrected values are coerced
// to strings; integral numbers lose their decimal point so "1" stays "1".
func ParseCorrection(raw string) (*CorrectionPayload, error) {
	var parsed rawCorrection
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, err
	}

	payload := &CorrectionPayload{
		CorrectedFields:   make(map[string]string, len(parsed.CorrectedFields)),
		CorrectionDetails: parsed.CorrectionDetails,
	}
	if payload.CorrectionDetails == nil {
		payload.CorrectionDetails = map[string]CorrectionDetail{}
	}

	for field, value := range parsed.CorrectedFields {
		payload.CorrectedFields[field] = coerceString(value)
	}

	return payload, nil
}

func coerceString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}
