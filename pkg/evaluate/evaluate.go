// pkg/evaluate/evaluate.go
package evaluate

import (
	"github.com/care-data/facility-audit/pkg/dataset"
	"github.com/care-data/facility-audit/pkg/model"
)

// DetectionScores are the binary classification metrics of a detection
// run judged against ground truth.
type DetectionScores struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Accuracy  float64 `json:"accuracy"`

	TruePositives  int `json:"true_positives"`
	FalsePositives int `json:"false_positives"`
	TrueNegatives  int `json:"true_negatives"`
	FalseNegatives int `json:"false_negatives"`
}

// Evaluation bundles both halves of a pipeline benchmark.
type Evaluation struct {
	Detection          DetectionScores `json:"detection"`
	CorrectionAccuracy float64         `json:"correction_accuracy"`
}

// Detection scores a detection report against the ground-truth dataset. A
// row counts as actually erroneous when any of its ground-truth cells is
// missing; it counts as detected when its verdict is exactly "error", so a
// "no error" verdict is never mistaken for a positive.
func Detection(report *model.DetectionReport, truth *dataset.Dataset) DetectionScores {
	n := len(report.DetailedResults)
	if len(truth.Rows) < n {
		n = len(truth.Rows)
	}

	var scores DetectionScores
	for i := 0; i < n; i++ {
		actual := rowHasMissing(truth.Rows[i], truth.Header)
		detected := report.DetailedResults[i].ErrorDetection == model.VerdictError

		switch {
		case actual && detected:
			scores.TruePositives++
		case !actual && detected:
			scores.FalsePositives++
		case actual && !detected:
			scores.FalseNegatives++
		default:
			scores.TrueNegatives++
		}
	}

	scores.Precision = ratio(scores.TruePositives, scores.TruePositives+scores.FalsePositives)
	scores.Recall = ratio(scores.TruePositives, scores.TruePositives+scores.FalseNegatives)
	if scores.Precision+scores.Recall > 0 {
		scores.F1 = 2 * scores.Precision * scores.Recall / (scores.Precision + scores.Recall)
	}
	scores.Accuracy = ratio(scores.TruePositives+scores.TrueNegatives, n)

	return scores
}

// Correction computes cell-wise accuracy of the corrected dataset against
// ground truth. Missing cells on either side compare as the sentinel
// "missing", so a blank corrected cell matches a blank truth cell.
func Correction(corrected, truth *dataset.Dataset) float64 {
	totalCells := len(truth.Rows) * len(truth.Header)
	if totalCells == 0 {
		return 0
	}

	matching := 0
	for i, truthRow := range truth.Rows {
		var correctedRow model.Row
		if i < len(corrected.Rows) {
			correctedRow = corrected.Rows[i]
		}
		for _, field := range truth.Header {
			if normalizeCell(truthRow[field]) == normalizeCell(correctedRow[field]) {
				matching++
			}
		}
	}

	return float64(matching) / float64(totalCells)
}

// Run scores both detection and correction in one call.
func Run(report *model.DetectionReport, corrected, truth *dataset.Dataset) Evaluation {
	return Evaluation{
		Detection:          Detection(report, truth),
		CorrectionAccuracy: Correction(corrected, truth),
	}
}

func rowHasMissing(row model.Row, header []string) bool {
	for _, field := range header {
		if model.IsMissing(row[field]) {
			return true
		}
	}
	return false
}

func normalizeCell(value string) string {
	if model.IsMissing(value) {
		return "missing"
	}
	return value
}

func ratio(numerator, denominator int) float64 {
	if denominator == 0 {
		return 0
	}
	return float64(numerator) / float64(denominator)
}
