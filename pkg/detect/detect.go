// pkg/detect/detect.go
package detect

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/care-data/facility-audit/pkg/config"
	"github.com/care-data/facility-audit/pkg/dataset"
	"github.com/care-data/facility-audit/pkg/llm"
	"github.com/care-data/facility-audit/pkg/model"
	"github.com/care-data/facility-audit/pkg/prompt"
	"github.com/care-data/facility-audit/pkg/rules"
)

// Detector runs the row-by-row validation pass: each row is judged by the
// model and by the deterministic field rules, and the two verdicts are
// merged into one result per row.
type Detector struct {
	generator llm.Generator
	cfg       *config.Config
	logger    *zap.Logger
	tracker   *FailureTracker
}

// NewDetector creates a Detector.
func NewDetector(generator llm.Generator, cfg *config.Config, logger *zap.Logger) *Detector {
	return &Detector{
		generator: generator,
		cfg:       cfg,
		logger:    logger,
		tracker:   NewFailureTracker(logger),
	}
}

// WithFailureTracker replaces the default failure tracker.
func (d *Detector) WithFailureTracker(tracker *FailureTracker) *Detector {
	d.tracker = tracker
	return d
}

// Run analyzes every row of the dataset and returns the full report. A row
// whose model call fails still produces a result; only a cancelled context
// or a sustained outage of the model server ends the run early.
func (d *Detector) Run(ctx context.Context, ds *dataset.Dataset) (*model.DetectionReport, error) {
	runID := uuid.New().String()
	logger := d.logger.With(zap.String("runID", runID))

	totalRows := len(ds.Rows)
	logger.Info("Starting detection run",
		zap.Int("totalRows", totalRows),
		zap.String("model", d.cfg.Model.Name))

	results := make([]model.DetectionResult, 0, totalRows)

	for i, row := range ds.Rows {
		rowNumber := i + 1

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("detection run cancelled at row %d: %w", rowNumber, ctx.Err())
		default:
		}

		result := d.detectRow(ctx, row, rowNumber)

		additional := rules.CheckRow(row)
		result = Merge(result, additional)

		results = append(results, result)

		logger.Info("Row analyzed",
			zap.Int("rowNumber", rowNumber),
			zap.String("verdict", result.ErrorDetection),
			zap.Int("errors", len(result.Errors)))

		if d.tracker.ShouldAbort() {
			return nil, fmt.Errorf("detection run aborted at row %d: %s",
				rowNumber, d.tracker.AbortReason())
		}
	}

	summary := model.Summarize(results)
	logger.Info("Detection run completed",
		zap.Int("totalRows", summary.TotalRowsAnalyzed),
		zap.Int("rowsWithErrors", summary.RowsWithErrors),
		zap.Float64("errorRate", summary.ErrorRate))

	return &model.DetectionReport{
		Summary:         summary,
		DetailedResults: results,
	}, nil
}

// detectRow sends one row to the model and folds any failure into the
// result instead of returning an error.
func (d *Detector) detectRow(ctx context.Context, row model.Row, rowNumber int) model.DetectionResult {
	raw, err := d.generator.Generate(ctx, llm.GenerateRequest{
		Prompt:    prompt.Detection(row, rowNumber),
		MaxTokens: d.cfg.Model.DetectionMaxTokens,
		Timeout:   d.cfg.Model.DetectionTimeout,
	})
	if err != nil {
		d.tracker.RecordProcessingFailure(rowNumber, err)
		return llm.ProcessingFailure(rowNumber, err)
	}

	result := llm.ParseDetection(rowNumber, raw)
	if isParseFailure(result) {
		d.tracker.RecordParseFailure(rowNumber, raw)
	} else {
		d.tracker.RecordSuccess()
	}
	return result
}

func isParseFailure(result model.DetectionResult) bool {
	for _, entry := range result.Errors {
		if entry.ErrorType == model.ErrorTypeParse {
			return true
		}
	}
	return false
}

// Merge folds the deterministic rule violations into the model's verdict.
// The merged verdict is derived from the combined error list, so a model
// reply whose verdict contradicts its own error list is repaired here and
// the invariant holds for every row: "error" exactly when errors exist.
func Merge(result model.DetectionResult, additional []model.ErrorEntry) model.DetectionResult {
	result.Errors = append(result.Errors, additional...)
	if len(result.Errors) > 0 {
		result.ErrorDetection = model.VerdictError
	} else {
		result.ErrorDetection = model.VerdictNoError
	}
	return result
}
