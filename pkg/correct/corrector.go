// pkg/correct/corrector.go
package correct

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/care-data/facility-audit/pkg/config"
	"github.com/care-data/facility-audit/pkg/dataset"
	"github.com/care-data/facility-audit/pkg/llm"
	"github.com/care-data/facility-audit/pkg/model"
	"github.com/care-data/facility-audit/pkg/prompt"
	"github.com/care-data/facility-audit/pkg/rules"
)

// Corrector repairs the rows a detection run flagged. Flagged rows are
// fanned out to a small worker pool; each worker asks the model for
// corrections, vets them locally, and the results are written back to a
// copy of the dataset after all workers finish.
type Corrector struct {
	generator  llm.Generator
	cfg        *config.Config
	logger     *zap.Logger
	fieldRules map[string]model.FieldRule
}

// NewCorrector creates a Corrector.
func NewCorrector(generator llm.Generator, cfg *config.Config, logger *zap.Logger) *Corrector {
	return &Corrector{
		generator:  generator,
		cfg:        cfg,
		logger:     logger,
		fieldRules: rules.FieldRules(),
	}
}

// rowJob is one flagged row handed to a worker.
type rowJob struct {
	rowNumber int
	row       model.Row
	errors    []model.ErrorEntry
}

// rowResult is what a worker produced for one row. A row whose model call
// failed comes back with no corrections so the run can keep going.
type rowResult struct {
	rowNumber   int
	corrections map[string]string
	records     []model.CorrectionRecord
	skipped     int
}

// Run corrects every flagged row and returns the corrected dataset copy
// plus the full correction summary. The source dataset is not modified.
func (c *Corrector) Run(ctx context.Context, ds *dataset.Dataset, report *model.DetectionReport, sourcePath string) (*dataset.Dataset, *model.CorrectionSummary, error) {
	corrected := ds.Clone()
	resolver := NewResolver(ds)

	jobs := c.buildJobs(ds, report)
	poolSize := c.poolSize(len(jobs))

	c.logger.Info("Starting correction run",
		zap.Int("flaggedRows", len(jobs)),
		zap.Int("workers", poolSize))

	jobCh := make(chan rowJob)
	resultCh := make(chan rowResult)

	var wg sync.WaitGroup
	for id := 0; id < poolSize; id++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			logger := c.logger.With(zap.Int("workerID", id))
			for job := range jobCh {
				select {
				case resultCh <- c.processJob(ctx, job, resolver, logger):
				case <-ctx.Done():
					return
				}
			}
		}(id)
	}

	go func() {
		defer close(jobCh)
		for _, job := range jobs {
			select {
			case jobCh <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	byRow := make(map[int]rowResult, len(jobs))
	for result := range resultCh {
		byRow[result.rowNumber] = result
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	summary := c.applyResults(corrected, jobs, byRow, sourcePath, len(ds.Rows))

	c.logger.Info("Correction run completed",
		zap.Int("rowsCorrected", summary.Metadata.RowsCorrected),
		zap.Int("totalCorrections", summary.Metadata.TotalCorrections),
		zap.Int("skippedFields", summary.Metadata.SkippedFields))

	return corrected, summary, nil
}

// buildJobs selects the flagged rows and normalizes their error entries so
// the correction prompt always carries lowercase error types with catalog
// descriptions.
func (c *Corrector) buildJobs(ds *dataset.Dataset, report *model.DetectionReport) []rowJob {
	var jobs []rowJob
	for _, result := range report.DetailedResults {
		if result.ErrorDetection == model.VerdictNoError || len(result.Errors) == 0 {
			continue
		}
		row := ds.Row(result.RowNumber)
		if row == nil {
			c.logger.Warn("Detection result references a row outside the dataset",
				zap.Int("rowNumber", result.RowNumber))
			continue
		}

		normalized := make([]model.ErrorEntry, len(result.Errors))
		for i, entry := range result.Errors {
			errorType := model.NormalizeErrorType(entry.ErrorType)
			normalized[i] = model.ErrorEntry{
				Field:       entry.Field,
				ErrorType:   errorType,
				Description: model.PatternDescription(errorType),
			}
		}

		jobs = append(jobs, rowJob{
			rowNumber: result.RowNumber,
			row:       row,
			errors:    normalized,
		})
	}
	return jobs
}

func (c *Corrector) poolSize(jobCount int) int {
	size := c.cfg.WorkerPoolSize
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
		if size > 4 {
			size = 4
		}
	}
	if jobCount > 0 && size > jobCount {
		size = jobCount
	}
	if size < 1 {
		size = 1
	}
	return size
}

// processJob asks the model to repair one row and vets its answer.
func (c *Corrector) processJob(ctx context.Context, job rowJob, resolver *Resolver, logger *zap.Logger) rowResult {
	result := rowResult{rowNumber: job.rowNumber, corrections: make(map[string]string)}

	ref := resolver.Resolve(job.row[model.FieldFacilityID])
	promptText := prompt.Correction(job.row, job.errors, c.fieldRules, ref)

	raw, err := c.generator.Generate(ctx, llm.GenerateRequest{
		Prompt:    promptText,
		MaxTokens: c.cfg.Model.CorrectionMaxTokens,
		Timeout:   c.cfg.Model.CorrectionTimeout,
	})
	if err != nil {
		logger.Warn("Correction call failed for row",
			zap.Int("rowNumber", job.rowNumber),
			zap.Error(err))
		return result
	}

	payload, err := llm.ParseCorrection(raw)
	if err != nil {
		logger.Warn("Unparseable correction reply for row",
			zap.Int("rowNumber", job.rowNumber),
			zap.Error(err))
		return result
	}

	for field, value := range payload.CorrectedFields {
		original, known := job.row[field]
		if !known {
			logger.Warn("Model corrected a field the dataset does not have",
				zap.Int("rowNumber", job.rowNumber),
				zap.String("field", field))
			result.skipped++
			continue
		}

		vetted, ok := c.vetCorrection(field, original, value)
		if !ok {
			logger.Warn("Rejected correction that changed protected content",
				zap.Int("rowNumber", job.rowNumber),
				zap.String("field", field),
				zap.String("original", original),
				zap.String("proposed", value))
			result.skipped++
			continue
		}

		detail := payload.CorrectionDetails[field]
		errorPattern := detail.ErrorPattern
		if errorPattern == "" {
			errorPattern = "unknown"
		}
		reason := detail.Reason
		if reason == "" {
			reason = "Corrected based on field rules and requirements"
		}

		result.corrections[field] = vetted
		result.records = append(result.records, model.CorrectionRecord{
			RowNumber:        job.rowNumber,
			Field:            field,
			OriginalValue:    original,
			CorrectedValue:   vetted,
			ErrorType:        detectedErrorType(job.errors, field),
			ErrorPattern:     errorPattern,
			ErrorDescription: model.PatternDescription(errorPattern),
			CorrectionReason: reason,
		})
	}

	// A flagged field the model never mentioned is a skipped correction
	// too; it must show up in the logs and the summary counter rather
	// than vanish.
	seen := make(map[string]bool, len(job.errors))
	for _, entry := range job.errors {
		field := entry.Field
		if seen[field] {
			continue
		}
		seen[field] = true
		if _, known := job.row[field]; !known {
			continue
		}
		if _, mentioned := payload.CorrectedFields[field]; mentioned {
			continue
		}
		logger.Warn("Model left a flagged field uncorrected",
			zap.Int("rowNumber", job.rowNumber),
			zap.String("field", field))
		result.skipped++
	}

	return result
}

// vetCorrection enforces the content-preserving rules the prompt states:
// a phone correction must keep the original digits and a date correction
// must keep the original date. A proposal that breaks the rule is replaced
// with the locally formatted original when one exists, otherwise dropped.
func (c *Corrector) vetCorrection(field, original, proposed string) (string, bool) {
	switch field {
	case model.FieldPhone:
		if model.IsMissing(original) || SamePhoneDigits(original, proposed) {
			return proposed, true
		}
		if formatted, ok := FormatPhone(original); ok {
			return formatted, true
		}
		return "", false

	case model.FieldStartDate, model.FieldEndDate:
		if model.IsMissing(original) || SameDate(original, proposed) {
			return proposed, true
		}
		if formatted, ok := FormatDate(original); ok {
			return formatted, true
		}
		if _, parses := rules.ParseDate(original); !parses && proposed == "Not Available" {
			return proposed, true
		}
		return "", false

	default:
		return proposed, true
	}
}

// detectedErrorType finds the detection error type for a corrected field.
func detectedErrorType(errors []model.ErrorEntry, field string) string {
	for _, entry := range errors {
		if entry.Field == field {
			return entry.ErrorType
		}
	}
	return "unknown"
}

// applyResults writes the vetted corrections back to the dataset copy and
// assembles the summary. Records are emitted in ascending row order so the
// output is stable regardless of worker scheduling.
func (c *Corrector) applyResults(corrected *dataset.Dataset, jobs []rowJob, byRow map[int]rowResult, sourcePath string, totalRows int) *model.CorrectionSummary {
	rowNumbers := make([]int, 0, len(byRow))
	for rowNumber := range byRow {
		rowNumbers = append(rowNumbers, rowNumber)
	}
	sort.Ints(rowNumbers)

	var records []model.CorrectionRecord
	rowsCorrected := 0
	skipped := 0

	for _, rowNumber := range rowNumbers {
		result := byRow[rowNumber]
		skipped += result.skipped
		if len(result.corrections) == 0 {
			continue
		}

		row := corrected.Row(rowNumber)
		for field, value := range result.corrections {
			row[field] = value
		}
		rowsCorrected++
		records = append(records, result.records...)
	}

	// Every detected error type appears in the tally, corrected or not.
	errorTypes := make(map[string]int)
	for _, job := range jobs {
		for _, entry := range job.errors {
			if _, ok := errorTypes[entry.ErrorType]; !ok {
				errorTypes[entry.ErrorType] = 0
			}
		}
	}
	byField := make(map[string]int)
	for _, record := range records {
		errorTypes[record.ErrorType]++
		byField[record.Field]++
	}

	return &model.CorrectionSummary{
		Metadata: model.CorrectionMetadata{
			OriginalFile:     sourcePath,
			CorrectionDate:   time.Now().UTC(),
			TotalRows:        totalRows,
			RowsCorrected:    rowsCorrected,
			TotalCorrections: len(records),
			SkippedFields:    skipped,
		},
		ErrorTypes:         errorTypes,
		CorrectionsByField: byField,
		Corrections:        records,
	}
}
