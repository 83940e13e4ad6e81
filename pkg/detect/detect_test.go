package detect

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/care-data/facility-audit/pkg/config"
	"github.com/care-data/facility-audit/pkg/dataset"
	"github.com/care-data/facility-audit/pkg/llm"
	"github.com/care-data/facility-audit/pkg/model"
)

// fakeGenerator returns canned replies keyed by call order.
type fakeGenerator struct {
	replies []string
	errs    []error
	calls   int
}

func (f *fakeGenerator) Generate(_ context.Context, _ llm.GenerateRequest) (string, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	return `{"error_detection": "no error", "errors": [], "reasoning": "No errors found"}`, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Model: &config.ModelConfig{
			Name:               "neural-chat",
			DetectionMaxTokens: 500,
			DetectionTimeout:   time.Second,
		},
	}
}

func testDataset(rows ...model.Row) *dataset.Dataset {
	return &dataset.Dataset{Header: model.Header(), Rows: rows}
}

func cleanRow() model.Row {
	row := make(model.Row, len(model.Header()))
	for _, field := range model.Header() {
		row[field] = "x"
	}
	row[model.FieldStartDate] = "01/01/2023"
	row[model.FieldEndDate] = "12/31/2023"
	return row
}

func TestMergeForcesErrorVerdict(t *testing.T) {
	clean := model.DetectionResult{
		RowNumber:      1,
		ErrorDetection: model.VerdictNoError,
		Errors:         []model.ErrorEntry{},
	}
	extra := []model.ErrorEntry{{Field: model.FieldZIP, ErrorType: model.ErrorTypeLength}}

	merged := Merge(clean, extra)
	assert.Equal(t, model.VerdictError, merged.ErrorDetection)
	assert.Len(t, merged.Errors, 1)
}

func TestMergeKeepsModelErrors(t *testing.T) {
	result := model.DetectionResult{
		RowNumber:      2,
		ErrorDetection: model.VerdictError,
		Errors:         []model.ErrorEntry{{Field: model.FieldState, ErrorType: "invalid_value"}},
	}
	extra := []model.ErrorEntry{{Field: model.FieldStartDate, ErrorType: model.ErrorTypeDate}}

	merged := Merge(result, extra)
	assert.Len(t, merged.Errors, 2, "rule violations add to the model's findings")
}

func TestMergeNoOpWithoutViolations(t *testing.T) {
	clean := model.DetectionResult{RowNumber: 3, ErrorDetection: model.VerdictNoError}
	merged := Merge(clean, nil)
	assert.Equal(t, model.VerdictNoError, merged.ErrorDetection)
}

func TestMergeRepairsInconsistentVerdict(t *testing.T) {
	// A reply can claim "no error" while listing errors, or "error" with an
	// empty list. The merged verdict follows the error list either way.
	listed := model.DetectionResult{
		RowNumber:      4,
		ErrorDetection: model.VerdictNoError,
		Errors:         []model.ErrorEntry{{Field: model.FieldState, ErrorType: "invalid_value"}},
	}
	merged := Merge(listed, nil)
	assert.Equal(t, model.VerdictError, merged.ErrorDetection)

	empty := model.DetectionResult{
		RowNumber:      5,
		ErrorDetection: model.VerdictError,
		Errors:         []model.ErrorEntry{},
	}
	merged = Merge(empty, nil)
	assert.Equal(t, model.VerdictNoError, merged.ErrorDetection)
}

func TestRunCleanDataset(t *testing.T) {
	gen := &fakeGenerator{}
	detector := NewDetector(gen, testConfig(), zap.NewNop())

	report, err := detector.Run(context.Background(), testDataset(cleanRow(), cleanRow()))
	require.NoError(t, err)

	assert.Equal(t, 2, report.Summary.TotalRowsAnalyzed)
	assert.Equal(t, 0, report.Summary.RowsWithErrors)
	assert.Equal(t, 0.0, report.Summary.ErrorRate)
	assert.Equal(t, 1, report.DetailedResults[0].RowNumber)
	assert.Equal(t, 2, report.DetailedResults[1].RowNumber)
}

func TestRunFlagsModelFindings(t *testing.T) {
	row := cleanRow()
	row[model.FieldZIP] = "123456789X"

	gen := &fakeGenerator{replies: []string{
		`{"error_detection": "error",
		  "errors": [{"field": "ZIP Code", "error_type": "invalid_format", "description": "ZIP must be 5 or 9 digits"}],
		  "reasoning": "ZIP contains a letter"}`,
	}}
	detector := NewDetector(gen, testConfig(), zap.NewNop())

	report, err := detector.Run(context.Background(), testDataset(row))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Summary.RowsWithErrors)
	assert.Equal(t, 100.0, report.Summary.ErrorRate)
	assert.Equal(t, 1, report.Summary.ErrorsByField[model.FieldZIP])
	assert.Equal(t, 1, report.Summary.ErrorTypesFrequency["invalid_format"])
}

func TestRunMergesDeterministicViolations(t *testing.T) {
	row := cleanRow()
	row[model.FieldState] = "ILL"

	// Model sees nothing wrong; the length rule still flags the row.
	gen := &fakeGenerator{}
	detector := NewDetector(gen, testConfig(), zap.NewNop())

	report, err := detector.Run(context.Background(), testDataset(row))
	require.NoError(t, err)

	result := report.DetailedResults[0]
	assert.Equal(t, model.VerdictError, result.ErrorDetection)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, model.ErrorTypeLength, result.Errors[0].ErrorType)
	assert.Equal(t, 1, report.Summary.RowsWithErrors)
}

func TestRunVerdictMatchesErrorList(t *testing.T) {
	// After merging, a row reads "error" exactly when its error list is
	// non-empty.
	badDate := cleanRow()
	badDate[model.FieldEndDate] = "12/31/2150"

	gen := &fakeGenerator{replies: []string{
		`{"error_detection": "no error", "errors": [], "reasoning": "No errors found"}`,
		`{"error_detection": "no error", "errors": [], "reasoning": "No errors found"}`,
	}}
	detector := NewDetector(gen, testConfig(), zap.NewNop())

	report, err := detector.Run(context.Background(), testDataset(cleanRow(), badDate))
	require.NoError(t, err)

	for _, result := range report.DetailedResults {
		if result.ErrorDetection == model.VerdictError {
			assert.NotEmpty(t, result.Errors)
		} else {
			assert.Empty(t, result.Errors)
		}
	}
}

func TestRunCountsRowWithInconsistentVerdict(t *testing.T) {
	gen := &fakeGenerator{replies: []string{
		`{"error_detection": "no error",
		  "errors": [{"field": "State", "error_type": "invalid_value", "description": "not a state code"}],
		  "reasoning": "contradictory reply"}`,
	}}
	detector := NewDetector(gen, testConfig(), zap.NewNop())

	report, err := detector.Run(context.Background(), testDataset(cleanRow()))
	require.NoError(t, err)

	result := report.DetailedResults[0]
	assert.Equal(t, model.VerdictError, result.ErrorDetection)
	assert.Equal(t, 1, report.Summary.RowsWithErrors)
	assert.Equal(t, 1, report.Summary.ErrorTypesFrequency["invalid_value"])
}

func TestRunSurvivesTransportFailure(t *testing.T) {
	gen := &fakeGenerator{errs: []error{errors.New("connection refused")}}
	detector := NewDetector(gen, testConfig(), zap.NewNop())

	report, err := detector.Run(context.Background(), testDataset(cleanRow(), cleanRow()))
	require.NoError(t, err)

	first := report.DetailedResults[0]
	assert.Equal(t, model.VerdictError, first.ErrorDetection)
	require.Len(t, first.Errors, 1)
	assert.Equal(t, model.ErrorTypeProcessing, first.Errors[0].ErrorType)

	second := report.DetailedResults[1]
	assert.Equal(t, model.VerdictNoError, second.ErrorDetection)
}

func TestRunAbortsOnSustainedOutage(t *testing.T) {
	errs := make([]error, 20)
	for i := range errs {
		errs[i] = errors.New("connection refused")
	}
	rows := make([]model.Row, 20)
	for i := range rows {
		rows[i] = cleanRow()
	}

	gen := &fakeGenerator{errs: errs}
	detector := NewDetector(gen, testConfig(), zap.NewNop()).
		WithFailureTracker(NewFailureTracker(zap.NewNop()).WithMaxConsecutive(3))

	_, err := detector.Run(context.Background(), testDataset(rows...))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "consecutive model call failures")
	assert.Equal(t, 3, gen.calls)
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	detector := NewDetector(&fakeGenerator{}, testConfig(), zap.NewNop())
	_, err := detector.Run(ctx, testDataset(cleanRow()))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFailureTrackerCounts(t *testing.T) {
	tracker := NewFailureTracker(zap.NewNop())

	tracker.RecordProcessingFailure(1, errors.New("boom"))
	tracker.RecordParseFailure(2, "garbage")
	tracker.RecordProcessingFailure(3, errors.New("boom"))
	tracker.RecordSuccess()

	parse, processing := tracker.Counts()
	assert.Equal(t, 1, parse)
	assert.Equal(t, 2, processing)
	assert.False(t, tracker.ShouldAbort())
	assert.Len(t, tracker.Samples(), 3)
}

func TestReportRoundTrip(t *testing.T) {
	row := cleanRow()
	row[model.FieldCity] = "Spring4field"

	gen := &fakeGenerator{replies: []string{fmt.Sprintf(
		`{"error_detection": "error",
		  "errors": [{"field": %q, "error_type": "numeric_value_in_text", "description": "digit in city name"}],
		  "reasoning": "city contains a digit"}`, model.FieldCity)}}
	detector := NewDetector(gen, testConfig(), zap.NewNop())

	report, err := detector.Run(context.Background(), testDataset(row))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, SaveReport(report, path))

	loaded, err := LoadReport(path)
	require.NoError(t, err)
	assert.Equal(t, report.Summary, loaded.Summary)
	assert.Equal(t, report.DetailedResults, loaded.DetailedResults)
}
