package correct

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
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

// scriptedGenerator serves replies keyed by a marker found in the prompt.
type scriptedGenerator struct {
	mu      sync.Mutex
	replies map[string]string
	err     error
	prompts []string
}

func (g *scriptedGenerator) Generate(_ context.Context, req llm.GenerateRequest) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, req.Prompt)
	g.mu.Unlock()

	if g.err != nil {
		return "", g.err
	}
	for marker, reply := range g.replies {
		if strings.Contains(req.Prompt, marker) {
			return reply, nil
		}
	}
	return `{"corrected_fields": {}, "correction_details": {}}`, nil
}

func correctionConfig() *config.Config {
	return &config.Config{
		WorkerPoolSize: 2,
		Model: &config.ModelConfig{
			Name:                "neural-chat",
			CorrectionMaxTokens: 1000,
			CorrectionTimeout:   time.Second,
		},
	}
}

func flaggedReport(rowNumber int, entries ...model.ErrorEntry) *model.DetectionReport {
	return &model.DetectionReport{
		DetailedResults: []model.DetectionResult{{
			RowNumber:      rowNumber,
			ErrorDetection: model.VerdictError,
			Errors:         entries,
		}},
	}
}

func baseRow() model.Row {
	row := make(model.Row, len(model.Header()))
	for _, field := range model.Header() {
		row[field] = "x"
	}
	row[model.FieldFacilityID] = "100022"
	row[model.FieldPhone] = "6405587230"
	row[model.FieldStartDate] = "2023/01/15"
	row[model.FieldEndDate] = "12/31/2023"
	return row
}

func reply(fields map[string]string) string {
	payload := map[string]any{"corrected_fields": fields, "correction_details": map[string]any{}}
	data, _ := json.Marshal(payload)
	return string(data)
}

func TestRunAppliesCorrections(t *testing.T) {
	row := baseRow()
	ds := &dataset.Dataset{Header: model.Header(), Rows: []model.Row{row}}

	gen := &scriptedGenerator{replies: map[string]string{
		"100022": reply(map[string]string{
			model.FieldPhone:     "(640) 558-7230",
			model.FieldStartDate: "01/15/2023",
		}),
	}}
	corrector := NewCorrector(gen, correctionConfig(), zap.NewNop())

	report := flaggedReport(1,
		model.ErrorEntry{Field: model.FieldPhone, ErrorType: "invalid_format"},
		model.ErrorEntry{Field: model.FieldStartDate, ErrorType: "invalid_date_format"},
	)

	corrected, summary, err := corrector.Run(context.Background(), ds, report, "in.csv")
	require.NoError(t, err)

	assert.Equal(t, "(640) 558-7230", corrected.Row(1)[model.FieldPhone])
	assert.Equal(t, "01/15/2023", corrected.Row(1)[model.FieldStartDate])
	// The source dataset is untouched.
	assert.Equal(t, "6405587230", ds.Row(1)[model.FieldPhone])

	assert.Equal(t, 1, summary.Metadata.RowsCorrected)
	assert.Equal(t, 2, summary.Metadata.TotalCorrections)
	assert.Equal(t, 0, summary.Metadata.SkippedFields)
	assert.Equal(t, "in.csv", summary.Metadata.OriginalFile)
	assert.Equal(t, 1, summary.CorrectionsByField[model.FieldPhone])
	assert.Equal(t, 1, summary.ErrorTypes["invalid_format"])
}

func TestRunLeavesUnmentionedFieldsAlone(t *testing.T) {
	row := baseRow()
	row[model.FieldMeasureName] = "Median time to fibrinolysis"
	ds := &dataset.Dataset{Header: model.Header(), Rows: []model.Row{row}}

	gen := &scriptedGenerator{replies: map[string]string{
		"100022": reply(map[string]string{model.FieldState: "IL"}),
	}}
	corrector := NewCorrector(gen, correctionConfig(), zap.NewNop())

	corrected, _, err := corrector.Run(context.Background(), ds,
		flaggedReport(1, model.ErrorEntry{Field: model.FieldState, ErrorType: "invalid_value"}), "in.csv")
	require.NoError(t, err)

	assert.Equal(t, "IL", corrected.Row(1)[model.FieldState])
	assert.Equal(t, "Median time to fibrinolysis", corrected.Row(1)[model.FieldMeasureName])
}

func TestRunRejectsPhoneDigitChanges(t *testing.T) {
	ds := &dataset.Dataset{Header: model.Header(), Rows: []model.Row{baseRow()}}

	// Model invented a different number; the original digits win.
	gen := &scriptedGenerator{replies: map[string]string{
		"100022": reply(map[string]string{model.FieldPhone: "(999) 999-9999"}),
	}}
	corrector := NewCorrector(gen, correctionConfig(), zap.NewNop())

	corrected, summary, err := corrector.Run(context.Background(), ds,
		flaggedReport(1, model.ErrorEntry{Field: model.FieldPhone, ErrorType: "invalid_format"}), "in.csv")
	require.NoError(t, err)

	assert.Equal(t, "(640) 558-7230", corrected.Row(1)[model.FieldPhone])
	require.Len(t, summary.Corrections, 1)
	assert.Equal(t, "(640) 558-7230", summary.Corrections[0].CorrectedValue)
}

func TestRunRejectsDateChanges(t *testing.T) {
	ds := &dataset.Dataset{Header: model.Header(), Rows: []model.Row{baseRow()}}

	gen := &scriptedGenerator{replies: map[string]string{
		"100022": reply(map[string]string{model.FieldStartDate: "02/20/2024"}),
	}}
	corrector := NewCorrector(gen, correctionConfig(), zap.NewNop())

	corrected, _, err := corrector.Run(context.Background(), ds,
		flaggedReport(1, model.ErrorEntry{Field: model.FieldStartDate, ErrorType: "invalid_date_format"}), "in.csv")
	require.NoError(t, err)

	// The original date reformatted locally, not the model's substitute.
	assert.Equal(t, "01/15/2023", corrected.Row(1)[model.FieldStartDate])
}

func TestRunSkipsUnknownFields(t *testing.T) {
	ds := &dataset.Dataset{Header: model.Header(), Rows: []model.Row{baseRow()}}

	gen := &scriptedGenerator{replies: map[string]string{
		"100022": reply(map[string]string{
			"Facility Rating": "5 stars",
			model.FieldState:  "IL",
		}),
	}}
	corrector := NewCorrector(gen, correctionConfig(), zap.NewNop())

	corrected, summary, err := corrector.Run(context.Background(), ds,
		flaggedReport(1, model.ErrorEntry{Field: model.FieldState, ErrorType: "invalid_value"}), "in.csv")
	require.NoError(t, err)

	_, exists := corrected.Row(1)["Facility Rating"]
	assert.False(t, exists)
	assert.Equal(t, "IL", corrected.Row(1)[model.FieldState])
	assert.Equal(t, 1, summary.Metadata.SkippedFields)
	assert.Equal(t, 1, summary.Metadata.TotalCorrections)
}

func TestRunCountsUncorrectedFlaggedFields(t *testing.T) {
	ds := &dataset.Dataset{Header: model.Header(), Rows: []model.Row{baseRow()}}

	// The model answers but proposes nothing for the flagged field; the
	// skip must be visible in the summary, not silent.
	gen := &scriptedGenerator{replies: map[string]string{
		"100022": reply(map[string]string{}),
	}}
	corrector := NewCorrector(gen, correctionConfig(), zap.NewNop())

	_, summary, err := corrector.Run(context.Background(), ds,
		flaggedReport(1, model.ErrorEntry{Field: model.FieldState, ErrorType: "invalid_value"}), "in.csv")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Metadata.SkippedFields)
	assert.Equal(t, 0, summary.Metadata.TotalCorrections)
	assert.Equal(t, 0, summary.Metadata.RowsCorrected)
}

func TestRunSurvivesModelFailure(t *testing.T) {
	ds := &dataset.Dataset{Header: model.Header(), Rows: []model.Row{baseRow()}}

	gen := &scriptedGenerator{err: errors.New("connection refused")}
	corrector := NewCorrector(gen, correctionConfig(), zap.NewNop())

	corrected, summary, err := corrector.Run(context.Background(), ds,
		flaggedReport(1, model.ErrorEntry{Field: model.FieldState, ErrorType: "invalid_value"}), "in.csv")
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Metadata.RowsCorrected)
	assert.Equal(t, ds.Row(1), corrected.Row(1))
	// The detected type still shows up in the tally at zero.
	assert.Equal(t, 0, summary.ErrorTypes["invalid_value"])
	_, present := summary.ErrorTypes["invalid_value"]
	assert.True(t, present)
}

func TestRunSkipsCleanRows(t *testing.T) {
	ds := &dataset.Dataset{Header: model.Header(), Rows: []model.Row{baseRow(), baseRow()}}

	gen := &scriptedGenerator{}
	corrector := NewCorrector(gen, correctionConfig(), zap.NewNop())

	report := &model.DetectionReport{DetailedResults: []model.DetectionResult{
		{RowNumber: 1, ErrorDetection: model.VerdictNoError, Errors: []model.ErrorEntry{}},
		{RowNumber: 2, ErrorDetection: model.VerdictError, Errors: []model.ErrorEntry{
			{Field: model.FieldState, ErrorType: "invalid_value"},
		}},
	}}

	_, _, err := corrector.Run(context.Background(), ds, report, "in.csv")
	require.NoError(t, err)
	assert.Len(t, gen.prompts, 1, "only the flagged row reaches the model")
}

func TestRunIncludesFacilityReferenceInPrompt(t *testing.T) {
	good := baseRow()
	good[model.FieldPhone] = "(640) 558-7230"
	bad := baseRow()
	bad[model.FieldFacilityName] = "nan"

	ds := &dataset.Dataset{Header: model.Header(), Rows: []model.Row{good, bad}}

	gen := &scriptedGenerator{}
	corrector := NewCorrector(gen, correctionConfig(), zap.NewNop())

	report := &model.DetectionReport{DetailedResults: []model.DetectionResult{
		{RowNumber: 2, ErrorDetection: model.VerdictError, Errors: []model.ErrorEntry{
			{Field: model.FieldFacilityName, ErrorType: "missing_value"},
		}},
	}}

	_, _, err := corrector.Run(context.Background(), ds, report, "in.csv")
	require.NoError(t, err)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "VERIFIED FACILITY INFORMATION")
}
