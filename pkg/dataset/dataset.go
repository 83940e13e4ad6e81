// pkg/dataset/dataset.go
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/care-data/facility-audit/pkg/model"
)

// Dataset is an in-memory tabular dataset. Rows are addressed by 1-based
// row number: row number n is Rows[n-1].
type Dataset struct {
	Header []string
	Rows   []model.Row
}

// Load reads a CSV file into a Dataset. The file's own header row defines
// column order; a file missing the facility identifier column is rejected
// since neither detection nor correction can run without it.
func Load(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", path, err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("dataset %s is empty", path)
	}

	header := records[0]
	hasFacilityID := false
	for _, col := range header {
		if col == model.FieldFacilityID {
			hasFacilityID = true
			break
		}
	}
	if !hasFacilityID {
		return nil, fmt.Errorf("dataset %s has no %q column", path, model.FieldFacilityID)
	}

	rows := make([]model.Row, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(model.Row, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}

	return &Dataset{Header: header, Rows: rows}, nil
}

// Save writes the dataset to a CSV file using the dataset's column order.
func (d *Dataset) Save(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(d.Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, len(d.Header))
	for _, row := range d.Rows {
		for i, col := range d.Header {
			record[i] = row[col]
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush output file %s: %w", path, err)
	}

	return nil
}

// Limit truncates the dataset to at most n rows. A non-positive n leaves
// the dataset unchanged.
func (d *Dataset) Limit(n int) {
	if n > 0 && n < len(d.Rows) {
		d.Rows = d.Rows[:n]
	}
}

// Row returns the row addressed by its 1-based number, or nil when out of
// range.
func (d *Dataset) Row(rowNumber int) model.Row {
	if rowNumber < 1 || rowNumber > len(d.Rows) {
		return nil
	}
	return d.Rows[rowNumber-1]
}

// Clone returns a deep copy of the dataset. The correction pipeline works
// on a copy so the source table is never mutated.
func (d *Dataset) Clone() *Dataset {
	header := make([]string, len(d.Header))
	copy(header, d.Header)

	rows := make([]model.Row, len(d.Rows))
	for i, row := range d.Rows {
		rows[i] = row.Clone()
	}

	return &Dataset{Header: header, Rows: rows}
}
