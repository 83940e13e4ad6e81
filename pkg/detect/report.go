// pkg/detect/report.go
package detect

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/care-data/facility-audit/pkg/model"
)

// SaveReport writes a detection report as indented JSON.
func SaveReport(report *model.DetectionReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal detection report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write detection report %s: %w", path, err)
	}
	return nil
}

// LoadReport reads a detection report produced by SaveReport.
func LoadReport(path string) (*model.DetectionReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read detection report %s: %w", path, err)
	}

	var report model.DetectionReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse detection report %s: %w", path, err)
	}
	return &report, nil
}
