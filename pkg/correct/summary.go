// pkg/correct/summary.go
package correct

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/care-data/facility-audit/pkg/model"
)

// SaveSummary writes the correction summary as indented JSON.
func SaveSummary(summary *model.CorrectionSummary, path string) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal correction summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write correction summary %s: %w", path, err)
	}
	return nil
}

// LoadSummary reads a correction summary produced by SaveSummary.
func LoadSummary(path string) (*model.CorrectionSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read correction summary %s: %w", path, err)
	}

	var summary model.CorrectionSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("failed to parse correction summary %s: %w", path, err)
	}
	return &summary, nil
}
