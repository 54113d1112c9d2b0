package cli

import (
	"encoding/json"
	"fmt"
	"os"
)

func formatPercent(rate float64) string {
	return fmt.Sprintf("%.2f%%", rate*100)
}

// readJSONFile decodes a JSON input file into out.
func readJSONFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
