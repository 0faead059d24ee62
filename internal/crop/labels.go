package crop

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// LoadLabels reads the crop class names from a JSON array. Index i names
// probability column i of the classifier (the label encoder's classes).
func LoadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read crop labels: %w", err)
	}
	var labels []string
	if err := json.Unmarshal(data, &labels); err != nil {
		return nil, fmt.Errorf("failed to parse crop labels %s: %w", path, err)
	}
	if len(labels) == 0 {
		return nil, errors.New("crop labels are empty")
	}
	for i, l := range labels {
		if strings.TrimSpace(l) == "" {
			return nil, fmt.Errorf("crop label %d is blank", i)
		}
	}
	return labels, nil
}
