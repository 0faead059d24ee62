package disease

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// LoadClassNames reads the disease class names from a JSON array whose order
// matches the model's output columns.
func LoadClassNames(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read disease classes: %w", err)
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("failed to parse disease classes %s: %w", path, err)
	}
	if len(names) == 0 {
		return nil, errors.New("disease classes are empty")
	}
	return names, nil
}

// CleanName renders a class name for display: underscores become spaces and
// surrounding whitespace is trimmed.
func CleanName(name string) string {
	return strings.TrimSpace(strings.ReplaceAll(name, "_", " "))
}
