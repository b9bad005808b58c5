package limits

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// ReadFile reads a YAML limits file and returns it as a generic object ready
// for Holder.Validate. Keys are the flat settings names.
func ReadFile(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read limits file: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML converts a YAML document into the JSON object form used for
// validation, so type checks see the same kinds a cache payload would.
func ParseYAML(data []byte) (any, error) {
	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse limits yaml: %w", err)
	}
	var out any
	if err := json.Unmarshal(jsonData, &out); err != nil {
		return nil, fmt.Errorf("failed to decode limits yaml: %w", err)
	}
	return out, nil
}

// MarshalYAML renders settings as a YAML document.
func MarshalYAML(s Settings) ([]byte, error) {
	return yaml.Marshal(s)
}
