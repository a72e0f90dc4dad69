package types

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadRoutesConfig reads a route-pricing map from a JSON or YAML file. YAML
// is a superset of JSON, so a single decode path handles both; the document
// is bridged through JSON so the same variant resolution applies.
func LoadRoutesConfig(path string) (*RoutesConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read routes config: %w", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse routes config %s: %w", path, err)
	}

	bridged, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize routes config %s: %w", path, err)
	}

	var cfg RoutesConfig
	if err := json.Unmarshal(bridged, &cfg); err != nil {
		return nil, fmt.Errorf("invalid routes config %s: %w", path, err)
	}
	return &cfg, nil
}
