// internal/config/policy.go
package config

import (
	"fmt"
	"os"

	"fluencr-service/internal/domain/relationship"

	"gopkg.in/yaml.v3"
)

// LoadPolicy returns the lifecycle policy, with any fields set in the YAML
// file at path laid over the defaults. An empty path yields the defaults.
func LoadPolicy(path string) (relationship.Policy, error) {
	policy := relationship.DefaultPolicy()
	if path == "" {
		return policy, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return policy, fmt.Errorf("failed to read policy file: %w", err)
	}
	return ParsePolicy(b)
}

// ParsePolicy lays YAML overrides over the default policy and validates the result.
func ParsePolicy(b []byte) (relationship.Policy, error) {
	policy := relationship.DefaultPolicy()
	if err := yaml.Unmarshal(b, &policy); err != nil {
		return policy, fmt.Errorf("failed to parse policy: %w", err)
	}
	if err := policy.Validate(); err != nil {
		return policy, err
	}
	return policy, nil
}
