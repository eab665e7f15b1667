// Package wordlist loads the optional YAML file that overrides the built-in
// probe candidate lists.
package wordlist

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Lists holds the candidate lists a wordlist file may override. Absent
// sections leave the module's built-in list in effect.
type Lists struct {
	Domains   []string `yaml:"domains"`
	Endpoints []string `yaml:"endpoints"`
	Passwords []string `yaml:"passwords"`
}

// Load reads the wordlist file at path. An empty path or a missing file
// yields empty lists, not an error.
func Load(path string) (*Lists, error) {
	if path == "" {
		return &Lists{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Lists{}, nil
		}
		return nil, err
	}

	var l Lists
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parse wordlist %s: %w", path, err)
	}
	return &l, nil
}

// Or returns override when non-empty, otherwise fallback.
func Or(override, fallback []string) []string {
	if len(override) > 0 {
		return override
	}
	return fallback
}
