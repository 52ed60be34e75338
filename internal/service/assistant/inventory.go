package assistant

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Misconfiguration is one finding from a cloud account scan. Its fields are
// kept as decoded so any scanner export can be fed to the analysis.
type Misconfiguration map[string]any

type inventoryFile struct {
	Misconfigurations []Misconfiguration `yaml:"misconfigurations"`
}

// LoadInventory reads misconfigurations from a YAML or JSON file. The document
// is either a list or an object with a "misconfigurations" list. An empty path
// yields no inventory.
func LoadInventory(path string) ([]Misconfiguration, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory file: %w", err)
	}
	return ParseInventory(data)
}

// ParseInventory decodes misconfigurations from YAML (JSON is accepted as a
// YAML subset).
func ParseInventory(data []byte) ([]Misconfiguration, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to parse inventory: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	root := node.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		var items []Misconfiguration
		if err := root.Decode(&items); err != nil {
			return nil, fmt.Errorf("failed to decode inventory list: %w", err)
		}
		return items, nil
	case yaml.MappingNode:
		var wrapped inventoryFile
		if err := root.Decode(&wrapped); err != nil {
			return nil, fmt.Errorf("failed to decode inventory document: %w", err)
		}
		return wrapped.Misconfigurations, nil
	default:
		return nil, fmt.Errorf("inventory must be a list or an object with a misconfigurations key")
	}
}

// chunkBriefs splits the inventory into chunks of at most size items and
// renders each, together with the reference rules, as the JSON context the
// analysis agents read.
func chunkBriefs(items []Misconfiguration, rules []Rule, size int) ([]string, error) {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if rules == nil {
		rules = []Rule{}
	}

	var briefs []string
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		data, err := json.Marshal(struct {
			Misconfigurations []Misconfiguration `json:"misconfigurations"`
			ReferenceRules    []Rule             `json:"reference_rules"`
		}{items[start:end], rules})
		if err != nil {
			return nil, fmt.Errorf("failed to encode inventory chunk %d: %w", len(briefs), err)
		}
		briefs = append(briefs, string(data))
	}
	return briefs, nil
}
