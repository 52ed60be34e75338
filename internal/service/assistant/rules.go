package assistant

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rule is a reference cloud security rule the assistant grounds its answers on.
type Rule struct {
	ID          string `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Severity    string `yaml:"severity,omitempty" json:"severity,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Remediation string `yaml:"remediation,omitempty" json:"remediation,omitempty"`
}

type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads reference rules from a YAML or JSON file. The document is
// either a list of rules or an object with a "rules" list. An empty path
// yields no rules.
func LoadRules(path string) ([]Rule, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes rules from YAML (JSON is accepted as a YAML subset).
func ParseRules(data []byte) ([]Rule, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	root := node.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		var rules []Rule
		if err := root.Decode(&rules); err != nil {
			return nil, fmt.Errorf("failed to decode rules list: %w", err)
		}
		return rules, nil
	case yaml.MappingNode:
		var wrapped rulesFile
		if err := root.Decode(&wrapped); err != nil {
			return nil, fmt.Errorf("failed to decode rules document: %w", err)
		}
		return wrapped.Rules, nil
	default:
		return nil, fmt.Errorf("rules must be a list or an object with a rules key")
	}
}

// describeRules renders rules as prompt text, one rule per block.
func describeRules(rules []Rule) string {
	if len(rules) == 0 {
		return "No reference rules were provided."
	}

	var builder strings.Builder
	for i, rule := range rules {
		if i > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString("- ")
		if rule.ID != "" {
			builder.WriteString("[" + rule.ID + "] ")
		}
		builder.WriteString(rule.Title)
		if rule.Severity != "" {
			builder.WriteString(" (severity: " + rule.Severity + ")")
		}
		if rule.Description != "" {
			builder.WriteString("\n  " + rule.Description)
		}
		if rule.Remediation != "" {
			builder.WriteString("\n  Remediation: " + rule.Remediation)
		}
	}
	return builder.String()
}
