package review

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Rules represents a rules pack loaded from --rules.
type Rules struct {
	Focus             []string          `json:"focus,omitempty" yaml:"focus,omitempty" toml:"focus,omitempty"`
	SeverityOverrides map[string]string `json:"severityOverrides,omitempty" yaml:"severityOverrides,omitempty" toml:"severityOverrides,omitempty"`
	Disabled          []string          `json:"disabled,omitempty" yaml:"disabled,omitempty" toml:"disabled,omitempty"`
	Required          []RequiredCheck   `json:"required,omitempty" yaml:"required,omitempty" toml:"required,omitempty"`
}

// RequiredCheck is a policy check the AI service is always asked to evaluate.
type RequiredCheck struct {
	ID   string `json:"id" yaml:"id" toml:"id"`
	Text string `json:"text" yaml:"text" toml:"text"`
}

// LoadRules loads a rules file from disk. The format follows the extension:
// .yaml/.yml, .toml, anything else JSON. Returns nil Rules and nil error if
// path is empty.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	var rules Rules
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &rules)
	case ".toml":
		_, err = toml.Decode(string(data), &rules)
	default:
		err = json.Unmarshal(data, &rules)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing rules file: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &rules, nil
}

// Validate checks that every override names a known severity.
func (r *Rules) Validate() error {
	for key, sev := range r.SeverityOverrides {
		if _, ok := ParseSeverity(sev); !ok {
			return fmt.Errorf("severity override %q: unknown severity %q", key, sev)
		}
	}
	return nil
}

// BuildRulesPromptSection returns additional prompt instructions derived from rules.
func BuildRulesPromptSection(rules *Rules) string {
	if rules == nil {
		return ""
	}

	var b strings.Builder

	if len(rules.Focus) > 0 {
		fmt.Fprintf(&b, "\nFocus areas: %s. Prioritize suggestions in these areas.\n",
			strings.Join(rules.Focus, ", "))
	}

	if len(rules.Required) > 0 {
		b.WriteString("\nRequired checks (always evaluate these):\n")
		for _, req := range rules.Required {
			fmt.Fprintf(&b, "- [%s] %s\n", req.ID, req.Text)
		}
	}

	return b.String()
}

// ApplyRules drops disabled findings and enforces severity overrides. A rule
// key matches a finding when it equals the finding's source or is a prefix
// of its rule code ("E", "E2", "E225"); the longest matching key wins. The
// result is re-sorted.
func ApplyRules(findings []Finding, rules *Rules) []Finding {
	if rules == nil || (len(rules.Disabled) == 0 && len(rules.SeverityOverrides) == 0) {
		return findings
	}

	keys := make([]string, 0, len(rules.SeverityOverrides))
	for k := range rules.SeverityOverrides {
		keys = append(keys, k)
	}
	// Longest first so the most specific override applies.
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	out := make([]Finding, 0, len(findings))
	for _, f := range findings {
		if ruleMatchesAny(f, rules.Disabled) {
			continue
		}
		for _, k := range keys {
			if ruleMatches(f, k) {
				if sev, ok := ParseSeverity(rules.SeverityOverrides[k]); ok {
					f.Severity = sev
				}
				break
			}
		}
		out = append(out, f)
	}
	SortFindings(out)
	return out
}

func ruleMatchesAny(f Finding, keys []string) bool {
	for _, k := range keys {
		if ruleMatches(f, k) {
			return true
		}
	}
	return false
}

func ruleMatches(f Finding, key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	return strings.EqualFold(string(f.Source), key) || strings.HasPrefix(f.Rule, strings.ToUpper(key))
}
