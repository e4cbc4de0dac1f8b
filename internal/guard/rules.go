package guard

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rule protects every path under Prefix
type Rule struct {
	Prefix            string `yaml:"prefix"`
	Public            bool   `yaml:"public"`
	AdminOnly         bool   `yaml:"admin_only"`
	AdminRole         string `yaml:"admin_role,omitempty"`
	FallbackPath      string `yaml:"fallback,omitempty"`
	AdminFallbackPath string `yaml:"admin_fallback,omitempty"`
}

// Guard returns the guard configured by the rule
func (r Rule) Guard() Guard {
	return Guard{
		FallbackPath:      r.FallbackPath,
		AdminOnly:         r.AdminOnly,
		AdminRole:         r.AdminRole,
		AdminFallbackPath: r.AdminFallbackPath,
	}
}

// RuleSet matches request paths to rules by longest prefix
type RuleSet struct {
	rules []Rule
}

type rulesFile struct {
	Routes []Rule `yaml:"routes"`
}

// DefaultRules protects everything except the login page, static assets
// and the health check; /admin requires the admin role.
func DefaultRules() *RuleSet {
	return NewRuleSet([]Rule{
		{Prefix: "/", FallbackPath: "/login"},
		{Prefix: "/login", Public: true},
		{Prefix: "/health", Public: true},
		{Prefix: "/static", Public: true},
		{Prefix: "/lang", Public: true},
		{Prefix: "/admin", AdminOnly: true, FallbackPath: "/login", AdminFallbackPath: "/"},
	})
}

// NewRuleSet creates a rule set from rules
func NewRuleSet(rules []Rule) *RuleSet {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Prefix) > len(sorted[j].Prefix)
	})
	return &RuleSet{rules: sorted}
}

// LoadRules reads a YAML rules file:
//
//	routes:
//	  - prefix: /
//	    fallback: /login
//	  - prefix: /admin
//	    admin_only: true
//	    admin_fallback: /
func LoadRules(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read routes file: %w", err)
	}

	return ParseRules(data)
}

// ParseRules parses the YAML rules document
func ParseRules(data []byte) (*RuleSet, error) {
	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse routes file: %w", err)
	}

	for i, r := range file.Routes {
		if !strings.HasPrefix(r.Prefix, "/") {
			return nil, fmt.Errorf("route %d: prefix %q must start with '/'", i, r.Prefix)
		}
		if r.Public && r.AdminOnly {
			return nil, fmt.Errorf("route %s: cannot be both public and admin_only", r.Prefix)
		}
	}

	return NewRuleSet(file.Routes), nil
}

// Match returns the most specific rule for path. Prefixes match whole
// path segments: "/admin" matches "/admin/queues" but not "/administer".
func (rs *RuleSet) Match(path string) (Rule, bool) {
	for _, r := range rs.rules {
		if matchPrefix(r.Prefix, path) {
			return r, true
		}
	}
	return Rule{}, false
}

func matchPrefix(prefix, path string) bool {
	if prefix == "/" {
		return strings.HasPrefix(path, "/")
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	rest := path[len(prefix):]
	return rest == "" || rest[0] == '/' || strings.HasSuffix(prefix, "/")
}
