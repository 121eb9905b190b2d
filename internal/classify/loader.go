package classify

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// RuleSpec is one externally supplied pattern rule.
type RuleSpec struct {
	ID      string `yaml:"id"`
	Pattern string `yaml:"pattern"`
}

// RuleFile is the on-disk YAML layout for additional classification rules:
//
//	blocked:
//	  - id: wipe-home
//	    pattern: 'rm\s+-rf\s+~'
//	privileged:
//	  - id: docker
//	    pattern: '\bdocker\s+(?:run|rm|exec)'
type RuleFile struct {
	Blocked    []RuleSpec `yaml:"blocked"`
	Privileged []RuleSpec `yaml:"privileged"`
}

// LoadRuleFile reads and parses a YAML rule file.
func LoadRuleFile(path string) (*RuleFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	var rf RuleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return &rf, nil
}

// Compile turns the specs into rules, validating every pattern and
// requiring a non-empty id on each so audit records stay traceable.
func (rf *RuleFile) Compile() (blocked, privileged []Rule, err error) {
	blocked, err = compileSpecs("blocked", rf.Blocked)
	if err != nil {
		return nil, nil, err
	}
	privileged, err = compileSpecs("privileged", rf.Privileged)
	if err != nil {
		return nil, nil, err
	}
	return blocked, privileged, nil
}

func compileSpecs(kind string, specs []RuleSpec) ([]Rule, error) {
	rules := make([]Rule, 0, len(specs))
	for _, s := range specs {
		if s.ID == "" {
			return nil, fmt.Errorf("%s rule with pattern %q has no id", kind, s.Pattern)
		}
		re, err := regexp.Compile(s.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%s rule %s: %w", kind, s.ID, err)
		}
		rules = append(rules, Rule{ID: kind + "." + s.ID, re: re})
	}
	return rules, nil
}
