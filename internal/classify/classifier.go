package classify

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"itassist/internal/config"
	"itassist/internal/domain"
)

// Rule is one compiled classification pattern with a stable identifier
// that is carried into the audit trail when it matches.
type Rule struct {
	ID string
	re *regexp.Regexp
}

// Classifier assigns a risk tier to every candidate. It is a total
// function: classification never fails, and every candidate receives
// exactly one tier. Blocked rules are checked first and short-circuit;
// Privileged rules are checked next, first match wins; anything else
// falls through to the configured default tier.
type Classifier struct {
	blocked     []Rule
	privileged  []Rule
	defaultTier domain.RiskTier
	logger      *slog.Logger
}

// New builds a classifier from the built-in baseline plus the patterns in
// cfg. The baseline of catastrophic-operation patterns is always present
// and cannot be configured away. cfg.RulesFile, when set, contributes
// additional rules loaded from YAML.
func New(cfg config.SecurityConfig, logger *slog.Logger) (*Classifier, error) {
	c := &Classifier{
		blocked:     baselineBlocked(),
		privileged:  baselinePrivileged(),
		defaultTier: domain.TierSafe,
		logger:      logger,
	}
	if cfg.DefaultTier == "privileged" {
		c.defaultTier = domain.TierPrivileged
	}

	extra, err := compilePatterns("blocked.custom", cfg.Blocked)
	if err != nil {
		return nil, fmt.Errorf("invalid blocked pattern: %w", err)
	}
	c.blocked = append(c.blocked, extra...)

	extra, err = compilePatterns("privileged.custom", cfg.Privileged)
	if err != nil {
		return nil, fmt.Errorf("invalid privileged pattern: %w", err)
	}
	c.privileged = append(c.privileged, extra...)

	if cfg.RulesFile != "" {
		rf, err := LoadRuleFile(cfg.RulesFile)
		if err != nil {
			return nil, fmt.Errorf("rules file %s: %w", cfg.RulesFile, err)
		}
		blocked, privileged, err := rf.Compile()
		if err != nil {
			return nil, fmt.Errorf("rules file %s: %w", cfg.RulesFile, err)
		}
		c.blocked = append(c.blocked, blocked...)
		c.privileged = append(c.privileged, privileged...)
	}

	return c, nil
}

// Classify maps a candidate to a risk tier and the matched rule ID
// ("none" when no rule matched and the default tier applied).
func (c *Classifier) Classify(cand domain.Candidate) domain.Classification {
	cmd := strings.TrimSpace(cand.Text)

	for _, r := range c.blocked {
		if r.re.MatchString(cmd) {
			c.logger.Warn("command classified as blocked",
				"command", cmd,
				"rule", r.ID,
			)
			return domain.Classification{Candidate: cand, Tier: domain.TierBlocked, RuleID: r.ID}
		}
	}

	for _, r := range c.privileged {
		if r.re.MatchString(cmd) {
			return domain.Classification{Candidate: cand, Tier: domain.TierPrivileged, RuleID: r.ID}
		}
	}

	return domain.Classification{Candidate: cand, Tier: c.defaultTier, RuleID: domain.NoRuleMatched}
}

// compilePatterns turns config-supplied strings into rules. Strings that
// look like a regex are compiled directly; anything else becomes a
// case-insensitive literal substring match.
func compilePatterns(idPrefix string, patterns []string) ([]Rule, error) {
	rules := make([]Rule, 0, len(patterns))
	for i, p := range patterns {
		var re *regexp.Regexp
		var err error
		if isRegex(p) {
			re, err = regexp.Compile(p)
		} else {
			re, err = regexp.Compile(`(?i)` + regexp.QuoteMeta(p))
		}
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		rules = append(rules, Rule{ID: fmt.Sprintf("%s.%d", idPrefix, i), re: re})
	}
	return rules, nil
}

func isRegex(s string) bool {
	for _, c := range s {
		switch c {
		case '(', ')', '[', ']', '{', '}', '|', '^', '$', '.', '*', '+', '?', '\\':
			return true
		}
	}
	return false
}
