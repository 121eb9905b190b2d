package extract

import (
	"sort"
	"strings"

	"itassist/internal/domain"
)

// Span is a region of the source text claimed by an extraction rule,
// carrying the cleaned command text it yielded.
type Span struct {
	Start int
	End   int
	Text  string
}

// rule is a single typed extraction pass over the source text. Rules run
// in priority order; regions claimed by an earlier rule are never
// re-matched by a later one. The claimed slice may cover more than the
// candidate spans (a fence claims its whole block, comments included).
type rule struct {
	name string
	find func(text string) (cands []Span, claimed []Span)
}

// Extractor locates command-like substrings inside free model-output text.
// It never executes or interprets them, holds no mutable state, and never
// fails: malformed or empty input yields an empty candidate list.
type Extractor struct {
	rules []rule
}

// New returns an Extractor with the default rules, in priority order:
// fenced code blocks, shell-prompt lines, inline code spans.
func New() *Extractor {
	return &Extractor{
		rules: []rule{
			{name: "fence", find: findFenced},
			{name: "prompt", find: findPromptLines},
			{name: "inline", find: findInline},
		},
	}
}

// Extract returns the candidates found in text, ordered by position of
// appearance. Running it twice on the same input yields identical output.
func (e *Extractor) Extract(text string) []domain.Candidate {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	type hit struct {
		span Span
		rule string
	}

	var hits []hit
	var claimed []Span
	for _, r := range e.rules {
		cands, claims := r.find(text)
		for _, s := range cands {
			if overlapsAny(s, claimed) {
				continue
			}
			hits = append(hits, hit{span: s, rule: r.name})
		}
		for _, c := range claims {
			if !overlapsAny(c, claimed) {
				claimed = append(claimed, c)
			}
		}
	}

	// Candidates are ordered by where they appear in the source, not by
	// which rule found them.
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].span.Start < hits[j].span.Start
	})

	cands := make([]domain.Candidate, 0, len(hits))
	for i, h := range hits {
		cands = append(cands, domain.Candidate{
			Text:  h.span.Text,
			Index: i,
			Rule:  h.rule,
		})
	}
	return cands
}

func overlapsAny(s Span, claimed []Span) bool {
	for _, c := range claimed {
		if s.Start < c.End && c.Start < s.End {
			return true
		}
	}
	return false
}

// findFenced extracts non-empty, non-comment lines from ``` fenced blocks.
// Only shell fences yield candidates: an empty info string or one of bash,
// shell, sh, powershell. Blocks in other languages (python, json, ...) are
// still claimed, so their contents never resurface through the prompt or
// inline rules, but produce nothing to execute. An unclosed fence runs to
// the end of the text. Lines with a leading "$ " prompt marker have the
// marker stripped.
func findFenced(text string) ([]Span, []Span) {
	var spans, claims []Span
	offset := 0
	inFence := false
	shellFence := false
	blockStart := 0

	for offset <= len(text) {
		lineEnd := strings.IndexByte(text[offset:], '\n')
		var line string
		next := len(text) + 1
		if lineEnd >= 0 {
			line = text[offset : offset+lineEnd]
			next = offset + lineEnd + 1
		} else {
			line = text[offset:]
		}

		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if inFence {
				claims = append(claims, Span{Start: blockStart, End: offset + len(line)})
			} else {
				blockStart = offset
				shellFence = isShellInfoString(strings.TrimPrefix(trimmed, "```"))
			}
			inFence = !inFence
		} else if inFence && shellFence {
			if cmd := cleanFenceLine(trimmed); cmd != "" {
				start := offset + indexOfTrimmed(line)
				spans = append(spans, Span{Start: start, End: start + len(trimmed), Text: cmd})
			}
		}

		if next > len(text) {
			break
		}
		offset = next
	}
	if inFence {
		claims = append(claims, Span{Start: blockStart, End: len(text)})
	}
	return spans, claims
}

// isShellInfoString reports whether a fence info string marks a runnable
// shell block. Only the first token counts, so "bash title=x" qualifies.
func isShellInfoString(info string) bool {
	lang := strings.ToLower(strings.TrimSpace(info))
	if fields := strings.Fields(lang); len(fields) > 0 {
		lang = fields[0]
	}
	switch lang {
	case "", "bash", "shell", "sh", "powershell":
		return true
	}
	return false
}

// cleanFenceLine strips a leading "$ " marker and drops comments and blanks.
func cleanFenceLine(line string) string {
	if line == "" || strings.HasPrefix(line, "#") {
		return ""
	}
	if rest, ok := strings.CutPrefix(line, "$ "); ok {
		line = strings.TrimSpace(rest)
	}
	if line == "" || strings.HasPrefix(line, "#") {
		return ""
	}
	return line
}

// findPromptLines extracts lines that start with a shell prompt marker.
// "$ cmd" is always taken; "# cmd" only when the remainder starts with a
// recognized command verb, since a bare "#" also introduces markdown
// headings and comments and a false positive here feeds execution risk.
func findPromptLines(text string) ([]Span, []Span) {
	var spans []Span
	offset := 0
	for offset <= len(text) {
		lineEnd := strings.IndexByte(text[offset:], '\n')
		var line string
		next := len(text) + 1
		if lineEnd >= 0 {
			line = text[offset : offset+lineEnd]
			next = offset + lineEnd + 1
		} else {
			line = text[offset:]
		}

		trimmed := strings.TrimSpace(line)
		var cmd string
		if rest, ok := strings.CutPrefix(trimmed, "$ "); ok {
			cmd = strings.TrimSpace(rest)
		} else if rest, ok := strings.CutPrefix(trimmed, "# "); ok {
			rest = strings.TrimSpace(rest)
			if hasCommandVerb(rest) {
				cmd = rest
			}
		}
		if cmd != "" {
			start := offset + indexOfTrimmed(line)
			spans = append(spans, Span{Start: start, End: start + len(trimmed), Text: cmd})
		}

		if next > len(text) {
			break
		}
		offset = next
	}
	return spans, spans
}

// findInline extracts single-backtick spans that look like commands: the
// span must either start with a recognized command verb or follow an
// explicit "Command:" / "Run:" / "Execute:" label. Plain prose mentioning
// a command name is never a candidate.
func findInline(text string) ([]Span, []Span) {
	var spans []Span
	i := 0
	for i < len(text) {
		open := strings.IndexByte(text[i:], '`')
		if open < 0 {
			break
		}
		open += i
		// Skip fence markers; those belong to the fence rule.
		if strings.HasPrefix(text[open:], "```") {
			end := strings.Index(text[open+3:], "```")
			if end < 0 {
				break
			}
			i = open + 3 + end + 3
			continue
		}
		end := strings.IndexByte(text[open+1:], '`')
		if end < 0 {
			break
		}
		end += open + 1

		inner := strings.TrimSpace(text[open+1 : end])
		if inner != "" && !strings.ContainsRune(inner, '\n') {
			if hasCommandVerb(inner) || hasCommandLabel(text[:open]) {
				spans = append(spans, Span{Start: open, End: end + 1, Text: inner})
			}
		}
		i = end + 1
	}
	return spans, spans
}

// hasCommandLabel reports whether the text immediately before an inline
// span ends with an explicit execution label.
func hasCommandLabel(before string) bool {
	before = strings.ToLower(strings.TrimRight(before, " \t"))
	for _, label := range []string{"command:", "run:", "execute:"} {
		if strings.HasSuffix(before, label) {
			return true
		}
	}
	return false
}

// commandVerbs are first tokens that mark an inline span (or a "# " prompt
// line) as a command rather than prose. Deliberately conservative.
var commandVerbs = map[string]struct{}{
	"ls": {}, "cat": {}, "echo": {}, "pwd": {}, "cd": {}, "cp": {}, "mv": {},
	"rm": {}, "mkdir": {}, "touch": {}, "chmod": {}, "chown": {}, "grep": {},
	"find": {}, "tar": {}, "kill": {}, "killall": {}, "ps": {}, "top": {},
	"htop": {}, "df": {}, "du": {}, "free": {}, "uname": {}, "uptime": {},
	"whoami": {}, "sudo": {}, "su": {}, "doas": {}, "apt": {}, "apt-get": {},
	"yum": {}, "dnf": {}, "pacman": {}, "zypper": {}, "brew": {}, "choco": {},
	"snap": {}, "pip": {}, "pip3": {}, "npm": {}, "systemctl": {},
	"service": {}, "journalctl": {}, "mount": {}, "umount": {}, "fsck": {},
	"iptables": {}, "ufw": {}, "firewall-cmd": {}, "ping": {}, "curl": {},
	"wget": {}, "ssh": {}, "scp": {}, "ip": {}, "netstat": {}, "ss": {},
	"dig": {}, "nslookup": {}, "docker": {}, "git": {}, "crontab": {},
	"shutdown": {}, "reboot": {}, "ollama": {},
}

func hasCommandVerb(s string) bool {
	verb, _, _ := strings.Cut(s, " ")
	_, ok := commandVerbs[verb]
	return ok
}

// indexOfTrimmed returns the offset of the first non-space byte in line.
func indexOfTrimmed(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}
