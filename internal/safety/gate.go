// Package safety classifies shell commands against a fixed denylist of
// destructive-operation signatures. It is pattern matching, not a sandbox:
// commands outside the enumerated shapes are not considered dangerous.
package safety

import (
	"regexp"
)

// RejectionReason is reported when a command matches the denylist.
const RejectionReason = "Command rejected for safety reasons."

// Rule is one denylist entry.
type Rule struct {
	Name    string // short identifier used in logs
	Pattern string // RE2 expression, matched case-insensitively anywhere
}

// DefaultRules is the fixed denylist applied to translated commands.
var DefaultRules = []Rule{
	{Name: "rm-rf-root", Pattern: `\brm\s+-rf\s+/`},
	{Name: "format", Pattern: `\bformat\b`},
	{Name: "del-system", Pattern: `\bdel\s+/[sq]`},
	{Name: "block-device-redirect", Pattern: `>\s*/dev/sd[a-z]`},
	{Name: "dd-to-device", Pattern: `\bdd\s+if=.*of=/dev/`},
	{Name: "shutdown", Pattern: `\bshutdown\b`},
	{Name: "reboot", Pattern: `\breboot\b`},
	{Name: "halt", Pattern: `\bhalt\b`},
}

// compiledRule holds a compiled regex and the rule it came from.
type compiledRule struct {
	rule  Rule
	regex *regexp.Regexp
}

// Gate matches commands against a compiled denylist.
// A Gate is immutable after construction and safe for concurrent use.
type Gate struct {
	rules []compiledRule
}

// Match describes why a command was classified as dangerous.
type Match struct {
	Rule      Rule
	Rendering string // the text that matched: raw command or a dequoted rendering
}

var defaultGate = MustNew(DefaultRules)

// IsDangerous reports whether command matches any rule of DefaultRules.
func IsDangerous(command string) bool {
	return defaultGate.IsDangerous(command)
}

// Default returns the gate built from DefaultRules.
func Default() *Gate {
	return defaultGate
}

// New compiles rules into a Gate. Matching is always case-insensitive.
func New(rules []Rule) (*Gate, error) {
	g := &Gate{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		re, err := regexp.Compile("(?i)" + r.Pattern)
		if err != nil {
			return nil, &PatternError{Rule: r, Err: err}
		}
		g.rules = append(g.rules, compiledRule{rule: r, regex: re})
	}
	return g, nil
}

// MustNew is like New but panics on an invalid pattern.
func MustNew(rules []Rule) *Gate {
	g, err := New(rules)
	if err != nil {
		panic(err)
	}
	return g
}

// IsDangerous reports whether command matches any rule.
func (g *Gate) IsDangerous(command string) bool {
	_, ok := g.Check(command)
	return ok
}

// Check returns the first matching rule. The raw command is tried first,
// then each simple command rendered with its quoting removed, so that
// `r"m" -rf /` is caught as well as `rm -rf /`.
func (g *Gate) Check(command string) (Match, bool) {
	if m, ok := g.match(command); ok {
		return m, true
	}
	for _, rendering := range Renderings(command) {
		if m, ok := g.match(rendering); ok {
			return m, true
		}
	}
	return Match{}, false
}

func (g *Gate) match(text string) (Match, bool) {
	for _, cr := range g.rules {
		if cr.regex.MatchString(text) {
			return Match{Rule: cr.rule, Rendering: text}, true
		}
	}
	return Match{}, false
}

// PatternError is returned by New for a rule that does not compile.
type PatternError struct {
	Rule Rule
	Err  error
}

func (e *PatternError) Error() string {
	return "invalid pattern for rule " + e.Rule.Name + ": " + e.Err.Error()
}

func (e *PatternError) Unwrap() error {
	return e.Err
}
