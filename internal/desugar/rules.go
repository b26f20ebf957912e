// Package desugar translates cargo-style version requirements into the
// npm-style semver ranges understood by the resolver fixtures.
//
// Compound requirements ("^1.2, < 1.5") have no single equivalent in the
// target grammar. Every rule picks a range that is never wider than the
// original constraint set: a resolver fed the result may reject versions
// cargo would accept, but never selects one cargo would exclude.
package desugar

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Rule rewrites requirements matching Pattern.
type Rule struct {
	Name    string
	Example string
	pattern *regexp.Regexp
	rewrite func(m []string) (string, bool)
}

// Pattern returns the regular expression the rule matches against.
func (r Rule) Pattern() string {
	return r.pattern.String()
}

func (r Rule) apply(req string) (string, bool) {
	m := r.pattern.FindStringSubmatch(req)
	if m == nil {
		return "", false
	}
	return r.rewrite(m)
}

func rule(name, example, pattern string, rewrite func(m []string) (string, bool)) Rule {
	return Rule{
		Name:    name,
		Example: example,
		pattern: regexp.MustCompile(pattern),
		rewrite: rewrite,
	}
}

// Order matters: the first matching rule wins.
var defaultRules = []Rule{
	rule("wildcard-patch", "1.2.x", `^(\d+)\.(\d+)\.[*xX]$`, func(m []string) (string, bool) {
		return minorRange(m[1], m[2])
	}),
	rule("wildcard-minor", "1.*", `^(\d+)\.[*xX]$`, func(m []string) (string, bool) {
		return majorRange(m[1])
	}),
	rule("wildcard-minor-patch", "1.x.x", `^(\d+)\.[*xX]\.[*xX]$`, func(m []string) (string, bool) {
		return majorRange(m[1])
	}),
	rule("exact", "= 1.2.3", `^= *([0-9a-zA-Z.-]+)$`, func(m []string) (string, bool) {
		return m[1], true
	}),
	rule("greater", "> 1.2.3", `^> *([0-9.]+)$`, func(m []string) (string, bool) {
		return "^" + m[1], true
	}),
	rule("caret-min", "^1.2.3, >= 1.5.0", `^\^([0-9.]+) *>= *([0-9.]+)$`, func(m []string) (string, bool) {
		return "^" + m[2], true
	}),
	rule("caret-below", "^1.2.3, < 1.5.0", `^\^([0-9.]+) *< *([0-9.]+)$`, func(m []string) (string, bool) {
		return halfOpen(m[1], m[2]), true
	}),
	rule("caret-max", "^1.2.3, <= 1.5.0", `^\^([0-9.]+) *<= *([0-9.]+)$`, func(m []string) (string, bool) {
		return m[1], true
	}),
	rule("closed", ">= 1.2.3, <= 1.5.0", `^>= *([0-9.]+) *<= *([0-9.]+)$`, func(m []string) (string, bool) {
		return halfOpen(m[1], m[2]), true
	}),
	rule("caret-caret", "^1.2.3, ^1.2.0", `^\^ *([0-9.]+) *\^ *([0-9.]+)$`, func(m []string) (string, bool) {
		return "^" + m[1], true
	}),
	rule("open", "> 1.2.3, < 1.5.0", `^> *([0-9.]+) *< *([0-9.]+)$`, func(m []string) (string, bool) {
		return halfOpen(m[1], m[2]), true
	}),
	rule("min-wildcard", ">= 1.2.3, 1.x", `^>= *([0-9.]+) *([0-9.]+\.[*xX])$`, func(m []string) (string, bool) {
		return "^" + m[1], true
	}),
}

// Rules returns the rule table in evaluation order.
func Rules() []Rule {
	out := make([]Rule, len(defaultRules))
	copy(out, defaultRules)
	return out
}

// Desugar returns the target-grammar range for req, or req unchanged when
// no rule matches.
func Desugar(req string) string {
	out, _, _ := apply(defaultRules, req)
	return out
}

// Match reports which rule, if any, handles req.
func Match(req string) (Rule, bool) {
	_, r, ok := apply(defaultRules, req)
	return r, ok
}

// normalize turns comma-separated bounds into the space-separated form the
// rules match against.
func normalize(req string) string {
	return strings.TrimSpace(strings.ReplaceAll(req, ",", " "))
}

func apply(rules []Rule, req string) (string, Rule, bool) {
	normalized := normalize(req)
	for _, r := range rules {
		if out, ok := r.apply(normalized); ok {
			return out, r, true
		}
	}
	return req, Rule{}, false
}

func halfOpen(lower, upper string) string {
	return fmt.Sprintf(">= %s < %s", lower, upper)
}

func minorRange(major, minor string) (string, bool) {
	n, err := strconv.Atoi(minor)
	if err != nil {
		return "", false
	}
	return fmt.Sprintf(">=%s.%s.0 <%s.%d.0", major, minor, major, n+1), true
}

func majorRange(major string) (string, bool) {
	n, err := strconv.Atoi(major)
	if err != nil {
		return "", false
	}
	return fmt.Sprintf(">=%s.0.0 <%d.0.0", major, n+1), true
}
