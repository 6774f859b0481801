// Package rules implements the ordered category rule set: a pure matching
// engine plus a persistent, reloadable store guarding process-wide mutation.
package rules

import (
	"regexp"
	"strings"
)

// Category names with fixed semantics across the system.
const (
	CategoryIncome   = "Income"
	CategoryTransfer = "Transfer"

	// FallbackDefaultCategory is used when the rule-set document does not
	// declare a default.
	FallbackDefaultCategory = "Uncategorised"
)

// Match describes how a rule matches a normalized description.
type Match struct {
	ContainsAny []string `json:"contains_any,omitempty"`
	RegexAny    []string `json:"regex_any,omitempty"`
}

// Rule maps matching descriptions to a category. Rules are evaluated in
// declaration order; the first rule with any match wins.
type Rule struct {
	Name     string `json:"name"`
	Match    Match  `json:"match"`
	Category string `json:"category"`
}

// RuleSet is the persisted rule document.
type RuleSet struct {
	Version         string `json:"version"`
	DefaultCategory string `json:"default_category"`
	Rules           []Rule `json:"rules"`
}

// NormalizeText collapses whitespace runs to a single space, trims and
// lowercases. Matching always runs against this form.
func NormalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func (rs *RuleSet) defaultCategory() string {
	if rs.DefaultCategory != "" {
		return rs.DefaultCategory
	}
	return FallbackDefaultCategory
}

// Categorize assigns a category to a transaction description. Pure: no I/O,
// no mutation. For each rule in order, contains_any phrases are checked
// before regex_any patterns; a pattern that fails to compile is skipped.
// With no match, positive amounts are Income and everything else gets the
// default category.
func (rs *RuleSet) Categorize(description string, amountMinor int64) string {
	d := NormalizeText(description)

	for _, rule := range rs.Rules {
		category := rule.Category
		if category == "" {
			category = rs.defaultCategory()
		}

		for _, phrase := range rule.Match.ContainsAny {
			phrase = strings.ToLower(strings.TrimSpace(phrase))
			if phrase == "" {
				continue
			}
			if strings.Contains(d, phrase) {
				return category
			}
		}

		for _, pattern := range rule.Match.RegexAny {
			re, err := regexp.Compile(pattern)
			if err != nil {
				continue // bad pattern is skipped, never fatal
			}
			if re.MatchString(d) {
				return category
			}
		}
	}

	if amountMinor > 0 {
		return CategoryIncome
	}
	return rs.defaultCategory()
}

// stopWords are too generic to learn a rule from.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "or": {}, "at": {}, "in": {}, "on": {},
	"to": {}, "for": {}, "of": {}, "with": {}, "by": {},
}

// LearningPhrase extracts a keyword from a corrected transaction's
// description: the first normalized word longer than two characters that is
// not a stop word, falling back to the first word. Empty descriptions yield
// an empty phrase.
func LearningPhrase(description string) string {
	words := strings.Fields(NormalizeText(description))
	if len(words) == 0 {
		return ""
	}
	for _, w := range words {
		if len(w) > 2 {
			if _, skip := stopWords[w]; !skip {
				return w
			}
		}
	}
	return words[0]
}
