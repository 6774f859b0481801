package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testRuleSet() *RuleSet {
	return &RuleSet{
		Version:         "test",
		DefaultCategory: "Uncategorised",
		Rules: []Rule{
			{
				Name:     "Shops",
				Match:    Match{ContainsAny: []string{"acme"}},
				Category: "Shopping",
			},
			{
				Name:     "Groceries",
				Match:    Match{ContainsAny: []string{"acme store"}},
				Category: "Groceries",
			},
			{
				Name:     "Fuel",
				Match:    Match{RegexAny: []string{`\bshell\b`}},
				Category: "Transport",
			},
			{
				Name:     "Broken",
				Match:    Match{RegexAny: []string{`(unclosed`}},
				Category: "Never",
			},
		},
	}
}

func TestCategorize_FirstMatchWins(t *testing.T) {
	rs := testRuleSet()

	// "acme" appears in an earlier rule than "acme store", so the earlier
	// rule claims the description even though both would match.
	assert.Equal(t, "Shopping", rs.Categorize("ACME STORE #42", -1000))
	assert.Equal(t, "Shopping", rs.Categorize("acme widgets", -1000))
}

func TestCategorize_CaseAndWhitespace(t *testing.T) {
	rs := testRuleSet()
	assert.Equal(t, "Shopping", rs.Categorize("  AcMe \t industries ", -100))
}

func TestCategorize_Regex(t *testing.T) {
	rs := testRuleSet()
	assert.Equal(t, "Transport", rs.Categorize("SHELL SERVICE STATION", -5000))
	// substring without a word boundary does not match
	assert.Equal(t, "Uncategorised", rs.Categorize("seashells gift shop", -5000))
}

func TestCategorize_BadRegexSkipped(t *testing.T) {
	rs := testRuleSet()
	assert.Equal(t, "Uncategorised", rs.Categorize("unclosed account fee", -100))
}

func TestCategorize_Fallbacks(t *testing.T) {
	rs := testRuleSet()
	assert.Equal(t, "Income", rs.Categorize("mystery deposit", 5000))
	assert.Equal(t, "Uncategorised", rs.Categorize("mystery charge", -5000))
	assert.Equal(t, "Uncategorised", rs.Categorize("zero adjustment", 0))

	empty := &RuleSet{}
	assert.Equal(t, FallbackDefaultCategory, empty.Categorize("anything", -1))
}

func TestCategorize_EmptyCategoryUsesDefault(t *testing.T) {
	rs := &RuleSet{
		DefaultCategory: "Misc",
		Rules:           []Rule{{Match: Match{ContainsAny: []string{"fee"}}}},
	}
	assert.Equal(t, "Misc", rs.Categorize("monthly fee", -100))
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "acme store #42", NormalizeText("  ACME   Store\t#42 "))
	assert.Equal(t, "", NormalizeText("   "))
}

func TestLearningPhrase(t *testing.T) {
	cases := map[string]string{
		"Cafe Luna Wellington": "cafe",
		"The Warehouse":        "warehouse", // stop word skipped
		"BP 2GO":               "2go",       // short first word skipped
		"at on to":             "at",        // all stop words, fall back to first
		"ab cd":                "ab",        // all too short, fall back to first
		"":                     "",
		"   ":                  "",
	}
	for in, want := range cases {
		assert.Equal(t, want, LearningPhrase(in), "input %q", in)
	}
}
