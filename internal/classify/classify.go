// Package classify keeps stored transactions consistent with the current
// rule set: bulk re-application of rules and learning new rules from user
// corrections.
package classify

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"budgetsniffer/internal/database"
	"budgetsniffer/internal/rules"
)

// ErrNotFound is returned when a fingerprint does not match any stored row.
var ErrNotFound = errors.New("transaction not found")

// Syncer serializes rule application and corrections. Concurrent corrections
// would otherwise race on the rule set and the bulk updates.
type Syncer struct {
	db    *database.DB
	rules *rules.Store
	log   *slog.Logger

	mu sync.Mutex
}

// New creates a Syncer over the given storage and rule store.
func New(db *database.DB, ruleStore *rules.Store, log *slog.Logger) *Syncer {
	return &Syncer{db: db, rules: ruleStore, log: log}
}

// CorrectionResult reports what a user correction changed.
type CorrectionResult struct {
	Hash          string `json:"hash"`
	Category      string `json:"category"`
	LearnedPhrase string `json:"learned_phrase,omitempty"`
	QuickUpdated  int    `json:"affected_like"`
	Relabelled    int    `json:"relabelled_total"`
}

// ApplyAll re-applies the current rule set to every stored transaction.
// Idempotent: a second run with unchanged rules and data reports zero changes.
func (s *Syncer) ApplyAll() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyAll()
}

// applyAll must be called with s.mu held.
func (s *Syncer) applyAll() (int, error) {
	rs := s.rules.Snapshot()

	var phrases []database.PhraseRule
	for _, rule := range rs.Rules {
		category := rule.Category
		if category == "" {
			category = s.rules.DefaultCategory()
		}
		for _, phrase := range rule.Match.ContainsAny {
			phrases = append(phrases, database.PhraseRule{Phrase: phrase, Category: category})
		}
	}

	changed, err := s.db.ApplyCategoryRules(phrases, rs.Categorize)
	if err != nil {
		return 0, fmt.Errorf("apply rules: %w", err)
	}
	if changed > 0 {
		s.log.Info("rules_applied", "changed_rows", changed, "rule_count", len(rs.Rules))
	}
	return changed, nil
}

// Correct updates one transaction's category by fingerprint and learns a
// rule from it: the learning phrase is extracted from the description, a
// contains rule is appended unless an identical mapping already exists, the
// new phrase is applied with a quick bulk update, and the full rule set is
// re-applied for global consistency. Rule persistence failure aborts the
// learning step without mutating the in-memory rule set.
func (s *Syncer) Correct(hash, category string) (*CorrectionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, err := s.db.GetTransactionByHash(hash)
	if err != nil {
		return nil, fmt.Errorf("look up transaction: %w", err)
	}
	if txn == nil {
		return nil, ErrNotFound
	}

	if _, err := s.db.UpdateCategoryByHash(hash, category); err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}

	result := &CorrectionResult{Hash: hash, Category: category}

	phrase := rules.LearningPhrase(txn.Description)
	if phrase == "" {
		// Nothing to learn from, and without a rule covering this row a full
		// re-apply would revert the correction. Leave the single-row update
		// as the final state.
		return result, nil
	}
	result.LearnedPhrase = phrase

	if !s.rules.HasContainsRule(phrase, category) {
		rule := rules.Rule{
			Name:     fmt.Sprintf("User: %s -> %s", phrase, category),
			Match:    rules.Match{ContainsAny: []string{phrase}},
			Category: category,
		}
		if err := s.rules.Append(rule); err != nil {
			return nil, fmt.Errorf("persist learned rule: %w", err)
		}
		s.log.Info("rule_learned", "phrase", phrase, "category", category)

		quick, err := s.db.BulkUpdateCategoryBySubstring(phrase, category)
		if err != nil {
			return nil, fmt.Errorf("apply learned phrase: %w", err)
		}
		result.QuickUpdated = int(quick)
	}

	relabelled, err := s.applyAll()
	if err != nil {
		return nil, err
	}
	result.Relabelled = relabelled

	return result, nil
}

// ReloadAndApply re-reads the rule file and re-applies it to storage.
func (s *Syncer) ReloadAndApply() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.rules.Reload(); err != nil {
		return 0, fmt.Errorf("reload rules: %w", err)
	}
	s.log.Info("rules_reloaded", "version", s.rules.Version())
	return s.applyAll()
}
