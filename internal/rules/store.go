package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Store owns the process-wide rule set. All mutation goes through the store
// under a single writer lock, and every mutation is persisted to the backing
// file before the in-memory copy is committed, so memory and disk cannot
// drift apart.
type Store struct {
	path string

	mu sync.RWMutex
	rs RuleSet
}

// Load reads the rule document at path. A missing file yields an empty rule
// set with the fallback default category; a malformed file is an error.
func Load(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		s.rs = RuleSet{Version: "v0", DefaultCategory: FallbackDefaultCategory}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var rs RuleSet
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}
	s.rs = rs
	return s, nil
}

// Reload re-reads the backing file, replacing the in-memory rule set.
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read rules file: %w", err)
	}
	var rs RuleSet
	if err := json.Unmarshal(data, &rs); err != nil {
		return fmt.Errorf("parse rules file: %w", err)
	}

	s.mu.Lock()
	s.rs = rs
	s.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the current rule set. The rules slice is copied
// so callers can iterate without holding the lock.
func (s *Store) Snapshot() RuleSet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rs := s.rs
	rs.Rules = make([]Rule, len(s.rs.Rules))
	copy(rs.Rules, s.rs.Rules)
	return rs
}

// Version returns the rule document version string.
func (s *Store) Version() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rs.Version
}

// DefaultCategory returns the configured default category.
func (s *Store) DefaultCategory() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rs.defaultCategory()
}

// Categorize runs the pure engine against the current rule set.
func (s *Store) Categorize(description string, amountMinor int64) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rs.Categorize(description, amountMinor)
}

// HasContainsRule reports whether any rule already maps the exact phrase to
// the exact category via contains_any.
func (s *Store) HasContainsRule(phrase, category string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rule := range s.rs.Rules {
		if rule.Category != category {
			continue
		}
		for _, p := range rule.Match.ContainsAny {
			if p == phrase {
				return true
			}
		}
	}
	return false
}

// Append adds a rule to the end of the set, persisting before committing in
// memory. On write failure the in-memory rule set is unchanged.
func (s *Store) Append(rule Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidate := s.rs
	candidate.Rules = make([]Rule, len(s.rs.Rules), len(s.rs.Rules)+1)
	copy(candidate.Rules, s.rs.Rules)
	candidate.Rules = append(candidate.Rules, rule)

	if err := s.write(candidate); err != nil {
		return err
	}
	s.rs = candidate
	return nil
}

// write rewrites the whole rule document.
func (s *Store) write(rs RuleSet) error {
	data, err := json.MarshalIndent(rs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal rules: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write rules file: %w", err)
	}
	return nil
}
