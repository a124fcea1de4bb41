package rules

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/tvabook-dev/tvabook/internal/model"
)

// Store holds the ordered ruleset backing classification. Readers work on
// immutable snapshots; mutations build a fresh ruleset, persist it, then
// swap the snapshot pointer, so a reader never observes a partial state.
type Store struct {
	path string
	mu   sync.Mutex // serializes read-modify-persist sequences
	snap atomic.Pointer[[]model.Rule]
}

// NewStore creates a Store backed by the ruleset document at path. The
// store is empty until Load or Replace succeeds.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing document path.
func (s *Store) Path() string { return s.path }

// Load reads the persisted ruleset. Either the full ruleset replaces the
// current snapshot or, on any error, the prior snapshot is retained.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		return &ConfigError{Path: s.path, Reason: "opening ruleset", Err: err}
	}
	defer f.Close()

	loaded, err := DecodeRules(f)
	if err != nil {
		return &ConfigError{Path: s.path, Reason: "parsing ruleset", Err: err}
	}

	for _, r := range loaded {
		if verr := ValidateRule(r.Category, r.Rate, r.Keywords); verr != nil {
			return &ConfigError{Path: s.path, Reason: "invalid rule " + r.Category, Err: verr}
		}
	}

	loaded = ensureUnclassified(loaded)
	s.snap.Store(&loaded)
	return nil
}

// Snapshot returns an immutable copy of the current ruleset, unclassified
// bucket last. Safe for concurrent use with mutations.
func (s *Store) Snapshot() []model.Rule {
	p := s.snap.Load()
	if p == nil {
		return nil
	}
	cur := *p
	out := make([]model.Rule, len(cur))
	for i, r := range cur {
		out[i] = r.Clone()
	}
	return out
}

// Get returns the rule for a category.
func (s *Store) Get(category string) (model.Rule, bool) {
	p := s.snap.Load()
	if p == nil {
		return model.Rule{}, false
	}
	for _, r := range *p {
		if r.Category == category {
			return r.Clone(), true
		}
	}
	return model.Rule{}, false
}

// Upsert validates and writes a rule, persisting the full ruleset before
// the in-memory snapshot is swapped. New categories are inserted ahead of
// the unclassified bucket so the fallback stays last.
func (s *Store) Upsert(category string, rate decimal.Decimal, keywords []string) (model.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.upsertLocked(category, rate, keywords)
}

// Create inserts a new category, failing with a ConflictError when it
// already exists. The existence check and the persist run under one lock,
// so two concurrent creates of the same category cannot both succeed.
func (s *Store) Create(category string, rate decimal.Decimal, keywords []string) (model.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trimmed := strings.TrimSpace(category)
	for _, r := range s.current() {
		if r.Category == trimmed {
			return model.Rule{}, &ConflictError{Category: trimmed}
		}
	}
	return s.upsertLocked(category, rate, keywords)
}

// UpdateMerged merges a partial payload into an existing rule and writes
// the result. A nil rate or nil keywords keeps the current value. The
// read, the merge and the persist run under one lock, so two concurrent
// partial updates cannot lose each other's fields.
func (s *Store) UpdateMerged(category string, rate *decimal.Decimal, keywords []string) (model.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing *model.Rule
	for _, r := range s.current() {
		if r.Category == category {
			found := r
			existing = &found
			break
		}
	}
	if existing == nil {
		return model.Rule{}, &NotFoundError{Category: category}
	}

	mergedRate := existing.Rate
	if rate != nil {
		mergedRate = *rate
	}
	mergedKeywords := existing.Keywords
	if keywords != nil {
		mergedKeywords = keywords
	}
	return s.upsertLocked(category, mergedRate, mergedKeywords)
}

// upsertLocked is the shared write path. Callers must hold mu.
func (s *Store) upsertLocked(category string, rate decimal.Decimal, keywords []string) (model.Rule, error) {
	rule, err := normalizeRule(category, rate, keywords)
	if err != nil {
		return model.Rule{}, err
	}

	cur := s.current()
	next := make([]model.Rule, 0, len(cur)+1)
	replaced := false
	for _, r := range cur {
		if r.Category == rule.Category {
			next = append(next, rule)
			replaced = true
		} else {
			next = append(next, r)
		}
	}
	if !replaced {
		if n := len(next); n > 0 && next[n-1].Category == model.UnclassifiedCategory {
			next = append(next[:n-1], rule, next[n-1])
		} else {
			next = append(next, rule)
		}
	}

	if err := s.persist(next); err != nil {
		return model.Rule{}, err
	}
	s.snap.Store(&next)
	return rule.Clone(), nil
}

// Remove deletes a category. The unclassified bucket is protected.
func (s *Store) Remove(category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if category == model.UnclassifiedCategory {
		return &ValidationError{Fields: []FieldError{
			{Field: "category", Reason: "the unclassified bucket cannot be removed"},
		}}
	}

	cur := s.current()
	next := make([]model.Rule, 0, len(cur))
	found := false
	for _, r := range cur {
		if r.Category == category {
			found = true
			continue
		}
		next = append(next, r)
	}
	if !found {
		return &NotFoundError{Category: category}
	}

	if err := s.persist(next); err != nil {
		return err
	}
	s.snap.Store(&next)
	return nil
}

// Replace swaps in a whole new ruleset (full replacement, not a merge).
func (s *Store) Replace(ruleset []model.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]model.Rule, 0, len(ruleset)+1)
	seen := make(map[string]bool, len(ruleset))
	for _, r := range ruleset {
		rule, err := normalizeRule(r.Category, r.Rate, r.Keywords)
		if err != nil {
			return err
		}
		if seen[rule.Category] {
			return &ValidationError{Fields: []FieldError{
				{Field: "category", Reason: "duplicate category " + rule.Category},
			}}
		}
		seen[rule.Category] = true
		next = append(next, rule)
	}
	next = ensureUnclassified(next)

	if err := s.persist(next); err != nil {
		return err
	}
	s.snap.Store(&next)
	return nil
}

// current returns the live slice for mutation paths. Callers must hold mu
// and must not modify the returned slice.
func (s *Store) current() []model.Rule {
	p := s.snap.Load()
	if p == nil {
		return nil
	}
	return *p
}

// persist writes the ruleset through a temp file + rename so a crashed
// write never leaves a truncated document behind.
func (s *Store) persist(ruleset []model.Rule) error {
	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return &PersistenceError{Path: s.path, Err: err}
	}
	if err := EncodeRules(f, ruleset); err != nil {
		f.Close()
		os.Remove(tmp)
		return &PersistenceError{Path: s.path, Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return &PersistenceError{Path: s.path, Err: err}
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return &PersistenceError{Path: s.path, Err: err}
	}
	return nil
}

// ValidateRule checks the constraints shared by create, update and the
// dry-run validator. Returns a *ValidationError listing every violated
// field, or nil.
func ValidateRule(category string, rate decimal.Decimal, keywords []string) error {
	var fields []FieldError

	if strings.TrimSpace(category) == "" {
		fields = append(fields, FieldError{Field: "category", Reason: "must not be empty"})
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		fields = append(fields, FieldError{Field: "rate", Reason: "must be between 0 and 100"})
	}
	if category != model.UnclassifiedCategory && len(keywords) == 0 {
		fields = append(fields, FieldError{Field: "keywords", Reason: "must not be empty"})
	}
	for _, kw := range keywords {
		if strings.TrimSpace(kw) == "" {
			fields = append(fields, FieldError{Field: "keywords", Reason: "keyword must not be blank"})
			break
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// normalizeRule validates a payload and returns the canonical rule form:
// trimmed category, lowercased deduplicated keywords.
func normalizeRule(category string, rate decimal.Decimal, keywords []string) (model.Rule, error) {
	category = strings.TrimSpace(category)
	if err := ValidateRule(category, rate, keywords); err != nil {
		return model.Rule{}, err
	}

	var kw []string
	seen := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if seen[k] {
			continue
		}
		seen[k] = true
		kw = append(kw, k)
	}

	return model.Rule{Category: category, Rate: rate, Keywords: kw}, nil
}

// ensureUnclassified appends the reserved fallback bucket when the ruleset
// lacks it, so documents written by older tooling keep loading.
func ensureUnclassified(ruleset []model.Rule) []model.Rule {
	for _, r := range ruleset {
		if r.Category == model.UnclassifiedCategory {
			return ruleset
		}
	}
	return append(ruleset, model.Rule{Category: model.UnclassifiedCategory, Rate: decimal.Zero})
}

// DefaultPath returns the ruleset document path inside a working directory.
func DefaultPath(dir string) string {
	return filepath.Join(dir, "tva_rules.json")
}
