// Package admin exposes safe CRUD over the rule store. Every mutation is
// validated, persisted write-through by the store, checked against the
// report archive where relevant, and recorded in the audit log.
package admin

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tvabook-dev/tvabook/internal/auditlog"
	"github.com/tvabook-dev/tvabook/internal/model"
	"github.com/tvabook-dev/tvabook/internal/rules"
)

// ReferenceChecker reports whether a category is still referenced by a
// pending report. The archive implements it; a nil checker skips the check.
type ReferenceChecker interface {
	ReferencesCategory(category string) (bool, error)
}

// Service coordinates rule mutations.
type Service struct {
	store   *rules.Store
	refs    ReferenceChecker
	workDir string // audit log location; empty disables auditing
	log     *slog.Logger
}

// NewService creates an admin Service over a rule store.
func NewService(store *rules.Store, refs ReferenceChecker, workDir string, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, refs: refs, workDir: workDir, log: log}
}

// Payload carries a rule mutation. Nil fields mean "keep the existing
// value" on update; both are required on create.
type Payload struct {
	Rate     *decimal.Decimal
	Keywords []string
}

// List returns the current ruleset snapshot in store order.
func (s *Service) List() []model.Rule {
	return s.store.Snapshot()
}

// Get returns one rule.
func (s *Service) Get(category string) (model.Rule, error) {
	r, ok := s.store.Get(category)
	if !ok {
		return model.Rule{}, &rules.NotFoundError{Category: category}
	}
	return r, nil
}

// Create adds a new category. Fails with a ConflictError when the
// category already exists; the store holds its lock across the existence
// check and the persist, so concurrent creates race safely.
func (s *Service) Create(actor, category string, p Payload) (model.Rule, error) {
	if p.Rate == nil {
		return model.Rule{}, &rules.ValidationError{Fields: []rules.FieldError{
			{Field: "rate", Reason: "required"},
		}}
	}

	rule, err := s.store.Create(category, *p.Rate, p.Keywords)
	if err != nil {
		return model.Rule{}, err
	}
	s.audit(actor, "create", category, describe(rule))
	return rule, nil
}

// Update mutates an existing category. Partial payloads are merged with
// the current rule inside the store's critical section: a nil rate or nil
// keywords leaves that field alone, and concurrent partial updates cannot
// overwrite each other's fields.
func (s *Service) Update(actor, category string, p Payload) (model.Rule, error) {
	rule, err := s.store.UpdateMerged(category, p.Rate, p.Keywords)
	if err != nil {
		return model.Rule{}, err
	}
	s.audit(actor, "update", category, describe(rule))
	return rule, nil
}

// ReplaceAll swaps in a complete ruleset (explicit full replace).
func (s *Service) ReplaceAll(actor string, ruleset []model.Rule) error {
	if err := s.store.Replace(ruleset); err != nil {
		return err
	}
	s.audit(actor, "replace", "*", fmt.Sprintf("%d categories", len(ruleset)))
	return nil
}

// Delete removes a category. The unclassified bucket is always refused;
// categories referenced by a pending archived report are refused with a
// ConflictError until the report is declared.
func (s *Service) Delete(actor, category string) error {
	if category != model.UnclassifiedCategory && s.refs != nil {
		referenced, err := s.refs.ReferencesCategory(category)
		if err != nil {
			return fmt.Errorf("checking report references: %w", err)
		}
		if referenced {
			return &rules.ConflictError{Category: category, Reason: "referenced by a pending report"}
		}
	}

	if err := s.store.Remove(category); err != nil {
		return err
	}
	s.audit(actor, "delete", category, "")
	return nil
}

// ValidationResult is the dry-run validator outcome.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Validate mirrors the constraint checks of the mutating operations
// without side effects. Kind is "create", "update" or "delete".
func (s *Service) Validate(kind, category string, p Payload) ValidationResult {
	var errs []string

	appendErr := func(err error) {
		if verr, ok := err.(*rules.ValidationError); ok {
			for _, f := range verr.Fields {
				errs = append(errs, f.Error())
			}
			return
		}
		errs = append(errs, err.Error())
	}

	switch kind {
	case "create":
		if _, ok := s.store.Get(category); ok {
			appendErr(&rules.ConflictError{Category: category})
		}
		var rate decimal.Decimal
		if p.Rate == nil {
			errs = append(errs, "rate: required")
		} else {
			rate = *p.Rate
		}
		if err := rules.ValidateRule(category, rate, p.Keywords); err != nil {
			appendErr(err)
		}
	case "update":
		existing, ok := s.store.Get(category)
		if !ok {
			appendErr(&rules.NotFoundError{Category: category})
			break
		}
		rate := existing.Rate
		if p.Rate != nil {
			rate = *p.Rate
		}
		keywords := existing.Keywords
		if p.Keywords != nil {
			keywords = p.Keywords
		}
		if err := rules.ValidateRule(category, rate, keywords); err != nil {
			appendErr(err)
		}
	case "delete":
		if category == model.UnclassifiedCategory {
			errs = append(errs, "category: the unclassified bucket cannot be removed")
			break
		}
		if _, ok := s.store.Get(category); !ok {
			appendErr(&rules.NotFoundError{Category: category})
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown validation kind %q", kind))
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// audit appends one entry to the rules audit log. Audit failures are
// logged but do not fail the mutation that already persisted.
func (s *Service) audit(actor, action, category, details string) {
	if s.workDir == "" {
		return
	}
	entry := auditlog.Entry{
		Timestamp: time.Now().UTC(),
		Actor:     actor,
		Action:    action,
		Category:  category,
		Details:   details,
	}
	if err := auditlog.Append(s.workDir, []auditlog.Entry{entry}); err != nil {
		s.log.Warn("failed to write audit log", "action", action, "category", category, "error", err)
	}
}

func describe(r model.Rule) string {
	return fmt.Sprintf("rate=%s keywords=%s", r.Rate.String(), strings.Join(r.Keywords, "|"))
}
