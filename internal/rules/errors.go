package rules

import (
	"fmt"
	"strings"
)

// ConfigError reports a malformed persisted ruleset at load time.
type ConfigError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rules config %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("rules config %s: %s", e.Path, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// FieldError is one violated constraint on a rule payload.
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ValidationError lists every violated field of a mutation payload.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// ConflictError reports a mutation that clashes with existing state: a
// create for a category that already exists, or a delete of a category
// still referenced by a pending report.
type ConflictError struct {
	Category string
	Reason   string
}

func (e *ConflictError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("category %q: %s", e.Category, e.Reason)
	}
	return fmt.Sprintf("category %q already exists", e.Category)
}

// NotFoundError reports an update or delete on a missing category.
type NotFoundError struct {
	Category string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("category %q not found", e.Category)
}

// PersistenceError reports an I/O failure during write-through.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persisting rules to %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
