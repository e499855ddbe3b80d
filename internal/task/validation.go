package task

import (
	"fmt"
	"strings"
)

// Validation limits.
const (
	maxTitleLength       = 200
	maxDescriptionLength = 2000
	maxTags              = 20
	maxTagLength         = 50
)

// FieldError describes a single validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates field-level failures so a caller gets every
// problem in one response instead of fixing them one at a time.
type ValidationError struct {
	Fields []FieldError
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Field, f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validate checks a task's fields, returning a *ValidationError listing
// every failure, or nil if the task is valid.
func Validate(t *Task) error {
	var errs []FieldError

	if strings.TrimSpace(t.Title) == "" {
		errs = append(errs, FieldError{Field: "title", Message: "is required"})
	} else if len(t.Title) > maxTitleLength {
		errs = append(errs, FieldError{Field: "title", Message: "must be at most 200 characters"})
	}

	if len(t.Description) > maxDescriptionLength {
		errs = append(errs, FieldError{Field: "description", Message: "must be at most 2000 characters"})
	}

	if t.Status != "" && !IsValidStatus(t.Status) {
		errs = append(errs, FieldError{Field: "status", Message: "must be one of: pending, in-progress, completed"})
	}

	if t.Priority != "" && !IsValidPriority(t.Priority) {
		errs = append(errs, FieldError{Field: "priority", Message: "must be one of: low, medium, high"})
	}

	if len(t.Tags) > maxTags {
		errs = append(errs, FieldError{Field: "tags", Message: "must have at most 20 entries"})
	}
	for _, tag := range t.Tags {
		if strings.TrimSpace(tag) == "" || len(tag) > maxTagLength {
			errs = append(errs, FieldError{Field: "tags", Message: "entries must be non-empty and at most 50 characters"})
			break
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
