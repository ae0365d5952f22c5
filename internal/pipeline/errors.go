package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/crimson-sun/healthguard/internal/store"
)

var (
	// ErrNotFound is returned for unknown incident or escalation ids.
	ErrNotFound = store.ErrNotFound

	// ErrInternal wraps unexpected failures, including recovered panics.
	ErrInternal = errors.New("pipeline: internal error")

	// ErrAlreadyAcknowledged is returned when acknowledging an escalation twice.
	ErrAlreadyAcknowledged = errors.New("pipeline: escalation already acknowledged")
)

// ValidationError reports request fields that are missing or malformed.
type ValidationError struct {
	Fields  []string
	Message string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "pipeline: validation: " + e.Message
	}
	return fmt.Sprintf("pipeline: validation: %s: %s", e.Message, strings.Join(e.Fields, ", "))
}

func missingFields(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields, Message: "missing required fields"}
}
