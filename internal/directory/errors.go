package directory

import (
	"errors"
	"sort"
	"strings"
)

// ErrNotFound is returned when no record exists for the requested id.
var ErrNotFound = errors.New("record not found")

// ValidationError carries one message per rejected field, keyed by the field's JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// add records a message for field unless the field already has one.
func (e *ValidationError) add(field string, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

// has reports whether field has been rejected.
func (e *ValidationError) has(field string) bool {
	_, exists := e.Fields[field]
	return exists
}

// empty reports whether no field has been rejected.
func (e *ValidationError) empty() bool {
	return len(e.Fields) == 0
}

const phoneTakenMessage = "The phone has already been taken."

// phoneTaken is the validation error for a phone number that belongs to another record.
func phoneTaken() *ValidationError {
	verr := &ValidationError{}
	verr.add("phone", phoneTakenMessage)
	return verr
}
