package shared

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError attaches one or more messages to a single form field. Nested
// list elements use indexed paths, e.g. "details[2].route".
type FieldError struct {
	Field    string   `json:"field"`
	Messages []string `json:"messages"`
}

// FieldErrors collects field-level validation failures for one save request.
// The zero value is ready to use.
type FieldErrors struct {
	fields []FieldError
}

// Add appends a message to the given field path, merging with an existing
// entry for the same path.
func (e *FieldErrors) Add(field, message string) {
	for i := range e.fields {
		if e.fields[i].Field == field {
			e.fields[i].Messages = append(e.fields[i].Messages, message)
			return
		}
	}
	e.fields = append(e.fields, FieldError{Field: field, Messages: []string{message}})
}

// Merge folds another collection into this one.
func (e *FieldErrors) Merge(other *FieldErrors) {
	if other == nil {
		return
	}
	for _, f := range other.fields {
		for _, m := range f.Messages {
			e.Add(f.Field, m)
		}
	}
}

// Fields returns the collected errors in insertion order.
func (e *FieldErrors) Fields() []FieldError {
	if e == nil {
		return nil
	}
	return e.fields
}

// Empty reports whether no failure has been recorded.
func (e *FieldErrors) Empty() bool { return e == nil || len(e.fields) == 0 }

// Err returns the collection as an error, or nil when empty.
func (e *FieldErrors) Err() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *FieldErrors) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed")
	for _, f := range e.fields {
		sb.WriteString(fmt.Sprintf("; %s: %s", f.Field, strings.Join(f.Messages, ", ")))
	}
	return sb.String()
}

// AsFieldErrors unwraps err into a FieldErrors collection when possible.
func AsFieldErrors(err error) (*FieldErrors, bool) {
	var fe *FieldErrors
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// FromValidator translates go-playground validation failures into field
// errors keyed by the struct's json field names.
func FromValidator(err error) *FieldErrors {
	fe := &FieldErrors{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fe.Add("", err.Error())
		return fe
	}
	for _, v := range verrs {
		path := v.Namespace()
		// Strip the root struct name; the caller addresses fields relative
		// to the request body.
		if idx := strings.Index(path, "."); idx >= 0 {
			path = path[idx+1:]
		}
		fe.Add(path, fmt.Sprintf("failed on %q validation", v.Tag()))
	}
	return fe
}
