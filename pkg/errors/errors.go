// Package errors defines the shared error taxonomy for the jobforge
// pipeline. The loader, dispatcher, and component generators all signal
// failures through the same Error type so callers can classify them with
// errors.As and the Is* predicates without inspecting message text.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error raised by the pipeline.
type Kind string

const (
	// KindParse indicates a malformed input document.
	KindParse Kind = "parse"

	// KindIncludeResolution indicates an inclusion path that could not be
	// read after exhausting the search path.
	KindIncludeResolution Kind = "include-resolution"

	// KindSubstitution indicates a required placeholder was missing during
	// interpolation and empty substitutions are not tolerated.
	KindSubstitution Kind = "substitution"

	// KindUnknownComponent indicates a name that matched neither a macro
	// nor a generator within a category.
	KindUnknownComponent Kind = "unknown-component"

	// KindDuplicateDefinition indicates two generators registered the same
	// name within one category.
	KindDuplicateDefinition Kind = "duplicate-definition"

	// KindMissingAttribute indicates a generator required data that was
	// absent from the component definition.
	KindMissingAttribute Kind = "missing-attribute"

	// KindInvalidAttribute indicates a generator received a value outside
	// its allowed set.
	KindInvalidAttribute Kind = "invalid-attribute"
)

// Error is a classified pipeline error with optional context fields.
type Error struct {
	// Kind is the taxonomy classification.
	Kind Kind

	// Message is the human-readable error message.
	Message string

	// Component is the component name involved, if applicable.
	Component string

	// Category is the component category involved, if applicable.
	Category string

	// Attribute is the attribute name for attribute errors.
	Attribute string

	// SearchPath records the attempted include search path for
	// include-resolution errors.
	SearchPath []string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Kind, e.Message)
	if e.Component != "" && e.Category != "" {
		fmt.Fprintf(&b, " (component=%s, category=%s)", e.Component, e.Category)
	} else if e.Component != "" {
		fmt.Fprintf(&b, " (component=%s)", e.Component)
	}
	if e.Attribute != "" {
		fmt.Fprintf(&b, " (attribute=%s)", e.Attribute)
	}
	if len(e.SearchPath) > 0 {
		fmt.Fprintf(&b, " (search path: %s)", strings.Join(e.SearchPath, ":"))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %s", e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements kind-based equality for errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewParse creates a parse error.
func NewParse(message string, err error) *Error {
	return &Error{Kind: KindParse, Message: message, Err: err}
}

// NewIncludeResolution creates an include-resolution error carrying the
// attempted search path.
func NewIncludeResolution(path string, searchPath []string, err error) *Error {
	return &Error{
		Kind:       KindIncludeResolution,
		Message:    fmt.Sprintf("failed to include file %q", path),
		SearchPath: searchPath,
		Err:        err,
	}
}

// NewSubstitution creates a substitution error for a missing placeholder.
func NewSubstitution(placeholder string) *Error {
	return &Error{
		Kind:      KindSubstitution,
		Message:   fmt.Sprintf("missing placeholder %q", placeholder),
		Attribute: placeholder,
	}
}

// NewUnknownComponent creates an unknown-component error naming both the
// component and its category.
func NewUnknownComponent(category, name string) *Error {
	return &Error{
		Kind:      KindUnknownComponent,
		Message:   fmt.Sprintf("unknown component or macro %q for category %q", name, category),
		Component: name,
		Category:  category,
	}
}

// NewDuplicateDefinition creates a duplicate-definition error.
func NewDuplicateDefinition(category, name string) *Error {
	return &Error{
		Kind:      KindDuplicateDefinition,
		Message:   fmt.Sprintf("component %q already registered for category %q", name, category),
		Component: name,
		Category:  category,
	}
}

// NewMissingAttribute creates a missing-attribute error.
func NewMissingAttribute(attribute string) *Error {
	return &Error{
		Kind:      KindMissingAttribute,
		Message:   fmt.Sprintf("missing required attribute %q", attribute),
		Attribute: attribute,
	}
}

// NewInvalidAttribute creates an invalid-attribute error listing the
// accepted values.
func NewInvalidAttribute(attribute string, value any, allowed []string) *Error {
	return &Error{
		Kind:      KindInvalidAttribute,
		Message:   fmt.Sprintf("invalid value %v for attribute %q (allowed: %s)", value, attribute, strings.Join(allowed, ", ")),
		Attribute: attribute,
	}
}

// IsParse returns true if the error is classified as a parse error.
func IsParse(err error) bool { return isKind(err, KindParse) }

// IsIncludeResolution returns true for include-resolution errors.
func IsIncludeResolution(err error) bool { return isKind(err, KindIncludeResolution) }

// IsSubstitution returns true for substitution errors.
func IsSubstitution(err error) bool { return isKind(err, KindSubstitution) }

// IsUnknownComponent returns true for unknown-component errors.
func IsUnknownComponent(err error) bool { return isKind(err, KindUnknownComponent) }

// IsDuplicateDefinition returns true for duplicate-definition errors.
func IsDuplicateDefinition(err error) bool { return isKind(err, KindDuplicateDefinition) }

// IsMissingAttribute returns true for missing-attribute errors.
func IsMissingAttribute(err error) bool { return isKind(err, KindMissingAttribute) }

// IsInvalidAttribute returns true for invalid-attribute errors.
func IsInvalidAttribute(err error) bool { return isKind(err, KindInvalidAttribute) }

func isKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the kind of a classified error, or "internal" for
// errors outside the taxonomy. Useful as a metrics label.
func KindOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return string(e.Kind)
	}
	return "internal"
}
