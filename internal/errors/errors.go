// Package errors provides centralized error handling with optional telemetry
// integration. Errors are wrapped with a component, a category and free-form
// context so log output and crash reports group cleanly.
package errors

import (
	stderrors "errors"
	"fmt"
	"sync"
	"time"
)

// ErrorCategory represents the type of error for better categorization.
type ErrorCategory string

const (
	CategoryValidation    ErrorCategory = "validation"
	CategoryConfiguration ErrorCategory = "configuration"
	CategorySharedMemory  ErrorCategory = "shared-memory"
	CategoryAudio         ErrorCategory = "audio-processing"
	CategoryState         ErrorCategory = "state"
	CategorySystem        ErrorCategory = "system-resource"
	CategoryFileIO        ErrorCategory = "file-io"
	CategoryGeneric       ErrorCategory = "generic"
)

// ComponentUnknown is used when the component has not been set.
const ComponentUnknown = "unknown"

// EnhancedError wraps an error with additional context and metadata.
type EnhancedError struct {
	Err       error          // original error
	Category  ErrorCategory  // error category for grouping
	Context   map[string]any // additional context data
	Timestamp time.Time      // when the error was built
	component string
}

// Error implements the error interface.
func (ee *EnhancedError) Error() string {
	return ee.Err.Error()
}

// Unwrap implements the error unwrapping interface.
func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

// Is matches either the wrapped error chain or, for two EnhancedErrors,
// their categories.
func (ee *EnhancedError) Is(target error) bool {
	if ee2, ok := target.(*EnhancedError); ok {
		return ee.Category == ee2.Category
	}
	return stderrors.Is(ee.Err, target)
}

// GetComponent returns the component name the error was tagged with.
func (ee *EnhancedError) GetComponent() string {
	if ee.component == "" {
		return ComponentUnknown
	}
	return ee.component
}

// GetCategory returns the error category as a string.
func (ee *EnhancedError) GetCategory() string {
	return string(ee.Category)
}

// ErrorBuilder builds an EnhancedError step by step.
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

// New starts building an enhanced error from an existing error.
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err, category: CategoryGeneric}
}

// Newf starts building an enhanced error from a format string.
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Component tags the error with the component it originated in.
func (b *ErrorBuilder) Component(name string) *ErrorBuilder {
	b.component = name
	return b
}

// Category sets the error category.
func (b *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	b.category = category
	return b
}

// Context attaches a key/value pair of context data.
func (b *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if b.context == nil {
		b.context = make(map[string]any)
	}
	b.context[key] = value
	return b
}

// Build finalizes the enhanced error and hands it to the registered
// reporter, if any.
func (b *ErrorBuilder) Build() error {
	ee := &EnhancedError{
		Err:       b.err,
		Category:  b.category,
		Context:   b.context,
		Timestamp: time.Now(),
		component: b.component,
	}
	report(ee)
	return ee
}

var (
	reporterMu sync.RWMutex
	reporter   func(*EnhancedError)
)

// SetReporter registers a function invoked once for every built error,
// used to forward errors to an external crash-reporting service. Passing
// nil disables reporting.
func SetReporter(fn func(*EnhancedError)) {
	reporterMu.Lock()
	reporter = fn
	reporterMu.Unlock()
}

func report(ee *EnhancedError) {
	reporterMu.RLock()
	fn := reporter
	reporterMu.RUnlock()
	if fn != nil {
		fn(ee)
	}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool { return stderrors.As(err, target) }

// Unwrap returns the result of calling the Unwrap method on err.
func Unwrap(err error) error { return stderrors.Unwrap(err) }
