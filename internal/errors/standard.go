// Package errors provides the engine's standardized error type: every
// failure the runner can report carries a category, a stable code, and the
// name of the function that called New (for an error built by one of the
// category constructors, that constructor), so embedders can match on
// category without string-parsing messages.
package errors

import (
	"fmt"
	"runtime"
)

// Category classifies a StandardError into one of the buckets the trial
// runner distinguishes (spec §7).
type Category string

const (
	CategoryBadArgs    Category = "BAD_ARGS"
	CategoryMemory     Category = "MEMORY"
	CategoryAlloc      Category = "ALLOC"
	CategoryShrink     Category = "SHRINK"
	CategoryHook       Category = "HOOK"
	CategoryTrial      Category = "TRIAL"
	CategorySubprocess Category = "SUBPROCESS"
)

// StandardError is the engine's uniform error shape.
type StandardError struct {
	Category Category
	Code     string
	Message  string
	Context  map[string]interface{}
	Caller   string
}

// Error implements the error interface.
func (e *StandardError) Error() string {
	return fmt.Sprintf("[%s:%s] %s (caller: %s)", e.Category, e.Code, e.Message, e.Caller)
}

// New creates a StandardError, capturing the immediate caller's function
// name for diagnostics. When New is reached through BadArgs, Trial or
// another constructor below, the recorded caller is that constructor.
func New(category Category, code, message string, context map[string]interface{}) *StandardError {
	pc, _, _, ok := runtime.Caller(1)
	caller := "unknown"
	if ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			caller = fn.Name()
		}
	}
	return &StandardError{
		Category: category,
		Code:     code,
		Message:  message,
		Context:  context,
		Caller:   caller,
	}
}

// BadArgs reports a config validation failure: bad arity, a missing alloc
// callback, or a descriptor setting both shrink and autoshrink (spec §4.5).
func BadArgs(reason string, context map[string]interface{}) *StandardError {
	return New(CategoryBadArgs, "BAD_ARGS", reason, context)
}

// Memory reports an allocation failure in the engine's own bookkeeping —
// bit pool growth, bloom filter allocation — rather than the user's alloc
// callback.
func Memory(reason string, context map[string]interface{}) *StandardError {
	return New(CategoryMemory, "MEMORY", reason, context)
}

// Alloc reports a fatal AllocError returned by a user's alloc callback,
// distinct from AllocSkip, which is not an error.
func Alloc(argIndex int, reason string) *StandardError {
	return New(CategoryAlloc, "ALLOC_ERROR", reason, map[string]interface{}{"arg_index": argIndex})
}

// Shrink reports a fatal error from a user shrink callback or the
// autoshrink engine.
func Shrink(argIndex int, reason string) *StandardError {
	return New(CategoryShrink, "SHRINK_ERROR", reason, map[string]interface{}{"arg_index": argIndex})
}

// Hook reports a fatal Error response from a runner hook.
func Hook(hookName, reason string) *StandardError {
	return New(CategoryHook, "HOOK_ERROR", reason, map[string]interface{}{"hook": hookName})
}

// Trial reports a fatal error encountered while dispatching or evaluating a
// property, such as a failure to spawn a forked child. A forked child that
// crashes or times out is a failed trial, not a Trial error.
func Trial(reason string, context map[string]interface{}) *StandardError {
	return New(CategoryTrial, "TRIAL_ERROR", reason, context)
}

// Subprocess reports a failure specific to forked property dispatch —
// spawn failure, signal delivery failure. The runner maps these to a
// TrialError at the embedder boundary (spec §4.7).
func Subprocess(reason string, context map[string]interface{}) *StandardError {
	return New(CategorySubprocess, "SUBPROCESS_ERROR", reason, context)
}
