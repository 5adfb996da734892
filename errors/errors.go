// Package errors provides error constructors that record the call site,
// so failures deep in the hook or session layers can be traced without
// stack traces.
package errors

import (
	"fmt"
	"path/filepath"
	"runtime"
)

func callSite() string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "???:0"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}

// New creates a new error annotated with the caller's file and line.
func New(format string, a ...interface{}) error {
	return fmt.Errorf("[%s] %s", callSite(), fmt.Sprintf(format, a...))
}

// Wrap adds the call site to an existing error. Returns nil for nil input.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("[%s] %s: %w", callSite(), msg, err)
}

// Wrapf adds formatted context (including file and line) to an existing
// error. If the provided error is nil, Wrapf returns nil.
func Wrapf(err error, format string, a ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("[%s] %s: %w", callSite(), fmt.Sprintf(format, a...), err)
}
