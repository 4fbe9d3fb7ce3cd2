package errors

import (
	"fmt"
	"strings"
)

// MalformedComponentError reports a structural problem in one component
// definition.
type MalformedComponentError struct {
	// Source identifies the definition, usually its file path.
	Source string
	// Element is the offending element or attribute ("component", "name", "dependency", ...).
	Element string
	Reason  string
	Cause   error
}

func (e *MalformedComponentError) Error() string {
	msg := fmt.Sprintf("malformed component %s: <%s>: %s", e.Source, e.Element, e.Reason)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *MalformedComponentError) Unwrap() error {
	return e.Cause
}

// UnknownDependencyError reports a declared dependency with no matching
// component in the build set.
type UnknownDependencyError struct {
	Component  string
	Source     string
	Dependency string
}

func (e *UnknownDependencyError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("component %q (%s) depends on unknown component %q", e.Component, e.Source, e.Dependency)
	}
	return fmt.Sprintf("component %q depends on unknown component %q", e.Component, e.Dependency)
}

// CyclicDependencyError carries the cycle as traversed: it starts and ends
// with the first repeated component, e.g. [a b a] or [d d].
type CyclicDependencyError struct {
	Path []string
}

func (e *CyclicDependencyError) Error() string {
	return "dependency cycle detected: " + strings.Join(e.Path, " -> ")
}

// ExternalToolError reports a failed invocation of a fragment transform tool.
type ExternalToolError struct {
	// Tool is the logical tool ("template", "script", "style").
	Tool string
	Args []string
	// Diagnostic is whatever the tool wrote to stderr.
	Diagnostic string
	Cause      error
}

func (e *ExternalToolError) Error() string {
	msg := fmt.Sprintf("%s tool failed", e.Tool)
	if len(e.Args) > 0 {
		msg += fmt.Sprintf(" (%s)", strings.Join(e.Args, " "))
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	if d := strings.TrimSpace(e.Diagnostic); d != "" {
		msg += "\n" + d
	}
	return msg
}

func (e *ExternalToolError) Unwrap() error {
	return e.Cause
}
