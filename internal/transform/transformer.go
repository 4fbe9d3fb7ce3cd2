// Package transform defines the fragment processors that turn component
// templates, scripts and styles into their compiled form, and an adapter
// that runs them as external commands.
package transform

import (
	"context"
)

// Transformer converts the fragments of one component. Implementations must
// be safe for concurrent use; failures are reported as
// *errors.ExternalToolError where a tool was involved.
type Transformer interface {
	// CompileTemplate precompiles template markup registered under name.
	CompileTemplate(ctx context.Context, name, markup string) (string, error)
	TranspileScript(ctx context.Context, src string) (string, error)
	CompileStyle(ctx context.Context, src string) (string, error)
}

// Func adapts plain functions to a Transformer. A nil function returns its
// input unchanged.
type Func struct {
	Template func(ctx context.Context, name, markup string) (string, error)
	Script   func(ctx context.Context, src string) (string, error)
	Style    func(ctx context.Context, src string) (string, error)
}

var _ Transformer = Func{}

// CompileTemplate calls f.Template.
func (f Func) CompileTemplate(ctx context.Context, name, markup string) (string, error) {
	if f.Template == nil {
		return markup, nil
	}
	return f.Template(ctx, name, markup)
}

// TranspileScript calls f.Script.
func (f Func) TranspileScript(ctx context.Context, src string) (string, error) {
	if f.Script == nil {
		return src, nil
	}
	return f.Script(ctx, src)
}

// CompileStyle calls f.Style.
func (f Func) CompileStyle(ctx context.Context, src string) (string, error) {
	if f.Style == nil {
		return src, nil
	}
	return f.Style(ctx, src)
}
