// Package component holds the parsed form of a single component definition
// and the parser that produces it.
package component

import (
	"strings"

	"github.com/conneroisu/snazzy/internal/errors"
)

// Fragment is one optional section of a component. An absent fragment and a
// present but empty one are different: only present fragments are handed to
// a transformer.
type Fragment struct {
	Text    string
	Present bool
}

// Text returns a present fragment holding s.
func Text(s string) Fragment {
	return Fragment{Text: s, Present: true}
}

// Definition is the mutable input to New.
type Definition struct {
	Name         string
	Source       string
	Dependencies []string
	Template     Fragment
	Script       Fragment
	Style        Fragment
}

// Record is an immutable, validated component.
type Record struct {
	name         string
	source       string
	dependencies []string
	template     Fragment
	script       Fragment
	style        Fragment
}

// New validates def and returns the corresponding record.
func New(def Definition) (*Record, error) {
	if strings.TrimSpace(def.Name) == "" {
		return nil, &errors.MalformedComponentError{
			Source:  def.Source,
			Element: "component",
			Reason:  "component name is empty",
		}
	}

	deps := make([]string, len(def.Dependencies))
	for i, dep := range def.Dependencies {
		if strings.TrimSpace(dep) == "" {
			return nil, &errors.MalformedComponentError{
				Source:  def.Source,
				Element: "dependency",
				Reason:  "dependency name is empty",
			}
		}
		deps[i] = dep
	}

	return &Record{
		name:         def.Name,
		source:       def.Source,
		dependencies: deps,
		template:     def.Template,
		script:       def.Script,
		style:        def.Style,
	}, nil
}

// Name returns the component name, unique within one application build.
func (r *Record) Name() string { return r.name }

// Source identifies where the record was read from.
func (r *Record) Source() string { return r.source }

// Dependencies returns the declared dependencies in declaration order.
// Duplicates are kept.
func (r *Record) Dependencies() []string {
	out := make([]string, len(r.dependencies))
	copy(out, r.dependencies)
	return out
}

// Template returns the handlebars markup as stored by the parser.
func (r *Record) Template() Fragment { return r.template }

// Script returns the component's script source.
func (r *Record) Script() Fragment { return r.script }

// Style returns the component's stylesheet source.
func (r *Record) Style() Fragment { return r.style }
