package component

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/conneroisu/snazzy/internal/errors"
)

const rootElement = "component"

// MarkupRewriter rewrites asset references inside template markup.
type MarkupRewriter interface {
	RewriteMarkup(fragment string) (string, error)
}

type xmlComponent struct {
	XMLName      xml.Name
	Name         *string           `xml:"name,attr"`
	Dependencies []xmlDependencies `xml:"dependencies"`
	Templates    []xmlMarkup       `xml:"template"`
	Scripts      []xmlText         `xml:"script"`
	Styles       []xmlText         `xml:"style"`
}

type xmlDependencies struct {
	Items []xmlDependency `xml:"dependency"`
}

type xmlDependency struct {
	Name *string `xml:"name,attr"`
}

type xmlMarkup struct {
	Inner string `xml:",innerxml"`
}

type xmlText struct {
	Text string `xml:",chardata"`
}

// ParseFile reads and parses the definition at path. The path doubles as
// the record's source identifier.
func ParseFile(path string, rewriter MarkupRewriter) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO(err, errors.ErrCodeFileNotFound, "failed to read component definition").
			WithLocation(path)
	}
	return Parse(path, data, rewriter)
}

// Parse turns an XML component definition into a Record. The template
// markup is passed through rewriter before it is stored; a nil rewriter
// stores it unchanged.
func Parse(source string, data []byte, rewriter MarkupRewriter) (*Record, error) {
	var doc xmlComponent
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		return nil, &errors.MalformedComponentError{
			Source:  source,
			Element: rootElement,
			Reason:  "invalid XML",
			Cause:   err,
		}
	}

	if doc.XMLName.Local != rootElement {
		return nil, &errors.MalformedComponentError{
			Source:  source,
			Element: doc.XMLName.Local,
			Reason:  fmt.Sprintf("root element must be <%s>", rootElement),
		}
	}

	def := Definition{
		Name:   nameOf(doc.Name, source),
		Source: source,
	}

	sections := []struct {
		element string
		count   int
	}{
		{"dependencies", len(doc.Dependencies)},
		{"template", len(doc.Templates)},
		{"script", len(doc.Scripts)},
		{"style", len(doc.Styles)},
	}
	for _, section := range sections {
		if section.count > 1 {
			return nil, &errors.MalformedComponentError{
				Source:  source,
				Element: section.element,
				Reason:  fmt.Sprintf("section appears %d times", section.count),
			}
		}
	}

	if len(doc.Dependencies) == 1 {
		for _, dep := range doc.Dependencies[0].Items {
			if dep.Name == nil || strings.TrimSpace(*dep.Name) == "" {
				return nil, &errors.MalformedComponentError{
					Source:  source,
					Element: "dependency",
					Reason:  "missing name attribute",
				}
			}
			def.Dependencies = append(def.Dependencies, strings.TrimSpace(*dep.Name))
		}
	}

	if len(doc.Templates) == 1 {
		markup := doc.Templates[0].Inner
		if rewriter != nil {
			rewritten, err := rewriter.RewriteMarkup(markup)
			if err != nil {
				return nil, &errors.MalformedComponentError{
					Source:  source,
					Element: "template",
					Reason:  "cannot rewrite asset paths",
					Cause:   err,
				}
			}
			markup = rewritten
		}
		def.Template = Text(markup)
	}
	if len(doc.Scripts) == 1 {
		def.Script = Text(doc.Scripts[0].Text)
	}
	if len(doc.Styles) == 1 {
		def.Style = Text(doc.Styles[0].Text)
	}

	return New(def)
}

// nameOf returns the explicit name attribute, or the source base name without
// its .xml extension.
func nameOf(attr *string, source string) string {
	if attr != nil {
		if name := strings.TrimSpace(*attr); name != "" {
			return name
		}
	}
	return strings.TrimSuffix(filepath.Base(source), ".xml")
}
