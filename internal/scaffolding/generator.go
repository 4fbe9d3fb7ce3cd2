// Package scaffolding generates skeleton component definitions.
package scaffolding

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/snazzy/internal/errors"
	"github.com/conneroisu/snazzy/internal/scanner"
)

var componentName = regexp.MustCompile(`^[a-z]+[a-z0-9]*(?:-[a-z0-9]+)*$`)

// ComponentGenerator handles component scaffolding
type ComponentGenerator struct {
	tmpl    *template.Template
	entropy io.Reader
}

// NewComponentGenerator creates a new component generator
func NewComponentGenerator() *ComponentGenerator {
	return &ComponentGenerator{
		tmpl:    template.Must(template.New("component").Parse(componentTemplate)),
		entropy: rand.Reader,
	}
}

// ValidateComponentName checks that name is lowercase kebab case starting
// with a letter.
func ValidateComponentName(name string) error {
	if name == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidName, "component name cannot be empty")
	}
	if !componentName.MatchString(name) {
		return errors.NewValidationError(errors.ErrCodeInvalidName, fmt.Sprintf("invalid component name %q", name)).
			WithContext("pattern", componentName.String())
	}
	return nil
}

// ClassName converts a kebab case component name into the script class name,
// for example todo-list becomes TodoList.
func ClassName(name string) string {
	title := cases.Title(language.Und)
	parts := strings.Split(name, "-")
	for i, part := range parts {
		parts[i] = title.String(part)
	}
	return strings.Join(parts, "")
}

// Generate renders the skeleton for name.
func (g *ComponentGenerator) Generate(name string) ([]byte, error) {
	if err := ValidateComponentName(name); err != nil {
		return nil, err
	}

	scope, err := g.scope()
	if err != nil {
		return nil, errors.WrapInternal(err, errors.ErrCodeInternalError, "cannot generate css scope")
	}

	var buf bytes.Buffer
	ctx := TemplateContext{
		Name:      name,
		ClassName: ClassName(name),
		Scope:     scope,
	}
	if err := g.tmpl.Execute(&buf, ctx); err != nil {
		return nil, errors.WrapInternal(err, errors.ErrCodeInternalError, "cannot render component template")
	}
	return buf.Bytes(), nil
}

// WriteTo writes the skeleton for name into the +app directory of appDir and
// returns the created path. An existing file is never overwritten.
func (g *ComponentGenerator) WriteTo(appDir, name string) (string, error) {
	content, err := g.Generate(name)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(appDir, scanner.ComponentDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.WrapIO(err, errors.ErrCodeWriteFailed, "failed to create component directory").
			WithLocation(dir)
	}

	path := filepath.Join(dir, name+scanner.ComponentExt)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", errors.WrapIO(err, errors.ErrCodeWriteFailed, "failed to create component file").
			WithLocation(path)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		return "", errors.WrapIO(err, errors.ErrCodeWriteFailed, "failed to write component file").
			WithLocation(path)
	}
	if err := f.Close(); err != nil {
		return "", errors.WrapIO(err, errors.ErrCodeWriteFailed, "failed to write component file").
			WithLocation(path)
	}
	return path, nil
}

// scope returns eight random lowercase hex digits.
func (g *ComponentGenerator) scope() (string, error) {
	b := make([]byte, 4)
	if _, err := io.ReadFull(g.entropy, b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
