// Package scanner discovers the applications below a source directory.
//
// An application is a directory holding an index.html page and a +app.js
// entry point. Its components are the *.xml definitions below the sibling
// +app directory:
//
//	web/
//	  index.html
//	  +app.js
//	  +app/
//	    button.xml
//	    widgets/card.xml
//
// Discovery order is lexical by path, which makes every later stage
// deterministic.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/conneroisu/snazzy/internal/logging"
)

const (
	// PageFile is the application page.
	PageFile = "index.html"
	// EntryPointFile is the application entry point script.
	EntryPointFile = "+app.js"
	// ComponentDir holds the component definitions of an application.
	ComponentDir = "+app"
	// ComponentExt is the extension of component definitions.
	ComponentExt = ".xml"
)

// App is one discovered application.
type App struct {
	// Name is the slash-separated path of the application relative to the
	// source directory, "." for the source directory itself.
	Name       string   `json:"name" yaml:"name"`
	Dir        string   `json:"dir" yaml:"dir"`
	Page       string   `json:"page" yaml:"page"`
	EntryPoint string   `json:"entry_point" yaml:"entry_point"`
	Components []string `json:"components" yaml:"components"`
}

// Scanner finds applications and their component definitions.
type Scanner struct {
	root    string
	siteDir string
	exclude []string
	logger  logging.Logger
}

// New creates a scanner rooted at root. Directories matching an exclude
// pattern, by base name or by path relative to root, are skipped, as is
// siteDir so that build output is never mistaken for input.
func New(root, siteDir string, exclude []string, logger logging.Logger) *Scanner {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Scanner{
		root:    filepath.Clean(root),
		siteDir: filepath.Clean(siteDir),
		exclude: exclude,
		logger:  logger.WithComponent("scanner"),
	}
}

// Root returns the source directory.
func (s *Scanner) Root() string {
	return s.root
}

// Discover walks the source directory and returns every application in
// lexical path order.
func (s *Scanner) Discover(ctx context.Context) ([]App, error) {
	var apps []App

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != s.root && (s.Excluded(path) || d.Name() == ComponentDir) {
			return filepath.SkipDir
		}

		app, ok, err := s.appAt(path)
		if err != nil {
			return err
		}
		if ok {
			s.logger.Debug(ctx, "application found", "app", app.Name, "components", len(app.Components))
			apps = append(apps, app)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover applications in %s: %w", s.root, err)
	}

	return apps, nil
}

// appAt reports whether dir is an application and describes it.
func (s *Scanner) appAt(dir string) (App, bool, error) {
	page := filepath.Join(dir, PageFile)
	entry := filepath.Join(dir, EntryPointFile)
	if !isFile(page) || !isFile(entry) {
		return App{}, false, nil
	}

	components, err := s.ComponentFiles(dir)
	if err != nil {
		return App{}, false, err
	}

	name, err := filepath.Rel(s.root, dir)
	if err != nil {
		return App{}, false, err
	}

	return App{
		Name:       filepath.ToSlash(name),
		Dir:        dir,
		Page:       page,
		EntryPoint: entry,
		Components: components,
	}, true, nil
}

// ComponentFiles returns the component definitions of the application in
// appDir sorted by path. A missing component directory yields none.
func (s *Scanner) ComponentFiles(appDir string) ([]string, error) {
	compDir := filepath.Join(appDir, ComponentDir)
	if info, err := os.Stat(compDir); err != nil || !info.IsDir() {
		return nil, nil
	}

	var files []string
	err := filepath.WalkDir(compDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != compDir && s.Excluded(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ComponentExt) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// Excluded reports whether path is the site directory or matches an exclude
// pattern.
func (s *Scanner) Excluded(path string) bool {
	clean := filepath.Clean(path)
	if sameDir(clean, s.siteDir) {
		return true
	}

	base := filepath.Base(clean)
	rel, err := filepath.Rel(s.root, clean)
	if err != nil {
		rel = clean
	}
	rel = filepath.ToSlash(rel)

	for _, pattern := range s.exclude {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func sameDir(a, b string) bool {
	if a == b {
		return true
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
