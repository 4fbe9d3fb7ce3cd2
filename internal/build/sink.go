package build

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/conneroisu/snazzy/internal/errors"
)

// Output is everything one application build produces.
type Output struct {
	// App is the application name, a slash-separated path relative to the
	// source directory.
	App        string
	ScriptName string
	StyleName  string
	Bundle     *Bundle
	// Page is the processed index.html.
	Page []byte
}

// Sink receives the output of successful application builds. It is only
// called once assembly has completed.
type Sink interface {
	Write(ctx context.Context, out *Output) error
}

// DirSink writes outputs below a site directory, one subdirectory per
// application.
type DirSink struct {
	root string
}

// NewDirSink creates a sink writing below root.
func NewDirSink(root string) *DirSink {
	return &DirSink{root: root}
}

// Root returns the site directory.
func (s *DirSink) Root() string {
	return s.root
}

// Dir returns the directory the application's files are written to.
func (s *DirSink) Dir(app string) string {
	return filepath.Join(s.root, filepath.FromSlash(app))
}

// Write stores the bundle streams and the page. Every file is staged in a
// temporary file first; the files are only moved into place once all of them
// were written, and a failing move restores the previous output.
func (s *DirSink) Write(ctx context.Context, out *Output) error {
	dir := s.Dir(out.App)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WrapIO(err, errors.ErrCodeWriteFailed, "failed to create output directory").
			WithLocation(dir)
	}

	files := []outputFile{
		{name: out.ScriptName, data: out.Bundle.Script},
		{name: out.StyleName, data: out.Bundle.Style},
	}
	if out.Page != nil {
		files = append(files, outputFile{name: "index.html", data: out.Page})
	}

	defer func() {
		for _, f := range files {
			if f.tmp != "" {
				_ = os.Remove(f.tmp)
			}
		}
	}()

	for i := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		f := &files[i]
		f.path = filepath.Join(dir, f.name)
		if info, err := os.Lstat(f.path); err == nil && info.IsDir() {
			return errors.NewIOError(errors.ErrCodeWriteFailed, "output path is a directory").
				WithLocation(f.path)
		}
		tmp, err := writeTemp(f.path, f.data)
		if err != nil {
			return errors.WrapIO(err, errors.ErrCodeWriteFailed, "failed to write output").
				WithLocation(f.path)
		}
		f.tmp = tmp
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return commit(files)
}

type outputFile struct {
	name string
	data []byte
	path string
	tmp  string
}

// commit moves the staged files into place. Existing files are moved aside
// first so a failed move can put them back.
func commit(files []outputFile) error {
	backups := make([]string, len(files))
	restore := func() {
		for i, f := range files {
			if backups[i] != "" {
				_ = os.Rename(backups[i], f.path)
			}
		}
	}

	for i, f := range files {
		if _, err := os.Lstat(f.path); err != nil {
			continue
		}
		backup := f.tmp + ".old"
		if err := os.Rename(f.path, backup); err != nil {
			restore()
			return errors.WrapIO(err, errors.ErrCodeWriteFailed, "failed to replace output").
				WithLocation(f.path)
		}
		backups[i] = backup
	}

	for i := range files {
		if err := os.Rename(files[i].tmp, files[i].path); err != nil {
			for _, done := range files[:i] {
				_ = os.Remove(done.path)
			}
			restore()
			return errors.WrapIO(err, errors.ErrCodeWriteFailed, "failed to write output").
				WithLocation(files[i].path)
		}
		files[i].tmp = ""
	}

	for _, backup := range backups {
		if backup != "" {
			_ = os.Remove(backup)
		}
	}
	return nil
}

// writeTemp writes data to a new temporary file next to path and returns its
// name.
func writeTemp(path string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return "", err
	}
	return tmpName, nil
}

// MemorySink keeps outputs in memory, keyed by application name.
type MemorySink struct {
	mu      sync.Mutex
	outputs map[string]*Output
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{outputs: make(map[string]*Output)}
}

func (s *MemorySink) Write(_ context.Context, out *Output) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.outputs[out.App] = out
	return nil
}

// Get returns the output stored for app.
func (s *MemorySink) Get(app string) (*Output, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, ok := s.outputs[app]
	return out, ok
}

// Len returns the number of stored outputs.
func (s *MemorySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.outputs)
}
