package transform

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/conneroisu/snazzy/internal/config"
	"github.com/conneroisu/snazzy/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	for _, bin := range []string{"sh", "cat", "tr"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not available: %v", bin, err)
		}
	}
}

func TestArgv(t *testing.T) {
	t.Setenv("SNAZZY_TEST_FLAG", "--fast")

	tests := []struct {
		name      string
		cmd       Command
		component string
		expected  []string
	}{
		{
			name:      "component expansion",
			cmd:       Command{Line: `./node_modules/.bin/handlebars --name "$COMPONENT" -i -`},
			component: "todo-list",
			expected:  []string{"./node_modules/.bin/handlebars", "--name", "todo-list", "-i", "-"},
		},
		{
			name:     "extra args appended",
			cmd:      Command{Line: "sass --stdin", Args: []string{"--style=compressed"}},
			expected: []string{"sass", "--stdin", "--style=compressed"},
		},
		{
			name:     "environment",
			cmd:      Command{Line: "babel $SNAZZY_TEST_FLAG"},
			expected: []string{"babel", "--fast"},
		},
		{
			name:     "single quotes are literal",
			cmd:      Command{Line: `sh -c 'echo "$COMPONENT"'`},
			expected: []string{"sh", "-c", `echo "$COMPONENT"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			argv, err := Argv(tt.cmd, tt.component)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, argv)
		})
	}
}

func TestArgvErrors(t *testing.T) {
	_, err := Argv(Command{Line: "   "}, "")
	assert.Error(t, err)

	_, err = Argv(Command{Line: `sass "unterminated`}, "")
	assert.Error(t, err)
}

func TestCommandTransformer(t *testing.T) {
	requireShell(t)

	cfg := config.TransformConfig{
		Template: config.ToolConfig{Command: `sh -c 'printf "%s:" "$0"; cat' "$COMPONENT"`},
		Script:   config.ToolConfig{Command: "tr a-z A-Z"},
		Style:    config.ToolConfig{Command: "cat", DebugArgs: []string{"-u"}},
		Timeout:  10 * time.Second,
	}
	tr := NewCommandTransformer(cfg, true)
	ctx := context.Background()

	out, err := tr.CompileTemplate(ctx, "card", "<div>hi</div>")
	require.NoError(t, err)
	assert.Equal(t, "CARD:<DIV>HI</DIV>", out)

	out, err = tr.TranspileScript(ctx, "let x = 1;")
	require.NoError(t, err)
	assert.Equal(t, "LET X = 1;", out)

	out, err = tr.CompileStyle(ctx, ".a { color: red }")
	require.NoError(t, err)
	assert.Equal(t, ".a { color: red }", out)
}

func TestCommandTransformerWithDir(t *testing.T) {
	requireShell(t)

	dir := t.TempDir()
	bin := filepath.Join(dir, "node_modules", ".bin")
	require.NoError(t, os.MkdirAll(bin, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bin, "upper"), []byte("#!/bin/sh\ntr a-z A-Z\n"), 0o755))

	cfg := config.TransformConfig{
		Template: config.ToolConfig{Command: "cat"},
		Script:   config.ToolConfig{Command: "./node_modules/.bin/upper"},
		Style:    config.ToolConfig{Command: `sh -c 'cat >/dev/null; pwd'`},
	}
	tr := NewCommandTransformer(cfg, false).WithDir(dir)
	ctx := context.Background()

	out, err := tr.TranspileScript(ctx, "main();")
	require.NoError(t, err)
	assert.Equal(t, "MAIN();", out)

	out, err = tr.CompileStyle(ctx, "")
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCommandTransformerFailure(t *testing.T) {
	requireShell(t)

	cfg := config.TransformConfig{
		Template: config.ToolConfig{Command: "cat"},
		Script:   config.ToolConfig{Command: "cat"},
		Style:    config.ToolConfig{Command: `sh -c 'cat >/dev/null; echo "Error: expected }" >&2; exit 3'`},
	}
	tr := NewCommandTransformer(cfg, false)

	_, err := tr.CompileStyle(context.Background(), ".a {")
	require.Error(t, err)

	var toolErr *errors.ExternalToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, ToolStyle, toolErr.Tool)
	assert.Equal(t, "sh", toolErr.Args[0])
	assert.Equal(t, "Error: expected }", strings.TrimSpace(toolErr.Diagnostic))

	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.ExitCode())
}

func TestCommandTransformerMissingBinary(t *testing.T) {
	cfg := config.TransformConfig{
		Template: config.ToolConfig{Command: "snazzy-no-such-tool-xyz"},
		Script:   config.ToolConfig{Command: "cat"},
		Style:    config.ToolConfig{Command: "cat"},
	}

	_, err := NewCommandTransformer(cfg, false).CompileTemplate(context.Background(), "a", "x")

	var toolErr *errors.ExternalToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, ToolTemplate, toolErr.Tool)
}

func TestCommandTransformerCancellation(t *testing.T) {
	requireShell(t)

	cfg := config.TransformConfig{
		Template: config.ToolConfig{Command: "cat"},
		Script:   config.ToolConfig{Command: "sh -c 'sleep 30'"},
		Style:    config.ToolConfig{Command: "cat"},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := NewCommandTransformer(cfg, false).TranspileScript(ctx, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestFunc(t *testing.T) {
	ctx := context.Background()

	var identity Func
	out, err := identity.CompileTemplate(ctx, "a", "<p/>")
	require.NoError(t, err)
	assert.Equal(t, "<p/>", out)

	upper := Func{Style: func(_ context.Context, src string) (string, error) {
		return strings.ToUpper(src), nil
	}}
	out, err = upper.CompileStyle(ctx, "a{}")
	require.NoError(t, err)
	assert.Equal(t, "A{}", out)
}
