package transform

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"mvdan.cc/sh/v3/shell"

	"github.com/conneroisu/snazzy/internal/config"
	"github.com/conneroisu/snazzy/internal/errors"
)

// Tool names used in ExternalToolError.
const (
	ToolTemplate = "template"
	ToolScript   = "script"
	ToolStyle    = "style"
)

// componentVar expands to the component name in a command line.
const componentVar = "COMPONENT"

// Command is one configured external processor.
type Command struct {
	// Line is a shell-style command line, split and expanded without a
	// shell.
	Line string
	// Args are appended after the fields of Line.
	Args []string
}

// CommandTransformer runs each fragment through an external command, feeding
// the fragment on stdin and taking the result from stdout. Template output is
// additionally passed through the script command.
type CommandTransformer struct {
	template Command
	script   Command
	style    Command
	timeout  time.Duration
	dir      string
}

var _ Transformer = (*CommandTransformer)(nil)

// NewCommandTransformer builds a transformer from the transform configuration.
// debug selects the tools' debug arguments.
func NewCommandTransformer(cfg config.TransformConfig, debug bool) *CommandTransformer {
	return &CommandTransformer{
		template: Command{Line: cfg.Template.Command, Args: cfg.Template.ExtraArgs(debug)},
		script:   Command{Line: cfg.Script.Command, Args: cfg.Script.ExtraArgs(debug)},
		style:    Command{Line: cfg.Style.Command, Args: cfg.Style.ExtraArgs(debug)},
		timeout:  cfg.Timeout,
	}
}

// WithDir sets the working directory of every command.
func (c *CommandTransformer) WithDir(dir string) *CommandTransformer {
	c.dir = dir
	return c
}

// CompileTemplate runs the template command and then the script command on
// its output.
func (c *CommandTransformer) CompileTemplate(ctx context.Context, name, markup string) (string, error) {
	compiled, err := c.run(ctx, ToolTemplate, c.template, name, markup)
	if err != nil {
		return "", err
	}
	return c.TranspileScript(ctx, compiled)
}

func (c *CommandTransformer) TranspileScript(ctx context.Context, src string) (string, error) {
	return c.run(ctx, ToolScript, c.script, "", src)
}

func (c *CommandTransformer) CompileStyle(ctx context.Context, src string) (string, error) {
	return c.run(ctx, ToolStyle, c.style, "", src)
}

// Argv returns the argument vector cmd runs with for component.
func Argv(cmd Command, component string) ([]string, error) {
	fields, err := shell.Fields(cmd.Line, func(name string) string {
		if name == componentVar {
			return component
		}
		return os.Getenv(name)
	})
	if err != nil {
		return nil, fmt.Errorf("parse command line %q: %w", cmd.Line, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty command line")
	}
	return append(fields, cmd.Args...), nil
}

func (c *CommandTransformer) run(ctx context.Context, tool string, cmd Command, component, input string) (string, error) {
	argv, err := Argv(cmd, component)
	if err != nil {
		return "", &errors.ExternalToolError{Tool: tool, Cause: err}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	proc := exec.CommandContext(ctx, argv[0], argv[1:]...)
	proc.Dir = c.dir
	proc.Stdin = strings.NewReader(input)
	proc.Stdout = &stdout
	proc.Stderr = &stderr
	proc.WaitDelay = time.Second

	if err := proc.Run(); err != nil {
		// Report cancellation rather than the kill signal it caused.
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return "", &errors.ExternalToolError{
			Tool:       tool,
			Args:       argv,
			Diagnostic: stderr.String(),
			Cause:      err,
		}
	}

	return stdout.String(), nil
}
