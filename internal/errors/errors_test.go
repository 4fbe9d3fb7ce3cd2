package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnazzyErrorError(t *testing.T) {
	err := NewBuildError(ErrCodeBuildFailed, "bundle failed", fmt.Errorf("boom")).
		WithComponent("todo-list").
		WithLocation("app/+app/todo-list.xml")

	msg := err.Error()
	assert.Contains(t, msg, "[ERR_BUILD_FAILED]")
	assert.Contains(t, msg, "component:todo-list")
	assert.Contains(t, msg, "app/+app/todo-list.xml")
	assert.Contains(t, msg, "bundle failed: boom")
}

func TestSnazzyErrorIs(t *testing.T) {
	a := WrapConfig(New("port out of range"), ErrCodeConfigInvalid, "bad port")
	b := WrapConfig(New("bad character"), ErrCodeConfigInvalid, "bad host")
	c := NewBuildError(ErrCodeBuildFailed, "x", nil)

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestWrapBuildKeepsCause(t *testing.T) {
	toolErr := &ExternalToolError{Tool: "script", Diagnostic: "SyntaxError: unexpected token"}
	wrapped := WrapBuild(toolErr, ErrCodeTransformFailed, "fragment transform failed", "button").
		WithLocation("button.xml")

	require.NotNil(t, wrapped)
	assert.Equal(t, ErrorTypeBuild, wrapped.Type)
	assert.False(t, IsConfigError(wrapped))
	assert.Equal(t, "button", wrapped.Component)

	var target *ExternalToolError
	require.True(t, errors.As(wrapped, &target))
	assert.Equal(t, "script", target.Tool)
	assert.Contains(t, wrapped.Error(), "SyntaxError")
}

func TestWrapPreservesLocation(t *testing.T) {
	inner := NewBuildError(ErrCodeBuildFailed, "inner", nil).WithComponent("card").WithLocation("card.xml")
	outer := WrapIO(inner, ErrCodeWriteFailed, "outer")

	assert.Equal(t, "card", outer.Component)
	assert.Equal(t, "card.xml", outer.Source)
	assert.Nil(t, Wrap(nil, ErrorTypeIO, "x", "y"))
}

func TestDomainErrorMessages(t *testing.T) {
	t.Run("malformed", func(t *testing.T) {
		err := &MalformedComponentError{Source: "a.xml", Element: "dependency", Reason: "missing name attribute"}
		assert.Equal(t, "malformed component a.xml: <dependency>: missing name attribute", err.Error())
	})

	t.Run("unknown dependency", func(t *testing.T) {
		err := &UnknownDependencyError{Component: "b", Source: "b.xml", Dependency: "zzz"}
		assert.Contains(t, err.Error(), `"zzz"`)
		assert.Contains(t, err.Error(), "b.xml")
	})

	t.Run("cycle", func(t *testing.T) {
		err := &CyclicDependencyError{Path: []string{"a", "b", "a"}}
		assert.Equal(t, "dependency cycle detected: a -> b -> a", err.Error())
	})

	t.Run("external tool", func(t *testing.T) {
		cause := errors.New("exit status 1")
		err := &ExternalToolError{Tool: "style", Args: []string{"sass", "--stdin"}, Diagnostic: "  Error: expected \"}\"\n", Cause: cause}
		assert.Equal(t, "style tool failed (sass --stdin): exit status 1\nError: expected \"}\"", err.Error())
		assert.ErrorIs(t, err, cause)
	})
}
