package registry

import (
	"testing"

	"github.com/conneroisu/snazzy/internal/component"
	"github.com/conneroisu/snazzy/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(t testing.TB, name string, deps ...string) *component.Record {
	t.Helper()
	rec, err := component.New(component.Definition{
		Name:         name,
		Source:       name + ".xml",
		Dependencies: deps,
	})
	require.NoError(t, err)
	return rec
}

func TestNewComponentRegistry(t *testing.T) {
	registry := NewComponentRegistry()

	assert.NotNil(t, registry)
	assert.Equal(t, 0, registry.Count())
	assert.Empty(t, registry.All())
}

func TestComponentRegistry_Register(t *testing.T) {
	registry := NewComponentRegistry()

	button := newRecord(t, "button")
	card := newRecord(t, "card", "button")
	require.NoError(t, registry.Register(card))
	require.NoError(t, registry.Register(button))

	retrieved, exists := registry.Get("button")
	assert.True(t, exists)
	assert.Equal(t, button, retrieved)

	_, exists = registry.Get("missing")
	assert.False(t, exists)

	assert.Equal(t, 2, registry.Count())
	assert.Equal(t, []string{"card", "button"}, registry.Names())
	assert.Equal(t, []*component.Record{card, button}, registry.All())
}

func TestComponentRegistry_RegisterDuplicate(t *testing.T) {
	registry := NewComponentRegistry()
	require.NoError(t, registry.Register(newRecord(t, "button")))

	dup, err := component.New(component.Definition{Name: "button", Source: "other/button.xml"})
	require.NoError(t, err)

	err = registry.Register(dup)
	var malformed *errors.MalformedComponentError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "name", malformed.Element)
	assert.Equal(t, "other/button.xml", malformed.Source)
	assert.Equal(t, 1, registry.Count())
}

func TestComponentRegistry_AllReturnsCopy(t *testing.T) {
	registry := NewComponentRegistry()
	require.NoError(t, registry.Register(newRecord(t, "a")))

	all := registry.All()
	all[0] = nil

	got, _ := registry.Get("a")
	assert.NotNil(t, got)
	assert.NotNil(t, registry.All()[0])
}

func TestComponentRegistry_Dependents(t *testing.T) {
	registry := NewComponentRegistry()
	require.NoError(t, registry.Register(newRecord(t, "icon")))
	require.NoError(t, registry.Register(newRecord(t, "button", "icon")))
	require.NoError(t, registry.Register(newRecord(t, "toolbar", "button", "icon", "icon")))

	dependents := registry.GetDependents("icon")
	require.Len(t, dependents, 2)
	assert.Equal(t, "button", dependents[0].Name())
	assert.Equal(t, "toolbar", dependents[1].Name())

	assert.Empty(t, registry.GetDependents("toolbar"))
}

func TestComponentRegistry_ResolveOrder(t *testing.T) {
	registry := NewComponentRegistry()
	require.NoError(t, registry.Register(newRecord(t, "a", "b")))
	require.NoError(t, registry.Register(newRecord(t, "b", "c")))
	require.NoError(t, registry.Register(newRecord(t, "c")))

	order, err := registry.ResolveOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, order)
}
