package registry

import (
	"testing"

	"github.com/conneroisu/snazzy/internal/component"
	"github.com/conneroisu/snazzy/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		records  func(t *testing.T) []*component.Record
		expected []string
	}{
		{
			name:     "empty",
			records:  func(t *testing.T) []*component.Record { return nil },
			expected: []string{},
		},
		{
			name: "chain in discovery order",
			records: func(t *testing.T) []*component.Record {
				return []*component.Record{newRecord(t, "A"), newRecord(t, "B", "A"), newRecord(t, "C", "B")}
			},
			expected: []string{"A", "B", "C"},
		},
		{
			name: "chain in reverse discovery order",
			records: func(t *testing.T) []*component.Record {
				return []*component.Record{newRecord(t, "C", "B"), newRecord(t, "B", "A"), newRecord(t, "A")}
			},
			expected: []string{"A", "B", "C"},
		},
		{
			name: "diamond follows declaration order",
			records: func(t *testing.T) []*component.Record {
				return []*component.Record{
					newRecord(t, "app", "list", "header"),
					newRecord(t, "header", "icon"),
					newRecord(t, "icon"),
					newRecord(t, "list", "icon"),
				}
			},
			expected: []string{"icon", "list", "header", "app"},
		},
		{
			name: "duplicate dependencies are idempotent",
			records: func(t *testing.T) []*component.Record {
				return []*component.Record{newRecord(t, "b", "a", "a"), newRecord(t, "a")}
			},
			expected: []string{"a", "b"},
		},
		{
			name: "independent components keep discovery order",
			records: func(t *testing.T) []*component.Record {
				return []*component.Record{newRecord(t, "z"), newRecord(t, "m"), newRecord(t, "a")}
			},
			expected: []string{"z", "m", "a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := Resolve(tt.records(t))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, order)
		})
	}
}

func TestResolveSelfCycle(t *testing.T) {
	_, err := Resolve([]*component.Record{newRecord(t, "D", "D")})

	var cycle *errors.CyclicDependencyError
	require.True(t, errors.As(err, &cycle))
	assert.Equal(t, []string{"D", "D"}, cycle.Path)
}

func TestResolveCycle(t *testing.T) {
	_, err := Resolve([]*component.Record{
		newRecord(t, "root", "A"),
		newRecord(t, "A", "B"),
		newRecord(t, "B", "A"),
	})

	var cycle *errors.CyclicDependencyError
	require.True(t, errors.As(err, &cycle))
	assert.Equal(t, []string{"A", "B", "A"}, cycle.Path)
	assert.Contains(t, err.Error(), "A -> B -> A")
}

func TestResolveLongCycle(t *testing.T) {
	_, err := Resolve([]*component.Record{
		newRecord(t, "a", "b"),
		newRecord(t, "b", "c"),
		newRecord(t, "c", "d"),
		newRecord(t, "d", "b"),
	})

	var cycle *errors.CyclicDependencyError
	require.True(t, errors.As(err, &cycle))
	assert.Equal(t, []string{"b", "c", "d", "b"}, cycle.Path)
}

func TestResolveUnknownDependency(t *testing.T) {
	_, err := Resolve([]*component.Record{newRecord(t, "a"), newRecord(t, "b", "a", "ghost")})

	var unknown *errors.UnknownDependencyError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "b", unknown.Component)
	assert.Equal(t, "b.xml", unknown.Source)
	assert.Equal(t, "ghost", unknown.Dependency)
}

func TestResolveDuplicateName(t *testing.T) {
	_, err := Resolve([]*component.Record{newRecord(t, "a"), newRecord(t, "a")})

	var malformed *errors.MalformedComponentError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "name", malformed.Element)
}

func TestResolveIsRepeatable(t *testing.T) {
	records := []*component.Record{
		newRecord(t, "page", "nav", "footer"),
		newRecord(t, "footer", "link"),
		newRecord(t, "nav", "link"),
		newRecord(t, "link"),
	}

	first, err := Resolve(records)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Resolve(records)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
