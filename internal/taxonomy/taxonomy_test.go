package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/visits-go/internal/errors"
)

func TestEmbeddedTableLoads(t *testing.T) {
	t.Parallel()

	tax, err := Parse(defaultTable)
	require.NoError(t, err)
	assert.True(t, tax.Known("possum"))
	assert.Equal(t, []string{"all", "mammal", "rodent", "mouse"}, tax.Path("mouse"))
	assert.Same(t, Default(), Default())
}

func TestPathUnknownLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{Root, "taniwha"}, Default().Path("taniwha"))
	assert.False(t, Default().Known("taniwha"))
}

func TestCommonAncestor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		labels []string
		want   string
		ok     bool
	}{
		{"siblings", []string{"cat", "dog"}, "carnivore", true},
		{"rodents", []string{"rat", "mouse"}, "rodent", true},
		{"label and its parent", []string{"rodent", "rat"}, "rodent", true},
		{"case insensitive duplicates", []string{"Cat", "cat", "dog"}, "carnivore", true},
		{"only root shared", []string{"cat", "kiwi"}, "", false},
		{"one dissenter tolerated", []string{"cat", "dog", "kiwi"}, "carnivore", true},
		{"deepest majority wins", []string{"possum", "cat", "rat"}, "mammal", true},
		{"unknown label shares nothing", []string{"taniwha", "cat"}, "", false},
		{"single label is its own ancestor", []string{"stoat"}, "stoat", true},
		{"empty", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := Default().CommonAncestor(tt.labels)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRejectsBadTables(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("labels: [not, a, map]"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryTaxonomy))

	_, err = Parse([]byte("labels:\n  cat: mammal.cat\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must start with")
}
