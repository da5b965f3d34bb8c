// Package taxonomy maps species labels onto a fixed label tree and finds the
// nearest shared ancestor of disagreeing labels.
package taxonomy

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/tphakala/visits-go/internal/errors"
)

// Root is the label at the top of every path.
const Root = "all"

//go:embed taxonomy.yaml
var defaultTable []byte

type table struct {
	Labels map[string]string `yaml:"labels"`
}

// Taxonomy resolves labels to their ancestor paths.
type Taxonomy struct {
	paths map[string][]string
}

var loadDefault = sync.OnceValues(func() (*Taxonomy, error) {
	return Parse(defaultTable)
})

// Default returns the embedded taxonomy. The embedded table is validated by
// tests, so a parse failure here is a build defect.
func Default() *Taxonomy {
	t, err := loadDefault()
	if err != nil {
		panic(fmt.Sprintf("taxonomy: embedded table is invalid: %v", err))
	}
	return t
}

// Parse builds a taxonomy from a YAML document of the form
// `labels: {label: all.a.b}`.
func Parse(data []byte) (*Taxonomy, error) {
	var raw table
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.New(fmt.Errorf("parse taxonomy: %w", err)).
			Component("taxonomy").
			Category(errors.CategoryTaxonomy).
			Build()
	}

	t := &Taxonomy{paths: make(map[string][]string, len(raw.Labels))}
	for label, path := range raw.Labels {
		segments := strings.Split(path, ".")
		if segments[0] != Root {
			return nil, errors.Newf("taxonomy path for %q must start with %q, got %q", label, Root, path).
				Component("taxonomy").
				Category(errors.CategoryTaxonomy).
				Build()
		}
		t.paths[strings.ToLower(label)] = segments
	}
	return t, nil
}

// Path returns the ancestor path of a label, root first and ending with the
// label's own node. Unknown labels hang directly off the root.
func (t *Taxonomy) Path(label string) []string {
	if p, ok := t.paths[strings.ToLower(label)]; ok {
		return p
	}
	return []string{Root, label}
}

// Known reports whether the label is in the table.
func (t *Taxonomy) Known(label string) bool {
	_, ok := t.paths[strings.ToLower(label)]
	return ok
}

// CommonAncestor returns the deepest taxon shared by the labels. With more
// than two distinct labels one dissenter is tolerated; among qualifying
// taxa the deepest wins, then the one more labels agree on. It returns false
// when nothing below the root is shared.
func (t *Taxonomy) CommonAncestor(labels []string) (string, bool) {
	distinct := uniqueLabels(labels)
	if len(distinct) == 0 {
		return "", false
	}

	need := len(distinct)
	if need > 2 {
		need--
	}

	type candidate struct {
		taxon string
		depth int
		count int
	}
	counts := make(map[string]*candidate)

	for _, label := range distinct {
		path := t.Path(label)
		for depth := 1; depth <= len(path); depth++ {
			key := strings.Join(path[:depth], ".")
			c, ok := counts[key]
			if !ok {
				c = &candidate{taxon: path[depth-1], depth: depth}
				counts[key] = c
			}
			c.count++
		}
	}

	var best *candidate
	var bestKey string
	for key, c := range counts {
		if c.count < need {
			continue
		}
		if best == nil ||
			c.depth > best.depth ||
			(c.depth == best.depth && c.count > best.count) ||
			(c.depth == best.depth && c.count == best.count && key < bestKey) {
			best, bestKey = c, key
		}
	}

	if best == nil || best.depth <= 1 {
		return "", false
	}
	return best.taxon, true
}

func uniqueLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.ToLower(l)
		if !slices.Contains(out, l) {
			out = append(out, l)
		}
	}
	return out
}
