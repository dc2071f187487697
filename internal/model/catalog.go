package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDuplicateFeature = errors.New("duplicate feature")
	ErrInvalidFeature   = errors.New("invalid feature")
)

// Catalog is the ordered set of features that occupy genes. Order is
// significant: it fixes the gene offset of every feature.
type Catalog struct {
	features []Feature
	index    map[string]int
	offsets  []int
	genes    int
}

func NewCatalog(features ...Feature) (*Catalog, error) {
	c := &Catalog{
		features: make([]Feature, 0, len(features)),
		index:    make(map[string]int, len(features)),
		offsets:  make([]int, 0, len(features)),
	}
	for _, f := range features {
		if err := validateFeature(f); err != nil {
			return nil, err
		}
		if _, exists := c.index[f.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateFeature, f.Name)
		}
		f.Categories = append([]string(nil), f.Categories...)
		c.index[f.Name] = len(c.features)
		c.offsets = append(c.offsets, c.genes)
		c.features = append(c.features, f)
		c.genes += f.SlotWidth()
	}
	return c, nil
}

func validateFeature(f Feature) error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("%w: feature name is required", ErrInvalidFeature)
	}
	switch f.Kind {
	case Numerical:
		if f.Min > f.Max {
			return fmt.Errorf("%w: %s min %v exceeds max %v", ErrInvalidFeature, f.Name, f.Min, f.Max)
		}
	case Categorical:
		if len(f.Categories) == 0 {
			return fmt.Errorf("%w: %s has no categories", ErrInvalidFeature, f.Name)
		}
	default:
		return fmt.Errorf("%w: %s of kind %q cannot be encoded", ErrInvalidFeature, f.Name, f.Kind)
	}
	return nil
}

func (c *Catalog) Len() int {
	return len(c.features)
}

// Feature returns the i-th feature in catalog order.
func (c *Catalog) Feature(i int) Feature {
	return c.features[i]
}

func (c *Catalog) Lookup(name string) (Feature, bool) {
	i, ok := c.index[name]
	if !ok {
		return Feature{}, false
	}
	return c.features[i], true
}

// Offset is the position of the feature's first gene.
func (c *Catalog) Offset(i int) int {
	return c.offsets[i]
}

// FeatureGenes is the total width of the per-feature gene slots.
func (c *Catalog) FeatureGenes() int {
	return c.genes
}

// Features returns a copy of the catalog in order.
func (c *Catalog) Features() []Feature {
	out := make([]Feature, len(c.features))
	copy(out, c.features)
	return out
}

func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.features))
	for _, f := range c.features {
		out = append(out, f.Name)
	}
	return out
}
