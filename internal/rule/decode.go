package rule

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"armts/internal/dataset"
	"armts/internal/model"
)

var ErrInvalidVectorLength = errors.New("invalid vector length")

// Bounds supplies the numeric range a border gene is scaled into.
type Bounds interface {
	Range(f model.Feature) (float64, float64)
}

// GlobalBounds scales borders into the catalog's global min/max.
type GlobalBounds struct{}

func (GlobalBounds) Range(f model.Feature) (float64, float64) {
	return f.Min, f.Max
}

// WindowBounds scales borders into the range a feature takes inside the
// window, falling back to the catalog range when the window holds no value.
type WindowBounds struct {
	Table  *dataset.Table
	Window model.Window
}

func (b WindowBounds) Range(f model.Feature) (float64, float64) {
	if b.Table == nil {
		return f.Min, f.Max
	}
	lo, hi, ok := b.Table.NumericBounds(f.Name, b.Window)
	if !ok {
		return f.Min, f.Max
	}
	return lo, hi
}

// Decode maps the feature genes followed by one permutation gene per feature
// onto a rule. Genes past the feature slots and before the permutation block
// are ignored. A nil bounds uses GlobalBounds.
func Decode(vector []float64, catalog *model.Catalog, bounds Bounds) (model.Rule, error) {
	n := catalog.Len()
	if len(vector) < n {
		return nil, fmt.Errorf("%w: %d genes for %d features", ErrInvalidVectorLength, len(vector), n)
	}
	genes := vector[:len(vector)-n]
	permutation := vector[len(vector)-n:]
	if len(genes) < catalog.FeatureGenes() {
		return nil, fmt.Errorf("%w: %d feature genes, need %d", ErrInvalidVectorLength, len(genes), catalog.FeatureGenes())
	}
	if bounds == nil {
		bounds = GlobalBounds{}
	}

	out := make(model.Rule, 0, n)
	for _, i := range DecodeOrder(permutation) {
		f := catalog.Feature(i)
		offset := catalog.Offset(i)
		if !Active(genes, f, offset) {
			continue
		}
		v0 := genes[offset]
		switch f.Kind {
		case model.Categorical:
			out = append(out, model.CategoricalCondition(f.Name, f.Categories[categoryIndex(v0, len(f.Categories))]))
		default:
			lo, hi := bounds.Range(f)
			border1 := round4(border(lo, hi, v0))
			border2 := round4(border(lo, hi, genes[offset+1]))
			out = append(out, model.NumericalCondition(f.Name, border1, border2))
		}
	}
	return out, nil
}

// DecodeOrder returns feature indices by descending permutation gene. Ties
// keep catalog order.
func DecodeOrder(permutation []float64) []int {
	order := make([]int, len(permutation))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return permutation[order[a]] > permutation[order[b]]
	})
	return order
}

// Active reports whether the feature at offset enters the rule: its first
// gene must exceed its threshold gene.
func Active(genes []float64, f model.Feature, offset int) bool {
	threshold := offset + 2
	if f.Kind == model.Categorical {
		threshold = offset + 1
	}
	return genes[offset] > genes[threshold]
}

func border(lo, hi, v float64) float64 {
	return lo + (hi-lo)*v
}

func categoryIndex(v float64, n int) int {
	idx := int(v * float64(n-1))
	if idx < 0 {
		return 0
	}
	if idx > n-1 {
		return n - 1
	}
	return idx
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
