package rule

import (
	"fmt"

	"armts/internal/model"
)

// Dimension is the vector length a problem over the catalog expects:
// feature slots, one permutation gene per feature, the mode genes and the
// cut gene.
func Dimension(catalog *model.Catalog, mode model.Mode) int {
	return catalog.FeatureGenes() + catalog.Len() + mode.ModeGenes() + 1
}

// Genes is a vector split into its functional blocks.
type Genes struct {
	// Rule holds the feature slots followed by the permutation block, the
	// shape Decode consumes.
	Rule   []float64
	Window []float64
	Cut    float64
}

func SplitVector(vector []float64, catalog *model.Catalog, mode model.Mode) (Genes, error) {
	want := Dimension(catalog, mode)
	if len(vector) < want {
		return Genes{}, fmt.Errorf("%w: got %d genes, need %d", ErrInvalidVectorLength, len(vector), want)
	}
	last := len(vector) - 1
	windowStart := last - mode.ModeGenes()
	return Genes{
		Rule:   vector[:windowStart],
		Window: vector[windowStart:last],
		Cut:    vector[last],
	}, nil
}

// CutPoint places the boundary between antecedent and consequent. The result
// lies in [1, n-1] for every n >= 2.
func CutPoint(gene float64, n int) int {
	cut := int(gene * float64(n))
	if cut > n-1 {
		cut = n - 2
	}
	if cut < 1 {
		cut = 1
	}
	return cut
}

// Split cuts the rule into antecedent and consequent. ok is false when the
// rule is too short for both halves to be non-empty.
func Split(r model.Rule, gene float64) (model.Rule, model.Rule, bool) {
	if len(r) < 2 {
		return nil, nil, false
	}
	cut := CutPoint(gene, len(r))
	return r[:cut:cut], r[cut:], true
}
