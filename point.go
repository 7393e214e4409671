package dendro

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Point is one input observation: a feature vector plus the label weights
// that propagate through merges. A Point must not be modified after it is
// handed to an engine.
type Point struct {
	// Vector holds the features read by the DistanceMetric. It may be nil
	// when distances are supplied precomputed.
	Vector []float64

	// Labels maps label to weight. Only additive propagation and
	// normalization are performed on it.
	Labels LabelWeights

	// Weight is the leaf weight. Zero means 1.
	Weight float64
}

func (p *Point) weight() float64 {
	if p.Weight == 0 {
		return 1
	}
	return p.Weight
}

// LabelWeights maps a label to its accumulated weight.
type LabelWeights map[string]float64

// LabelProb is one entry of a normalized label distribution.
type LabelProb struct {
	Label string
	Prob  float64
}

// Clone returns an independent copy of w. A nil receiver yields an empty map.
func (w LabelWeights) Clone() LabelWeights {
	out := make(LabelWeights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Add accumulates other into w.
func (w LabelWeights) Add(other LabelWeights) {
	for k, v := range other {
		w[k] += v
	}
}

// Total returns the sum of all weights.
func (w LabelWeights) Total() float64 {
	if len(w) == 0 {
		return 0
	}
	vals := make([]float64, 0, len(w))
	for _, v := range w {
		vals = append(vals, v)
	}
	// Summing in a fixed order keeps totals reproducible across map iterations.
	sort.Float64s(vals)
	return floats.Sum(vals)
}

// Normalized returns w scaled so its weights sum to 1. The result is empty
// when the total weight is not positive.
func (w LabelWeights) Normalized() LabelWeights {
	total := w.Total()
	out := make(LabelWeights, len(w))
	if total <= 0 {
		return out
	}
	for k, v := range w {
		out[k] = v / total
	}
	return out
}

// Ranked returns the normalized distribution ordered by decreasing
// probability, ties broken by label.
func (w LabelWeights) Ranked() []LabelProb {
	return rankLabels(w.Normalized())
}

// rankLabels orders probs by decreasing value without renormalizing.
func rankLabels(probs LabelWeights) []LabelProb {
	out := make([]LabelProb, 0, len(probs))
	for k, v := range probs {
		out = append(out, LabelProb{Label: k, Prob: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Prob != out[j].Prob {
			return out[i].Prob > out[j].Prob
		}
		return out[i].Label < out[j].Label
	})
	return out
}
