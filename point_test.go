package dendro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointWeightDefaultsToOne(t *testing.T) {
	assert.Equal(t, 1.0, (&Point{}).weight())
	assert.Equal(t, 2.5, (&Point{Weight: 2.5}).weight())
}

func TestLabelWeights_AddAndTotal(t *testing.T) {
	w := LabelWeights{"a": 1}
	w.Add(LabelWeights{"a": 2, "b": 1.5})

	assert.Equal(t, LabelWeights{"a": 3, "b": 1.5}, w)
	assert.Equal(t, 4.5, w.Total())
	assert.Zero(t, LabelWeights(nil).Total())
}

func TestLabelWeights_Normalized(t *testing.T) {
	w := LabelWeights{"a": 3, "b": 1}
	norm := w.Normalized()

	assert.InDelta(t, 0.75, norm["a"], floatTol)
	assert.InDelta(t, 0.25, norm["b"], floatTol)
	// The receiver is untouched.
	assert.Equal(t, 3.0, w["a"])

	assert.Empty(t, LabelWeights{}.Normalized())
	assert.Empty(t, LabelWeights{"a": 0}.Normalized())
}

func TestLabelWeights_Ranked(t *testing.T) {
	w := LabelWeights{"b": 1, "a": 1, "c": 2}
	ranked := w.Ranked()

	require.Len(t, ranked, 3)
	assert.Equal(t, "c", ranked[0].Label)
	assert.InDelta(t, 0.5, ranked[0].Prob, floatTol)
	// Equal probabilities fall back to label order.
	assert.Equal(t, "a", ranked[1].Label)
	assert.Equal(t, "b", ranked[2].Label)
}

func TestLabelWeights_CloneIsIndependent(t *testing.T) {
	w := LabelWeights{"a": 1}
	c := w.Clone()
	c["a"] = 5

	assert.Equal(t, 1.0, w["a"])
	assert.NotNil(t, LabelWeights(nil).Clone())
}
