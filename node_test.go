package dendro

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLeaf(t *testing.T) {
	p := &Point{Vector: []float64{1, 2}, Labels: LabelWeights{"x": 2}, Weight: 3}
	n := NewLeaf(7, p)

	assert.Equal(t, 7, n.ID())
	assert.Same(t, p, n.Point())
	assert.True(t, n.IsLeaf())
	assert.True(t, n.IsActive())
	assert.Nil(t, n.Parent())
	assert.Empty(t, n.Children())
	assert.Equal(t, 3.0, n.Weight())
	assert.Equal(t, 1, n.Size())
	assert.Equal(t, LabelWeights{"x": 2}, n.Labels())

	c, ok := n.Centroid()
	assert.True(t, ok)
	assert.Equal(t, []float64{1, 2}, c)

	// The leaf owns its own label map.
	p.Labels["x"] = 100
	assert.Equal(t, 2.0, n.Labels()["x"])
}

func TestNewComposite_Aggregates(t *testing.T) {
	a := NewLeaf(0, &Point{Labels: LabelWeights{"x": 1}})
	b := NewLeaf(1, &Point{Labels: LabelWeights{"x": 2, "y": 1}, Weight: 2})
	c := newComposite(2, a, b)

	assert.False(t, c.IsLeaf())
	assert.Nil(t, c.Point())
	assert.Equal(t, 3.0, c.Weight())
	assert.Equal(t, 2, c.Size())
	assert.Equal(t, LabelWeights{"x": 3, "y": 1}, c.Labels())

	_, ok := c.Centroid()
	assert.False(t, ok, "composites carry no centroid unless centroid linkage sets one")
}

func TestAdopt_OnlyOnce(t *testing.T) {
	a := NewLeaf(0, &Point{})
	b := NewLeaf(1, &Point{})
	c := newComposite(2, a, b)

	require.NoError(t, c.adopt(a, 1.5))
	assert.Same(t, c, a.Parent())
	assert.False(t, a.IsActive())
	assert.Equal(t, 1.5, a.Length())

	other := newComposite(3, a)
	err := other.adopt(a, 9)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHasParent))
	assert.True(t, errors.HasAssertionFailure(err))
	assert.Same(t, c, a.Parent(), "failed adopt must not re-parent")
}

func TestChildrenReturnsCopy(t *testing.T) {
	a := NewLeaf(0, &Point{})
	b := NewLeaf(1, &Point{})
	c := newComposite(2, a, b)

	kids := c.Children()
	kids[0] = nil
	assert.Same(t, a, c.Children()[0])
}

func TestLabelProbabilities_UsesCache(t *testing.T) {
	n := NewLeaf(0, &Point{Labels: LabelWeights{"a": 1, "b": 3}})
	assert.InDelta(t, 0.75, n.LabelProbabilities()["b"], floatTol)

	n.probs = LabelWeights{"cached": 1}
	assert.Equal(t, LabelWeights{"cached": 1}, n.LabelProbabilities())
}
