package dendro

import (
	"context"
	"math"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/floats"
)

// Linkage selects how the distance from a freshly merged composite to
// every other active node is derived from its two children.
type Linkage string

const (
	// LinkageSingle uses min(d(a,x), d(b,x)).
	LinkageSingle Linkage = "single"
	// LinkageComplete uses max(d(a,x), d(b,x)).
	LinkageComplete Linkage = "complete"
	// LinkageAverage uses the weight-averaged distance (UPGMA).
	LinkageAverage Linkage = "average"
	// LinkageCentroid recomputes the metric from the composite's
	// weighted-mean centroid. Every leaf needs a Vector.
	LinkageCentroid Linkage = "centroid"
)

func (l Linkage) valid() bool {
	switch l {
	case LinkageSingle, LinkageComplete, LinkageAverage, LinkageCentroid:
		return true
	}
	return false
}

// Combine returns the distance from the merge of a and b to a third node x,
// given d(a,x), d(b,x) and the children's weights. +Inf marks an absent
// pair: single linkage ignores it, complete and average propagate it.
// Centroid linkage has no combination rule and yields NaN.
func (l Linkage) Combine(da, db, wa, wb float64) float64 {
	return l.combine(da, db, wa, wb, math.Inf(1))
}

func (l Linkage) combine(da, db, wa, wb, unreachable float64) float64 {
	switch l {
	case LinkageSingle:
		return min(da, db)
	case LinkageComplete:
		return max(da, db)
	case LinkageAverage:
		if da >= unreachable || db >= unreachable {
			return unreachable
		}
		return (wa*da + wb*db) / (wa + wb)
	}
	return math.NaN()
}

// Agglomerator performs merges under one linkage rule.
type Agglomerator struct {
	linkage Linkage
	metric  DistanceMetric
	workers int
}

// NewAgglomerator returns an Agglomerator for linkage. metric defaults to
// EuclideanMetric; it is needed for centroid linkage and for measuring new
// points against existing nodes. workers bounds the fan-out used to
// recompute composite distances.
func NewAgglomerator(linkage Linkage, metric DistanceMetric, workers int) (*Agglomerator, error) {
	if !linkage.valid() {
		return nil, errors.Newf("dendro: unknown linkage %q", linkage)
	}
	if metric == nil {
		metric = EuclideanMetric{}
	}
	return &Agglomerator{linkage: linkage, metric: metric, workers: workers}, nil
}

// Linkage returns the rule this Agglomerator merges with.
func (g *Agglomerator) Linkage() Linkage { return g.linkage }

// Join merges the active nodes a and b into a new composite with the given
// id. Both children get branch length d/2, where d is their matrix
// distance; the composite's distance to every other active node is
// derived by the linkage rule; a and b leave the matrix and the composite
// joins it.
//
// With n active nodes before the call, n-1 remain after it, and on a fully
// populated matrix the pair count drops by exactly n-1. Any deviation is
// reported as an invariant fault. The whole merge holds the matrix write
// lock, so snapshot readers never observe it half done.
func (g *Agglomerator) Join(id int, a, b *Node, m *ActiveMatrix) (*Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return g.join(id, a, b, m)
}

func (g *Agglomerator) join(id int, a, b *Node, m *ActiveMatrix) (*Node, error) {
	if a.id == b.id {
		return nil, invariant(ErrSelfPair, "join node %d", a.id)
	}
	for _, n := range []*Node{a, b} {
		if _, ok := m.nodes[n.id]; !ok {
			return nil, invariant(ErrInactiveNode, "join (%d, %d): node %d", a.id, b.id, n.id)
		}
	}

	numActive := len(m.nodes)
	numPairs := len(m.dist)
	full := numPairs == numActive*(numActive-1)/2

	half := m.get(a.id, b.id) / 2

	composite := newComposite(id, a, b)
	if g.linkage == LinkageCentroid {
		c, err := weightedCentroid(a, b)
		if err != nil {
			return nil, err
		}
		composite.centroid = c
	}

	var others []*Node
	for _, x := range m.activeKeys() {
		if x != a && x != b {
			others = append(others, x)
		}
	}

	// The section must run to completion once entered, so the fan-out is
	// not tied to any caller context.
	dists := make([]float64, len(others))
	err := ForEach(context.Background(), len(others), g.workers, func(i int) error {
		d, err := g.compositeDistance(a, b, composite, others[i], m)
		dists[i] = d
		return err
	}, nil)
	if err != nil {
		return nil, err
	}

	if err := composite.adopt(a, half); err != nil {
		return nil, err
	}
	if err := composite.adopt(b, half); err != nil {
		return nil, err
	}
	if composite.weight != a.weight+b.weight {
		return nil, invariant(ErrWeightMismatch, "join (%d, %d): %v != %v + %v",
			a.id, b.id, composite.weight, a.weight, b.weight)
	}

	if err := m.add(composite); err != nil {
		return nil, err
	}
	stored := 0
	for i, x := range others {
		if err := m.put(composite, x, dists[i]); err != nil {
			return nil, err
		}
		if dists[i] < m.unreachable {
			stored++
		}
	}

	if _, err := m.remove(a); err != nil {
		return nil, err
	}
	if _, err := m.remove(b); err != nil {
		return nil, err
	}

	if len(m.nodes) != numActive-1 {
		return nil, invariant(ErrPairCount, "join (%d, %d): %d active nodes, want %d",
			a.id, b.id, len(m.nodes), numActive-1)
	}
	if full && stored == len(others) && len(m.dist) != numPairs-(numActive-1) {
		return nil, invariant(ErrPairCount, "join (%d, %d): %d pairs, want %d",
			a.id, b.id, len(m.dist), numPairs-(numActive-1))
	}

	return composite, nil
}

// compositeDistance derives d(composite, x). Called concurrently while the
// matrix is read-only.
func (g *Agglomerator) compositeDistance(a, b, composite, x *Node, m *ActiveMatrix) (float64, error) {
	if g.linkage == LinkageCentroid {
		cx, ok := x.Centroid()
		if !ok {
			return 0, invariant(ErrNoCentroid, "centroid linkage against node %d", x.id)
		}
		return g.metric.Distance(composite.centroid, cx), nil
	}
	return g.linkage.combine(m.get(a.id, x.id), m.get(b.id, x.id), a.weight, b.weight, m.unreachable), nil
}

// DistanceTo measures leaf n against an existing node x consistently with
// the linkage rule: the metric between centroids when x has one, otherwise
// the rule folded over x's children. It reads only state fixed at node
// creation and is safe to call without holding any lock.
func (g *Agglomerator) DistanceTo(n, x *Node) (float64, error) {
	v, ok := n.Centroid()
	if !ok {
		return 0, invariant(ErrNoCentroid, "measure node %d", n.id)
	}
	return g.distanceTo(v, x)
}

func (g *Agglomerator) distanceTo(v []float64, x *Node) (float64, error) {
	if cx, ok := x.Centroid(); ok {
		return g.metric.Distance(v, cx), nil
	}
	if len(x.children) == 0 {
		return 0, invariant(ErrNoCentroid, "measure against node %d", x.id)
	}

	d, err := g.distanceTo(v, x.children[0])
	if err != nil {
		return 0, err
	}
	w := x.children[0].weight
	for _, ch := range x.children[1:] {
		dc, err := g.distanceTo(v, ch)
		if err != nil {
			return 0, err
		}
		d = g.linkage.Combine(d, dc, w, ch.weight)
		w += ch.weight
	}
	return d, nil
}

// weightedCentroid returns the weight-averaged centroid of a and b.
func weightedCentroid(a, b *Node) ([]float64, error) {
	ca, okA := a.Centroid()
	cb, okB := b.Centroid()
	if !okA || !okB {
		return nil, invariant(ErrNoCentroid, "centroid of (%d, %d)", a.id, b.id)
	}
	if len(ca) != len(cb) {
		return nil, errors.Newf("dendro: centroid dimensions differ: %d vs %d", len(ca), len(cb))
	}
	total := a.weight + b.weight
	out := make([]float64, len(ca))
	floats.AddScaled(out, a.weight/total, ca)
	floats.AddScaled(out, b.weight/total, cb)
	return out, nil
}
