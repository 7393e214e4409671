package dendro

import "fmt"

// Node is a dendrogram node. A leaf wraps an input Point; a composite is
// created by a merge and owns its children. Nodes are never destroyed:
// once merged a node stays in the tree but leaves the active set for good.
//
// Identity, payload, children, weight, size and centroid are fixed when
// the node is created and may be read from any goroutine. Parent and
// branch length are assigned by the merge that consumes the node.
type Node struct {
	id       int
	point    *Point
	centroid []float64
	weight   float64
	size     int
	labels   LabelWeights
	children []*Node

	parent *Node
	length float64

	probs LabelWeights
}

// NewLeaf wraps p as a leaf node with the given id.
func NewLeaf(id int, p *Point) *Node {
	return &Node{
		id:       id,
		point:    p,
		centroid: p.Vector,
		weight:   p.weight(),
		size:     1,
		labels:   p.Labels.Clone(),
	}
}

// newComposite builds an internal node over children, aggregating weight,
// size and labels. The children are not adopted here.
func newComposite(id int, children ...*Node) *Node {
	c := &Node{
		id:       id,
		labels:   LabelWeights{},
		children: children,
	}
	for _, ch := range children {
		c.weight += ch.weight
		c.size += ch.size
		c.labels.Add(ch.labels)
	}
	return c
}

// adopt links child under n. A node has at most one parent for its lifetime.
func (n *Node) adopt(child *Node, length float64) error {
	if child.parent != nil {
		return invariant(ErrHasParent, "node %d already merged into %d", child.id, child.parent.id)
	}
	child.parent = n
	child.length = length
	return nil
}

// ID returns the node identity.
func (n *Node) ID() int { return n.id }

// Point returns the leaf payload, or nil for a composite.
func (n *Node) Point() *Point { return n.point }

// IsLeaf reports whether n wraps an input point.
func (n *Node) IsLeaf() bool { return n.point != nil }

// IsActive reports whether n has no parent and can still be merged.
func (n *Node) IsActive() bool { return n.parent == nil }

// Parent returns the node n was merged into, or nil.
func (n *Node) Parent() *Node { return n.parent }

// Children returns a copy of n's children.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Weight is the sum of descendant leaf weights.
func (n *Node) Weight() float64 { return n.weight }

// Size is the number of descendant leaves.
func (n *Node) Size() int { return n.size }

// Length is the branch length to the parent: half the merge distance, or
// the matrix's unreachable sentinel under a star root.
func (n *Node) Length() float64 { return n.length }

// Labels returns the aggregated label weights. The map must not be modified.
func (n *Node) Labels() LabelWeights { return n.labels }

// LabelProbabilities returns the normalized label distribution, cached by
// NormalizeLabels when available.
func (n *Node) LabelProbabilities() LabelWeights {
	if n.probs != nil {
		return n.probs
	}
	return n.labels.Normalized()
}

// Centroid returns the representative vector: the payload vector for a
// leaf, the weighted mean of the children for a composite built under
// centroid linkage, and nothing otherwise.
func (n *Node) Centroid() ([]float64, bool) {
	return n.centroid, n.centroid != nil
}

func (n *Node) String() string {
	return fmt.Sprintf("node %d n=%d l=%.2f w=%.2f", n.id, n.size, n.length, n.weight)
}
