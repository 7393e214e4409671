package dendro

import (
	"context"
	"iter"
	"slices"
)

// PreOrder yields n and its descendants, each node before its children and
// children in merge order. The walk is iterative, so degenerate chain-shaped
// trees do not grow the goroutine stack.
func (n *Node) PreOrder() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		stack := []*Node{n}
		for len(stack) > 0 {
			x := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !yield(x) {
				return
			}
			for i := len(x.children) - 1; i >= 0; i-- {
				stack = append(stack, x.children[i])
			}
		}
	}
}

// PostOrder yields n and its descendants, each node after all of its children.
func (n *Node) PostOrder() iter.Seq[*Node] {
	type frame struct {
		node     *Node
		expanded bool
	}
	return func(yield func(*Node) bool) {
		stack := []frame{{node: n}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.expanded || len(top.node.children) == 0 {
				x := top.node
				stack = stack[:len(stack)-1]
				if !yield(x) {
					return
				}
				continue
			}
			top.expanded = true
			children := top.node.children
			for i := len(children) - 1; i >= 0; i-- {
				stack = append(stack, frame{node: children[i]})
			}
		}
	}
}

// Leaves returns the leaves under n, left to right.
func (n *Node) Leaves() []*Node {
	var out []*Node
	for x := range n.PreOrder() {
		if len(x.children) == 0 {
			out = append(out, x)
		}
	}
	return out
}

// Cut returns the flat clusters obtained by cutting the tree at threshold:
// walking from n downward, a node becomes a cluster when it is a leaf or
// its children hang below it by less than threshold/2, i.e. they merged
// at a distance under threshold. Its descendants are not visited.
func (n *Node) Cut(threshold float64) []*Node {
	half := threshold / 2
	var out []*Node
	stack := []*Node{n}
	for len(stack) > 0 {
		x := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		// Binary merges give both children the same length; a star root's
		// children all carry the unreachable sentinel.
		if len(x.children) == 0 || x.children[0].length < half {
			out = append(out, x)
			continue
		}
		for i := len(x.children) - 1; i >= 0; i-- {
			stack = append(stack, x.children[i])
		}
	}
	return out
}

// NormalizeLabels caches the normalized label distribution on every node
// under roots, spreading the work over up to workers goroutines.
func NormalizeLabels(ctx context.Context, workers int, roots ...*Node) error {
	var nodes []*Node
	for _, r := range roots {
		nodes = slices.AppendSeq(nodes, r.PreOrder())
	}
	return ForEach(ctx, len(nodes), workers, func(i int) error {
		nodes[i].probs = nodes[i].labels.Normalized()
		return nil
	}, nil)
}
