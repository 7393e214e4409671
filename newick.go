package dendro

import (
	"strconv"
	"strings"
)

// Newick renders the subtree under n in a minimal parenthetical form:
//
//	(children)size[_label=probability]*[:branchLength]
//
// Children whose subtree holds fewer than minSize leaves are omitted.
// Labels are listed by decreasing probability with two decimals, stopping
// at the first one below minProb. The branch length is written for every
// node except n itself when n has no parent.
func (n *Node) Newick(minSize int, minProb float64) string {
	var sb strings.Builder
	writeSubtree(&sb, n, n, minSize, minProb)
	return sb.String()
}

func writeSubtree(sb *strings.Builder, root, n *Node, minSize int, minProb float64) {
	if len(n.children) > 0 {
		sb.WriteByte('(')
		first := true
		for _, ch := range n.children {
			if ch.size < minSize {
				continue
			}
			if !first {
				sb.WriteByte(',')
			}
			first = false
			writeSubtree(sb, root, ch, minSize, minProb)
		}
		sb.WriteByte(')')
	}
	writeAnnotation(sb, n, n != root || n.parent != nil, minProb)
}

func writeAnnotation(sb *strings.Builder, n *Node, withLength bool, minProb float64) {
	sb.WriteString(strconv.Itoa(n.size))
	for _, lp := range rankLabels(n.LabelProbabilities()) {
		if lp.Prob < minProb {
			break
		}
		sb.WriteByte('_')
		sb.WriteString(lp.Label)
		sb.WriteByte('=')
		sb.WriteString(strconv.FormatFloat(lp.Prob, 'f', 2, 64))
	}
	if withLength {
		sb.WriteByte(':')
		sb.WriteString(strconv.FormatFloat(n.length, 'g', -1, 64))
	}
}
