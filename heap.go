package dendro

import "container/heap"

// pairEntry is a candidate pair in the lazy min-heap. An entry is stale
// once its pair is removed or overwritten with a different distance.
type pairEntry struct {
	dist float64
	key  pairKey
}

// pairHeap implements container/heap.Interface ordered by
// (distance, lower id, higher id), the deterministic merge order.
type pairHeap []pairEntry

func (h pairHeap) Len() int { return len(h) }

func (h pairHeap) Less(i, j int) bool {
	if h[i].dist != h[j].dist {
		return h[i].dist < h[j].dist
	}
	if h[i].key.lo != h[j].key.lo {
		return h[i].key.lo < h[j].key.lo
	}
	return h[i].key.hi < h[j].key.hi
}

func (h pairHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *pairHeap) Push(x any) { *h = append(*h, x.(pairEntry)) }

func (h *pairHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// push records a candidate, rebuilding from live pairs first when stale
// entries dominate the heap.
func (m *ActiveMatrix) push(k pairKey, d float64) {
	if len(m.heap) > 2*len(m.dist)+64 {
		m.rebuildHeap()
	}
	heap.Push(&m.heap, pairEntry{dist: d, key: k})
}

func (m *ActiveMatrix) rebuildHeap() {
	h := make(pairHeap, 0, len(m.dist))
	for k, d := range m.dist {
		h = append(h, pairEntry{dist: d, key: k})
	}
	heap.Init(&h)
	m.heap = h
}

// top discards stale entries and returns the smallest live one.
func (m *ActiveMatrix) top() (pairEntry, bool) {
	for len(m.heap) > 0 {
		e := m.heap[0]
		if d, ok := m.dist[e.key]; ok && d == e.dist {
			return e, true
		}
		heap.Pop(&m.heap)
	}
	return pairEntry{}, false
}
