package dendro

import (
	"math"
	"sort"
	"sync"
)

// pairKey is an unordered node-id pair stored with lo < hi.
type pairKey struct {
	lo, hi int
}

func keyOf(a, b int) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

// Pair is two active nodes and the distance between them, with A.ID() < B.ID().
type Pair struct {
	A, B     *Node
	Distance float64
}

// ActiveMatrix is a sparse symmetric distance matrix over the active node
// set. Pairs that were never stored read as the unreachable sentinel.
//
// Every method is safe for concurrent use, but a sequence of calls is not
// atomic: engines hold their own exclusive scope around a merge cascade.
// Get and ActiveKeys may serve as non-authoritative snapshots outside it.
type ActiveMatrix struct {
	mu          sync.RWMutex
	unreachable float64
	nodes       map[int]*Node
	dist        map[pairKey]float64
	adj         map[int]map[int]struct{}
	heap        pairHeap
	maxID       int
}

// NewActiveMatrix creates an empty matrix. unreachable is the distance
// reported for absent pairs; values <= 0 or NaN select +Inf.
func NewActiveMatrix(unreachable float64) *ActiveMatrix {
	if !(unreachable > 0) {
		unreachable = math.Inf(1)
	}
	return &ActiveMatrix{
		unreachable: unreachable,
		nodes:       make(map[int]*Node),
		dist:        make(map[pairKey]float64),
		adj:         make(map[int]map[int]struct{}),
		maxID:       -1,
	}
}

// Unreachable returns the sentinel distance for absent pairs.
func (m *ActiveMatrix) Unreachable() float64 { return m.unreachable }

// Add registers n as active. n must have no parent and not be registered.
func (m *ActiveMatrix) Add(n *Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.add(n)
}

func (m *ActiveMatrix) add(n *Node) error {
	if n.parent != nil {
		return invariant(ErrHasParent, "register node %d", n.id)
	}
	if _, ok := m.nodes[n.id]; ok {
		return invariant(ErrDuplicateNode, "register node %d", n.id)
	}
	m.nodes[n.id] = n
	m.adj[n.id] = make(map[int]struct{})
	m.maxID = max(m.maxID, n.id)
	return nil
}

// Put stores the distance between a and b, overwriting any previous value.
// Both nodes must be active. A distance at or beyond the unreachable
// sentinel leaves the pair absent.
func (m *ActiveMatrix) Put(a, b *Node, d float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.put(a, b, d)
}

func (m *ActiveMatrix) put(a, b *Node, d float64) error {
	if a.id == b.id {
		return invariant(ErrSelfPair, "put node %d", a.id)
	}
	if math.IsNaN(d) || d < 0 {
		return invariant(ErrInvalidDistance, "put (%d, %d) = %v", a.id, b.id, d)
	}
	if _, ok := m.nodes[a.id]; !ok {
		return invariant(ErrInactiveNode, "put (%d, %d): node %d", a.id, b.id, a.id)
	}
	if _, ok := m.nodes[b.id]; !ok {
		return invariant(ErrInactiveNode, "put (%d, %d): node %d", a.id, b.id, b.id)
	}
	k := keyOf(a.id, b.id)
	if d >= m.unreachable {
		m.deletePair(k)
		return nil
	}
	m.dist[k] = d
	m.adj[k.lo][k.hi] = struct{}{}
	m.adj[k.hi][k.lo] = struct{}{}
	m.push(k, d)
	return nil
}

func (m *ActiveMatrix) deletePair(k pairKey) {
	if _, ok := m.dist[k]; !ok {
		return
	}
	delete(m.dist, k)
	delete(m.adj[k.lo], k.hi)
	delete(m.adj[k.hi], k.lo)
}

// Get returns the stored distance between a and b, or the unreachable
// sentinel when the pair is absent.
func (m *ActiveMatrix) Get(a, b *Node) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.get(a.id, b.id)
}

func (m *ActiveMatrix) get(a, b int) float64 {
	if d, ok := m.dist[keyOf(a, b)]; ok {
		return d
	}
	return m.unreachable
}

// Remove deactivates n and deletes every pair involving it, returning the
// number of pairs removed. Removing an inactive node is an invariant fault.
func (m *ActiveMatrix) Remove(n *Node) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remove(n)
}

func (m *ActiveMatrix) remove(n *Node) (int, error) {
	nbrs, ok := m.adj[n.id]
	if !ok {
		return 0, invariant(ErrInactiveNode, "remove node %d", n.id)
	}
	removed := len(nbrs)
	for other := range nbrs {
		delete(m.dist, keyOf(n.id, other))
		delete(m.adj[other], n.id)
	}
	delete(m.adj, n.id)
	delete(m.nodes, n.id)
	return removed, nil
}

// SmallestPair returns the pair with the globally smallest distance. Ties
// are broken by the lower node id, then by the other node id, so repeated
// runs over identical input merge in the same order. ok is false when no
// pairs remain.
func (m *ActiveMatrix) SmallestPair() (p Pair, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.smallestPair()
}

func (m *ActiveMatrix) smallestPair() (Pair, bool) {
	e, ok := m.top()
	if !ok {
		return Pair{}, false
	}
	return Pair{A: m.nodes[e.key.lo], B: m.nodes[e.key.hi], Distance: e.dist}, true
}

// ActiveKeys returns a snapshot of the active nodes ordered by id.
func (m *ActiveMatrix) ActiveKeys() []*Node {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeKeys()
}

func (m *ActiveMatrix) activeKeys() []*Node {
	out := make([]*Node, 0, len(m.nodes))
	for _, n := range m.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Contains reports whether n is registered as active.
func (m *ActiveMatrix) Contains(n *Node) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.nodes[n.id]
	return ok
}

// NumKeys returns the number of active nodes.
func (m *ActiveMatrix) NumKeys() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes)
}

// NumPairs returns the number of stored pairs.
func (m *ActiveMatrix) NumPairs() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.dist)
}

// MaxID returns the largest id ever registered, or -1.
func (m *ActiveMatrix) MaxID() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.maxID
}
