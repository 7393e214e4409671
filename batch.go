package dendro

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

type batchState int

const (
	batchEmpty batchState = iota
	batchPopulated
	batchMerging
	batchDone
)

// Batch builds a dendrogram over a point set known upfront by repeatedly
// merging the globally closest pair of active nodes.
//
// A Batch moves through Populate then Run exactly once and is not safe for
// concurrent use; the merge loop is inherently sequential.
type Batch struct {
	cfg    Config
	agg    *Agglomerator
	log    *zap.SugaredLogger
	matrix *ActiveMatrix
	leaves []*Node
	nextID int
	state  batchState
	root   *Node
	merges int
}

// NewBatch returns an empty batch engine. Returns an error if the config
// is invalid.
func NewBatch(cfg Config) (*Batch, error) {
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	agg, err := NewAgglomerator(cfg.Linkage, cfg.Metric, cfg.Workers)
	if err != nil {
		return nil, err
	}
	return &Batch{
		cfg:    cfg,
		agg:    agg,
		log:    componentLogger(cfg.Logger, engineBatch, cfg.Linkage),
		matrix: NewActiveMatrix(cfg.Unreachable),
	}, nil
}

// Populate creates one leaf per point, with ids 0..n-1 in input order, and
// fills the matrix with every pairwise distance no greater than
// Config.Cutoff. Distances are computed in parallel, row by row. Every
// point needs a Vector, all of the same length.
func (b *Batch) Populate(ctx context.Context, points []Point) error {
	if b.state != batchEmpty {
		return ErrAlreadyPopulated
	}
	n := len(points)
	if n > 0 {
		dims := len(points[0].Vector)
		for i := range points {
			if points[i].Vector == nil {
				return errors.Newf("dendro: point %d has no Vector; use PopulatePrecomputed for distance-only input", i)
			}
			if len(points[i].Vector) != dims {
				return errors.Newf("dendro: point %d has %d dimensions, want %d", i, len(points[i].Vector), dims)
			}
		}
	}

	// rows[i][j-i-1] holds d(i, j) for j > i.
	rows := make([][]float64, n)
	metric := b.cfg.Metric
	err := ForEach(ctx, n, b.cfg.Workers, func(i int) error {
		row := make([]float64, n-i-1)
		for j := i + 1; j < n; j++ {
			row[j-i-1] = metric.Distance(points[i].Vector, points[j].Vector)
		}
		rows[i] = row
		return nil
	}, b.cfg.Progress)
	if err != nil {
		return err
	}

	return b.fill(points, func(i, j int) float64 { return rows[i][j-i-1] })
}

// PopulatePrecomputed is Populate with distances supplied as a flat n×n
// row-major matrix; only the upper triangle is read. Config.Metric is used
// only for centroid linkage, which also requires every point's Vector.
func (b *Batch) PopulatePrecomputed(points []Point, dist []float64) error {
	if b.state != batchEmpty {
		return ErrAlreadyPopulated
	}
	n := len(points)
	if len(dist) != n*n {
		return errors.Newf("dendro: dist length %d does not match n*n = %d (n=%d)", len(dist), n*n, n)
	}
	if b.cfg.Linkage == LinkageCentroid {
		for i := range points {
			if points[i].Vector == nil {
				return errors.Newf("dendro: centroid linkage needs a Vector for point %d", i)
			}
		}
	}
	return b.fill(points, func(i, j int) float64 { return dist[i*n+j] })
}

// PopulateMatrix adopts a matrix built by the caller. Node ids for merges
// continue after the largest id registered in m.
func (b *Batch) PopulateMatrix(m *ActiveMatrix) error {
	if b.state != batchEmpty {
		return ErrAlreadyPopulated
	}
	b.matrix = m
	b.nextID = m.MaxID() + 1
	for _, n := range m.ActiveKeys() {
		if n.IsLeaf() {
			b.leaves = append(b.leaves, n)
		}
	}
	b.state = batchPopulated
	return nil
}

// fill registers one leaf per point and stores every pair within the cutoff.
func (b *Batch) fill(points []Point, distance func(i, j int) float64) error {
	n := len(points)
	b.leaves = make([]*Node, n)
	for i := range points {
		leaf := NewLeaf(i, &points[i])
		if err := b.matrix.Add(leaf); err != nil {
			return err
		}
		b.leaves[i] = leaf
	}
	b.nextID = n

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := distance(i, j)
			if d > b.cfg.Cutoff {
				continue
			}
			if err := b.matrix.Put(b.leaves[i], b.leaves[j], d); err != nil {
				return errors.Wrapf(err, "dendro: distance between points %d and %d", i, j)
			}
		}
	}

	pointsIngested.WithLabelValues(engineBatch).Add(float64(n))
	b.log.Debugw("batch populated", FieldPoints, n, FieldPairs, b.matrix.NumPairs())
	b.state = batchPopulated
	return nil
}

// Run merges the closest pair until no pairs remain and returns the root.
// Remainders left disconnected by the cutoff are joined under a single
// star root whose children carry the unreachable branch length. An empty
// point set yields a nil root.
//
// ctx is checked between merges; a cancelled run leaves the Batch unusable.
func (b *Batch) Run(ctx context.Context) (*Node, error) {
	switch b.state {
	case batchEmpty:
		return nil, ErrNotPopulated
	case batchMerging, batchDone:
		return nil, ErrAlreadyRun
	}
	b.state = batchMerging

	b.log.Infow("batch clustering started",
		FieldActive, b.matrix.NumKeys(),
		FieldPairs, b.matrix.NumPairs(),
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, ok := b.matrix.SmallestPair()
		if !ok {
			break
		}
		composite, err := b.agg.Join(b.nextID, p.A, p.B, b.matrix)
		if err != nil {
			return nil, errors.Wrapf(err, "dendro: merge %d of (%d, %d)", b.merges, p.A.ID(), p.B.ID())
		}
		b.nextID++
		b.merges++
		b.root = composite
		mergesTotal.WithLabelValues(engineBatch).Inc()
		mergeDistance.Observe(p.Distance)

		if b.merges%b.cfg.LogEvery == 0 {
			b.log.Debugw("batch clustering progress",
				FieldMerges, b.merges,
				FieldActive, b.matrix.NumKeys(),
				FieldPairs, b.matrix.NumPairs(),
			)
		}
	}

	remaining := b.matrix.ActiveKeys()
	switch {
	case len(remaining) > 1:
		root, err := b.joinRemainders(remaining)
		if err != nil {
			return nil, err
		}
		b.root = root
	case len(remaining) == 1:
		b.root = remaining[0]
	}

	if b.root != nil {
		if err := NormalizeLabels(ctx, b.cfg.Workers, b.root); err != nil {
			return nil, err
		}
	}

	b.state = batchDone
	b.log.Infow("batch clustering finished", FieldMerges, b.merges)
	return b.root, nil
}

// joinRemainders parents every remaining active node to one synthetic star
// root. This is a structural completion, not an error.
func (b *Batch) joinRemainders(nodes []*Node) (*Node, error) {
	root := newComposite(b.nextID, nodes...)
	b.nextID++

	// Deactivation and adoption happen in one locked step, as in Join.
	m := b.matrix
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range nodes {
		if _, err := m.remove(n); err != nil {
			return nil, err
		}
		if err := root.adopt(n, m.unreachable); err != nil {
			return nil, err
		}
	}
	if err := m.add(root); err != nil {
		return nil, err
	}

	starRoots.Inc()
	b.log.Warnw("joined disconnected remainders under a star root", FieldRemainders, len(nodes))
	return root, nil
}

// Root returns the dendrogram root once Run has finished.
func (b *Batch) Root() *Node { return b.root }

// Leaves returns the leaves in input order.
func (b *Batch) Leaves() []*Node {
	out := make([]*Node, len(b.leaves))
	copy(out, b.leaves)
	return out
}

// Matrix returns the active distance matrix. After Run it holds only the root.
func (b *Batch) Matrix() *ActiveMatrix { return b.matrix }

// Merges returns the number of binary merges performed.
func (b *Batch) Merges() int { return b.merges }
