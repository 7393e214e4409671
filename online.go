package dendro

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Online grows a dendrogram as points arrive. Each arrival is measured
// against the active nodes, inserted into the matrix, and then every pair
// at or below Config.Threshold is merged, closest first, until none is
// left. A merge cascade may join nodes unrelated to the new point.
//
// Add is safe for concurrent use. Distances are computed outside the
// commit section against a snapshot of the active set; at commit, values
// for nodes merged away in the meantime are discarded rather than
// recomputed, and nodes that appeared since the snapshot are measured
// inside the section. Nodes that never come within the threshold of
// anything stay as separate roots.
type Online struct {
	cfg    Config
	agg    *Agglomerator
	log    *zap.SugaredLogger
	matrix *ActiveMatrix

	// commit serializes every matrix mutation and cascade.
	commit sync.Mutex

	nextID atomic.Int64
	points atomic.Int64
	merges atomic.Int64

	// dims is the vector length plus one, claimed by the first Add; 0
	// until then.
	dims atomic.Int64
}

// NewOnline returns an empty online engine. Returns an error if the config
// is invalid.
func NewOnline(cfg Config) (*Online, error) {
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	agg, err := NewAgglomerator(cfg.Linkage, cfg.Metric, cfg.Workers)
	if err != nil {
		return nil, err
	}
	return &Online{
		cfg:    cfg,
		agg:    agg,
		log:    componentLogger(cfg.Logger, engineOnline, cfg.Linkage),
		matrix: NewActiveMatrix(cfg.Unreachable),
	}, nil
}

func (o *Online) newID() int { return int(o.nextID.Add(1) - 1) }

// Add ingests one point and returns its leaf. Every point needs a Vector
// of the same length as the first one offered. A cancelled ctx stops the
// point before it reaches the commit section; once entered, the section
// runs to completion so the matrix invariants hold.
func (o *Online) Add(ctx context.Context, p Point) (*Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.Vector == nil {
		return nil, errors.New("dendro: online points need a Vector")
	}
	if err := o.checkDims(p.Vector); err != nil {
		return nil, err
	}
	leaf := NewLeaf(o.newID(), &p)

	snapshot := o.matrix.ActiveKeys()
	dists := make([]float64, len(snapshot))
	err := ForEach(ctx, len(snapshot), o.cfg.Workers, func(i int) error {
		d, err := o.agg.DistanceTo(leaf, snapshot[i])
		dists[i] = d
		return err
	}, nil)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	o.commit.Lock()
	defer o.commit.Unlock()
	if err := o.commitLeaf(leaf, snapshot, dists); err != nil {
		return nil, err
	}
	return leaf, nil
}

// checkDims fixes the dimensionality on the first call and rejects any
// later vector of a different length. The first point offered claims it
// even if its Add fails afterwards.
func (o *Online) checkDims(v []float64) error {
	want := int64(len(v)) + 1
	if o.dims.CompareAndSwap(0, want) {
		return nil
	}
	if got := o.dims.Load(); got != want {
		return errors.Newf("dendro: point has %d dimensions, want %d", len(v), got-1)
	}
	return nil
}

// commitLeaf inserts leaf with the distances measured against snapshot and
// runs the merge cascade. Caller holds o.commit.
func (o *Online) commitLeaf(leaf *Node, snapshot []*Node, dists []float64) error {
	computed := make(map[int]float64, len(snapshot))
	for i, x := range snapshot {
		computed[x.id] = dists[i]
	}

	current := o.matrix.ActiveKeys()
	accepted := make([]float64, len(current))
	catchUp := 0
	for i, x := range current {
		if d, ok := computed[x.id]; ok {
			accepted[i] = d
			delete(computed, x.id)
			continue
		}
		d, err := o.agg.DistanceTo(leaf, x)
		if err != nil {
			return err
		}
		accepted[i] = d
		catchUp++
	}
	// Whatever is left was merged away after the snapshot.
	stale := len(computed)

	if err := o.matrix.Add(leaf); err != nil {
		return err
	}
	for i, x := range current {
		if err := o.matrix.Put(leaf, x, accepted[i]); err != nil {
			return errors.Wrapf(err, "dendro: distance from new node %d to %d", leaf.id, x.id)
		}
	}

	o.points.Add(1)
	pointsIngested.WithLabelValues(engineOnline).Inc()
	if stale > 0 || catchUp > 0 {
		staleDistances.Add(float64(stale))
		catchUpDistances.Add(float64(catchUp))
		o.log.Debugw("snapshot drifted before commit", FieldStale, stale, FieldCatchUp, catchUp)
	}

	return o.cascade()
}

// cascade merges the closest pair while it is within the threshold.
// Caller holds o.commit.
func (o *Online) cascade() error {
	for {
		p, ok := o.matrix.SmallestPair()
		if !ok || p.Distance > o.cfg.Threshold {
			return nil
		}
		// Registered nodes never carry a parent while adoption and removal
		// share one matrix-lock scope and merges run under o.commit. A
		// parent here means a merge bypassed that discipline.
		if !p.A.IsActive() || !p.B.IsActive() {
			return invariant(ErrInactiveNode, "cascade pair (%d, %d)", p.A.id, p.B.id)
		}

		if _, err := o.agg.Join(o.newID(), p.A, p.B, o.matrix); err != nil {
			return errors.Wrapf(err, "dendro: online merge of (%d, %d)", p.A.id, p.B.id)
		}
		merges := o.merges.Add(1)
		mergesTotal.WithLabelValues(engineOnline).Inc()
		mergeDistance.Observe(p.Distance)

		if merges%int64(o.cfg.LogEvery) == 0 {
			o.log.Debugw("online clustering progress",
				FieldMerges, merges,
				FieldActive, o.matrix.NumKeys(),
				FieldPairs, o.matrix.NumPairs(),
				FieldThreshold, o.cfg.Threshold,
			)
		}
	}
}

// AddAll ingests points with up to Config.Workers concurrent Add calls. The
// first error cancels the remaining points and is returned; a cancelled ctx
// is reported even when no point had started.
func (o *Online) AddAll(ctx context.Context, points []Point) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Workers)
	for i := range points {
		if gctx.Err() != nil {
			break
		}
		p := points[i]
		g.Go(func() error {
			_, err := o.Add(gctx, p)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Ingest consumes src until it is closed or ctx is done, with up to
// Config.Workers concurrent Add calls. Points are pulled only as workers
// free up; buffering in front of the engine belongs to the caller.
func (o *Online) Ingest(ctx context.Context, src <-chan Point) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Workers)
	for {
		select {
		case <-gctx.Done():
			if err := g.Wait(); err != nil {
				return err
			}
			return ctx.Err()
		case p, ok := <-src:
			if !ok {
				return g.Wait()
			}
			g.Go(func() error {
				_, err := o.Add(gctx, p)
				return err
			})
		}
	}
}

// Roots returns the current forest: every active node, ordered by id.
func (o *Online) Roots() []*Node { return o.matrix.ActiveKeys() }

// Root returns the single root when everything has merged into one tree.
func (o *Online) Root() (*Node, bool) {
	roots := o.Roots()
	if len(roots) != 1 {
		return nil, false
	}
	return roots[0], true
}

// Finish normalizes label probabilities across the forest and returns its
// roots. Call it once ingestion has stopped.
func (o *Online) Finish(ctx context.Context) ([]*Node, error) {
	o.commit.Lock()
	defer o.commit.Unlock()
	roots := o.matrix.ActiveKeys()
	if err := NormalizeLabels(ctx, o.cfg.Workers, roots...); err != nil {
		return nil, err
	}
	o.log.Infow("online clustering finished",
		FieldPoints, o.points.Load(),
		FieldMerges, o.merges.Load(),
		FieldActive, len(roots),
	)
	return roots, nil
}

// Matrix returns the active distance matrix.
func (o *Online) Matrix() *ActiveMatrix { return o.matrix }

// Len returns the number of points committed so far.
func (o *Online) Len() int { return int(o.points.Load()) }

// Merges returns the number of merges performed so far.
func (o *Online) Merges() int { return int(o.merges.Load()) }
