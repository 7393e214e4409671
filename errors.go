package dendro

import "github.com/cockroachdb/errors"

// Sentinel errors. Callers match them with errors.Is; invariant faults
// additionally satisfy errors.HasAssertionFailure.
var (
	// ErrInactiveNode indicates an operation referenced a node that is not
	// registered as active in the distance matrix.
	ErrInactiveNode = errors.New("dendro: node is not active")

	// ErrDuplicateNode indicates a node was registered twice.
	ErrDuplicateNode = errors.New("dendro: node already registered")

	// ErrHasParent indicates a parent was assigned to a node that already has one.
	ErrHasParent = errors.New("dendro: node already has a parent")

	// ErrInvalidDistance indicates a negative or NaN distance.
	ErrInvalidDistance = errors.New("dendro: distance must be non-negative")

	// ErrSelfPair indicates a pair whose two ends are the same node.
	ErrSelfPair = errors.New("dendro: pair must join two distinct nodes")

	// ErrWeightMismatch indicates a composite weight that is not the sum of
	// its children's weights.
	ErrWeightMismatch = errors.New("dendro: composite weight does not match children")

	// ErrPairCount indicates the active set or pair count changed by an
	// unexpected amount during a merge.
	ErrPairCount = errors.New("dendro: unexpected matrix size after merge")

	// ErrNoCentroid indicates centroid linkage was asked to measure a node
	// without a representative vector.
	ErrNoCentroid = errors.New("dendro: node has no centroid")

	// ErrNotPopulated is returned by Batch.Run before any Populate call.
	ErrNotPopulated = errors.New("dendro: batch engine has not been populated")

	// ErrAlreadyPopulated is returned when a Batch is populated twice.
	ErrAlreadyPopulated = errors.New("dendro: batch engine already populated")

	// ErrAlreadyRun is returned when Batch.Run is called more than once.
	ErrAlreadyRun = errors.New("dendro: batch engine already ran")
)

// invariant marks err as an internal consistency fault. Such faults abort
// the current operation and are never recovered by the engines.
func invariant(err error, format string, args ...interface{}) error {
	return errors.WithAssertionFailure(errors.Wrapf(err, format, args...))
}
