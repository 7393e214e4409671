// Package dendro builds agglomerative clustering dendrograms over
// feature-bearing points, either in batch over a known point set or online
// as points arrive from concurrent producers.
//
// Both engines keep a sparse symmetric distance matrix over the active
// nodes (nodes not yet merged). A merge replaces two active nodes by a
// composite whose distance to every other active node is derived by the
// linkage rule; each child gets half the merge distance as branch length.
//
// Batch usage:
//
//	cfg := dendro.DefaultConfig()
//	cfg.Linkage = dendro.LinkageSingle
//	root, err := dendro.Cluster(ctx, points, cfg)
//	fmt.Println(root.Newick(1, 0.5))
//
// Online usage:
//
//	cfg := dendro.DefaultConfig()
//	cfg.Threshold = 0.25
//	o, err := dendro.NewOnline(cfg)
//	err = o.AddAll(ctx, points) // or o.Add / o.Ingest from any goroutine
//	roots, err := o.Finish(ctx)
//
// # Linkage
//
// LinkageSingle, LinkageComplete and LinkageAverage combine the two
// children's distances to a third node; LinkageCentroid recomputes the
// metric from the composite's weighted-mean centroid.
//
// # Disconnected input
//
// With Config.Cutoff set, the batch engine may end with several components
// that share no pair. They are joined under one synthetic star root whose
// children carry the Config.Unreachable branch length. An online engine
// whose threshold is never met for some nodes simply keeps several roots.
// Neither case is an error.
//
// # Errors
//
// Broken internal invariants (merging an inactive node, a negative
// distance, a pair count off after a merge) are reported as errors that
// satisfy errors.HasAssertionFailure from github.com/cockroachdb/errors and
// abort the operation in progress.
package dendro
