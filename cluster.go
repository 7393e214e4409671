package dendro

import (
	"context"
	"math"
	"runtime"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Config controls both engines.
// Start with [DefaultConfig] and override the fields you need.
type Config struct {
	// Linkage selects how composite distances are derived.
	// Default: LinkageAverage.
	Linkage Linkage

	// Metric measures point dissimilarity. Default: EuclideanMetric.
	Metric DistanceMetric

	// Threshold is the online merge threshold: after each arrival, pairs at
	// or below it are merged until none remain. +Inf merges everything;
	// 0 merges only coincident nodes. Must be >= 0. Not defaulted, because
	// 0 is meaningful; DefaultConfig sets +Inf. Ignored by Batch.
	Threshold float64

	// Cutoff drops batch pairs farther apart than this before merging,
	// which may leave disconnected remainders joined under a star root.
	// 0 means no cutoff. Must be >= 0. Default: +Inf.
	Cutoff float64

	// Unreachable is the distance reported for absent pairs and the branch
	// length given to children of a star root. 0 means +Inf. Must be >= 0.
	Unreachable float64

	// Workers bounds the goroutines used for distance computation, label
	// normalization and online ingestion. 0 means runtime.NumCPU().
	Workers int

	// Logger receives structured engine logs. Default: zap.NewNop().
	Logger *zap.Logger

	// Progress, when set, is called as batch pairwise distances complete.
	Progress ProgressFunc

	// LogEvery is the number of merges between progress log lines.
	// Default: 1000.
	LogEvery int
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Linkage:   LinkageAverage,
		Metric:    EuclideanMetric{},
		Threshold: math.Inf(1),
		Cutoff:    math.Inf(1),
	}
}

// validateConfig checks that cfg fields are valid and returns a descriptive error if not.
func validateConfig(cfg *Config) error {
	if !cfg.Linkage.valid() {
		return errors.Newf("dendro: Linkage must be single, complete, average or centroid, got %q", cfg.Linkage)
	}
	if math.IsNaN(cfg.Threshold) || cfg.Threshold < 0 {
		return errors.Newf("dendro: Threshold must be >= 0, got %f", cfg.Threshold)
	}
	if math.IsNaN(cfg.Cutoff) || cfg.Cutoff < 0 {
		return errors.Newf("dendro: Cutoff must be >= 0, got %f", cfg.Cutoff)
	}
	if math.IsNaN(cfg.Unreachable) || cfg.Unreachable < 0 {
		return errors.Newf("dendro: Unreachable must be >= 0, got %f", cfg.Unreachable)
	}
	if cfg.Workers < 0 {
		return errors.Newf("dendro: Workers must be >= 0, got %d", cfg.Workers)
	}
	if cfg.LogEvery < 0 {
		return errors.Newf("dendro: LogEvery must be >= 0, got %d", cfg.LogEvery)
	}
	return nil
}

// applyDefaults fills in zero-valued config fields with their defaults.
func applyDefaults(cfg *Config) {
	if cfg.Linkage == "" {
		cfg.Linkage = LinkageAverage
	}
	if cfg.Metric == nil {
		cfg.Metric = EuclideanMetric{}
	}
	if cfg.Cutoff == 0 {
		cfg.Cutoff = math.Inf(1)
	}
	if cfg.Unreachable == 0 {
		cfg.Unreachable = math.Inf(1)
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.LogEvery == 0 {
		cfg.LogEvery = 1000
	}
}

// Cluster builds the full dendrogram over points in batch mode and returns
// its root. Each point needs a Vector of the same dimensionality. An empty
// input returns a nil root.
func Cluster(ctx context.Context, points []Point, cfg Config) (*Node, error) {
	b, err := NewBatch(cfg)
	if err != nil {
		return nil, err
	}
	if err := b.Populate(ctx, points); err != nil {
		return nil, err
	}
	return b.Run(ctx)
}
