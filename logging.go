package dendro

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Structured log field names shared by the engines.
const (
	FieldRunID      = "run_id"
	FieldEngine     = "engine"
	FieldLinkage    = "linkage"
	FieldPoints     = "points"
	FieldActive     = "active_nodes"
	FieldPairs      = "pair_count"
	FieldMerges     = "merges"
	FieldDistance   = "distance"
	FieldThreshold  = "threshold"
	FieldRemainders = "remainders"
	FieldStale      = "stale_distances"
	FieldCatchUp    = "catchup_distances"
)

const (
	engineBatch  = "batch"
	engineOnline = "online"
)

// componentLogger returns a named logger for one engine instance, tagged
// with a fresh run id so concurrent runs can be told apart.
func componentLogger(base *zap.Logger, engine string, linkage Linkage) *zap.SugaredLogger {
	if base == nil {
		base = zap.NewNop()
	}
	return base.Named("dendro." + engine).Sugar().With(
		FieldRunID, uuid.NewString(),
		FieldEngine, engine,
		FieldLinkage, string(linkage),
	)
}
