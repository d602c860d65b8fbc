package tree

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/benz9527/xtree/lib/infra"
)

const (
	RBTreeStatsName = "xtree/rbtree"

	fixupInsert = "insert"
	fixupRemove = "remove"
)

// rbTreeStats is nil when the stats are disabled, all the
// methods are no-op on a nil receiver.
type rbTreeStats struct {
	nodeCount     metric.Int64UpDownCounter
	rotationCount metric.Int64Counter
	fixupCount    metric.Int64Counter
}

func (stats *rbTreeStats) RecordNodeCount(delta int64) {
	if stats == nil || delta == 0 {
		return
	}
	stats.nodeCount.Add(context.Background(), delta)
}

func (stats *rbTreeStats) IncreaseRotationCount(dir RBDirection) {
	if stats == nil {
		return
	}
	as := attribute.NewSet(
		attribute.String("rbtree.rotation.direction", dir.String()),
	)
	stats.rotationCount.Add(context.Background(), 1, metric.WithAttributeSet(as))
}

func (stats *rbTreeStats) IncreaseFixupCount(op, fixupCase string) {
	if stats == nil {
		return
	}
	as := attribute.NewSet(
		attribute.String("rbtree.fixup.op", op),
		attribute.String("rbtree.fixup.case", fixupCase),
	)
	stats.fixupCount.Add(context.Background(), 1, metric.WithAttributeSet(as))
}

// WithRBTreeStats registers the tree instruments on the global
// meter provider, under the meter "xtree/rbtree/<name>".
func WithRBTreeStats[K infra.OrderedKey, V any](name string) RBTreeOpt[K, V] {
	return func(tree *rbTree[K, V]) {
		tree.stats = newRBTreeStats(name)
	}
}

func newRBTreeStats(name string) *rbTreeStats {
	if len(name) <= 0 {
		name = "default"
	}
	meter := otel.Meter(fmt.Sprintf("%s/%s", RBTreeStatsName, name))
	return &rbTreeStats{
		nodeCount: lo.Must[metric.Int64UpDownCounter](meter.
			Int64UpDownCounter(
				"rbtree.node.count",
				metric.WithDescription("The number of nodes in the rbtree."),
			),
		),
		rotationCount: lo.Must[metric.Int64Counter](meter.
			Int64Counter(
				"rbtree.rotation.count",
				metric.WithDescription("The number of rotations done by the rbtree rebalance."),
			),
		),
		fixupCount: lo.Must[metric.Int64Counter](meter.
			Int64Counter(
				"rbtree.fixup.count",
				metric.WithDescription("The number of rebalance cases hit by insert and remove."),
			),
		),
	}
}
