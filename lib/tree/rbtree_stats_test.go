package tree

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collectSums(t *testing.T, reader sdkmetric.Reader) map[string][]metricdata.DataPoint[int64] {
	t.Helper()
	rm := metricdata.ResourceMetrics{}
	require.NoError(t, reader.Collect(context.Background(), &rm))
	res := make(map[string][]metricdata.DataPoint[int64])
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				res[m.Name] = append(res[m.Name], sum.DataPoints...)
			}
		}
	}
	return res
}

func sumOf(points []metricdata.DataPoint[int64], kvs ...attribute.KeyValue) int64 {
	total := int64(0)
	for _, p := range points {
		matched := true
		for _, kv := range kvs {
			if v, ok := p.Attributes.Value(kv.Key); !ok || v.Emit() != kv.Value.Emit() {
				matched = false
				break
			}
		}
		if matched {
			total += p.Value
		}
	}
	return total
}

func TestRBTreeStats(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)
	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
	})

	tree := NewRBTree[uint64, uint64](WithRBTreeStats[uint64, uint64]("stats-test"))
	for _, key := range []uint64{5, 2, 1, 4, 3} {
		tree.Insert(key, key)
	}

	sums := collectSums(t, reader)
	require.Equal(t, int64(5), sumOf(sums["rbtree.node.count"]))
	// 1 and 3 are both outer grandchildren.
	require.Equal(t, int64(2), sumOf(sums["rbtree.fixup.count"],
		attribute.String("rbtree.fixup.op", fixupInsert),
		attribute.String("rbtree.fixup.case", "line"),
	))
	require.Equal(t, int64(0), sumOf(sums["rbtree.fixup.count"],
		attribute.String("rbtree.fixup.case", "triangle"),
	))
	require.Equal(t, int64(1), sumOf(sums["rbtree.fixup.count"],
		attribute.String("rbtree.fixup.case", "red_uncle"),
	))
	require.Equal(t, int64(2), sumOf(sums["rbtree.rotation.count"],
		attribute.String("rbtree.rotation.direction", Right.String()),
	))

	clone := tree.Clone()
	clone.Remove(2)
	sums = collectSums(t, reader)
	require.Equal(t, int64(9), sumOf(sums["rbtree.node.count"]))

	tree.Release()
	clone.Release()
	sums = collectSums(t, reader)
	require.Equal(t, int64(0), sumOf(sums["rbtree.node.count"]))
	require.Greater(t, sumOf(sums["rbtree.fixup.count"],
		attribute.String("rbtree.fixup.op", fixupRemove),
	), int64(0))
}

func TestRBTreeStats_Disabled(t *testing.T) {
	var stats *rbTreeStats
	require.NotPanics(t, func() {
		stats.RecordNodeCount(1)
		stats.IncreaseRotationCount(Left)
		stats.IncreaseFixupCount(fixupInsert, "root")
	})
}

func TestRBTreeStats_RemoveFixupCases(t *testing.T) {
	testcases := []struct {
		name     string
		inserts  []uint64
		remove   uint64
		preorder string
		cases    map[string]int64
	}{
		{
			// 2B(1B, 4R(3B, 5B(-, 6R))), 1 has a red sibling 4.
			name:     "red sibling",
			inserts:  []uint64{1, 2, 3, 4, 5, 6},
			remove:   1,
			preorder: "4:B\n2:B\n3:R\n5:B\n6:R\n",
			cases:    map[string]int64{"red_sibling": 1, "red_parent": 1, "near_nephew": 0, "far_nephew": 0},
		},
		{
			// 2B(1B, 4B(3R, -)), the red nephew 3 is on 1's side.
			name:     "near nephew",
			inserts:  []uint64{2, 1, 4, 3},
			remove:   1,
			preorder: "3:B\n2:B\n4:B\n",
			cases:    map[string]int64{"red_sibling": 0, "near_nephew": 1, "far_nephew": 1, "black_parent": 0},
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			reader := sdkmetric.NewManualReader()
			provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
			otel.SetMeterProvider(provider)
			tt.Cleanup(func() {
				_ = provider.Shutdown(context.Background())
			})

			tree := NewRBTree[uint64, uint64](WithRBTreeStats[uint64, uint64]("remove-" + tc.name))
			for _, key := range tc.inserts {
				tree.Insert(key, key)
			}
			_, ok := tree.Remove(tc.remove)
			require.True(tt, ok)
			require.Equal(tt, tc.preorder, Sprint(tree, PreOrder))
			require.NoError(tt, Validate(tree))

			sums := collectSums(tt, reader)
			for fixupCase, expected := range tc.cases {
				require.Equal(tt, expected, sumOf(sums["rbtree.fixup.count"],
					attribute.String("rbtree.fixup.op", fixupRemove),
					attribute.String("rbtree.fixup.case", fixupCase),
				), fixupCase)
			}
		})
	}
}

func TestRBTreeStats_ThreadSafeSnapshot(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)
	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
	})

	tree := NewThreadSafeRBTree[uint64, uint64](nil, WithRBTreeStats[uint64, uint64]("thread-safe"))
	for key := uint64(0); key < 3; key++ {
		tree.Insert(key, key)
	}
	for range tree.Traverse(InOrder) {
	}
	require.NoError(t, Validate(tree))

	// The iteration snapshots are not counted.
	sums := collectSums(t, reader)
	require.Equal(t, int64(3), sumOf(sums["rbtree.node.count"]))

	clone := tree.Clone()
	sums = collectSums(t, reader)
	require.Equal(t, int64(6), sumOf(sums["rbtree.node.count"]))
	clone.Release()
	tree.Release()
	sums = collectSums(t, reader)
	require.Equal(t, int64(0), sumOf(sums["rbtree.node.count"]))
}
