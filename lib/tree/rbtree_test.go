package tree

import (
	randv2 "math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/benz9527/xtree/lib/infra"
)

type checkData struct {
	color RBColor
	key   uint64
}

func requireInorder(t *testing.T, tree RBTree[uint64, uint64], expected []checkData) {
	t.Helper()
	require.Equal(t, int64(len(expected)), tree.Len())
	tree.Foreach(func(idx int64, color RBColor, key uint64, val uint64) bool {
		require.Equal(t, expected[idx].color, color, "key %d", key)
		require.Equal(t, expected[idx].key, key)
		return true
	})
	require.NoError(t, Validate(tree))
}

func requireOrder(t *testing.T, tree RBTree[uint64, uint64], order TraverseOrder, expected []checkData) {
	t.Helper()
	actual := make([]checkData, 0, len(expected))
	for node := range tree.Traverse(order) {
		actual = append(actual, checkData{node.Color(), node.Key()})
	}
	require.Equal(t, expected, actual, order.String())
}

func inorderKeys[K infra.OrderedKey, V any](tree RBTree[K, V]) []K {
	keys := make([]K, 0, tree.Len())
	for node := range tree.Traverse(InOrder) {
		keys = append(keys, node.Key())
	}
	return keys
}

func TestNilNode(t *testing.T) {
	var nilNode RBNode[uint64, uint64] = nil
	require.True(t, nilNode == nil)

	var nilNode2 *rbNode[uint64, uint64] = nil
	nilNode = nilNode2
	require.True(t, nilNode != nil)
	require.Nil(t, nilNode)

	tree := NewRBTree[uint64, uint64]()
	require.True(t, tree.Root() == nil)
	_, ok := tree.Min()
	require.False(t, ok)
	_, ok = tree.Max()
	require.False(t, ok)
	require.Equal(t, 0, tree.Height())
	require.NoError(t, Validate(tree))
}

func TestRbtreeLeftAndRightRotate_Pred(t *testing.T) {
	tree := NewRBTree[uint64, uint64]()

	tree.Insert(52, 1)
	requireInorder(t, tree, []checkData{
		{Black, 52},
	})

	tree.Insert(47, 1)
	requireInorder(t, tree, []checkData{
		{Red, 47}, {Black, 52},
	})

	tree.Insert(3, 1)
	requireInorder(t, tree, []checkData{
		{Red, 3}, {Black, 47}, {Red, 52},
	})

	tree.Insert(35, 1)
	requireInorder(t, tree, []checkData{
		{Black, 3},
		{Red, 35},
		{Black, 47},
		{Black, 52},
	})

	tree.Insert(24, 1)
	requireInorder(t, tree, []checkData{
		{Red, 3},
		{Black, 24},
		{Red, 35},
		{Black, 47},
		{Black, 52},
	})

	// remove

	x, ok := tree.Remove(24)
	require.True(t, ok)
	require.Equal(t, uint64(24), x.Key())
	requireInorder(t, tree, []checkData{
		{Black, 3},
		{Red, 35},
		{Black, 47},
		{Black, 52},
	})

	x, ok = tree.Remove(47)
	require.True(t, ok)
	require.Equal(t, uint64(47), x.Key())
	requireInorder(t, tree, []checkData{
		{Black, 3},
		{Black, 35},
		{Black, 52},
	})

	x, ok = tree.Remove(52)
	require.True(t, ok)
	require.Equal(t, uint64(52), x.Key())
	requireInorder(t, tree, []checkData{
		{Red, 3}, {Black, 35},
	})

	x, ok = tree.Remove(3)
	require.True(t, ok)
	require.Equal(t, uint64(3), x.Key())
	requireInorder(t, tree, []checkData{
		{Black, 35},
	})

	x, ok = tree.Remove(35)
	require.True(t, ok)
	require.Equal(t, uint64(35), x.Key())
	require.Equal(t, int64(0), tree.Len())
	require.Nil(t, tree.Root())
}

func TestRbtree_RemoveMin(t *testing.T) {
	tree := NewRBTree[uint64, uint64]()
	for _, key := range []uint64{52, 47, 3, 35, 24} {
		tree.Insert(key, 1)
	}
	requireInorder(t, tree, []checkData{
		{Red, 3},
		{Black, 24},
		{Red, 35},
		{Black, 47},
		{Black, 52},
	})

	x, ok := tree.RemoveMin()
	require.True(t, ok)
	require.Equal(t, uint64(3), x.Key())
	requireInorder(t, tree, []checkData{
		{Black, 24},
		{Red, 35},
		{Black, 47},
		{Black, 52},
	})

	x, ok = tree.RemoveMin()
	require.True(t, ok)
	require.Equal(t, uint64(24), x.Key())
	requireInorder(t, tree, []checkData{
		{Black, 35},
		{Black, 47},
		{Black, 52},
	})

	x, ok = tree.RemoveMin()
	require.True(t, ok)
	require.Equal(t, uint64(35), x.Key())
	requireInorder(t, tree, []checkData{
		{Black, 47}, {Red, 52},
	})

	x, ok = tree.RemoveMin()
	require.True(t, ok)
	require.Equal(t, uint64(47), x.Key())
	requireInorder(t, tree, []checkData{
		{Black, 52},
	})

	x, ok = tree.RemoveMin()
	require.True(t, ok)
	require.Equal(t, uint64(52), x.Key())
	require.Equal(t, int64(0), tree.Len())

	x, ok = tree.RemoveMin()
	require.False(t, ok)
	require.Nil(t, x)
}

func newScenarioTree(opts ...RBTreeOpt[uint64, uint64]) RBTree[uint64, uint64] {
	tree := NewRBTree[uint64, uint64](opts...)
	for _, key := range []uint64{5, 2, 1, 4, 3} {
		tree.Insert(key, key*10)
	}
	return tree
}

func TestRbtreeScenario_InsertTrace(t *testing.T) {
	tree := newScenarioTree()
	requireOrder(t, tree, PreOrder, []checkData{
		{Black, 2}, {Black, 1}, {Black, 4}, {Red, 3}, {Red, 5},
	})
	requireOrder(t, tree, InOrder, []checkData{
		{Black, 1}, {Black, 2}, {Red, 3}, {Black, 4}, {Red, 5},
	})
	requireOrder(t, tree, PostOrder, []checkData{
		{Black, 1}, {Red, 3}, {Red, 5}, {Black, 4}, {Black, 2},
	})
	require.Equal(t, uint64(2), tree.Root().Key())
	require.NoError(t, Validate(tree))
}

func TestRbtreeScenario_RemoveTwoChildren(t *testing.T) {
	tree := newScenarioTree()
	x, ok := tree.Remove(2)
	require.True(t, ok)
	require.Equal(t, uint64(2), x.Key())
	require.Equal(t, uint64(20), x.Val())
	require.Nil(t, x.Parent())
	requireOrder(t, tree, PreOrder, []checkData{
		{Black, 4}, {Black, 1}, {Red, 3}, {Black, 5},
	})
	require.Equal(t, []uint64{1, 3, 4, 5}, inorderKeys(tree))

	// Absent keys are no-op.
	x, ok = tree.Remove(6)
	require.False(t, ok)
	require.Nil(t, x)
	require.Equal(t, []uint64{1, 3, 4, 5}, inorderKeys(tree))
	require.NoError(t, Validate(tree))

	// Near nephew then far nephew.
	_, ok = tree.Remove(5)
	require.True(t, ok)
	requireOrder(t, tree, PreOrder, []checkData{
		{Black, 3}, {Black, 1}, {Black, 4},
	})
	_, ok = tree.Remove(5)
	require.False(t, ok)
	require.NoError(t, Validate(tree))

	// The moved values follow the keys.
	node, ok := tree.Search(1)
	require.True(t, ok)
	require.Equal(t, uint64(10), node.Val())
}

func TestRbtreeScenario_RemoveBorrowSucc(t *testing.T) {
	tree := newScenarioTree(WithRBTreeRemoveBorrowSucc[uint64, uint64]())
	_, ok := tree.Remove(2)
	require.True(t, ok)
	requireOrder(t, tree, PreOrder, []checkData{
		{Black, 3}, {Black, 1}, {Black, 4}, {Red, 5},
	})
	require.NoError(t, Validate(tree))
}

func TestRbtreeScenario_CloneIndependence(t *testing.T) {
	tree := newScenarioTree()
	clone := tree.Clone()
	require.Equal(t, tree.Len(), clone.Len())
	require.Equal(t, Sprint(tree, PreOrder), Sprint(clone, PreOrder))
	require.NotSame(t, tree.Root(), clone.Root())
	require.Nil(t, clone.Root().Parent())

	_, ok := clone.Remove(2)
	require.True(t, ok)
	_, ok = clone.Remove(5)
	require.True(t, ok)
	clone.Insert(42, 1)

	require.Equal(t, []uint64{1, 2, 3, 4, 5}, inorderKeys(tree))
	require.Equal(t, []uint64{1, 3, 4, 42}, inorderKeys(clone))
	require.NoError(t, Validate(tree))
	require.NoError(t, Validate(clone))

	tree.Remove(1)
	require.Equal(t, []uint64{1, 3, 4, 42}, inorderKeys(clone))

	tree.Release()
	require.Equal(t, []uint64{1, 3, 4, 42}, inorderKeys(clone))
	require.NoError(t, Validate(clone))
}

func TestRbtreeScenario_IncreasingKeysHeight(t *testing.T) {
	tree := NewRBTree[uint64, uint64]()
	total := uint64(1 << 16)
	for i := uint64(1); i <= total; i++ {
		tree.Insert(i, i)
	}
	require.Equal(t, int64(total), tree.Len())
	// 2*log2(n+1)
	require.LessOrEqual(t, tree.Height(), 2*17)
	require.NoError(t, Validate(tree))
}

func TestRbtree_Search(t *testing.T) {
	tree := newScenarioTree()
	for _, key := range []uint64{1, 2, 3, 4, 5} {
		node, ok := tree.Search(key)
		require.True(t, ok)
		require.Equal(t, key, node.Key())
		require.Equal(t, key*10, node.Val())
		require.True(t, node.HasKeyVal())
		require.True(t, tree.Contains(key))
	}
	for _, key := range []uint64{0, 6, 100} {
		node, ok := tree.Search(key)
		require.False(t, ok)
		require.Nil(t, node)
		require.False(t, tree.Contains(key))
	}

	_min, ok := tree.Min()
	require.True(t, ok)
	require.Equal(t, uint64(1), _min.Key())
	_max, ok := tree.Max()
	require.True(t, ok)
	require.Equal(t, uint64(5), _max.Key())
}

func TestRbtree_Duplicates(t *testing.T) {
	tree := NewRBTree[uint64, uint64]()
	for i, key := range []uint64{3, 3, 1, 3, 2, 3, 3} {
		tree.Insert(key, uint64(i))
		require.NoError(t, Validate(tree))
	}
	require.Equal(t, []uint64{1, 2, 3, 3, 3, 3, 3}, inorderKeys(tree))

	for i := 5; i > 0; i-- {
		_, ok := tree.Remove(3)
		require.True(t, ok)
		require.NoError(t, Validate(tree))
		require.Equal(t, i-1, len(inorderKeys(tree))-2)
	}
	require.False(t, tree.Contains(3))
	_, ok := tree.Remove(3)
	require.False(t, ok)
	require.Equal(t, []uint64{1, 2}, inorderKeys(tree))
}

func TestRbtree_InsertIfAbsent(t *testing.T) {
	tree := NewRBTree[uint64, uint64]()
	require.True(t, tree.InsertIfAbsent(1, 10))
	require.True(t, tree.InsertIfAbsent(2, 20))
	require.False(t, tree.InsertIfAbsent(1, 11))
	require.Equal(t, int64(2), tree.Len())
	node, ok := tree.Search(1)
	require.True(t, ok)
	require.Equal(t, uint64(10), node.Val())
}

func TestRbtree_Desc(t *testing.T) {
	tree := NewRBTree[int64, struct{}](WithRBTreeDesc[int64, struct{}]())
	for i := int64(-5); i <= 5; i++ {
		tree.Insert(i, struct{}{})
	}
	require.Equal(t, []int64{5, 4, 3, 2, 1, 0, -1, -2, -3, -4, -5}, inorderKeys(tree))
	require.NoError(t, Validate(tree))

	_max, ok := tree.Max()
	require.True(t, ok)
	require.Equal(t, int64(-5), _max.Key())
	x, ok := tree.RemoveMin()
	require.True(t, ok)
	require.Equal(t, int64(5), x.Key())
}

func TestRbtree_Comparator(t *testing.T) {
	// Order by the absolute value, ties by sign.
	abs := func(i, j int) int64 {
		ai, aj := max(i, -i), max(j, -j)
		switch {
		case ai < aj:
			return -1
		case ai > aj:
			return 1
		case i < j:
			return -1
		case i > j:
			return 1
		}
		return 0
	}
	tree := NewRBTree[int, string](WithRBTreeComparator[int, string](abs))
	for _, key := range []int{-3, 1, 2, -1, 3, -2} {
		tree.Insert(key, "")
	}
	require.Equal(t, []int{-1, 1, -2, 2, -3, 3}, inorderKeys(tree))
	require.True(t, tree.Contains(-2))
	require.NoError(t, Validate(tree))
}

func TestRbtree_Assign(t *testing.T) {
	src := newScenarioTree()
	dst := NewRBTree[uint64, uint64]()
	dst.Insert(100, 1)
	dst.Insert(200, 1)

	dst.Assign(src)
	require.Equal(t, Sprint(src, PreOrder), Sprint(dst, PreOrder))
	dst.Remove(3)
	require.Equal(t, []uint64{1, 2, 3, 4, 5}, inorderKeys(src))
	require.Equal(t, []uint64{1, 2, 4, 5}, inorderKeys(dst))

	// Self assignment keeps the nodes.
	dst.Assign(dst)
	require.Equal(t, []uint64{1, 2, 4, 5}, inorderKeys(dst))
	require.NoError(t, Validate(dst))

	dst.Assign(NewThreadSafeRBTree[uint64, uint64](src))
	require.Equal(t, []uint64{1, 2, 3, 4, 5}, inorderKeys(dst))
	require.NoError(t, Validate(dst))

	dst.Assign(nil)
	require.Equal(t, int64(0), dst.Len())
}

// foreignTree hides a tree behind another RBTree implementation.
type foreignTree[K infra.OrderedKey, V any] struct {
	RBTree[K, V]
}

func (f foreignTree[K, V]) Clone() RBTree[K, V] {
	return foreignTree[K, V]{RBTree: f.RBTree.Clone()}
}

func TestRbtree_AssignForeign(t *testing.T) {
	src := foreignTree[uint64, uint64]{RBTree: newScenarioTree()}
	tree := NewRBTree[uint64, uint64](WithRBTreeDesc[uint64, uint64]())
	tree.Insert(100, 0)

	tree.Assign(src)
	// Copied node by node, the receiver keeps its own order.
	require.Equal(t, []uint64{5, 4, 3, 2, 1}, inorderKeys(tree))
	require.Equal(t, int64(5), tree.Len())
	require.NoError(t, Validate(tree))
	node, ok := tree.Search(4)
	require.True(t, ok)
	require.Equal(t, uint64(40), node.Val())

	tree.Remove(4)
	require.Equal(t, []uint64{1, 2, 3, 4, 5}, inorderKeys[uint64, uint64](src))
}

func TestRbtree_Release(t *testing.T) {
	tree := NewRBTree[uint64, uint64]()
	for i := uint64(0); i < 100_000; i++ {
		tree.Insert(i, 1)
	}
	root := tree.Root().(*rbNode[uint64, uint64])
	tree.Release()
	require.Equal(t, int64(0), tree.Len())
	require.Nil(t, tree.Root())
	require.Nil(t, root.left)
	require.Nil(t, root.right)
	require.False(t, root.HasKeyVal())

	// Reusable after release.
	tree.Insert(1, 1)
	require.Equal(t, []uint64{1}, inorderKeys(tree))
	tree.Release()
	tree.Release()
	require.Equal(t, int64(0), tree.Len())
}

func rbtreeRandomInsertAndRemoveRunCore(t *testing.T, total int, rbRmBySucc bool) {
	var opts []RBTreeOpt[uint64, uint64]
	if rbRmBySucc {
		opts = append(opts, WithRBTreeRemoveBorrowSucc[uint64, uint64]())
	}
	tree := NewRBTree[uint64, uint64](opts...)
	rng := randv2.New(randv2.NewPCG(uint64(total), 1))
	reference := make([]uint64, 0, total)

	for i := 0; i < total; i++ {
		key := rng.Uint64N(uint64(total))
		if rng.IntN(3) == 0 && len(reference) > 0 {
			key = reference[rng.IntN(len(reference))]
			_, ok := tree.Remove(key)
			require.True(t, ok)
			idx, found := slices.BinarySearch(reference, key)
			require.True(t, found)
			reference = slices.Delete(reference, idx, idx+1)
		} else {
			tree.Insert(key, key)
			idx, _ := slices.BinarySearch(reference, key)
			reference = slices.Insert(reference, idx, key)
		}
		require.NoError(t, Validate(tree))
	}
	require.Equal(t, reference, inorderKeys(tree))

	for _, key := range slices.Clone(reference) {
		_, ok := tree.Remove(key)
		require.True(t, ok)
	}
	require.Equal(t, int64(0), tree.Len())
	require.NoError(t, Validate(tree))
}

func TestRbtreeRandomInsertAndRemove(t *testing.T) {
	testcases := []struct {
		name       string
		total      int
		rbRmBySucc bool
	}{
		{name: "rm by pred", total: 2000},
		{name: "rm by succ", total: 2000, rbRmBySucc: true},
		{name: "dense duplicates", total: 50},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			rbtreeRandomInsertAndRemoveRunCore(tt, tc.total, tc.rbRmBySucc)
		})
	}
}

func TestRbtreeRemove_ReverseSequentialNumber(t *testing.T) {
	tree := NewRBTree[int64, uint64]()
	total := int64(10_000)
	for i := total - 1; i >= 0; i-- {
		tree.Insert(i, 1)
	}
	for i := int64(0); i < total; i += 2 {
		_, ok := tree.Remove(i)
		require.True(t, ok)
	}
	require.NoError(t, Validate(tree))
	tree.Foreach(func(idx int64, color RBColor, key int64, val uint64) bool {
		require.Equal(t, idx*2+1, key)
		return true
	})
}

func BenchmarkRBTree_Insert(b *testing.B) {
	tree := NewRBTree[uint64, uint64]()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tree.Insert(uint64(i), uint64(i))
	}
}

func BenchmarkRBTree_InsertAndRemove(b *testing.B) {
	tree := NewRBTree[uint64, uint64]()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tree.Insert(uint64(i), uint64(i))
		if i&1 == 1 {
			tree.Remove(uint64(i - 1))
		}
	}
}
