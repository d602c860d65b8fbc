package tree

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

// brokenTree links the nodes by hand, bypassing the rebalance.
func brokenTree(root *rbNode[int, int], count int64) *rbTree[int, int] {
	tree := NewRBTree[int, int]().(*rbTree[int, int])
	tree.root, tree.count = root, count
	return tree
}

func link(parent, left, right *rbNode[int, int]) *rbNode[int, int] {
	parent.left, parent.right = left, right
	parent.fixLink()
	return parent
}

func n(key int, color RBColor) *rbNode[int, int] {
	return &rbNode[int, int]{key: key, val: key, color: color, hasKV: true}
}

func TestValidate(t *testing.T) {
	testcases := []struct {
		name     string
		tree     func() RBTree[int, int]
		expected []error
	}{
		{
			name: "valid",
			tree: func() RBTree[int, int] {
				return brokenTree(link(n(2, Black), n(1, Red), n(3, Red)), 3)
			},
		},
		{
			name: "red root",
			tree: func() RBTree[int, int] {
				return brokenTree(link(n(2, Red), n(1, Black), n(3, Black)), 3)
			},
			expected: []error{ErrRootViolation},
		},
		{
			name: "red child of red",
			tree: func() RBTree[int, int] {
				return brokenTree(link(n(2, Black), link(n(1, Red), n(0, Red), nil), n(3, Black)), 4)
			},
			expected: []error{ErrRedViolation, ErrBlackViolation},
		},
		{
			name: "black depth",
			tree: func() RBTree[int, int] {
				return brokenTree(link(n(2, Black), n(1, Black), nil), 2)
			},
			expected: []error{ErrBlackViolation},
		},
		{
			name: "order",
			tree: func() RBTree[int, int] {
				return brokenTree(link(n(2, Black), n(3, Red), n(1, Red)), 3)
			},
			expected: []error{ErrOrderViolation},
		},
		{
			name: "count",
			tree: func() RBTree[int, int] {
				return brokenTree(link(n(2, Black), n(1, Red), n(3, Red)), 4)
			},
			expected: []error{ErrCountViolation},
		},
		{
			name: "parent link",
			tree: func() RBTree[int, int] {
				root := link(n(2, Black), n(1, Red), n(3, Red))
				root.left.parent = root.right
				return brokenTree(root, 3)
			},
			expected: []error{ErrLinkViolation},
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			err := Validate(tc.tree())
			if len(tc.expected) <= 0 {
				require.NoError(tt, err)
				return
			}
			require.Error(tt, err)
			errs := multierr.Errors(err)
			require.Len(tt, errs, len(tc.expected))
			for _, expected := range tc.expected {
				require.True(tt, errors.Is(err, expected), "%v not in %v", expected, err)
			}
		})
	}
}

func TestValidate_DescComparator(t *testing.T) {
	tree := NewRBTree[int, int](WithRBTreeDesc[int, int]())
	for i := 0; i < 100; i++ {
		tree.Insert(i, i)
	}
	require.NoError(t, Validate(tree))
	require.NoError(t, Validate(NewThreadSafeRBTree(tree)))
}
