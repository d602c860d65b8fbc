package tree

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/benz9527/xtree/lib/infra"
)

var (
	ErrRedViolation   = errors.New("rbtree red violation")
	ErrBlackViolation = errors.New("rbtree black violation")
	ErrRootViolation  = errors.New("rbtree root violation")
	ErrLinkViolation  = errors.New("rbtree link violation")
	ErrOrderViolation = errors.New("rbtree order violation")
	ErrCountViolation = errors.New("rbtree count violation")
)

func isBlack[K infra.OrderedKey, V any](node RBNode[K, V]) bool {
	return node == nil || node.Color() == Black
}

func isRed[K infra.OrderedKey, V any](node RBNode[K, V]) bool {
	return node != nil && node.Color() == Red
}

// comparatorOf digs the key order out of the known implementations.
func comparatorOf[K infra.OrderedKey, V any](tree RBTree[K, V]) func(k1, k2 K) int64 {
	switch t := tree.(type) {
	case *rbTree[K, V]:
		return t.keyCompare
	case *threadSafeRBTree[K, V]:
		return comparatorOf[K, V](t.tree)
	default:
	}
	return infra.AscComparator[K]
}

// validationView pins one snapshot of a thread-safe tree, so the rules
// are checked on the same nodes while writers go on.
func validationView[K infra.OrderedKey, V any](tree RBTree[K, V]) RBTree[K, V] {
	if ts, ok := tree.(*threadSafeRBTree[K, V]); ok {
		return ts.snapshot()
	}
	return tree
}

// rbtree rule validation utilities.

// References:
// https://github1s.com/minghu6/rust-minghu6/blob/master/coll_st/src/bst/rb.rs

// Preorder traversal to validate that no red node has a red child.
func RedViolationValidate[K infra.OrderedKey, V any](tree RBTree[K, V]) error {
	tree = validationView[K, V](tree)
	for node := range tree.Traverse(PreOrder) {
		if isRed[K, V](node) && (isRed[K, V](node.Left()) || isRed[K, V](node.Right())) {
			return fmt.Errorf("%w: red node %v has a red child", ErrRedViolation, node.Key())
		}
	}
	return nil
}

/*
<X> is a RED node.
[X] is a BLACK node (or nil).

	        [13]
	        /  \
	     <8>    [15]
	     / \    /  \
	  [6] [11] [14] [17]
	  /              /
	<1>            <16>

Every path from the root down to a nil child passes
the same number of black nodes.
*/
func BlackViolationValidate[K infra.OrderedKey, V any](tree RBTree[K, V]) error {
	tree = validationView[K, V](tree)
	root := tree.Root()
	if root == nil {
		return nil
	}

	type pending struct {
		node  RBNode[K, V]
		depth int
	}
	expected := -1
	stack := []pending{{node: root}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		depth := top.depth
		if isBlack[K, V](top.node) {
			depth++
		}
		for _, child := range []RBNode[K, V]{top.node.Left(), top.node.Right()} {
			if child != nil {
				stack = append(stack, pending{node: child, depth: depth})
				continue
			}
			if expected < 0 {
				expected = depth
			} else if expected != depth {
				return fmt.Errorf("%w: black depth %d under %v, expected %d",
					ErrBlackViolation, depth, top.node.Key(), expected)
			}
		}
	}
	return nil
}

func RootColorValidate[K infra.OrderedKey, V any](tree RBTree[K, V]) error {
	tree = validationView[K, V](tree)
	if root := tree.Root(); root != nil {
		if root.Color() != Black {
			return fmt.Errorf("%w: root %v is red", ErrRootViolation, root.Key())
		}
		if root.Parent() != nil {
			return fmt.Errorf("%w: root %v has a parent", ErrRootViolation, root.Key())
		}
	}
	return nil
}

// LinkViolationValidate checks that every child points back to its parent
// and the node count matches Len.
func LinkViolationValidate[K infra.OrderedKey, V any](tree RBTree[K, V]) error {
	tree = validationView[K, V](tree)
	count := int64(0)
	for node := range tree.Traverse(PreOrder) {
		count++
		for _, child := range []RBNode[K, V]{node.Left(), node.Right()} {
			if child != nil && child.Parent() != node {
				return fmt.Errorf("%w: child %v of %v points to another parent",
					ErrLinkViolation, child.Key(), node.Key())
			}
		}
	}
	if count != tree.Len() {
		return fmt.Errorf("%w: %d nodes linked, %d counted", ErrCountViolation, count, tree.Len())
	}
	return nil
}

// OrderViolationValidate checks the inorder sequence is non-decreasing.
// Equal keys may sit on both sides after rotations, so the check is on
// the sequence instead of the subtree bounds.
func OrderViolationValidate[K infra.OrderedKey, V any](tree RBTree[K, V]) error {
	tree = validationView[K, V](tree)
	var (
		prev    K
		hasPrev bool
		cmp     = comparatorOf[K, V](tree)
	)
	for node := range tree.Traverse(InOrder) {
		if hasPrev && cmp(prev, node.Key()) > 0 {
			return fmt.Errorf("%w: %v is visited before %v", ErrOrderViolation, prev, node.Key())
		}
		prev, hasPrev = node.Key(), true
	}
	return nil
}

// Validate combines all violations of the tree. A thread-safe tree is
// validated on one snapshot.
func Validate[K infra.OrderedKey, V any](tree RBTree[K, V]) error {
	tree = validationView[K, V](tree)
	return multierr.Combine(
		RootColorValidate[K, V](tree),
		RedViolationValidate[K, V](tree),
		BlackViolationValidate[K, V](tree),
		LinkViolationValidate[K, V](tree),
		OrderViolationValidate[K, V](tree),
	)
}
