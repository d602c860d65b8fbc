package tree

import (
	"iter"
)

// Traverse returns a lazy sequence of the nodes in the given order.
// The sequence can be ranged over again, every range starts from the
// current root. The tree must not be mutated while ranging.
func (tree *rbTree[K, V]) Traverse(order TraverseOrder) iter.Seq[RBNode[K, V]] {
	return func(yield func(RBNode[K, V]) bool) {
		switch order {
		case PreOrder:
			tree.preorder(yield)
		case InOrder:
			tree.inorder(yield)
		case PostOrder:
			tree.postorder(yield)
		default:
		}
	}
}

func (tree *rbTree[K, V]) preorder(yield func(RBNode[K, V]) bool) {
	if tree.root == nil {
		return
	}

	stack := make([]*rbNode[K, V], 0, 64)
	stack = append(stack, tree.root)
	for len(stack) > 0 {
		aux := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !yield(aux) {
			return
		}
		if aux.right != nil {
			stack = append(stack, aux.right)
		}
		if aux.left != nil {
			stack = append(stack, aux.left)
		}
	}
}

func (tree *rbTree[K, V]) inorder(yield func(RBNode[K, V]) bool) {
	stack := make([]*rbNode[K, V], 0, 64)
	for aux := tree.root; aux != nil || len(stack) > 0; {
		for ; aux != nil; aux = aux.left {
			stack = append(stack, aux)
		}
		aux = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !yield(aux) {
			return
		}
		aux = aux.right
	}
}

func (tree *rbTree[K, V]) postorder(yield func(RBNode[K, V]) bool) {
	var (
		last  *rbNode[K, V]
		stack = make([]*rbNode[K, V], 0, 64)
	)
	for aux := tree.root; aux != nil || len(stack) > 0; {
		if aux != nil {
			stack = append(stack, aux)
			aux = aux.left
			continue
		}
		peek := stack[len(stack)-1]
		if peek.right != nil && peek.right != last {
			aux = peek.right
			continue
		}
		if !yield(peek) {
			return
		}
		last = peek
		stack = stack[:len(stack)-1]
	}
}

// Range yields the nodes with lo <= key <= hi in tree order.
func (tree *rbTree[K, V]) Range(lo, hi K) iter.Seq[RBNode[K, V]] {
	return func(yield func(RBNode[K, V]) bool) {
		stack := make([]*rbNode[K, V], 0, 64)
		for aux := tree.root; aux != nil || len(stack) > 0; {
			for aux != nil {
				if /* whole left part is below lo */ tree.keyCompare(aux.key, lo) < 0 {
					aux = aux.right
					continue
				}
				stack = append(stack, aux)
				aux = aux.left
			}
			if len(stack) <= 0 {
				return
			}
			aux = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if tree.keyCompare(aux.key, hi) > 0 {
				return
			}
			if !yield(aux) {
				return
			}
			aux = aux.right
		}
	}
}

// Inorder traversal to implement the DFS.
func (tree *rbTree[K, V]) Foreach(action func(idx int64, color RBColor, key K, val V) bool) {
	idx := int64(0)
	tree.inorder(func(node RBNode[K, V]) bool {
		if !action(idx, node.Color(), node.Key(), node.Val()) {
			return false
		}
		idx++
		return true
	})
}
