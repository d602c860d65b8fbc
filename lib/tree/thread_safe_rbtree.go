package tree

import (
	"iter"
	"sync"

	"github.com/benz9527/xtree/lib/infra"
)

// threadSafeRBTree serializes all the operations by one RWMutex.
// Readers share the lock, writers hold it exclusively.
type threadSafeRBTree[K infra.OrderedKey, V any] struct {
	lock sync.RWMutex
	tree RBTree[K, V]
}

func (t *threadSafeRBTree[K, V]) Len() int64 {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.tree.Len()
}

func (t *threadSafeRBTree[K, V]) Height() int {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.tree.Height()
}

// Root returns the live root, reading its links races with writers.
func (t *threadSafeRBTree[K, V]) Root() RBNode[K, V] {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.tree.Root()
}

func (t *threadSafeRBTree[K, V]) Insert(key K, val V) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.tree.Insert(key, val)
}

func (t *threadSafeRBTree[K, V]) InsertIfAbsent(key K, val V) bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.tree.InsertIfAbsent(key, val)
}

func (t *threadSafeRBTree[K, V]) Remove(key K) (RBNode[K, V], bool) {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.tree.Remove(key)
}

func (t *threadSafeRBTree[K, V]) RemoveMin() (RBNode[K, V], bool) {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.tree.RemoveMin()
}

// Search, Min and Max return detached nodes, they are safe to
// read after the lock is released.

func (t *threadSafeRBTree[K, V]) Search(key K) (RBNode[K, V], bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return detached[K, V](t.tree.Search(key))
}

func (t *threadSafeRBTree[K, V]) Contains(key K) bool {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.tree.Contains(key)
}

func (t *threadSafeRBTree[K, V]) Min() (RBNode[K, V], bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return detached[K, V](t.tree.Min())
}

func (t *threadSafeRBTree[K, V]) Max() (RBNode[K, V], bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return detached[K, V](t.tree.Max())
}

// Traverse ranges over a snapshot cloned under the read lock.
// The yielded nodes stay readable after the loop.
func (t *threadSafeRBTree[K, V]) Traverse(order TraverseOrder) iter.Seq[RBNode[K, V]] {
	return func(yield func(RBNode[K, V]) bool) {
		snapshot := t.snapshot()
		for node := range snapshot.Traverse(order) {
			if !yield(node) {
				return
			}
		}
	}
}

func (t *threadSafeRBTree[K, V]) Range(lo, hi K) iter.Seq[RBNode[K, V]] {
	return func(yield func(RBNode[K, V]) bool) {
		snapshot := t.snapshot()
		for node := range snapshot.Range(lo, hi) {
			if !yield(node) {
				return
			}
		}
	}
}

// Foreach holds the read lock, the action must not write the tree.
func (t *threadSafeRBTree[K, V]) Foreach(action func(idx int64, color RBColor, key K, val V) bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	t.tree.Foreach(action)
}

func (t *threadSafeRBTree[K, V]) Clone() RBTree[K, V] {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return NewThreadSafeRBTree[K, V](t.tree.Clone())
}

func (t *threadSafeRBTree[K, V]) Assign(src RBTree[K, V]) {
	if s, ok := src.(*threadSafeRBTree[K, V]); ok && s == t {
		return
	}
	// Never hold both locks at once.
	var snapshot RBTree[K, V]
	if src != nil {
		snapshot = src.Clone()
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	t.tree.Assign(snapshot)
}

func (t *threadSafeRBTree[K, V]) Release() {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.tree.Release()
}

// snapshot is never released, the garbage collector reclaims it once
// the yielded nodes are dropped. It records no stats.
func (t *threadSafeRBTree[K, V]) snapshot() RBTree[K, V] {
	t.lock.RLock()
	defer t.lock.RUnlock()
	if inner, ok := t.tree.(*rbTree[K, V]); ok {
		return inner.clone()
	}
	return t.tree.Clone()
}

func detached[K infra.OrderedKey, V any](node RBNode[K, V], ok bool) (RBNode[K, V], bool) {
	if !ok {
		return nil, false
	}
	if n, isNode := node.(*rbNode[K, V]); isNode {
		return n.detach(), true
	}
	return node, true
}

// NewThreadSafeRBTree wraps the tree, a nil tree is replaced by an
// empty one with the given options.
func NewThreadSafeRBTree[K infra.OrderedKey, V any](tree RBTree[K, V], opts ...RBTreeOpt[K, V]) RBTree[K, V] {
	if tree == nil {
		tree = NewRBTree[K, V](opts...)
	}
	if ts, ok := tree.(*threadSafeRBTree[K, V]); ok {
		return ts
	}
	return &threadSafeRBTree[K, V]{tree: tree}
}
