package tree

import (
	"iter"

	"github.com/benz9527/xtree/lib/infra"
)

// go install golang.org/x/tools/cmd/stringer@latest

//go:generate stringer -type=RBColor
type RBColor uint8

const (
	Black RBColor = iota
	Red
)

// Tag is the single character color tag of the diagnostic output.
func (c RBColor) Tag() byte {
	if c == Red {
		return 'R'
	}
	return 'B'
}

//go:generate stringer -type=RBDirection
type RBDirection int8

const (
	Left RBDirection = -1 + iota
	Root
	Right
)

//go:generate stringer -type=TraverseOrder
type TraverseOrder uint8

const (
	PreOrder TraverseOrder = iota
	InOrder
	PostOrder
)

type RBNode[K infra.OrderedKey, V any] interface {
	Key() K
	Val() V
	HasKeyVal() bool
	Color() RBColor
	Left() RBNode[K, V]
	Right() RBNode[K, V]
	Parent() RBNode[K, V]
}

// RBTree is not safe for concurrent use. Wrap it by NewThreadSafeRBTree
// or guard it externally.
type RBTree[K infra.OrderedKey, V any] interface {
	Len() int64
	Height() int
	Root() RBNode[K, V]
	Insert(key K, val V)
	InsertIfAbsent(key K, val V) bool
	Remove(key K) (RBNode[K, V], bool)
	RemoveMin() (RBNode[K, V], bool)
	Search(key K) (RBNode[K, V], bool)
	Contains(key K) bool
	Min() (RBNode[K, V], bool)
	Max() (RBNode[K, V], bool)
	Traverse(order TraverseOrder) iter.Seq[RBNode[K, V]]
	Range(lo, hi K) iter.Seq[RBNode[K, V]]
	Foreach(action func(idx int64, color RBColor, key K, val V) bool)
	Clone() RBTree[K, V]
	Assign(src RBTree[K, V])
	Release()
}
